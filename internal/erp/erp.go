// Package erp reads prices and customers from the SQL Server ERP database.
package erp

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/microsoft/go-mssqldb"
)

const DefaultPort = 1433

var (
	ErrNotConfigured    = errors.New("ERP connection is not configured")
	ErrCustomerNotFound = errors.New("customer not found")
)

type Config struct {
	Server   string
	Database string
	Username string
	Password string
	Port     int
}

func (c Config) Configured() bool {
	return c.Server != "" && c.Database != "" && c.Username != ""
}

// DSN renders a sqlserver:// URL. Encryption is off because the ERP runs
// on a legacy SQL Server without modern TLS.
func (c Config) DSN() string {
	port := c.Port
	if port == 0 {
		port = DefaultPort
	}
	q := url.Values{}
	q.Set("database", c.Database)
	q.Set("encrypt", "disable")
	q.Set("connection timeout", "10")
	u := &url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(c.Username, c.Password),
		Host:     c.Server + ":" + strconv.Itoa(port),
		RawQuery: q.Encode(),
	}
	return u.String()
}

type Client struct {
	db *sqlx.DB
}

func NewClient(db *sqlx.DB) *Client { return &Client{db: db} }

// Open connects and pings the ERP. The caller closes the client.
func Open(ctx context.Context, cfg Config) (*Client, error) {
	if !cfg.Configured() {
		return nil, ErrNotConfigured
	}
	db, err := sqlx.Open("sqlserver", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open erp: %w", err)
	}
	db.SetMaxOpenConns(2)
	db.SetConnMaxIdleTime(time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect erp: %w", err)
	}
	return &Client{db: db}, nil
}

func (c *Client) Close() error { return c.db.Close() }

type ServerInfo struct {
	Version  string `db:"version" json:"version"`
	Database string `db:"database_name" json:"database"`
}

func (c *Client) ServerInfo(ctx context.Context) (*ServerInfo, error) {
	var info ServerInfo
	if err := c.db.GetContext(ctx, &info, `SELECT @@VERSION AS version, DB_NAME() AS database_name`); err != nil {
		return nil, err
	}
	return &info, nil
}

// PricesByUPCs returns UnitPriceC for every UPC that has a price.
func (c *Client) PricesByUPCs(ctx context.Context, upcs []string) (map[string]float64, error) {
	out := map[string]float64{}
	if len(upcs) == 0 {
		return out, nil
	}
	query, args, err := sqlx.In(`SELECT ProductUPC, UnitPriceC FROM Items_tbl WHERE ProductUPC IN (?)`, upcs)
	if err != nil {
		return nil, err
	}
	rows, err := c.db.QueryxContext(ctx, c.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query prices: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			upc   string
			price sql.NullFloat64
		)
		if err := rows.Scan(&upc, &price); err != nil {
			return nil, err
		}
		if price.Valid {
			out[strings.TrimSpace(upc)] = price.Float64
		}
	}
	return out, rows.Err()
}

type Customer struct {
	CustomerID   int64  `db:"CustomerID" json:"customer_id"`
	AccountNo    string `db:"AccountNo" json:"account_no"`
	BusinessName string `db:"BusinessName" json:"business_name"`
}

// SearchCustomers matches account numbers containing q.
func (c *Client) SearchCustomers(ctx context.Context, q string, limit int) ([]Customer, error) {
	out := []Customer{}
	if strings.TrimSpace(q) == "" {
		return out, nil
	}
	if limit <= 0 {
		limit = 20
	}
	err := c.db.SelectContext(ctx, &out, c.db.Rebind(`
		SELECT TOP (?) CustomerID, AccountNo, BusinessName
		FROM Customers_tbl
		WHERE AccountNo LIKE ?
		ORDER BY AccountNo`), limit, "%"+q+"%")
	return out, err
}

func (c *Client) CustomerByID(ctx context.Context, id int64) (*Customer, error) {
	var cust Customer
	err := c.db.GetContext(ctx, &cust, c.db.Rebind(`
		SELECT CustomerID, AccountNo, BusinessName FROM Customers_tbl WHERE CustomerID = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCustomerNotFound
	}
	if err != nil {
		return nil, err
	}
	return &cust, nil
}
