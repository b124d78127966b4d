package settings

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// StoreCredentials is one Shopify store slot as entered by the operator.
type StoreCredentials struct {
	URL        string `json:"url"`
	Token      string `json:"token"`
	LocationID string `json:"location_id,omitempty"`
}

// AdditionalStores is stored as a JSONB array next to the main store columns.
type AdditionalStores []StoreCredentials

func (a AdditionalStores) Value() (driver.Value, error) {
	if a == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(a)
}

func (a *AdditionalStores) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*a = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("additional_stores: unsupported type %T", src)
	}
	return json.Unmarshal(raw, a)
}

// Settings is the single configuration row shared by all sync jobs.
type Settings struct {
	ShopifyStoreURL    string           `db:"shopify_store_url" json:"shopify_store_url"`
	ShopifyAccessToken string           `db:"shopify_access_token" json:"shopify_access_token"`
	ShopifyLocationID  string           `db:"shopify_location_id" json:"shopify_location_id"`
	AdditionalStores   AdditionalStores `db:"additional_stores" json:"additional_stores"`

	MSSQLServer   string `db:"mssql_server" json:"mssql_server"`
	MSSQLDatabase string `db:"mssql_database" json:"mssql_database"`
	MSSQLUsername string `db:"mssql_username" json:"mssql_username"`
	MSSQLPassword string `db:"mssql_password" json:"mssql_password"`
	MSSQLPort     int    `db:"mssql_port" json:"mssql_port"`

	ExcludedSKUs  string    `db:"excluded_skus" json:"excluded_skus"`
	SalesOrderTag string    `db:"sales_order_tag" json:"sales_order_tag"`
	SalesSyncDays int       `db:"sales_sync_days" json:"sales_sync_days"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// Defaults returns the settings used before anything has been saved.
func Defaults() *Settings {
	return &Settings{MSSQLPort: 1433, SalesSyncDays: DefaultSyncDays}
}
