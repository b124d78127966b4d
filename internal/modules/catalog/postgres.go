package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type postgresRepo struct{ db *sqlx.DB }

func NewPostgresRepository(db *sqlx.DB) Repository { return &postgresRepo{db: db} }

const productColumns = `id, product_name, upc_barcode, threshold_quantity, quantity_per_case, price,
	available_quantity, quantity_sold_last_month, created_at, updated_at`

func (r *postgresRepo) Create(ctx context.Context, p *Product) error {
	rows, err := r.db.NamedQueryContext(ctx, `
		INSERT INTO products
		  (product_name, upc_barcode, threshold_quantity, quantity_per_case, price,
		   available_quantity, quantity_sold_last_month)
		VALUES
		  (:product_name, :upc_barcode, :threshold_quantity, :quantity_per_case, :price,
		   :available_quantity, :quantity_sold_last_month)
		RETURNING id, created_at, updated_at`, p)
	if err != nil {
		return mapError(err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (r *postgresRepo) GetByID(ctx context.Context, id int64) (*Product, error) {
	var p Product
	err := r.db.GetContext(ctx, &p, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *postgresRepo) List(ctx context.Context) ([]*Product, error) {
	products := []*Product{}
	err := r.db.SelectContext(ctx, &products, `SELECT `+productColumns+` FROM products ORDER BY id`)
	return products, err
}

func (r *postgresRepo) Update(ctx context.Context, p *Product) error {
	res, err := r.db.NamedExecContext(ctx, `
		UPDATE products
		SET product_name = :product_name, upc_barcode = :upc_barcode,
		    threshold_quantity = :threshold_quantity, quantity_per_case = :quantity_per_case,
		    price = :price, available_quantity = :available_quantity,
		    quantity_sold_last_month = :quantity_sold_last_month, updated_at = NOW()
		WHERE id = :id`, p)
	if err != nil {
		return mapError(err)
	}
	return expectRow(res)
}

func (r *postgresRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectRow(res)
}

func (r *postgresRepo) DeleteAll(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *postgresRepo) ClearColumn(ctx context.Context, column string) (int64, error) {
	if !ClearableColumns[column] {
		return 0, ErrInvalidColumn
	}
	res, err := r.db.ExecContext(ctx, fmt.Sprintf(`UPDATE products SET %s = NULL, updated_at = NOW()`, column))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *postgresRepo) BulkUpdateSales(ctx context.Context, updates []SalesUpdate) error {
	args := make([]interface{}, len(updates))
	for i, u := range updates {
		args[i] = u
	}
	return r.bulkExec(ctx, `UPDATE products SET quantity_sold_last_month = :quantity, updated_at = NOW() WHERE id = :id`, args)
}

func (r *postgresRepo) BulkUpdateInventory(ctx context.Context, updates []InventoryUpdate) error {
	args := make([]interface{}, len(updates))
	for i, u := range updates {
		args[i] = u
	}
	return r.bulkExec(ctx, `UPDATE products SET available_quantity = :available, updated_at = NOW() WHERE id = :id`, args)
}

func (r *postgresRepo) BulkUpdatePrices(ctx context.Context, updates []PriceUpdate) error {
	args := make([]interface{}, len(updates))
	for i, u := range updates {
		args[i] = u
	}
	return r.bulkExec(ctx, `UPDATE products SET price = :price, updated_at = NOW() WHERE id = :id`, args)
}

// bulkExec runs one prepared named statement per row inside a transaction.
func (r *postgresRepo) bulkExec(ctx context.Context, query string, rows []interface{}) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareNamedContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row); err != nil {
			return fmt.Errorf("bulk update: %w", err)
		}
	}
	return tx.Commit()
}

func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func mapError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrDuplicateBarcode
	}
	return err
}
