package settings

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

type postgresRepo struct{ db *sqlx.DB }

func NewPostgresRepository(db *sqlx.DB) Repository { return &postgresRepo{db: db} }

const selectSettings = `
	SELECT shopify_store_url, shopify_access_token, shopify_location_id, additional_stores,
	       mssql_server, mssql_database, mssql_username, mssql_password, mssql_port,
	       excluded_skus, sales_order_tag, sales_sync_days, updated_at
	FROM settings WHERE id = 1`

func (r *postgresRepo) Get(ctx context.Context) (*Settings, error) {
	var s Settings
	if err := r.db.GetContext(ctx, &s, selectSettings); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Defaults(), nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *postgresRepo) Save(ctx context.Context, s *Settings) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO settings
		  (id, shopify_store_url, shopify_access_token, shopify_location_id, additional_stores,
		   mssql_server, mssql_database, mssql_username, mssql_password, mssql_port,
		   excluded_skus, sales_order_tag, sales_sync_days, updated_at)
		VALUES
		  (1, :shopify_store_url, :shopify_access_token, :shopify_location_id, :additional_stores,
		   :mssql_server, :mssql_database, :mssql_username, :mssql_password, :mssql_port,
		   :excluded_skus, :sales_order_tag, :sales_sync_days, NOW())
		ON CONFLICT (id) DO UPDATE SET
		  shopify_store_url = EXCLUDED.shopify_store_url,
		  shopify_access_token = EXCLUDED.shopify_access_token,
		  shopify_location_id = EXCLUDED.shopify_location_id,
		  additional_stores = EXCLUDED.additional_stores,
		  mssql_server = EXCLUDED.mssql_server,
		  mssql_database = EXCLUDED.mssql_database,
		  mssql_username = EXCLUDED.mssql_username,
		  mssql_password = EXCLUDED.mssql_password,
		  mssql_port = EXCLUDED.mssql_port,
		  excluded_skus = EXCLUDED.excluded_skus,
		  sales_order_tag = EXCLUDED.sales_order_tag,
		  sales_sync_days = EXCLUDED.sales_sync_days,
		  updated_at = NOW()`, s)
	return err
}
