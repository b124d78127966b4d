package catalog

import "context"

// Repository defines the interface for product storage.
type Repository interface {
	Create(ctx context.Context, p *Product) error
	GetByID(ctx context.Context, id int64) (*Product, error)
	List(ctx context.Context) ([]*Product, error)
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id int64) error
	DeleteAll(ctx context.Context) (int64, error)
	ClearColumn(ctx context.Context, column string) (int64, error)

	// Bulk writers run in a single transaction each.
	BulkUpdateSales(ctx context.Context, updates []SalesUpdate) error
	BulkUpdateInventory(ctx context.Context, updates []InventoryUpdate) error
	BulkUpdatePrices(ctx context.Context, updates []PriceUpdate) error
}
