package catalog

import (
	"strings"
	"time"
)

// Product is a locally tracked item. UPCBarcode doubles as the Shopify SKU.
type Product struct {
	ID                    int64     `db:"id" json:"id"`
	ProductName           string    `db:"product_name" json:"product_name"`
	UPCBarcode            *string   `db:"upc_barcode" json:"upc_barcode"`
	ThresholdQuantity     *int      `db:"threshold_quantity" json:"threshold_quantity"`
	QuantityPerCase       *int      `db:"quantity_per_case" json:"quantity_per_case"`
	Price                 *float64  `db:"price" json:"price"`
	AvailableQuantity     *int      `db:"available_quantity" json:"available_quantity"`
	QuantitySoldLastMonth *int      `db:"quantity_sold_last_month" json:"quantity_sold_last_month"`
	CreatedAt             time.Time `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time `db:"updated_at" json:"updated_at"`
}

// SKU returns the trimmed barcode, or "" when the product has none.
func (p *Product) SKU() string {
	if p.UPCBarcode == nil {
		return ""
	}
	return strings.TrimSpace(*p.UPCBarcode)
}

// CaseSize returns quantity_per_case, treating NULL as 0.
func (p *Product) CaseSize() int {
	if p.QuantityPerCase == nil {
		return 0
	}
	return *p.QuantityPerCase
}

type SalesUpdate struct {
	ProductID int64 `db:"id"`
	Quantity  int   `db:"quantity"`
}

// InventoryUpdate with a nil Available clears the stored quantity.
type InventoryUpdate struct {
	ProductID int64 `db:"id"`
	Available *int  `db:"available"`
}

type PriceUpdate struct {
	ProductID int64   `db:"id"`
	Price     float64 `db:"price"`
}

// NotFoundProduct is reported back to the operator after a sync.
type NotFoundProduct struct {
	ProductName string `json:"product_name"`
	UPCBarcode  string `json:"upc_barcode"`
}

// ClearableColumns lists the columns that may be reset to NULL in bulk.
var ClearableColumns = map[string]bool{
	"threshold_quantity":       true,
	"quantity_per_case":        true,
	"price":                    true,
	"available_quantity":       true,
	"quantity_sold_last_month": true,
}

// SyncSummary is the common tail of every sync's complete event.
type SyncSummary struct {
	Synced           int               `json:"synced"`
	NotFound         int               `json:"not_found"`
	NotFoundProducts []NotFoundProduct `json:"not_found_products"`
	Errors           int               `json:"errors"`
	Total            int               `json:"total"`
}

func NewSyncSummary(total int) SyncSummary {
	return SyncSummary{Total: total, NotFoundProducts: []NotFoundProduct{}}
}

func (s *SyncSummary) MarkNotFound(p *Product) {
	s.NotFound++
	s.NotFoundProducts = append(s.NotFoundProducts, NotFoundProduct{ProductName: p.ProductName, UPCBarcode: p.SKU()})
}
