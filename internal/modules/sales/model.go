package sales

import (
	"time"

	"github.com/georgemunganga/stockbridge/internal/modules/catalog"
	"github.com/georgemunganga/stockbridge/internal/shopify"
)

// Aggregate maps SKU to units sold.
type Aggregate map[string]int

// Add sums every key of other into a.
func (a Aggregate) Add(other map[string]int) {
	for sku, qty := range other {
		a[sku] += qty
	}
}

// AddOnly sums only the listed keys of other into a.
func (a Aggregate) AddOnly(other map[string]int, skus []string) {
	for _, sku := range skus {
		if qty, ok := other[sku]; ok {
			a[sku] += qty
		}
	}
}

// Merge sums any number of aggregates into a new one.
func Merge(parts ...map[string]int) Aggregate {
	out := Aggregate{}
	for _, p := range parts {
		out.Add(p)
	}
	return out
}

// StoreFetchResult is the outcome of one store's fetch for one batch.
type StoreFetchResult struct {
	StoreName string    `json:"store_name"`
	Success   bool      `json:"success"`
	Sales     Aggregate `json:"sales,omitempty"`
	Error     string    `json:"error,omitempty"`
}

type StoreFailure struct {
	Store string `json:"store"`
	Error string `json:"error"`
	Batch int    `json:"batch"`
}

// Request selects the products and window of a sync. Nil bounds fall back to
// the configured lookback.
type Request struct {
	ProductIDs []int64
	From       *time.Time
	To         *time.Time
}

// SyncOutcome is carried by the terminal complete event.
type SyncOutcome struct {
	catalog.SyncSummary
	RunID           string            `json:"run_id"`
	StoresProcessed int               `json:"stores_processed"`
	StoresFailed    []StoreFailure    `json:"stores_failed"`
	DateRange       shopify.DateRange `json:"date_range"`
	TagUsed         string            `json:"tag"`
	SalesBySKU      Aggregate         `json:"sales_by_sku"`
}
