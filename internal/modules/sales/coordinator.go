package sales

import (
	"context"

	"github.com/georgemunganga/stockbridge/internal/modules/settings"
	"github.com/georgemunganga/stockbridge/internal/shopify"
	"golang.org/x/sync/errgroup"
)

// MaxConcurrentStores caps in-flight store queries per batch.
const MaxConcurrentStores = 5

// Fetcher queries one store's sales for a batch of SKUs.
type Fetcher interface {
	SalesBySKUs(ctx context.Context, q shopify.SalesQuery, progress shopify.ProgressFunc) (map[string]int, error)
}

type FetcherFactory func(store settings.StoreConfig) Fetcher

// ShopifyFetchers adapts a shopify client factory to stores.
func ShopifyFetchers(newClient shopify.Factory) FetcherFactory {
	return func(store settings.StoreConfig) Fetcher {
		return newClient(store.BaseURL, store.AccessToken)
	}
}

// Notice reports either a finished page or a finished store. Result is nil
// for page notices.
type Notice struct {
	Store  string
	Page   int
	Orders int
	Result *StoreFetchResult
}

type BatchResult struct {
	Sales   Aggregate
	Results []StoreFetchResult
}

func (r BatchResult) Failed() []StoreFetchResult {
	var out []StoreFetchResult
	for _, res := range r.Results {
		if !res.Success {
			out = append(out, res)
		}
	}
	return out
}

type Coordinator struct {
	newFetcher FetcherFactory
	limit      int
}

func NewCoordinator(newFetcher FetcherFactory) *Coordinator {
	return &Coordinator{newFetcher: newFetcher, limit: MaxConcurrentStores}
}

// FetchBatch queries every store for q and returns once all of them have
// finished. Successful stores are summed into Sales; a failed store's partial
// data is dropped. notify runs on the calling goroutine in completion order.
func (c *Coordinator) FetchBatch(ctx context.Context, stores []settings.StoreConfig, q shopify.SalesQuery, notify func(Notice)) BatchResult {
	notices := make(chan Notice)

	go func() {
		var g errgroup.Group
		g.SetLimit(c.limit)
		for _, store := range stores {
			store := store
			g.Go(func() error {
				sales, err := c.newFetcher(store).SalesBySKUs(ctx, q, func(page, orders int) {
					notices <- Notice{Store: store.Name, Page: page, Orders: orders}
				})
				res := StoreFetchResult{StoreName: store.Name, Success: err == nil}
				if err != nil {
					res.Error = err.Error()
				} else {
					res.Sales = Aggregate(sales)
				}
				notices <- Notice{Store: store.Name, Result: &res}
				return nil
			})
		}
		g.Wait()
		close(notices)
	}()

	out := BatchResult{Sales: Aggregate{}}
	for n := range notices {
		if n.Result != nil {
			out.Results = append(out.Results, *n.Result)
			if n.Result.Success {
				out.Sales.Add(n.Result.Sales)
			}
		}
		if notify != nil {
			notify(n)
		}
	}
	return out
}
