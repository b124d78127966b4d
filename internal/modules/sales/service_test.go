package sales

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/georgemunganga/stockbridge/internal/modules/catalog"
	"github.com/georgemunganga/stockbridge/internal/modules/settings"
	"github.com/georgemunganga/stockbridge/internal/platform/sse"
	"github.com/georgemunganga/stockbridge/internal/shopify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeProducts struct {
	mu       sync.Mutex
	products []*catalog.Product
	listErr  error
	saveErr  error
	saved    [][]catalog.SalesUpdate
}

func (f *fakeProducts) List(ctx context.Context) ([]*catalog.Product, error) {
	return f.products, f.listErr
}

func (f *fakeProducts) BulkUpdateSales(ctx context.Context, updates []catalog.SalesUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, updates)
	return nil
}

type fixedSettings struct{ s *settings.Settings }

func (f fixedSettings) Get(ctx context.Context) (*settings.Settings, error) { return f.s, nil }

func oneStore(tag string) *settings.Settings {
	return &settings.Settings{ShopifyStoreURL: "main.myshopify.com", ShopifyAccessToken: "tok", SalesOrderTag: tag}
}

func newTestService(products ProductStore, cfg *settings.Settings, newFetcher FetcherFactory) *service {
	svc := NewService(products, fixedSettings{cfg}, newFetcher, zap.NewNop()).(*service)
	svc.now = func() time.Time { return time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC) }
	return svc
}

func eventsOfType(events []sse.Event, typ string) []sse.Event {
	var out []sse.Event
	for _, ev := range events {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

func outcome(t *testing.T, events []sse.Event) SyncOutcome {
	t.Helper()
	last := events[len(events)-1]
	require.Equal(t, sse.TypeComplete, last.Type)
	o, ok := last.Data.(SyncOutcome)
	require.True(t, ok)
	return o
}

// twoPageStore serves (A,3) then (A,4),(B,2) for any orders query.
func twoPageStore(t *testing.T) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Variables map[string]interface{} `json:"variables"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		w.Header().Set("Content-Type", "application/json")
		if req.Variables["cursor"] == nil {
			fmt.Fprint(w, `{"data":{"orders":{"pageInfo":{"hasNextPage":true,"endCursor":"p2"},"edges":[
				{"node":{"id":"gid://shopify/Order/1","createdAt":"2026-10-01T00:00:00Z","lineItems":{"edges":[{"node":{"sku":"A","quantity":3}}]}}}
			]}}}`)
			return
		}
		fmt.Fprint(w, `{"data":{"orders":{"pageInfo":{"hasNextPage":false,"endCursor":null},"edges":[
			{"node":{"id":"gid://shopify/Order/2","createdAt":"2026-10-02T00:00:00Z","lineItems":{"edges":[{"node":{"sku":"A","quantity":4}},{"node":{"sku":"B","quantity":2}}]}}}
		]}}}`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSyncEndToEnd(t *testing.T) {
	srv := twoPageStore(t)
	products := &fakeProducts{products: []*catalog.Product{
		product(1, "A", 5),
		product(2, "B", 0),
	}}
	svc := newTestService(products, oneStore("wholesale"), ShopifyFetchers(shopify.NewFactory(shopify.WithEndpoint(srv.URL))))

	events := sse.Collect(svc.Sync(context.Background(), Request{}))

	require.NotEmpty(t, events)
	assert.Equal(t, sse.Event{Type: sse.TypeStart, Total: 2}, events[0])

	o := outcome(t, events)
	assert.Equal(t, Aggregate{"A": 7, "B": 2}, o.SalesBySKU)
	assert.Equal(t, 2, o.Synced)
	assert.Equal(t, 0, o.NotFound)
	assert.Equal(t, 1, o.StoresProcessed)
	assert.Empty(t, o.StoresFailed)
	assert.Equal(t, "wholesale", o.TagUsed)
	assert.Equal(t, 30, o.DateRange.Days)

	progress := eventsOfType(events, sse.TypeProgress)
	require.Len(t, progress, 2)
	assert.Equal(t, "synced", progress[0].Status)
	assert.Equal(t, 10, *progress[0].Quantity)
	assert.Equal(t, 2, *progress[1].Quantity)

	require.Len(t, products.saved, 1)
	assert.Equal(t, []catalog.SalesUpdate{{ProductID: 1, Quantity: 10}, {ProductID: 2, Quantity: 2}}, products.saved[0])

	var messages []string
	for _, ev := range eventsOfType(events, sse.TypeStatus) {
		messages = append(messages, ev.Message)
	}
	assert.Contains(t, messages, `Syncing sales from 1 store(s) with tag "wholesale"`)
	assert.Contains(t, messages, "Fetching batch 1/1 (2 SKUs) from 1 store(s)...")
	assert.Contains(t, messages, "Store 1 (Main): Page 2 (2 orders)")
	assert.Contains(t, messages, "✓ Store 1 (Main): 2 SKUs found")
	assert.Contains(t, messages, "Updated 2 product(s) in database")
}

func TestSyncPartialStoreFailure(t *testing.T) {
	cfg := oneStore("ws")
	cfg.AdditionalStores = settings.AdditionalStores{
		{URL: "two.myshopify.com", Token: "t"},
		{URL: "three.myshopify.com", Token: "t"},
	}
	fetchers := fixedFetchers(map[string]Fetcher{
		settings.MainStoreName: &pagedFetcher{pages: []map[string]int{{"A": 2}}},
		"Store 2":              &pagedFetcher{pages: []map[string]int{{"A": 50}}, err: errors.New("transport: EOF")},
		"Store 3":              &pagedFetcher{pages: []map[string]int{{"A": 1, "B": 3}}},
	})
	products := &fakeProducts{products: []*catalog.Product{product(1, "A", 0), product(2, "B", 4)}}

	events := sse.Collect(newTestService(products, cfg, fetchers).Sync(context.Background(), Request{}))

	o := outcome(t, events)
	assert.Equal(t, Aggregate{"A": 3, "B": 3}, o.SalesBySKU)
	require.Len(t, o.StoresFailed, 1)
	assert.Equal(t, StoreFailure{Store: "Store 2", Error: "transport: EOF", Batch: 1}, o.StoresFailed[0])
	assert.Equal(t, 3, o.StoresProcessed)
	assert.Equal(t, []catalog.SalesUpdate{{ProductID: 1, Quantity: 3}, {ProductID: 2, Quantity: 4}}, products.saved[0])
}

func TestSyncNotFoundStillUpdates(t *testing.T) {
	fetchers := fixedFetchers(map[string]Fetcher{settings.MainStoreName: &pagedFetcher{}})
	products := &fakeProducts{products: []*catalog.Product{
		product(1, "", 0),
		product(2, "A", 6),
		product(3, "B", 0),
	}}

	events := sse.Collect(newTestService(products, oneStore("ws"), fetchers).Sync(context.Background(), Request{}))

	progress := eventsOfType(events, sse.TypeProgress)
	require.Len(t, progress, 3)
	assert.Equal(t, "skipped", progress[0].Status)
	assert.Equal(t, "No UPC barcode", progress[0].Message)
	assert.Equal(t, "not_found", progress[1].Status)
	assert.Equal(t, 6, *progress[1].FallbackQuantity)
	assert.Equal(t, 3, progress[2].Current)

	o := outcome(t, events)
	assert.Equal(t, 2, o.NotFound)
	assert.Equal(t, []catalog.NotFoundProduct{{ProductName: "Product 2", UPCBarcode: "A"}, {ProductName: "Product 3", UPCBarcode: "B"}}, o.NotFoundProducts)
	assert.Equal(t, []catalog.SalesUpdate{{ProductID: 2, Quantity: 6}, {ProductID: 3, Quantity: 0}}, products.saved[0])
}

func TestSyncRoundsOnlyAfterAllBatches(t *testing.T) {
	var products []*catalog.Product
	for i := 1; i <= catalog.BatchSize+1; i++ {
		products = append(products, product(int64(i), fmt.Sprintf("S%d", i), 0))
	}
	// The last product repeats the first SKU, so it lands in batch 2 but was
	// already settled by batch 1.
	products[catalog.BatchSize].UPCBarcode = products[0].UPCBarcode
	per := 4
	products[0].QuantityPerCase = &per

	var calls int32
	var mu sync.Mutex
	fetchers := func(store settings.StoreConfig) Fetcher {
		return fetchFunc(func(q shopify.SalesQuery) map[string]int {
			mu.Lock()
			calls++
			mu.Unlock()
			out := map[string]int{}
			for _, sku := range q.SKUs {
				out[sku] = 5
			}
			return out
		})
	}
	fp := &fakeProducts{products: products}
	events := sse.Collect(newTestService(fp, oneStore("ws"), fetchers).Sync(context.Background(), Request{}))

	o := outcome(t, events)
	assert.Equal(t, int32(1), calls)
	assert.Equal(t, 5, o.SalesBySKU["S1"])
	require.Len(t, fp.saved, 1)
	assert.Equal(t, catalog.SalesUpdate{ProductID: 1, Quantity: 8}, fp.saved[0][0])
	assert.Equal(t, catalog.SalesUpdate{ProductID: int64(catalog.BatchSize + 1), Quantity: 5}, fp.saved[0][catalog.BatchSize])
}

type fetchFunc func(q shopify.SalesQuery) map[string]int

func (f fetchFunc) SalesBySKUs(ctx context.Context, q shopify.SalesQuery, progress shopify.ProgressFunc) (map[string]int, error) {
	return f(q), nil
}

func TestSyncConfigurationErrors(t *testing.T) {
	noFetch := func(store settings.StoreConfig) Fetcher {
		t.Fatal("no store should be queried")
		return nil
	}
	products := &fakeProducts{products: []*catalog.Product{product(1, "A", 0)}}

	events := sse.Collect(newTestService(products, oneStore(""), noFetch).Sync(context.Background(), Request{}))
	assert.Equal(t, []sse.Event{sse.Error(settings.ErrMissingTag.Error())}, events)

	events = sse.Collect(newTestService(products, &settings.Settings{SalesOrderTag: "ws"}, noFetch).Sync(context.Background(), Request{}))
	assert.Equal(t, []sse.Event{sse.Error(settings.ErrNoStores.Error())}, events)
	assert.Empty(t, products.saved)
}

func TestSyncPersistenceFailureIsTerminal(t *testing.T) {
	fetchers := fixedFetchers(map[string]Fetcher{settings.MainStoreName: &pagedFetcher{pages: []map[string]int{{"A": 1}}}})
	products := &fakeProducts{products: []*catalog.Product{product(1, "A", 0)}, saveErr: errors.New("deadlock")}

	events := sse.Collect(newTestService(products, oneStore("ws"), fetchers).Sync(context.Background(), Request{}))

	last := events[len(events)-1]
	assert.Equal(t, sse.TypeError, last.Type)
	assert.Equal(t, "failed to save sales: deadlock", last.Message)
	assert.Empty(t, eventsOfType(events, sse.TypeComplete))
}

func TestSyncFiltersByProductIDs(t *testing.T) {
	fetchers := fixedFetchers(map[string]Fetcher{settings.MainStoreName: &pagedFetcher{pages: []map[string]int{{"A": 1, "B": 1}}}})
	products := &fakeProducts{products: []*catalog.Product{product(1, "A", 0), product(2, "B", 0)}}

	events := sse.Collect(newTestService(products, oneStore("ws"), fetchers).Sync(context.Background(), Request{ProductIDs: []int64{2}}))

	o := outcome(t, events)
	assert.Equal(t, 1, o.Total)
	assert.Equal(t, []catalog.SalesUpdate{{ProductID: 2, Quantity: 1}}, products.saved[0])
}

func TestDateRange(t *testing.T) {
	svc := newTestService(&fakeProducts{}, oneStore("ws"), nil)
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 1, 31, 23, 59, 59, 0, time.UTC)

	r := svc.dateRange(Request{}, 14)
	assert.Equal(t, time.Date(2026, 10, 5, 0, 0, 0, 0, time.UTC), r.From)
	assert.Nil(t, r.To)

	r = svc.dateRange(Request{From: &from, To: &to}, 14)
	assert.Equal(t, from, r.From)
	assert.Equal(t, to, *r.To)

	r = svc.dateRange(Request{To: &to}, 10)
	assert.Equal(t, time.Date(2026, 1, 21, 23, 59, 59, 0, time.UTC), r.From)
}
