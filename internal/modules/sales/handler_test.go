package sales

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/georgemunganga/stockbridge/internal/modules/catalog"
	"github.com/georgemunganga/stockbridge/internal/modules/settings"
	"github.com/georgemunganga/stockbridge/internal/shopify"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/v1/sync/sales?product_ids=3,%201,&from=2026-09-01&to=2026-09-30", nil)
	req, err := parseRequest(r)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 1}, req.ProductIDs)
	assert.Equal(t, time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC), *req.From)
	assert.Equal(t, time.Date(2026, 9, 30, 23, 59, 59, 0, time.UTC), *req.To)

	for _, bad := range []string{"product_ids=x", "from=09/01/2026", "from=2026-09-30&to=2026-09-01"} {
		_, err := parseRequest(httptest.NewRequest(http.MethodGet, "/x?"+bad, nil))
		assert.Error(t, err, bad)
	}
}

func TestHandlerStreamsEvents(t *testing.T) {
	fetchers := fixedFetchers(map[string]Fetcher{settings.MainStoreName: &pagedFetcher{pages: []map[string]int{{"A": 3}}}})
	products := &fakeProducts{products: []*catalog.Product{product(1, "A", 2)}}
	svc := NewService(products, fixedSettings{oneStore("ws")}, fetchers, zap.NewNop())

	router := chi.NewRouter()
	NewHandler(svc, zap.NewNop()).RegisterRoutes(router)
	srv := httptest.NewServer(router)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/sync/sales")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	var types []string
	var last map[string]interface{}
	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		last = map[string]interface{}{}
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &last))
		types = append(types, last["type"].(string))
	}
	assert.Equal(t, "start", types[0])
	assert.Equal(t, "complete", types[len(types)-1])
	data := last["data"].(map[string]interface{})
	assert.EqualValues(t, 1, data["synced"])
	assert.Equal(t, map[string]interface{}{"A": float64(3)}, data["sales_by_sku"])
	assert.Equal(t, []catalog.SalesUpdate{{ProductID: 1, Quantity: 4}}, products.saved[0])
}

func TestHandlerRunSurvivesDisconnect(t *testing.T) {
	release := make(chan struct{})
	saved := make(chan struct{})
	fetchers := func(store settings.StoreConfig) Fetcher {
		return fetchFunc(func(q shopify.SalesQuery) map[string]int {
			<-release
			return map[string]int{"A": 1}
		})
	}
	products := &notifyingProducts{fakeProducts: fakeProducts{products: []*catalog.Product{product(1, "A", 0)}}, done: saved}
	svc := NewService(products, fixedSettings{oneStore("ws")}, fetchers, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	r := httptest.NewRequest(http.MethodGet, "/api/v1/sync/sales", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	finished := make(chan struct{})
	go func() {
		NewHandler(svc, zap.NewNop()).syncSales(rec, r)
		close(finished)
	}()

	cancel()
	close(release)

	select {
	case <-saved:
	case <-time.After(5 * time.Second):
		t.Fatal("sync did not persist after client disconnect")
	}
	<-finished
}

type notifyingProducts struct {
	fakeProducts
	done chan struct{}
}

func (n *notifyingProducts) BulkUpdateSales(ctx context.Context, updates []catalog.SalesUpdate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := n.fakeProducts.BulkUpdateSales(ctx, updates)
	close(n.done)
	return err
}
