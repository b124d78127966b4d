package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/georgemunganga/stockbridge/internal/modules/catalog"
	"github.com/georgemunganga/stockbridge/internal/modules/settings"
	"github.com/georgemunganga/stockbridge/internal/platform/sse"
	"github.com/georgemunganga/stockbridge/internal/shopify"
	"go.uber.org/zap"
)

// TypeProductFound marks a Shopify item missing from the local catalog.
const TypeProductFound = "product_found"

var (
	ErrStoreNotConfigured    = errors.New("Shopify not configured")
	ErrLocationNotConfigured = errors.New("Shopify location not configured")
)

type ProductStore interface {
	List(ctx context.Context) ([]*catalog.Product, error)
	BulkUpdateInventory(ctx context.Context, updates []catalog.InventoryUpdate) error
}

type SettingsSource interface {
	Get(ctx context.Context) (*settings.Settings, error)
}

// StoreClient is the slice of the Shopify client this module needs.
type StoreClient interface {
	InventoryBySKUs(ctx context.Context, skus []string, locationID string) (map[string]int, error)
	LocationInventory(ctx context.Context, locationID string, fn shopify.PageFunc) error
	Shop(ctx context.Context) (*shopify.Shop, error)
	Locations(ctx context.Context) ([]shopify.Location, error)
}

type ClientFactory func(store settings.StoreConfig) StoreClient

// ShopifyClients adapts a shopify client factory to stores.
func ShopifyClients(newClient shopify.Factory) ClientFactory {
	return func(store settings.StoreConfig) StoreClient {
		return newClient(store.BaseURL, store.AccessToken)
	}
}

// Service defines inventory sync logic against the main store.
type Service interface {
	Sync(ctx context.Context) <-chan sse.Event
	FindMissing(ctx context.Context) <-chan sse.Event
	TestStores(ctx context.Context) ([]StoreStatus, error)
	Locations(ctx context.Context) ([]shopify.Location, error)
}

// StoreStatus is the connection test result for one configured store.
type StoreStatus struct {
	Store    string `json:"store"`
	OK       bool   `json:"ok"`
	ShopName string `json:"shop_name,omitempty"`
	Currency string `json:"currency,omitempty"`
	Error    string `json:"error,omitempty"`
}

// MissingReport is carried by the complete event of FindMissing.
type MissingReport struct {
	MissingProducts     []shopify.InventoryLevel `json:"missing_products"`
	Count               int                      `json:"count"`
	TotalItemsProcessed int                      `json:"total_items_processed"`
}

type service struct {
	products  ProductStore
	settings  SettingsSource
	newClient ClientFactory
	log       *zap.Logger
}

func NewService(products ProductStore, settings SettingsSource, newClient ClientFactory, log *zap.Logger) Service {
	return &service{products: products, settings: settings, newClient: newClient, log: log}
}

// mainStore loads settings and returns them with the main store and its
// client.
func (s *service) mainStore(ctx context.Context) (*settings.Settings, settings.StoreConfig, StoreClient, error) {
	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return nil, settings.StoreConfig{}, nil, fmt.Errorf("failed to load settings: %w", err)
	}
	store, ok := cfg.MainStore()
	if !ok {
		return cfg, store, nil, ErrStoreNotConfigured
	}
	if store.LocationID == "" {
		return cfg, store, nil, ErrLocationNotConfigured
	}
	return cfg, store, s.newClient(store), nil
}

func (s *service) Sync(ctx context.Context) <-chan sse.Event {
	em := sse.NewEmitter(64)
	go func() {
		defer em.Close()
		s.sync(ctx, em)
	}()
	return em.Events()
}

func (s *service) sync(ctx context.Context, em *sse.Emitter) {
	_, store, client, err := s.mainStore(ctx)
	if err != nil {
		em.Emit(sse.Error(err.Error()))
		return
	}
	products, err := s.products.List(ctx)
	if err != nil {
		em.Emit(sse.Error("failed to load products: " + err.Error()))
		return
	}

	total := len(products)
	sum := catalog.NewSyncSummary(total)
	em.Emit(sse.Event{Type: sse.TypeStart, Total: total})

	current := 0
	for _, b := range catalog.Partition(products, catalog.BatchSize) {
		skus := b.SKUs()
		var inv map[string]int
		var fetchErr error
		if len(skus) > 0 {
			inv, fetchErr = client.InventoryBySKUs(ctx, skus, store.LocationID)
		}
		if fetchErr != nil {
			s.log.Warn("inventory batch failed", zap.Int("batch", b.Index), zap.Error(fetchErr))
		}

		var updates []catalog.InventoryUpdate
		for _, p := range b.Products {
			current++
			ev := sse.Event{Type: sse.TypeProgress, Current: current, Total: total, ProductName: p.ProductName}
			sku := p.SKU()
			switch qty, found := inv[sku]; {
			case sku == "":
				ev.Status, ev.Message = "skipped", "No UPC barcode"
			case fetchErr != nil:
				sum.Errors++
				ev.Status, ev.Message = "error", fetchErr.Error()
			case found:
				sum.Synced++
				updates = append(updates, catalog.InventoryUpdate{ProductID: p.ID, Available: &qty})
				ev.Status, ev.Quantity = "synced", &qty
			default:
				sum.MarkNotFound(p)
				updates = append(updates, catalog.InventoryUpdate{ProductID: p.ID})
				ev.Status = "not_found"
			}
			em.Emit(ev)
		}

		if err := s.products.BulkUpdateInventory(ctx, updates); err != nil {
			s.log.Error("save inventory", zap.Int("batch", b.Index), zap.Error(err))
			em.Emit(sse.Error("failed to save inventory: " + err.Error()))
			return
		}
	}

	s.log.Info("inventory sync finished", zap.Int("synced", sum.Synced), zap.Int("not_found", sum.NotFound), zap.Int("errors", sum.Errors))
	em.Emit(sse.Event{Type: sse.TypeComplete, Current: current, Total: total, Data: sum})
}

func (s *service) FindMissing(ctx context.Context) <-chan sse.Event {
	em := sse.NewEmitter(64)
	go func() {
		defer em.Close()
		s.findMissing(ctx, em)
	}()
	return em.Events()
}

func (s *service) findMissing(ctx context.Context, em *sse.Emitter) {
	cfg, store, client, err := s.mainStore(ctx)
	if err != nil {
		em.Emit(sse.Error(err.Error()))
		return
	}
	products, err := s.products.List(ctx)
	if err != nil {
		em.Emit(sse.Error("failed to load products: " + err.Error()))
		return
	}
	local := map[string]bool{}
	for _, p := range products {
		if sku := p.SKU(); sku != "" {
			local[sku] = true
		}
	}
	excluded := cfg.ExcludedPrefixes()

	em.Emit(sse.Event{Type: sse.TypeStart, Message: "Fetching inventory from Shopify..."})
	report := MissingReport{MissingProducts: []shopify.InventoryLevel{}}
	err = client.LocationInventory(ctx, store.LocationID, func(page int, levels []shopify.InventoryLevel) error {
		for _, lvl := range levels {
			report.TotalItemsProcessed++
			if lvl.SKU == "" || lvl.Available <= 0 || local[lvl.SKU] || hasPrefix(lvl.SKU, excluded) {
				continue
			}
			report.MissingProducts = append(report.MissingProducts, lvl)
			em.Emit(sse.Event{Type: TypeProductFound, ProductName: lvl.ProductTitle, Data: lvl})
		}
		em.Emit(sse.Event{
			Type:    sse.TypeProgress,
			Message: fmt.Sprintf("Page %d (%d items, %d missing)", page, report.TotalItemsProcessed, len(report.MissingProducts)),
			Current: report.TotalItemsProcessed,
		})
		return nil
	})
	if err != nil {
		s.log.Warn("missing products scan failed", zap.Error(err))
		em.Emit(sse.Error(err.Error()))
		return
	}
	report.Count = len(report.MissingProducts)
	em.Emit(sse.Event{Type: sse.TypeComplete, Current: report.TotalItemsProcessed, Total: report.TotalItemsProcessed, Data: report})
}

func hasPrefix(sku string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(sku, p) {
			return true
		}
	}
	return false
}

func (s *service) TestStores(ctx context.Context) ([]StoreStatus, error) {
	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	stores, err := settings.ResolveStores(cfg)
	if err != nil {
		return nil, err
	}
	out := make([]StoreStatus, 0, len(stores))
	for _, store := range stores {
		st := StoreStatus{Store: store.Name}
		shop, err := s.newClient(store).Shop(ctx)
		if err != nil {
			st.Error = err.Error()
		} else {
			st.OK, st.ShopName, st.Currency = true, shop.Name, shop.CurrencyCode
		}
		out = append(out, st)
	}
	return out, nil
}

func (s *service) Locations(ctx context.Context) ([]shopify.Location, error) {
	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	store, ok := cfg.MainStore()
	if !ok {
		return nil, ErrStoreNotConfigured
	}
	return s.newClient(store).Locations(ctx)
}
