package sales

import (
	"context"
	"fmt"
	"time"

	"github.com/georgemunganga/stockbridge/internal/modules/catalog"
	"github.com/georgemunganga/stockbridge/internal/modules/settings"
	"github.com/georgemunganga/stockbridge/internal/platform/sse"
	"github.com/georgemunganga/stockbridge/internal/shopify"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ProductStore is the part of the catalog the sales sync reads and writes.
type ProductStore interface {
	List(ctx context.Context) ([]*catalog.Product, error)
	BulkUpdateSales(ctx context.Context, updates []catalog.SalesUpdate) error
}

type SettingsSource interface {
	Get(ctx context.Context) (*settings.Settings, error)
}

// Service runs sales syncs. Sync returns immediately; the run continues in
// the background until the returned channel is closed, whether or not anyone
// is reading fast.
type Service interface {
	Sync(ctx context.Context, req Request) <-chan sse.Event
}

type service struct {
	products ProductStore
	settings SettingsSource
	coord    *Coordinator
	log      *zap.Logger
	now      func() time.Time
}

func NewService(products ProductStore, settings SettingsSource, newFetcher FetcherFactory, log *zap.Logger) Service {
	return &service{
		products: products,
		settings: settings,
		coord:    NewCoordinator(newFetcher),
		log:      log,
		now:      time.Now,
	}
}

func (s *service) Sync(ctx context.Context, req Request) <-chan sse.Event {
	em := sse.NewEmitter(64)
	runID := uuid.New()
	log := s.log.With(zap.String("run_id", runID.String()))

	go func() {
		defer em.Close()
		defer func() {
			if r := recover(); r != nil {
				log.Error("sales sync panicked", zap.Any("panic", r))
				em.Emit(sse.Error(fmt.Sprintf("internal error: %v", r)))
			}
		}()
		s.run(ctx, runID, req, em, log)
	}()
	return em.Events()
}

func (s *service) run(ctx context.Context, runID uuid.UUID, req Request, em *sse.Emitter, log *zap.Logger) {
	cfg, err := s.settings.Get(ctx)
	if err != nil {
		log.Error("load settings", zap.Error(err))
		em.Emit(sse.Error("failed to load settings: " + err.Error()))
		return
	}
	tag, err := cfg.SalesTag()
	if err != nil {
		em.Emit(sse.Error(err.Error()))
		return
	}
	stores, err := settings.ResolveStores(cfg)
	if err != nil {
		em.Emit(sse.Error(err.Error()))
		return
	}
	products, err := s.selectProducts(ctx, req.ProductIDs)
	if err != nil {
		log.Error("list products", zap.Error(err))
		em.Emit(sse.Error("failed to load products: " + err.Error()))
		return
	}

	total := len(products)
	out := SyncOutcome{
		SyncSummary:     catalog.NewSyncSummary(total),
		RunID:           runID.String(),
		StoresProcessed: len(stores),
		StoresFailed:    []StoreFailure{},
		DateRange:       s.dateRange(req, cfg.SyncDays()),
		TagUsed:         tag,
		SalesBySKU:      Aggregate{},
	}
	log.Info("sales sync started", zap.Int("products", total), zap.Int("stores", len(stores)), zap.String("tag", tag))

	em.Emit(sse.Event{Type: sse.TypeStart, Total: total})
	em.Emit(sse.Status(fmt.Sprintf("Syncing sales from %d store(s) with tag %q", len(stores), tag), 0, total))

	batches := catalog.Partition(products, catalog.BatchSize)
	current := 0
	settled := map[string]bool{}
	for _, b := range batches {
		for _, p := range b.Skipped() {
			current++
			em.Emit(sse.Event{Type: sse.TypeProgress, Current: current, Total: total,
				ProductName: p.ProductName, Status: "skipped", Message: "No UPC barcode"})
		}

		var skus []string
		for _, sku := range b.SKUs() {
			if !settled[sku] {
				skus = append(skus, sku)
			}
		}
		if len(skus) == 0 {
			continue
		}

		em.Emit(sse.Status(fmt.Sprintf("Fetching batch %d/%d (%d SKUs) from %d store(s)...",
			b.Index, len(batches), len(skus), len(stores)), current, total))

		q := shopify.SalesQuery{SKUs: skus, Tag: tag, Range: out.DateRange, PageSize: shopify.MaxPageSize}
		res := s.coord.FetchBatch(ctx, stores, q, func(n Notice) {
			em.Emit(sse.Status(noticeMessage(n, skus), current, total))
		})

		out.SalesBySKU.AddOnly(res.Sales, skus)
		for _, sku := range skus {
			settled[sku] = true
		}
		for _, f := range res.Failed() {
			log.Warn("store fetch failed", zap.String("store", f.StoreName), zap.Int("batch", b.Index), zap.String("error", f.Error))
			out.StoresFailed = append(out.StoresFailed, StoreFailure{Store: f.StoreName, Error: f.Error, Batch: b.Index})
		}
	}

	var updates []catalog.SalesUpdate
	for _, p := range products {
		sku := p.SKU()
		if sku == "" {
			continue
		}
		current++
		ev := sse.Event{Type: sse.TypeProgress, Current: current, Total: total, ProductName: p.ProductName}
		if p.CaseSize() < 0 {
			out.Errors++
			ev.Status, ev.Message = "error", fmt.Sprintf("invalid quantity_per_case %d", p.CaseSize())
			em.Emit(ev)
			continue
		}

		qty, found := OrderQuantity(out.SalesBySKU[sku], p.CaseSize())
		updates = append(updates, catalog.SalesUpdate{ProductID: p.ID, Quantity: qty})
		if found {
			out.Synced++
			ev.Status, ev.Quantity = "synced", intPtr(qty)
		} else {
			out.MarkNotFound(p)
			ev.Status, ev.FallbackQuantity = "not_found", intPtr(qty)
		}
		em.Emit(ev)
	}

	if len(updates) > 0 {
		if err := s.products.BulkUpdateSales(ctx, updates); err != nil {
			log.Error("save sales", zap.Error(err))
			em.Emit(sse.Error("failed to save sales: " + err.Error()))
			return
		}
		em.Emit(sse.Status(fmt.Sprintf("Updated %d product(s) in database", len(updates)), current, total))
	}

	log.Info("sales sync finished",
		zap.Int("synced", out.Synced), zap.Int("not_found", out.NotFound),
		zap.Int("errors", out.Errors), zap.Int("stores_failed", len(out.StoresFailed)))
	em.Emit(sse.Event{Type: sse.TypeComplete, Current: current, Total: total, Data: out})
}

func (s *service) selectProducts(ctx context.Context, ids []int64) ([]*catalog.Product, error) {
	all, err := s.products.List(ctx)
	if err != nil || len(ids) == 0 {
		return all, err
	}
	want := make(map[int64]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []*catalog.Product
	for _, p := range all {
		if want[p.ID] {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *service) dateRange(req Request, days int) shopify.DateRange {
	now := s.now()
	switch {
	case req.From != nil && req.To != nil:
		return shopify.Between(*req.From, *req.To)
	case req.From != nil:
		return shopify.DateRange{From: req.From.UTC()}
	case req.To != nil:
		r := shopify.Lookback(*req.To, days)
		r.To = req.To
		return r
	}
	return shopify.Lookback(now, days)
}

func noticeMessage(n Notice, skus []string) string {
	if n.Result == nil {
		return fmt.Sprintf("%s: Page %d (%d orders)", n.Store, n.Page, n.Orders)
	}
	if !n.Result.Success {
		return fmt.Sprintf("✗ %s: %s", n.Store, n.Result.Error)
	}
	found := 0
	for _, sku := range skus {
		if n.Result.Sales[sku] > 0 {
			found++
		}
	}
	return fmt.Sprintf("✓ %s: %d SKUs found", n.Store, found)
}

func intPtr(v int) *int { return &v }
