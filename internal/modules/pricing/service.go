package pricing

import (
	"context"
	"fmt"

	"github.com/georgemunganga/stockbridge/internal/erp"
	"github.com/georgemunganga/stockbridge/internal/modules/catalog"
	"github.com/georgemunganga/stockbridge/internal/modules/settings"
	"github.com/georgemunganga/stockbridge/internal/platform/sse"
	"go.uber.org/zap"
)

type ProductStore interface {
	List(ctx context.Context) ([]*catalog.Product, error)
	BulkUpdatePrices(ctx context.Context, updates []catalog.PriceUpdate) error
}

type SettingsSource interface {
	Get(ctx context.Context) (*settings.Settings, error)
}

// ERP is the part of the ERP client used for pricing and customer lookup.
type ERP interface {
	PricesByUPCs(ctx context.Context, upcs []string) (map[string]float64, error)
	SearchCustomers(ctx context.Context, q string, limit int) ([]erp.Customer, error)
	CustomerByID(ctx context.Context, id int64) (*erp.Customer, error)
	ServerInfo(ctx context.Context) (*erp.ServerInfo, error)
	Close() error
}

type Opener func(ctx context.Context, cfg erp.Config) (ERP, error)

// OpenERP connects with the SQL Server driver.
func OpenERP(ctx context.Context, cfg erp.Config) (ERP, error) {
	c, err := erp.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Service defines price sync and customer lookup against the ERP.
type Service interface {
	SyncPrices(ctx context.Context) <-chan sse.Event
	TestConnection(ctx context.Context) (*erp.ServerInfo, error)
	SearchCustomers(ctx context.Context, q string, limit int) ([]erp.Customer, error)
	GetCustomer(ctx context.Context, id int64) (*erp.Customer, error)
}

type service struct {
	products ProductStore
	settings SettingsSource
	open     Opener
	log      *zap.Logger
}

func NewService(products ProductStore, settings SettingsSource, open Opener, log *zap.Logger) Service {
	return &service{products: products, settings: settings, open: open, log: log}
}

func erpConfig(s *settings.Settings) erp.Config {
	return erp.Config{
		Server:   s.MSSQLServer,
		Database: s.MSSQLDatabase,
		Username: s.MSSQLUsername,
		Password: s.MSSQLPassword,
		Port:     s.MSSQLPort,
	}
}

func (s *service) connect(ctx context.Context) (ERP, error) {
	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	return s.open(ctx, erpConfig(cfg))
}

func (s *service) SyncPrices(ctx context.Context) <-chan sse.Event {
	em := sse.NewEmitter(64)
	go func() {
		defer em.Close()
		s.syncPrices(ctx, em)
	}()
	return em.Events()
}

func (s *service) syncPrices(ctx context.Context, em *sse.Emitter) {
	db, err := s.connect(ctx)
	if err != nil {
		s.log.Warn("erp connect failed", zap.Error(err))
		em.Emit(sse.Error(err.Error()))
		return
	}
	defer db.Close()

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
		var prices map[string]float64
		var fetchErr error
		if skus := b.SKUs(); len(skus) > 0 {
			prices, fetchErr = db.PricesByUPCs(ctx, skus)
		}

		var updates []catalog.PriceUpdate
		for _, p := range b.Products {
			current++
			ev := sse.Event{Type: sse.TypeProgress, Current: current, Total: total, ProductName: p.ProductName}
			sku := p.SKU()
			switch price, found := prices[sku]; {
			case sku == "":
				ev.Status, ev.Message = "skipped", "No UPC barcode"
			case fetchErr != nil:
				sum.Errors++
				ev.Status, ev.Message = "error", fetchErr.Error()
			case found:
				sum.Synced++
				updates = append(updates, catalog.PriceUpdate{ProductID: p.ID, Price: price})
				ev.Status, ev.Price = "synced", &price
			default:
				sum.MarkNotFound(p)
				ev.Status = "not_found"
			}
			em.Emit(ev)
		}

		if err := s.products.BulkUpdatePrices(ctx, updates); err != nil {
			s.log.Error("save prices", zap.Int("batch", b.Index), zap.Error(err))
			em.Emit(sse.Error("failed to save prices: " + err.Error()))
			return
		}
	}

	s.log.Info("price sync finished", zap.Int("synced", sum.Synced), zap.Int("not_found", sum.NotFound))
	em.Emit(sse.Event{Type: sse.TypeComplete, Current: current, Total: total, Data: sum})
}

func (s *service) TestConnection(ctx context.Context) (*erp.ServerInfo, error) {
	db, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return db.ServerInfo(ctx)
}

func (s *service) SearchCustomers(ctx context.Context, q string, limit int) ([]erp.Customer, error) {
	db, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return db.SearchCustomers(ctx, q, limit)
}

func (s *service) GetCustomer(ctx context.Context, id int64) (*erp.Customer, error) {
	db, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return db.CustomerByID(ctx, id)
}
