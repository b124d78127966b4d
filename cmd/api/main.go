package main

import (
	"context"
	"net/http"
	"time"

	"github.com/georgemunganga/stockbridge/config"
	"github.com/georgemunganga/stockbridge/internal/modules/catalog"
	"github.com/georgemunganga/stockbridge/internal/modules/inventory"
	"github.com/georgemunganga/stockbridge/internal/modules/pricing"
	"github.com/georgemunganga/stockbridge/internal/modules/sales"
	"github.com/georgemunganga/stockbridge/internal/modules/settings"
	"github.com/georgemunganga/stockbridge/internal/platform/logger"
	"github.com/georgemunganga/stockbridge/internal/platform/postgres"
	"github.com/georgemunganga/stockbridge/internal/shopify"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	envErr := godotenv.Load()

	cfg := config.LoadEnv()
	log := logger.NewZapLogger(&logger.ZapLoggerConfig{
		IsDevelopment:     cfg.Server.AppEnv == "development",
		Encoding:          cfg.Logger.Encoding,
		Level:             cfg.Logger.Level,
		DisableCaller:     cfg.Logger.DisableCaller,
		DisableStacktrace: cfg.Logger.DisableStacktrace,
	})
	defer log.Sync()
	if envErr != nil {
		log.Warn("no .env file loaded, using process environment", zap.Error(envErr))
	}

	db, err := postgres.NewPostgres(context.Background(), &postgres.Config{
		DSN:             cfg.Postgres.DSN(),
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Postgres.ConnMaxLifetime) * time.Second,
		ConnMaxIdleTime: time.Duration(cfg.Postgres.ConnMaxIdleTime) * time.Second,
	})
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()
	log.Info("connected to postgres")

	// ── Router ──────────────────────────────────────────────
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.RequestID)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	// ── Phase 1: Settings & Catalog ─────────────────────────
	settingsRepo := settings.NewPostgresRepository(db)
	settingsService := settings.NewService(settingsRepo, log)
	settings.NewHandler(settingsService).RegisterRoutes(router)

	catalogRepo := catalog.NewPostgresRepository(db)
	catalogService := catalog.NewService(catalogRepo, log)
	catalog.NewHandler(catalogService).RegisterRoutes(router)

	// ── Phase 2: Shopify Sales & Inventory ──────────────────
	newShopify := shopify.NewFactory(
		shopify.WithVersion(cfg.Shopify.APIVersion),
		shopify.WithTimeout(cfg.Shopify.Timeout()),
	)

	salesService := sales.NewService(catalogRepo, settingsRepo, sales.ShopifyFetchers(newShopify), log.Named("sales"))
	sales.NewHandler(salesService, log).RegisterRoutes(router)

	inventoryService := inventory.NewService(catalogRepo, settingsRepo, inventory.ShopifyClients(newShopify), log.Named("inventory"))
	inventory.NewHandler(inventoryService, log).RegisterRoutes(router)

	// ── Phase 3: ERP Pricing & Customers ────────────────────
	pricingService := pricing.NewService(catalogRepo, settingsRepo, pricing.OpenERP, log.Named("pricing"))
	pricing.NewHandler(pricingService, log).RegisterRoutes(router)

	// ── Start Server ─────────────────────────────────────────
	addr := ":" + cfg.Server.Port
	log.Info("stockbridge api starting", zap.String("addr", addr), zap.String("env", cfg.Server.AppEnv))
	if err := http.ListenAndServe(addr, router); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}
