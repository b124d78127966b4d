// Command salesync runs one sales sync against the configured stores and
// logs the progress stream. Useful from cron when nobody is watching the UI.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/georgemunganga/stockbridge/config"
	"github.com/georgemunganga/stockbridge/internal/modules/catalog"
	"github.com/georgemunganga/stockbridge/internal/modules/sales"
	"github.com/georgemunganga/stockbridge/internal/modules/settings"
	"github.com/georgemunganga/stockbridge/internal/platform/logger"
	"github.com/georgemunganga/stockbridge/internal/platform/postgres"
	"github.com/georgemunganga/stockbridge/internal/platform/sse"
	"github.com/georgemunganga/stockbridge/internal/shopify"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	productIDs := flag.String("products", "", "comma separated product ids (default: all)")
	from := flag.String("from", "", "start date, YYYY-MM-DD")
	to := flag.String("to", "", "end date, YYYY-MM-DD (inclusive)")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.LoadEnv()
	log := logger.NewZapLogger(&logger.ZapLoggerConfig{
		Encoding:          cfg.Logger.Encoding,
		Level:             cfg.Logger.Level,
		DisableCaller:     true,
		DisableStacktrace: true,
	})
	defer log.Sync()

	req, err := sales.ParseRequest(*productIDs, *from, *to)
	if err != nil {
		log.Fatal("invalid arguments", zap.Error(err))
	}

	ctx := context.Background()
	db, err := postgres.NewPostgres(ctx, &postgres.Config{
		DSN:             cfg.Postgres.DSN(),
		MaxOpenConns:    2,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Duration(cfg.Postgres.ConnMaxLifetime) * time.Second,
	})
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()

	newShopify := shopify.NewFactory(
		shopify.WithVersion(cfg.Shopify.APIVersion),
		shopify.WithTimeout(cfg.Shopify.Timeout()),
	)
	svc := sales.NewService(
		catalog.NewPostgresRepository(db),
		settings.NewPostgresRepository(db),
		sales.ShopifyFetchers(newShopify),
		log,
	)

	failed := false
	for ev := range svc.Sync(ctx, req) {
		fields := []zap.Field{zap.Int("current", ev.Current), zap.Int("total", ev.Total)}
		switch ev.Type {
		case sse.TypeProgress:
			fields = append(fields, zap.String("product", ev.ProductName), zap.String("status", ev.Status))
			if ev.Quantity != nil {
				fields = append(fields, zap.Int("quantity", *ev.Quantity))
			}
			log.Info("product", fields...)
		case sse.TypeComplete:
			log.Info("sales sync complete", append(fields, zap.Any("result", ev.Data))...)
		case sse.TypeError:
			failed = true
			log.Error(ev.Message, fields...)
		default:
			log.Info(ev.Message, fields...)
		}
	}
	if failed {
		os.Exit(1)
	}
}
