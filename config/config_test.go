package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadEnvDefaults(t *testing.T) {
	cfg := LoadEnv()

	assert.Equal(t, "2025-01", cfg.Shopify.APIVersion)
	assert.Equal(t, 60*time.Second, cfg.Shopify.Timeout())
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("SHOPIFY_HTTP_TIMEOUT", "15")
	t.Setenv("LOGGER_DISABLE_CALLER", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("POSTGRES_MAX_OPEN_CONNS", "not-a-number")

	cfg := LoadEnv()

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Shopify.Timeout())
	assert.True(t, cfg.Logger.DisableCaller)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 10, cfg.Postgres.MaxOpenConns)
}

func TestPostgresDSN(t *testing.T) {
	c := PostgresConfig{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "d", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=d sslmode=disable", c.DSN())

	c.URL = "postgres://u:p@db/d"
	assert.Equal(t, "postgres://u:p@db/d", c.DSN())
}
