package settings

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Service defines settings business logic.
type Service interface {
	Get(ctx context.Context) (*Settings, error)
	Update(ctx context.Context, req UpdateSettingsRequest) (*Settings, error)
}

// UpdateSettingsRequest replaces the whole settings row.
type UpdateSettingsRequest struct {
	ShopifyStoreURL    string             `json:"shopify_store_url"`
	ShopifyAccessToken string             `json:"shopify_access_token"`
	ShopifyLocationID  string             `json:"shopify_location_id"`
	AdditionalStores   []StoreCredentials `json:"additional_stores"`
	MSSQLServer        string             `json:"mssql_server"`
	MSSQLDatabase      string             `json:"mssql_database"`
	MSSQLUsername      string             `json:"mssql_username"`
	MSSQLPassword      string             `json:"mssql_password"`
	MSSQLPort          int                `json:"mssql_port"`
	ExcludedSKUs       string             `json:"excluded_skus"`
	SalesOrderTag      string             `json:"sales_order_tag"`
	SalesSyncDays      int                `json:"sales_sync_days"`
}

type service struct {
	repo Repository
	log  *zap.Logger
}

func NewService(repo Repository, log *zap.Logger) Service {
	return &service{repo: repo, log: log}
}

func (s *service) Get(ctx context.Context) (*Settings, error) {
	return s.repo.Get(ctx)
}

func (s *service) Update(ctx context.Context, req UpdateSettingsRequest) (*Settings, error) {
	if len(req.AdditionalStores) > MaxAdditionalStores {
		return nil, ErrTooManyStores
	}
	port := req.MSSQLPort
	if port == 0 {
		port = 1433
	}
	days := req.SalesSyncDays
	if days < 1 {
		days = DefaultSyncDays
	}
	st := &Settings{
		ShopifyStoreURL:    req.ShopifyStoreURL,
		ShopifyAccessToken: req.ShopifyAccessToken,
		ShopifyLocationID:  req.ShopifyLocationID,
		AdditionalStores:   AdditionalStores(req.AdditionalStores),
		MSSQLServer:        req.MSSQLServer,
		MSSQLDatabase:      req.MSSQLDatabase,
		MSSQLUsername:      req.MSSQLUsername,
		MSSQLPassword:      req.MSSQLPassword,
		MSSQLPort:          port,
		ExcludedSKUs:       req.ExcludedSKUs,
		SalesOrderTag:      req.SalesOrderTag,
		SalesSyncDays:      days,
	}
	if err := s.repo.Save(ctx, st); err != nil {
		return nil, fmt.Errorf("save settings: %w", err)
	}
	stores, _ := ResolveStores(st)
	s.log.Info("settings updated", zap.Int("stores", len(stores)), zap.String("sales_order_tag", st.SalesOrderTag))
	return s.repo.Get(ctx)
}
