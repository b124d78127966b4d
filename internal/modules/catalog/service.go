package catalog

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
)

var (
	ErrNotFound         = errors.New("product not found")
	ErrInvalidColumn    = errors.New("column cannot be cleared")
	ErrDuplicateBarcode = errors.New("a product with this UPC barcode already exists")
	ErrNameRequired     = errors.New("product_name is required")
)

// Service defines catalog business logic.
type Service interface {
	CreateProduct(ctx context.Context, req ProductRequest) (*Product, error)
	GetProduct(ctx context.Context, id int64) (*Product, error)
	ListProducts(ctx context.Context) ([]*Product, error)
	UpdateProduct(ctx context.Context, id int64, req ProductRequest) (*Product, error)
	DeleteProduct(ctx context.Context, id int64) error
	DeleteAllProducts(ctx context.Context) (int64, error)
	ClearColumn(ctx context.Context, column string) (int64, error)
}

// ProductRequest holds the editable fields of a product.
type ProductRequest struct {
	ProductName           string   `json:"product_name"`
	UPCBarcode            *string  `json:"upc_barcode"`
	ThresholdQuantity     *int     `json:"threshold_quantity"`
	QuantityPerCase       *int     `json:"quantity_per_case"`
	Price                 *float64 `json:"price"`
	AvailableQuantity     *int     `json:"available_quantity"`
	QuantitySoldLastMonth *int     `json:"quantity_sold_last_month"`
}

func (req ProductRequest) apply(p *Product) error {
	name := strings.TrimSpace(req.ProductName)
	if name == "" {
		return ErrNameRequired
	}
	p.ProductName = name
	p.UPCBarcode = nil
	if req.UPCBarcode != nil {
		if upc := strings.TrimSpace(*req.UPCBarcode); upc != "" {
			p.UPCBarcode = &upc
		}
	}
	p.ThresholdQuantity = req.ThresholdQuantity
	p.QuantityPerCase = req.QuantityPerCase
	p.Price = req.Price
	p.AvailableQuantity = req.AvailableQuantity
	p.QuantitySoldLastMonth = req.QuantitySoldLastMonth
	return nil
}

type service struct {
	repo Repository
	log  *zap.Logger
}

func NewService(repo Repository, log *zap.Logger) Service {
	return &service{repo: repo, log: log}
}

func (s *service) CreateProduct(ctx context.Context, req ProductRequest) (*Product, error) {
	p := &Product{}
	if err := req.apply(p); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *service) GetProduct(ctx context.Context, id int64) (*Product, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) ListProducts(ctx context.Context) ([]*Product, error) {
	return s.repo.List(ctx)
}

func (s *service) UpdateProduct(ctx context.Context, id int64, req ProductRequest) (*Product, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := req.apply(p); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

func (s *service) DeleteProduct(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

func (s *service) DeleteAllProducts(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteAll(ctx)
	if err != nil {
		return 0, err
	}
	s.log.Warn("all products deleted", zap.Int64("count", n))
	return n, nil
}

func (s *service) ClearColumn(ctx context.Context, column string) (int64, error) {
	if !ClearableColumns[column] {
		return 0, ErrInvalidColumn
	}
	n, err := s.repo.ClearColumn(ctx, column)
	if err != nil {
		return 0, err
	}
	s.log.Info("column cleared", zap.String("column", column), zap.Int64("rows", n))
	return n, nil
}
