// Package catalog owns products and their on-hand stock.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/Pesokrava/invoicing/internal/domain"
	"github.com/Pesokrava/invoicing/internal/pkg/logger"
	pkgvalidator "github.com/Pesokrava/invoicing/internal/pkg/validator"
)

// Cache is the subset of the Redis cache the catalog reads through and invalidates
type Cache interface {
	GetProduct(ctx context.Context, productID string) (*domain.Product, error)
	SetProduct(ctx context.Context, product *domain.Product) error
	InvalidateProduct(ctx context.Context, productID string) error
	InvalidateReports(ctx context.Context) error
}

// Details carries the optional fields of a product details update
type Details struct {
	Name         *string
	Category     *string
	ReorderLevel *int
}

// Service handles product business logic
type Service struct {
	repo     domain.ProductRepository
	cache    Cache
	validate *validator.Validate
	logger   *logger.Logger
}

// NewService creates a new catalog service
func NewService(repo domain.ProductRepository, cache Cache, log *logger.Logger) *Service {
	return &Service{
		repo:     repo,
		cache:    cache,
		validate: pkgvalidator.Get(),
		logger:   log.Component("catalog"),
	}
}

// RegisterProduct validates and stores a new product
func (s *Service) RegisterProduct(ctx context.Context, product *domain.Product) error {
	if err := s.check(product); err != nil {
		s.logger.Error("Product validation failed", err)
		return err
	}

	if err := s.repo.Create(ctx, product); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			s.logger.Warnf("Product %s already exists", product.ID)
			return fmt.Errorf("%w: product %s", domain.ErrAlreadyExists, product.ID)
		}
		s.logger.Error("Failed to create product", err)
		return err
	}

	s.invalidate(ctx, product.ID)

	s.logger.WithFields(map[string]interface{}{
		"product_id": product.ID,
		"name":       product.Name,
		"quantity":   product.QuantityOnHand,
	}).Info("Product registered successfully")

	return nil
}

// GetByID retrieves a product, reading through the cache
func (s *Service) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	if product, err := s.cache.GetProduct(ctx, id); err == nil {
		return product, nil
	}

	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Debugf("Product not found: %s", id)
			return nil, fmt.Errorf("%w: product %s", domain.ErrNotFound, id)
		}
		s.logger.Error("Failed to get product", err)
		return nil, err
	}

	if err := s.cache.SetProduct(ctx, product); err != nil {
		s.logger.Warnf("Failed to cache product %s: %v", id, err)
	}

	return product, nil
}

// List retrieves a paginated list of products
func (s *Service) List(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, int, error) {
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	products, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to list products", err)
		return nil, 0, err
	}

	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to count products", err)
		return nil, 0, err
	}

	return products, total, nil
}

// AdjustStock is the only way on-hand quantities change. A negative delta that
// would take stock below zero fails with an InsufficientStockError and changes nothing,
// a result above domain.MaxQuantity is a validation error.
func (s *Service) AdjustStock(ctx context.Context, id string, delta int) (*domain.Product, error) {
	if err := domain.ValidateStockDelta(delta); err != nil {
		return nil, err
	}

	product, err := s.repo.AdjustStock(ctx, id, delta)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			return nil, fmt.Errorf("%w: product %s", domain.ErrNotFound, id)
		case errors.Is(err, domain.ErrInsufficientStock):
			s.logger.Debugf("Stock adjustment of %d rejected for %s: %v", delta, id, err)
		default:
			s.logger.Error("Failed to adjust stock", err)
		}
		return nil, err
	}

	s.invalidate(ctx, id)

	s.logger.WithFields(map[string]interface{}{
		"product_id": id,
		"delta":      delta,
		"quantity":   product.QuantityOnHand,
	}).Debug("Stock adjusted")

	return product, nil
}

// IsBelowReorderLevel reports whether the product's stock is under its reorder level
func (s *Service) IsBelowReorderLevel(ctx context.Context, id string) (bool, error) {
	product, err := s.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	return product.IsBelowReorderLevel(), nil
}

// LowStock lists every active product below its reorder level
func (s *Service) LowStock(ctx context.Context) ([]*domain.Product, error) {
	products, err := s.repo.ListBelowReorderLevel(ctx)
	if err != nil {
		s.logger.Error("Failed to list low stock products", err)
		return nil, err
	}
	return products, nil
}

// UpdatePrice sets a new unit price; drafts pick it up at finalize
func (s *Service) UpdatePrice(ctx context.Context, id string, price decimal.Decimal) (*domain.Product, error) {
	return s.modify(ctx, id, "price", func(p *domain.Product) {
		p.Price = price
	})
}

// SetDiscountRules replaces the ordered discount rules of a product
func (s *Service) SetDiscountRules(ctx context.Context, id string, rules domain.DiscountRules) (*domain.Product, error) {
	if rules == nil {
		rules = domain.DiscountRules{}
	}
	return s.modify(ctx, id, "discount_rules", func(p *domain.Product) {
		p.DiscountRules = rules
	})
}

// UpdateDetails changes name, category and reorder level where set
func (s *Service) UpdateDetails(ctx context.Context, id string, details Details) (*domain.Product, error) {
	return s.modify(ctx, id, "details", func(p *domain.Product) {
		if details.Name != nil {
			p.Name = *details.Name
		}
		if details.Category != nil {
			p.Category = *details.Category
		}
		if details.ReorderLevel != nil {
			p.ReorderLevel = *details.ReorderLevel
		}
	})
}

// Retire soft-retires a product. Retired products stay readable for invoices and reports.
func (s *Service) Retire(ctx context.Context, id string) error {
	if err := s.repo.Retire(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%w: product %s", domain.ErrNotFound, id)
		}
		s.logger.Error("Failed to retire product", err)
		return err
	}

	s.invalidate(ctx, id)

	s.logger.WithFields(map[string]interface{}{
		"product_id": id,
	}).Info("Product retired successfully")

	return nil
}

func (s *Service) modify(ctx context.Context, id, field string, apply func(*domain.Product)) (*domain.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: product %s", domain.ErrNotFound, id)
		}
		s.logger.Error("Failed to get product", err)
		return nil, err
	}
	if product.IsRetired() {
		return nil, domain.NewValidationError("product %s is retired", id)
	}

	apply(product)

	if err := s.check(product); err != nil {
		s.logger.Error("Product validation failed", err)
		return nil, err
	}

	if err := s.repo.Update(ctx, product); err != nil {
		s.logger.Error("Failed to update product", err)
		return nil, err
	}

	s.invalidate(ctx, id)

	s.logger.WithFields(map[string]interface{}{
		"product_id": id,
		"field":      field,
		"version":    product.Version,
	}).Info("Product updated successfully")

	return product, nil
}

func (s *Service) check(product *domain.Product) error {
	if err := s.validate.Struct(product); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrValidation, err.Error())
	}
	return product.Validate()
}

// invalidate drops the cached product and every cached report, since
// inventory and performance reports read stock and prices
func (s *Service) invalidate(ctx context.Context, id string) {
	if err := s.cache.InvalidateProduct(ctx, id); err != nil {
		s.logger.Warnf("Failed to invalidate cache for product %s: %v", id, err)
	}
	if err := s.cache.InvalidateReports(ctx); err != nil {
		s.logger.Warnf("Failed to invalidate report cache: %v", err)
	}
}
