package domain

import (
	"context"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultReorderLevel is applied when a product is registered without one
const DefaultReorderLevel = 10

const (
	// MaxQuantity bounds stock levels, reorder levels, stock deltas and line quantities
	MaxQuantity = math.MaxInt32

	// AmountScale is the number of decimal places kept for prices and tax rates
	AmountScale = 4
)

// maxPrice is the first price that no longer fits 10 integer digits
var maxPrice = decimal.New(1, 10)

// checkScale rejects amounts carrying more than AmountScale significant decimal places
func checkScale(field string, amount decimal.Decimal) error {
	if !amount.Equal(amount.Truncate(AmountScale)) {
		return NewValidationError("%s %s has more than %d decimal places", field, amount, AmountScale)
	}
	return nil
}

// ValidateStockDelta rejects adjustments outside [-MaxQuantity, MaxQuantity]
func ValidateStockDelta(delta int) error {
	if delta < -MaxQuantity || delta > MaxQuantity {
		return NewValidationError("stock delta %d is out of range", delta)
	}
	return nil
}

// ValidateQuantity accepts line quantities in [1, MaxQuantity]
func ValidateQuantity(quantity int) error {
	if quantity <= 0 {
		return NewValidationError("quantity %d must be positive", quantity)
	}
	if quantity > MaxQuantity {
		return NewValidationError("quantity %d exceeds %d", quantity, MaxQuantity)
	}
	return nil
}

// Product represents a catalog entry and its on-hand stock
type Product struct {
	ID             string          `json:"id" db:"id" validate:"required,sku,max=64"`
	Name           string          `json:"name" db:"name" validate:"required,min=1,max=255"`
	Category       string          `json:"category" db:"category" validate:"max=100"`
	Price          decimal.Decimal `json:"price" db:"price"`
	QuantityOnHand int             `json:"quantity_on_hand" db:"quantity_on_hand" validate:"gte=0"`
	ReorderLevel   int             `json:"reorder_level" db:"reorder_level" validate:"gte=0"`
	DiscountRules  DiscountRules   `json:"discount_rules" db:"discount_rules" validate:"dive"`
	Version        int             `json:"version" db:"version"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`
	RetiredAt      *time.Time      `json:"retired_at,omitempty" db:"retired_at"`
}

// IsRetired reports whether the product was soft-retired
func (p *Product) IsRetired() bool {
	return p.RetiredAt != nil
}

// IsBelowReorderLevel reports whether on-hand stock dropped under the reorder level
func (p *Product) IsBelowReorderLevel() bool {
	return p.QuantityOnHand < p.ReorderLevel
}

// StockValue is price times on-hand quantity
func (p *Product) StockValue() decimal.Decimal {
	return p.Price.Mul(decimal.NewFromInt(int64(p.QuantityOnHand)))
}

// Clone returns a deep copy of the product
func (p *Product) Clone() *Product {
	cp := *p
	if p.DiscountRules != nil {
		cp.DiscountRules = make(DiscountRules, len(p.DiscountRules))
		copy(cp.DiscountRules, p.DiscountRules)
	}
	if p.RetiredAt != nil {
		t := *p.RetiredAt
		cp.RetiredAt = &t
	}
	return &cp
}

// Validate checks the invariants struct tags cannot express
func (p *Product) Validate() error {
	if p.Price.IsNegative() {
		return NewValidationError("price %s must not be negative", p.Price)
	}
	if p.Price.GreaterThanOrEqual(maxPrice) {
		return NewValidationError("price %s must be below %s", p.Price, maxPrice)
	}
	if err := checkScale("price", p.Price); err != nil {
		return err
	}
	if p.ReorderLevel < 0 || p.ReorderLevel > MaxQuantity {
		return NewValidationError("reorder level %d must be between 0 and %d", p.ReorderLevel, MaxQuantity)
	}
	if p.QuantityOnHand < 0 || p.QuantityOnHand > MaxQuantity {
		return NewValidationError("quantity on hand %d must be between 0 and %d", p.QuantityOnHand, MaxQuantity)
	}
	return p.DiscountRules.Validate()
}

// ProductFilter narrows product listings
type ProductFilter struct {
	Category       string
	IncludeRetired bool
	Limit          int
	Offset         int
}

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	// Create creates a new product, ErrAlreadyExists if the ID is taken
	Create(ctx context.Context, product *Product) error

	// GetByID retrieves a product by ID (includes retired products)
	GetByID(ctx context.Context, id string) (*Product, error)

	// List retrieves a paginated list of products ordered by ID
	List(ctx context.Context, filter ProductFilter) ([]*Product, error)

	// Count returns the number of products matching the filter (pagination ignored)
	Count(ctx context.Context, filter ProductFilter) (int, error)

	// ListBelowReorderLevel returns active products whose stock is under their reorder level
	ListBelowReorderLevel(ctx context.Context) ([]*Product, error)

	// Update updates name, category, price, reorder level and rules with optimistic locking
	Update(ctx context.Context, product *Product) error

	// AdjustStock atomically adds delta to the on-hand quantity.
	// It returns ErrNotFound for unknown products and an InsufficientStockError
	// when the result would be negative, leaving the quantity untouched.
	AdjustStock(ctx context.Context, id string, delta int) (*Product, error)

	// Retire soft-retires a product
	Retire(ctx context.Context, id string) error
}
