package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// DiscountKind tags the pricing strategy of a DiscountRule
type DiscountKind string

const (
	// DiscountPercentage reduces the unit price by Rate percent unconditionally
	DiscountPercentage DiscountKind = "percentage"

	// DiscountBulk reduces the unit price by Rate percent once quantity reaches Threshold
	DiscountBulk DiscountKind = "bulk"
)

var (
	hundred = decimal.NewFromInt(100)
)

// DiscountRule is a stateless pricing strategy attached to a product.
// New kinds are added as DiscountKind values and handled in Apply and Validate.
type DiscountRule struct {
	Kind      DiscountKind    `json:"kind" validate:"required,oneof=percentage bulk"`
	Rate      decimal.Decimal `json:"rate"`
	Threshold int             `json:"threshold,omitempty"`
}

// NewPercentageDiscount builds a validated percentage rule
func NewPercentageDiscount(rate decimal.Decimal) (DiscountRule, error) {
	rule := DiscountRule{Kind: DiscountPercentage, Rate: rate}
	if err := rule.Validate(); err != nil {
		return DiscountRule{}, err
	}
	return rule, nil
}

// NewBulkDiscount builds a validated bulk rule
func NewBulkDiscount(threshold int, rate decimal.Decimal) (DiscountRule, error) {
	rule := DiscountRule{Kind: DiscountBulk, Rate: rate, Threshold: threshold}
	if err := rule.Validate(); err != nil {
		return DiscountRule{}, err
	}
	return rule, nil
}

// Validate checks rate is within [0,100] and, for bulk rules, threshold >= 1
func (r DiscountRule) Validate() error {
	if r.Rate.IsNegative() || r.Rate.GreaterThan(hundred) {
		return NewValidationError("discount rate %s must be between 0 and 100", r.Rate)
	}

	switch r.Kind {
	case DiscountPercentage:
		if r.Threshold != 0 {
			return NewValidationError("percentage discount does not take a threshold")
		}
	case DiscountBulk:
		if r.Threshold < 1 {
			return NewValidationError("bulk discount threshold %d must be at least 1", r.Threshold)
		}
	default:
		return NewValidationError("unknown discount kind %q", r.Kind)
	}

	return nil
}

// Apply returns the discounted unit price for the given quantity, never below zero
func (r DiscountRule) Apply(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	switch r.Kind {
	case DiscountPercentage:
		return reduce(unitPrice, r.Rate)
	case DiscountBulk:
		if quantity >= r.Threshold {
			return reduce(unitPrice, r.Rate)
		}
		return unitPrice
	default:
		return unitPrice
	}
}

func reduce(unitPrice, rate decimal.Decimal) decimal.Decimal {
	factor := decimal.NewFromInt(1).Sub(rate.Div(hundred))
	discounted := unitPrice.Mul(factor)
	if discounted.IsNegative() {
		return decimal.Zero
	}
	return discounted
}

// DiscountRules is an ordered rule sequence; each rule receives the previous rule's output
type DiscountRules []DiscountRule

// Apply folds the rules left-to-right over unitPrice
func (rs DiscountRules) Apply(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	price := unitPrice
	for _, rule := range rs {
		price = rule.Apply(price, quantity)
	}
	return price
}

// Validate validates every rule and reports the position of the first invalid one
func (rs DiscountRules) Validate() error {
	for i, rule := range rs {
		if err := rule.Validate(); err != nil {
			return fmt.Errorf("discount rule %d: %w", i, err)
		}
	}
	return nil
}

// Value stores the rules as a JSON document
func (rs DiscountRules) Value() (driver.Value, error) {
	if rs == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(rs)
}

// Scan reads the rules from a JSON document
func (rs *DiscountRules) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*rs = DiscountRules{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported discount rules column type %T", src)
	}

	var rules DiscountRules
	if err := json.Unmarshal(data, &rules); err != nil {
		return fmt.Errorf("failed to decode discount rules: %w", err)
	}
	*rs = rules
	return nil
}
