// Package pricing computes discounted line totals and tax for invoices.
// It is pure: no I/O, no logging, no errors. Callers validate quantities and prices.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/Pesokrava/invoicing/internal/domain"
)

// CurrencyPlaces is the precision every monetary result is rounded to
const CurrencyPlaces int32 = 2

// Engine prices invoice lines
type Engine struct{}

// NewEngine creates a new pricing engine
func NewEngine() *Engine {
	return &Engine{}
}

// PriceLine folds the product's discount rules over its current price and
// multiplies by quantity. The unit price is left unrounded; the subtotal is
// rounded to currency precision.
func (e *Engine) PriceLine(product *domain.Product, quantity int) (unitPrice, subtotal decimal.Decimal) {
	unitPrice = product.DiscountRules.Apply(product.Price, quantity)
	subtotal = Round(unitPrice.Mul(decimal.NewFromInt(int64(quantity))))
	return unitPrice, subtotal
}

// ComputeTax returns subtotal x taxRate rounded to currency precision
func (e *Engine) ComputeTax(subtotal, taxRate decimal.Decimal) decimal.Decimal {
	return Round(subtotal.Mul(taxRate))
}

// Total adds tax to subtotal
func (e *Engine) Total(subtotal, tax decimal.Decimal) decimal.Decimal {
	return Round(subtotal.Add(tax))
}

// Round rounds half-up to currency precision. Amounts here are never negative,
// where decimal's half-away-from-zero rounding is the same as half-up.
func Round(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(CurrencyPlaces)
}
