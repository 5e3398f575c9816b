package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceStatus is the lifecycle state of an invoice
type InvoiceStatus string

const (
	// InvoiceDraft is the initial, mutable state
	InvoiceDraft InvoiceStatus = "DRAFT"

	// InvoiceFinalized is a committed sale with frozen totals
	InvoiceFinalized InvoiceStatus = "FINALIZED"

	// InvoiceCancelled is a refunded sale whose stock was restored
	InvoiceCancelled InvoiceStatus = "CANCELLED"
)

// Valid reports whether s is a known status
func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceDraft, InvoiceFinalized, InvoiceCancelled:
		return true
	}
	return false
}

// InvoiceItem is one product/quantity line of an invoice.
// UnitPriceSnapshot is informational; the charged price is computed at finalize.
type InvoiceItem struct {
	ProductID           string              `json:"product_id" db:"product_id"`
	Quantity            int                 `json:"quantity" db:"quantity"`
	UnitPriceSnapshot   decimal.Decimal     `json:"unit_price_snapshot" db:"unit_price_snapshot"`
	DiscountedUnitPrice decimal.NullDecimal `json:"discounted_unit_price" db:"discounted_unit_price"`
	Subtotal            decimal.NullDecimal `json:"subtotal" db:"subtotal"`
}

// Invoice owns its items and tracks the DRAFT -> FINALIZED -> CANCELLED lifecycle
type Invoice struct {
	ID          uuid.UUID           `json:"id" db:"id"`
	CustomerID  uuid.UUID           `json:"customer_id" db:"customer_id"`
	Items       []InvoiceItem       `json:"items" db:"-"`
	Status      InvoiceStatus       `json:"status" db:"status"`
	TaxRate     decimal.Decimal     `json:"tax_rate" db:"tax_rate"`
	Subtotal    decimal.NullDecimal `json:"subtotal" db:"subtotal"`
	Tax         decimal.NullDecimal `json:"tax" db:"tax"`
	Total       decimal.NullDecimal `json:"total" db:"total"`
	Version     int                 `json:"version" db:"version"`
	CreatedAt   time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at" db:"updated_at"`
	FinalizedAt *time.Time          `json:"finalized_at,omitempty" db:"finalized_at"`
	CancelledAt *time.Time          `json:"cancelled_at,omitempty" db:"cancelled_at"`
}

// NewInvoice creates an empty draft
func NewInvoice(customerID uuid.UUID, taxRate decimal.Decimal) (*Invoice, error) {
	if err := ValidateTaxRate(taxRate); err != nil {
		return nil, err
	}

	return &Invoice{
		ID:         uuid.New(),
		CustomerID: customerID,
		Items:      []InvoiceItem{},
		Status:     InvoiceDraft,
		TaxRate:    taxRate,
	}, nil
}

// ValidateTaxRate accepts fractions in [0,1] with at most AmountScale decimal places
func ValidateTaxRate(rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return NewValidationError("tax rate %s must be between 0 and 1", rate)
	}
	return checkScale("tax rate", rate)
}

// EnsureDraft fails with ErrInvalidState unless the invoice is still a draft
func (inv *Invoice) EnsureDraft() error {
	if inv.Status != InvoiceDraft {
		return NewInvalidStateError("invoice %s is %s, expected %s", inv.ID, inv.Status, InvoiceDraft)
	}
	return nil
}

// AddItem appends a line capturing the product's current price
func (inv *Invoice) AddItem(product *Product, quantity int) error {
	if err := inv.EnsureDraft(); err != nil {
		return err
	}
	if err := ValidateQuantity(quantity); err != nil {
		return err
	}

	inv.Items = append(inv.Items, InvoiceItem{
		ProductID:         product.ID,
		Quantity:          quantity,
		UnitPriceSnapshot: product.Price,
	})
	return nil
}

// RemoveItem drops the line at index
func (inv *Invoice) RemoveItem(index int) error {
	if err := inv.EnsureDraft(); err != nil {
		return err
	}
	if index < 0 || index >= len(inv.Items) {
		return fmt.Errorf("%w: item index %d out of range", ErrNotFound, index)
	}

	items := make([]InvoiceItem, 0, len(inv.Items)-1)
	items = append(items, inv.Items[:index]...)
	inv.Items = append(items, inv.Items[index+1:]...)
	return nil
}

// MarkFinalized freezes the totals and moves the invoice to FINALIZED
func (inv *Invoice) MarkFinalized(subtotal, tax, total decimal.Decimal, at time.Time) error {
	if err := inv.EnsureDraft(); err != nil {
		return err
	}
	if len(inv.Items) == 0 {
		return NewInvalidStateError("invoice %s has no items", inv.ID)
	}

	inv.Subtotal = decimal.NewNullDecimal(subtotal)
	inv.Tax = decimal.NewNullDecimal(tax)
	inv.Total = decimal.NewNullDecimal(total)
	inv.Status = InvoiceFinalized
	inv.FinalizedAt = &at
	return nil
}

// MarkCancelled moves a finalized invoice to CANCELLED
func (inv *Invoice) MarkCancelled(at time.Time) error {
	if inv.Status != InvoiceFinalized {
		return NewInvalidStateError("invoice %s is %s, only %s invoices can be cancelled",
			inv.ID, inv.Status, InvoiceFinalized)
	}

	inv.Status = InvoiceCancelled
	inv.CancelledAt = &at
	return nil
}

// ItemCount sums quantities over all lines
func (inv *Invoice) ItemCount() int {
	count := 0
	for _, item := range inv.Items {
		count += item.Quantity
	}
	return count
}

// IssuedAt is the finalize time, or the creation time for drafts
func (inv *Invoice) IssuedAt() time.Time {
	if inv.FinalizedAt != nil {
		return *inv.FinalizedAt
	}
	return inv.CreatedAt
}

// Clone returns a deep copy so callers can mutate without touching the original
func (inv *Invoice) Clone() *Invoice {
	cp := *inv
	cp.Items = make([]InvoiceItem, len(inv.Items))
	copy(cp.Items, inv.Items)
	if inv.FinalizedAt != nil {
		t := *inv.FinalizedAt
		cp.FinalizedAt = &t
	}
	if inv.CancelledAt != nil {
		t := *inv.CancelledAt
		cp.CancelledAt = &t
	}
	return &cp
}

// InvoiceFilter narrows invoice listings. From (inclusive) and To (exclusive)
// bound the issue time, which is FinalizedAt when set and CreatedAt otherwise.
type InvoiceFilter struct {
	Status     InvoiceStatus
	CustomerID *uuid.UUID
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
}

// InvoiceRepository defines the interface for invoice data access
type InvoiceRepository interface {
	// Create creates a new invoice with its items
	Create(ctx context.Context, invoice *Invoice) error

	// GetByID retrieves an invoice with its items
	GetByID(ctx context.Context, id uuid.UUID) (*Invoice, error)

	// List retrieves invoices matching the filter, newest first, items included
	List(ctx context.Context, filter InvoiceFilter) ([]*Invoice, error)

	// Count returns the number of invoices matching the filter (pagination ignored)
	Count(ctx context.Context, filter InvoiceFilter) (int, error)

	// Update replaces the invoice and its items, ErrConflict on version mismatch
	Update(ctx context.Context, invoice *Invoice) error

	// Delete removes a draft invoice
	Delete(ctx context.Context, id uuid.UUID) error
}
