// Package invoice drives invoices through DRAFT -> FINALIZED -> CANCELLED,
// keeping catalog stock in step with every status change.
package invoice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Pesokrava/invoicing/internal/domain"
	"github.com/Pesokrava/invoicing/internal/pkg/logger"
	"github.com/Pesokrava/invoicing/internal/pricing"
)

// EventsSubject is the subject invoice lifecycle events are published on
const EventsSubject = "invoices.events"

// Catalog is the product lookup and stock mutation the invoice engine relies on
type Catalog interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	AdjustStock(ctx context.Context, id string, delta int) (*domain.Product, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// ReportCache is invalidated whenever a sale is committed or refunded
type ReportCache interface {
	InvalidateReports(ctx context.Context) error
}

// Service handles the invoice lifecycle
type Service struct {
	repo           domain.InvoiceRepository
	customers      domain.CustomerRepository
	catalog        Catalog
	pricing        *pricing.Engine
	publisher      EventPublisher
	reports        ReportCache
	defaultTaxRate decimal.Decimal
	logger         *logger.Logger
	mu             sync.RWMutex
	now            func() time.Time
}

// NewService creates a new invoice service
func NewService(
	repo domain.InvoiceRepository,
	customers domain.CustomerRepository,
	catalog Catalog,
	engine *pricing.Engine,
	publisher EventPublisher,
	reports ReportCache,
	defaultTaxRate decimal.Decimal,
	log *logger.Logger,
) *Service {
	return &Service{
		repo:           repo,
		customers:      customers,
		catalog:        catalog,
		pricing:        engine,
		publisher:      publisher,
		reports:        reports,
		defaultTaxRate: defaultTaxRate,
		logger:         log.Component("invoice"),
		now:            time.Now,
	}
}

// Create opens an empty draft for an existing customer. A nil taxRate uses the configured default.
func (s *Service) Create(ctx context.Context, customerID uuid.UUID, taxRate *decimal.Decimal) (*domain.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.customers.GetByID(ctx, customerID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: customer %s", domain.ErrNotFound, customerID)
		}
		s.logger.Error("Failed to get customer", err)
		return nil, err
	}

	rate := s.defaultTaxRate
	if taxRate != nil {
		rate = *taxRate
	}

	inv, err := domain.NewInvoice(customerID, rate)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, inv); err != nil {
		s.logger.Error("Failed to create invoice", err)
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"invoice_id":  inv.ID,
		"customer_id": customerID,
		"tax_rate":    rate.String(),
	}).Info("Invoice created successfully")

	return inv, nil
}

// GetByID retrieves an invoice with its items
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*domain.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.get(ctx, id)
}

// List retrieves invoices matching the filter
func (s *Service) List(ctx context.Context, filter domain.InvoiceFilter) ([]*domain.Invoice, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, domain.NewValidationError("unknown invoice status %q", filter.Status)
	}

	invoices, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to list invoices", err)
		return nil, 0, err
	}

	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to count invoices", err)
		return nil, 0, err
	}

	return invoices, total, nil
}

// Discard deletes a draft. Finalized and cancelled invoices are kept for the record.
func (s *Service) Discard(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if err := inv.EnsureDraft(); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Error("Failed to delete invoice", err)
		return err
	}

	s.logger.WithFields(map[string]interface{}{
		"invoice_id": id,
	}).Info("Draft invoice discarded")

	return nil
}

// AddItem appends a line to a draft. The stock check is advisory: nothing is
// reserved until Finalize.
func (s *Service) AddItem(ctx context.Context, id uuid.UUID, productID string, quantity int) (*domain.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := inv.EnsureDraft(); err != nil {
		return nil, err
	}
	if err := domain.ValidateQuantity(quantity); err != nil {
		return nil, err
	}

	product, err := s.catalog.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.IsRetired() {
		return nil, domain.NewValidationError("product %s is retired", productID)
	}
	if product.QuantityOnHand < quantity {
		return nil, &domain.InsufficientStockError{
			ProductID: productID,
			Requested: quantity,
			Available: product.QuantityOnHand,
		}
	}

	if err := inv.AddItem(product, quantity); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, inv); err != nil {
		s.logger.Error("Failed to save invoice item", err)
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"invoice_id": id,
		"product_id": productID,
		"quantity":   quantity,
	}).Debug("Invoice item added")

	return inv, nil
}

// RemoveItem drops the line at index from a draft
func (s *Service) RemoveItem(ctx context.Context, id uuid.UUID, index int) (*domain.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := inv.RemoveItem(index); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, inv); err != nil {
		s.logger.Error("Failed to remove invoice item", err)
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"invoice_id": id,
		"index":      index,
	}).Debug("Invoice item removed")

	return inv, nil
}

// Finalize prices every line at current catalog prices, commits the stock
// decrements and freezes the totals. Either every decrement and the status
// change happen, or none of them do.
func (s *Service) Finalize(ctx context.Context, id uuid.UUID) (*domain.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := inv.EnsureDraft(); err != nil {
		return nil, err
	}
	if len(inv.Items) == 0 {
		return nil, domain.NewInvalidStateError("invoice %s has no items", id)
	}

	priced := inv.Clone()
	subtotal := decimal.Zero
	for i, item := range priced.Items {
		product, err := s.catalog.GetByID(ctx, item.ProductID)
		if err != nil {
			return nil, err
		}

		unitPrice, lineSubtotal := s.pricing.PriceLine(product, item.Quantity)
		priced.Items[i].DiscountedUnitPrice = decimal.NewNullDecimal(unitPrice)
		priced.Items[i].Subtotal = decimal.NewNullDecimal(lineSubtotal)
		subtotal = subtotal.Add(lineSubtotal)
	}
	subtotal = pricing.Round(subtotal)
	tax := s.pricing.ComputeTax(subtotal, priced.TaxRate)
	total := s.pricing.Total(subtotal, tax)

	applied := make([]domain.InvoiceItem, 0, len(priced.Items))
	for _, item := range priced.Items {
		if _, err := s.catalog.AdjustStock(ctx, item.ProductID, -item.Quantity); err != nil {
			s.logger.WithFields(map[string]interface{}{
				"invoice_id": id,
				"product_id": item.ProductID,
			}).Warnf("Finalize aborted, rolling back %d stock decrements: %v", len(applied), err)
			return nil, errors.Join(err, s.moveStock(ctx, applied, +1))
		}
		applied = append(applied, item)
	}

	if err := priced.MarkFinalized(subtotal, tax, total, s.now().UTC()); err != nil {
		return nil, errors.Join(err, s.moveStock(ctx, applied, +1))
	}

	if err := s.repo.Update(ctx, priced); err != nil {
		s.logger.Error("Failed to persist finalized invoice, rolling back stock", err)
		return nil, errors.Join(err, s.moveStock(ctx, applied, +1))
	}

	s.afterTransition(ctx, domain.EventInvoiceFinalized, priced)

	s.logger.WithFields(map[string]interface{}{
		"invoice_id": id,
		"subtotal":   subtotal.StringFixed(pricing.CurrencyPlaces),
		"tax":        tax.StringFixed(pricing.CurrencyPlaces),
		"total":      total.StringFixed(pricing.CurrencyPlaces),
	}).Info("Invoice finalized successfully")

	return priced, nil
}

// Cancel refunds a finalized invoice: stock is restored and the status moves to CANCELLED
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*domain.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	cancelled := inv.Clone()
	if err := cancelled.MarkCancelled(s.now().UTC()); err != nil {
		return nil, err
	}

	restored := make([]domain.InvoiceItem, 0, len(cancelled.Items))
	for _, item := range cancelled.Items {
		if _, err := s.catalog.AdjustStock(ctx, item.ProductID, item.Quantity); err != nil {
			s.logger.Error("Failed to restore stock, rolling back cancel", err)
			return nil, errors.Join(err, s.moveStock(ctx, restored, -1))
		}
		restored = append(restored, item)
	}

	if err := s.repo.Update(ctx, cancelled); err != nil {
		s.logger.Error("Failed to persist cancelled invoice, rolling back stock", err)
		return nil, errors.Join(err, s.moveStock(ctx, restored, -1))
	}

	s.afterTransition(ctx, domain.EventInvoiceCancelled, cancelled)

	s.logger.WithFields(map[string]interface{}{
		"invoice_id": id,
		"total":      cancelled.Total.Decimal.StringFixed(pricing.CurrencyPlaces),
	}).Info("Invoice cancelled successfully")

	return cancelled, nil
}

func (s *Service) get(ctx context.Context, id uuid.UUID) (*domain.Invoice, error) {
	inv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Debugf("Invoice not found: %s", id)
			return nil, fmt.Errorf("%w: invoice %s", domain.ErrNotFound, id)
		}
		s.logger.Error("Failed to get invoice", err)
		return nil, err
	}
	return inv, nil
}

// moveStock applies sign*quantity for each item in reverse order. It compensates
// a partially applied finalize or cancel and keeps going past failures, which
// are reported wrapped in ErrInternal.
func (s *Service) moveStock(ctx context.Context, items []domain.InvoiceItem, sign int) error {
	ctx = context.WithoutCancel(ctx)

	var errs []error
	for i := len(items) - 1; i >= 0; i-- {
		item := items[i]
		if _, err := s.catalog.AdjustStock(ctx, item.ProductID, sign*item.Quantity); err != nil {
			s.logger.WithFields(map[string]interface{}{
				"product_id": item.ProductID,
				"quantity":   sign * item.Quantity,
			}).Error("Stock compensation failed", err)
			errs = append(errs, fmt.Errorf("compensate %s by %d: %w", item.ProductID, sign*item.Quantity, err))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: stock compensation failed: %w", domain.ErrInternal, errors.Join(errs...))
}

func (s *Service) afterTransition(ctx context.Context, eventType string, inv *domain.Invoice) {
	if err := s.reports.InvalidateReports(ctx); err != nil {
		s.logger.Warnf("Failed to invalidate report cache: %v", err)
	}
	s.publishEvent(eventType, inv)
}

// publishEvent publishes an invoice event (non-blocking)
func (s *Service) publishEvent(eventType string, inv *domain.Invoice) {
	event := domain.NewInvoiceEvent(eventType, inv, s.now().UTC())

	data, err := json.Marshal(event)
	if err != nil {
		s.logger.Errorf(err, "Failed to marshal event for invoice %s", inv.ID)
		return
	}

	// Publish in background to avoid blocking
	go func() {
		if err := s.publisher.Publish(context.Background(), EventsSubject, data); err != nil {
			s.logger.Errorf(err, "Failed to publish event for invoice %s", inv.ID)
		}
	}()
}
