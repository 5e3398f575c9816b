package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/Pesokrava/invoicing/internal/domain"
)

// InvoiceRepository implements domain.InvoiceRepository on top of a Store
type InvoiceRepository struct {
	store *Store
}

// Create creates a new invoice
func (r *InvoiceRepository) Create(ctx context.Context, invoice *domain.Invoice) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.invoices[invoice.ID]; ok {
		return domain.ErrAlreadyExists
	}

	now := s.now()
	invoice.CreatedAt = now
	invoice.UpdatedAt = now
	invoice.Version = 1

	s.invoices[invoice.ID] = invoice.Clone()
	return s.commitLocked(func() { delete(s.invoices, invoice.ID) })
}

// GetByID retrieves an invoice with its items
func (r *InvoiceRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Invoice, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	inv, ok := s.invoices[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return inv.Clone(), nil
}

// List retrieves invoices newest first
func (r *InvoiceRepository) List(ctx context.Context, filter domain.InvoiceFilter) ([]*domain.Invoice, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	page := paginate(r.matchLocked(filter), filter.Limit, filter.Offset)
	invoices := make([]*domain.Invoice, len(page))
	for i, inv := range page {
		invoices[i] = inv.Clone()
	}
	return invoices, nil
}

// Count returns the number of invoices matching the filter
func (r *InvoiceRepository) Count(ctx context.Context, filter domain.InvoiceFilter) (int, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(r.matchLocked(filter)), nil
}

func (r *InvoiceRepository) matchLocked(filter domain.InvoiceFilter) []*domain.Invoice {
	matched := make([]*domain.Invoice, 0, len(r.store.invoices))
	for _, inv := range r.store.invoices {
		if filter.Status != "" && inv.Status != filter.Status {
			continue
		}
		if filter.CustomerID != nil && inv.CustomerID != *filter.CustomerID {
			continue
		}
		issued := inv.IssuedAt()
		if filter.From != nil && issued.Before(*filter.From) {
			continue
		}
		if filter.To != nil && !issued.Before(*filter.To) {
			continue
		}
		matched = append(matched, inv)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID.String() < matched[j].ID.String()
	})
	return matched
}

// Update replaces the invoice, ErrConflict when the version moved on
func (r *InvoiceRepository) Update(ctx context.Context, invoice *domain.Invoice) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.invoices[invoice.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if current.Version != invoice.Version {
		return domain.ErrConflict
	}

	updated := invoice.Clone()
	updated.CreatedAt = current.CreatedAt
	updated.Version = current.Version + 1
	updated.UpdatedAt = s.now()

	s.invoices[invoice.ID] = updated
	if err := s.commitLocked(func() { s.invoices[invoice.ID] = current }); err != nil {
		return err
	}

	invoice.Version = updated.Version
	invoice.UpdatedAt = updated.UpdatedAt
	return nil
}

// Delete removes an invoice
func (r *InvoiceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.invoices[id]
	if !ok {
		return domain.ErrNotFound
	}

	delete(s.invoices, id)
	return s.commitLocked(func() { s.invoices[id] = current })
}
