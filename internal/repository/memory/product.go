package memory

import (
	"context"
	"sort"

	"github.com/Pesokrava/invoicing/internal/domain"
)

// ProductRepository implements domain.ProductRepository on top of a Store
type ProductRepository struct {
	store *Store
}

// Create creates a new product
func (r *ProductRepository) Create(ctx context.Context, product *domain.Product) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[product.ID]; ok {
		return domain.ErrAlreadyExists
	}

	now := s.now()
	product.CreatedAt = now
	product.UpdatedAt = now
	product.Version = 1
	if product.DiscountRules == nil {
		product.DiscountRules = domain.DiscountRules{}
	}

	s.products[product.ID] = product.Clone()
	return s.commitLocked(func() { delete(s.products, product.ID) })
}

// GetByID retrieves a product by ID
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p.Clone(), nil
}

// List retrieves products ordered by ID
func (r *ProductRepository) List(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := r.matchLocked(filter)
	page := paginate(matched, filter.Limit, filter.Offset)

	products := make([]*domain.Product, len(page))
	for i, p := range page {
		products[i] = p.Clone()
	}
	return products, nil
}

// Count returns the number of products matching the filter
func (r *ProductRepository) Count(ctx context.Context, filter domain.ProductFilter) (int, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(r.matchLocked(filter)), nil
}

func (r *ProductRepository) matchLocked(filter domain.ProductFilter) []*domain.Product {
	matched := make([]*domain.Product, 0, len(r.store.products))
	for _, p := range r.store.products {
		if !filter.IncludeRetired && p.IsRetired() {
			continue
		}
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		matched = append(matched, p)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	return matched
}

// ListBelowReorderLevel returns active products under their reorder level
func (r *ProductRepository) ListBelowReorderLevel(ctx context.Context) ([]*domain.Product, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	low := []*domain.Product{}
	for _, p := range r.matchLocked(domain.ProductFilter{}) {
		if p.IsBelowReorderLevel() {
			low = append(low, p.Clone())
		}
	}
	return low, nil
}

// Update updates the mutable product details with optimistic locking
func (r *ProductRepository) Update(ctx context.Context, product *domain.Product) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.products[product.ID]
	if !ok || current.IsRetired() || current.Version != product.Version {
		return domain.ErrConflict
	}

	updated := current.Clone()
	updated.Name = product.Name
	updated.Category = product.Category
	updated.Price = product.Price
	updated.ReorderLevel = product.ReorderLevel
	updated.DiscountRules = product.Clone().DiscountRules
	updated.Version = current.Version + 1
	updated.UpdatedAt = s.now()

	s.products[product.ID] = updated
	if err := s.commitLocked(func() { s.products[product.ID] = current }); err != nil {
		return err
	}

	product.Version = updated.Version
	product.UpdatedAt = updated.UpdatedAt
	product.QuantityOnHand = updated.QuantityOnHand
	return nil
}

// AdjustStock adds delta to the on-hand quantity under the store lock
func (r *ProductRepository) AdjustStock(ctx context.Context, id string, delta int) (*domain.Product, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := domain.ValidateStockDelta(delta); err != nil {
		return nil, err
	}

	current, ok := s.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}

	next := current.QuantityOnHand + delta
	if next > domain.MaxQuantity {
		return nil, domain.NewValidationError("stock of %s would exceed %d", id, domain.MaxQuantity)
	}
	if next < 0 {
		return nil, &domain.InsufficientStockError{
			ProductID: id,
			Requested: -delta,
			Available: current.QuantityOnHand,
		}
	}

	updated := current.Clone()
	updated.QuantityOnHand = next
	updated.UpdatedAt = s.now()

	s.products[id] = updated
	if err := s.commitLocked(func() { s.products[id] = current }); err != nil {
		return nil, err
	}

	return updated.Clone(), nil
}

// Retire soft-retires a product
func (r *ProductRepository) Retire(ctx context.Context, id string) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.products[id]
	if !ok || current.IsRetired() {
		return domain.ErrNotFound
	}

	now := s.now()
	updated := current.Clone()
	updated.RetiredAt = &now
	updated.UpdatedAt = now
	updated.Version = current.Version + 1

	s.products[id] = updated
	return s.commitLocked(func() { s.products[id] = current })
}
