package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/Pesokrava/invoicing/internal/domain"
)

// CustomerRepository implements domain.CustomerRepository on top of a Store
type CustomerRepository struct {
	store *Store
}

// Create creates a new customer
func (r *CustomerRepository) Create(ctx context.Context, customer *domain.Customer) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if customer.ID == uuid.Nil {
		customer.ID = uuid.New()
	}
	if _, ok := s.customers[customer.ID]; ok {
		return domain.ErrAlreadyExists
	}

	now := s.now()
	customer.CreatedAt = now
	customer.UpdatedAt = now

	cp := *customer
	s.customers[customer.ID] = &cp
	return s.commitLocked(func() { delete(s.customers, customer.ID) })
}

// GetByID retrieves a customer by ID
func (r *CustomerRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.customers[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

// List retrieves customers ordered by name
func (r *CustomerRepository) List(ctx context.Context, limit, offset int) ([]*domain.Customer, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]*domain.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		all = append(all, c)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Name != all[j].Name {
			return all[i].Name < all[j].Name
		}
		return all[i].ID.String() < all[j].ID.String()
	})

	page := paginate(all, limit, offset)
	customers := make([]*domain.Customer, len(page))
	for i, c := range page {
		cp := *c
		customers[i] = &cp
	}
	return customers, nil
}

// Count returns the total number of customers
func (r *CustomerRepository) Count(ctx context.Context) (int, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.customers), nil
}
