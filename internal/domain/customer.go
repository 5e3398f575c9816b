package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Customer is the party an invoice is issued to
type Customer struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name" validate:"required,min=1,max=255"`
	Email     string    `json:"email" db:"email" validate:"omitempty,email,max=255"`
	Phone     string    `json:"phone" db:"phone" validate:"max=50"`
	Address   string    `json:"address" db:"address" validate:"max=500"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// CustomerRepository defines the interface for customer data access
type CustomerRepository interface {
	// Create creates a new customer
	Create(ctx context.Context, customer *Customer) error

	// GetByID retrieves a customer by ID
	GetByID(ctx context.Context, id uuid.UUID) (*Customer, error)

	// List retrieves a paginated list of customers ordered by name
	List(ctx context.Context, limit, offset int) ([]*Customer, error)

	// Count returns the total number of customers
	Count(ctx context.Context) (int, error)
}
