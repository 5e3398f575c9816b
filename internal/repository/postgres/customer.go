package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Pesokrava/invoicing/internal/domain"
)

// CustomerRepository implements domain.CustomerRepository for PostgreSQL
type CustomerRepository struct {
	db *sqlx.DB
}

// NewCustomerRepository creates a new PostgreSQL customer repository
func NewCustomerRepository(db *sqlx.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

// Create creates a new customer
func (r *CustomerRepository) Create(ctx context.Context, customer *domain.Customer) error {
	query := `
		INSERT INTO customers (id, name, email, phone, address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	if customer.ID == uuid.Nil {
		customer.ID = uuid.New()
	}
	now := time.Now()
	customer.CreatedAt = now
	customer.UpdatedAt = now

	_, err := r.db.ExecContext(
		ctx,
		query,
		customer.ID,
		customer.Name,
		customer.Email,
		customer.Phone,
		customer.Address,
		customer.CreatedAt,
		customer.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return err
	}

	return nil
}

// GetByID retrieves a customer by ID
func (r *CustomerRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	query := `
		SELECT id, name, email, phone, address, created_at, updated_at
		FROM customers
		WHERE id = $1
	`

	var customer domain.Customer
	err := r.db.GetContext(ctx, &customer, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	return &customer, nil
}

// List retrieves customers ordered by name
func (r *CustomerRepository) List(ctx context.Context, limit, offset int) ([]*domain.Customer, error) {
	query := `
		SELECT id, name, email, phone, address, created_at, updated_at
		FROM customers
		ORDER BY name, id`
	query, args := withPagination(query, nil, limit, offset)

	customers := []*domain.Customer{}
	err := r.db.SelectContext(ctx, &customers, query, args...)
	if err != nil {
		return nil, err
	}

	return customers, nil
}

// Count returns the total number of customers
func (r *CustomerRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM customers`)
	if err != nil {
		return 0, err
	}

	return count, nil
}
