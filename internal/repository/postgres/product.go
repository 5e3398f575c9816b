package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/Pesokrava/invoicing/internal/domain"
)

const (
	uniqueViolation        = "23505"
	numericValueOutOfRange = "22003"
)

const productColumns = `id, name, category, price, quantity_on_hand, reorder_level, discount_rules,
		version, created_at, updated_at, retired_at`

// ProductRepository implements domain.ProductRepository for PostgreSQL
type ProductRepository struct {
	db *sqlx.DB
}

// NewProductRepository creates a new PostgreSQL product repository
func NewProductRepository(db *sqlx.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// Create creates a new product
func (r *ProductRepository) Create(ctx context.Context, product *domain.Product) error {
	query := `
		INSERT INTO products (id, name, category, price, quantity_on_hand, reorder_level, discount_rules, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING version, created_at, updated_at
	`

	now := time.Now()
	product.CreatedAt = now
	product.UpdatedAt = now
	if product.DiscountRules == nil {
		product.DiscountRules = domain.DiscountRules{}
	}

	err := r.db.QueryRowxContext(
		ctx,
		query,
		product.ID,
		product.Name,
		product.Category,
		product.Price,
		product.QuantityOnHand,
		product.ReorderLevel,
		product.DiscountRules,
		product.CreatedAt,
		product.UpdatedAt,
	).Scan(
		&product.Version,
		&product.CreatedAt,
		&product.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return err
	}

	return nil
}

// GetByID retrieves a product by ID, retired or not
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	var product domain.Product
	err := r.db.GetContext(ctx, &product, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	return &product, nil
}

// List retrieves products ordered by ID
func (r *ProductRepository) List(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, error) {
	where, args := productWhere(filter)
	query := `SELECT ` + productColumns + ` FROM products` + where + ` ORDER BY id`
	query, args = withPagination(query, args, filter.Limit, filter.Offset)

	products := []*domain.Product{}
	err := r.db.SelectContext(ctx, &products, query, args...)
	if err != nil {
		return nil, err
	}

	return products, nil
}

// Count returns the number of products matching the filter
func (r *ProductRepository) Count(ctx context.Context, filter domain.ProductFilter) (int, error) {
	where, args := productWhere(filter)
	query := `SELECT COUNT(*) FROM products` + where

	var count int
	err := r.db.GetContext(ctx, &count, query, args...)
	if err != nil {
		return 0, err
	}

	return count, nil
}

// ListBelowReorderLevel returns active products under their reorder level
func (r *ProductRepository) ListBelowReorderLevel(ctx context.Context) ([]*domain.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE retired_at IS NULL AND quantity_on_hand < reorder_level
		ORDER BY id
	`

	products := []*domain.Product{}
	err := r.db.SelectContext(ctx, &products, query)
	if err != nil {
		return nil, err
	}

	return products, nil
}

// Update updates the mutable product details with optimistic locking
func (r *ProductRepository) Update(ctx context.Context, product *domain.Product) error {
	query := `
		UPDATE products
		SET name = $1, category = $2, price = $3, reorder_level = $4, discount_rules = $5,
			updated_at = $6, version = version + 1
		WHERE id = $7 AND retired_at IS NULL AND version = $8
		RETURNING version, updated_at, quantity_on_hand
	`

	product.UpdatedAt = time.Now()
	oldVersion := product.Version

	err := r.db.QueryRowxContext(
		ctx,
		query,
		product.Name,
		product.Category,
		product.Price,
		product.ReorderLevel,
		product.DiscountRules,
		product.UpdatedAt,
		product.ID,
		oldVersion,
	).Scan(&product.Version, &product.UpdatedAt, &product.QuantityOnHand)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrConflict
		}
		return err
	}

	return nil
}

// AdjustStock adds delta to the on-hand quantity in a single conditional UPDATE,
// so concurrent adjustments of the same product cannot drive it negative.
func (r *ProductRepository) AdjustStock(ctx context.Context, id string, delta int) (*domain.Product, error) {
	if err := domain.ValidateStockDelta(delta); err != nil {
		return nil, err
	}

	query := `
		UPDATE products
		SET quantity_on_hand = quantity_on_hand + $1, updated_at = $2
		WHERE id = $3 AND quantity_on_hand + $1 >= 0
		RETURNING ` + productColumns

	var product domain.Product
	err := r.db.GetContext(ctx, &product, query, delta, time.Now(), id)
	if err == nil {
		return &product, nil
	}
	if isOutOfRange(err) {
		return nil, domain.NewValidationError("stock of %s would exceed %d", id, domain.MaxQuantity)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	var available int
	err = r.db.GetContext(ctx, &available, `SELECT quantity_on_hand FROM products WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	return nil, &domain.InsufficientStockError{
		ProductID: id,
		Requested: -delta,
		Available: available,
	}
}

// Retire soft-retires a product
func (r *ProductRepository) Retire(ctx context.Context, id string) error {
	query := `
		UPDATE products
		SET retired_at = $1, updated_at = $1, version = version + 1
		WHERE id = $2 AND retired_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, time.Now(), id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return domain.ErrNotFound
	}

	return nil
}

func productWhere(filter domain.ProductFilter) (string, []any) {
	var conds []string
	var args []any

	if !filter.IncludeRetired {
		conds = append(conds, "retired_at IS NULL")
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		conds = append(conds, fmt.Sprintf("category = $%d", len(args)))
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// withPagination appends LIMIT/OFFSET placeholders; a zero limit means no limit
func withPagination(query string, args []any, limit, offset int) (string, []any) {
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if offset > 0 {
		args = append(args, offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	return query, args
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func isOutOfRange(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == numericValueOutOfRange
}
