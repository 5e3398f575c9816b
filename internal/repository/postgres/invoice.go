package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/Pesokrava/invoicing/internal/domain"
)

const invoiceColumns = `id, customer_id, status, tax_rate, subtotal, tax, total,
		version, created_at, updated_at, finalized_at, cancelled_at`

const itemColumns = `product_id, quantity, unit_price_snapshot, discounted_unit_price, subtotal`

type invoiceItemRow struct {
	InvoiceID uuid.UUID `db:"invoice_id"`
	domain.InvoiceItem
}

// InvoiceRepository implements domain.InvoiceRepository for PostgreSQL
type InvoiceRepository struct {
	db *sqlx.DB
}

// NewInvoiceRepository creates a new PostgreSQL invoice repository
func NewInvoiceRepository(db *sqlx.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

// Create inserts the invoice and its items in one transaction
func (r *InvoiceRepository) Create(ctx context.Context, invoice *domain.Invoice) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO invoices (id, customer_id, status, tax_rate, subtotal, tax, total,
			created_at, updated_at, finalized_at, cancelled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING version
	`

	now := time.Now()
	invoice.CreatedAt = now
	invoice.UpdatedAt = now

	err = tx.QueryRowxContext(
		ctx,
		query,
		invoice.ID,
		invoice.CustomerID,
		invoice.Status,
		invoice.TaxRate,
		invoice.Subtotal,
		invoice.Tax,
		invoice.Total,
		invoice.CreatedAt,
		invoice.UpdatedAt,
		invoice.FinalizedAt,
		invoice.CancelledAt,
	).Scan(&invoice.Version)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return err
	}

	if err := insertItems(ctx, tx, invoice); err != nil {
		return err
	}

	return tx.Commit()
}

// GetByID retrieves an invoice with its items
func (r *InvoiceRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1`

	var invoice domain.Invoice
	err := r.db.GetContext(ctx, &invoice, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	items := []domain.InvoiceItem{}
	itemsQuery := `SELECT ` + itemColumns + ` FROM invoice_items WHERE invoice_id = $1 ORDER BY position`
	if err := r.db.SelectContext(ctx, &items, itemsQuery, id); err != nil {
		return nil, err
	}
	invoice.Items = items

	return &invoice, nil
}

// List retrieves invoices newest first, items included
func (r *InvoiceRepository) List(ctx context.Context, filter domain.InvoiceFilter) ([]*domain.Invoice, error) {
	where, args := invoiceWhere(filter)
	query := `SELECT ` + invoiceColumns + ` FROM invoices` + where + ` ORDER BY created_at DESC, id`
	query, args = withPagination(query, args, filter.Limit, filter.Offset)

	invoices := []*domain.Invoice{}
	if err := r.db.SelectContext(ctx, &invoices, query, args...); err != nil {
		return nil, err
	}
	if len(invoices) == 0 {
		return invoices, nil
	}

	ids := make([]string, len(invoices))
	byID := make(map[uuid.UUID]*domain.Invoice, len(invoices))
	for i, inv := range invoices {
		ids[i] = inv.ID.String()
		inv.Items = []domain.InvoiceItem{}
		byID[inv.ID] = inv
	}

	var rows []invoiceItemRow
	itemsQuery := `
		SELECT invoice_id, ` + itemColumns + `
		FROM invoice_items
		WHERE invoice_id = ANY($1)
		ORDER BY invoice_id, position
	`
	if err := r.db.SelectContext(ctx, &rows, itemsQuery, pq.Array(ids)); err != nil {
		return nil, err
	}
	for _, row := range rows {
		if inv, ok := byID[row.InvoiceID]; ok {
			inv.Items = append(inv.Items, row.InvoiceItem)
		}
	}

	return invoices, nil
}

// Count returns the number of invoices matching the filter
func (r *InvoiceRepository) Count(ctx context.Context, filter domain.InvoiceFilter) (int, error) {
	where, args := invoiceWhere(filter)

	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM invoices`+where, args...)
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Update replaces the invoice row and its items under an optimistic version check
func (r *InvoiceRepository) Update(ctx context.Context, invoice *domain.Invoice) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE invoices
		SET status = $1, tax_rate = $2, subtotal = $3, tax = $4, total = $5,
			finalized_at = $6, cancelled_at = $7, updated_at = $8, version = version + 1
		WHERE id = $9 AND version = $10
		RETURNING version, updated_at
	`

	var version int
	var updatedAt time.Time
	err = tx.QueryRowxContext(
		ctx,
		query,
		invoice.Status,
		invoice.TaxRate,
		invoice.Subtotal,
		invoice.Tax,
		invoice.Total,
		invoice.FinalizedAt,
		invoice.CancelledAt,
		time.Now(),
		invoice.ID,
		invoice.Version,
	).Scan(&version, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrConflict
		}
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM invoice_items WHERE invoice_id = $1`, invoice.ID); err != nil {
		return err
	}
	if err := insertItems(ctx, tx, invoice); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	invoice.Version = version
	invoice.UpdatedAt = updatedAt
	return nil
}

// Delete removes an invoice; items go with it through ON DELETE CASCADE
func (r *InvoiceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM invoices WHERE id = $1`, id)
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

func insertItems(ctx context.Context, tx *sqlx.Tx, invoice *domain.Invoice) error {
	query := `
		INSERT INTO invoice_items (invoice_id, position, ` + itemColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	for i, item := range invoice.Items {
		_, err := tx.ExecContext(
			ctx,
			query,
			invoice.ID,
			i,
			item.ProductID,
			item.Quantity,
			item.UnitPriceSnapshot,
			item.DiscountedUnitPrice,
			item.Subtotal,
		)
		if err != nil {
			return fmt.Errorf("failed to insert item %d: %w", i, err)
		}
	}

	return nil
}

func invoiceWhere(filter domain.InvoiceFilter) (string, []any) {
	var conds []string
	var args []any

	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.CustomerID != nil {
		args = append(args, *filter.CustomerID)
		conds = append(conds, fmt.Sprintf("customer_id = $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		conds = append(conds, fmt.Sprintf("COALESCE(finalized_at, created_at) >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conds = append(conds, fmt.Sprintf("COALESCE(finalized_at, created_at) < $%d", len(args)))
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
