package worker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Pesokrava/invoicing/internal/pkg/logger"
)

// ReorderAlert is an open "please restock" record for one product
type ReorderAlert struct {
	ProductID      string    `json:"product_id" db:"product_id"`
	QuantityOnHand int       `json:"quantity_on_hand" db:"quantity_on_hand"`
	ReorderLevel   int       `json:"reorder_level" db:"reorder_level"`
	RaisedAt       time.Time `json:"raised_at" db:"raised_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// ReorderMonitor reconciles the reorder_alerts table with current stock
type ReorderMonitor struct {
	db     *sqlx.DB
	logger *logger.Logger
	now    func() time.Time
}

// NewReorderMonitor creates a new reorder monitor
func NewReorderMonitor(db *sqlx.DB, log *logger.Logger) *ReorderMonitor {
	return &ReorderMonitor{
		db:     db,
		logger: log,
		now:    time.Now,
	}
}

// Check raises or refreshes the alert for a product below its reorder level
// and clears it once the product is restocked or retired. Idempotent: it reads
// current stock, not the event payload.
func (m *ReorderMonitor) Check(ctx context.Context, productID string) error {
	var stock struct {
		QuantityOnHand int `db:"quantity_on_hand"`
		ReorderLevel   int `db:"reorder_level"`
	}

	query := `
		SELECT quantity_on_hand, reorder_level
		FROM products
		WHERE id = $1 AND retired_at IS NULL
	`
	err := m.db.GetContext(ctx, &stock, query, productID)
	if errors.Is(err, sql.ErrNoRows) {
		m.logger.WithFields(map[string]any{
			"product_id": productID,
		}).Info("Product not found or retired, clearing reorder alert")
		return m.clear(ctx, productID)
	}
	if err != nil {
		return fmt.Errorf("failed to read stock for %s: %w", productID, err)
	}

	if stock.QuantityOnHand >= stock.ReorderLevel {
		return m.clear(ctx, productID)
	}

	upsert := `
		INSERT INTO reorder_alerts (product_id, quantity_on_hand, reorder_level, raised_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (product_id) DO UPDATE
		SET quantity_on_hand = EXCLUDED.quantity_on_hand,
			reorder_level = EXCLUDED.reorder_level,
			updated_at = EXCLUDED.updated_at
	`
	if _, err := m.db.ExecContext(ctx, upsert, productID, stock.QuantityOnHand, stock.ReorderLevel, m.now()); err != nil {
		return fmt.Errorf("failed to raise reorder alert for %s: %w", productID, err)
	}

	m.logger.WithFields(map[string]any{
		"product_id":       productID,
		"quantity_on_hand": stock.QuantityOnHand,
		"reorder_level":    stock.ReorderLevel,
	}).Warn("Product below reorder level")

	return nil
}

func (m *ReorderMonitor) clear(ctx context.Context, productID string) error {
	result, err := m.db.ExecContext(ctx, `DELETE FROM reorder_alerts WHERE product_id = $1`, productID)
	if err != nil {
		return fmt.Errorf("failed to clear reorder alert for %s: %w", productID, err)
	}

	if n, err := result.RowsAffected(); err == nil && n > 0 {
		m.logger.WithFields(map[string]any{
			"product_id": productID,
		}).Info("Reorder alert cleared")
	}
	return nil
}

// OpenAlerts lists every open alert, lowest stock first
func (m *ReorderMonitor) OpenAlerts(ctx context.Context) ([]ReorderAlert, error) {
	query := `
		SELECT product_id, quantity_on_hand, reorder_level, raised_at, updated_at
		FROM reorder_alerts
		ORDER BY quantity_on_hand, product_id
	`

	alerts := []ReorderAlert{}
	if err := m.db.SelectContext(ctx, &alerts, query); err != nil {
		return nil, fmt.Errorf("failed to list reorder alerts: %w", err)
	}
	return alerts, nil
}
