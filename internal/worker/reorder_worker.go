package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/Pesokrava/invoicing/internal/domain"
	"github.com/Pesokrava/invoicing/internal/pkg/logger"
)

const (
	// DefaultDebounceWindow collects events for the same product within this duration
	DefaultDebounceWindow = 1 * time.Second

	maxRetries     = 3
	initialBackoff = 100 * time.Millisecond
	checkTimeout   = 5 * time.Second
)

// StockChecker reconciles reorder state for one product
type StockChecker interface {
	Check(ctx context.Context, productID string) error
}

// ReorderWorker turns invoice events into debounced per-product stock checks
type ReorderWorker struct {
	checker  StockChecker
	logger   *logger.Logger
	debounce time.Duration

	mu         sync.Mutex
	pending    map[string]*pendingCheck
	shutdownCh chan struct{}
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
}

type pendingCheck struct {
	productID string
	timestamp time.Time
	timer     *time.Timer
}

// NewReorderWorker creates a new reorder worker. A non-positive debounce uses DefaultDebounceWindow.
func NewReorderWorker(checker StockChecker, debounce time.Duration, log *logger.Logger) *ReorderWorker {
	if debounce <= 0 {
		debounce = DefaultDebounceWindow
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &ReorderWorker{
		checker:    checker,
		logger:     log,
		debounce:   debounce,
		pending:    make(map[string]*pendingCheck),
		shutdownCh: make(chan struct{}),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// HandleEvent schedules a stock check for every product on the invoice
func (w *ReorderWorker) HandleEvent(data []byte) error {
	var event domain.InvoiceEvent
	if err := json.Unmarshal(data, &event); err != nil {
		w.logger.Error("Failed to unmarshal invoice event", err)
		return fmt.Errorf("failed to unmarshal event: %w", err)
	}

	productIDs := event.ProductIDs()

	w.logger.WithFields(map[string]any{
		"event_type": event.EventType,
		"invoice_id": event.InvoiceID.String(),
		"products":   len(productIDs),
		"timestamp":  event.Timestamp,
	}).Info("Received invoice event")

	for _, id := range productIDs {
		w.schedule(id, event.Timestamp)
	}

	return nil
}

// schedule debounces checks: several events for one product within the window produce one check
func (w *ReorderWorker) schedule(productID string, timestamp time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()

	select {
	case <-w.shutdownCh:
		w.logger.Info("Worker shutting down, ignoring new event")
		return
	default:
	}

	existing, found := w.pending[productID]
	if found {
		if timestamp.Before(existing.timestamp) {
			timestamp = existing.timestamp
		}

		// A timer that already fired still owns its wait group slot
		if existing.timer.Stop() {
			w.wg.Done()
		}
		w.logger.WithFields(map[string]any{
			"product_id": productID,
		}).Debug("Debouncing: resetting timer for product")
	}

	w.wg.Add(1)
	check := &pendingCheck{productID: productID, timestamp: timestamp}
	check.timer = time.AfterFunc(w.debounce, func() {
		w.process(check)
	})
	w.pending[productID] = check
}

// process runs the stock check with retry and exponential backoff
func (w *ReorderWorker) process(check *pendingCheck) {
	defer w.wg.Done()

	w.mu.Lock()
	if w.pending[check.productID] == check {
		delete(w.pending, check.productID)
	}
	w.mu.Unlock()

	if w.ctx.Err() != nil {
		return
	}

	var lastErr error
	backoff := initialBackoff

	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			w.logger.WithFields(map[string]any{
				"product_id": check.productID,
				"attempt":    attempt + 1,
				"backoff_ms": backoff.Milliseconds(),
			}).Warn("Retrying stock check")

			select {
			case <-time.After(backoff):
			case <-w.ctx.Done():
				w.logger.Info("Worker context cancelled, aborting retry")
				return
			}

			backoff *= 2
		}

		ctx, cancel := context.WithTimeout(w.ctx, checkTimeout)
		err := w.checker.Check(ctx, check.productID)
		cancel()

		if err == nil {
			return
		}

		lastErr = err
		w.logger.WithFields(map[string]any{
			"product_id": check.productID,
			"attempt":    attempt + 1,
		}).Error("Stock check failed", err)
	}

	w.logger.WithFields(map[string]any{
		"product_id":  check.productID,
		"max_retries": maxRetries,
	}).Error("Stock check failed after all retries", lastErr)
}

// Shutdown cancels pending checks and waits for in-flight ones to complete
func (w *ReorderWorker) Shutdown(ctx context.Context) error {
	w.logger.Info("Shutting down reorder worker...")

	w.mu.Lock()
	close(w.shutdownCh)
	w.cancel()

	cancelled := 0
	for _, check := range w.pending {
		if check.timer.Stop() {
			w.wg.Done()
			cancelled++
		}
	}
	w.pending = make(map[string]*pendingCheck)
	w.mu.Unlock()

	w.logger.WithFields(map[string]any{
		"cancelled_checks": cancelled,
	}).Info("Cancelled pending checks")

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("All in-flight checks completed")
		return nil
	case <-ctx.Done():
		w.logger.Warn("Shutdown timeout reached, forcing exit")
		return ctx.Err()
	}
}

// PendingCount returns the number of scheduled checks
func (w *ReorderWorker) PendingCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}
