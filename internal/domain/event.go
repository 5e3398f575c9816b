package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Invoice lifecycle event types
const (
	EventInvoiceFinalized = "invoice.finalized"
	EventInvoiceCancelled = "invoice.cancelled"
)

// InvoiceEvent is published after an invoice changes status
type InvoiceEvent struct {
	EventType  string             `json:"event_type"`
	Timestamp  time.Time          `json:"timestamp"`
	InvoiceID  uuid.UUID          `json:"invoice_id"`
	CustomerID uuid.UUID          `json:"customer_id"`
	Status     InvoiceStatus      `json:"status"`
	Total      decimal.Decimal    `json:"total"`
	Items      []InvoiceEventItem `json:"items"`
}

// InvoiceEventItem is the stock movement carried by an InvoiceEvent
type InvoiceEventItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// NewInvoiceEvent snapshots the invoice into an event
func NewInvoiceEvent(eventType string, inv *Invoice, at time.Time) InvoiceEvent {
	items := make([]InvoiceEventItem, len(inv.Items))
	for i, item := range inv.Items {
		items[i] = InvoiceEventItem{ProductID: item.ProductID, Quantity: item.Quantity}
	}

	return InvoiceEvent{
		EventType:  eventType,
		Timestamp:  at,
		InvoiceID:  inv.ID,
		CustomerID: inv.CustomerID,
		Status:     inv.Status,
		Total:      inv.Total.Decimal,
		Items:      items,
	}
}

// ProductIDs returns the distinct products touched by the event, in item order
func (e InvoiceEvent) ProductIDs() []string {
	seen := make(map[string]struct{}, len(e.Items))
	ids := make([]string, 0, len(e.Items))
	for _, item := range e.Items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}
	return ids
}
