package report

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SalesReport aggregates finalized invoices issued in a time window
type SalesReport struct {
	From              *time.Time      `json:"from,omitempty"`
	To                *time.Time      `json:"to,omitempty"`
	InvoiceCount      int             `json:"invoice_count"`
	ItemsSold         int             `json:"items_sold"`
	Subtotal          decimal.Decimal `json:"subtotal"`
	Tax               decimal.Decimal `json:"tax"`
	Total             decimal.Decimal `json:"total"`
	AverageOrderValue decimal.Decimal `json:"average_order_value"`
	Daily             []DailySales    `json:"daily"`
}

// DailySales is one UTC calendar day of a SalesReport
type DailySales struct {
	Date         string          `json:"date"`
	InvoiceCount int             `json:"invoice_count"`
	Total        decimal.Decimal `json:"total"`
}

// ProductPerformance is the sales record of one product
type ProductPerformance struct {
	ProductID      string          `json:"product_id"`
	Name           string          `json:"name"`
	Category       string          `json:"category"`
	UnitsSold      int             `json:"units_sold"`
	Revenue        decimal.Decimal `json:"revenue"`
	QuantityOnHand int             `json:"quantity_on_hand"`
	ReorderLevel   int             `json:"reorder_level"`
	NeedsReorder   bool            `json:"needs_reorder"`
}

// CustomerSummary is the purchase history of one customer
type CustomerSummary struct {
	CustomerID        uuid.UUID       `json:"customer_id"`
	Name              string          `json:"name"`
	Email             string          `json:"email"`
	InvoiceCount      int             `json:"invoice_count"`
	ItemsBought       int             `json:"items_bought"`
	TotalSpent        decimal.Decimal `json:"total_spent"`
	AverageOrderValue decimal.Decimal `json:"average_order_value"`
}

// InventoryReport summarizes active stock by category
type InventoryReport struct {
	ProductCount int               `json:"product_count"`
	TotalUnits   int               `json:"total_units"`
	TotalValue   decimal.Decimal   `json:"total_value"`
	Categories   []CategorySummary `json:"categories"`
	LowStock     []LowStockItem    `json:"low_stock"`
}

// CategorySummary is one category row of an InventoryReport
type CategorySummary struct {
	Category     string          `json:"category"`
	ProductCount int             `json:"product_count"`
	Units        int             `json:"units"`
	Value        decimal.Decimal `json:"value"`
}

// LowStockItem is a product below its reorder level
type LowStockItem struct {
	ProductID      string `json:"product_id"`
	Name           string `json:"name"`
	QuantityOnHand int    `json:"quantity_on_hand"`
	ReorderLevel   int    `json:"reorder_level"`
}
