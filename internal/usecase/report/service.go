// Package report builds read-only sales, product, customer and inventory
// reports. Only FINALIZED invoices count as sales.
package report

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Pesokrava/invoicing/internal/domain"
	"github.com/Pesokrava/invoicing/internal/pkg/logger"
	"github.com/Pesokrava/invoicing/internal/pricing"
)

// Report cache names
const (
	nameSales     = "sales"
	nameProducts  = "products"
	nameCustomers = "customers"
	nameInventory = "inventory"
)

// Cache stores computed reports until a sale or catalog change invalidates them
type Cache interface {
	GetReport(ctx context.Context, name, params string, dest any) error
	SetReport(ctx context.Context, name, params string, report any) error
}

// Service builds reports
type Service struct {
	products  domain.ProductRepository
	customers domain.CustomerRepository
	invoices  domain.InvoiceRepository
	cache     Cache
	logger    *logger.Logger
}

// NewService creates a new report service
func NewService(
	products domain.ProductRepository,
	customers domain.CustomerRepository,
	invoices domain.InvoiceRepository,
	cache Cache,
	log *logger.Logger,
) *Service {
	return &Service{
		products:  products,
		customers: customers,
		invoices:  invoices,
		cache:     cache,
		logger:    log.Component("report"),
	}
}

// Sales aggregates finalized invoices issued in [from, to). Either bound may be nil.
func (s *Service) Sales(ctx context.Context, from, to *time.Time) (*SalesReport, error) {
	if from != nil && to != nil && !from.Before(*to) {
		return nil, domain.NewValidationError("report window start %s must be before end %s",
			from.Format(time.RFC3339), to.Format(time.RFC3339))
	}

	return cached(ctx, s, nameSales, windowKey(from, to), func() (*SalesReport, error) {
		invoices, err := s.finalized(ctx, from, to)
		if err != nil {
			return nil, err
		}

		report := &SalesReport{
			From:     from,
			To:       to,
			Subtotal: decimal.Zero,
			Tax:      decimal.Zero,
			Total:    decimal.Zero,
			Daily:    []DailySales{},
		}

		days := make(map[string]*DailySales)
		for _, inv := range invoices {
			report.InvoiceCount++
			report.ItemsSold += inv.ItemCount()
			report.Subtotal = report.Subtotal.Add(inv.Subtotal.Decimal)
			report.Tax = report.Tax.Add(inv.Tax.Decimal)
			report.Total = report.Total.Add(inv.Total.Decimal)

			date := inv.IssuedAt().UTC().Format(time.DateOnly)
			day, ok := days[date]
			if !ok {
				day = &DailySales{Date: date, Total: decimal.Zero}
				days[date] = day
			}
			day.InvoiceCount++
			day.Total = day.Total.Add(inv.Total.Decimal)
		}

		for _, day := range days {
			report.Daily = append(report.Daily, *day)
		}
		sort.Slice(report.Daily, func(i, j int) bool { return report.Daily[i].Date < report.Daily[j].Date })

		report.AverageOrderValue = average(report.Total, report.InvoiceCount)
		return report, nil
	})
}

// ProductPerformance lists units sold and revenue per product, best sellers first.
// Products without sales are omitted.
func (s *Service) ProductPerformance(ctx context.Context) ([]ProductPerformance, error) {
	return cached(ctx, s, nameProducts, "all", func() ([]ProductPerformance, error) {
		invoices, err := s.finalized(ctx, nil, nil)
		if err != nil {
			return nil, err
		}

		products, err := s.products.List(ctx, domain.ProductFilter{IncludeRetired: true})
		if err != nil {
			return nil, fmt.Errorf("failed to list products: %w", err)
		}
		byID := make(map[string]*domain.Product, len(products))
		for _, p := range products {
			byID[p.ID] = p
		}

		stats := make(map[string]*ProductPerformance)
		for _, inv := range invoices {
			for _, item := range inv.Items {
				row, ok := stats[item.ProductID]
				if !ok {
					row = &ProductPerformance{ProductID: item.ProductID, Revenue: decimal.Zero}
					if p, found := byID[item.ProductID]; found {
						row.Name = p.Name
						row.Category = p.Category
						row.QuantityOnHand = p.QuantityOnHand
						row.ReorderLevel = p.ReorderLevel
						row.NeedsReorder = p.IsBelowReorderLevel()
					}
					stats[item.ProductID] = row
				}
				row.UnitsSold += item.Quantity
				row.Revenue = row.Revenue.Add(item.Subtotal.Decimal)
			}
		}

		rows := make([]ProductPerformance, 0, len(stats))
		for _, row := range stats {
			rows = append(rows, *row)
		}
		sort.Slice(rows, func(i, j int) bool {
			if c := rows[i].Revenue.Cmp(rows[j].Revenue); c != 0 {
				return c > 0
			}
			return rows[i].ProductID < rows[j].ProductID
		})

		return rows, nil
	})
}

// CustomerAnalysis lists spend per customer, biggest spenders first.
// Customers without finalized invoices are omitted.
func (s *Service) CustomerAnalysis(ctx context.Context) ([]CustomerSummary, error) {
	return cached(ctx, s, nameCustomers, "all", func() ([]CustomerSummary, error) {
		invoices, err := s.finalized(ctx, nil, nil)
		if err != nil {
			return nil, err
		}

		customers, err := s.customers.List(ctx, 0, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to list customers: %w", err)
		}
		byID := make(map[uuid.UUID]*domain.Customer, len(customers))
		for _, c := range customers {
			byID[c.ID] = c
		}

		stats := make(map[uuid.UUID]*CustomerSummary)
		for _, inv := range invoices {
			row, ok := stats[inv.CustomerID]
			if !ok {
				row = &CustomerSummary{CustomerID: inv.CustomerID, TotalSpent: decimal.Zero}
				if c, found := byID[inv.CustomerID]; found {
					row.Name = c.Name
					row.Email = c.Email
				}
				stats[inv.CustomerID] = row
			}
			row.InvoiceCount++
			row.ItemsBought += inv.ItemCount()
			row.TotalSpent = row.TotalSpent.Add(inv.Total.Decimal)
		}

		rows := make([]CustomerSummary, 0, len(stats))
		for _, row := range stats {
			row.AverageOrderValue = average(row.TotalSpent, row.InvoiceCount)
			rows = append(rows, *row)
		}
		sort.Slice(rows, func(i, j int) bool {
			if c := rows[i].TotalSpent.Cmp(rows[j].TotalSpent); c != 0 {
				return c > 0
			}
			return rows[i].CustomerID.String() < rows[j].CustomerID.String()
		})

		return rows, nil
	})
}

// Inventory summarizes active products by category and lists low stock
func (s *Service) Inventory(ctx context.Context) (*InventoryReport, error) {
	return cached(ctx, s, nameInventory, "all", func() (*InventoryReport, error) {
		products, err := s.products.List(ctx, domain.ProductFilter{})
		if err != nil {
			return nil, fmt.Errorf("failed to list products: %w", err)
		}

		report := &InventoryReport{
			TotalValue: decimal.Zero,
			Categories: []CategorySummary{},
			LowStock:   []LowStockItem{},
		}

		categories := make(map[string]*CategorySummary)
		for _, p := range products {
			value := p.StockValue()
			report.ProductCount++
			report.TotalUnits += p.QuantityOnHand
			report.TotalValue = report.TotalValue.Add(value)

			cat, ok := categories[p.Category]
			if !ok {
				cat = &CategorySummary{Category: p.Category, Value: decimal.Zero}
				categories[p.Category] = cat
			}
			cat.ProductCount++
			cat.Units += p.QuantityOnHand
			cat.Value = cat.Value.Add(value)

			if p.IsBelowReorderLevel() {
				report.LowStock = append(report.LowStock, LowStockItem{
					ProductID:      p.ID,
					Name:           p.Name,
					QuantityOnHand: p.QuantityOnHand,
					ReorderLevel:   p.ReorderLevel,
				})
			}
		}

		for _, cat := range categories {
			cat.Value = pricing.Round(cat.Value)
			report.Categories = append(report.Categories, *cat)
		}
		sort.Slice(report.Categories, func(i, j int) bool {
			return report.Categories[i].Category < report.Categories[j].Category
		})
		report.TotalValue = pricing.Round(report.TotalValue)

		return report, nil
	})
}

func (s *Service) finalized(ctx context.Context, from, to *time.Time) ([]*domain.Invoice, error) {
	invoices, err := s.invoices.List(ctx, domain.InvoiceFilter{
		Status: domain.InvoiceFinalized,
		From:   from,
		To:     to,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list finalized invoices: %w", err)
	}
	return invoices, nil
}

// cached serves name/params from the cache or builds and stores it
func cached[T any](ctx context.Context, s *Service, name, params string, build func() (T, error)) (T, error) {
	var report T
	err := s.cache.GetReport(ctx, name, params, &report)
	if err == nil {
		s.logger.Debugf("Cache hit for %s report (%s)", name, params)
		return report, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		s.logger.Warnf("Failed to read %s report from cache: %v", name, err)
	}

	report, err = build()
	if err != nil {
		s.logger.Errorf(err, "Failed to build %s report", name)
		return report, err
	}

	if err := s.cache.SetReport(ctx, name, params, report); err != nil {
		s.logger.Warnf("Failed to cache %s report: %v", name, err)
	}

	return report, nil
}

func windowKey(from, to *time.Time) string {
	format := func(t *time.Time) string {
		if t == nil {
			return "open"
		}
		return t.UTC().Format(time.RFC3339)
	}
	return format(from) + "_" + format(to)
}

func average(total decimal.Decimal, count int) decimal.Decimal {
	if count == 0 {
		return decimal.Zero
	}
	return pricing.Round(total.Div(decimal.NewFromInt(int64(count))))
}
