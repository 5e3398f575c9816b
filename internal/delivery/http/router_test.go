package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pesokrava/invoicing/internal/config"
	"github.com/Pesokrava/invoicing/internal/delivery/http/handler"
	"github.com/Pesokrava/invoicing/internal/pkg/logger"
	"github.com/Pesokrava/invoicing/internal/pricing"
	"github.com/Pesokrava/invoicing/internal/repository/cache"
	"github.com/Pesokrava/invoicing/internal/repository/memory"
	"github.com/Pesokrava/invoicing/internal/usecase/catalog"
	"github.com/Pesokrava/invoicing/internal/usecase/customer"
	"github.com/Pesokrava/invoicing/internal/usecase/invoice"
	"github.com/Pesokrava/invoicing/internal/usecase/report"
)

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, []byte) error { return nil }

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	log := logger.New("test")
	store := memory.NewStore()
	nop := cache.NopCache{}

	catalogService := catalog.NewService(store.Products(), nop, log)
	invoiceService := invoice.NewService(store.Invoices(), store.Customers(), catalogService,
		pricing.NewEngine(), nopPublisher{}, nop, decimal.RequireFromString("0.08"), log)

	router := NewRouter(Handlers{
		Products:  handler.NewProductHandler(catalogService, log),
		Customers: handler.NewCustomerHandler(customer.NewService(store.Customers(), log), log),
		Invoices:  handler.NewInvoiceHandler(invoiceService, log),
		Reports:   handler.NewReportHandler(report.NewService(store.Products(), store.Customers(), store.Invoices(), nop, log), log),
	}, &config.Config{Server: config.ServerConfig{AllowedOrigins: []string{"*"}}}, log)

	srv := httptest.NewServer(router.Setup())
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	if resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	}
	return resp, decoded
}

func TestRouter_Health(t *testing.T) {
	srv := newTestServer(t)

	resp, body := do(t, http.MethodGet, srv.URL+"/health", nil)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", body["status"])
	assert.NotEmpty(t, resp.Header.Get("Content-Type"))
}

func TestRouter_SaleThroughTheAPI(t *testing.T) {
	srv := newTestServer(t)
	api := srv.URL + "/api/v1"

	resp, _ := do(t, http.MethodPost, api+"/products", map[string]any{
		"id": "WID-1", "name": "Widget", "price": "50", "quantity_on_hand": 5,
		"discount_rules": []map[string]any{{"kind": "bulk", "rate": "20", "threshold": 5}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := do(t, http.MethodPost, api+"/customers", map[string]any{"name": "Alice"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	customerID := body["data"].(map[string]any)["id"].(string)

	resp, body = do(t, http.MethodPost, api+"/invoices", map[string]any{"customer_id": customerID})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	invoiceID := body["data"].(map[string]any)["id"].(string)

	resp, _ = do(t, http.MethodPost, api+"/invoices/"+invoiceID+"/items", map[string]any{"product_id": "WID-1", "quantity": 5})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = do(t, http.MethodPost, api+"/invoices/"+invoiceID+"/finalize", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	total, err := decimal.NewFromString(body["data"].(map[string]any)["total"].(string))
	require.NoError(t, err)
	assert.Equal(t, "216.00", total.StringFixed(2))

	resp, body = do(t, http.MethodGet, api+"/products/low-stock", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["data"], 1)

	resp, body = do(t, http.MethodGet, api+"/reports/sales?from=2000-01-01", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1.0, body["data"].(map[string]any)["invoice_count"])

	resp, _ = do(t, http.MethodDelete, api+"/invoices/"+invoiceID, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestRouter_UnknownRoute(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/widgets")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
