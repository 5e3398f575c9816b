package handler

import (
	"math"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pesokrava/invoicing/internal/domain"
)

func createCustomer(t *testing.T, api *testAPI, name string) domain.Customer {
	t.Helper()
	w := call(api.customers.Create, http.MethodPost, "/api/v1/customers", map[string]string{"name": name}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var c domain.Customer
	decodeData(t, w, &c)
	return c
}

func openDraft(t *testing.T, api *testAPI, customerID uuid.UUID) domain.Invoice {
	t.Helper()
	w := call(api.invoices.Create, http.MethodPost, "/api/v1/invoices",
		map[string]any{"customer_id": customerID.String()}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var inv domain.Invoice
	decodeData(t, w, &inv)
	return inv
}

func TestInvoiceHandler_FullLifecycle(t *testing.T) {
	api := newTestAPI(t)
	createProduct(t, api, map[string]any{
		"id":               "WID-1",
		"name":             "Widget",
		"price":            "50",
		"quantity_on_hand": 5,
		"discount_rules":   []map[string]any{{"kind": "bulk", "rate": "20", "threshold": 5}},
	})
	c := createCustomer(t, api, "Alice")
	draft := openDraft(t, api, c.ID)
	assert.Equal(t, domain.InvoiceDraft, draft.Status)
	assert.Equal(t, "0.08", draft.TaxRate.String())

	params := map[string]string{"id": draft.ID.String()}

	w := call(api.invoices.AddItem, http.MethodPost, "/api/v1/invoices/x/items",
		map[string]any{"product_id": "WID-1", "quantity": 5}, params)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = call(api.invoices.Finalize, http.MethodPost, "/api/v1/invoices/x/finalize", nil, params)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var inv domain.Invoice
	decodeData(t, w, &inv)
	assert.Equal(t, domain.InvoiceFinalized, inv.Status)
	assert.Equal(t, "200.00", inv.Subtotal.Decimal.StringFixed(2))
	assert.Equal(t, "16.00", inv.Tax.Decimal.StringFixed(2))
	assert.Equal(t, "216.00", inv.Total.Decimal.StringFixed(2))
	assert.Equal(t, "40.00", inv.Items[0].DiscountedUnitPrice.Decimal.StringFixed(2))

	w = call(api.products.GetByID, http.MethodGet, "/api/v1/products/WID-1", nil, map[string]string{"id": "WID-1"})
	var product domain.Product
	decodeData(t, w, &product)
	assert.Equal(t, 0, product.QuantityOnHand)

	w = call(api.invoices.Finalize, http.MethodPost, "/api/v1/invoices/x/finalize", nil, params)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = call(api.invoices.Cancel, http.MethodPost, "/api/v1/invoices/x/cancel", nil, params)
	require.Equal(t, http.StatusOK, w.Code)
	decodeData(t, w, &inv)
	assert.Equal(t, domain.InvoiceCancelled, inv.Status)

	w = call(api.products.GetByID, http.MethodGet, "/api/v1/products/WID-1", nil, map[string]string{"id": "WID-1"})
	decodeData(t, w, &product)
	assert.Equal(t, 5, product.QuantityOnHand)

	w = call(api.invoices.Cancel, http.MethodPost, "/api/v1/invoices/x/cancel", nil, params)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestInvoiceHandler_AddItem_Errors(t *testing.T) {
	api := newTestAPI(t)
	createProduct(t, api, map[string]any{"id": "WID-1", "name": "Widget", "price": "50", "quantity_on_hand": 5})
	c := createCustomer(t, api, "Alice")
	draft := openDraft(t, api, c.ID)
	params := map[string]string{"id": draft.ID.String()}

	tests := []struct {
		name   string
		body   map[string]any
		status int
	}{
		{name: "more than on hand", body: map[string]any{"product_id": "WID-1", "quantity": 6}, status: http.StatusConflict},
		{name: "zero quantity", body: map[string]any{"product_id": "WID-1", "quantity": 0}, status: http.StatusBadRequest},
		{name: "quantity beyond int32", body: map[string]any{"product_id": "WID-1", "quantity": int64(math.MaxInt32) + 1}, status: http.StatusBadRequest},
		{name: "unknown product", body: map[string]any{"product_id": "NOPE", "quantity": 1}, status: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := call(api.invoices.AddItem, http.MethodPost, "/api/v1/invoices/x/items", tt.body, params)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}

	w := call(api.invoices.AddItem, http.MethodPost, "/api/v1/invoices/x/items",
		map[string]any{"product_id": "WID-1", "quantity": 1}, map[string]string{"id": "not-a-uuid"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid invoice ID", errorMessage(t, w))
}

func TestInvoiceHandler_FinalizeEmpty(t *testing.T) {
	api := newTestAPI(t)
	c := createCustomer(t, api, "Alice")
	draft := openDraft(t, api, c.ID)

	w := call(api.invoices.Finalize, http.MethodPost, "/api/v1/invoices/x/finalize", nil,
		map[string]string{"id": draft.ID.String()})

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestInvoiceHandler_RemoveItemAndDiscard(t *testing.T) {
	api := newTestAPI(t)
	createProduct(t, api, map[string]any{"id": "WID-1", "name": "Widget", "price": "50", "quantity_on_hand": 5})
	c := createCustomer(t, api, "Alice")
	draft := openDraft(t, api, c.ID)
	id := draft.ID.String()

	w := call(api.invoices.AddItem, http.MethodPost, "/api/v1/invoices/x/items",
		map[string]any{"product_id": "WID-1", "quantity": 2}, map[string]string{"id": id})
	require.Equal(t, http.StatusOK, w.Code)

	w = call(api.invoices.RemoveItem, http.MethodDelete, "/api/v1/invoices/x/items/3", nil,
		map[string]string{"id": id, "index": "3"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = call(api.invoices.RemoveItem, http.MethodDelete, "/api/v1/invoices/x/items/first", nil,
		map[string]string{"id": id, "index": "first"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = call(api.invoices.RemoveItem, http.MethodDelete, "/api/v1/invoices/x/items/0", nil,
		map[string]string{"id": id, "index": "0"})
	require.Equal(t, http.StatusOK, w.Code)
	var inv domain.Invoice
	decodeData(t, w, &inv)
	assert.Empty(t, inv.Items)

	w = call(api.invoices.Discard, http.MethodDelete, "/api/v1/invoices/x", nil, map[string]string{"id": id})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = call(api.invoices.GetByID, http.MethodGet, "/api/v1/invoices/x", nil, map[string]string{"id": id})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestInvoiceHandler_Create_Errors(t *testing.T) {
	api := newTestAPI(t)

	w := call(api.invoices.Create, http.MethodPost, "/api/v1/invoices", map[string]any{"customer_id": "bob"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = call(api.invoices.Create, http.MethodPost, "/api/v1/invoices", map[string]any{"customer_id": uuid.NewString()}, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	c := createCustomer(t, api, "Alice")
	w = call(api.invoices.Create, http.MethodPost, "/api/v1/invoices",
		map[string]any{"customer_id": c.ID.String(), "tax_rate": "1.5"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = call(api.invoices.Create, http.MethodPost, "/api/v1/invoices",
		map[string]any{"customer_id": c.ID.String(), "tax_rate": "0.08125"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, errorMessage(t, w), "decimal places")
}

func TestInvoiceHandler_List(t *testing.T) {
	api := newTestAPI(t)
	alice := createCustomer(t, api, "Alice")
	bob := createCustomer(t, api, "Bob")
	openDraft(t, api, alice.ID)
	openDraft(t, api, alice.ID)
	openDraft(t, api, bob.ID)

	w := call(api.invoices.List, http.MethodGet, "/api/v1/invoices?customer_id="+alice.ID.String(), nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var invoices []domain.Invoice
	decodeData(t, w, &invoices)
	assert.Len(t, invoices, 2)

	w = call(api.invoices.List, http.MethodGet, "/api/v1/invoices?status=finalized", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decodeData(t, w, &invoices)
	assert.Empty(t, invoices)

	w = call(api.invoices.List, http.MethodGet, "/api/v1/invoices?status=paid", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = call(api.invoices.List, http.MethodGet, "/api/v1/invoices?from=last-week", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
