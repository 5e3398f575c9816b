package handler

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pesokrava/invoicing/internal/domain"
)

func TestCustomerHandler_CreateAndGet(t *testing.T) {
	api := newTestAPI(t)
	c := createCustomer(t, api, "Alice")
	assert.NotEqual(t, uuid.Nil, c.ID)

	w := call(api.customers.GetByID, http.MethodGet, "/api/v1/customers/x", nil, map[string]string{"id": c.ID.String()})
	require.Equal(t, http.StatusOK, w.Code)
	var got domain.Customer
	decodeData(t, w, &got)
	assert.Equal(t, "Alice", got.Name)
}

func TestCustomerHandler_Create_Invalid(t *testing.T) {
	api := newTestAPI(t)

	w := call(api.customers.Create, http.MethodPost, "/api/v1/customers", map[string]string{"email": "alice@example.com"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = call(api.customers.Create, http.MethodPost, "/api/v1/customers", map[string]string{"name": "Alice", "email": "nope"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCustomerHandler_GetByID_Errors(t *testing.T) {
	api := newTestAPI(t)

	w := call(api.customers.GetByID, http.MethodGet, "/api/v1/customers/x", nil, map[string]string{"id": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = call(api.customers.GetByID, http.MethodGet, "/api/v1/customers/x", nil, map[string]string{"id": uuid.NewString()})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCustomerHandler_List(t *testing.T) {
	api := newTestAPI(t)
	createCustomer(t, api, "Bob")
	createCustomer(t, api, "Alice")

	w := call(api.customers.List, http.MethodGet, "/api/v1/customers", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var customers []domain.Customer
	decodeData(t, w, &customers)
	require.Len(t, customers, 2)
	assert.Equal(t, "Alice", customers[0].Name)
}
