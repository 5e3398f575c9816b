package handler

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Pesokrava/invoicing/internal/delivery/http/request"
	"github.com/Pesokrava/invoicing/internal/delivery/http/response"
	"github.com/Pesokrava/invoicing/internal/domain"
	"github.com/Pesokrava/invoicing/internal/pkg/logger"
	"github.com/Pesokrava/invoicing/internal/usecase/invoice"
)

// InvoiceHandler handles HTTP requests for invoices
type InvoiceHandler struct {
	service *invoice.Service
	logger  *logger.Logger
}

// NewInvoiceHandler creates a new invoice handler
func NewInvoiceHandler(service *invoice.Service, log *logger.Logger) *InvoiceHandler {
	return &InvoiceHandler{
		service: service,
		logger:  log,
	}
}

// CreateInvoiceRequest represents the request body for opening a draft invoice
type CreateInvoiceRequest struct {
	CustomerID string           `json:"customer_id"`
	TaxRate    *decimal.Decimal `json:"tax_rate,omitempty" swaggertype:"string" example:"0.08"`
}

// AddItemRequest represents the request body for adding a line to a draft
type AddItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// Create handles POST /api/v1/invoices
// @Summary Open a draft invoice
// @Description Tax rate is a fraction (0.08 = 8%). Omitted uses the configured default.
// @Tags Invoices
// @Accept json
// @Produce json
// @Param invoice body CreateInvoiceRequest true "Customer and optional tax rate"
// @Success 201 {object} response.Envelope "Draft created"
// @Failure 400 {object} response.ErrorBody "Invalid request"
// @Failure 404 {object} response.ErrorBody "Customer not found"
// @Failure 500 {object} response.ErrorBody "Internal server error"
// @Router /invoices [post]
func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateInvoiceRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid customer ID")
		return
	}

	inv, err := h.service.Create(r.Context(), customerID, req.TaxRate)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Created(w, inv)
}

// GetByID handles GET /api/v1/invoices/{id}
// @Summary Get an invoice with its items
// @Tags Invoices
// @Produce json
// @Param id path string true "Invoice ID (UUID)"
// @Success 200 {object} response.Envelope "Invoice details"
// @Failure 400 {object} response.ErrorBody "Invalid invoice ID"
// @Failure 404 {object} response.ErrorBody "Invoice not found"
// @Failure 500 {object} response.ErrorBody "Internal server error"
// @Router /invoices/{id} [get]
func (h *InvoiceHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := request.GetUUIDParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid invoice ID")
		return
	}

	inv, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Success(w, inv)
}

// List handles GET /api/v1/invoices
// @Summary List invoices
// @Description Newest first. from/to bound the issue date, a plain-date "to" is inclusive.
// @Tags Invoices
// @Produce json
// @Param status query string false "DRAFT, FINALIZED or CANCELLED"
// @Param customer_id query string false "Customer ID (UUID)"
// @Param from query string false "Start date (YYYY-MM-DD or RFC3339)"
// @Param to query string false "End date (YYYY-MM-DD or RFC3339)"
// @Param limit query int false "Number of items per page (max 100)" default(20)
// @Param offset query int false "Number of items to skip" default(0)
// @Success 200 {object} response.Envelope "Paginated list of invoices"
// @Failure 400 {object} response.ErrorBody "Invalid filter"
// @Failure 500 {object} response.ErrorBody "Internal server error"
// @Router /invoices [get]
func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := request.GetPaginationParams(r)

	customerID, err := request.GetUUIDQuery(r, "customer_id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid customer ID")
		return
	}

	from, to, err := request.GetDateRange(r)
	if err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	filter := domain.InvoiceFilter{
		Status:     domain.InvoiceStatus(strings.ToUpper(r.URL.Query().Get("status"))),
		CustomerID: customerID,
		From:       from,
		To:         to,
		Limit:      limit,
		Offset:     offset,
	}

	invoices, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Paginated(w, invoices, total, limit, offset)
}

// Discard handles DELETE /api/v1/invoices/{id}
// @Summary Discard a draft invoice
// @Tags Invoices
// @Param id path string true "Invoice ID (UUID)"
// @Success 204 "Draft discarded"
// @Failure 404 {object} response.ErrorBody "Invoice not found"
// @Failure 409 {object} response.ErrorBody "Invoice is not a draft"
// @Failure 500 {object} response.ErrorBody "Internal server error"
// @Router /invoices/{id} [delete]
func (h *InvoiceHandler) Discard(w http.ResponseWriter, r *http.Request) {
	id, err := request.GetUUIDParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid invoice ID")
		return
	}

	if err := h.service.Discard(r.Context(), id); err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.NoContent(w)
}

// AddItem handles POST /api/v1/invoices/{id}/items
// @Summary Add a line to a draft
// @Description Stock is checked but not reserved
// @Tags Invoices
// @Accept json
// @Produce json
// @Param id path string true "Invoice ID (UUID)"
// @Param item body AddItemRequest true "Product and quantity"
// @Success 200 {object} response.Envelope "Updated draft"
// @Failure 400 {object} response.ErrorBody "Invalid quantity or retired product"
// @Failure 404 {object} response.ErrorBody "Invoice or product not found"
// @Failure 409 {object} response.ErrorBody "Not a draft or insufficient stock"
// @Failure 500 {object} response.ErrorBody "Internal server error"
// @Router /invoices/{id}/items [post]
func (h *InvoiceHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	id, err := request.GetUUIDParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid invoice ID")
		return
	}

	var req AddItemRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	inv, err := h.service.AddItem(r.Context(), id, req.ProductID, req.Quantity)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Success(w, inv)
}

// RemoveItem handles DELETE /api/v1/invoices/{id}/items/{index}
// @Summary Remove a line from a draft
// @Tags Invoices
// @Produce json
// @Param id path string true "Invoice ID (UUID)"
// @Param index path int true "Zero-based line index"
// @Success 200 {object} response.Envelope "Updated draft"
// @Failure 400 {object} response.ErrorBody "Invalid index"
// @Failure 404 {object} response.ErrorBody "Invoice or line not found"
// @Failure 409 {object} response.ErrorBody "Invoice is not a draft"
// @Failure 500 {object} response.ErrorBody "Internal server error"
// @Router /invoices/{id}/items/{index} [delete]
func (h *InvoiceHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	id, err := request.GetUUIDParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid invoice ID")
		return
	}

	index, err := request.GetIntParam(r, "index")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid item index")
		return
	}

	inv, err := h.service.RemoveItem(r.Context(), id, index)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Success(w, inv)
}

// Finalize handles POST /api/v1/invoices/{id}/finalize
// @Summary Finalize a draft
// @Description Prices every line at the current price and discounts, computes tax, decrements stock and freezes the totals. All or nothing.
// @Tags Invoices
// @Produce json
// @Param id path string true "Invoice ID (UUID)"
// @Success 200 {object} response.Envelope "Finalized invoice"
// @Failure 404 {object} response.ErrorBody "Invoice or product not found"
// @Failure 409 {object} response.ErrorBody "Not a draft, empty, or insufficient stock"
// @Failure 500 {object} response.ErrorBody "Internal server error"
// @Router /invoices/{id}/finalize [post]
func (h *InvoiceHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	id, err := request.GetUUIDParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid invoice ID")
		return
	}

	inv, err := h.service.Finalize(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Success(w, inv)
}

// Cancel handles POST /api/v1/invoices/{id}/cancel
// @Summary Cancel a finalized invoice
// @Description Refund: restores the stock of every line
// @Tags Invoices
// @Produce json
// @Param id path string true "Invoice ID (UUID)"
// @Success 200 {object} response.Envelope "Cancelled invoice"
// @Failure 404 {object} response.ErrorBody "Invoice not found"
// @Failure 409 {object} response.ErrorBody "Invoice is not finalized"
// @Failure 500 {object} response.ErrorBody "Internal server error"
// @Router /invoices/{id}/cancel [post]
func (h *InvoiceHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := request.GetUUIDParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid invoice ID")
		return
	}

	inv, err := h.service.Cancel(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Success(w, inv)
}
