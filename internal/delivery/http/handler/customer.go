package handler

import (
	"net/http"

	"github.com/Pesokrava/invoicing/internal/delivery/http/request"
	"github.com/Pesokrava/invoicing/internal/delivery/http/response"
	"github.com/Pesokrava/invoicing/internal/domain"
	"github.com/Pesokrava/invoicing/internal/pkg/logger"
	"github.com/Pesokrava/invoicing/internal/usecase/customer"
)

// CustomerHandler handles HTTP requests for customers
type CustomerHandler struct {
	service *customer.Service
	logger  *logger.Logger
}

// NewCustomerHandler creates a new customer handler
func NewCustomerHandler(service *customer.Service, log *logger.Logger) *CustomerHandler {
	return &CustomerHandler{
		service: service,
		logger:  log,
	}
}

// CreateCustomerRequest represents the request body for creating a customer
type CreateCustomerRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
}

// Create handles POST /api/v1/customers
// @Summary Create a customer
// @Tags Customers
// @Accept json
// @Produce json
// @Param customer body CreateCustomerRequest true "Customer details"
// @Success 201 {object} response.Envelope "Customer created"
// @Failure 400 {object} response.ErrorBody "Invalid request body"
// @Failure 500 {object} response.ErrorBody "Internal server error"
// @Router /customers [post]
func (h *CustomerHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateCustomerRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	c := &domain.Customer{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Address: req.Address,
	}

	if err := h.service.Create(r.Context(), c); err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Created(w, c)
}

// GetByID handles GET /api/v1/customers/{id}
// @Summary Get a customer by ID
// @Tags Customers
// @Produce json
// @Param id path string true "Customer ID (UUID)"
// @Success 200 {object} response.Envelope "Customer details"
// @Failure 400 {object} response.ErrorBody "Invalid customer ID"
// @Failure 404 {object} response.ErrorBody "Customer not found"
// @Failure 500 {object} response.ErrorBody "Internal server error"
// @Router /customers/{id} [get]
func (h *CustomerHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := request.GetUUIDParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid customer ID")
		return
	}

	c, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Success(w, c)
}

// List handles GET /api/v1/customers
// @Summary List customers
// @Tags Customers
// @Produce json
// @Param limit query int false "Number of items per page (max 100)" default(20)
// @Param offset query int false "Number of items to skip" default(0)
// @Success 200 {object} response.Envelope "Paginated list of customers"
// @Failure 500 {object} response.ErrorBody "Internal server error"
// @Router /customers [get]
func (h *CustomerHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := request.GetPaginationParams(r)

	customers, total, err := h.service.List(r.Context(), limit, offset)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Paginated(w, customers, total, limit, offset)
}
