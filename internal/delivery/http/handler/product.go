package handler

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/Pesokrava/invoicing/internal/delivery/http/request"
	"github.com/Pesokrava/invoicing/internal/delivery/http/response"
	"github.com/Pesokrava/invoicing/internal/domain"
	"github.com/Pesokrava/invoicing/internal/pkg/logger"
	pkgvalidator "github.com/Pesokrava/invoicing/internal/pkg/validator"
	"github.com/Pesokrava/invoicing/internal/usecase/catalog"
)

// ProductHandler handles HTTP requests for catalog products
type ProductHandler struct {
	service  *catalog.Service
	validate *validator.Validate
	logger   *logger.Logger
}

// NewProductHandler creates a new product handler
func NewProductHandler(service *catalog.Service, log *logger.Logger) *ProductHandler {
	return &ProductHandler{
		service:  service,
		validate: pkgvalidator.Get(),
		logger:   log,
	}
}

// CreateProductRequest represents the request body for registering a product
type CreateProductRequest struct {
	ID             string                `json:"id" validate:"required,sku,max=64"`
	Name           string                `json:"name" validate:"required,min=1,max=255"`
	Category       string                `json:"category" validate:"max=100"`
	Price          decimal.Decimal       `json:"price" swaggertype:"string" example:"19.99"`
	QuantityOnHand int                   `json:"quantity_on_hand" validate:"gte=0,lte=2147483647"`
	ReorderLevel   *int                  `json:"reorder_level,omitempty" validate:"omitempty,gte=0,lte=2147483647"`
	DiscountRules  []domain.DiscountRule `json:"discount_rules,omitempty"`
}

// UpdateProductRequest represents the request body for updating product details
type UpdateProductRequest struct {
	Name         *string `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Category     *string `json:"category,omitempty" validate:"omitempty,max=100"`
	ReorderLevel *int    `json:"reorder_level,omitempty" validate:"omitempty,gte=0,lte=2147483647"`
}

// UpdatePriceRequest represents the request body for repricing a product
type UpdatePriceRequest struct {
	Price decimal.Decimal `json:"price" swaggertype:"string" example:"19.99"`
}

// SetDiscountsRequest represents the request body for replacing a product's discount rules
type SetDiscountsRequest struct {
	Rules []domain.DiscountRule `json:"rules"`
}

// AdjustStockRequest represents the request body for a stock movement
type AdjustStockRequest struct {
	Delta int `json:"delta" validate:"required,min=-2147483647,max=2147483647"`
}

// ReorderStatus is returned by the reorder check endpoint
type ReorderStatus struct {
	ProductID         string `json:"product_id"`
	QuantityOnHand    int    `json:"quantity_on_hand"`
	ReorderLevel      int    `json:"reorder_level"`
	BelowReorderLevel bool   `json:"below_reorder_level"`
}

// Create handles POST /api/v1/products
// @Summary Register a product
// @Description Register a product with price, opening stock, reorder level and discount rules
// @Tags Products
// @Accept json
// @Produce json
// @Param product body CreateProductRequest true "Product details"
// @Success 201 {object} response.Envelope "Product registered"
// @Failure 400 {object} response.ErrorBody "Invalid request body"
// @Failure 409 {object} response.ErrorBody "Product already exists"
// @Failure 500 {object} response.ErrorBody "Internal server error"
// @Router /products [post]
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	reorderLevel := domain.DefaultReorderLevel
	if req.ReorderLevel != nil {
		reorderLevel = *req.ReorderLevel
	}

	product := &domain.Product{
		ID:             req.ID,
		Name:           req.Name,
		Category:       req.Category,
		Price:          req.Price,
		QuantityOnHand: req.QuantityOnHand,
		ReorderLevel:   reorderLevel,
		DiscountRules:  req.DiscountRules,
	}

	if err := h.service.RegisterProduct(r.Context(), product); err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Created(w, product)
}

// GetByID handles GET /api/v1/products/{id}
// @Summary Get a product by ID
// @Tags Products
// @Produce json
// @Param id path string true "Product SKU"
// @Success 200 {object} response.Envelope "Product details"
// @Failure 404 {object} response.ErrorBody "Product not found"
// @Failure 500 {object} response.ErrorBody "Internal server error"
// @Router /products/{id} [get]
func (h *ProductHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := request.GetStringParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	product, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Success(w, product)
}

// List handles GET /api/v1/products
// @Summary List products
// @Description Paginated product listing, optionally narrowed to a category
// @Tags Products
// @Produce json
// @Param category query string false "Category"
// @Param include_retired query bool false "Include retired products"
// @Param limit query int false "Number of items per page (max 100)" default(20)
// @Param offset query int false "Number of items to skip" default(0)
// @Success 200 {object} response.Envelope "Paginated list of products"
// @Failure 500 {object} response.ErrorBody "Internal server error"
// @Router /products [get]
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := request.GetPaginationParams(r)
	query := r.URL.Query()

	filter := domain.ProductFilter{
		Category:       query.Get("category"),
		IncludeRetired: query.Get("include_retired") == "true",
		Limit:          limit,
		Offset:         offset,
	}

	products, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Paginated(w, products, total, limit, offset)
}

// LowStock handles GET /api/v1/products/low-stock
// @Summary List products below their reorder level
// @Tags Products
// @Produce json
// @Success 200 {object} response.Envelope "Products needing reorder"
// @Failure 500 {object} response.ErrorBody "Internal server error"
// @Router /products/low-stock [get]
func (h *ProductHandler) LowStock(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.LowStock(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Success(w, products)
}

// Update handles PUT /api/v1/products/{id}
// @Summary Update product details
// @Description Change name, category or reorder level. Omitted fields are kept.
// @Tags Products
// @Accept json
// @Produce json
// @Param id path string true "Product SKU"
// @Param product body UpdateProductRequest true "Fields to change"
// @Success 200 {object} response.Envelope "Product updated"
// @Failure 400 {object} response.ErrorBody "Invalid request"
// @Failure 404 {object} response.ErrorBody "Product not found"
// @Failure 409 {object} response.ErrorBody "Conflict - product was modified"
// @Failure 500 {object} response.ErrorBody "Internal server error"
// @Router /products/{id} [put]
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := request.GetStringParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	var req UpdateProductRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	product, err := h.service.UpdateDetails(r.Context(), id, catalog.Details{
		Name:         req.Name,
		Category:     req.Category,
		ReorderLevel: req.ReorderLevel,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Success(w, product)
}

// UpdatePrice handles PUT /api/v1/products/{id}/price
// @Summary Reprice a product
// @Description Drafts keep their snapshot, finalize uses the new price
// @Tags Products
// @Accept json
// @Produce json
// @Param id path string true "Product SKU"
// @Param price body UpdatePriceRequest true "New price"
// @Success 200 {object} response.Envelope "Product repriced"
// @Failure 400 {object} response.ErrorBody "Invalid price"
// @Failure 404 {object} response.ErrorBody "Product not found"
// @Failure 500 {object} response.ErrorBody "Internal server error"
// @Router /products/{id}/price [put]
func (h *ProductHandler) UpdatePrice(w http.ResponseWriter, r *http.Request) {
	id, err := request.GetStringParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	var req UpdatePriceRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	product, err := h.service.UpdatePrice(r.Context(), id, req.Price)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Success(w, product)
}

// SetDiscounts handles PUT /api/v1/products/{id}/discounts
// @Summary Replace a product's discount rules
// @Description Rules apply in order, each to the previous rule's output
// @Tags Products
// @Accept json
// @Produce json
// @Param id path string true "Product SKU"
// @Param rules body SetDiscountsRequest true "Ordered discount rules"
// @Success 200 {object} response.Envelope "Rules replaced"
// @Failure 400 {object} response.ErrorBody "Invalid rule"
// @Failure 404 {object} response.ErrorBody "Product not found"
// @Failure 500 {object} response.ErrorBody "Internal server error"
// @Router /products/{id}/discounts [put]
func (h *ProductHandler) SetDiscounts(w http.ResponseWriter, r *http.Request) {
	id, err := request.GetStringParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	var req SetDiscountsRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	product, err := h.service.SetDiscountRules(r.Context(), id, req.Rules)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Success(w, product)
}

// AdjustStock handles POST /api/v1/products/{id}/stock
// @Summary Receive or remove stock
// @Description Positive delta receives goods, negative delta removes them. Stock never goes below zero.
// @Tags Products
// @Accept json
// @Produce json
// @Param id path string true "Product SKU"
// @Param movement body AdjustStockRequest true "Stock delta"
// @Success 200 {object} response.Envelope "Product after the movement"
// @Failure 400 {object} response.ErrorBody "Invalid delta"
// @Failure 404 {object} response.ErrorBody "Product not found"
// @Failure 409 {object} response.ErrorBody "Insufficient stock"
// @Failure 500 {object} response.ErrorBody "Internal server error"
// @Router /products/{id}/stock [post]
func (h *ProductHandler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	id, err := request.GetStringParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	var req AdjustStockRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(w, http.StatusBadRequest, "Delta must be a non-zero integer between -2147483647 and 2147483647")
		return
	}

	product, err := h.service.AdjustStock(r.Context(), id, req.Delta)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Success(w, product)
}

// Reorder handles GET /api/v1/products/{id}/reorder
// @Summary Check whether a product is below its reorder level
// @Tags Products
// @Produce json
// @Param id path string true "Product SKU"
// @Success 200 {object} response.Envelope "Reorder status"
// @Failure 404 {object} response.ErrorBody "Product not found"
// @Failure 500 {object} response.ErrorBody "Internal server error"
// @Router /products/{id}/reorder [get]
func (h *ProductHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	id, err := request.GetStringParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	product, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Success(w, ReorderStatus{
		ProductID:         product.ID,
		QuantityOnHand:    product.QuantityOnHand,
		ReorderLevel:      product.ReorderLevel,
		BelowReorderLevel: product.IsBelowReorderLevel(),
	})
}

// Retire handles DELETE /api/v1/products/{id}
// @Summary Retire a product
// @Description Soft delete. Retired products cannot be added to invoices but stay on existing ones.
// @Tags Products
// @Param id path string true "Product SKU"
// @Success 204 "Product retired"
// @Failure 404 {object} response.ErrorBody "Product not found"
// @Failure 500 {object} response.ErrorBody "Internal server error"
// @Router /products/{id} [delete]
func (h *ProductHandler) Retire(w http.ResponseWriter, r *http.Request) {
	id, err := request.GetStringParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	if err := h.service.Retire(r.Context(), id); err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.NoContent(w)
}
