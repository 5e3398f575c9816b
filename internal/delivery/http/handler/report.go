package handler

import (
	"net/http"

	"github.com/Pesokrava/invoicing/internal/delivery/http/request"
	"github.com/Pesokrava/invoicing/internal/delivery/http/response"
	"github.com/Pesokrava/invoicing/internal/pkg/logger"
	"github.com/Pesokrava/invoicing/internal/usecase/report"
)

// ReportHandler handles HTTP requests for reports
type ReportHandler struct {
	service *report.Service
	logger  *logger.Logger
}

// NewReportHandler creates a new report handler
func NewReportHandler(service *report.Service, log *logger.Logger) *ReportHandler {
	return &ReportHandler{
		service: service,
		logger:  log,
	}
}

// Sales handles GET /api/v1/reports/sales
// @Summary Sales totals with a daily breakdown
// @Description Finalized invoices only. A plain-date "to" is inclusive.
// @Tags Reports
// @Produce json
// @Param from query string false "Start date (YYYY-MM-DD or RFC3339)"
// @Param to query string false "End date (YYYY-MM-DD or RFC3339)"
// @Success 200 {object} response.Envelope "Sales report"
// @Failure 400 {object} response.ErrorBody "Invalid date range"
// @Failure 500 {object} response.ErrorBody "Internal server error"
// @Router /reports/sales [get]
func (h *ReportHandler) Sales(w http.ResponseWriter, r *http.Request) {
	from, to, err := request.GetDateRange(r)
	if err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	rep, err := h.service.Sales(r.Context(), from, to)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Success(w, rep)
}

// Products handles GET /api/v1/reports/products
// @Summary Units sold and revenue per product
// @Tags Reports
// @Produce json
// @Success 200 {object} response.Envelope "Product performance, highest revenue first"
// @Failure 500 {object} response.ErrorBody "Internal server error"
// @Router /reports/products [get]
func (h *ReportHandler) Products(w http.ResponseWriter, r *http.Request) {
	rep, err := h.service.ProductPerformance(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Success(w, rep)
}

// Customers handles GET /api/v1/reports/customers
// @Summary Spend and order value per customer
// @Tags Reports
// @Produce json
// @Success 200 {object} response.Envelope "Customer analysis, highest spend first"
// @Failure 500 {object} response.ErrorBody "Internal server error"
// @Router /reports/customers [get]
func (h *ReportHandler) Customers(w http.ResponseWriter, r *http.Request) {
	rep, err := h.service.CustomerAnalysis(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Success(w, rep)
}

// Inventory handles GET /api/v1/reports/inventory
// @Summary Stock value per category and low-stock items
// @Tags Reports
// @Produce json
// @Success 200 {object} response.Envelope "Inventory report"
// @Failure 500 {object} response.ErrorBody "Internal server error"
// @Router /reports/inventory [get]
func (h *ReportHandler) Inventory(w http.ResponseWriter, r *http.Request) {
	rep, err := h.service.Inventory(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Success(w, rep)
}
