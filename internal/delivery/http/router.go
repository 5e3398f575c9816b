package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/Pesokrava/invoicing/internal/config"
	"github.com/Pesokrava/invoicing/internal/delivery/http/handler"
	"github.com/Pesokrava/invoicing/internal/delivery/http/middleware"
	"github.com/Pesokrava/invoicing/internal/delivery/http/response"
	"github.com/Pesokrava/invoicing/internal/pkg/logger"
)

const requestTimeout = 30 * time.Second

// Handlers groups the HTTP handlers mounted under /api/v1
type Handlers struct {
	Products  *handler.ProductHandler
	Customers *handler.CustomerHandler
	Invoices  *handler.InvoiceHandler
	Reports   *handler.ReportHandler
}

// Router holds HTTP handlers and router configuration
type Router struct {
	handlers Handlers
	logger   *logger.Logger
	cfg      *config.Config
}

// NewRouter creates a new HTTP router
func NewRouter(handlers Handlers, cfg *config.Config, log *logger.Logger) *Router {
	return &Router{
		handlers: handlers,
		logger:   log.Component("http"),
		cfg:      cfg,
	}
}

// Setup configures and returns the HTTP router
func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.Recovery(rt.logger))
	r.Use(middleware.Logger(rt.logger))
	r.Use(chimw.Timeout(requestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   rt.cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", rt.healthCheck)
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	h := rt.handlers
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Post("/", h.Products.Create)
			r.Get("/", h.Products.List)
			r.Get("/low-stock", h.Products.LowStock)
			r.Get("/{id}", h.Products.GetByID)
			r.Put("/{id}", h.Products.Update)
			r.Delete("/{id}", h.Products.Retire)
			r.Put("/{id}/price", h.Products.UpdatePrice)
			r.Put("/{id}/discounts", h.Products.SetDiscounts)
			r.Post("/{id}/stock", h.Products.AdjustStock)
			r.Get("/{id}/reorder", h.Products.Reorder)
		})

		r.Route("/customers", func(r chi.Router) {
			r.Post("/", h.Customers.Create)
			r.Get("/", h.Customers.List)
			r.Get("/{id}", h.Customers.GetByID)
		})

		r.Route("/invoices", func(r chi.Router) {
			r.Post("/", h.Invoices.Create)
			r.Get("/", h.Invoices.List)
			r.Get("/{id}", h.Invoices.GetByID)
			r.Delete("/{id}", h.Invoices.Discard)
			r.Post("/{id}/items", h.Invoices.AddItem)
			r.Delete("/{id}/items/{index}", h.Invoices.RemoveItem)
			r.Post("/{id}/finalize", h.Invoices.Finalize)
			r.Post("/{id}/cancel", h.Invoices.Cancel)
		})

		r.Route("/reports", func(r chi.Router) {
			r.Get("/sales", h.Reports.Sales)
			r.Get("/products", h.Reports.Products)
			r.Get("/customers", h.Reports.Customers)
			r.Get("/inventory", h.Reports.Inventory)
		})
	})

	return r
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
