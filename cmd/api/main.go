package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Pesokrava/invoicing/internal/config"
	"github.com/Pesokrava/invoicing/internal/delivery/events"
	httpDelivery "github.com/Pesokrava/invoicing/internal/delivery/http"
	"github.com/Pesokrava/invoicing/internal/delivery/http/handler"
	"github.com/Pesokrava/invoicing/internal/domain"
	"github.com/Pesokrava/invoicing/internal/pkg/cache"
	"github.com/Pesokrava/invoicing/internal/pkg/database"
	"github.com/Pesokrava/invoicing/internal/pkg/logger"
	"github.com/Pesokrava/invoicing/internal/pricing"
	cacheRepo "github.com/Pesokrava/invoicing/internal/repository/cache"
	"github.com/Pesokrava/invoicing/internal/repository/memory"
	"github.com/Pesokrava/invoicing/internal/repository/postgres"
	"github.com/Pesokrava/invoicing/internal/usecase/catalog"
	"github.com/Pesokrava/invoicing/internal/usecase/customer"
	"github.com/Pesokrava/invoicing/internal/usecase/invoice"
	"github.com/Pesokrava/invoicing/internal/usecase/report"

	_ "github.com/Pesokrava/invoicing/docs"
)

// @title Inventory & Invoicing API
// @version 1.0
// @description Products, customers, invoices and reports for a small business. Finalizing an invoice prices it, computes tax and commits stock atomically.
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url http://github.com/Pesokrava/invoicing
// @contact.email support@example.com

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

// @tag.name Products
// @tag.description Catalog, stock and discount endpoints

// @tag.name Customers
// @tag.description Customer registry endpoints

// @tag.name Invoices
// @tag.description Draft, finalize and cancel invoices

// @tag.name Reports
// @tag.description Sales, product, customer and inventory reports

const connectRetries = 10

type repositories struct {
	products  domain.ProductRepository
	customers domain.CustomerRepository
	invoices  domain.InvoiceRepository
	close     func() error
}

type appCache interface {
	catalog.Cache
	report.Cache
}

type eventPublisher interface {
	invoice.EventPublisher
	Close()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.NewWithLevel(cfg.Env, cfg.LogLevel)
	logger.SetGlobalLogger(appLogger)
	appLogger.Info("Starting Inventory & Invoicing API...")

	ctx := context.Background()

	repos, err := openRepositories(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to open storage", err)
	}
	defer repos.close()

	var reportCache appCache = cacheRepo.NopCache{}
	if cfg.Redis.Enabled {
		appLogger.Info("Connecting to Redis...")
		redisClient, err := cache.WaitForRedis(ctx, cfg, connectRetries, 2*time.Second)
		if err != nil {
			appLogger.Fatal("Failed to connect to Redis", err)
		}
		defer redisClient.Close()
		reportCache = cacheRepo.NewRedisCache(redisClient, cfg.Cache.ProductTTL, cfg.Cache.ReportTTL)
		appLogger.Info("Connected to Redis successfully")
	}

	var publisher eventPublisher = events.NopPublisher{}
	if cfg.NATS.Enabled {
		appLogger.Info("Connecting to NATS...")
		natsPublisher, err := events.NewPublisher(cfg, appLogger)
		if err != nil {
			appLogger.Fatal("Failed to create NATS publisher", err)
		}
		publisher = natsPublisher
	}
	defer publisher.Close()

	catalogService := catalog.NewService(repos.products, reportCache, appLogger)
	customerService := customer.NewService(repos.customers, appLogger)
	invoiceService := invoice.NewService(
		repos.invoices,
		repos.customers,
		catalogService,
		pricing.NewEngine(),
		publisher,
		reportCache,
		cfg.Billing.DefaultTaxRate,
		appLogger,
	)
	reportService := report.NewService(repos.products, repos.customers, repos.invoices, reportCache, appLogger)

	router := httpDelivery.NewRouter(httpDelivery.Handlers{
		Products:  handler.NewProductHandler(catalogService, appLogger),
		Customers: handler.NewCustomerHandler(customerService, appLogger),
		Invoices:  handler.NewInvoiceHandler(invoiceService, appLogger),
		Reports:   handler.NewReportHandler(reportService, appLogger),
	}, cfg, appLogger)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		appLogger.Infof("HTTP server listening on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("HTTP server failed", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", err)
	}

	appLogger.Info("Server stopped gracefully")
}

// openRepositories wires the storage driver selected by STORAGE_DRIVER
func openRepositories(ctx context.Context, cfg *config.Config, log *logger.Logger) (*repositories, error) {
	switch cfg.Storage.Driver {
	case config.StoragePostgres:
		log.Info("Connecting to PostgreSQL...")
		db, err := database.WaitForDB(ctx, cfg, connectRetries, 2*time.Second)
		if err != nil {
			return nil, err
		}
		log.Info("Connected to PostgreSQL successfully")

		if err := database.RunMigrations(db, cfg.Database.MigrationsDir); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}

		return postgresRepositories(db), nil

	default:
		store, err := memory.Open(cfg.Storage.DataFile)
		if err != nil {
			return nil, err
		}
		log.Infof("Using data file %s", cfg.Storage.DataFile)

		return &repositories{
			products:  store.Products(),
			customers: store.Customers(),
			invoices:  store.Invoices(),
			close:     func() error { return nil },
		}, nil
	}
}

func postgresRepositories(db *sqlx.DB) *repositories {
	return &repositories{
		products:  postgres.NewProductRepository(db),
		customers: postgres.NewCustomerRepository(db),
		invoices:  postgres.NewInvoiceRepository(db),
		close:     db.Close,
	}
}
