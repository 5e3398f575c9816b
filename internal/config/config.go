package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/Pesokrava/invoicing/internal/domain"
)

// Storage drivers
const (
	StorageFile     = "file"
	StoragePostgres = "postgres"
)

// Config holds all configuration for the application
type Config struct {
	Env      string
	LogLevel string
	Server   ServerConfig
	Storage  StorageConfig
	Database DatabaseConfig
	Redis    RedisConfig
	NATS     NATSConfig
	Cache    CacheConfig
	Billing  BillingConfig
	Worker   WorkerConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

// StorageConfig selects where products, customers and invoices are kept
type StorageConfig struct {
	Driver   string
	DataFile string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	MigrationsDir   string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
}

// NATSConfig holds NATS configuration
type NATSConfig struct {
	Enabled bool
	URL     string
}

// CacheConfig holds caching TTL configuration
type CacheConfig struct {
	ProductTTL time.Duration
	ReportTTL  time.Duration
}

// BillingConfig holds invoice defaults
type BillingConfig struct {
	DefaultTaxRate decimal.Decimal
}

// WorkerConfig holds reorder worker tuning
type WorkerConfig struct {
	DebounceWindow time.Duration
}

// Load reads configuration from a .env file (if present) and environment variables
func Load() (*Config, error) {
	// Missing .env is fine, real environment variables win anyway
	_ = godotenv.Load()

	viper.AutomaticEnv()

	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "")
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_READ_TIMEOUT", "10s")
	viper.SetDefault("SERVER_WRITE_TIMEOUT", "10s")
	viper.SetDefault("SERVER_SHUTDOWN_TIMEOUT", "30s")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:8080")

	viper.SetDefault("STORAGE_DRIVER", StorageFile)
	viper.SetDefault("DATA_FILE", "inventory_data.json")

	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "postgres")
	viper.SetDefault("DB_PASSWORD", "postgres")
	viper.SetDefault("DB_NAME", "invoicing")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 5)
	viper.SetDefault("DB_CONN_MAX_LIFETIME", "5m")
	viper.SetDefault("DB_MIGRATIONS_DIR", "migrations")

	viper.SetDefault("REDIS_ENABLED", false)
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)

	viper.SetDefault("NATS_ENABLED", false)
	viper.SetDefault("NATS_URL", "nats://localhost:4222")

	viper.SetDefault("CACHE_TTL_PRODUCT", "300s")
	viper.SetDefault("CACHE_TTL_REPORT", "120s")

	viper.SetDefault("DEFAULT_TAX_RATE", "0.08")
	viper.SetDefault("REORDER_DEBOUNCE_WINDOW", "1s")

	readTimeout, err := parseDuration("SERVER_READ_TIMEOUT")
	if err != nil {
		return nil, err
	}

	writeTimeout, err := parseDuration("SERVER_WRITE_TIMEOUT")
	if err != nil {
		return nil, err
	}

	shutdownTimeout, err := parseDuration("SERVER_SHUTDOWN_TIMEOUT")
	if err != nil {
		return nil, err
	}

	connMaxLifetime, err := parseDuration("DB_CONN_MAX_LIFETIME")
	if err != nil {
		return nil, err
	}

	productTTL, err := parseDuration("CACHE_TTL_PRODUCT")
	if err != nil {
		return nil, err
	}

	reportTTL, err := parseDuration("CACHE_TTL_REPORT")
	if err != nil {
		return nil, err
	}

	debounceWindow, err := parseDuration("REORDER_DEBOUNCE_WINDOW")
	if err != nil {
		return nil, err
	}

	taxRate, err := decimal.NewFromString(viper.GetString("DEFAULT_TAX_RATE"))
	if err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_TAX_RATE: %w", err)
	}
	if err := domain.ValidateTaxRate(taxRate); err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_TAX_RATE: %w", err)
	}

	driver := strings.ToLower(viper.GetString("STORAGE_DRIVER"))
	if driver != StorageFile && driver != StoragePostgres {
		return nil, fmt.Errorf("invalid STORAGE_DRIVER: %q", driver)
	}

	allowedOriginsStr := viper.GetString("CORS_ALLOWED_ORIGINS")
	allowedOrigins := strings.Split(allowedOriginsStr, ",")
	for i := range allowedOrigins {
		allowedOrigins[i] = strings.TrimSpace(allowedOrigins[i])
	}

	config := &Config{
		Env:      viper.GetString("ENV"),
		LogLevel: viper.GetString("LOG_LEVEL"),
		Server: ServerConfig{
			Port:            viper.GetString("SERVER_PORT"),
			ReadTimeout:     readTimeout,
			WriteTimeout:    writeTimeout,
			ShutdownTimeout: shutdownTimeout,
			AllowedOrigins:  allowedOrigins,
		},
		Storage: StorageConfig{
			Driver:   driver,
			DataFile: viper.GetString("DATA_FILE"),
		},
		Database: DatabaseConfig{
			Host:            viper.GetString("DB_HOST"),
			Port:            viper.GetString("DB_PORT"),
			User:            viper.GetString("DB_USER"),
			Password:        viper.GetString("DB_PASSWORD"),
			Name:            viper.GetString("DB_NAME"),
			SSLMode:         viper.GetString("DB_SSLMODE"),
			MaxOpenConns:    viper.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    viper.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: connMaxLifetime,
			MigrationsDir:   viper.GetString("DB_MIGRATIONS_DIR"),
		},
		Redis: RedisConfig{
			Enabled:  viper.GetBool("REDIS_ENABLED"),
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		NATS: NATSConfig{
			Enabled: viper.GetBool("NATS_ENABLED"),
			URL:     viper.GetString("NATS_URL"),
		},
		Cache: CacheConfig{
			ProductTTL: productTTL,
			ReportTTL:  reportTTL,
		},
		Billing: BillingConfig{
			DefaultTaxRate: taxRate,
		},
		Worker: WorkerConfig{
			DebounceWindow: debounceWindow,
		},
	}

	return config, nil
}

func parseDuration(key string) (time.Duration, error) {
	d, err := time.ParseDuration(viper.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

// GetDSN returns the PostgreSQL connection string
func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// GetRedisAddr returns the Redis address
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}
