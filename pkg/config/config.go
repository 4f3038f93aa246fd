package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App        AppConfig
	Storage    StorageConfig
	Redis      RedisConfig
	Storefront StorefrontConfig
	Pricing    PricingConfig
	Checkout   CheckoutConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Storage.validate(cfg.Redis); err != nil {
		return nil, err
	}
	if err := cfg.Pricing.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"TECHSTORE_APP_ENV" default:"dev"`
	Port         string `envconfig:"TECHSTORE_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"TECHSTORE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"TECHSTORE_LOG_WARN_STACK" default:"false"`

	// CORSOrigins are the storefront UI origins allowed to call the local API.
	CORSOrigins []string `envconfig:"TECHSTORE_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// StorageConfig selects where the cart snapshot slot lives.
type StorageConfig struct {
	Driver       string        `envconfig:"TECHSTORE_STORAGE_DRIVER" default:"sqlite"`
	SlotKey      string        `envconfig:"TECHSTORE_STORAGE_SLOT_KEY" default:"techstore_cart"`
	SQLitePath   string        `envconfig:"TECHSTORE_SQLITE_PATH" default:"techstore.db"`
	PostgresDSN  string        `envconfig:"TECHSTORE_POSTGRES_DSN"`
	FlushTimeout time.Duration `envconfig:"TECHSTORE_CART_FLUSH_TIMEOUT" default:"5s"`
}

func (s *StorageConfig) validate(redis RedisConfig) error {
	s.Driver = strings.ToLower(strings.TrimSpace(s.Driver))
	if strings.TrimSpace(s.SlotKey) == "" {
		s.SlotKey = DefaultCartSlotKey
	}
	switch s.Driver {
	case StorageMemory:
	case StorageSQLite:
		if strings.TrimSpace(s.SQLitePath) == "" {
			return fmt.Errorf("%s is required for the sqlite driver", EnvSQLitePath)
		}
	case StoragePostgres:
		if strings.TrimSpace(s.PostgresDSN) == "" {
			return fmt.Errorf("%s is required for the postgres driver", EnvPostgresDSN)
		}
	case StorageRedis:
		if redis.URL == "" && redis.Address == "" {
			return fmt.Errorf("either %s or %s is required for the redis driver", EnvRedisURL, EnvRedisAddr)
		}
	default:
		return fmt.Errorf("unsupported %s %q", EnvStorageDriver, s.Driver)
	}
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"TECHSTORE_REDIS_URL"`
	Address      string        `envconfig:"TECHSTORE_REDIS_ADDR"`
	Password     string        `envconfig:"TECHSTORE_REDIS_PASSWORD"`
	DB           int           `envconfig:"TECHSTORE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TECHSTORE_REDIS_POOL_SIZE" default:"4"`
	MinIdleConns int           `envconfig:"TECHSTORE_REDIS_MIN_IDLE_CONNS" default:"1"`
	DialTimeout  time.Duration `envconfig:"TECHSTORE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TECHSTORE_REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"TECHSTORE_REDIS_WRITE_TIMEOUT" default:"3s"`
}

// StorefrontConfig points at the remote order/location API.
type StorefrontConfig struct {
	BaseURL string        `envconfig:"TECHSTORE_API_BASE_URL" default:"http://localhost:5000"`
	Timeout time.Duration `envconfig:"TECHSTORE_API_TIMEOUT" default:"10s"`
}

// PricingConfig holds the checkout pricing constants. Amounts are decimal strings.
type PricingConfig struct {
	TaxRate              string `envconfig:"TECHSTORE_TAX_RATE" default:"0.10"`
	FreeShippingMinimum  string `envconfig:"TECHSTORE_FREE_SHIPPING_MINIMUM" default:"500"`
	StandardFallbackFee  string `envconfig:"TECHSTORE_STANDARD_FALLBACK_FEE" default:"29.99"`
	ExpressFallbackFee   string `envconfig:"TECHSTORE_EXPRESS_FALLBACK_FEE" default:"49.99"`
	ExpressFeeMultiplier string `envconfig:"TECHSTORE_EXPRESS_FEE_MULTIPLIER" default:"1.5"`
}

func (p PricingConfig) validate() error {
	fields := map[string]string{
		EnvTaxRate:              p.TaxRate,
		EnvFreeShippingMinimum:  p.FreeShippingMinimum,
		EnvStandardFallbackFee:  p.StandardFallbackFee,
		EnvExpressFallbackFee:   p.ExpressFallbackFee,
		EnvExpressFeeMultiplier: p.ExpressFeeMultiplier,
	}
	for name, raw := range fields {
		value, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("parsing %s: %w", name, err)
		}
		if value.IsNegative() {
			return fmt.Errorf("%s must be non-negative", name)
		}
	}
	return nil
}

type CheckoutConfig struct {
	QuoteDebounce time.Duration `envconfig:"TECHSTORE_QUOTE_DEBOUNCE" default:"300ms"`
	SessionTTL    time.Duration `envconfig:"TECHSTORE_CHECKOUT_SESSION_TTL" default:"2h"`
}
