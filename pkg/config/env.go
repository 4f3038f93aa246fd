package config

const (
	EnvPrefix = "TECHSTORE"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv   = "TECHSTORE_APP_ENV"
	EnvPort     = "TECHSTORE_APP_PORT"
	EnvLogLevel = "TECHSTORE_LOG_LEVEL"

	EnvStorageDriver  = "TECHSTORE_STORAGE_DRIVER"
	EnvStorageSlotKey = "TECHSTORE_STORAGE_SLOT_KEY"
	EnvSQLitePath     = "TECHSTORE_SQLITE_PATH"
	EnvPostgresDSN    = "TECHSTORE_POSTGRES_DSN"
	EnvRedisURL       = "TECHSTORE_REDIS_URL"
	EnvRedisAddr      = "TECHSTORE_REDIS_ADDR"

	EnvStorefrontBaseURL = "TECHSTORE_API_BASE_URL"
	EnvStorefrontTimeout = "TECHSTORE_API_TIMEOUT"

	EnvTaxRate              = "TECHSTORE_TAX_RATE"
	EnvFreeShippingMinimum  = "TECHSTORE_FREE_SHIPPING_MINIMUM"
	EnvQuoteDebounce        = "TECHSTORE_QUOTE_DEBOUNCE"
	EnvCheckoutSessionTTL   = "TECHSTORE_CHECKOUT_SESSION_TTL"
	EnvCartFlushTimeout     = "TECHSTORE_CART_FLUSH_TIMEOUT"
	EnvStandardFallbackFee  = "TECHSTORE_STANDARD_FALLBACK_FEE"
	EnvExpressFallbackFee   = "TECHSTORE_EXPRESS_FALLBACK_FEE"
	EnvExpressFeeMultiplier = "TECHSTORE_EXPRESS_FEE_MULTIPLIER"
)

// Storage drivers accepted by TECHSTORE_STORAGE_DRIVER.
const (
	StorageMemory   = "memory"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
	StorageRedis    = "redis"
)

// DefaultCartSlotKey is the key the cart snapshot has always been stored under.
const DefaultCartSlotKey = "techstore_cart"
