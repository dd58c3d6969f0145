package config

// EnvPrefix namespaces every variable read by Load.
const EnvPrefix = "TAVOLA"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv    = "TAVOLA_APP_ENV"
	EnvPort      = "TAVOLA_APP_PORT"
	EnvLogLevel  = "TAVOLA_LOG_LEVEL"
	EnvLogFormat = "TAVOLA_LOG_FORMAT"

	EnvDBDSN    = "TAVOLA_DB_DSN"
	EnvDBDriver = "TAVOLA_DB_DRIVER"
	EnvDBHost   = "TAVOLA_DB_HOST"
	EnvDBUser   = "TAVOLA_DB_USER"
	EnvDBName   = "TAVOLA_DB_NAME"

	EnvRedisURL  = "TAVOLA_REDIS_URL"
	EnvRedisAddr = "TAVOLA_REDIS_ADDR"

	EnvJWTSecret  = "TAVOLA_JWT_SECRET"
	EnvJWTIssuer  = "TAVOLA_JWT_ISSUER"
	EnvJWTExpMins = "TAVOLA_JWT_EXPIRATION_MINUTES"

	EnvPricingLockEnabled = "TAVOLA_PRICING_LOCK_ENABLED"
	EnvPricingLockTTL     = "TAVOLA_PRICING_LOCK_TTL"
	EnvPricingBatchSize   = "TAVOLA_PRICING_WRITE_BATCH_SIZE"

	EnvGCPProjectID       = "TAVOLA_GCP_PROJECT_ID"
	EnvPubSubPricingTopic = "TAVOLA_PUBSUB_PRICING_TOPIC"
)

// legacyDBEnvVars must all be present when no DSN is configured.
var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

const (
	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)
