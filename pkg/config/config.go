package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Pricing      PricingConfig
	CORS         CORSConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"TAVOLA_APP_ENV" required:"true"`
	Port         string `envconfig:"TAVOLA_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"TAVOLA_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"TAVOLA_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"TAVOLA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"TAVOLA_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"TAVOLA_DB_DSN"`
	Driver string `envconfig:"TAVOLA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"TAVOLA_DB_HOST"`
	LegacyPort     int    `envconfig:"TAVOLA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"TAVOLA_DB_USER"`
	LegacyPassword string `envconfig:"TAVOLA_DB_PASSWORD"`
	LegacyName     string `envconfig:"TAVOLA_DB_NAME"`
	LegacySSLMode  string `envconfig:"TAVOLA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TAVOLA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TAVOLA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TAVOLA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TAVOLA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the sqlite driver was selected.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

// RedisConfig is optional; an empty URL and address disables idempotency,
// rate limiting and the pricing lock.
type RedisConfig struct {
	URL          string        `envconfig:"TAVOLA_REDIS_URL"`
	Address      string        `envconfig:"TAVOLA_REDIS_ADDR"`
	Password     string        `envconfig:"TAVOLA_REDIS_PASSWORD"`
	DB           int           `envconfig:"TAVOLA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TAVOLA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TAVOLA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TAVOLA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TAVOLA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TAVOLA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type JWTConfig struct {
	Secret            string `envconfig:"TAVOLA_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"TAVOLA_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"TAVOLA_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"TAVOLA_AUTO_MIGRATE" default:"false"`
}

type PricingConfig struct {
	LockEnabled    bool          `envconfig:"TAVOLA_PRICING_LOCK_ENABLED" default:"false"`
	LockTTL        time.Duration `envconfig:"TAVOLA_PRICING_LOCK_TTL" default:"2m"`
	WriteBatchSize int           `envconfig:"TAVOLA_PRICING_WRITE_BATCH_SIZE" default:"200"`

	MutationRateWindow time.Duration `envconfig:"TAVOLA_PRICING_RATE_LIMIT_WINDOW" default:"1m"`
	MutationRateLimit  int           `envconfig:"TAVOLA_PRICING_RATE_LIMIT" default:"10"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"TAVOLA_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000,http://localhost:5173"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"TAVOLA_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"TAVOLA_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"TAVOLA_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	PricingTopic        string `envconfig:"TAVOLA_PUBSUB_PRICING_TOPIC" default:"tavola-pricing-events"`
	PricingSubscription string `envconfig:"TAVOLA_PUBSUB_PRICING_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"TAVOLA_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"TAVOLA_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"TAVOLA_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	if db.IsSQLite() {
		db.DSN = "file:tavola.db?cache=shared"
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
