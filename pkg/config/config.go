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
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Pricing      PricingConfig
	Checkout     CheckoutConfig
	HTTP         HTTPConfig
	RateLimit    RateLimitConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"THREADMART_APP_ENV" required:"true"`
	Port         string `envconfig:"THREADMART_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"THREADMART_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"THREADMART_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"THREADMART_SERVICE_KIND" default:"api"`
	// MetricsAddr is where background workers serve /metrics; empty disables it.
	MetricsAddr string `envconfig:"THREADMART_METRICS_ADDR"`
}

type DBConfig struct {
	DSN    string `envconfig:"THREADMART_DB_DSN"`
	Driver string `envconfig:"THREADMART_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"THREADMART_DB_HOST"`
	LegacyPort     int    `envconfig:"THREADMART_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"THREADMART_DB_USER"`
	LegacyPassword string `envconfig:"THREADMART_DB_PASSWORD"`
	LegacyName     string `envconfig:"THREADMART_DB_NAME"`
	LegacySSLMode  string `envconfig:"THREADMART_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"THREADMART_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"THREADMART_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"THREADMART_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"THREADMART_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	// SlowQuery is the duration above which statements are logged as warnings.
	SlowQuery time.Duration `envconfig:"THREADMART_DB_SLOW_QUERY" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"THREADMART_REDIS_URL"`
	Address      string        `envconfig:"THREADMART_REDIS_ADDR"`
	Password     string        `envconfig:"THREADMART_REDIS_PASSWORD"`
	DB           int           `envconfig:"THREADMART_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"THREADMART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"THREADMART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"THREADMART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"THREADMART_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"THREADMART_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig only verifies tokens; issuance lives with the external identity provider.
type JWTConfig struct {
	Secret string `envconfig:"THREADMART_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"THREADMART_JWT_ISSUER" required:"true"`
	// ExpirationMinutes is used by dev tooling that mints local tokens.
	ExpirationMinutes int `envconfig:"THREADMART_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"THREADMART_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"THREADMART_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"THREADMART_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"THREADMART_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"THREADMART_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"THREADMART_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	PricingTopic        string `envconfig:"THREADMART_PUBSUB_PRICING_TOPIC" default:"tm-pricing-events"`
	PricingSubscription string `envconfig:"THREADMART_PUBSUB_PRICING_SUBSCRIPTION" default:"tm-pricing-events-sub"`
	OrdersTopic         string `envconfig:"THREADMART_PUBSUB_ORDERS_TOPIC" default:"tm-order-events"`
	OrdersSubscription  string `envconfig:"THREADMART_PUBSUB_ORDERS_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"THREADMART_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"THREADMART_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"THREADMART_OUTBOX_MAX_ATTEMPTS" default:"10"`
	// Retention is how long delivered rows stay before the cron worker prunes them.
	Retention time.Duration `envconfig:"THREADMART_OUTBOX_RETENTION" default:"720h"`
}

// PricingConfig drives the discount window sweep run by the cron worker.
type PricingConfig struct {
	SweepInterval time.Duration `envconfig:"THREADMART_PRICING_SWEEP_INTERVAL" default:"5m"`
	SweepLookback time.Duration `envconfig:"THREADMART_PRICING_SWEEP_LOOKBACK" default:"15m"`
	SweepBatch    int           `envconfig:"THREADMART_PRICING_SWEEP_BATCH" default:"200"`
}

type CheckoutConfig struct {
	IdempotencyTTL time.Duration `envconfig:"THREADMART_CHECKOUT_IDEMPOTENCY_TTL" default:"24h"`
}

type HTTPConfig struct {
	CORSOrigins     []string      `envconfig:"THREADMART_CORS_ORIGINS"`
	ReadTimeout     time.Duration `envconfig:"THREADMART_HTTP_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"THREADMART_HTTP_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"THREADMART_HTTP_SHUTDOWN_TIMEOUT" default:"10s"`
}

// RateLimitConfig bounds write traffic per user (or per IP when anonymous).
type RateLimitConfig struct {
	Window time.Duration `envconfig:"THREADMART_RATE_LIMIT_WINDOW" default:"1m"`
	Writes int           `envconfig:"THREADMART_RATE_LIMIT_WRITES" default:"120"`
	Orders int           `envconfig:"THREADMART_RATE_LIMIT_ORDERS" default:"10"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if db.DSN != "" {
		return nil
	}
	if useSQLite {
		db.Driver = DriverSQLite
		db.DSN = defaultSQLiteDSN
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
