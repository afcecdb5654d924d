package config

// EnvPrefix is passed to envconfig; every field carries its full variable name.
const EnvPrefix = "THREADMART"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	defaultSQLiteDSN = "file:threadmart.db?cache=shared&_foreign_keys=on"
)

const (
	EnvAppEnv        = "THREADMART_APP_ENV"
	EnvPort          = "THREADMART_APP_PORT"
	EnvLogLevel      = "THREADMART_LOG_LEVEL"
	EnvDBDSN         = "THREADMART_DB_DSN"
	EnvDBHost        = "THREADMART_DB_HOST"
	EnvDBUser        = "THREADMART_DB_USER"
	EnvDBName        = "THREADMART_DB_NAME"
	EnvDBPassword    = "THREADMART_DB_PASSWORD"
	EnvUseSQLite     = "THREADMART_USE_SQLITE"
	EnvRedisURL      = "THREADMART_REDIS_URL"
	EnvJWTSecret     = "THREADMART_JWT_SECRET"
	EnvJWTIssuer     = "THREADMART_JWT_ISSUER"
	EnvGCPProjectID  = "THREADMART_GCP_PROJECT_ID"
	EnvPricingTopic  = "THREADMART_PUBSUB_PRICING_TOPIC"
	EnvPricingSub    = "THREADMART_PUBSUB_PRICING_SUBSCRIPTION"
	EnvSweepInterval = "THREADMART_PRICING_SWEEP_INTERVAL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
