package config

const (
	EnvPrefix = "CAKEVERSE"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	EnvAppEnv    = "CAKEVERSE_APP_ENV"
	EnvPort      = "CAKEVERSE_APP_PORT"
	EnvLogLevel  = "CAKEVERSE_LOG_LEVEL"
	EnvLogFormat = "CAKEVERSE_LOG_FORMAT"

	EnvDBDSN    = "CAKEVERSE_DB_DSN"
	EnvDBDriver = "CAKEVERSE_DB_DRIVER"
	EnvDBHost   = "CAKEVERSE_DB_HOST"
	EnvDBPort   = "CAKEVERSE_DB_PORT"
	EnvDBUser   = "CAKEVERSE_DB_USER"
	EnvDBPass   = "CAKEVERSE_DB_PASSWORD"
	EnvDBName   = "CAKEVERSE_DB_NAME"

	EnvRedisURL = "CAKEVERSE_REDIS_URL"

	EnvJWTSecret = "CAKEVERSE_JWT_SECRET"
	EnvJWTIssuer = "CAKEVERSE_JWT_ISSUER"

	EnvUseSQLite             = "CAKEVERSE_USE_SQLITE"
	EnvAutoMigrate           = "CAKEVERSE_AUTO_MIGRATE"
	EnvAllowUnsignedWebhooks = "CAKEVERSE_ALLOW_UNSIGNED_WEBHOOKS"

	EnvPayOSClientID    = "CAKEVERSE_PAYOS_CLIENT_ID"
	EnvPayOSAPIKey      = "CAKEVERSE_PAYOS_API_KEY"
	EnvPayOSChecksumKey = "CAKEVERSE_PAYOS_CHECKSUM_KEY"

	EnvLedgerPendingDelay     = "CAKEVERSE_LEDGER_PENDING_TO_ORDERED_DELAY"
	EnvLedgerShippedDelay     = "CAKEVERSE_LEDGER_SHIPPED_TO_COMPLETED_DELAY"
	EnvLedgerAIGenerationCost = "CAKEVERSE_LEDGER_AI_GENERATION_COST"

	EnvCronPromotionInterval  = "CAKEVERSE_CRON_PROMOTION_INTERVAL"
	EnvCronCompletionInterval = "CAKEVERSE_CRON_COMPLETION_INTERVAL"

	EnvGCPProjectID      = "CAKEVERSE_GCP_PROJECT_ID"
	EnvPubSubDomainTopic = "CAKEVERSE_PUBSUB_DOMAIN_TOPIC"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
