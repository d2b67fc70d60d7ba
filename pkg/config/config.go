package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Gateway      GatewayConfig
	Ledger       LedgerConfig
	Cron         CronConfig
	Webhook      WebhookConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	CORS         CORSConfig
	RateLimit    RateLimitConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Ledger.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"CAKEVERSE_APP_ENV" required:"true"`
	Port         string `envconfig:"CAKEVERSE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"CAKEVERSE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CAKEVERSE_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"CAKEVERSE_LOG_FORMAT" default:"json"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"CAKEVERSE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"CAKEVERSE_DB_DSN"`
	Driver string `envconfig:"CAKEVERSE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"CAKEVERSE_DB_HOST"`
	LegacyPort     int    `envconfig:"CAKEVERSE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CAKEVERSE_DB_USER"`
	LegacyPassword string `envconfig:"CAKEVERSE_DB_PASSWORD"`
	LegacyName     string `envconfig:"CAKEVERSE_DB_NAME"`
	LegacySSLMode  string `envconfig:"CAKEVERSE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CAKEVERSE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CAKEVERSE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CAKEVERSE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CAKEVERSE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"CAKEVERSE_DB_SLOW_QUERY" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CAKEVERSE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"CAKEVERSE_REDIS_ADDR"`
	Password     string        `envconfig:"CAKEVERSE_REDIS_PASSWORD"`
	DB           int           `envconfig:"CAKEVERSE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CAKEVERSE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CAKEVERSE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CAKEVERSE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CAKEVERSE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CAKEVERSE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"CAKEVERSE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"CAKEVERSE_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"CAKEVERSE_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"CAKEVERSE_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"CAKEVERSE_AUTO_MIGRATE" default:"false"`
	// AllowUnsignedWebhooks accepts the flat notification layout, which carries no signature.
	AllowUnsignedWebhooks bool `envconfig:"CAKEVERSE_ALLOW_UNSIGNED_WEBHOOKS" default:"false"`
}

// GatewayConfig holds the PayOS merchant credentials.
type GatewayConfig struct {
	BaseURL     string        `envconfig:"CAKEVERSE_PAYOS_BASE_URL" default:"https://api-merchant.payos.vn"`
	ClientID    string        `envconfig:"CAKEVERSE_PAYOS_CLIENT_ID"`
	APIKey      string        `envconfig:"CAKEVERSE_PAYOS_API_KEY"`
	ChecksumKey string        `envconfig:"CAKEVERSE_PAYOS_CHECKSUM_KEY"`
	ReturnURL   string        `envconfig:"CAKEVERSE_PAYOS_RETURN_URL"`
	CancelURL   string        `envconfig:"CAKEVERSE_PAYOS_CANCEL_URL"`
	Timeout     time.Duration `envconfig:"CAKEVERSE_PAYOS_TIMEOUT" default:"10s"`
}

// Enabled reports whether hosted payment links can be created.
func (g GatewayConfig) Enabled() bool {
	return g.ClientID != "" && g.APIKey != "" && g.ChecksumKey != ""
}

type LedgerConfig struct {
	PendingToOrderedDelay   time.Duration `envconfig:"CAKEVERSE_LEDGER_PENDING_TO_ORDERED_DELAY" default:"5m"`
	ShippedToCompletedDelay time.Duration `envconfig:"CAKEVERSE_LEDGER_SHIPPED_TO_COMPLETED_DELAY" default:"2h"`
	AIGenerationCost        string        `envconfig:"CAKEVERSE_LEDGER_AI_GENERATION_COST" default:"5000"`
}

// GenerationCost parses the configured per-image charge.
func (l LedgerConfig) GenerationCost() decimal.Decimal {
	cost, err := decimal.NewFromString(strings.TrimSpace(l.AIGenerationCost))
	if err != nil {
		return decimal.Zero
	}
	return cost
}

func (l LedgerConfig) validate() error {
	cost, err := decimal.NewFromString(strings.TrimSpace(l.AIGenerationCost))
	if err != nil {
		return fmt.Errorf("%s must be a decimal amount: %w", EnvLedgerAIGenerationCost, err)
	}
	if !cost.IsPositive() {
		return fmt.Errorf("%s must be positive", EnvLedgerAIGenerationCost)
	}
	if l.PendingToOrderedDelay <= 0 || l.ShippedToCompletedDelay <= 0 {
		return fmt.Errorf("ledger promotion delays must be positive")
	}
	return nil
}

type CronConfig struct {
	PromotionInterval  time.Duration `envconfig:"CAKEVERSE_CRON_PROMOTION_INTERVAL" default:"5m"`
	CompletionInterval time.Duration `envconfig:"CAKEVERSE_CRON_COMPLETION_INTERVAL" default:"15m"`
	LockTTL            time.Duration `envconfig:"CAKEVERSE_CRON_LOCK_TTL" default:"4m"`
}

type WebhookConfig struct {
	IdempotencyTTL time.Duration `envconfig:"CAKEVERSE_WEBHOOK_IDEMPOTENCY_TTL" default:"168h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"CAKEVERSE_GCP_PROJECT_ID"`
	ApplicationCredentials string `envconfig:"CAKEVERSE_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	DomainTopic string `envconfig:"CAKEVERSE_PUBSUB_DOMAIN_TOPIC" default:"cakeverse-domain-events"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"CAKEVERSE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"CAKEVERSE_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"CAKEVERSE_OUTBOX_MAX_ATTEMPTS" default:"10"`
	Retention      time.Duration `envconfig:"CAKEVERSE_OUTBOX_RETENTION" default:"720h"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"CAKEVERSE_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

// RateLimitConfig bounds request bursts per caller within a fixed window. A
// zero limit disables that policy.
type RateLimitConfig struct {
	Window       time.Duration `envconfig:"CAKEVERSE_RATE_LIMIT_WINDOW" default:"1m"`
	AIChargeUser int           `envconfig:"CAKEVERSE_RATE_LIMIT_AI_CHARGE_USER" default:"30"`
	DepositUser  int           `envconfig:"CAKEVERSE_RATE_LIMIT_DEPOSIT_USER" default:"10"`
	WebhookIP    int           `envconfig:"CAKEVERSE_RATE_LIMIT_WEBHOOK_IP" default:"120"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if strings.EqualFold(db.Driver, DriverSQLite) {
		return fmt.Errorf("%s is required when %s is %s", EnvDBDSN, EnvDBDriver, DriverSQLite)
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
