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
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Password     PasswordConfig
	Pricing      PricingConfig
	Payment      PaymentConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	AuthRateLimit AuthRateLimitConfig
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
	Env          string `envconfig:"CARDHAUS_APP_ENV" required:"true"`
	Port         string `envconfig:"CARDHAUS_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"CARDHAUS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CARDHAUS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"CARDHAUS_DB_DSN"`
	Driver string `envconfig:"CARDHAUS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"CARDHAUS_DB_HOST"`
	LegacyPort     int    `envconfig:"CARDHAUS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CARDHAUS_DB_USER"`
	LegacyPassword string `envconfig:"CARDHAUS_DB_PASSWORD"`
	LegacyName     string `envconfig:"CARDHAUS_DB_NAME"`
	LegacySSLMode  string `envconfig:"CARDHAUS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CARDHAUS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CARDHAUS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CARDHAUS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CARDHAUS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CARDHAUS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"CARDHAUS_REDIS_ADDR"`
	Password     string        `envconfig:"CARDHAUS_REDIS_PASSWORD"`
	DB           int           `envconfig:"CARDHAUS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CARDHAUS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CARDHAUS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CARDHAUS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CARDHAUS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CARDHAUS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"CARDHAUS_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"CARDHAUS_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"CARDHAUS_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"CARDHAUS_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"CARDHAUS_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"CARDHAUS_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"CARDHAUS_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"CARDHAUS_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen     int `envconfig:"CARDHAUS_ARGON_KEY_LEN" default:"32"`
}

// PricingConfig carries the storefront pricing policy. Defaults match the
// published policy: free delivery above 100.00, flat 10.00 otherwise, 15% tax.
type PricingConfig struct {
	FreeShippingThreshold string `envconfig:"CARDHAUS_PRICING_FREE_SHIPPING_THRESHOLD" default:"100"`
	FlatShippingPrice     string `envconfig:"CARDHAUS_PRICING_FLAT_SHIPPING_PRICE" default:"10"`
	TaxRate               string `envconfig:"CARDHAUS_PRICING_TAX_RATE" default:"0.15"`
}

// PaymentConfig configures the external payment processor handshake.
type PaymentConfig struct {
	BaseURL       string        `envconfig:"CARDHAUS_PAYMENT_BASE_URL" required:"true"`
	APIKey        string        `envconfig:"CARDHAUS_PAYMENT_API_KEY"`
	WebhookSecret string        `envconfig:"CARDHAUS_PAYMENT_WEBHOOK_SECRET"`
	Currency      string        `envconfig:"CARDHAUS_PAYMENT_CURRENCY" default:"USD"`
	Timeout       time.Duration `envconfig:"CARDHAUS_PAYMENT_TIMEOUT" default:"10s"`
	Env           string        `envconfig:"CARDHAUS_PAYMENT_ENV" default:"sandbox"`
}

// Environment returns the normalized processor environment (sandbox/live).
func (p PaymentConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(p.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"CARDHAUS_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"CARDHAUS_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"CARDHAUS_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"CARDHAUS_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"CARDHAUS_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic        string `envconfig:"CARDHAUS_PUBSUB_ORDERS_TOPIC" required:"true"`
	OrdersSubscription string `envconfig:"CARDHAUS_PUBSUB_ORDERS_SUBSCRIPTION" required:"true"`
}

// AuthRateLimitConfig throttles credential-guessing traffic on the auth
// endpoints. Zero limits disable the corresponding counter.
type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"CARDHAUS_AUTH_RL_LOGIN_WINDOW" default:"5m"`
	LoginIPLimit       int           `envconfig:"CARDHAUS_AUTH_RL_LOGIN_IP_LIMIT" default:"30"`
	LoginEmailLimit    int           `envconfig:"CARDHAUS_AUTH_RL_LOGIN_EMAIL_LIMIT" default:"10"`
	RegisterWindow     time.Duration `envconfig:"CARDHAUS_AUTH_RL_REGISTER_WINDOW" default:"1h"`
	RegisterIPLimit    int           `envconfig:"CARDHAUS_AUTH_RL_REGISTER_IP_LIMIT" default:"20"`
	RegisterEmailLimit int           `envconfig:"CARDHAUS_AUTH_RL_REGISTER_EMAIL_LIMIT" default:"5"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"CARDHAUS_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"CARDHAUS_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"CARDHAUS_OUTBOX_MAX_ATTEMPTS" default:"10"`
	IdempotencyTTL time.Duration `envconfig:"CARDHAUS_OUTBOX_IDEMPOTENCY_TTL" default:"720h"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
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
