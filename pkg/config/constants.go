package config

// EnvPrefix is passed to envconfig; individual fields carry fully-qualified
// envconfig tags so the prefix stays empty.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

// Environment variable names shared between Load, tests, and ops tooling.
const (
	EnvAppEnv    = "CARDHAUS_APP_ENV"
	EnvPort      = "CARDHAUS_APP_PORT"
	EnvDBDSN     = "CARDHAUS_DB_DSN"
	EnvDBHost    = "CARDHAUS_DB_HOST"
	EnvDBUser    = "CARDHAUS_DB_USER"
	EnvDBName    = "CARDHAUS_DB_NAME"
	EnvRedisURL  = "CARDHAUS_REDIS_URL"
	EnvJWTSecret = "CARDHAUS_JWT_SECRET"
	EnvJWTIssuer = "CARDHAUS_JWT_ISSUER"
	EnvJWTExpMins             = "CARDHAUS_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "CARDHAUS_REFRESH_TOKEN_TTL_MINUTES"
	EnvGCPProjectID           = "CARDHAUS_GCP_PROJECT_ID"
	EnvPaymentBaseURL         = "CARDHAUS_PAYMENT_BASE_URL"
	EnvPubSubOrdersTopic      = "CARDHAUS_PUBSUB_ORDERS_TOPIC"
	EnvPubSubOrdersSub        = "CARDHAUS_PUBSUB_ORDERS_SUBSCRIPTION"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
