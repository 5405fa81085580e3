package config

// EnvPrefix is passed to envconfig; individual fields carry explicit names.
const EnvPrefix = "HAULPOINTS"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

// Environment variable names referenced outside struct tags.
const (
	EnvAppEnv   = "HAULPOINTS_APP_ENV"
	EnvPort     = "HAULPOINTS_APP_PORT"
	EnvDBDSN    = "HAULPOINTS_DB_DSN"
	EnvDBHost   = "HAULPOINTS_DB_HOST"
	EnvDBUser   = "HAULPOINTS_DB_USER"
	EnvDBName   = "HAULPOINTS_DB_NAME"
	EnvRedisURL = "HAULPOINTS_REDIS_URL"

	EnvJWTSecret  = "HAULPOINTS_JWT_SECRET"
	EnvJWTIssuer  = "HAULPOINTS_JWT_ISSUER"
	EnvJWTExpMins = "HAULPOINTS_JWT_EXPIRATION_MINUTES"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
