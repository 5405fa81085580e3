package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	Ebay          EbayConfig
	Catalog       CatalogConfig
	Recurring     RecurringConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
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
	Env          string `envconfig:"HAULPOINTS_APP_ENV" required:"true"`
	Port         string `envconfig:"HAULPOINTS_APP_PORT" required:"true"`
	MetricsPort  string `envconfig:"HAULPOINTS_METRICS_PORT" default:"9090"`
	LogLevel     string `envconfig:"HAULPOINTS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"HAULPOINTS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"HAULPOINTS_DB_DSN"`
	Driver string `envconfig:"HAULPOINTS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"HAULPOINTS_DB_HOST"`
	LegacyPort     int    `envconfig:"HAULPOINTS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"HAULPOINTS_DB_USER"`
	LegacyPassword string `envconfig:"HAULPOINTS_DB_PASSWORD"`
	LegacyName     string `envconfig:"HAULPOINTS_DB_NAME"`
	LegacySSLMode  string `envconfig:"HAULPOINTS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"HAULPOINTS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"HAULPOINTS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"HAULPOINTS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"HAULPOINTS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"HAULPOINTS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"HAULPOINTS_REDIS_ADDR"`
	Password     string        `envconfig:"HAULPOINTS_REDIS_PASSWORD"`
	DB           int           `envconfig:"HAULPOINTS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"HAULPOINTS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"HAULPOINTS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"HAULPOINTS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"HAULPOINTS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"HAULPOINTS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"HAULPOINTS_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"HAULPOINTS_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"HAULPOINTS_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"HAULPOINTS_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"HAULPOINTS_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"HAULPOINTS_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"HAULPOINTS_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"HAULPOINTS_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"HAULPOINTS_ARGON_KEY_LEN" default:"32"`
}

type EbayConfig struct {
	ClientID      string        `envconfig:"HAULPOINTS_EBAY_CLIENT_ID"`
	ClientSecret  string        `envconfig:"HAULPOINTS_EBAY_CLIENT_SECRET"`
	APIBaseURL    string        `envconfig:"HAULPOINTS_EBAY_API_BASE_URL" default:"https://api.ebay.com"`
	AuthBaseURL   string        `envconfig:"HAULPOINTS_EBAY_AUTH_BASE_URL" default:"https://api.ebay.com/identity/v1"`
	Timeout       time.Duration `envconfig:"HAULPOINTS_EBAY_TIMEOUT" default:"10s"`
	TokenTTLSlack time.Duration `envconfig:"HAULPOINTS_EBAY_TOKEN_TTL_SLACK" default:"1m"`
}

type CatalogConfig struct {
	SearchLimit     int    `envconfig:"HAULPOINTS_CATALOG_SEARCH_LIMIT" default:"24"`
	PlaceholderText string `envconfig:"HAULPOINTS_CATALOG_PLACEHOLDER_TEXT" default:"No description available."`
	PlaceholderIcon string `envconfig:"HAULPOINTS_CATALOG_PLACEHOLDER_ICON" default:"/assets/placeholder-item.png"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"HAULPOINTS_AUTH_RL_LOGIN_WINDOW" default:"15m"`
	LoginIPLimit       int           `envconfig:"HAULPOINTS_AUTH_RL_LOGIN_IP_LIMIT" default:"20"`
	LoginEmailLimit    int           `envconfig:"HAULPOINTS_AUTH_RL_LOGIN_EMAIL_LIMIT" default:"10"`
	RegisterWindow     time.Duration `envconfig:"HAULPOINTS_AUTH_RL_REGISTER_WINDOW" default:"1h"`
	RegisterIPLimit    int           `envconfig:"HAULPOINTS_AUTH_RL_REGISTER_IP_LIMIT" default:"10"`
	RegisterEmailLimit int           `envconfig:"HAULPOINTS_AUTH_RL_REGISTER_EMAIL_LIMIT" default:"5"`
}

type RecurringConfig struct {
	Interval time.Duration `envconfig:"HAULPOINTS_RECURRING_INTERVAL" default:"1m"`
	Batch    int           `envconfig:"HAULPOINTS_RECURRING_BATCH" default:"100"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool   `envconfig:"HAULPOINTS_USE_SQLITE" default:"false"`
	SQLitePath  string `envconfig:"HAULPOINTS_SQLITE_PATH" default:"haulpoints.db"`
	AutoMigrate bool   `envconfig:"HAULPOINTS_AUTO_MIGRATE" default:"false"`
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
