package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

const (
	EnvPrefix = "RECKONER"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "RECKONER_DB_DSN"
	EnvDBHost = "RECKONER_DB_HOST"
	EnvDBUser = "RECKONER_DB_USER"
	EnvDBName = "RECKONER_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Lock         LockConfig
	Offers       OffersConfig
	RateLimit    RateLimitConfig
	Export       ExportConfig
	PubSub       PubSubConfig
	GCP          GCPConfig
	FeatureFlags FeatureFlagsConfig
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
	Env          string `envconfig:"RECKONER_APP_ENV" required:"true"`
	Port         string `envconfig:"RECKONER_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"RECKONER_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"RECKONER_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"RECKONER_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"RECKONER_DB_DSN"`
	Driver string `envconfig:"RECKONER_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"RECKONER_DB_HOST"`
	LegacyPort     int    `envconfig:"RECKONER_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"RECKONER_DB_USER"`
	LegacyPassword string `envconfig:"RECKONER_DB_PASSWORD"`
	LegacyName     string `envconfig:"RECKONER_DB_NAME"`
	LegacySSLMode  string `envconfig:"RECKONER_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"RECKONER_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"RECKONER_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"RECKONER_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"RECKONER_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"RECKONER_REDIS_URL"`
	Address      string        `envconfig:"RECKONER_REDIS_ADDR"`
	Password     string        `envconfig:"RECKONER_REDIS_PASSWORD"`
	DB           int           `envconfig:"RECKONER_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"RECKONER_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"RECKONER_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"RECKONER_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"RECKONER_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"RECKONER_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"RECKONER_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"RECKONER_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"RECKONER_JWT_EXPIRATION_MINUTES" default:"60"`
}

// LockConfig bounds the per-key write lock used by price/offer submissions.
type LockConfig struct {
	MaxWait time.Duration `envconfig:"RECKONER_LOCK_MAX_WAIT" default:"20s"`
	TTL     time.Duration `envconfig:"RECKONER_LOCK_TTL" default:"30s"`
	Backoff time.Duration `envconfig:"RECKONER_LOCK_BACKOFF" default:"200ms"`
}

type OffersConfig struct {
	// MaxAmount caps Amount-type discounts; mirrors the max-discount system
	// setting the pricing team tunes in production.
	MaxAmount decimal.Decimal `envconfig:"RECKONER_OFFER_MAX_AMOUNT" default:"100000"`
}

// RateLimitConfig throttles mutating pricing routes. A zero window or zero
// limits disables the limiter entirely.
type RateLimitConfig struct {
	Window     time.Duration `envconfig:"RECKONER_RATE_LIMIT_WINDOW" default:"1m"`
	IPLimit    int           `envconfig:"RECKONER_RATE_LIMIT_IP" default:"600"`
	ActorLimit int           `envconfig:"RECKONER_RATE_LIMIT_ACTOR" default:"240"`
}

type ExportConfig struct {
	MaxRows int `envconfig:"RECKONER_EXPORT_MAX_ROWS" default:"5000"`
}

type PubSubConfig struct {
	PricingEventsTopic string `envconfig:"RECKONER_PUBSUB_PRICING_TOPIC" default:"reckoner-pricing-events"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"RECKONER_GCP_PROJECT_ID"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"RECKONER_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"RECKONER_AUTO_MIGRATE" default:"false"`
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
