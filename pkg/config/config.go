package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

// EnvPrefix namespaces every environment variable the service reads.
const EnvPrefix = "librarium"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "LIBRARIUM_DB_DSN"
	EnvDBHost = "LIBRARIUM_DB_HOST"
	EnvDBUser = "LIBRARIUM_DB_USER"
	EnvDBName = "LIBRARIUM_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	Library       LibraryConfig
	Cron          CronConfig
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
	Env          string `envconfig:"LIBRARIUM_APP_ENV" required:"true"`
	Port         string `envconfig:"LIBRARIUM_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"LIBRARIUM_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"LIBRARIUM_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"LIBRARIUM_DB_DSN"`
	Driver string `envconfig:"LIBRARIUM_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"LIBRARIUM_DB_HOST"`
	LegacyPort     int    `envconfig:"LIBRARIUM_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"LIBRARIUM_DB_USER"`
	LegacyPassword string `envconfig:"LIBRARIUM_DB_PASSWORD"`
	LegacyName     string `envconfig:"LIBRARIUM_DB_NAME"`
	LegacySSLMode  string `envconfig:"LIBRARIUM_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"LIBRARIUM_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"LIBRARIUM_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"LIBRARIUM_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"LIBRARIUM_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"LIBRARIUM_REDIS_URL" required:"true"`
	Address      string        `envconfig:"LIBRARIUM_REDIS_ADDR"`
	Password     string        `envconfig:"LIBRARIUM_REDIS_PASSWORD"`
	DB           int           `envconfig:"LIBRARIUM_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"LIBRARIUM_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"LIBRARIUM_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"LIBRARIUM_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"LIBRARIUM_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"LIBRARIUM_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"LIBRARIUM_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"LIBRARIUM_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"LIBRARIUM_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"LIBRARIUM_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"LIBRARIUM_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"LIBRARIUM_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"LIBRARIUM_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"LIBRARIUM_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"LIBRARIUM_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"LIBRARIUM_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"LIBRARIUM_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"LIBRARIUM_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"LIBRARIUM_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"LIBRARIUM_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"LIBRARIUM_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

// LibraryConfig holds the static fallbacks for values normally read from the
// settings store.
type LibraryConfig struct {
	ReturnPeriodDays      int    `envconfig:"LIBRARIUM_RETURN_PERIOD_DAYS" default:"14"`
	FinePerDay            string `envconfig:"LIBRARIUM_FINE_PER_DAY" default:"5"`
	ReservationExpiryDays int    `envconfig:"LIBRARIUM_RESERVATION_EXPIRY_DAYS" default:"3"`
}

// FinePerDayDecimal parses the configured per-day fine rate, falling back to
// zero when the value is malformed.
func (c LibraryConfig) FinePerDayDecimal() decimal.Decimal {
	value, err := decimal.NewFromString(c.FinePerDay)
	if err != nil {
		return decimal.Zero
	}
	return value
}

type CronConfig struct {
	Interval time.Duration `envconfig:"LIBRARIUM_CRON_INTERVAL" default:"1h"`
	LockTTL  time.Duration `envconfig:"LIBRARIUM_CRON_LOCK_TTL" default:"2h"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"LIBRARIUM_AUTO_MIGRATE" default:"false"`
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
