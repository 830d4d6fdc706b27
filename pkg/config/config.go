package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	Checkout      CheckoutConfig
	Outbox        OutboxConfig
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
	Env          string `envconfig:"FRESHLANE_APP_ENV" required:"true"`
	Port         string `envconfig:"FRESHLANE_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"FRESHLANE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"FRESHLANE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"FRESHLANE_DB_DSN"`

	Host     string `envconfig:"FRESHLANE_DB_HOST"`
	Port     int    `envconfig:"FRESHLANE_DB_PORT" default:"5432"`
	User     string `envconfig:"FRESHLANE_DB_USER"`
	Password string `envconfig:"FRESHLANE_DB_PASSWORD"`
	Name     string `envconfig:"FRESHLANE_DB_NAME"`
	SSLMode  string `envconfig:"FRESHLANE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"FRESHLANE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FRESHLANE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FRESHLANE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FRESHLANE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"FRESHLANE_REDIS_URL"`
	Address      string        `envconfig:"FRESHLANE_REDIS_ADDR"`
	Password     string        `envconfig:"FRESHLANE_REDIS_PASSWORD"`
	DB           int           `envconfig:"FRESHLANE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FRESHLANE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FRESHLANE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FRESHLANE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FRESHLANE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FRESHLANE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"FRESHLANE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"FRESHLANE_JWT_ISSUER" default:"freshlane"`
	ExpirationMinutes int    `envconfig:"FRESHLANE_JWT_EXPIRATION_MINUTES" default:"1440"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"FRESHLANE_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"FRESHLANE_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"FRESHLANE_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"FRESHLANE_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"FRESHLANE_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"FRESHLANE_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"FRESHLANE_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"FRESHLANE_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"FRESHLANE_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"FRESHLANE_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"FRESHLANE_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type CheckoutConfig struct {
	IdempotencyTTL time.Duration `envconfig:"FRESHLANE_CHECKOUT_IDEMPOTENCY_TTL" default:"24h"`
}

type OutboxConfig struct {
	BatchSize    int           `envconfig:"FRESHLANE_OUTBOX_BATCH_SIZE" default:"50"`
	PollInterval time.Duration `envconfig:"FRESHLANE_OUTBOX_POLL_INTERVAL" default:"500ms"`
	MaxAttempts  int           `envconfig:"FRESHLANE_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"FRESHLANE_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	for env, value := range map[string]string{
		"FRESHLANE_DB_HOST": db.Host,
		"FRESHLANE_DB_USER": db.User,
		"FRESHLANE_DB_NAME": db.Name,
	} {
		if value == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("either FRESHLANE_DB_DSN or %s are required", strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}
	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
