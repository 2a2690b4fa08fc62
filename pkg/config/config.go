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
	Reservation  ReservationConfig
	Outbox       OutboxConfig
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
	Env          string `envconfig:"ANTITEXT_APP_ENV" required:"true"`
	Port         string `envconfig:"ANTITEXT_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"ANTITEXT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ANTITEXT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"ANTITEXT_DB_DSN"`
	Driver string `envconfig:"ANTITEXT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"ANTITEXT_DB_HOST"`
	LegacyPort     int    `envconfig:"ANTITEXT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ANTITEXT_DB_USER"`
	LegacyPassword string `envconfig:"ANTITEXT_DB_PASSWORD"`
	LegacyName     string `envconfig:"ANTITEXT_DB_NAME"`
	LegacySSLMode  string `envconfig:"ANTITEXT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ANTITEXT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ANTITEXT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ANTITEXT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ANTITEXT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ANTITEXT_REDIS_URL" required:"true"`
	Address      string        `envconfig:"ANTITEXT_REDIS_ADDR"`
	Password     string        `envconfig:"ANTITEXT_REDIS_PASSWORD"`
	DB           int           `envconfig:"ANTITEXT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ANTITEXT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ANTITEXT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ANTITEXT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ANTITEXT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ANTITEXT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"ANTITEXT_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"ANTITEXT_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"ANTITEXT_JWT_EXPIRATION_MINUTES" default:"60"`
}

// AccessTokenTTL returns the configured access token lifetime.
func (j JWTConfig) AccessTokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type ReservationConfig struct {
	// TTL is the fixed reservation window granted to a claiming buyer.
	TTL time.Duration `envconfig:"ANTITEXT_RESERVATION_TTL" default:"10m"`
	// SweepBatchSize caps how many expired locks one sweep pass releases.
	SweepBatchSize int `envconfig:"ANTITEXT_RESERVATION_SWEEP_BATCH_SIZE" default:"100"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"ANTITEXT_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"ANTITEXT_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"ANTITEXT_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// PollInterval returns the relay poll cadence as a duration.
func (o OutboxConfig) PollInterval() time.Duration {
	if o.PollIntervalMS <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(o.PollIntervalMS) * time.Millisecond
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"ANTITEXT_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"ANTITEXT_AUTO_MIGRATE" default:"false"`
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
