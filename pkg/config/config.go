package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvPrefix scopes every environment variable the service reads.
	EnvPrefix = "privity"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "PRIVITY_DB_DSN"
	EnvDBHost = "PRIVITY_DB_HOST"
	EnvDBUser = "PRIVITY_DB_USER"
	EnvDBName = "PRIVITY_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Booking      BookingConfig
	Cron         CronConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
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
	Env          string `envconfig:"PRIVITY_APP_ENV" required:"true"`
	Port         string `envconfig:"PRIVITY_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PRIVITY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PRIVITY_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"PRIVITY_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"PRIVITY_DB_DSN"`
	Driver string `envconfig:"PRIVITY_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PRIVITY_DB_HOST"`
	LegacyPort     int    `envconfig:"PRIVITY_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PRIVITY_DB_USER"`
	LegacyPassword string `envconfig:"PRIVITY_DB_PASSWORD"`
	LegacyName     string `envconfig:"PRIVITY_DB_NAME"`
	LegacySSLMode  string `envconfig:"PRIVITY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PRIVITY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PRIVITY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PRIVITY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PRIVITY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PRIVITY_REDIS_URL" required:"true"`
	Address      string        `envconfig:"PRIVITY_REDIS_ADDR"`
	Password     string        `envconfig:"PRIVITY_REDIS_PASSWORD"`
	DB           int           `envconfig:"PRIVITY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PRIVITY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PRIVITY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PRIVITY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PRIVITY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PRIVITY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"PRIVITY_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"PRIVITY_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"PRIVITY_JWT_EXPIRATION_MINUTES" required:"true"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"PRIVITY_AUTO_MIGRATE" default:"false"`
	// HardRpCeiling would turn the 30% RP share warning into a rejection.
	// Kept off to match the manual-escalation process the desk runs today.
	HardRpCeiling bool `envconfig:"PRIVITY_FEATURE_HARD_RP_CEILING" default:"false"`
}

type BookingConfig struct {
	MaxTranches      int     `envconfig:"PRIVITY_BOOKING_MAX_TRANCHES" default:"4"`
	RpCeilingPercent float64 `envconfig:"PRIVITY_BOOKING_RP_CEILING_PERCENT" default:"30"`
	BpDefaultPercent float64 `envconfig:"PRIVITY_BOOKING_BP_DEFAULT_PERCENT" default:"10"`
}

type CronConfig struct {
	Interval    time.Duration `envconfig:"PRIVITY_CRON_INTERVAL" default:"1h"`
	LockTTL     time.Duration `envconfig:"PRIVITY_CRON_LOCK_TTL" default:"55m"`
	SweepWindow time.Duration `envconfig:"PRIVITY_CRON_SWEEP_WINDOW" default:"72h"`
	SweepBatch  int           `envconfig:"PRIVITY_CRON_SWEEP_BATCH" default:"200"`
	MetricsAddr string        `envconfig:"PRIVITY_CRON_METRICS_ADDR" default:":9464"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"PRIVITY_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"PRIVITY_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"PRIVITY_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	BookingTopic        string `envconfig:"PRIVITY_PUBSUB_BOOKING_TOPIC" default:"privity-booking-events"`
	BookingSubscription string `envconfig:"PRIVITY_PUBSUB_BOOKING_SUBSCRIPTION" default:"privity-booking-events-sub"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"PRIVITY_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"PRIVITY_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"PRIVITY_OUTBOX_MAX_ATTEMPTS" default:"10"`
	IdempotencyTTL time.Duration `envconfig:"PRIVITY_OUTBOX_IDEMPOTENCY_TTL" default:"72h"`
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
