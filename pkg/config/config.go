package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvPrefix namespaces every GroupCart environment variable.
	EnvPrefix = "GROUPCART"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "GROUPCART_DB_DSN"
	EnvDBHost = "GROUPCART_DB_HOST"
	EnvDBUser = "GROUPCART_DB_USER"
	EnvDBName = "GROUPCART_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App       AppConfig
	Service   ServiceConfig
	DB        DBConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Flags     FeatureFlagsConfig
	Scheduler SchedulerConfig
	GCP       GCPConfig
	PubSub    PubSubConfig
	Outbox    OutboxConfig
	RateLimit RateLimitConfig
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
	Env          string `envconfig:"GROUPCART_APP_ENV" required:"true"`
	Port         string `envconfig:"GROUPCART_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"GROUPCART_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"GROUPCART_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"GROUPCART_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"GROUPCART_DB_DSN"`
	Driver string `envconfig:"GROUPCART_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"GROUPCART_DB_HOST"`
	LegacyPort     int    `envconfig:"GROUPCART_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"GROUPCART_DB_USER"`
	LegacyPassword string `envconfig:"GROUPCART_DB_PASSWORD"`
	LegacyName     string `envconfig:"GROUPCART_DB_NAME"`
	LegacySSLMode  string `envconfig:"GROUPCART_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"GROUPCART_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"GROUPCART_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"GROUPCART_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"GROUPCART_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"GROUPCART_REDIS_URL" required:"true"`
	Address      string        `envconfig:"GROUPCART_REDIS_ADDR"`
	Password     string        `envconfig:"GROUPCART_REDIS_PASSWORD"`
	DB           int           `envconfig:"GROUPCART_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"GROUPCART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"GROUPCART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"GROUPCART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"GROUPCART_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"GROUPCART_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"GROUPCART_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"GROUPCART_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"GROUPCART_JWT_EXPIRATION_MINUTES" required:"true"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"GROUPCART_AUTO_MIGRATE" default:"false"`
}

// SchedulerConfig drives the cron worker that advances campaign deadlines.
type SchedulerConfig struct {
	Interval           time.Duration `envconfig:"GROUPCART_SCHEDULER_INTERVAL" default:"1m"`
	LockTTL            time.Duration `envconfig:"GROUPCART_SCHEDULER_LOCK_TTL" default:"5m"`
	DefaultGraceWindow time.Duration `envconfig:"GROUPCART_SCHEDULER_DEFAULT_GRACE_WINDOW" default:"48h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"GROUPCART_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"GROUPCART_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"GROUPCART_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	CampaignTopic        string `envconfig:"GROUPCART_PUBSUB_CAMPAIGN_TOPIC" required:"true"`
	CampaignSubscription string `envconfig:"GROUPCART_PUBSUB_CAMPAIGN_SUBSCRIPTION" required:"true"`
	PledgeTopic          string `envconfig:"GROUPCART_PUBSUB_PLEDGE_TOPIC" required:"true"`
	PledgeSubscription   string `envconfig:"GROUPCART_PUBSUB_PLEDGE_SUBSCRIPTION" required:"true"`
}

// RateLimitConfig throttles the pledge write surface.
type RateLimitConfig struct {
	PledgeWindow    time.Duration `envconfig:"GROUPCART_RATE_LIMIT_PLEDGE_WINDOW" default:"1m"`
	PledgeIPLimit   int           `envconfig:"GROUPCART_RATE_LIMIT_PLEDGE_IP_LIMIT" default:"60"`
	PledgeUserLimit int           `envconfig:"GROUPCART_RATE_LIMIT_PLEDGE_USER_LIMIT" default:"30"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"GROUPCART_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"GROUPCART_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"GROUPCART_OUTBOX_MAX_ATTEMPTS" default:"10"`
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
