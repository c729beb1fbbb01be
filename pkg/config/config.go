package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Engine       EngineConfig
	Sweeper      SweeperConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
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
	if err := cfg.Engine.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"BIDHAUS_APP_ENV" required:"true"`
	Port         string `envconfig:"BIDHAUS_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"BIDHAUS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BIDHAUS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"BIDHAUS_DB_DSN"`
	Driver string `envconfig:"BIDHAUS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"BIDHAUS_DB_HOST"`
	LegacyPort     int    `envconfig:"BIDHAUS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"BIDHAUS_DB_USER"`
	LegacyPassword string `envconfig:"BIDHAUS_DB_PASSWORD"`
	LegacyName     string `envconfig:"BIDHAUS_DB_NAME"`
	LegacySSLMode  string `envconfig:"BIDHAUS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BIDHAUS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BIDHAUS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BIDHAUS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BIDHAUS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BIDHAUS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"BIDHAUS_REDIS_ADDR"`
	Password     string        `envconfig:"BIDHAUS_REDIS_PASSWORD"`
	DB           int           `envconfig:"BIDHAUS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BIDHAUS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BIDHAUS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BIDHAUS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BIDHAUS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BIDHAUS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// EngineConfig holds the bidding engine tunables.
type EngineConfig struct {
	SoftCloseWindow      time.Duration `envconfig:"BIDHAUS_ENGINE_SOFT_CLOSE_WINDOW" default:"5m"`
	ExtensionDuration    time.Duration `envconfig:"BIDHAUS_ENGINE_EXTENSION_DURATION" default:"5m"`
	LockTTL              time.Duration `envconfig:"BIDHAUS_ENGINE_LOCK_TTL" default:"10s"`
	DefaultMinIncrement  string        `envconfig:"BIDHAUS_ENGINE_DEFAULT_MIN_INCREMENT" default:"1.00"`
	MaxAuctionDurationHr int           `envconfig:"BIDHAUS_ENGINE_MAX_DURATION_HOURS" default:"336"`
}

func (e EngineConfig) validate() error {
	if e.SoftCloseWindow <= 0 {
		return fmt.Errorf("soft close window must be positive")
	}
	if e.ExtensionDuration <= 0 {
		return fmt.Errorf("extension duration must be positive")
	}
	if e.LockTTL <= 0 {
		return fmt.Errorf("lock ttl must be positive")
	}
	inc, err := decimal.NewFromString(e.DefaultMinIncrement)
	if err != nil {
		return fmt.Errorf("invalid default min increment %q: %w", e.DefaultMinIncrement, err)
	}
	if !inc.IsPositive() {
		return fmt.Errorf("default min increment must be positive")
	}
	return nil
}

// MinIncrement returns the configured default increment as a decimal.
// validate() guarantees the string parses.
func (e EngineConfig) MinIncrement() decimal.Decimal {
	inc, _ := decimal.NewFromString(e.DefaultMinIncrement)
	return inc
}

type SweeperConfig struct {
	Interval    time.Duration `envconfig:"BIDHAUS_SWEEP_INTERVAL" default:"1m"`
	BatchSize   int           `envconfig:"BIDHAUS_SWEEP_BATCH_SIZE" default:"50"`
	LockTTL     time.Duration `envconfig:"BIDHAUS_SWEEP_LOCK_TTL" default:"5m"`
	MetricsPort string        `envconfig:"BIDHAUS_SWEEP_METRICS_PORT" default:"9102"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"BIDHAUS_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"BIDHAUS_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"BIDHAUS_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	AuctionEventsTopic string `envconfig:"BIDHAUS_PUBSUB_AUCTION_EVENTS_TOPIC" default:"bh-auction-events"`
	VendorNoticesTopic string `envconfig:"BIDHAUS_PUBSUB_VENDOR_NOTICES_TOPIC" default:"bh-vendor-notices"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"BIDHAUS_AUTO_MIGRATE" default:"false"`
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
	q := u.Query()
	q.Set("sslmode", db.LegacySSLMode)
	u.RawQuery = q.Encode()

	db.DSN = u.String()
	return nil
}
