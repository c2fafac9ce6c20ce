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
	// EnvPrefix namespaces every environment variable the service reads.
	EnvPrefix = "MARKETBAY"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "MARKETBAY_DB_DSN"
	EnvDBHost = "MARKETBAY_DB_HOST"
	EnvDBUser = "MARKETBAY_DB_USER"
	EnvDBName = "MARKETBAY_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Settlement   SettlementConfig
	Razorpay     RazorpayConfig
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
	if err := cfg.Settlement.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"MARKETBAY_APP_ENV" required:"true"`
	Port         string `envconfig:"MARKETBAY_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"MARKETBAY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MARKETBAY_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"MARKETBAY_DB_DSN"`
	Driver string `envconfig:"MARKETBAY_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"MARKETBAY_DB_HOST"`
	LegacyPort     int    `envconfig:"MARKETBAY_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"MARKETBAY_DB_USER"`
	LegacyPassword string `envconfig:"MARKETBAY_DB_PASSWORD"`
	LegacyName     string `envconfig:"MARKETBAY_DB_NAME"`
	LegacySSLMode  string `envconfig:"MARKETBAY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MARKETBAY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MARKETBAY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MARKETBAY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MARKETBAY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"MARKETBAY_REDIS_URL" required:"true"`
	Address      string        `envconfig:"MARKETBAY_REDIS_ADDR"`
	Password     string        `envconfig:"MARKETBAY_REDIS_PASSWORD"`
	DB           int           `envconfig:"MARKETBAY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MARKETBAY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MARKETBAY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MARKETBAY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MARKETBAY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MARKETBAY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// SettlementConfig carries the platform's money policy. The rates are decimal
// fractions ("0.01" is one percent) so the calculator never touches floats.
type SettlementConfig struct {
	PlatformFeeRate       string        `envconfig:"MARKETBAY_SETTLEMENT_PLATFORM_FEE_RATE" default:"0.01"`
	TaxRate               string        `envconfig:"MARKETBAY_SETTLEMENT_TAX_RATE" default:"0.18"`
	DefaultCommissionRate string        `envconfig:"MARKETBAY_SETTLEMENT_DEFAULT_COMMISSION_RATE" default:"0.05"`
	HoldPeriodDays        int           `envconfig:"MARKETBAY_SETTLEMENT_HOLD_PERIOD_DAYS" default:"7"`
	RuleCacheTTL          time.Duration `envconfig:"MARKETBAY_SETTLEMENT_RULE_CACHE_TTL" default:"60s"`
}

func (s SettlementConfig) validate() error {
	for name, raw := range map[string]string{
		"platform fee rate":       s.PlatformFeeRate,
		"tax rate":                s.TaxRate,
		"default commission rate": s.DefaultCommissionRate,
	} {
		if _, err := decimal.NewFromString(raw); err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, raw, err)
		}
	}
	if s.HoldPeriodDays < 0 {
		return fmt.Errorf("hold period days must be non-negative")
	}
	return nil
}

// PlatformFee returns the parsed platform fee rate.
func (s SettlementConfig) PlatformFee() decimal.Decimal {
	return decimal.RequireFromString(s.PlatformFeeRate)
}

// Tax returns the parsed tax rate applied to commission.
func (s SettlementConfig) Tax() decimal.Decimal {
	return decimal.RequireFromString(s.TaxRate)
}

// DefaultCommission returns the fallback commission rate.
func (s SettlementConfig) DefaultCommission() decimal.Decimal {
	return decimal.RequireFromString(s.DefaultCommissionRate)
}

// HoldPeriod returns the post-period clearance window.
func (s SettlementConfig) HoldPeriod() time.Duration {
	return time.Duration(s.HoldPeriodDays) * 24 * time.Hour
}

type RazorpayConfig struct {
	WebhookSecret       string        `envconfig:"MARKETBAY_RAZORPAY_WEBHOOK_SECRET" required:"true"`
	EventIdempotencyTTL time.Duration `envconfig:"MARKETBAY_RAZORPAY_EVENT_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"MARKETBAY_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	SettlementTopic string `envconfig:"MARKETBAY_PUBSUB_SETTLEMENT_TOPIC" default:"mb-settlement-events"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"MARKETBAY_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"MARKETBAY_AUTO_MIGRATE" default:"false"`
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
