package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

type Config struct {
	App        AppConfig
	DB         DBConfig
	Redis      RedisConfig
	Auth       AuthConfig
	Outbound   OutboundConfig
	Automation AutomationConfig
	Providers  ProvidersConfig
	Worker     WorkerConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Outbound.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"CONTACTDESK_APP_ENV" required:"true"`
	Port         string `envconfig:"CONTACTDESK_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"CONTACTDESK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CONTACTDESK_LOG_WARN_STACK" default:"false"`
	AutoMigrate  bool   `envconfig:"CONTACTDESK_AUTO_MIGRATE" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN             string        `envconfig:"CONTACTDESK_DB_DSN" required:"true"`
	MaxOpenConns    int           `envconfig:"CONTACTDESK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CONTACTDESK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CONTACTDESK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CONTACTDESK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CONTACTDESK_REDIS_URL"`
	Address      string        `envconfig:"CONTACTDESK_REDIS_ADDR"`
	Password     string        `envconfig:"CONTACTDESK_REDIS_PASSWORD"`
	DB           int           `envconfig:"CONTACTDESK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CONTACTDESK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CONTACTDESK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CONTACTDESK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CONTACTDESK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CONTACTDESK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// AuthConfig gates the admin surface. A request must present either the
// internal shared secret or an admin role header.
type AuthConfig struct {
	InternalKey     string `envconfig:"CONTACTDESK_INTERNAL_API_KEY"`
	AdminRoleHeader string `envconfig:"CONTACTDESK_ADMIN_ROLE_HEADER" default:"X-Admin-Role"`
	AdminRoleValue  string `envconfig:"CONTACTDESK_ADMIN_ROLE_VALUE" default:"admin"`
}

const (
	BackoffPolicyFixed       = "fixed"
	BackoffPolicyExponential = "exponential"
)

type OutboundConfig struct {
	RunBatchSize      int           `envconfig:"CONTACTDESK_OUTBOUND_RUN_BATCH_SIZE" default:"25"`
	ResumeBatchSize   int           `envconfig:"CONTACTDESK_OUTBOUND_RESUME_BATCH_SIZE" default:"10"`
	BackoffPolicy     string        `envconfig:"CONTACTDESK_OUTBOUND_BACKOFF_POLICY" default:"exponential"`
	BackoffBase       time.Duration `envconfig:"CONTACTDESK_OUTBOUND_BACKOFF_BASE" default:"1m"`
	BackoffCap        time.Duration `envconfig:"CONTACTDESK_OUTBOUND_BACKOFF_CAP" default:"1h"`
	PausedRetryDelay  time.Duration `envconfig:"CONTACTDESK_OUTBOUND_PAUSED_RETRY_DELAY" default:"15m"`
	StuckOTPThreshold time.Duration `envconfig:"CONTACTDESK_OUTBOUND_STUCK_OTP_THRESHOLD" default:"30m"`
}

func (o OutboundConfig) validate() error {
	switch o.BackoffPolicy {
	case BackoffPolicyFixed, BackoffPolicyExponential:
		return nil
	}
	return fmt.Errorf("invalid outbound backoff policy %q", o.BackoffPolicy)
}

type AutomationConfig struct {
	DispatchBatchSize   int           `envconfig:"CONTACTDESK_AUTOMATION_DISPATCH_BATCH_SIZE" default:"50"`
	MaxDispatchAttempts int           `envconfig:"CONTACTDESK_AUTOMATION_MAX_DISPATCH_ATTEMPTS" default:"5"`
	DispatchBackoff     time.Duration `envconfig:"CONTACTDESK_AUTOMATION_DISPATCH_BACKOFF" default:"5m"`
}

// ProvidersConfig holds the per-channel webhook endpoints. A channel with
// an empty URL has no sender registered and its jobs fail with
// provider_unavailable.
type ProvidersConfig struct {
	VoiceURL       string        `envconfig:"CONTACTDESK_PROVIDER_VOICE_URL"`
	VoiceAPIKey    string        `envconfig:"CONTACTDESK_PROVIDER_VOICE_API_KEY"`
	SMSURL         string        `envconfig:"CONTACTDESK_PROVIDER_SMS_URL"`
	SMSAPIKey      string        `envconfig:"CONTACTDESK_PROVIDER_SMS_API_KEY"`
	EmailURL       string        `envconfig:"CONTACTDESK_PROVIDER_EMAIL_URL"`
	EmailAPIKey    string        `envconfig:"CONTACTDESK_PROVIDER_EMAIL_API_KEY"`
	WhatsAppURL    string        `envconfig:"CONTACTDESK_PROVIDER_WHATSAPP_URL"`
	WhatsAppAPIKey string        `envconfig:"CONTACTDESK_PROVIDER_WHATSAPP_API_KEY"`
	Timeout        time.Duration `envconfig:"CONTACTDESK_PROVIDER_TIMEOUT" default:"10s"`
}

type WorkerConfig struct {
	Interval    time.Duration `envconfig:"CONTACTDESK_WORKER_INTERVAL" default:"1m"`
	MetricsPort string        `envconfig:"CONTACTDESK_WORKER_METRICS_PORT" default:"9091"`
	LockTTL     time.Duration `envconfig:"CONTACTDESK_WORKER_LOCK_TTL" default:"5m"`
}
