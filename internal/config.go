package internal

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"http_server" env:", prefix=HTTP_"`
	Database      DatabaseConfig      `mapstructure:"database" env:", prefix=DB_"`
	Security      SecurityConfig      `mapstructure:"security" env:", prefix=SECURITY_"`
	App           AppConfig           `mapstructure:"app" env:", prefix=APP_"`
	Notification  NotificationConfig  `mapstructure:"notification" env:", prefix=NOTIFICATION_"`
	Payment       PaymentConfig       `mapstructure:"payment" env:", prefix=PAYMENT_"`
	Messaging     MessagingConfig     `mapstructure:"messaging" env:", prefix=MESSAGING_"`
	RateLimit     RateLimitConfig     `mapstructure:"rate_limit" env:", prefix=RATE_LIMIT_"`
	Observability ObservabilityConfig `mapstructure:"observability" env:", prefix=OBSERVABILITY_"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port" env:"PORT, default=8080"`
	BaseURL           string        `mapstructure:"base_url" env:"BASE_URL"`
	AllowedOrigins    string        `mapstructure:"allowed_origins" env:"ALLOWED_ORIGINS, default=*"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" env:"READ_HEADER_TIMEOUT, default=5s"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout" env:"READ_TIMEOUT, default=15s"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout" env:"IDLE_TIMEOUT, default=60s"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout" env:"WRITE_TIMEOUT, default=15s"`
}

type DatabaseConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns" env:"MAX_OPEN_CONNS, default=20"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" env:"MAX_IDLE_CONNS, default=5"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" env:"CONN_MAX_LIFETIME, default=30m"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time" env:"CONN_MAX_IDLE_TIME, default=5m"`
	Source          string        `mapstructure:"source" env:"SOURCE, required"`
}

type SecurityConfig struct {
	AccessTokenSecret    string        `mapstructure:"access_token_secret" env:"ACCESS_TOKEN_SECRET, required"`
	RefreshTokenSecret   string        `mapstructure:"refresh_token_secret" env:"REFRESH_TOKEN_SECRET, required"`
	AccessTokenDuration  time.Duration `mapstructure:"access_token_duration" env:"ACCESS_TOKEN_DURATION, default=15m"`
	RefreshTokenDuration time.Duration `mapstructure:"refresh_token_duration" env:"REFRESH_TOKEN_DURATION, default=168h"`
	BCryptCost           int           `mapstructure:"bcrypt_cost" env:"BCRYPT_COST, default=12"`
}

type AppConfig struct {
	Env              string        `mapstructure:"env" env:"ENV, default=development"`
	PublicURL        string        `mapstructure:"public_url" env:"PUBLIC_URL, default=http://localhost:3000"`
	InvitationTTL    time.Duration `mapstructure:"invitation_ttl" env:"INVITATION_TTL, default=168h"`
	PasswordResetTTL time.Duration `mapstructure:"password_reset_ttl" env:"PASSWORD_RESET_TTL, default=1h"`
}

type NotificationConfig struct {
	Driver       string `mapstructure:"driver" env:"DRIVER, default=log"`
	From         string `mapstructure:"from" env:"FROM, default=no-reply@localhost"`
	SMTPHost     string `mapstructure:"smtp_host" env:"SMTP_HOST"`
	SMTPPort     int    `mapstructure:"smtp_port" env:"SMTP_PORT, default=587"`
	SMTPUsername string `mapstructure:"smtp_username" env:"SMTP_USERNAME"`
	SMTPPassword string `mapstructure:"smtp_password" env:"SMTP_PASSWORD"`
	MaxWorkers   int    `mapstructure:"max_workers" env:"MAX_WORKERS, default=4"`
	QueueSize    int    `mapstructure:"queue_size" env:"QUEUE_SIZE, default=100"`
}

type PaymentConfig struct {
	APIURL           string        `mapstructure:"api_url" env:"API_URL"`
	APIKey           string        `mapstructure:"api_key" env:"API_KEY"`
	WebhookSecret    string        `mapstructure:"webhook_secret" env:"WEBHOOK_SECRET"`
	Timeout          time.Duration `mapstructure:"timeout" env:"TIMEOUT, default=10s"`
	WebhookTolerance time.Duration `mapstructure:"webhook_tolerance" env:"WEBHOOK_TOLERANCE, default=5m"`
	Country          string        `mapstructure:"country" env:"COUNTRY, default=US"`
}

type MessagingConfig struct {
	NATSURL       string `mapstructure:"nats_url" env:"NATS_URL"`
	SubjectPrefix string `mapstructure:"subject_prefix" env:"SUBJECT_PREFIX, default=venue"`
}

type RateLimitConfig struct {
	PublicRequestsPerMinute int `mapstructure:"public_requests_per_minute" env:"PUBLIC_REQUESTS_PER_MINUTE, default=20"`
}

type ObservabilityConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics" env:", prefix=METRICS_"`
	Tracing TracingConfig `mapstructure:"tracing" env:", prefix=TRACING_"`
	Logging LoggingConfig `mapstructure:"logging" env:", prefix=LOGGING_"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" env:"ENABLED, default=true"`
	Path    string `mapstructure:"path" env:"PATH, default=/metrics"`
}

type TracingConfig struct {
	Enabled      bool    `mapstructure:"enabled" env:"ENABLED, default=false"`
	ServiceName  string  `mapstructure:"service_name" env:"SERVICE_NAME, default=venue-management"`
	SamplingRate float64 `mapstructure:"sampling_rate" env:"SAMPLING_RATE, default=1"`
	Endpoint     string  `mapstructure:"endpoint" env:"ENDPOINT"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" env:"LEVEL, default=info"`
	Format string `mapstructure:"format" env:"FORMAT, default=json"`
}

// LoadConfigFromEnv builds the configuration purely from environment variables.
func LoadConfigFromEnv(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("process env config: %w", err)
	}
	return &cfg, nil
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.Security.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("security config: %v", err))
	}

	if err := c.App.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("app config: %v", err))
	}

	if err := c.Notification.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("notification config: %v", err))
	}

	if err := c.Payment.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("payment config: %v", err))
	}

	if err := c.Observability.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("observability config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	for _, origin := range c.Origins() {
		if origin == "*" {
			continue
		}
		if _, err := url.Parse(origin); err != nil {
			return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

// Origins splits AllowedOrigins into a trimmed list.
func (c *ServerConfig) Origins() []string {
	if strings.TrimSpace(c.AllowedOrigins) == "" {
		return nil
	}
	parts := strings.Split(c.AllowedOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}

func (c *DatabaseConfig) Validate() error {
	if c.Source == "" {
		return errors.New("source is required")
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return c.Source
}

func (c *SecurityConfig) Validate() error {
	if len(c.AccessTokenSecret) < 32 {
		return errors.New("access_token_secret must be at least 32 characters")
	}
	if len(c.RefreshTokenSecret) < 32 {
		return errors.New("refresh_token_secret must be at least 32 characters")
	}
	if c.AccessTokenSecret == c.RefreshTokenSecret {
		return errors.New("access and refresh token secrets must differ")
	}
	if c.BCryptCost != 0 && (c.BCryptCost < 10 || c.BCryptCost > 15) {
		return errors.New("bcrypt_cost must be between 10 and 15")
	}
	return nil
}

func (c *AppConfig) Validate() error {
	if _, err := url.ParseRequestURI(c.PublicURL); err != nil {
		return fmt.Errorf("invalid public_url: %w", err)
	}
	return nil
}

func (c *NotificationConfig) Validate() error {
	switch c.Driver {
	case "log", "":
		return nil
	case "smtp":
		if c.SMTPHost == "" {
			return errors.New("smtp_host is required for the smtp driver")
		}
		return nil
	default:
		return fmt.Errorf("unknown notification driver %q", c.Driver)
	}
}

func (c *PaymentConfig) Validate() error {
	if c.APIURL == "" {
		return errors.New("api_url is required")
	}
	if c.WebhookSecret == "" {
		return errors.New("webhook_secret is required")
	}
	return nil
}

func (c *ObservabilityConfig) Validate() error {
	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		return errors.New("tracing endpoint is required when tracing is enabled")
	}
	if c.Tracing.SamplingRate < 0 || c.Tracing.SamplingRate > 1 {
		return errors.New("tracing sampling_rate must be between 0 and 1")
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Logging.Level)
	}
	return nil
}
