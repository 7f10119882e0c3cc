package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/leafbox-next/internal/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config application settings
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Log          LogConfig          `mapstructure:"log"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Queue        QueueConfig        `mapstructure:"queue"`
	CORS         CORSConfig         `mapstructure:"cors"`
	Security     SecurityConfig     `mapstructure:"security"`
	AdminJWT     JWTConfig          `mapstructure:"admin_jwt"`
	UserJWT      JWTConfig          `mapstructure:"user_jwt"`
	Email        EmailConfig        `mapstructure:"email"`
	Discord      DiscordConfig      `mapstructure:"discord"`
	Notification NotificationConfig `mapstructure:"notification"`
	Order        OrderConfig        `mapstructure:"order"`
	Shipping     ShippingConfig     `mapstructure:"shipping"`
	Stripe       StripeConfig       `mapstructure:"stripe"`
	Omise        OmiseConfig        `mapstructure:"omise"`
	Metrics      MetricsConfig      `mapstructure:"metrics"`
	Tracing      TracingConfig      `mapstructure:"tracing"`
}

// ServerConfig HTTP listener
type ServerConfig struct {
	Name      string `mapstructure:"name"`
	Host      string `mapstructure:"host"`
	Port      string `mapstructure:"port"`
	Mode      string `mapstructure:"mode"`       // debug / release
	PublicURL string `mapstructure:"public_url"` // storefront base for gateway return URLs

	ReadTimeoutSeconds  int `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds int `mapstructure:"write_timeout_seconds"`
	IdleTimeoutSeconds  int `mapstructure:"idle_timeout_seconds"`
}

// Addr listen address
func (c ServerConfig) Addr() string {
	return c.Host + ":" + c.Port
}

// LogConfig log file rotation
type LogConfig struct {
	Level          string `mapstructure:"level"` // overrides the server mode default
	ErrorsToStderr bool   `mapstructure:"errors_to_stderr"`
	Dir            string `mapstructure:"dir"`
	Filename       string `mapstructure:"filename"`
	MaxSizeMB      int    `mapstructure:"max_size_mb"`
	MaxBackups     int    `mapstructure:"max_backups"`
	MaxAgeDays     int    `mapstructure:"max_age_days"`
	Compress       bool   `mapstructure:"compress"`
}

// ToLoggerOptions converts to logger options.
func (c LogConfig) ToLoggerOptions() logger.Options {
	return logger.Options{
		Level:          c.Level,
		ErrorsToStderr: c.ErrorsToStderr,
		Dir:            c.Dir,
		Filename:       c.Filename,
		MaxSizeMB:      c.MaxSizeMB,
		MaxBackups:     c.MaxBackups,
		MaxAgeDays:     c.MaxAgeDays,
		Compress:       c.Compress,
	}
}

// DatabasePoolConfig connection pool
type DatabasePoolConfig struct {
	MaxOpenConns           int `mapstructure:"max_open_conns"`
	MaxIdleConns           int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSeconds int `mapstructure:"conn_max_lifetime_seconds"`
	ConnMaxIdleTimeSeconds int `mapstructure:"conn_max_idle_time_seconds"`
}

// DatabaseConfig relational store
type DatabaseConfig struct {
	Driver        string             `mapstructure:"driver"` // sqlite / postgres
	DSN           string             `mapstructure:"dsn"`
	Pool          DatabasePoolConfig `mapstructure:"pool"`
	SeedLocations bool               `mapstructure:"seed_locations"` // ship-to-recipient sentinel rows
}

// RedisConfig cache, dedupe and rate limit store
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// QueueConfig asynq connection
type QueueConfig struct {
	Enabled     bool           `mapstructure:"enabled"`
	Host        string         `mapstructure:"host"`
	Port        int            `mapstructure:"port"`
	Password    string         `mapstructure:"password"`
	DB          int            `mapstructure:"db"`
	Concurrency int            `mapstructure:"concurrency"`
	Queues      map[string]int `mapstructure:"queues"`
	MaxRetry    int            `mapstructure:"max_retry"`
}

// CORSConfig cross origin rules
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

// SecurityConfig request throttling
type SecurityConfig struct {
	CheckoutRateLimit RateLimitConfig `mapstructure:"checkout_rate_limit"`
	SlipRateLimit     RateLimitConfig `mapstructure:"slip_rate_limit"`
}

// RateLimitConfig fixed window limit
type RateLimitConfig struct {
	WindowSeconds int `mapstructure:"window_seconds"`
	MaxRequests   int `mapstructure:"max_requests"`
}

// JWTConfig token verification. Tokens are issued by the auth service.
type JWTConfig struct {
	SecretKey string `mapstructure:"secret"`
}

// EmailConfig SMTP sender
type EmailConfig struct {
	Enabled     bool     `mapstructure:"enabled"`
	Host        string   `mapstructure:"host"`
	Port        int      `mapstructure:"port"`
	Username    string   `mapstructure:"username"`
	Password    string   `mapstructure:"password"`
	From        string   `mapstructure:"from"`
	FromName    string   `mapstructure:"from_name"`
	UseTLS      bool     `mapstructure:"use_tls"`
	UseSSL      bool     `mapstructure:"use_ssl"`
	AdminEmails []string `mapstructure:"admin_emails"`
}

// DiscordConfig chat-ops webhook
type DiscordConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	WebhookURL string `mapstructure:"webhook_url"`
	Username   string `mapstructure:"username"`
}

// NotificationConfig side-effect fan-out
type NotificationConfig struct {
	TimeoutSeconds   int  `mapstructure:"timeout_seconds"`
	DedupeTTLSeconds int  `mapstructure:"dedupe_ttl_seconds"`
	UseQueue         bool `mapstructure:"use_queue"`
}

// Timeout hard deadline for one channel send.
func (c NotificationConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// OrderConfig order ledger
type OrderConfig struct {
	Currency            string `mapstructure:"currency"`
	NumberRetryAttempts int    `mapstructure:"number_retry_attempts"`
	Timezone            string `mapstructure:"timezone"`
}

// Location resolves the timezone used for YYMM prefixes.
func (c OrderConfig) Location() *time.Location {
	name := strings.TrimSpace(c.Timezone)
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		logger.Warnw("config_order_timezone_invalid", "timezone", name, "error", err)
		return time.Local
	}
	return loc
}

// ShippingConfig seed values for the persisted shipping rule
type ShippingConfig struct {
	FreeThreshold string `mapstructure:"free_threshold"`
	FlatFee       string `mapstructure:"flat_fee"`
}

// StripeConfig Stripe Checkout
type StripeConfig struct {
	Enabled                 bool     `mapstructure:"enabled"`
	SecretKey               string   `mapstructure:"secret_key"`
	WebhookSecret           string   `mapstructure:"webhook_secret"`
	SuccessURL              string   `mapstructure:"success_url"`
	CancelURL               string   `mapstructure:"cancel_url"`
	PaymentMethodTypes      []string `mapstructure:"payment_method_types"`
	WebhookToleranceSeconds int      `mapstructure:"webhook_tolerance_seconds"`
}

// OmiseConfig Omise charges
type OmiseConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	PublicKey      string `mapstructure:"public_key"`
	SecretKey      string `mapstructure:"secret_key"`
	WebhookSecret  string `mapstructure:"webhook_secret"`
	APIBaseURL     string `mapstructure:"api_base_url"`
	ReturnURL      string `mapstructure:"return_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// MetricsConfig prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// TracingConfig OpenTelemetry
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
	Endpoint    string  `mapstructure:"endpoint"` // OTLP/HTTP collector host:port, empty keeps spans in process
	Insecure    bool    `mapstructure:"insecure"`
}

// Load reads config.yml, .env and the environment.
func Load() *Config {
	if err := godotenv.Load(); err == nil {
		logger.Infow("config_env_file_loaded", "file", ".env")
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("../")
	v.AddConfigPath("./etc")

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // server.port -> SERVER_PORT

	if err := v.ReadInConfig(); err != nil {
		logger.Warnw("config_file_read_failed",
			"error", err,
			"fallback", "env_or_defaults",
		)
	} else {
		logger.Infow("config_file_loaded", "file", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		logger.Errorw("config_unmarshal_failed", "error", err)
		panic(fmt.Errorf("config unmarshal failed: %w", err))
	}
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.name", "leafbox-api")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.public_url", "http://localhost:3000")
	v.SetDefault("server.read_timeout_seconds", 15)
	v.SetDefault("server.write_timeout_seconds", 30)
	v.SetDefault("server.idle_timeout_seconds", 60)
	v.SetDefault("log.level", "")
	v.SetDefault("log.errors_to_stderr", true)
	v.SetDefault("log.dir", "")
	v.SetDefault("log.filename", "leafbox.log")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 7)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.compress", true)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./db/leafbox.db")
	v.SetDefault("database.pool.max_open_conns", 1)
	v.SetDefault("database.pool.max_idle_conns", 1)
	v.SetDefault("database.seed_locations", true)
	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "lb")
	v.SetDefault("queue.enabled", true)
	v.SetDefault("queue.host", "127.0.0.1")
	v.SetDefault("queue.port", 6379)
	v.SetDefault("queue.db", 1)
	v.SetDefault("queue.concurrency", 10)
	v.SetDefault("queue.max_retry", 5)
	v.SetDefault("queue.queues", map[string]int{
		"default":  10,
		"critical": 5,
	})
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{
		"Content-Type",
		"Content-Length",
		"Authorization",
		"X-Request-ID",
	})
	v.SetDefault("cors.allow_credentials", true)
	v.SetDefault("cors.max_age", 600)
	v.SetDefault("security.checkout_rate_limit.window_seconds", 60)
	v.SetDefault("security.checkout_rate_limit.max_requests", 10)
	v.SetDefault("security.slip_rate_limit.window_seconds", 300)
	v.SetDefault("security.slip_rate_limit.max_requests", 5)
	v.SetDefault("admin_jwt.secret", "")
	v.SetDefault("user_jwt.secret", "")
	v.SetDefault("email.enabled", false)
	v.SetDefault("email.port", 587)
	v.SetDefault("email.use_tls", true)
	v.SetDefault("email.use_ssl", false)
	v.SetDefault("discord.enabled", false)
	v.SetDefault("discord.username", "Leafbox Orders")
	v.SetDefault("notification.timeout_seconds", 10)
	v.SetDefault("notification.dedupe_ttl_seconds", 86400)
	v.SetDefault("notification.use_queue", true)
	v.SetDefault("order.currency", "THB")
	v.SetDefault("order.number_retry_attempts", 5)
	v.SetDefault("order.timezone", "Asia/Bangkok")
	v.SetDefault("shipping.free_threshold", "1500")
	v.SetDefault("shipping.flat_fee", "100")
	v.SetDefault("stripe.enabled", false)
	v.SetDefault("stripe.payment_method_types", []string{"card", "promptpay"})
	v.SetDefault("stripe.webhook_tolerance_seconds", 300)
	v.SetDefault("omise.enabled", false)
	v.SetDefault("omise.api_base_url", "https://api.omise.co")
	v.SetDefault("omise.timeout_seconds", 12)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.sample_ratio", 1.0)
	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.insecure", true)
}
