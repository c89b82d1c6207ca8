package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Log      LogConfig
	HTTP     HTTPConfig
	Gateway  GatewayConfig
	Webhook  WebhookConfig
	Sweep    SweepConfig
	Notifier NotifierConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings. Redis backs the webhook
// idempotency store; when Host is empty the in-memory store is used instead.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Enabled reports whether a Redis endpoint is configured
func (c RedisConfig) Enabled() bool {
	return c.Host != ""
}

// JWTConfig holds identity-token verification settings. The portal does not
// issue tokens; the external identity provider does. We only verify them and
// extract tenant id and role claims.
type JWTConfig struct {
	Secret string
	Issuer string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// GatewayConfig holds payment gateway API settings
type GatewayConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	WebhookID    string
	Timeout      time.Duration
}

// WebhookConfig holds shared secrets for inbound webhook verification.
// The gateway webhook is verified remotely via the gateway API and needs
// no secret here.
type WebhookConfig struct {
	TrackerSecret  string
	IdentitySecret string
	Tolerance      time.Duration // max clock skew for timestamped signatures
}

// SweepConfig holds budget alert sweep settings
type SweepConfig struct {
	Enabled    bool
	Interval   time.Duration
	RunTimeout time.Duration
}

// NotifierConfig holds alert notification settings
type NotifierConfig struct {
	Recipient string
}

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")

	if configPath != "" {
		v.AddConfigPath(configPath)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("PORTAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	applyDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is fine, rely on env vars and defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func applyDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "portal-billing")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.maxopenconns", 25)
	v.SetDefault("database.maxidleconns", 5)
	v.SetDefault("database.connmaxlifetime", 30)
	v.SetDefault("database.connmaxidletime", 10)

	// Redis defaults
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "stdout")

	// HTTP defaults
	v.SetDefault("http.readtimeout", 15*time.Second)
	v.SetDefault("http.writetimeout", 15*time.Second)
	v.SetDefault("http.idletimeout", 60*time.Second)
	v.SetDefault("http.shutdowntimeout", 10*time.Second)

	// Gateway defaults
	v.SetDefault("gateway.baseurl", "https://api.sandbox.paypal.com")
	v.SetDefault("gateway.timeout", 30*time.Second)

	// Webhook defaults
	v.SetDefault("webhook.tolerance", 5*time.Minute)

	// Sweep defaults
	v.SetDefault("sweep.enabled", true)
	v.SetDefault("sweep.interval", time.Hour)
	v.SetDefault("sweep.runtimeout", 5*time.Minute)

	// Notifier defaults
	v.SetDefault("notifier.recipient", "billing-alerts@portal.local")
}

func (c *Config) validate() error {
	if c.Database.DBName == "" {
		return fmt.Errorf("database.dbname is required")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret is required")
	}
	if c.Gateway.ClientID == "" || c.Gateway.ClientSecret == "" {
		return fmt.Errorf("gateway.clientid and gateway.clientsecret are required")
	}
	if c.Gateway.WebhookID == "" {
		return fmt.Errorf("gateway.webhookid is required")
	}
	if c.Webhook.TrackerSecret == "" || c.Webhook.IdentitySecret == "" {
		return fmt.Errorf("webhook.trackersecret and webhook.identitysecret are required")
	}
	if c.Webhook.Tolerance <= 0 {
		return fmt.Errorf("webhook.tolerance must be positive")
	}
	if c.Sweep.Enabled && c.Sweep.Interval <= 0 {
		return fmt.Errorf("sweep.interval must be positive when sweep is enabled")
	}
	return nil
}

// DSN builds the Postgres connection string
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// Addr returns the Redis host:port address
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsProduction reports whether the app runs in production mode
func (c AppConfig) IsProduction() bool {
	return c.Env == "production"
}
