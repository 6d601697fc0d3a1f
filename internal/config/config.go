// Package config provides configuration management for the platform service.
package config

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/researchhub/platform-service/internal/feed"
	"github.com/researchhub/platform-service/internal/reputation"
)

// SSL mode constants for database connections.
const (
	// SSLModeDisable disables SSL (use only for local development).
	SSLModeDisable = "disable"
	// SSLModeRequire requires SSL but does not verify certificates.
	SSLModeRequire = "require"
	// SSLModeVerifyCA verifies the server certificate against a CA.
	SSLModeVerifyCA = "verify-ca"
	// SSLModeVerifyFull verifies the server certificate and hostname.
	SSLModeVerifyFull = "verify-full"
)

// Config holds all configuration for the platform service.
type Config struct {
	// Server contains HTTP server settings.
	Server ServerConfig `mapstructure:"server"`
	// Database contains PostgreSQL connection settings.
	Database DatabaseConfig `mapstructure:"database"`
	// Temporal contains Temporal workflow orchestration settings.
	Temporal TemporalConfig `mapstructure:"temporal"`
	// Logging contains structured logging settings.
	Logging LoggingConfig `mapstructure:"logging"`
	// Metrics contains Prometheus metrics exposure settings.
	Metrics MetricsConfig `mapstructure:"metrics"`
	// Auth contains JWT authentication settings.
	Auth AuthConfig `mapstructure:"auth"`
	// Kafka contains Kafka publisher settings for the outbox pattern.
	Kafka KafkaConfig `mapstructure:"kafka"`
	// Outbox contains outbox processor settings.
	Outbox OutboxConfig `mapstructure:"outbox"`
	// Feed contains feed ranking settings.
	Feed FeedConfig `mapstructure:"feed"`
	// Reputation contains reputation weight settings.
	Reputation reputation.WeightConfig `mapstructure:"reputation"`
	// OpenAlex contains OpenAlex client settings for metric enrichment.
	OpenAlex OpenAlexConfig `mapstructure:"openalex"`
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	// Host is the address to bind the server to (default: 0.0.0.0).
	Host string `mapstructure:"host"`
	// HTTPPort is the HTTP server port (default: 8080).
	HTTPPort int `mapstructure:"http_port"`
	// MetricsPort is the metrics server port (default: 9091).
	MetricsPort int `mapstructure:"metrics_port"`
	// ReadTimeout is the maximum duration for reading request body.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the maximum duration for writing response.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	// Host is the PostgreSQL server hostname.
	Host string `mapstructure:"host"`
	// Port is the PostgreSQL server port (default: 5432).
	Port int `mapstructure:"port"`
	// User is the database username.
	User string `mapstructure:"user"`
	// Password is the database password (use environment variable in production).
	Password string `mapstructure:"password"`
	// Name is the database name.
	Name string `mapstructure:"name"`
	// SSLMode controls SSL connection security (require, verify-ca, verify-full, disable).
	// Default is "require" for production security. Use "disable" only for local development.
	SSLMode string `mapstructure:"ssl_mode"`
	// MaxConns is the maximum number of connections in the pool (default: 50).
	MaxConns int32 `mapstructure:"max_conns"`
	// MinConns is the minimum number of connections to keep open (default: 10).
	MinConns int32 `mapstructure:"min_conns"`
	// MaxConnLifetime is the maximum lifetime of a connection before it's closed.
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	// MaxConnIdleTime is the maximum time a connection can be idle before it's closed.
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	// HealthCheckPeriod is the interval between health checks of idle connections.
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
	// ConnectTimeout is the maximum time to wait for a connection.
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	// MigrationPath is the path to migration files (relative or absolute).
	MigrationPath string `mapstructure:"migration_path"`
	// MigrationAutoRun enables automatic migration on startup (default: false).
	MigrationAutoRun bool `mapstructure:"migration_auto_run"`
	// StatementCacheCapacity is the size of the prepared statement cache.
	StatementCacheCapacity int `mapstructure:"statement_cache_capacity"`
}

// TemporalConfig holds Temporal workflow configuration.
type TemporalConfig struct {
	// HostPort is the Temporal server address.
	HostPort string `mapstructure:"host_port"`
	// Namespace is the Temporal namespace.
	Namespace string `mapstructure:"namespace"`
	// TaskQueue is the task queue name for score refresh workflows.
	TaskQueue string `mapstructure:"task_queue"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level (trace, debug, info, warn, error, fatal, panic).
	Level string `mapstructure:"level"`
	// Format is the log format (json, console).
	Format string `mapstructure:"format"`
	// Output is the log output destination (stdout, stderr, file path).
	Output string `mapstructure:"output"`
	// AddSource adds source file and line to log output.
	AddSource bool `mapstructure:"add_source"`
	// TimeFormat is the timestamp format.
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	// Enabled enables metrics collection and exposure.
	Enabled bool `mapstructure:"enabled"`
	// Path is the HTTP path for metrics endpoint.
	Path string `mapstructure:"path"`
}

// AuthConfig holds JWT authentication settings.
type AuthConfig struct {
	// Secret is the HS256 signing secret (loaded from RESEARCHHUB_AUTH_SECRET).
	Secret string `mapstructure:"-"`
	// Issuer is the expected token issuer.
	Issuer string `mapstructure:"issuer"`
	// Audience is the expected token audience.
	Audience string `mapstructure:"audience"`
	// Disabled turns off authentication entirely (local development only).
	Disabled bool `mapstructure:"disabled"`
}

// KafkaConfig holds Kafka publisher settings for the outbox pattern.
type KafkaConfig struct {
	// Enabled controls whether Kafka publishing is active.
	Enabled bool `mapstructure:"enabled"`
	// Brokers is the list of Kafka broker addresses.
	Brokers []string `mapstructure:"brokers"`
	// Topic is the Kafka topic to publish outbox events to.
	Topic string `mapstructure:"topic"`
	// BatchSize is the maximum number of messages to batch before sending.
	BatchSize int `mapstructure:"batch_size"`
	// BatchTimeout is the maximum time to wait for a batch to fill before sending.
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	// ContributionsTopic is the topic the contribution listener consumes.
	ContributionsTopic string `mapstructure:"contributions_topic"`
	// ConsumerGroup is the consumer group ID for the contribution listener.
	ConsumerGroup string `mapstructure:"consumer_group"`
}

// OutboxConfig holds outbox processor settings.
type OutboxConfig struct {
	// PollInterval is how often the processor polls for pending events.
	PollInterval time.Duration `mapstructure:"poll_interval"`
	// BatchSize is the number of events to process per batch.
	BatchSize int `mapstructure:"batch_size"`
	// MaxRetries is the maximum retry attempts before dead-lettering.
	MaxRetries int `mapstructure:"max_retries"`
	// LeaseDuration is how long the processor holds a lease on claimed events.
	LeaseDuration time.Duration `mapstructure:"lease_duration"`
}

// FeedConfig holds feed ranking configuration.
type FeedConfig struct {
	// HotScore contains the hot score formula constants.
	HotScore feed.HotScoreConfig `mapstructure:"hot_score"`
	// FundScore contains the funding best-score formula constants.
	FundScore feed.FundScoreConfig `mapstructure:"fund_score"`
	// Diversify contains the subcategory diversification constants.
	Diversify feed.DiversifyConfig `mapstructure:"diversify"`
	// RefreshInterval is the cadence of the background score refresh.
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	// RefreshBatchSize is how many entries are rescored per batch.
	RefreshBatchSize int `mapstructure:"refresh_batch_size"`
	// StaleWindowDays bounds which entries the refresh considers.
	StaleWindowDays int `mapstructure:"stale_window_days"`
	// MaxPageSize caps the page_size query parameter.
	MaxPageSize int `mapstructure:"max_page_size"`
	// DefaultPageSize is used when page_size is absent.
	DefaultPageSize int `mapstructure:"default_page_size"`
}

// OpenAlexConfig holds OpenAlex client settings.
type OpenAlexConfig struct {
	// Enabled controls whether metric enrichment runs.
	Enabled bool `mapstructure:"enabled"`
	// APIKey is the OpenAlex premium key (loaded from RESEARCHHUB_OPENALEX_API_KEY).
	APIKey string `mapstructure:"-"`
	// BaseURL is the API base URL.
	BaseURL string `mapstructure:"base_url"`
	// Mailto joins the OpenAlex polite pool and is sent in the User-Agent.
	Mailto string `mapstructure:"mailto"`
	// Timeout is the timeout for API calls.
	Timeout time.Duration `mapstructure:"timeout"`
	// RateLimit is the maximum requests per second.
	RateLimit float64 `mapstructure:"rate_limit"`
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	params := url.Values{}
	params.Set("sslmode", c.SSLMode)
	if c.ConnectTimeout > 0 {
		params.Set("connect_timeout", fmt.Sprintf("%d", int(c.ConnectTimeout.Seconds())))
	}
	if c.StatementCacheCapacity > 0 {
		params.Set("statement_cache_capacity", fmt.Sprintf("%d", c.StatementCacheCapacity))
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?%s",
		url.QueryEscape(c.User),
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		c.Name,
		params.Encode(),
	)
}

// HTTPAddress returns the HTTP server address.
func (c *ServerConfig) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// MetricsAddress returns the metrics server address.
func (c *ServerConfig) MetricsAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.MetricsPort)
}

// StaleWindow returns the stale entry window as a duration.
func (c *FeedConfig) StaleWindow() time.Duration {
	return time.Duration(c.StaleWindowDays) * 24 * time.Hour
}

// Load loads configuration from environment variables and config files.
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read from environment variables
	v.SetEnvPrefix("RESEARCHHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file if present
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/platform-service")

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK, we'll use env vars and defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Load secrets exclusively from environment variables.
	// These fields use mapstructure:"-" to prevent loading from config files.
	loadSecrets(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadSecrets populates secret fields exclusively from environment variables.
// These fields are tagged with mapstructure:"-" to prevent loading from config files.
func loadSecrets(cfg *Config) {
	cfg.Auth.Secret = os.Getenv("RESEARCHHUB_AUTH_SECRET")
	cfg.OpenAlex.APIKey = os.Getenv("RESEARCHHUB_OPENALEX_API_KEY")
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.metrics_port", 9091)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "researchhub")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "platform_service")
	// Default to "require" for production security. Use RESEARCHHUB_DATABASE_SSL_MODE=disable for local development.
	v.SetDefault("database.ssl_mode", SSLModeRequire)
	v.SetDefault("database.max_conns", 50)
	v.SetDefault("database.min_conns", 10)
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")
	v.SetDefault("database.health_check_period", "30s")
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.migration_path", "migrations")
	v.SetDefault("database.migration_auto_run", false)
	v.SetDefault("database.statement_cache_capacity", 512)

	// Temporal defaults
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "researchhub")
	v.SetDefault("temporal.task_queue", "feed-score-tasks")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	// Auth defaults
	v.SetDefault("auth.issuer", "researchhub")
	v.SetDefault("auth.audience", "platform-service")
	v.SetDefault("auth.disabled", false)

	// Kafka defaults
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "events.outbox.platform_service")
	v.SetDefault("kafka.batch_size", 100)
	v.SetDefault("kafka.batch_timeout", "10ms")
	v.SetDefault("kafka.contributions_topic", "events.contributions")
	v.SetDefault("kafka.consumer_group", "platform-service-contributions")

	// Outbox processor defaults
	v.SetDefault("outbox.poll_interval", "1s")
	v.SetDefault("outbox.batch_size", 100)
	v.SetDefault("outbox.max_retries", 5)
	v.SetDefault("outbox.lease_duration", "30s")

	// Feed hot score defaults
	v.SetDefault("feed.hot_score.altmetric.weight", 1.0)
	v.SetDefault("feed.hot_score.altmetric.log_base", math.E)
	v.SetDefault("feed.hot_score.bounty.weight", 3.0)
	v.SetDefault("feed.hot_score.bounty.log_base", math.E)
	v.SetDefault("feed.hot_score.tip.weight", 2.0)
	v.SetDefault("feed.hot_score.tip.log_base", math.E)
	v.SetDefault("feed.hot_score.peer_review.weight", 5.0)
	v.SetDefault("feed.hot_score.peer_review.log_base", math.E)
	v.SetDefault("feed.hot_score.upvote.weight", 4.0)
	v.SetDefault("feed.hot_score.upvote.log_base", math.E)
	v.SetDefault("feed.hot_score.comment.weight", 3.0)
	v.SetDefault("feed.hot_score.comment.log_base", math.E)
	v.SetDefault("feed.hot_score.gravity", 1.8)
	v.SetDefault("feed.hot_score.base_hours", 2.0)
	v.SetDefault("feed.hot_score.freshness_multiplier", 4.5)
	v.SetDefault("feed.hot_score.freshness_window_hours", 48.0)
	v.SetDefault("feed.hot_score.bounty_urgency_multiplier", 1.5)
	v.SetDefault("feed.hot_score.bounty_urgency_hours", 48)
	v.SetDefault("feed.hot_score.grant_urgency_days", 7)
	v.SetDefault("feed.hot_score.prereg_urgency_days", 7)

	// Feed funding score defaults
	v.SetDefault("feed.fund_score.amount_weight", 40.0)
	v.SetDefault("feed.fund_score.participant_weight", 50.0)
	v.SetDefault("feed.fund_score.comment_weight", 25.0)
	v.SetDefault("feed.fund_score.upvote_weight", 15.0)
	v.SetDefault("feed.fund_score.gravity", 1.2)
	v.SetDefault("feed.fund_score.base_hours", 2.0)
	v.SetDefault("feed.fund_score.min_age_hours", 0.1)
	v.SetDefault("feed.fund_score.expired_penalty", 10000.0)
	v.SetDefault("feed.fund_score.closed_penalty", 20000.0)

	// Feed diversification defaults
	v.SetDefault("feed.diversify.max_consecutive", 2)
	v.SetDefault("feed.diversify.reinject_interval", 5)
	v.SetDefault("feed.diversify.window", 120)

	// Feed refresh defaults
	v.SetDefault("feed.refresh_interval", "10m")
	v.SetDefault("feed.refresh_batch_size", 500)
	v.SetDefault("feed.stale_window_days", 30)
	v.SetDefault("feed.max_page_size", 100)
	v.SetDefault("feed.default_page_size", 20)

	// Reputation defaults
	v.SetDefault("reputation.verified_account_bonus", 100)
	v.SetDefault("reputation.funder_bonus_multiplier", 1.5)
	v.SetDefault("reputation.tiered_scoring_enabled", true)

	// OpenAlex defaults
	v.SetDefault("openalex.enabled", true)
	v.SetDefault("openalex.base_url", "https://api.openalex.org")
	v.SetDefault("openalex.mailto", "")
	v.SetDefault("openalex.timeout", "30s")
	v.SetDefault("openalex.rate_limit", 10.0)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	// Validate server ports
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.Server.HTTPPort)
	}
	if c.Server.MetricsPort <= 0 || c.Server.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", c.Server.MetricsPort)
	}

	// Validate database config
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Database.Port)
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database name is required")
	}
	if c.Database.MaxConns < c.Database.MinConns {
		return fmt.Errorf("max_conns (%d) must be >= min_conns (%d)", c.Database.MaxConns, c.Database.MinConns)
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	// Validate auth config
	if !c.Auth.Disabled && c.Auth.Secret == "" {
		return fmt.Errorf("auth requires RESEARCHHUB_AUTH_SECRET to be set (or set auth.disabled for local development)")
	}

	// Validate feed config
	if c.Feed.HotScore.Gravity <= 0 {
		return fmt.Errorf("feed hot_score gravity must be positive")
	}
	if c.Feed.HotScore.BaseHours <= 0 {
		return fmt.Errorf("feed hot_score base_hours must be positive")
	}
	if c.Feed.Diversify.MaxConsecutive <= 0 {
		return fmt.Errorf("feed diversify max_consecutive must be positive")
	}
	if c.Feed.RefreshBatchSize <= 0 {
		return fmt.Errorf("feed refresh_batch_size must be positive")
	}
	if c.Feed.DefaultPageSize <= 0 || c.Feed.DefaultPageSize > c.Feed.MaxPageSize {
		return fmt.Errorf("feed default_page_size (%d) must be positive and <= max_page_size (%d)", c.Feed.DefaultPageSize, c.Feed.MaxPageSize)
	}

	// Validate reputation config
	if c.Reputation.FunderBonusMultiplier < 1 {
		return fmt.Errorf("reputation funder_bonus_multiplier must be >= 1")
	}

	// Validate OpenAlex config
	if c.OpenAlex.Enabled {
		if c.OpenAlex.BaseURL == "" {
			return fmt.Errorf("openalex base_url is required when enabled")
		}
		if c.OpenAlex.RateLimit <= 0 {
			return fmt.Errorf("openalex rate_limit must be positive")
		}
	}

	return nil
}
