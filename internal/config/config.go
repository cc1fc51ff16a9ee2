package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	API      APIConfig      `mapstructure:"api"`
	Poll     PollConfig     `mapstructure:"poll"`
	Database DatabaseConfig `mapstructure:"database"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Env  string `mapstructure:"env"`
	// ViewToken, when set, must be presented by local views as a bearer token.
	ViewToken string `mapstructure:"view_token"`
	// AllowOrigins lists browser origins allowed to call the local API.
	AllowOrigins []string `mapstructure:"allow_origins"`
}

type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
	// Token is a fixed credential. TokenFile is re-read on every request and
	// wins when both are set.
	Token     string `mapstructure:"token"`
	TokenFile string `mapstructure:"token_file"`
}

type PollConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// DatabaseConfig is optional; an empty DSN keeps the read ledger in memory.
type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

type LedgerConfig struct {
	RetentionDays int `mapstructure:"retention_days"` // Default: 30
}

// KafkaConfig is optional; no brokers means no remote profile events.
type KafkaConfig struct {
	Brokers         []string `mapstructure:"brokers"`
	ConsumerGroupID string   `mapstructure:"consumer_group_id"`
	Topics          []string `mapstructure:"topics"`
}

// Load reads configuration from environment variables and config files.
// Environment variables override file values. Prefix: GRATEFUL_NOTIF_
func Load() (*Config, error) {
	// A local .env is convenient in development; existing env vars win.
	_ = godotenv.Load()

	v := viper.New()

	// Defaults
	v.SetDefault("server.port", "8095")
	v.SetDefault("server.env", "development")
	v.SetDefault("server.allow_origins", []string{"http://localhost:3000"})
	v.SetDefault("api.base_url", "http://localhost:8000")
	v.SetDefault("api.timeout", 10*time.Second)
	v.SetDefault("poll.interval", 30*time.Second)
	v.SetDefault("ledger.retention_days", 30)
	v.SetDefault("kafka.consumer_group_id", "grateful-notifier")
	v.SetDefault("kafka.topics", []string{"user-profile-events"})

	// Environment variables (e.g. GRATEFUL_NOTIF_API_BASE_URL -> api.base_url)
	v.SetEnvPrefix("GRATEFUL_NOTIF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Also support simple env vars without prefix for Docker Compose convenience
	v.BindEnv("api.base_url", "GRATEFUL_API_URL")
	v.BindEnv("api.token", "GRATEFUL_TOKEN")
	v.BindEnv("api.token_file", "GRATEFUL_TOKEN_FILE")
	v.BindEnv("database.dsn", "DATABASE_URL")
	v.BindEnv("kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("server.port", "PORT")

	// Try loading config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	_ = v.ReadInConfig() // Not required

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Kafka.Brokers = splitList(cfg.Kafka.Brokers)

	return &cfg, nil
}

// splitList expands comma-separated entries, which is how list values
// arrive from a single environment variable.
func splitList(in []string) []string {
	var out []string
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
