package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// TelegramConfig holds bot identity and API settings.
type TelegramConfig struct {
	Token string `yaml:"token" envconfig:"BOT_TOKEN"`
	// BotName is the public @username of the bot, without the leading '@'.
	// Used to strip the "@botname" suffix from commands in group chats.
	BotName     string `yaml:"bot_name" envconfig:"BOT_NAME"`
	DefaultLang string `yaml:"default_lang" envconfig:"DEFAULT_LANG"`
}

// WebhookConfig specifies the receiver HTTP endpoint settings.
type WebhookConfig struct {
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Path   string `yaml:"path" envconfig:"WEBHOOK_PATH"`
	// SecretToken is matched against the X-Telegram-Bot-Api-Secret-Token header.
	SecretToken string `yaml:"secret_token" envconfig:"WEBHOOK_SECRET_TOKEN"`
}

// DatabaseConfig holds Postgres connection settings.
type DatabaseConfig struct {
	Host           string `yaml:"host" envconfig:"DB_HOST"`
	Port           string `yaml:"port" envconfig:"DB_PORT"`
	User           string `yaml:"user" envconfig:"DB_USER"`
	Password       string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode        string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
}

// RedisConfig holds connection settings shared by the queue and the counters.
type RedisConfig struct {
	Addr     string `yaml:"addr" envconfig:"REDIS_ADDR"`
	Password string `yaml:"password" envconfig:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" envconfig:"REDIS_DB"`
	PoolSize int    `yaml:"pool_size" envconfig:"REDIS_POOL_SIZE"`
}

// QueueConfig controls the update queue consumer.
type QueueConfig struct {
	// KeyPrefix namespaces the ready list and the delayed set in Redis.
	KeyPrefix string `yaml:"key_prefix" envconfig:"QUEUE_KEY_PREFIX"`
	// PollIntervalMS bounds how long a single pop blocks before re-promoting
	// due delayed tasks.
	PollIntervalMS int `yaml:"poll_interval_ms" envconfig:"QUEUE_POLL_INTERVAL_MS"`
}

// VerificationConfig controls the join-time human check.
type VerificationConfig struct {
	// WindowSeconds is the challenge deadline and the timeout task delay.
	WindowSeconds int `yaml:"window_seconds" envconfig:"VERIFY_WINDOW_SECONDS"`
}

// VoteBanConfig controls the vote-to-ban thresholds.
type VoteBanConfig struct {
	BanThreshold     int `yaml:"ban_threshold" envconfig:"VOTEBAN_BAN_THRESHOLD"`
	ForgiveThreshold int `yaml:"forgive_threshold" envconfig:"VOTEBAN_FORGIVE_THRESHOLD"`
	// SessionTTLHours bounds how long an unresolved session may linger
	// before the periodic purge drops it.
	SessionTTLHours int `yaml:"session_ttl_hours" envconfig:"VOTEBAN_SESSION_TTL_HOURS"`
}

// NewsConfig controls the scheduled news digest job.
type NewsConfig struct {
	ChatID       int64    `yaml:"chat_id" envconfig:"NEWS_CHAT_ID"`
	APIKey       string   `yaml:"api_key" envconfig:"NEWS_API_KEY"`
	APIBaseURL   string   `yaml:"api_base_url" envconfig:"NEWS_API_BASE_URL"`
	Model        string   `yaml:"model" envconfig:"NEWS_MODEL"`
	Feeds        []string `yaml:"feeds" envconfig:"NEWS_FEEDS"`
	ItemsPerFeed int      `yaml:"items_per_feed" envconfig:"NEWS_ITEMS_PER_FEED"`
	MaxAgeHours  int      `yaml:"max_age_hours" envconfig:"NEWS_MAX_AGE_HOURS"`
	TopN         int      `yaml:"top_n" envconfig:"NEWS_TOP_N"`
	Language     string   `yaml:"language" envconfig:"NEWS_LANGUAGE"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format string `yaml:"format" envconfig:"LOG_FORMAT"`
	Dir    string `yaml:"dir" envconfig:"LOG_DIR"`
	File   string `yaml:"file" envconfig:"LOG_FILE"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile" envconfig:"LOG_PROFILE"`
}

// Config aggregates configuration for all binaries.
type Config struct {
	Telegram     TelegramConfig     `yaml:"telegram"`
	Webhook      WebhookConfig      `yaml:"webhook"`
	Database     DatabaseConfig     `yaml:"database"`
	Redis        RedisConfig        `yaml:"redis"`
	Queue        QueueConfig        `yaml:"queue"`
	Verification VerificationConfig `yaml:"verification"`
	VoteBan      VoteBanConfig      `yaml:"voteban"`
	News         NewsConfig         `yaml:"news"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// Load reads configuration from a YAML file and environment variables.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates required fields and fills defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram.token is required")
	}
	cfg.Telegram.BotName = strings.TrimPrefix(strings.TrimSpace(cfg.Telegram.BotName), "@")
	if cfg.Telegram.DefaultLang == "" {
		cfg.Telegram.DefaultLang = "kk"
	}

	if cfg.Webhook.Path == "" {
		cfg.Webhook.Path = "/webhook"
	}
	if !strings.HasPrefix(cfg.Webhook.Path, "/") {
		cfg.Webhook.Path = "/" + cfg.Webhook.Path
	}
	if cfg.Webhook.Listen == "" {
		cfg.Webhook.Listen = ":8080"
	}

	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxConnections <= 0 {
		cfg.Database.MaxConnections = 10
	}

	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}

	if cfg.Queue.KeyPrefix == "" {
		cfg.Queue.KeyPrefix = "zerde:queue"
	}
	if cfg.Queue.PollIntervalMS <= 0 {
		cfg.Queue.PollIntervalMS = 1000
	}

	if cfg.Verification.WindowSeconds <= 0 {
		cfg.Verification.WindowSeconds = 60
	}

	if cfg.VoteBan.BanThreshold <= 0 {
		cfg.VoteBan.BanThreshold = 15
	}
	if cfg.VoteBan.ForgiveThreshold <= 0 {
		cfg.VoteBan.ForgiveThreshold = 10
	}
	if cfg.VoteBan.SessionTTLHours <= 0 {
		cfg.VoteBan.SessionTTLHours = 24
	}

	if cfg.News.ItemsPerFeed <= 0 {
		cfg.News.ItemsPerFeed = 15
	}
	if cfg.News.MaxAgeHours <= 0 {
		cfg.News.MaxAgeHours = 24
	}
	if cfg.News.TopN <= 0 {
		cfg.News.TopN = 3
	}
	if cfg.News.Language == "" {
		cfg.News.Language = cfg.Telegram.DefaultLang
	}
	if cfg.News.Model == "" {
		cfg.News.Model = "llama-3.3-70b-versatile"
	}

	return nil
}
