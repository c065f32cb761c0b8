package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone   = "America/Los_Angeles"
	configPathEnv     = "PAPER_TRACKER_CONFIG"
	databaseDSNEnv    = "POSTGRES_URL"
	firecrawlKeyEnv   = "FIRECRAWL_API_KEY"
	classifierKeyEnv  = "OPENROUTER_API_KEY"
	classifierModel   = "CLASSIFIER_MODEL"
	discordWebhookEnv = "DISCORD_WEBHOOK_URL"
	xTokenEnv         = "X_OAUTH2_ACCESS_TOKEN"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
	logLevelEnv       = "LOG_LEVEL"
)

// ErrMissingValue marks a required setting that is empty after all layers
// were applied.
var ErrMissingValue = errors.New("missing required configuration value")

//go:embed rubric_ai_agents.md
var defaultRubric string

// Config holds high-level settings required across the application.
type Config struct {
	Database      DatabaseConfig     `yaml:"database"`
	Tracker       TrackerConfig      `yaml:"tracker"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Firecrawl     FirecrawlConfig    `yaml:"firecrawl"`
	Classifier    ClassifierConfig   `yaml:"classifier"`
	Notifications NotificationConfig `yaml:"notifications"`
	Server        ServerConfig       `yaml:"server"`
	Logging       LoggingConfig      `yaml:"logging"`
}

// DatabaseConfig holds the store DSN. The scheme selects the driver:
// postgres:// or postgresql:// for Postgres, sqlite:// or file: for SQLite.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// TrackerConfig tunes listing discovery and batch processing.
type TrackerConfig struct {
	ListingBaseURL string         `yaml:"listingBaseUrl"`
	ListingLimit   int            `yaml:"listingLimit"`
	BatchSize      int            `yaml:"batchSize"`
	Timezone       string         `yaml:"timezone"`
	location       *time.Location `yaml:"-"`
}

// Location resolves the reference timezone used to pick "today's" listing.
func (t TrackerConfig) Location() *time.Location {
	if t.location != nil {
		return t.location
	}
	loc, err := time.LoadLocation(defaultTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// SchedulerConfig defines how often the tracker runs in schedule mode.
type SchedulerConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// FirecrawlConfig wires the detail extraction service.
type FirecrawlConfig struct {
	BaseURL string        `yaml:"baseUrl"`
	APIKey  string        `yaml:"apiKey"`
	Timeout time.Duration `yaml:"timeout"`
}

// ClassifierConfig defines how to reach the chat-completion API and which
// rubric to classify against. RubricFile wins over the inline Rubric.
type ClassifierConfig struct {
	Endpoint   string        `yaml:"endpoint"`
	Model      string        `yaml:"model"`
	APIKey     string        `yaml:"apiKey"`
	Referer    string        `yaml:"referer"`
	Title      string        `yaml:"title"`
	Timeout    time.Duration `yaml:"timeout"`
	Threshold  float64       `yaml:"threshold"`
	Rubric     string        `yaml:"rubric"`
	RubricFile string        `yaml:"rubricFile"`
}

// NotificationConfig encapsulates outbound channels.
type NotificationConfig struct {
	Discord  DiscordConfig  `yaml:"discord"`
	X        XConfig        `yaml:"x"`
	Telegram TelegramConfig `yaml:"telegram"`
}

// DiscordConfig holds the channel webhook.
type DiscordConfig struct {
	WebhookURL string `yaml:"webhookUrl"`
}

// XConfig holds the user-context bearer token for posting.
type XConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"`
	AccessToken string `yaml:"accessToken"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// Enabled reports whether both bot token and chat are set.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// ServerConfig configures the read-only API.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LoggingConfig selects the minimum log level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load builds the configuration from defaults, the YAML file at path (or
// $PAPER_TRACKER_CONFIG when path is empty), an optional .env file and the
// environment, in that order of precedence.
func Load(path string) (Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg.applyEnvOverrides()
	if err := cfg.bindTimezone(); err != nil {
		return Config{}, err
	}
	if err := cfg.resolveRubric(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// ValidateForTracking checks everything a tracking run talks to.
func (c Config) ValidateForTracking() error {
	var errs []error
	require := func(value, key string) {
		if strings.TrimSpace(value) == "" {
			errs = append(errs, fmt.Errorf("%w: %s", ErrMissingValue, key))
		}
	}

	require(c.Database.DSN, databaseDSNEnv)
	require(c.Firecrawl.APIKey, firecrawlKeyEnv)
	require(c.Classifier.APIKey, classifierKeyEnv)
	require(c.Classifier.Rubric, "classifier.rubric")
	require(c.Notifications.Discord.WebhookURL, discordWebhookEnv)
	if c.Notifications.X.Enabled {
		require(c.Notifications.X.AccessToken, xTokenEnv)
	}

	return errors.Join(errs...)
}

// ValidateForServing checks the read-only API needs.
func (c Config) ValidateForServing() error {
	if strings.TrimSpace(c.Database.DSN) == "" {
		return fmt.Errorf("%w: %s", ErrMissingValue, databaseDSNEnv)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	overrides := []struct {
		env    string
		target *string
	}{
		{databaseDSNEnv, &c.Database.DSN},
		{firecrawlKeyEnv, &c.Firecrawl.APIKey},
		{classifierKeyEnv, &c.Classifier.APIKey},
		{classifierModel, &c.Classifier.Model},
		{discordWebhookEnv, &c.Notifications.Discord.WebhookURL},
		{xTokenEnv, &c.Notifications.X.AccessToken},
		{telegramTokenEnv, &c.Notifications.Telegram.BotToken},
		{telegramChatIDEnv, &c.Notifications.Telegram.ChatID},
		{logLevelEnv, &c.Logging.Level},
	}
	for _, o := range overrides {
		if v := strings.TrimSpace(os.Getenv(o.env)); v != "" {
			*o.target = v
		}
	}
}

func (c *Config) bindTimezone() error {
	tz := c.Tracker.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return fmt.Errorf("tracker timezone %q: %w", tz, err)
	}
	c.Tracker.Timezone = tz
	c.Tracker.location = loc
	return nil
}

func (c *Config) resolveRubric() error {
	if c.Classifier.RubricFile != "" {
		raw, err := os.ReadFile(c.Classifier.RubricFile)
		if err != nil {
			return fmt.Errorf("read rubric %s: %w", c.Classifier.RubricFile, err)
		}
		c.Classifier.Rubric = string(raw)
	}
	c.Classifier.Rubric = strings.TrimSpace(c.Classifier.Rubric)
	return nil
}

func defaultConfig() Config {
	return Config{
		Tracker: TrackerConfig{
			ListingBaseURL: "https://huggingface.co/papers",
			ListingLimit:   30,
			BatchSize:      5,
			Timezone:       defaultTimezone,
		},
		Scheduler: SchedulerConfig{Interval: 24 * time.Hour},
		Firecrawl: FirecrawlConfig{
			BaseURL: "https://api.firecrawl.dev",
			Timeout: 60 * time.Second,
		},
		Classifier: ClassifierConfig{
			Endpoint:  "https://openrouter.ai/api/v1/chat/completions",
			Model:     "openai/gpt-4o-mini",
			Title:     "Paper Category Classifier",
			Timeout:   20 * time.Second,
			Threshold: 0.8,
			Rubric:    defaultRubric,
		},
		Notifications: NotificationConfig{
			X: XConfig{Enabled: true, Endpoint: "https://api.twitter.com/2/tweets"},
		},
		Server:  ServerConfig{Addr: ":8080"},
		Logging: LoggingConfig{Level: "info"},
	}
}
