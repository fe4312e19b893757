package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// Values are read by viper from a config file or environment variables.
type Config struct {
	BadgerDBPath string `mapstructure:"BADGERDB_PATH"`
	LogLevel     string `mapstructure:"LOG_LEVEL"`
	HTTPAddr     string `mapstructure:"HTTP_ADDR"`

	// TelegramBotToken enables the share bot when set.
	TelegramBotToken string `mapstructure:"TELEGRAM_BOT_TOKEN"`

	// AnthropicAPIKey enables classification when set.
	AnthropicAPIKey string        `mapstructure:"ANTHROPIC_API_KEY"`
	AnthropicModel  string        `mapstructure:"ANTHROPIC_MODEL"`
	ClassifyTimeout time.Duration `mapstructure:"CLASSIFY_TIMEOUT"`

	// ScraperEngine is "http" or "rod".
	ScraperEngine   string        `mapstructure:"SCRAPER_ENGINE"`
	FetchTimeout    time.Duration `mapstructure:"FETCH_TIMEOUT"`
	RedirectTimeout time.Duration `mapstructure:"REDIRECT_TIMEOUT"`
	ArxivAPIURL     string        `mapstructure:"ARXIV_API_URL"`
	OEmbedURL       string        `mapstructure:"OEMBED_URL"`

	ShareDefaultNote string  `mapstructure:"SHARE_DEFAULT_NOTE"`
	ShareRateLimit   float64 `mapstructure:"SHARE_RATE_LIMIT"`
	ShareRateBurst   int     `mapstructure:"SHARE_RATE_BURST"`

	GCInterval time.Duration `mapstructure:"GC_INTERVAL"`
}

var defaults = map[string]any{
	"BADGERDB_PATH":      "./badger_data",
	"LOG_LEVEL":          "info",
	"HTTP_ADDR":          ":8080",
	"TELEGRAM_BOT_TOKEN": "",
	"ANTHROPIC_API_KEY":  "",
	"ANTHROPIC_MODEL":    "claude-3-5-haiku-latest",
	"CLASSIFY_TIMEOUT":   "20s",
	"SCRAPER_ENGINE":     "http",
	"FETCH_TIMEOUT":      "15s",
	"REDIRECT_TIMEOUT":   "5s",
	"ARXIV_API_URL":      "https://export.arxiv.org/api/query",
	"OEMBED_URL":         "https://publish.twitter.com/oembed",
	"SHARE_DEFAULT_NOTE": "Shared from iPhone",
	"SHARE_RATE_LIMIT":   2.0,
	"SHARE_RATE_BURST":   10,
	"GC_INTERVAL":        "10m",
}

// LoadConfig reads configuration from path/config.yaml, overridden by
// environment variables. A missing file is not an error.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Every key needs a default so that Unmarshal sees env-only values.
	for key, val := range defaults {
		v.SetDefault(key, val)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

// Validate checks values viper cannot check on decode.
func (c Config) Validate() error {
	if c.BadgerDBPath == "" {
		return fmt.Errorf("BADGERDB_PATH must not be empty")
	}
	switch c.ScraperEngine {
	case "http", "rod":
	default:
		return fmt.Errorf("SCRAPER_ENGINE must be http or rod, got %q", c.ScraperEngine)
	}
	if c.ShareRateLimit < 0 {
		return fmt.Errorf("SHARE_RATE_LIMIT must not be negative")
	}
	for name, d := range map[string]time.Duration{
		"FETCH_TIMEOUT":    c.FetchTimeout,
		"REDIRECT_TIMEOUT": c.RedirectTimeout,
		"CLASSIFY_TIMEOUT": c.ClassifyTimeout,
		"GC_INTERVAL":      c.GCInterval,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	return nil
}
