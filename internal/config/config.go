package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"gitea.jw6.us/james/notioncal/internal/feed"
)

type Config struct {
	ListenAddr string `yaml:"listen_addr"`

	Notion struct {
		Token      string `yaml:"token"`
		DatabaseID string `yaml:"database_id"`
		BaseURL    string `yaml:"base_url"`
		Version    string `yaml:"version"`
	} `yaml:"notion"`

	Feed struct {
		DateProperty    string `yaml:"date_property"`
		DoneProperty    string `yaml:"done_property"`
		TitleProperty   string `yaml:"title_property"`
		LookbackMonths  int    `yaml:"lookback_months"`
		DefaultTimezone string `yaml:"default_timezone"`
		TokenHash       string `yaml:"token_hash"`
	} `yaml:"feed"`

	LogFile           string   `yaml:"log_file"`
	PrometheusEnabled bool     `yaml:"prometheus_enabled"`
	TrustedProxies    []string `yaml:"trusted_proxies"`
}

// FeedOptions returns the transformer options for the configured database.
func (c *Config) FeedOptions() feed.Options {
	return feed.Options{
		DateProperty:   c.Feed.DateProperty,
		DoneProperty:   c.Feed.DoneProperty,
		TitleProperty:  c.Feed.TitleProperty,
		LookbackMonths: c.Feed.LookbackMonths,
	}
}

// Load reads configuration from APP_CONFIG_FILE, if set, and then from the
// environment. Environment values win.
func Load() (*Config, error) {
	cfg := &Config{}

	if path := os.Getenv("APP_CONFIG_FILE"); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	cfg.ListenAddr = getenvDefault("APP_LISTEN_ADDR", orDefault(cfg.ListenAddr, ":8080"))
	cfg.Notion.Token = getenvDefault("NOTION_API_TOKEN", cfg.Notion.Token)
	cfg.Notion.DatabaseID = getenvDefault("NOTION_EVENTS_DATABASE_ID", cfg.Notion.DatabaseID)
	cfg.Notion.BaseURL = getenvDefault("NOTION_API_URL", orDefault(cfg.Notion.BaseURL, "https://api.notion.com"))
	cfg.Notion.Version = getenvDefault("NOTION_API_VERSION", orDefault(cfg.Notion.Version, "2022-06-28"))

	defaults := feed.DefaultOptions()
	cfg.Feed.DateProperty = getenvDefault("APP_DATE_PROPERTY", orDefault(cfg.Feed.DateProperty, defaults.DateProperty))
	cfg.Feed.DoneProperty = getenvDefault("APP_DONE_PROPERTY", orDefault(cfg.Feed.DoneProperty, defaults.DoneProperty))
	cfg.Feed.TitleProperty = getenvDefault("APP_TITLE_PROPERTY", orDefault(cfg.Feed.TitleProperty, defaults.TitleProperty))
	cfg.Feed.DefaultTimezone = getenvDefault("APP_DEFAULT_TIMEZONE", orDefault(cfg.Feed.DefaultTimezone, "UTC"))
	cfg.Feed.TokenHash = getenvDefault("APP_FEED_TOKEN_HASH", cfg.Feed.TokenHash)
	if cfg.Feed.LookbackMonths == 0 {
		cfg.Feed.LookbackMonths = defaults.LookbackMonths
	}
	if v := os.Getenv("APP_LOOKBACK_MONTHS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid APP_LOOKBACK_MONTHS value: %w", err)
		}
		cfg.Feed.LookbackMonths = n
	}

	cfg.LogFile = getenvDefault("APP_LOG_FILE", cfg.LogFile)
	cfg.PrometheusEnabled = getenvBool("APP_PROMETHEUS_ENDPOINT_ENABLED", cfg.PrometheusEnabled)
	if proxies := getenvList("APP_TRUSTED_PROXIES"); proxies != nil {
		cfg.TrustedProxies = proxies
	}

	if cfg.Notion.Token == "" {
		return nil, errors.New("NOTION_API_TOKEN is required")
	}
	if cfg.Feed.LookbackMonths <= 0 {
		return nil, fmt.Errorf("APP_LOOKBACK_MONTHS must be positive (got %d)", cfg.Feed.LookbackMonths)
	}
	if _, err := feed.LoadTimezone(cfg.Feed.DefaultTimezone); err != nil {
		return nil, fmt.Errorf("APP_DEFAULT_TIMEZONE: %w", err)
	}
	if cfg.Notion.DatabaseID == "" {
		fmt.Println("WARNING: No NOTION_EVENTS_DATABASE_ID configured. Requests must pass ?db=<database id>.")
	}
	if len(cfg.TrustedProxies) == 0 {
		fmt.Println("WARNING: No APP_TRUSTED_PROXIES configured. Rate limiting will key on the connecting address and ignore X-Forwarded-For.")
	}

	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func orDefault(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		switch strings.ToLower(v) {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
	}
	return def
}

func getenvList(key string) []string {
	if v := os.Getenv(key); v != "" {
		var result []string
		for _, item := range strings.Split(v, ",") {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return nil
}
