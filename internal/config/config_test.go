package config

import (
	"os"
	"path/filepath"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_CONFIG_FILE", "APP_LISTEN_ADDR", "NOTION_API_TOKEN", "NOTION_EVENTS_DATABASE_ID",
		"NOTION_API_URL", "NOTION_API_VERSION", "APP_DATE_PROPERTY", "APP_DONE_PROPERTY",
		"APP_TITLE_PROPERTY", "APP_LOOKBACK_MONTHS", "APP_DEFAULT_TIMEZONE", "APP_FEED_TOKEN_HASH",
		"APP_LOG_FILE", "APP_PROMETHEUS_ENDPOINT_ENABLED", "APP_TRUSTED_PROXIES",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("NOTION_API_TOKEN", "secret_abc")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr)
	}
	if cfg.Notion.BaseURL != "https://api.notion.com" || cfg.Notion.Version != "2022-06-28" {
		t.Errorf("Notion = %+v", cfg.Notion)
	}
	opts := cfg.FeedOptions()
	if opts.DateProperty != "Date" || opts.DoneProperty != "Done" || opts.TitleProperty != "Name" {
		t.Errorf("FeedOptions() = %+v", opts)
	}
	if opts.LookbackMonths != 18 {
		t.Errorf("LookbackMonths = %d, want 18", opts.LookbackMonths)
	}
	if cfg.Feed.DefaultTimezone != "UTC" {
		t.Errorf("DefaultTimezone = %q", cfg.Feed.DefaultTimezone)
	}
}

func TestLoadRequiresToken(t *testing.T) {
	clearEnv(t)
	if _, err := Load(); err == nil {
		t.Fatal("expected error when NOTION_API_TOKEN is missing")
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := map[string]map[string]string{
		"lookback not a number": {"APP_LOOKBACK_MONTHS": "lots"},
		"lookback negative":     {"APP_LOOKBACK_MONTHS": "-2"},
		"bad timezone":          {"APP_DEFAULT_TIMEZONE": "Nowhere/Special"},
	}
	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("NOTION_API_TOKEN", "secret_abc")
			for k, v := range env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadFileWithEnvOverride(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte(`
listen_addr: ":9090"
notion:
  token: secret_from_file
  database_id: 8f2b4c1ad3e94f0b9a6c7d5e4f3a2b1c
feed:
  date_property: When
  title_property: Task
  lookback_months: 6
  default_timezone: Europe/Berlin
prometheus_enabled: true
trusted_proxies:
  - 10.0.0.0/8
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("APP_CONFIG_FILE", path)
	t.Setenv("APP_TITLE_PROPERTY", "Title")
	t.Setenv("APP_PROMETHEUS_ENDPOINT_ENABLED", "off")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ListenAddr != ":9090" || cfg.Notion.Token != "secret_from_file" {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.Feed.DateProperty != "When" || cfg.Feed.DoneProperty != "Done" {
		t.Errorf("Feed = %+v", cfg.Feed)
	}
	if cfg.Feed.TitleProperty != "Title" {
		t.Errorf("TitleProperty = %q, env should win", cfg.Feed.TitleProperty)
	}
	if cfg.Feed.LookbackMonths != 6 || cfg.Feed.DefaultTimezone != "Europe/Berlin" {
		t.Errorf("Feed = %+v", cfg.Feed)
	}
	if cfg.PrometheusEnabled {
		t.Error("PrometheusEnabled should be overridden by env")
	}
	if len(cfg.TrustedProxies) != 1 || cfg.TrustedProxies[0] != "10.0.0.0/8" {
		t.Errorf("TrustedProxies = %v", cfg.TrustedProxies)
	}
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("NOTION_API_TOKEN", "secret_abc")
	t.Setenv("APP_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Error("expected error for missing config file")
	}
}
