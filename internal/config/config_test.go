package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("app:\n  environment: test\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load should succeed with defaults: %v", err)
	}
	if cfg.App.Environment != "test" {
		t.Fatalf("file value not applied: %q", cfg.App.Environment)
	}
	if cfg.Cache.TTL != 30*time.Minute {
		t.Fatalf("unexpected cache ttl %s", cfg.Cache.TTL)
	}
	if cfg.Source.Timeout != 15*time.Second {
		t.Fatalf("unexpected source timeout %s", cfg.Source.Timeout)
	}
	if cfg.Scheduler.AlertInterval != time.Hour || cfg.Scheduler.AlertStartupDelay != time.Minute {
		t.Fatalf("unexpected alert schedule %+v", cfg.Scheduler)
	}
	if cfg.Storage.Driver != DriverSQLite || cfg.Bot.DefaultCity != "bangalore" {
		t.Fatalf("unexpected defaults %+v %+v", cfg.Storage, cfg.Bot)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("METALBOT_CACHE_TTL", "5m")
	t.Setenv("TOKEN", "legacy-token")

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("{}\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Cache.TTL != 5*time.Minute {
		t.Fatalf("env override not applied: %s", cfg.Cache.TTL)
	}
	if cfg.Telegram.BotToken != "legacy-token" {
		t.Fatalf("TOKEN alias not honoured: %q", cfg.Telegram.BotToken)
	}
	if err := cfg.RequireTelegram(); err != nil {
		t.Fatalf("telegram should be usable: %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	base := func() Config {
		return Config{
			Source:    SourceConfig{BaseURL: "https://example.test", Timeout: time.Second},
			Cache:     CacheConfig{TTL: time.Minute},
			Scheduler: SchedulerConfig{DailyAt: "03:30", AlertInterval: time.Hour},
			Storage:   StorageConfig{Driver: DriverMemory},
			Bot:       BotConfig{DefaultMetal: "gold", DefaultCity: "mumbai"},
		}
	}

	ok := base()
	if err := ok.Validate(); err != nil {
		t.Fatalf("base config should validate: %v", err)
	}

	cases := map[string]func(*Config){
		"daily_at":      func(c *Config) { c.Scheduler.DailyAt = "9am" },
		"driver":        func(c *Config) { c.Storage.Driver = "mysql" },
		"postgres dsn":  func(c *Config) { c.Storage.Driver = DriverPostgres },
		"default metal": func(c *Config) { c.Bot.DefaultMetal = "copper" },
		"default city":  func(c *Config) { c.Bot.DefaultCity = "paris" },
		"ttl":           func(c *Config) { c.Cache.TTL = 0 },
		"timezone":      func(c *Config) { c.Display.Timezone = "Mars/Olympus" },
	}
	for name, mutate := range cases {
		cfg := base()
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestParseClock(t *testing.T) {
	h, m, err := ParseClock("03:30")
	if err != nil || h != 3 || m != 30 {
		t.Fatalf("ParseClock(03:30) = %d:%d %v", h, m, err)
	}
	if _, _, err := ParseClock("25:00"); err == nil {
		t.Fatal("25:00 should be rejected")
	}
}

func TestLoadLocationIST(t *testing.T) {
	loc, err := LoadLocation("Asia/Kolkata")
	if err != nil {
		t.Fatalf("Asia/Kolkata should always resolve: %v", err)
	}
	_, offset := time.Date(2026, 1, 1, 0, 0, 0, 0, loc).Zone()
	if offset != 19800 {
		t.Fatalf("unexpected IST offset %d", offset)
	}
}
