package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"metalbot/internal/catalog"
	"metalbot/internal/logging"
)

// Storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverMemory   = "memory"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Source    SourceConfig    `mapstructure:"source"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Display   DisplayConfig   `mapstructure:"display"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Bot       BotConfig       `mapstructure:"bot"`
	Health    HealthConfig    `mapstructure:"health"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// SourceConfig describes the price page being scraped.
type SourceConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Name      string        `mapstructure:"name"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

// CacheConfig governs rendered price reuse.
type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// DisplayConfig controls timestamps in messages.
type DisplayConfig struct {
	Timezone string `mapstructure:"timezone"`
}

// SchedulerConfig governs the periodic jobs.
type SchedulerConfig struct {
	DailyAt           string        `mapstructure:"daily_at"`
	DailyTimezone     string        `mapstructure:"daily_timezone"`
	AlertInterval     time.Duration `mapstructure:"alert_interval"`
	AlertStartupDelay time.Duration `mapstructure:"alert_startup_delay"`
	AdvisoryLockKey   int64         `mapstructure:"advisory_lock_key"`
}

// StorageConfig picks the subscription/alert backend.
type StorageConfig struct {
	Driver     string `mapstructure:"driver"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// RedisConfig encapsulates redis connectivity.
type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// TelegramConfig 描述 Telegram Bot 参数。
type TelegramConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	BotToken       string        `mapstructure:"bot_token"`
	APIBase        string        `mapstructure:"api_base"`
	PollTimeout    time.Duration `mapstructure:"poll_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// BotConfig holds command defaults.
type BotConfig struct {
	DefaultMetal string `mapstructure:"default_metal"`
	DefaultCity  string `mapstructure:"default_city"`
}

// HealthConfig controls the HTTP health endpoint.
type HealthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// Load builds configuration from .env, file, environment, and defaults.
func Load(path string) (*Config, error) {
	// a missing .env is normal outside local development
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("METALBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("telegram.bot_token", "METALBOT_TELEGRAM_BOT_TOKEN", "TOKEN")
	_ = v.BindEnv("storage.sqlite_path", "METALBOT_STORAGE_SQLITE_PATH", "DB_PATH")

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "metalbot")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("source.base_url", "https://www.goodreturns.in")
	v.SetDefault("source.name", "GoodReturns.in")
	v.SetDefault("source.timeout", "15s")
	v.SetDefault("source.user_agent", "")

	v.SetDefault("cache.ttl", "30m")
	v.SetDefault("display.timezone", "Asia/Kolkata")

	// 03:30 UTC is 09:00 IST
	v.SetDefault("scheduler.daily_at", "03:30")
	v.SetDefault("scheduler.daily_timezone", "UTC")
	v.SetDefault("scheduler.alert_interval", "1h")
	v.SetDefault("scheduler.alert_startup_delay", "60s")
	v.SetDefault("scheduler.advisory_lock_key", int64(0x6d62_6f74))

	v.SetDefault("storage.driver", DriverSQLite)
	v.SetDefault("storage.sqlite_path", "bot_data.db")

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", "30m")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "metalbot")

	v.SetDefault("telegram.enabled", true)
	v.SetDefault("telegram.api_base", "https://api.telegram.org")
	v.SetDefault("telegram.poll_timeout", "30s")
	v.SetDefault("telegram.request_timeout", "10s")

	v.SetDefault("bot.default_metal", "gold")
	v.SetDefault("bot.default_city", "bangalore")

	v.SetDefault("health.enabled", true)
	v.SetDefault("health.addr", ":10000")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Source.BaseURL == "" {
		return fmt.Errorf("source.base_url must be set")
	}
	if c.Source.Timeout <= 0 {
		return fmt.Errorf("source.timeout must be greater than zero")
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be greater than zero")
	}
	if c.Scheduler.AlertInterval <= 0 {
		return fmt.Errorf("scheduler.alert_interval must be greater than zero")
	}
	if c.Scheduler.AlertStartupDelay < 0 {
		return fmt.Errorf("scheduler.alert_startup_delay cannot be negative")
	}
	if _, _, err := ParseClock(c.Scheduler.DailyAt); err != nil {
		return fmt.Errorf("scheduler.daily_at: %w", err)
	}
	if _, err := LoadLocation(c.Scheduler.DailyTimezone); err != nil {
		return fmt.Errorf("scheduler.daily_timezone: %w", err)
	}
	if _, err := LoadLocation(c.Display.Timezone); err != nil {
		return fmt.Errorf("display.timezone: %w", err)
	}

	switch strings.ToLower(c.Storage.Driver) {
	case DriverSQLite:
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("storage.sqlite_path must be set for the sqlite driver")
		}
	case DriverPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn must be set for the postgres driver")
		}
	case DriverRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis.addr must be set for the redis driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("storage.driver %q is not supported", c.Storage.Driver)
	}

	if _, ok := catalog.LookupMetal(c.Bot.DefaultMetal); !ok {
		return fmt.Errorf("bot.default_metal %q is not supported", c.Bot.DefaultMetal)
	}
	if _, ok := catalog.LookupCity(c.Bot.DefaultCity); !ok {
		return fmt.Errorf("bot.default_city %q is not supported", c.Bot.DefaultCity)
	}
	return nil
}

// RequireTelegram checks the settings the long-running bot needs.
func (c *Config) RequireTelegram() error {
	if !c.Telegram.Enabled {
		return fmt.Errorf("telegram.enabled is false")
	}
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token 必须配置 (或设置 TOKEN)")
	}
	return nil
}

// ParseClock parses "HH:MM" into hour and minute.
func ParseClock(v string) (int, int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(v))
	if err != nil {
		return 0, 0, fmt.Errorf("expected HH:MM, got %q", v)
	}
	return t.Hour(), t.Minute(), nil
}

// LoadLocation resolves a zone name, tolerating hosts without tzdata for IST.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" || strings.EqualFold(name, "UTC") {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err == nil {
		return loc, nil
	}
	if name == "Asia/Kolkata" || name == "Asia/Calcutta" {
		return time.FixedZone("IST", 5*3600+30*60), nil
	}
	return nil, err
}
