package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"metalbot/internal/config"
)

var (
	// ErrNotConfigured indicates the backing connection was not initialised.
	ErrNotConfigured = errors.New("storage: backend not configured")
)

// SubscriptionStore persists daily subscriptions keyed by chat id.
type SubscriptionStore interface {
	PutSubscription(ctx context.Context, sub Subscription) error
	GetSubscription(ctx context.Context, chatID int64) (Subscription, bool, error)
	DeleteSubscription(ctx context.Context, chatID int64) (bool, error)
	ListSubscriptions(ctx context.Context) ([]Subscription, error)
}

// AlertStore persists price alerts keyed by chat id.
type AlertStore interface {
	PutAlert(ctx context.Context, alert Alert) error
	GetAlert(ctx context.Context, chatID int64) (Alert, bool, error)
	DeleteAlert(ctx context.Context, chatID int64) (bool, error)
	ListAlerts(ctx context.Context) ([]Alert, error)
}

// Store is the full record store used by the bot and the jobs.
type Store interface {
	SubscriptionStore
	AlertStore
	Close() error
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Open builds the backend selected by cfg.Storage.Driver.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch strings.ToLower(cfg.Storage.Driver) {
	case config.DriverSQLite:
		return NewSQLiteStore(ctx, cfg.Storage.SQLitePath)
	case config.DriverPostgres:
		pool, err := NewPool(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		store := NewPostgresStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			store.Close()
			return nil, err
		}
		return store, nil
	case config.DriverRedis:
		client, err := NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		return NewRedisStore(client, cfg.Redis.KeyPrefix), nil
	case config.DriverMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// NewPool configures a PostgreSQL connection pool from runtime settings.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse database dsn: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = int32(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}

	return pool, nil
}

// NewRedisClient connects and pings the configured redis server.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis.addr is required")
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}
