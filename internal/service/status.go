package service

import (
	"context"
	"fmt"
	"time"

	"metalbot/internal/pricecache"
	"metalbot/internal/storage"
)

// Status is a point-in-time view of the running bot.
type Status struct {
	StartedAt     time.Time
	Uptime        time.Duration
	Cache         []pricecache.Item
	Subscriptions int
	Alerts        int
}

// StatusReporter collects Status from the cache and the store.
type StatusReporter struct {
	started time.Time
	cache   *pricecache.Cache
	store   storage.Store
	now     func() time.Time
}

// NewStatusReporter records started as the process start time.
func NewStatusReporter(started time.Time, cache *pricecache.Cache, store storage.Store) *StatusReporter {
	return &StatusReporter{started: started, cache: cache, store: store, now: time.Now}
}

// Status gathers uptime, cache entries and record counts.
func (r *StatusReporter) Status(ctx context.Context) (Status, error) {
	subs, err := r.store.ListSubscriptions(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("count subscriptions: %w", err)
	}
	alerts, err := r.store.ListAlerts(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("count alerts: %w", err)
	}
	return Status{
		StartedAt:     r.started,
		Uptime:        r.now().Sub(r.started),
		Cache:         r.cache.Snapshot(),
		Subscriptions: len(subs),
		Alerts:        len(alerts),
	}, nil
}

// CacheAge is how long ago an entry was fetched.
func (r *StatusReporter) CacheAge(item pricecache.Item) time.Duration {
	return r.cache.Age(item.Entry)
}
