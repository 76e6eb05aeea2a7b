package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each table in one hash: field = chat id, value = JSON record.
type RedisStore struct {
	rdb     *redis.Client
	keySubs string
	keyAlts string
}

// NewRedisStore wraps a connected client. prefix defaults to "metalbot".
func NewRedisStore(rdb *redis.Client, prefix string) *RedisStore {
	if strings.TrimSpace(prefix) == "" {
		prefix = "metalbot"
	}
	return &RedisStore{
		rdb:     rdb,
		keySubs: prefix + ":subscriptions",
		keyAlts: prefix + ":alerts",
	}
}

// Close closes the client.
func (r *RedisStore) Close() error {
	if r == nil || r.rdb == nil {
		return nil
	}
	return r.rdb.Close()
}

// PutSubscription inserts or replaces the chat's subscription.
func (r *RedisStore) PutSubscription(ctx context.Context, sub Subscription) error {
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now().UTC()
	}
	return r.put(ctx, r.keySubs, sub.ChatID, sub)
}

// GetSubscription loads one subscription.
func (r *RedisStore) GetSubscription(ctx context.Context, chatID int64) (Subscription, bool, error) {
	var sub Subscription
	ok, err := r.get(ctx, r.keySubs, chatID, &sub)
	return sub, ok, err
}

// DeleteSubscription removes the chat's subscription and reports whether one existed.
func (r *RedisStore) DeleteSubscription(ctx context.Context, chatID int64) (bool, error) {
	return r.del(ctx, r.keySubs, chatID)
}

// ListSubscriptions returns every subscription ordered by chat id.
func (r *RedisStore) ListSubscriptions(ctx context.Context) ([]Subscription, error) {
	values, err := r.rdb.HGetAll(ctx, r.keySubs).Result()
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	subs := make([]Subscription, 0, len(values))
	for field, raw := range values {
		var sub Subscription
		if err := json.Unmarshal([]byte(raw), &sub); err != nil {
			return nil, fmt.Errorf("decode subscription %s: %w", field, err)
		}
		subs = append(subs, sub)
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].ChatID < subs[j].ChatID })
	return subs, nil
}

// PutAlert inserts or replaces the chat's alert.
func (r *RedisStore) PutAlert(ctx context.Context, alert Alert) error {
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now().UTC()
	}
	return r.put(ctx, r.keyAlts, alert.ChatID, alert)
}

// GetAlert loads one alert.
func (r *RedisStore) GetAlert(ctx context.Context, chatID int64) (Alert, bool, error) {
	var alert Alert
	ok, err := r.get(ctx, r.keyAlts, chatID, &alert)
	return alert, ok, err
}

// DeleteAlert removes the chat's alert and reports whether one existed.
func (r *RedisStore) DeleteAlert(ctx context.Context, chatID int64) (bool, error) {
	return r.del(ctx, r.keyAlts, chatID)
}

// ListAlerts returns every alert ordered by chat id.
func (r *RedisStore) ListAlerts(ctx context.Context) ([]Alert, error) {
	values, err := r.rdb.HGetAll(ctx, r.keyAlts).Result()
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	alerts := make([]Alert, 0, len(values))
	for field, raw := range values {
		var alert Alert
		if err := json.Unmarshal([]byte(raw), &alert); err != nil {
			return nil, fmt.Errorf("decode alert %s: %w", field, err)
		}
		alerts = append(alerts, alert)
	}
	sort.Slice(alerts, func(i, j int) bool { return alerts[i].ChatID < alerts[j].ChatID })
	return alerts, nil
}

func (r *RedisStore) put(ctx context.Context, key string, chatID int64, record any) error {
	b, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode %s record: %w", key, err)
	}
	if err := r.rdb.HSet(ctx, key, chatField(chatID), string(b)).Err(); err != nil {
		return fmt.Errorf("hset %s: %w", key, err)
	}
	return nil
}

func (r *RedisStore) get(ctx context.Context, key string, chatID int64, dest any) (bool, error) {
	raw, err := r.rdb.HGet(ctx, key, chatField(chatID)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("hget %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return false, fmt.Errorf("decode %s record: %w", key, err)
	}
	return true, nil
}

func (r *RedisStore) del(ctx context.Context, key string, chatID int64) (bool, error) {
	n, err := r.rdb.HDel(ctx, key, chatField(chatID)).Result()
	if err != nil {
		return false, fmt.Errorf("hdel %s: %w", key, err)
	}
	return n > 0, nil
}

func chatField(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}

var _ Store = (*RedisStore)(nil)
