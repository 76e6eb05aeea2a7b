package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const (
	createSchemaSQL = `CREATE TABLE IF NOT EXISTS subscriptions (
        chat_id    BIGINT PRIMARY KEY,
        city       TEXT        NOT NULL DEFAULT 'bangalore',
        metal      TEXT        NOT NULL DEFAULT 'gold',
        created_at TIMESTAMPTZ NOT NULL DEFAULT now()
    );
    CREATE TABLE IF NOT EXISTS alerts (
        chat_id    BIGINT PRIMARY KEY,
        metal      TEXT        NOT NULL DEFAULT 'gold',
        city       TEXT        NOT NULL DEFAULT 'bangalore',
        threshold  NUMERIC     NOT NULL,
        created_at TIMESTAMPTZ NOT NULL DEFAULT now()
    );`

	upsertSubscriptionSQL = `INSERT INTO subscriptions (
        chat_id,
        city,
        metal,
        created_at
    ) VALUES (
        $1,$2,$3,$4
    )
    ON CONFLICT (chat_id) DO UPDATE
    SET
        city       = EXCLUDED.city,
        metal      = EXCLUDED.metal,
        created_at = EXCLUDED.created_at;`

	getSubscriptionSQL = `SELECT chat_id, city, metal, created_at
    FROM subscriptions
    WHERE chat_id = $1;`

	listSubscriptionsSQL = `SELECT chat_id, city, metal, created_at
    FROM subscriptions
    ORDER BY chat_id;`

	deleteSubscriptionSQL = `DELETE FROM subscriptions WHERE chat_id = $1;`

	upsertAlertSQL = `INSERT INTO alerts (
        chat_id,
        metal,
        city,
        threshold,
        created_at
    ) VALUES (
        $1,$2,$3,$4,$5
    )
    ON CONFLICT (chat_id) DO UPDATE
    SET
        metal      = EXCLUDED.metal,
        city       = EXCLUDED.city,
        threshold  = EXCLUDED.threshold,
        created_at = EXCLUDED.created_at;`

	getAlertSQL = `SELECT chat_id, metal, city, threshold::text, created_at
    FROM alerts
    WHERE chat_id = $1;`

	listAlertsSQL = `SELECT chat_id, metal, city, threshold::text, created_at
    FROM alerts
    ORDER BY chat_id;`

	deleteAlertSQL = `DELETE FROM alerts WHERE chat_id = $1;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// PostgresStore keeps subscriptions and alerts in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wires a pgx pool into a store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Close releases the underlying pool resources.
func (s *PostgresStore) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}

func (s *PostgresStore) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// EnsureSchema creates both tables when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, createSchemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *PostgresStore) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		// best effort; the session lock also goes away with the connection
		_, _ = conn.Exec(ctxUnlock, advisoryUnlockSQL, key)
		conn.Release()
	}
	return unlock, true, nil
}

// PutSubscription inserts or replaces the chat's subscription.
func (s *PostgresStore) PutSubscription(ctx context.Context, sub Subscription) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now().UTC()
	}
	if _, err := pool.Exec(ctx, upsertSubscriptionSQL, sub.ChatID, sub.City, sub.Metal, sub.CreatedAt); err != nil {
		return fmt.Errorf("upsert subscription: %w", err)
	}
	return nil
}

// GetSubscription loads one subscription.
func (s *PostgresStore) GetSubscription(ctx context.Context, chatID int64) (Subscription, bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return Subscription{}, false, err
	}
	var sub Subscription
	err = pool.QueryRow(ctx, getSubscriptionSQL, chatID).Scan(&sub.ChatID, &sub.City, &sub.Metal, &sub.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Subscription{}, false, nil
	}
	if err != nil {
		return Subscription{}, false, fmt.Errorf("get subscription: %w", err)
	}
	return sub, true, nil
}

// DeleteSubscription removes the chat's subscription and reports whether one existed.
func (s *PostgresStore) DeleteSubscription(ctx context.Context, chatID int64) (bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return false, err
	}
	tag, err := pool.Exec(ctx, deleteSubscriptionSQL, chatID)
	if err != nil {
		return false, fmt.Errorf("delete subscription: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListSubscriptions returns every subscription ordered by chat id.
func (s *PostgresStore) ListSubscriptions(ctx context.Context) ([]Subscription, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listSubscriptionsSQL)
	if queryErr != nil {
		return nil, fmt.Errorf("list subscriptions: %w", queryErr)
	}
	defer rows.Close()

	subs := make([]Subscription, 0)
	for rows.Next() {
		var sub Subscription
		if err := rows.Scan(&sub.ChatID, &sub.City, &sub.Metal, &sub.CreatedAt); err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return subs, nil
}

// PutAlert inserts or replaces the chat's alert.
func (s *PostgresStore) PutAlert(ctx context.Context, alert Alert) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now().UTC()
	}
	if _, err := pool.Exec(ctx, upsertAlertSQL,
		alert.ChatID,
		alert.Metal,
		alert.City,
		alert.Threshold.String(),
		alert.CreatedAt,
	); err != nil {
		return fmt.Errorf("upsert alert: %w", err)
	}
	return nil
}

// GetAlert loads one alert.
func (s *PostgresStore) GetAlert(ctx context.Context, chatID int64) (Alert, bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return Alert{}, false, err
	}
	alert, err := scanAlert(pool.QueryRow(ctx, getAlertSQL, chatID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Alert{}, false, nil
	}
	if err != nil {
		return Alert{}, false, fmt.Errorf("get alert: %w", err)
	}
	return alert, true, nil
}

// DeleteAlert removes the chat's alert and reports whether one existed.
func (s *PostgresStore) DeleteAlert(ctx context.Context, chatID int64) (bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return false, err
	}
	tag, err := pool.Exec(ctx, deleteAlertSQL, chatID)
	if err != nil {
		return false, fmt.Errorf("delete alert: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListAlerts returns every alert ordered by chat id.
func (s *PostgresStore) ListAlerts(ctx context.Context) ([]Alert, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listAlertsSQL)
	if queryErr != nil {
		return nil, fmt.Errorf("list alerts: %w", queryErr)
	}
	defer rows.Close()

	alerts := make([]Alert, 0)
	for rows.Next() {
		alert, scanErr := scanAlert(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		alerts = append(alerts, alert)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return alerts, nil
}

func scanAlert(row pgx.Row) (Alert, error) {
	var (
		alert        Alert
		thresholdStr string
	)
	if err := row.Scan(&alert.ChatID, &alert.Metal, &alert.City, &thresholdStr, &alert.CreatedAt); err != nil {
		return Alert{}, err
	}
	threshold, err := decimal.NewFromString(thresholdStr)
	if err != nil {
		return Alert{}, fmt.Errorf("parse threshold: %w", err)
	}
	alert.Threshold = threshold
	return alert, nil
}

var (
	_ Store          = (*PostgresStore)(nil)
	_ AdvisoryLocker = (*PostgresStore)(nil)
)
