package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS subscriptions (
  chat_id    INTEGER PRIMARY KEY,
  city       TEXT    NOT NULL DEFAULT 'bangalore',
  metal      TEXT    NOT NULL DEFAULT 'gold',
  created_at TEXT    NOT NULL
);

CREATE TABLE IF NOT EXISTS alerts (
  chat_id    INTEGER PRIMARY KEY,
  metal      TEXT    NOT NULL DEFAULT 'gold',
  city       TEXT    NOT NULL DEFAULT 'bangalore',
  threshold  TEXT    NOT NULL,
  created_at TEXT    NOT NULL
);`

// SQLiteStore keeps subscriptions and alerts in a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path and migrates it.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("storage.sqlite_path is required")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// PutSubscription inserts or replaces the chat's subscription.
func (s *SQLiteStore) PutSubscription(ctx context.Context, sub Subscription) error {
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO subscriptions (chat_id, city, metal, created_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(chat_id) DO UPDATE SET city=excluded.city,
                                   metal=excluded.metal,
                                   created_at=excluded.created_at`,
		sub.ChatID, sub.City, sub.Metal, sub.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("upsert subscription: %w", err)
	}
	return nil
}

// GetSubscription loads one subscription.
func (s *SQLiteStore) GetSubscription(ctx context.Context, chatID int64) (Subscription, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT chat_id, city, metal, created_at FROM subscriptions WHERE chat_id = ?`, chatID)
	sub, err := scanSQLiteSubscription(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Subscription{}, false, nil
	}
	if err != nil {
		return Subscription{}, false, fmt.Errorf("get subscription: %w", err)
	}
	return sub, true, nil
}

// DeleteSubscription removes the chat's subscription and reports whether one existed.
func (s *SQLiteStore) DeleteSubscription(ctx context.Context, chatID int64) (bool, error) {
	return s.deleteByChat(ctx, `DELETE FROM subscriptions WHERE chat_id = ?`, chatID)
}

// ListSubscriptions returns every subscription ordered by chat id.
func (s *SQLiteStore) ListSubscriptions(ctx context.Context) ([]Subscription, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT chat_id, city, metal, created_at FROM subscriptions ORDER BY chat_id`)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	subs := make([]Subscription, 0)
	for rows.Next() {
		sub, err := scanSQLiteSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// PutAlert inserts or replaces the chat's alert.
func (s *SQLiteStore) PutAlert(ctx context.Context, alert Alert) error {
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO alerts (chat_id, metal, city, threshold, created_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(chat_id) DO UPDATE SET metal=excluded.metal,
                                   city=excluded.city,
                                   threshold=excluded.threshold,
                                   created_at=excluded.created_at`,
		alert.ChatID, alert.Metal, alert.City, alert.Threshold.String(), alert.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("upsert alert: %w", err)
	}
	return nil
}

// GetAlert loads one alert.
func (s *SQLiteStore) GetAlert(ctx context.Context, chatID int64) (Alert, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT chat_id, metal, city, threshold, created_at FROM alerts WHERE chat_id = ?`, chatID)
	alert, err := scanSQLiteAlert(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Alert{}, false, nil
	}
	if err != nil {
		return Alert{}, false, fmt.Errorf("get alert: %w", err)
	}
	return alert, true, nil
}

// DeleteAlert removes the chat's alert and reports whether one existed.
func (s *SQLiteStore) DeleteAlert(ctx context.Context, chatID int64) (bool, error) {
	return s.deleteByChat(ctx, `DELETE FROM alerts WHERE chat_id = ?`, chatID)
}

// ListAlerts returns every alert ordered by chat id.
func (s *SQLiteStore) ListAlerts(ctx context.Context) ([]Alert, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT chat_id, metal, city, threshold, created_at FROM alerts ORDER BY chat_id`)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	alerts := make([]Alert, 0)
	for rows.Next() {
		alert, err := scanSQLiteAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, alert)
	}
	return alerts, rows.Err()
}

func (s *SQLiteStore) deleteByChat(ctx context.Context, query string, chatID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, query, chatID)
	if err != nil {
		return false, fmt.Errorf("delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteSubscription(row rowScanner) (Subscription, error) {
	var (
		sub     Subscription
		created string
	)
	if err := row.Scan(&sub.ChatID, &sub.City, &sub.Metal, &created); err != nil {
		return Subscription{}, err
	}
	sub.CreatedAt = parseStoredTime(created)
	return sub, nil
}

func scanSQLiteAlert(row rowScanner) (Alert, error) {
	var (
		alert     Alert
		threshold string
		created   string
	)
	if err := row.Scan(&alert.ChatID, &alert.Metal, &alert.City, &threshold, &created); err != nil {
		return Alert{}, err
	}
	value, err := decimal.NewFromString(threshold)
	if err != nil {
		return Alert{}, fmt.Errorf("parse threshold: %w", err)
	}
	alert.Threshold = value
	alert.CreatedAt = parseStoredTime(created)
	return alert, nil
}

// parseStoredTime accepts RFC3339 and the naive ISO format older rows were written with.
func parseStoredTime(v string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

var _ Store = (*SQLiteStore)(nil)
