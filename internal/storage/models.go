package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// Subscription is a daily price push registration, one per chat.
type Subscription struct {
	ChatID    int64     `json:"chat_id"`
	Metal     string    `json:"metal"`
	City      string    `json:"city"`
	CreatedAt time.Time `json:"created_at"`
}

// Alert fires when the current price drops below Threshold. One per chat.
type Alert struct {
	ChatID    int64           `json:"chat_id"`
	Metal     string          `json:"metal"`
	City      string          `json:"city"`
	Threshold decimal.Decimal `json:"threshold"`
	CreatedAt time.Time       `json:"created_at"`
}
