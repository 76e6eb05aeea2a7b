package alerting

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"
)

// Notifier 定义消息投递接口。
type Notifier interface {
	Send(ctx context.Context, chatID int64, text string) error
}

// LogNotifier writes messages to a writer instead of delivering them (dry runs).
type LogNotifier struct {
	mu     sync.Mutex
	out    io.Writer
	logger zerolog.Logger
}

// NewLogNotifier constructs a dry-run notifier.
func NewLogNotifier(out io.Writer, logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{
		out:    out,
		logger: logger.With().Str("component", "dry_run_notifier").Logger(),
	}
}

// Send prints the message framed with its destination chat.
func (n *LogNotifier) Send(_ context.Context, chatID int64, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, err := fmt.Fprintf(n.out, "--- chat %d ---\n%s\n\n", chatID, text); err != nil {
		return fmt.Errorf("write dry-run message: %w", err)
	}
	n.logger.Info().Int64("chat_id", chatID).Msg("dry-run message printed")
	return nil
}

var _ Notifier = (*LogNotifier)(nil)
