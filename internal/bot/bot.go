package bot

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"metalbot/internal/alerting"
	"metalbot/internal/service"
	"metalbot/internal/storage"
)

// Client is the Bot API surface the dispatcher uses.
type Client interface {
	SendMessage(ctx context.Context, chatID int64, text string) (int64, error)
	EditMessageText(ctx context.Context, chatID, messageID int64, text string) error
	GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]alerting.Update, error)
}

// Options configure a Bot.
type Options struct {
	DefaultMetal string
	DefaultCity  string
	PollTimeout  time.Duration
	// RetryDelay is the pause after a failed getUpdates call.
	RetryDelay time.Duration
}

// Bot long-polls for commands and answers each one in its own goroutine.
type Bot struct {
	client Client
	prices service.PriceGetter
	store  storage.Store
	status *service.StatusReporter
	opts   Options
	logger zerolog.Logger

	handlers map[string]handlerFunc
	wg       sync.WaitGroup
}

// New constructs the dispatcher.
func New(client Client, prices service.PriceGetter, store storage.Store, status *service.StatusReporter, opts Options, logger zerolog.Logger) *Bot {
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = 30 * time.Second
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 3 * time.Second
	}
	if opts.DefaultMetal == "" {
		opts.DefaultMetal = "gold"
	}
	if opts.DefaultCity == "" {
		opts.DefaultCity = "bangalore"
	}
	b := &Bot{
		client: client,
		prices: prices,
		store:  store,
		status: status,
		opts:   opts,
		logger: logger.With().Str("component", "bot").Logger(),
	}
	b.handlers = b.routes()
	return b
}

// Run polls until ctx is cancelled, then waits for in-flight handlers.
func (b *Bot) Run(ctx context.Context) error {
	defer b.wg.Wait()

	b.logger.Info().Msg("bot started, polling for updates")
	var offset int64
	for {
		updates, err := b.client.GetUpdates(ctx, offset, b.opts.PollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			b.logger.Warn().Err(err).Msg("getUpdates failed")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(b.opts.RetryDelay):
			}
			continue
		}

		for _, u := range updates {
			if u.UpdateID >= offset {
				offset = u.UpdateID + 1
			}
			if u.Message == nil {
				continue
			}
			msg := *u.Message
			b.wg.Add(1)
			go func() {
				defer b.wg.Done()
				b.Handle(ctx, msg)
			}()
		}
	}
}

// Handle dispatches one incoming message. Non-commands and unknown commands are ignored.
func (b *Bot) Handle(ctx context.Context, msg alerting.Message) {
	name, args, ok := parseCommand(msg.Text)
	if !ok {
		return
	}
	h, ok := b.handlers[name]
	if !ok {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			b.logger.Error().Interface("panic", r).Str("command", name).Int64("chat_id", msg.Chat.ID).Msg("command handler panicked")
		}
	}()

	b.logger.Debug().Str("command", name).Strs("args", args).Int64("chat_id", msg.Chat.ID).Msg("command received")
	h(ctx, msg.Chat.ID, args)
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string) {
	if _, err := b.client.SendMessage(ctx, chatID, text); err != nil {
		b.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("failed to send reply")
	}
}

// parseCommand splits "/cmd@bot a b" into ("cmd", [a b]).
func parseCommand(text string) (string, []string, bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "", nil, false
	}
	name := strings.TrimPrefix(fields[0], "/")
	if i := strings.IndexByte(name, '@'); i >= 0 {
		name = name[:i]
	}
	if name == "" {
		return "", nil, false
	}
	return strings.ToLower(name), fields[1:], true
}
