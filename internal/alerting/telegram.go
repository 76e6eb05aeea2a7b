package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Chat identifies the conversation a message belongs to.
type Chat struct {
	ID int64 `json:"id"`
}

// User is the sender of a message.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// Message is the subset of the Bot API message object the bot reads.
type Message struct {
	MessageID int64  `json:"message_id"`
	Chat      Chat   `json:"chat"`
	From      *User  `json:"from,omitempty"`
	Text      string `json:"text"`
}

// Update is one getUpdates item.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message,omitempty"`
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

// TelegramOptions configure the Bot API client.
type TelegramOptions struct {
	BotToken       string
	BaseURL        string
	RequestTimeout time.Duration
}

// TelegramClient 通过 Telegram Bot API 收发消息。
type TelegramClient struct {
	botToken string
	baseURL  string
	timeout  time.Duration
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramClient 构造 Telegram 客户端。
func NewTelegramClient(opts TelegramOptions, logger zerolog.Logger) *TelegramClient {
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramClient{
		botToken: opts.BotToken,
		baseURL:  strings.TrimRight(baseURL, "/"),
		timeout:  timeout,
		// per-call deadlines come from the context; long polls outlive the request timeout
		client: &http.Client{},
		logger: logger.With().Str("component", "telegram").Logger(),
	}
}

// SendMessage posts an HTML message with link previews disabled and returns its id.
func (c *TelegramClient) SendMessage(ctx context.Context, chatID int64, text string) (int64, error) {
	payload := map[string]any{
		"chat_id":                  chatID,
		"text":                     text,
		"parse_mode":               "HTML",
		"disable_web_page_preview": true,
	}
	var msg Message
	if err := c.call(ctx, "sendMessage", payload, c.timeout, &msg); err != nil {
		return 0, err
	}
	c.logger.Debug().Int64("chat_id", chatID).Int64("message_id", msg.MessageID).Msg("消息已发送")
	return msg.MessageID, nil
}

// EditMessageText replaces the text of a message sent earlier.
func (c *TelegramClient) EditMessageText(ctx context.Context, chatID, messageID int64, text string) error {
	payload := map[string]any{
		"chat_id":                  chatID,
		"message_id":               messageID,
		"text":                     text,
		"parse_mode":               "HTML",
		"disable_web_page_preview": true,
	}
	return c.call(ctx, "editMessageText", payload, c.timeout, nil)
}

// GetUpdates long-polls for updates after offset.
func (c *TelegramClient) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error) {
	payload := map[string]any{
		"offset":          offset,
		"timeout":         int(timeout / time.Second),
		"allowed_updates": []string{"message"},
	}
	var updates []Update
	if err := c.call(ctx, "getUpdates", payload, timeout+c.timeout, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

// Send implements Notifier.
func (c *TelegramClient) Send(ctx context.Context, chatID int64, text string) error {
	_, err := c.SendMessage(ctx, chatID, text)
	return err
}

func (c *TelegramClient) call(ctx context.Context, method string, payload any, timeout time.Duration, result any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.botToken, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram %s: %w", method, err)
	}
	defer resp.Body.Close()

	var decoded apiResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&decoded)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if decodeErr == nil && decoded.Description != "" {
			return fmt.Errorf("telegram %s 响应码异常: %d (%s)", method, resp.StatusCode, decoded.Description)
		}
		return fmt.Errorf("telegram %s 响应码异常: %d", method, resp.StatusCode)
	}
	if decodeErr != nil {
		return fmt.Errorf("decode telegram %s response: %w", method, decodeErr)
	}
	if !decoded.OK {
		return fmt.Errorf("telegram %s 返回 ok=false: %s", method, decoded.Description)
	}
	if result != nil && len(decoded.Result) > 0 {
		if err := json.Unmarshal(decoded.Result, result); err != nil {
			return fmt.Errorf("decode telegram %s result: %w", method, err)
		}
	}
	return nil
}

var _ Notifier = (*TelegramClient)(nil)
