package bot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"metalbot/internal/alerting"
	"metalbot/internal/catalog"
	"metalbot/internal/pricecache"
	"metalbot/internal/service"
	"metalbot/internal/storage"
)

type sentMessage struct {
	chatID int64
	id     int64
	text   string
	edited bool
}

type fakeClient struct {
	mu       sync.Mutex
	nextID   int64
	messages []sentMessage
	updates  [][]alerting.Update
	polls    int
}

func (c *fakeClient) SendMessage(_ context.Context, chatID int64, text string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	c.messages = append(c.messages, sentMessage{chatID: chatID, id: c.nextID, text: text})
	return c.nextID, nil
}

func (c *fakeClient) EditMessageText(_ context.Context, chatID, messageID int64, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.messages {
		if c.messages[i].id == messageID && c.messages[i].chatID == chatID {
			c.messages[i].text = text
			c.messages[i].edited = true
			return nil
		}
	}
	return errors.New("message not found")
}

func (c *fakeClient) GetUpdates(ctx context.Context, _ int64, _ time.Duration) ([]alerting.Update, error) {
	c.mu.Lock()
	if c.polls < len(c.updates) {
		batch := c.updates[c.polls]
		c.polls++
		c.mu.Unlock()
		return batch, nil
	}
	c.mu.Unlock()
	<-ctx.Done()
	return nil, ctx.Err()
}

func (c *fakeClient) last() sentMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.messages[len(c.messages)-1]
}

type fakePrices struct {
	mu    sync.Mutex
	calls []string
}

func (p *fakePrices) GetPrices(_ context.Context, metal, city string, force bool) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, _, err := catalog.Resolve(metal, city); err != nil {
		return "", err
	}
	call := metal + "/" + city
	if force {
		call += "!"
	}
	p.calls = append(p.calls, call)
	return "prices for " + call, nil
}

func newTestBot() (*Bot, *fakeClient, *fakePrices, *storage.MemoryStore) {
	client := &fakeClient{}
	prices := &fakePrices{}
	store := storage.NewMemoryStore()
	status := service.NewStatusReporter(time.Now().Add(-90*time.Minute), pricecache.New(time.Minute), store)
	b := New(client, prices, store, status, Options{DefaultMetal: "gold", DefaultCity: "bangalore"}, zerolog.Nop())
	return b, client, prices, store
}

func handle(b *Bot, chatID int64, text string) {
	b.Handle(context.Background(), alerting.Message{Chat: alerting.Chat{ID: chatID}, Text: text})
}

func TestParseCommand(t *testing.T) {
	name, args, ok := parseCommand("/Gold@MetalBot mumbai refresh")
	if !ok || name != "gold" || len(args) != 2 || args[0] != "mumbai" {
		t.Fatalf("unexpected parse %q %v %v", name, args, ok)
	}
	if _, _, ok := parseCommand("hello"); ok {
		t.Fatal("plain text is not a command")
	}
	if _, _, ok := parseCommand("/"); ok {
		t.Fatal("bare slash is not a command")
	}
}

func TestPriceArgs(t *testing.T) {
	cases := []struct {
		args  []string
		city  string
		force bool
	}{
		{nil, "bangalore", false},
		{[]string{"Mumbai"}, "mumbai", false},
		{[]string{"refresh"}, "bangalore", true},
		{[]string{"delhi", "refresh"}, "delhi", true},
	}
	for _, tc := range cases {
		city, force := priceArgs(tc.args, "bangalore")
		if city != tc.city || force != tc.force {
			t.Errorf("priceArgs(%v) = %s %v", tc.args, city, force)
		}
	}
}

func TestSubscribeArgs(t *testing.T) {
	cases := []struct {
		args  []string
		metal string
		city  string
	}{
		{nil, "gold", "bangalore"},
		{[]string{"silver"}, "silver", "bangalore"},
		{[]string{"silver", "Pune"}, "silver", "pune"},
		{[]string{"mumbai"}, "gold", "mumbai"},
		{[]string{"copper", "surat"}, "gold", "surat"},
		{[]string{"silver", "paris"}, "silver", "bangalore"},
	}
	for _, tc := range cases {
		m, c := subscribeArgs(tc.args, "gold", "bangalore")
		if m.Slug != tc.metal || c.Slug != tc.city {
			t.Errorf("subscribeArgs(%v) = %s/%s, want %s/%s", tc.args, m.Slug, c.Slug, tc.metal, tc.city)
		}
	}
}

func TestParseThreshold(t *testing.T) {
	if v, ok := parseThreshold("6,500.50"); !ok || !v.Equal(decimal.RequireFromString("6500.5")) {
		t.Fatalf("commas should be accepted: %s %v", v, ok)
	}
	for _, bad := range []string{"0", "-5", "abc", ""} {
		if _, ok := parseThreshold(bad); ok {
			t.Errorf("%q should be rejected", bad)
		}
	}
}

func TestPriceCommandEditsPlaceholder(t *testing.T) {
	b, client, prices, _ := newTestBot()
	handle(b, 5, "/silver chennai refresh")

	if len(prices.calls) != 1 || prices.calls[0] != "silver/chennai!" {
		t.Fatalf("unexpected price calls %v", prices.calls)
	}
	msg := client.last()
	if !msg.edited || msg.text != "prices for silver/chennai!" {
		t.Fatalf("placeholder should be edited with prices: %+v", msg)
	}
}

func TestPriceCommandValidationError(t *testing.T) {
	b, client, _, _ := newTestBot()
	handle(b, 5, "/gold <paris>")

	msg := client.last()
	if !strings.HasPrefix(msg.text, "❌ Unsupported city '&lt;paris&gt;'") {
		t.Fatalf("validation error should be escaped and prefixed: %q", msg.text)
	}
}

func TestSubscribeAndUnsubscribe(t *testing.T) {
	b, client, _, store := newTestBot()
	ctx := context.Background()

	handle(b, 9, "/subscribe silver kolkata")
	sub, ok, _ := store.GetSubscription(ctx, 9)
	if !ok || sub.Metal != "silver" || sub.City != "kolkata" {
		t.Fatalf("subscription not stored: %+v", sub)
	}
	if !strings.Contains(client.last().text, "<b>Silver</b> prices for <b>Kolkata</b>") {
		t.Fatalf("unexpected confirmation %q", client.last().text)
	}

	handle(b, 9, "/unsubscribe")
	if !strings.HasPrefix(client.last().text, "✅ You've been unsubscribed") {
		t.Fatalf("unexpected reply %q", client.last().text)
	}
	handle(b, 9, "/unsubscribe")
	if !strings.HasPrefix(client.last().text, "ℹ️ You don't have an active subscription.") {
		t.Fatalf("unexpected reply %q", client.last().text)
	}
}

func TestAlertLifecycle(t *testing.T) {
	b, client, _, store := newTestBot()
	ctx := context.Background()

	handle(b, 3, "/alert")
	if !strings.HasPrefix(client.last().text, "❌ Usage:") {
		t.Fatalf("missing usage reply: %q", client.last().text)
	}
	handle(b, 3, "/alert -1")
	if !strings.HasPrefix(client.last().text, "❌ Invalid price.") {
		t.Fatalf("missing invalid price reply: %q", client.last().text)
	}

	handle(b, 3, "/alert 6,500 jaipur silver")
	alert, ok, _ := store.GetAlert(ctx, 3)
	if !ok || alert.Metal != "silver" || alert.City != "jaipur" || !alert.Threshold.Equal(decimal.NewFromInt(6500)) {
		t.Fatalf("alert not stored: %+v", alert)
	}
	if !strings.Contains(client.last().text, "drops below <b>₹6,500.00</b>") {
		t.Fatalf("unexpected confirmation %q", client.last().text)
	}

	handle(b, 3, "/myalert")
	if !strings.Contains(client.last().text, "Threshold: <b>₹6,500.00</b>") || !strings.Contains(client.last().text, "City:  <b>Jaipur</b>") {
		t.Fatalf("unexpected myalert %q", client.last().text)
	}

	handle(b, 3, "/cancelalert")
	if client.last().text != "✅ Your price alert has been removed." {
		t.Fatalf("unexpected cancel reply %q", client.last().text)
	}
	handle(b, 3, "/myalert")
	if !strings.HasPrefix(client.last().text, "ℹ️ You have no active alert.") {
		t.Fatalf("unexpected myalert reply %q", client.last().text)
	}
}

func TestStatusAndCities(t *testing.T) {
	b, client, _, store := newTestBot()
	_ = store.PutSubscription(context.Background(), storage.Subscription{ChatID: 1, Metal: "gold", City: "delhi"})

	handle(b, 1, "/status")
	text := client.last().text
	if !strings.Contains(text, "⏱ Uptime: 1h 30m") || !strings.Contains(text, "📦 Cache: empty") || !strings.Contains(text, "👥 Subscriptions: 1") {
		t.Fatalf("unexpected status %q", text)
	}

	handle(b, 1, "/cities")
	if !strings.Contains(client.last().text, "• surat  →  Surat") {
		t.Fatalf("unexpected cities %q", client.last().text)
	}
}

func TestUnknownCommandIgnored(t *testing.T) {
	b, client, _, _ := newTestBot()
	handle(b, 1, "/weather")
	handle(b, 1, "good morning")
	if len(client.messages) != 0 {
		t.Fatalf("no reply expected, got %+v", client.messages)
	}
}

func TestRunDispatchesUpdates(t *testing.T) {
	b, client, _, _ := newTestBot()
	client.updates = [][]alerting.Update{{
		{UpdateID: 1, Message: &alerting.Message{Chat: alerting.Chat{ID: 7}, Text: "/start"}},
		{UpdateID: 2},
	}}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		client.mu.Lock()
		n := len(client.messages)
		client.mu.Unlock()
		if n > 0 || time.Now().After(deadline) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Run should stop with context.Canceled, got %v", err)
	}
	if len(client.messages) != 1 || !strings.HasPrefix(client.messages[0].text, "👋 <b>Welcome") {
		t.Fatalf("unexpected messages %+v", client.messages)
	}
}
