package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"metalbot/internal/pricecache"
	"metalbot/internal/service"
	"metalbot/internal/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestHome(t *testing.T) {
	srv := New(":0", nil, zerolog.Nop())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "ok" || body["message"] != "Bot server is running" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestStatus(t *testing.T) {
	cache := pricecache.New(time.Hour)
	cache.Set("gold", "mumbai", "msg", decimal.NewFromInt(6123))
	store := storage.NewMemoryStore()
	_ = store.PutAlert(context.Background(), storage.Alert{ChatID: 1, Metal: "gold", City: "mumbai", Threshold: decimal.NewFromInt(1)})

	reporter := service.NewStatusReporter(time.Now().Add(-time.Minute), cache, store)
	srv := New(":0", reporter, zerolog.Nop())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Status        string       `json:"status"`
		UptimeSeconds int64        `json:"uptime_seconds"`
		Cache         []cacheEntry `json:"cache"`
		Subscriptions int          `json:"subscriptions"`
		Alerts        int          `json:"alerts"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.UptimeSeconds < 60 || body.Alerts != 1 || body.Subscriptions != 0 {
		t.Fatalf("unexpected counts %+v", body)
	}
	if len(body.Cache) != 1 || body.Cache[0].City != "mumbai" || body.Cache[0].Price != "6123" || !body.Cache[0].Fresh {
		t.Fatalf("unexpected cache %+v", body.Cache)
	}
}

func TestNotFound(t *testing.T) {
	srv := New(":0", nil, zerolog.Nop())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unexpected status %d", rec.Code)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	srv := New("127.0.0.1:0", nil, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
}
