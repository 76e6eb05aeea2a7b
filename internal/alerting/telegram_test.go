package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestTelegramSendMessage(t *testing.T) {
	var received map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/bottoken/sendMessage") {
			t.Errorf("路径应包含 sendMessage, 实际 %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("解析请求体失败: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": map[string]any{"message_id": 42}})
	}))
	defer srv.Close()

	client := NewTelegramClient(TelegramOptions{BotToken: "token", BaseURL: srv.URL, RequestTimeout: time.Second}, testLogger())
	id, err := client.SendMessage(context.Background(), -100, "<b>hi</b>")
	if err != nil {
		t.Fatalf("SendMessage 应成功: %v", err)
	}
	if id != 42 {
		t.Fatalf("message id 不正确: %d", id)
	}
	if received["chat_id"].(float64) != -100 || received["parse_mode"] != "HTML" || received["disable_web_page_preview"] != true {
		t.Fatalf("payload 不正确: %#v", received)
	}
}

func TestTelegramOKFalse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "description": "chat not found"})
	}))
	defer srv.Close()

	client := NewTelegramClient(TelegramOptions{BotToken: "token", BaseURL: srv.URL}, testLogger())
	err := client.Send(context.Background(), 1, "x")
	if err == nil || !strings.Contains(err.Error(), "chat not found") {
		t.Fatalf("ok=false 应报错, got %v", err)
	}
}

func TestTelegramHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "description": "bot was blocked by the user"})
	}))
	defer srv.Close()

	client := NewTelegramClient(TelegramOptions{BotToken: "token", BaseURL: srv.URL}, testLogger())
	err := client.Send(context.Background(), 1, "x")
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("403 应报错, got %v", err)
	}
}

func TestTelegramGetUpdates(t *testing.T) {
	var received map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&received)
		_, _ = w.Write([]byte(`{"ok":true,"result":[{"update_id":7,"message":{"message_id":1,"chat":{"id":99},"text":"/gold mumbai"}}]}`))
	}))
	defer srv.Close()

	client := NewTelegramClient(TelegramOptions{BotToken: "token", BaseURL: srv.URL}, testLogger())
	updates, err := client.GetUpdates(context.Background(), 5, 2*time.Second)
	if err != nil {
		t.Fatalf("GetUpdates: %v", err)
	}
	if received["offset"].(float64) != 5 || received["timeout"].(float64) != 2 {
		t.Fatalf("payload 不正确: %#v", received)
	}
	if len(updates) != 1 || updates[0].Message == nil || updates[0].Message.Chat.ID != 99 || updates[0].Message.Text != "/gold mumbai" {
		t.Fatalf("updates 解析错误: %#v", updates)
	}
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogNotifier(&buf, testLogger())
	if err := n.Send(context.Background(), 12, "hello"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !strings.Contains(buf.String(), "chat 12") || !strings.Contains(buf.String(), "hello") {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}
