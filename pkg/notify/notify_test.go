package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewDispatcher_EnablesConfiguredChannels(t *testing.T) {
	if NewDispatcher(Config{}).Enabled() {
		t.Fatal("expected no channels for empty config")
	}
	d := NewDispatcher(Config{Telegram: TelegramConfig{BotToken: "tok"}})
	if d.Enabled() {
		t.Fatal("expected telegram without chat id to stay disabled")
	}
	d = NewDispatcher(Config{Webhook: WebhookConfig{URL: "http://example.invalid"}})
	if !d.Enabled() {
		t.Fatal("expected webhook channel")
	}
}

func TestWebhookNotifier_Send(t *testing.T) {
	var got Message
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(WebhookConfig{URL: srv.URL, Headers: map[string]string{"Authorization": "Bearer x"}})
	if err := n.Send(context.Background(), Message{Title: "Run finished", Body: "12 labelled"}); err != nil {
		t.Fatal(err)
	}
	if got.Title != "Run finished" || got.Body != "12 labelled" {
		t.Fatalf("unexpected payload %+v", got)
	}
	if auth != "Bearer x" {
		t.Fatalf("expected custom header, got %q", auth)
	}
}

func TestWebhookNotifier_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	if err := NewWebhookNotifier(WebhookConfig{URL: srv.URL}).Send(context.Background(), Message{}); err == nil {
		t.Fatal("expected error for 502")
	}
}

func TestTelegramNotifier_Send(t *testing.T) {
	var path string
	var payload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		json.NewDecoder(r.Body).Decode(&payload)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n := NewTelegramNotifier(TelegramConfig{BotToken: "123:abc", ChatID: "42", BaseURL: srv.URL})
	if err := n.Send(context.Background(), Message{Title: "Done", Body: "mean 0.5"}); err != nil {
		t.Fatal(err)
	}
	if path != "/bot123:abc/sendMessage" {
		t.Fatalf("unexpected path %q", path)
	}
	if payload["chat_id"] != "42" {
		t.Fatalf("unexpected chat id %v", payload["chat_id"])
	}
	if text, _ := payload["text"].(string); text != "*Done*\n\nmean 0\\.5" {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestDispatcher_ContinuesAfterFailure(t *testing.T) {
	var delivered int
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		delivered++
	}))
	defer ok.Close()
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()

	d := NewDispatcher(Config{})
	d.Register(NewWebhookNotifier(WebhookConfig{URL: bad.URL}))
	d.Register(NewWebhookNotifier(WebhookConfig{URL: ok.URL}))

	err := d.Send(context.Background(), Message{Title: "t"})
	if err == nil || !strings.Contains(err.Error(), "webhook") {
		t.Fatalf("expected joined webhook error, got %v", err)
	}
	if delivered != 1 {
		t.Fatalf("expected the healthy channel to receive the message, got %d", delivered)
	}
}

func TestEscapeMarkdown(t *testing.T) {
	if got := escapeMarkdown("a_b (c) 1.5!"); got != `a\_b \(c\) 1\.5\!` {
		t.Fatalf("unexpected escape %q", got)
	}
}
