// Package notify delivers short plain-text reports to chat and webhook
// endpoints.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Channel identifies a notification transport.
type Channel string

const (
	ChannelTelegram Channel = "telegram"
	ChannelWebhook  Channel = "webhook"
)

// Message is a notification payload.
type Message struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Notifier sends a message over one channel.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
	Channel() Channel
}

// Config enables channels; a channel with empty settings stays disabled.
type Config struct {
	Webhook  WebhookConfig  `yaml:"webhook"`
	Telegram TelegramConfig `yaml:"telegram"`
}

// Dispatcher fans a message out to every registered notifier.
type Dispatcher struct {
	notifiers []Notifier
	logger    *slog.Logger
}

// NewDispatcher creates a dispatcher with the channels enabled in cfg.
func NewDispatcher(cfg Config) *Dispatcher {
	d := &Dispatcher{logger: slog.Default()}
	if cfg.Webhook.URL != "" {
		d.Register(NewWebhookNotifier(cfg.Webhook))
	}
	if cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != "" {
		d.Register(NewTelegramNotifier(cfg.Telegram))
	}
	return d
}

// Register adds a notifier.
func (d *Dispatcher) Register(n Notifier) {
	d.notifiers = append(d.notifiers, n)
}

// Enabled reports whether any channel is registered.
func (d *Dispatcher) Enabled() bool {
	return len(d.notifiers) > 0
}

// Send delivers msg on every channel. A failing channel does not stop the
// others; all failures are returned joined.
func (d *Dispatcher) Send(ctx context.Context, msg Message) error {
	var errs []error
	for _, n := range d.notifiers {
		if err := n.Send(ctx, msg); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", n.Channel(), err))
			continue
		}
		d.logger.Info("notification sent", "channel", n.Channel(), "title", msg.Title)
	}
	return errors.Join(errs...)
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}
