// Package notify provides a unified notification dispatch system
// supporting Telegram and Email channels.
package notify

import (
	"context"
	"fmt"
	"log/slog"
)

// Channel represents a notification channel type.
type Channel string

const (
	ChannelTelegram Channel = "telegram"
	ChannelEmail    Channel = "email"
)

// Message represents a notification message.
type Message struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url,omitempty"`
}

// Notifier defines the interface for sending notifications.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
	Channel() Channel
}

// Dispatcher routes messages to the registered notification channels.
type Dispatcher struct {
	notifiers map[Channel]Notifier
	logger    *slog.Logger
}

// NewDispatcher creates a new notification dispatcher.
func NewDispatcher(logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		notifiers: make(map[Channel]Notifier),
		logger:    logger,
	}
}

// Register adds a notifier to the dispatcher.
func (d *Dispatcher) Register(n Notifier) {
	d.notifiers[n.Channel()] = n
}

// Registered reports how many channels are configured.
func (d *Dispatcher) Registered() int { return len(d.notifiers) }

// SendAll sends a message to every registered channel. One channel failing
// does not stop the others.
func (d *Dispatcher) SendAll(ctx context.Context, msg Message) error {
	var failed int
	for ch, notifier := range d.notifiers {
		if err := notifier.Send(ctx, msg); err != nil {
			d.logger.Error("notification failed", "channel", ch, "error", err)
			failed++
			continue
		}
		d.logger.Info("notification sent", "channel", ch, "title", msg.Title)
	}
	if failed > 0 {
		return fmt.Errorf("failed to send %d/%d notifications", failed, len(d.notifiers))
	}
	return nil
}
