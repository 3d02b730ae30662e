package notify

import (
	"context"
	"log/slog"
	"sync"
)

// Message is a plain-text notification for a single subscriber.
type Message struct {
	// To is the subscriber's user id.
	To      string
	Subject string
	Body    string
}

// Notifier delivers messages to subscribers.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// LogNotifier writes every message to the default logger, it is used when no
// delivery channel is configured.
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, msg Message) error {
	slog.InfoContext(
		ctx, "notification",
		"to", msg.To,
		"subject", msg.Subject,
		"body", msg.Body,
	)
	return nil
}

// MemoryNotifier keeps every message it receives.
type MemoryNotifier struct {
	mutex    sync.Mutex
	messages []Message
	err      error
}

func (n *MemoryNotifier) Notify(ctx context.Context, msg Message) error {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	if n.err != nil {
		return n.err
	}
	n.messages = append(n.messages, msg)
	return nil
}

// SetErr makes every following call to Notify fail with err, nil resets it.
func (n *MemoryNotifier) SetErr(err error) {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	n.err = err
}

// Messages returns a copy of the messages received so far.
func (n *MemoryNotifier) Messages() []Message {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	out := make([]Message, len(n.messages))
	copy(out, n.messages)
	return out
}
