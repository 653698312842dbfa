package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"os/exec"
	"time"

	"github.com/pkg/errors"
)

// Notifier delivers a desktop-style notification. Dispatch failures are the
// caller's to log; they are never surfaced further.
type Notifier interface {
	Notify(ctx context.Context, title, body string) error
}

const appName = "Parcel Buddy"

// DesktopNotifier shells out to notify-send, the same way the desktop app did.
type DesktopNotifier struct{}

func NewDesktop() *DesktopNotifier { return &DesktopNotifier{} }

func (n *DesktopNotifier) Notify(ctx context.Context, title, body string) error {
	cmd := exec.CommandContext(ctx, "notify-send", "--app-name="+appName, title, body)
	if err := cmd.Run(); err != nil {
		return errors.Wrap(err, "notify-send")
	}
	return nil
}

// LogNotifier is the headless fallback: notifications only hit the log.
type LogNotifier struct{}

func NewLog() *LogNotifier { return &LogNotifier{} }

func (n *LogNotifier) Notify(ctx context.Context, title, body string) error {
	slog.Info("notification", "title", title, "body", body)
	return nil
}

type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// KafkaNotifier publishes notifications to a topic instead of the desktop,
// for headless deployments where another service owns delivery.
type KafkaNotifier struct {
	producer Publisher
	topic    string
}

func NewKafka(producer Publisher, topic string) *KafkaNotifier {
	return &KafkaNotifier{producer: producer, topic: topic}
}

type kafkaNotification struct {
	Title  string    `json:"title"`
	Body   string    `json:"body"`
	App    string    `json:"app"`
	SentAt time.Time `json:"sentAt"`
}

func (n *KafkaNotifier) Notify(ctx context.Context, title, body string) error {
	b, err := json.Marshal(kafkaNotification{
		Title:  title,
		Body:   body,
		App:    appName,
		SentAt: time.Now().UTC(),
	})
	if err != nil {
		return errors.Wrap(err, "marshal notification")
	}
	if err := n.producer.Publish(ctx, n.topic, []byte(title), b); err != nil {
		return errors.Wrap(err, "publish notification")
	}
	return nil
}
