package queue

import (
	"fmt"

	"go.uber.org/zap"
)

// MessageQueue carries lifecycle events to other services. Publishing is
// fire-and-forget: callers log failures and move on.
type MessageQueue interface {
	Publish(subject string, data []byte) error
	Subscribe(subject string, handler func(data []byte) error) error
	Close() error
}

// Checker is implemented by queues that can report broker connectivity.
type Checker interface {
	Ready() error
}

type Config struct {
	Driver      string // nats, rabbitmq or none
	NATSURL     string
	RabbitMQURL string
	Exchange    string
}

// New connects to the broker selected by cfg.Driver.
func New(cfg Config, log *zap.Logger) (MessageQueue, error) {
	switch cfg.Driver {
	case "nats":
		return NewNATSQueue(cfg.NATSURL, log)
	case "rabbitmq":
		return NewRabbitMQQueue(cfg.RabbitMQURL, cfg.Exchange, log)
	case "", "none":
		log.Info("Event publishing disabled")
		return NoopQueue{}, nil
	default:
		return nil, fmt.Errorf("unsupported queue driver %q", cfg.Driver)
	}
}

// NoopQueue drops every message.
type NoopQueue struct{}

func (NoopQueue) Publish(string, []byte) error { return nil }
func (NoopQueue) Subscribe(string, func(data []byte) error) error { return nil }
func (NoopQueue) Close() error { return nil }
func (NoopQueue) Ready() error { return nil }
