package broadcast

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"verification-system/internal/connections/rabbitmq"
	"verification-system/internal/domain"
)

// Broadcaster delivers events to the observer fanout. Implementations must
// accept any JSON-serializable event payload.
type Broadcaster interface {
	Publish(ctx context.Context, ev domain.Event) error
}

// AMQPBroadcaster publishes events to the events fanout exchange with
// publisher confirms.
type AMQPBroadcaster struct {
	client *rabbitmq.Client
	source string
}

func NewAMQP(client *rabbitmq.Client, source string) *AMQPBroadcaster {
	return &AMQPBroadcaster{client: client, source: source}
}

func (b *AMQPBroadcaster) Publish(ctx context.Context, ev domain.Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", ev.Type, err)
	}
	headers := amqp.Table{"x-source": b.source, "x-event-type": ev.Type}
	return b.client.Publish(ctx, rabbitmq.EventsExchange, "", body, headers, ev.EventID, "")
}

// Nop discards every event. Used when no broker is configured and in tests.
type Nop struct{}

func (Nop) Publish(context.Context, domain.Event) error { return nil }
