package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"verification-system/internal/common/logger"
	"verification-system/internal/config"
	"verification-system/internal/connections/rabbitmq"
	"verification-system/internal/domain"
)

// Run consumes the events fanout and logs every broadcast event. It stands
// in for the command-center observers.
func Run(ctx context.Context, cfg *config.Config) error {
	lg := logger.New("notification-subscriber")

	rmq, err := rabbitmq.Dial(cfg.RabbitMQ)
	if err != nil {
		return fmt.Errorf("rabbitmq connect: %w", err)
	}
	defer rmq.Close()
	if err := rmq.DeclareTopology(); err != nil {
		return fmt.Errorf("rabbitmq topology: %w", err)
	}

	msgs, err := rmq.Consume(rabbitmq.EventsQueue, "notification-subscriber", 10)
	if err != nil {
		return err
	}
	lg.Info("subscribed", map[string]any{"queue": rabbitmq.EventsQueue})

	for {
		select {
		case <-ctx.Done():
			lg.Info("graceful_shutdown", nil)
			return nil
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("events queue channel closed")
			}
			var ev domain.Event
			if err := json.Unmarshal(d.Body, &ev); err != nil {
				lg.Error("event_decode_failed", err, nil)
				_ = d.Nack(false, false)
				continue
			}
			lg.Info("event_received", map[string]any{
				"event_type": ev.Type,
				"event_id":   ev.EventID,
				"data":       ev.Payload,
			})
			_ = d.Ack(false)
		}
	}
}
