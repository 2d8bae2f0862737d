package broadcast

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"verification-system/internal/connections/rabbitmq"
	"verification-system/internal/domain"
)

// KitchenPublisher places approved orders on the kitchen work queue via the
// topic exchange, routed by order type.
type KitchenPublisher struct {
	client *rabbitmq.Client
}

func NewKitchenPublisher(client *rabbitmq.Client) *KitchenPublisher {
	return &KitchenPublisher{client: client}
}

func (p *KitchenPublisher) PublishOrder(ctx context.Context, msg domain.KitchenOrderMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal kitchen order: %w", err)
	}
	routingKey := fmt.Sprintf("kitchen.%s", msg.OrderType)
	headers := amqp.Table{"x-source": "verification-service"}
	return p.client.Publish(ctx, rabbitmq.KitchenExchange, routingKey, body, headers, uuid.NewString(), msg.CallID)
}
