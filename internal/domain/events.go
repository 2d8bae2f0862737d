package domain

import (
	"time"

	"github.com/google/uuid"
)

// Event types published to the broadcast fanout. The payloads mirror what
// the command-center observers consume.
const (
	EventAgentReport        = "agent_report"
	EventVerificationResult = "verification_result"
	EventKitchenOrder       = "kitchen_order"
	EventOrderStatus        = "order_status"
	EventTimerUpdate        = "timer_update"
)

// Event is the envelope for every broadcast message. Payload must be
// JSON-serializable.
type Event struct {
	Type      string    `json:"type"`
	EventID   string    `json:"event_id"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"data"`
}

// NewEvent wraps a payload in a broadcast envelope with a fresh event id.
func NewEvent(eventType string, payload any) Event {
	return Event{
		Type:      eventType,
		EventID:   uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

type AgentReportEvent struct {
	CallID    string `json:"call_id"`
	AgentName string `json:"agent_name"`
	Order     Order  `json:"order"`
}

type KitchenOrderEvent struct {
	CallID       string    `json:"call_id"`
	OrderNumber  int64     `json:"order_number"`
	Order        Order     `json:"order"`
	DispatchedAt time.Time `json:"dispatched_at"`
}

type OrderStatusEvent struct {
	OrderNumber         int64     `json:"order_number"`
	OldStatus           string    `json:"old_status"`
	NewStatus           string    `json:"new_status"`
	ChangedBy           string    `json:"changed_by"`
	Timestamp           time.Time `json:"timestamp"`
	EstimatedCompletion time.Time `json:"estimated_completion"`
}

type TimerUpdateEvent struct {
	OrderNumber int64  `json:"order_number"`
	CallID      string `json:"call_id"`
	ElapsedSec  int    `json:"elapsed_time"`
	Status      string `json:"status"`
}

// KitchenOrderMessage is the work item placed on the kitchen queue for an
// approved order. Separate from KitchenOrderEvent so the queue contract can
// evolve without touching observers.
type KitchenOrderMessage struct {
	CallID              string          `json:"call_id"`
	OrderNumber         int64           `json:"order_number"`
	CustomerName        string          `json:"customer_name"`
	CustomerPhone       string          `json:"customer_phone"`
	OrderType           string          `json:"order_type"`
	DeliveryAddress     string          `json:"delivery_address,omitempty"`
	Items               []OrderLineItem `json:"items"`
	SpecialInstructions string          `json:"special_instructions,omitempty"`
	DispatchedAt        time.Time       `json:"dispatched_at"`
}
