package domain

import (
	"errors"
	"fmt"
	"time"
)

// Order types accepted from the phone agents.
const (
	OrderTypeDelivery = "delivery"
	OrderTypePickup   = "pickup"
	OrderTypeDineIn   = "dine_in"
)

var (
	ErrMalformedOrder = errors.New("malformed order")
	ErrUnknownAgent   = errors.New("unknown agent")
)

// OrderLineItem is a single line of a customer order. SpecialInstructions
// is informational only and never participates in equality.
type OrderLineItem struct {
	Name                string   `json:"name"`
	Quantity            int      `json:"quantity"`
	Modifiers           []string `json:"modifiers"`
	SpecialInstructions string   `json:"special_instructions,omitempty"`
}

// Order is one agent's account of what the customer asked for on a call.
type Order struct {
	CallID              string          `json:"call_id"`
	CustomerPhone       string          `json:"customer_phone"`
	CustomerName        string          `json:"customer_name"`
	Items               []OrderLineItem `json:"items"`
	DeliveryAddress     string          `json:"delivery_address,omitempty"`
	SpecialInstructions string          `json:"special_instructions,omitempty"`
	OrderType           string          `json:"order_type"`
	Timestamp           time.Time       `json:"timestamp"`
}

// Validate rejects orders that cannot be verified or dispatched: no items,
// or a line item with a non-positive quantity or an empty name.
func (o Order) Validate() error {
	if len(o.Items) == 0 {
		return fmt.Errorf("%w: order has no items", ErrMalformedOrder)
	}
	for _, it := range o.Items {
		if it.Name == "" {
			return fmt.Errorf("%w: item name is empty", ErrMalformedOrder)
		}
		if it.Quantity <= 0 {
			return fmt.Errorf("%w: item %q quantity must be positive", ErrMalformedOrder, it.Name)
		}
	}
	switch o.OrderType {
	case OrderTypeDelivery, OrderTypePickup, OrderTypeDineIn, "":
	default:
		return fmt.Errorf("%w: unknown order type %q", ErrMalformedOrder, o.OrderType)
	}
	return nil
}
