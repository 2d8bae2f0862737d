package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderValidate(t *testing.T) {
	valid := Order{
		CallID:    "CALL_1",
		OrderType: OrderTypeDelivery,
		Items:     []OrderLineItem{{Name: "Burger", Quantity: 1}},
	}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Order)
	}{
		{"no items", func(o *Order) { o.Items = nil }},
		{"zero quantity", func(o *Order) { o.Items[0].Quantity = 0 }},
		{"negative quantity", func(o *Order) { o.Items[0].Quantity = -2 }},
		{"empty item name", func(o *Order) { o.Items[0].Name = "" }},
		{"unknown order type", func(o *Order) { o.OrderType = "drive_through" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			o := Order{
				CallID:    "CALL_1",
				OrderType: OrderTypeDelivery,
				Items:     []OrderLineItem{{Name: "Burger", Quantity: 1}},
			}
			tc.mutate(&o)
			assert.ErrorIs(t, o.Validate(), ErrMalformedOrder)
		})
	}
}
