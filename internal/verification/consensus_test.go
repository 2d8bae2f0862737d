package verification

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"verification-system/internal/domain"
)

func burgerOrder(items ...domain.OrderLineItem) domain.Order {
	return domain.Order{
		CallID:        "CALL_1",
		CustomerPhone: "+15551234567",
		CustomerName:  "Sarah Johnson",
		Items:         items,
		OrderType:     domain.OrderTypeDelivery,
	}
}

func report(agent string, order domain.Order) domain.AgentReport {
	return domain.AgentReport{AgentName: agent, CallID: order.CallID, Order: order, Confidence: 0.9}
}

func TestEvaluate_PerfectConsensus(t *testing.T) {
	item := domain.OrderLineItem{Name: "Signature Burger", Quantity: 1, Modifiers: []string{"No onions", "Extra cheese"}}
	reports := [3]domain.AgentReport{
		report("mara", burgerOrder(item)),
		report("llama", burgerOrder(item)),
		report("ollama", burgerOrder(item)),
	}

	res := Evaluate(reports, "mara")

	assert.True(t, res.Approved)
	assert.Equal(t, domain.ConsensusPerfect, res.ConsensusLevel)
	assert.Equal(t, 100, res.ConfidencePercent)
	assert.Equal(t, domain.ActionSendToKitchen, res.Action)
	require.NotNil(t, res.FinalOrder)
	assert.Equal(t, reports[0].Order, *res.FinalOrder)
	assert.ElementsMatch(t, []string{"mara", "llama", "ollama"}, res.MatchingAgents)
	assert.Empty(t, res.Discrepancies)
}

func TestEvaluate_PerfectIgnoresCaseOrderAndInstructions(t *testing.T) {
	a := burgerOrder(
		domain.OrderLineItem{Name: "Signature Burger", Quantity: 1, Modifiers: []string{"No onions", "Extra cheese"}},
		domain.OrderLineItem{Name: "Caesar Salad", Quantity: 2},
	)
	b := burgerOrder(
		domain.OrderLineItem{Name: "caesar salad", Quantity: 2, SpecialInstructions: "dressing on the side"},
		domain.OrderLineItem{Name: "SIGNATURE BURGER", Quantity: 1, Modifiers: []string{"extra cheese", "no onions"}},
	)

	res := Evaluate([3]domain.AgentReport{
		report("mara", a), report("llama", b), report("ollama", a),
	}, "mara")

	assert.Equal(t, domain.ConsensusPerfect, res.ConsensusLevel)
	require.NotNil(t, res.FinalOrder)
	// Perfect consensus keeps the primary agent's rendition.
	assert.Equal(t, a, *res.FinalOrder)
}

func TestEvaluate_MajorityConsensus(t *testing.T) {
	// mara and llama agree modulo case; ollama dropped the modifier.
	a := burgerOrder(domain.OrderLineItem{Name: "Burger", Quantity: 1, Modifiers: []string{"No onions"}})
	b := burgerOrder(domain.OrderLineItem{Name: "burger", Quantity: 1, Modifiers: []string{"no onions"}})
	c := burgerOrder(domain.OrderLineItem{Name: "Burger", Quantity: 1})

	res := Evaluate([3]domain.AgentReport{
		report("mara", a), report("llama", b), report("ollama", c),
	}, "mara")

	assert.True(t, res.Approved)
	assert.Equal(t, domain.ConsensusMajority, res.ConsensusLevel)
	assert.Equal(t, 67, res.ConfidencePercent)
	assert.Equal(t, domain.ActionSendToKitchen, res.Action)
	assert.ElementsMatch(t, []string{"mara", "llama"}, res.MatchingAgents)
	require.NotNil(t, res.FinalOrder)
	assert.Equal(t, a, *res.FinalOrder)
	require.NotEmpty(t, res.Discrepancies)
	for _, d := range res.Discrepancies {
		assert.Contains(t, d, "ollama")
		assert.Contains(t, d, "modifiers")
	}
}

func TestEvaluate_MajorityPrefersPrimaryCopyOfSharedOrder(t *testing.T) {
	shared := burgerOrder(domain.OrderLineItem{Name: "Burger", Quantity: 1})
	odd := burgerOrder(domain.OrderLineItem{Name: "Ribeye Steak", Quantity: 1})

	res := Evaluate([3]domain.AgentReport{
		report("mara", shared), report("llama", odd), report("ollama", shared),
	}, "ollama")

	assert.Equal(t, domain.ConsensusMajority, res.ConsensusLevel)
	assert.ElementsMatch(t, []string{"mara", "ollama"}, res.MatchingAgents)
	require.NotNil(t, res.FinalOrder)
	assert.Equal(t, shared, *res.FinalOrder)
}

func TestEvaluate_NoConsensus(t *testing.T) {
	a := burgerOrder(domain.OrderLineItem{Name: "Burger", Quantity: 1})
	b := burgerOrder(domain.OrderLineItem{Name: "Ribeye Steak", Quantity: 1})
	c := burgerOrder(domain.OrderLineItem{Name: "Caesar Salad", Quantity: 3})

	res := Evaluate([3]domain.AgentReport{
		report("mara", a), report("llama", b), report("ollama", c),
	}, "mara")

	assert.False(t, res.Approved)
	assert.Equal(t, domain.ConsensusNone, res.ConsensusLevel)
	assert.Equal(t, 0, res.ConfidencePercent)
	assert.Equal(t, domain.ActionRequestClarification, res.Action)
	assert.Nil(t, res.FinalOrder)
	assert.Empty(t, res.MatchingAgents)
	assert.Len(t, res.Discrepancies, 3)
}

func TestEvaluate_ItemCountMismatchDiff(t *testing.T) {
	two := burgerOrder(
		domain.OrderLineItem{Name: "Burger", Quantity: 1},
		domain.OrderLineItem{Name: "Fries", Quantity: 1},
	)
	one := burgerOrder(domain.OrderLineItem{Name: "Burger", Quantity: 1})

	res := Evaluate([3]domain.AgentReport{
		report("mara", two), report("llama", two), report("ollama", one),
	}, "mara")

	assert.Equal(t, domain.ConsensusMajority, res.ConsensusLevel)
	require.Len(t, res.Discrepancies, 2)
	assert.Contains(t, res.Discrepancies[0], "item count (2 vs 1)")
}

func TestEvaluate_QuantityAndNameDiffs(t *testing.T) {
	a := burgerOrder(domain.OrderLineItem{Name: "Burger", Quantity: 2})
	b := burgerOrder(domain.OrderLineItem{Name: "Borgir", Quantity: 1})
	c := burgerOrder(domain.OrderLineItem{Name: "Burger", Quantity: 2})

	res := Evaluate([3]domain.AgentReport{
		report("mara", a), report("llama", b), report("ollama", c),
	}, "mara")

	assert.Equal(t, domain.ConsensusMajority, res.ConsensusLevel)
	assert.ElementsMatch(t, []string{"mara", "ollama"}, res.MatchingAgents)
	joined := ""
	for _, d := range res.Discrepancies {
		joined += d + "\n"
	}
	assert.Contains(t, joined, "item 1 name (Burger vs Borgir)")
	assert.Contains(t, joined, "item 1 quantity (2 vs 1)")
}

func TestEvaluate_PanicsOnDuplicateAgent(t *testing.T) {
	o := burgerOrder(domain.OrderLineItem{Name: "Burger", Quantity: 1})
	assert.Panics(t, func() {
		Evaluate([3]domain.AgentReport{
			report("mara", o), report("mara", o), report("ollama", o),
		}, "mara")
	})
}

func TestEvaluate_PanicsOnForeignPrimary(t *testing.T) {
	o := burgerOrder(domain.OrderLineItem{Name: "Burger", Quantity: 1})
	assert.Panics(t, func() {
		Evaluate([3]domain.AgentReport{
			report("mara", o), report("llama", o), report("ollama", o),
		}, "vera")
	})
}

func TestOrdersEqual_MultisetSemantics(t *testing.T) {
	a := burgerOrder(
		domain.OrderLineItem{Name: "Fries", Quantity: 1},
		domain.OrderLineItem{Name: "Burger", Quantity: 1, Modifiers: []string{"no onions", "NO ONIONS"}},
	)
	b := burgerOrder(
		domain.OrderLineItem{Name: "burger", Quantity: 1, Modifiers: []string{"No Onions"}},
		domain.OrderLineItem{Name: "fries", Quantity: 1},
	)
	assert.True(t, ordersEqual(a, b))

	c := burgerOrder(
		domain.OrderLineItem{Name: "Fries", Quantity: 1},
		domain.OrderLineItem{Name: "Burger", Quantity: 1},
	)
	assert.False(t, ordersEqual(a, c))
}
