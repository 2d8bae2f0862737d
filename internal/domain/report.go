package domain

import "time"

// Consensus levels.
const (
	ConsensusPerfect  = "perfect"
	ConsensusMajority = "majority"
	ConsensusNone     = "none"
)

// Actions attached to a verification result.
const (
	ActionSendToKitchen        = "SEND_TO_KITCHEN"
	ActionRequestClarification = "REQUEST_CLARIFICATION"
)

// AgentReport is one listening agent's order report for a call. Confidence
// is advisory only; it never influences the consensus decision.
type AgentReport struct {
	AgentName  string    `json:"agent_name"`
	CallID     string    `json:"call_id"`
	Order      Order     `json:"order"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
}

// VerificationResult is the terminal outcome of aggregating three agent
// reports for a call. Computed at most once per call.
type VerificationResult struct {
	CallID            string    `json:"call_id"`
	Approved          bool      `json:"approved"`
	ConsensusLevel    string    `json:"consensus_level"`
	ConfidencePercent int       `json:"confidence"`
	FinalOrder        *Order    `json:"final_order,omitempty"`
	MatchingAgents    []string  `json:"matching_agents"`
	Discrepancies     []string  `json:"discrepancies"`
	Action            string    `json:"action"`
	Timestamp         time.Time `json:"timestamp"`
}

// KitchenDispatchRecord is the release of an approved order to the kitchen.
// OrderNumber is the only externally visible sequencing guarantee.
type KitchenDispatchRecord struct {
	CallID       string    `json:"call_id"`
	OrderNumber  int64     `json:"order_number"`
	Order        Order     `json:"order"`
	DispatchedAt time.Time `json:"dispatched_at"`
}
