package verification

import (
	"fmt"
	"sync"
	"time"

	"verification-system/internal/domain"
)

// Agents is the fixed set of expected reporters for every call: a primary
// order-taker and two independent listeners.
type Agents struct {
	Names   [3]string
	Primary string
}

// NewAgents validates the configured agent set: exactly three distinct
// names, one of which is the primary.
func NewAgents(names []string, primary string) (Agents, error) {
	if len(names) != 3 {
		return Agents{}, fmt.Errorf("expected exactly 3 agent names, got %d", len(names))
	}
	var a Agents
	for i, n := range names {
		if n == "" {
			return Agents{}, fmt.Errorf("agent name %d is empty", i)
		}
		for j := 0; j < i; j++ {
			if a.Names[j] == n {
				return Agents{}, fmt.Errorf("duplicate agent name %q", n)
			}
		}
		a.Names[i] = n
	}
	a.Primary = primary
	if _, ok := a.Slot(primary); !ok {
		return Agents{}, fmt.Errorf("primary agent %q is not in the expected set", primary)
	}
	return a, nil
}

// Slot maps an agent name to its fixed buffer slot.
func (a Agents) Slot(name string) (int, bool) {
	for i, n := range a.Names {
		if n == name {
			return i, true
		}
	}
	return 0, false
}

// callBuffer holds one report slot per expected agent, so at most three
// agents can ever occupy a call's buffer. Last write per agent wins.
type callBuffer struct {
	reports [3]*domain.AgentReport
}

func (b *callBuffer) count() int {
	n := 0
	for _, r := range b.reports {
		if r != nil {
			n++
		}
	}
	return n
}

// Aggregator collects per-call agent reports and triggers consensus
// evaluation exactly once per call, when the third distinct agent reports.
// All state transitions happen under a single lock so that concurrent
// submissions observe the "now we have 3" condition exactly once.
type Aggregator struct {
	agents Agents

	mu      sync.Mutex
	buffers map[string]*callBuffer
	results map[string]*domain.VerificationResult
}

func NewAggregator(agents Agents) *Aggregator {
	return &Aggregator{
		agents:  agents,
		buffers: make(map[string]*callBuffer),
		results: make(map[string]*domain.VerificationResult),
	}
}

// SubmitReport records a report under its call id, keyed by agent name.
// A repeat report from the same agent replaces the previous one. When the
// third distinct agent reports, the consensus engine runs once and the
// terminal result is returned; every other submission returns nil.
//
// Reports from unknown agents and malformed orders are rejected without
// mutating state. Reports arriving after a call's terminal result update
// history only and never re-trigger evaluation.
func (a *Aggregator) SubmitReport(report domain.AgentReport) (*domain.VerificationResult, error) {
	slot, ok := a.agents.Slot(report.AgentName)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not one of the expected agents", domain.ErrUnknownAgent, report.AgentName)
	}
	if err := report.Order.Validate(); err != nil {
		return nil, err
	}
	if report.Timestamp.IsZero() {
		report.Timestamp = time.Now().UTC()
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	buf := a.buffers[report.CallID]
	if buf == nil {
		buf = &callBuffer{}
		a.buffers[report.CallID] = buf
	}
	buf.reports[slot] = &report

	if _, done := a.results[report.CallID]; done {
		// Already verified: the report is kept for history, the cached
		// result stands.
		return nil, nil
	}
	if buf.count() < len(buf.reports) {
		return nil, nil
	}

	var reports [3]domain.AgentReport
	for i, r := range buf.reports {
		reports[i] = *r
	}
	res := Evaluate(reports, a.agents.Primary)
	res.CallID = report.CallID
	res.Timestamp = time.Now().UTC()
	a.results[report.CallID] = &res
	return &res, nil
}

// Result looks up a previously computed verification result. It never
// triggers evaluation.
func (a *Aggregator) Result(callID string) (*domain.VerificationResult, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	res, ok := a.results[callID]
	return res, ok
}

// ReportsReceived returns how many distinct agents have reported for a call.
func (a *Aggregator) ReportsReceived(callID string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	if buf, ok := a.buffers[callID]; ok {
		return buf.count()
	}
	return 0
}

// Stats summarizes aggregator activity by consensus level.
type Stats struct {
	PendingCalls  int
	VerifiedCalls int
	Perfect       int
	Majority      int
	NoConsensus   int
}

func (a *Aggregator) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	var s Stats
	s.VerifiedCalls = len(a.results)
	for _, res := range a.results {
		switch res.ConsensusLevel {
		case domain.ConsensusPerfect:
			s.Perfect++
		case domain.ConsensusMajority:
			s.Majority++
		case domain.ConsensusNone:
			s.NoConsensus++
		}
	}
	for id := range a.buffers {
		if _, done := a.results[id]; !done {
			s.PendingCalls++
		}
	}
	return s
}
