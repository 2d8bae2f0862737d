package domain

// SubmitReportRequest is the JSON body of POST /reports.
type SubmitReportRequest struct {
	AgentName  string  `json:"agent_name"`
	CallID     string  `json:"call_id"`
	Order      Order   `json:"order"`
	Confidence float64 `json:"confidence"`
}

// SubmitReportResponse is returned while a call is still collecting reports.
type SubmitReportResponse struct {
	CallID          string              `json:"call_id"`
	Status          string              `json:"status"` // collecting | verified
	ReportsReceived int                 `json:"reports_received"`
	Result          *VerificationResult `json:"result,omitempty"`
}

// StatsResponse summarizes aggregator activity for GET /stats.
type StatsResponse struct {
	PendingCalls    int `json:"pending_calls"`
	VerifiedCalls   int `json:"verified_calls"`
	PerfectCount    int `json:"perfect_count"`
	MajorityCount   int `json:"majority_count"`
	NoConsensusCnt  int `json:"no_consensus_count"`
	DispatchedCount int `json:"dispatched_count"`
}
