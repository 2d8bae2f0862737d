package verify

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"verification-system/internal/app/verify/repository"
	"verification-system/internal/dispatch"
	"verification-system/internal/domain"
	"verification-system/internal/verification"
)

type fakeBroadcaster struct {
	mu     sync.Mutex
	events []domain.Event
}

func (f *fakeBroadcaster) Publish(_ context.Context, ev domain.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeBroadcaster) byType(eventType string) []domain.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Event
	for _, ev := range f.events {
		if ev.Type == eventType {
			out = append(out, ev)
		}
	}
	return out
}

type fakeQueue struct {
	mu   sync.Mutex
	msgs []domain.KitchenOrderMessage
}

func (f *fakeQueue) PublishOrder(_ context.Context, msg domain.KitchenOrderMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msg)
	return nil
}

type fakeRepo struct {
	mu         sync.Mutex
	reports    []domain.AgentReport
	results    []domain.VerificationResult
	dispatches []domain.KitchenDispatchRecord
}

func (f *fakeRepo) SaveReport(_ context.Context, r domain.AgentReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reports = append(f.reports, r)
	return nil
}

func (f *fakeRepo) SaveResult(_ context.Context, r domain.VerificationResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = append(f.results, r)
	return nil
}

func (f *fakeRepo) SaveDispatch(_ context.Context, r domain.KitchenDispatchRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dispatches = append(f.dispatches, r)
	return nil
}

func (f *fakeRepo) GetResult(context.Context, string) (*domain.VerificationResult, error) {
	return nil, repository.ErrNotFound
}

func newTestService(t *testing.T) (ServiceInterface, *fakeBroadcaster, *fakeQueue, *fakeRepo) {
	t.Helper()
	agents, err := verification.NewAgents([]string{"mara", "llama", "ollama"}, "mara")
	require.NoError(t, err)
	bc := &fakeBroadcaster{}
	queue := &fakeQueue{}
	repo := &fakeRepo{}
	disp := dispatch.NewDispatcher(dispatch.NewCounter(), bc, nil, nil, nil)
	svc := NewService(verification.NewAggregator(agents), disp, bc, queue, repo, nil)
	return svc, bc, queue, repo
}

func submitRequest(agent, callID, itemName string) domain.SubmitReportRequest {
	return domain.SubmitReportRequest{
		AgentName:  agent,
		CallID:     callID,
		Confidence: 0.9,
		Order: domain.Order{
			OrderType: domain.OrderTypeDelivery,
			Items:     []domain.OrderLineItem{{Name: itemName, Quantity: 1}},
		},
	}
}

func TestSubmitReport_FullApprovalFlow(t *testing.T) {
	svc, bc, queue, repo := newTestService(t)
	ctx := context.Background()

	resp, err := svc.SubmitReport(ctx, submitRequest("mara", "CALL_1", "Burger"))
	require.NoError(t, err)
	assert.Equal(t, "collecting", resp.Status)
	assert.Equal(t, 1, resp.ReportsReceived)
	assert.Nil(t, resp.Result)

	_, err = svc.SubmitReport(ctx, submitRequest("llama", "CALL_1", "Burger"))
	require.NoError(t, err)

	resp, err = svc.SubmitReport(ctx, submitRequest("ollama", "CALL_1", "Burger"))
	require.NoError(t, err)
	assert.Equal(t, "verified", resp.Status)
	require.NotNil(t, resp.Result)
	assert.Equal(t, domain.ConsensusPerfect, resp.Result.ConsensusLevel)

	assert.Len(t, bc.byType(domain.EventAgentReport), 3)
	assert.Len(t, bc.byType(domain.EventVerificationResult), 1)
	assert.Len(t, bc.byType(domain.EventKitchenOrder), 1)

	require.Len(t, queue.msgs, 1)
	assert.Equal(t, "CALL_1", queue.msgs[0].CallID)
	assert.Equal(t, int64(1), queue.msgs[0].OrderNumber)

	assert.Len(t, repo.reports, 3)
	assert.Len(t, repo.results, 1)
	require.Len(t, repo.dispatches, 1)
	assert.Equal(t, int64(1), repo.dispatches[0].OrderNumber)

	res, err := svc.Result(ctx, "CALL_1")
	require.NoError(t, err)
	assert.Equal(t, "CALL_1", res.CallID)
}

func TestSubmitReport_NoConsensusSkipsKitchen(t *testing.T) {
	svc, bc, queue, repo := newTestService(t)
	ctx := context.Background()

	_, err := svc.SubmitReport(ctx, submitRequest("mara", "CALL_1", "Burger"))
	require.NoError(t, err)
	_, err = svc.SubmitReport(ctx, submitRequest("llama", "CALL_1", "Fries"))
	require.NoError(t, err)
	resp, err := svc.SubmitReport(ctx, submitRequest("ollama", "CALL_1", "Salad"))
	require.NoError(t, err)

	require.NotNil(t, resp.Result)
	assert.Equal(t, domain.ConsensusNone, resp.Result.ConsensusLevel)
	assert.Equal(t, domain.ActionRequestClarification, resp.Result.Action)

	assert.Empty(t, queue.msgs)
	assert.Empty(t, repo.dispatches)
	assert.Empty(t, bc.byType(domain.EventKitchenOrder))
	assert.Len(t, bc.byType(domain.EventVerificationResult), 1)
}

func TestSubmitReport_ValidationErrors(t *testing.T) {
	svc, _, _, repo := newTestService(t)
	ctx := context.Background()

	_, err := svc.SubmitReport(ctx, submitRequest("vera", "CALL_1", "Burger"))
	assert.ErrorIs(t, err, domain.ErrUnknownAgent)

	bad := submitRequest("mara", "CALL_1", "Burger")
	bad.Order.Items[0].Quantity = -1
	_, err = svc.SubmitReport(ctx, bad)
	assert.ErrorIs(t, err, domain.ErrMalformedOrder)

	noCall := submitRequest("mara", "", "Burger")
	_, err = svc.SubmitReport(ctx, noCall)
	assert.ErrorIs(t, err, domain.ErrMalformedOrder)

	assert.Empty(t, repo.reports, "rejected reports must not be persisted")
}

func TestSubmitReport_LateReportDoesNotRedispatch(t *testing.T) {
	svc, bc, queue, _ := newTestService(t)
	ctx := context.Background()

	for _, agent := range []string{"mara", "llama", "ollama"} {
		_, err := svc.SubmitReport(ctx, submitRequest(agent, "CALL_1", "Burger"))
		require.NoError(t, err)
	}
	require.Len(t, queue.msgs, 1)

	resp, err := svc.SubmitReport(ctx, submitRequest("mara", "CALL_1", "Burger"))
	require.NoError(t, err)
	assert.Equal(t, "verified", resp.Status)
	assert.Nil(t, resp.Result, "late report never re-returns the cached result")

	assert.Len(t, queue.msgs, 1, "no second kitchen publish")
	assert.Len(t, bc.byType(domain.EventVerificationResult), 1)
}

func TestStats_CountsByConsensus(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	for _, agent := range []string{"mara", "llama", "ollama"} {
		_, err := svc.SubmitReport(ctx, submitRequest(agent, "CALL_A", "Burger"))
		require.NoError(t, err)
	}
	_, err := svc.SubmitReport(ctx, submitRequest("mara", "CALL_B", "Fries"))
	require.NoError(t, err)

	stats := svc.Stats()
	assert.Equal(t, 1, stats.VerifiedCalls)
	assert.Equal(t, 1, stats.PerfectCount)
	assert.Equal(t, 1, stats.PendingCalls)
	assert.Equal(t, 1, stats.DispatchedCount)
}

func TestResult_UnknownCall(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	_, err := svc.Result(context.Background(), "CALL_NOPE")
	assert.ErrorIs(t, err, ErrResultNotFound)
}
