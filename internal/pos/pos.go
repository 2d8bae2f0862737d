package pos

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"verification-system/internal/common/logger"
	"verification-system/internal/domain"
)

// Client hands dispatched orders to the point-of-sale system. The real POS
// protocol lives outside this service; only the handoff is modeled here.
type Client interface {
	SubmitOrder(ctx context.Context, rec domain.KitchenDispatchRecord) error
}

// Mock accepts every order and assigns a fake POS reference, the stand-in
// used when no POS credentials are configured.
type Mock struct {
	lg *logger.Logger

	mu   sync.Mutex
	refs map[string]string // call id -> POS reference
}

func NewMock(lg *logger.Logger) *Mock {
	if lg == nil {
		lg = logger.New("pos")
	}
	return &Mock{lg: lg, refs: make(map[string]string)}
}

func (m *Mock) SubmitOrder(_ context.Context, rec domain.KitchenDispatchRecord) error {
	m.mu.Lock()
	ref, ok := m.refs[rec.CallID]
	if !ok {
		ref = "POS_" + uuid.NewString()
		m.refs[rec.CallID] = ref
	}
	m.mu.Unlock()

	m.lg.Info("pos_order_submitted", map[string]any{
		"call_id":      rec.CallID,
		"order_number": rec.OrderNumber,
		"pos_ref":      ref,
	})
	return nil
}

// Reference returns the POS reference assigned to a call, if submitted.
func (m *Mock) Reference(callID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ref, ok := m.refs[callID]
	return ref, ok
}
