package pos

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"verification-system/internal/domain"
)

func TestMock_AssignsStableReference(t *testing.T) {
	m := NewMock(nil)
	rec := domain.KitchenDispatchRecord{CallID: "CALL_1", OrderNumber: 1}

	require.NoError(t, m.SubmitOrder(context.Background(), rec))
	ref, ok := m.Reference("CALL_1")
	require.True(t, ok)
	assert.NotEmpty(t, ref)

	// Resubmitting the same call keeps the original reference.
	require.NoError(t, m.SubmitOrder(context.Background(), rec))
	ref2, _ := m.Reference("CALL_1")
	assert.Equal(t, ref, ref2)

	_, ok = m.Reference("CALL_2")
	assert.False(t, ok)
}
