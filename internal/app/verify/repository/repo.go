package repository

import (
	"context"

	"verification-system/internal/domain"
)

// VerificationRepositoryInterface stores the durable trail of the
// verification pipeline: report history, terminal results and dispatch
// records. In-flight aggregation state never touches the database.
type VerificationRepositoryInterface interface {
	SaveReport(ctx context.Context, report domain.AgentReport) error
	SaveResult(ctx context.Context, res domain.VerificationResult) error
	SaveDispatch(ctx context.Context, rec domain.KitchenDispatchRecord) error
	GetResult(ctx context.Context, callID string) (*domain.VerificationResult, error)
}
