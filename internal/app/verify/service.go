package verify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"verification-system/internal/app/verify/repository"
	"verification-system/internal/broadcast"
	"verification-system/internal/common/logger"
	"verification-system/internal/dispatch"
	"verification-system/internal/domain"
	"verification-system/internal/verification"
)

// ErrResultNotFound is returned by Result for calls that never verified.
var ErrResultNotFound = errors.New("verification result not found")

// KitchenQueue places an approved order on the kitchen work queue.
type KitchenQueue interface {
	PublishOrder(ctx context.Context, msg domain.KitchenOrderMessage) error
}

type ServiceInterface interface {
	SubmitReport(ctx context.Context, req domain.SubmitReportRequest) (domain.SubmitReportResponse, error)
	Result(ctx context.Context, callID string) (*domain.VerificationResult, error)
	Stats() domain.StatsResponse
}

// Service wires the aggregator, dispatcher, broadcaster, kitchen queue and
// the persistence trail together. The aggregator and dispatcher hold the
// authoritative state; broadcasting and persistence are fire-and-forget.
type Service struct {
	agg   *verification.Aggregator
	disp  *dispatch.Dispatcher
	bc    broadcast.Broadcaster
	queue KitchenQueue
	repo  repository.VerificationRepositoryInterface
	lg    *logger.Logger
}

// NewService builds the verification service. queue and repo may be nil
// when the broker or database is not configured.
func NewService(agg *verification.Aggregator, disp *dispatch.Dispatcher, bc broadcast.Broadcaster,
	queue KitchenQueue, repo repository.VerificationRepositoryInterface, lg *logger.Logger) ServiceInterface {
	if bc == nil {
		bc = broadcast.Nop{}
	}
	if lg == nil {
		lg = logger.New("verification-service")
	}
	return &Service{agg: agg, disp: disp, bc: bc, queue: queue, repo: repo, lg: lg}
}

func (s *Service) SubmitReport(ctx context.Context, req domain.SubmitReportRequest) (domain.SubmitReportResponse, error) {
	if req.CallID == "" {
		return domain.SubmitReportResponse{}, fmt.Errorf("%w: call_id is required", domain.ErrMalformedOrder)
	}
	report := domain.AgentReport{
		AgentName:  req.AgentName,
		CallID:     req.CallID,
		Order:      req.Order,
		Confidence: req.Confidence,
		Timestamp:  time.Now().UTC(),
	}
	report.Order.CallID = req.CallID

	res, err := s.agg.SubmitReport(report)
	if err != nil {
		return domain.SubmitReportResponse{}, err
	}

	s.lg.Debug("report_received", map[string]any{
		"call_id": req.CallID, "agent": req.AgentName,
		"reports_received": s.agg.ReportsReceived(req.CallID),
	})
	s.emit(ctx, domain.NewEvent(domain.EventAgentReport, domain.AgentReportEvent{
		CallID:    req.CallID,
		AgentName: req.AgentName,
		Order:     report.Order,
	}))
	if s.repo != nil {
		if err := s.repo.SaveReport(ctx, report); err != nil {
			s.lg.Error("report_persist_failed", err, map[string]any{"call_id": req.CallID, "agent": req.AgentName})
		}
	}

	if res == nil {
		status := "collecting"
		if _, done := s.agg.Result(req.CallID); done {
			// Late report on a verified call: recorded for history only.
			status = "verified"
		}
		return domain.SubmitReportResponse{
			CallID:          req.CallID,
			Status:          status,
			ReportsReceived: s.agg.ReportsReceived(req.CallID),
		}, nil
	}

	s.lg.Info("verification_completed", map[string]any{
		"call_id": res.CallID, "consensus": res.ConsensusLevel, "approved": res.Approved,
	})
	s.emit(ctx, domain.NewEvent(domain.EventVerificationResult, res))
	if s.repo != nil {
		if err := s.repo.SaveResult(ctx, *res); err != nil {
			s.lg.Error("result_persist_failed", err, map[string]any{"call_id": res.CallID})
		}
	}

	if res.Action == domain.ActionSendToKitchen {
		s.sendToKitchen(ctx, res)
	}

	return domain.SubmitReportResponse{
		CallID:          req.CallID,
		Status:          "verified",
		ReportsReceived: s.agg.ReportsReceived(req.CallID),
		Result:          res,
	}, nil
}

func (s *Service) sendToKitchen(ctx context.Context, res *domain.VerificationResult) {
	rec, err := s.disp.Dispatch(ctx, res.CallID, *res.FinalOrder)
	if err != nil {
		// FinalOrder already passed validation at submit time; a failure
		// here is a bug, not a per-call condition.
		s.lg.Error("dispatch_failed", err, map[string]any{"call_id": res.CallID})
		return
	}
	if s.repo != nil {
		if err := s.repo.SaveDispatch(ctx, rec); err != nil {
			s.lg.Error("dispatch_persist_failed", err, map[string]any{"call_id": rec.CallID})
		}
	}
	if s.queue != nil {
		msg := domain.KitchenOrderMessage{
			CallID:              rec.CallID,
			OrderNumber:         rec.OrderNumber,
			CustomerName:        rec.Order.CustomerName,
			CustomerPhone:       rec.Order.CustomerPhone,
			OrderType:           rec.Order.OrderType,
			DeliveryAddress:     rec.Order.DeliveryAddress,
			Items:               rec.Order.Items,
			SpecialInstructions: rec.Order.SpecialInstructions,
			DispatchedAt:        rec.DispatchedAt,
		}
		if err := s.queue.PublishOrder(ctx, msg); err != nil {
			s.lg.Error("kitchen_queue_publish_failed", err, map[string]any{
				"call_id": rec.CallID, "order_number": rec.OrderNumber,
			})
		}
	}
}

func (s *Service) emit(ctx context.Context, ev domain.Event) {
	if err := s.bc.Publish(ctx, ev); err != nil {
		s.lg.Error("broadcast_failed", err, map[string]any{"event_type": ev.Type})
	}
}

func (s *Service) Result(ctx context.Context, callID string) (*domain.VerificationResult, error) {
	if res, ok := s.agg.Result(callID); ok {
		return res, nil
	}
	if s.repo != nil {
		res, err := s.repo.GetResult(ctx, callID)
		if err == nil {
			return res, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			s.lg.Error("result_lookup_failed", err, map[string]any{"call_id": callID})
		}
	}
	return nil, ErrResultNotFound
}

func (s *Service) Stats() domain.StatsResponse {
	stats := s.agg.Stats()
	return domain.StatsResponse{
		PendingCalls:    stats.PendingCalls,
		VerifiedCalls:   stats.VerifiedCalls,
		PerfectCount:    stats.Perfect,
		MajorityCount:   stats.Majority,
		NoConsensusCnt:  stats.NoConsensus,
		DispatchedCount: s.disp.Count(),
	}
}
