package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"verification-system/internal/domain"
)

// ErrNotFound is returned when no row exists for the given call.
var ErrNotFound = errors.New("not found")

type VerificationRepository struct {
	db *sql.DB
}

func NewVerificationRepository(db *sql.DB) VerificationRepositoryInterface {
	return &VerificationRepository{db: db}
}

func (r *VerificationRepository) SaveReport(ctx context.Context, report domain.AgentReport) error {
	payload, err := json.Marshal(report.Order)
	if err != nil {
		return fmt.Errorf("marshal report order: %w", err)
	}
	// One row per (call, agent): a repeat report replaces the previous one.
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO agent_reports (call_id, agent_name, confidence, order_payload, reported_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (call_id, agent_name)
		DO UPDATE SET confidence = EXCLUDED.confidence,
		              order_payload = EXCLUDED.order_payload,
		              reported_at = EXCLUDED.reported_at
	`, report.CallID, report.AgentName, report.Confidence, payload, report.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to save agent report: %w", err)
	}
	return nil
}

func (r *VerificationRepository) SaveResult(ctx context.Context, res domain.VerificationResult) error {
	matching, err := json.Marshal(res.MatchingAgents)
	if err != nil {
		return fmt.Errorf("marshal matching agents: %w", err)
	}
	discrepancies, err := json.Marshal(res.Discrepancies)
	if err != nil {
		return fmt.Errorf("marshal discrepancies: %w", err)
	}
	var finalOrder []byte
	if res.FinalOrder != nil {
		finalOrder, err = json.Marshal(res.FinalOrder)
		if err != nil {
			return fmt.Errorf("marshal final order: %w", err)
		}
	}
	// The aggregator evaluates at most once per call; DO NOTHING keeps the
	// first persisted result authoritative even on a duplicate write.
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO verifications
		    (call_id, approved, consensus_level, confidence, matching_agents, discrepancies, action, final_order, created_at)
		VALUES
		    ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (call_id) DO NOTHING
	`, res.CallID, res.Approved, res.ConsensusLevel, res.ConfidencePercent,
		matching, discrepancies, res.Action, finalOrder, res.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to save verification result: %w", err)
	}
	return nil
}

func (r *VerificationRepository) SaveDispatch(ctx context.Context, rec domain.KitchenDispatchRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var orderID int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO dispatched_orders
		    (call_id, order_number, customer_name, customer_phone, order_type, delivery_address, special_instructions, status, dispatched_at, updated_at)
		VALUES
		    ($1, $2, $3, $4, $5, $6, $7, 'dispatched', $8, NOW())
		ON CONFLICT (call_id) DO NOTHING
		RETURNING id
	`, rec.CallID, rec.OrderNumber, rec.Order.CustomerName, rec.Order.CustomerPhone,
		rec.Order.OrderType, rec.Order.DeliveryAddress, rec.Order.SpecialInstructions, rec.DispatchedAt).Scan(&orderID)
	if errors.Is(err, sql.ErrNoRows) {
		// Already dispatched; nothing to add.
		return tx.Commit()
	}
	if err != nil {
		return fmt.Errorf("failed to insert dispatched order: %w", err)
	}

	for _, item := range rec.Order.Items {
		mods, merr := json.Marshal(item.Modifiers)
		if merr != nil {
			return fmt.Errorf("marshal item modifiers: %w", merr)
		}
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, name, quantity, modifiers, special_instructions, created_at)
			VALUES ($1, $2, $3, $4, $5, NOW())
		`, orderID, item.Name, item.Quantity, mods, item.SpecialInstructions); err != nil {
			return fmt.Errorf("failed to insert order item %s: %w", item.Name, err)
		}
	}

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO order_status_log (order_id, status, changed_by, changed_at)
		VALUES ($1, 'dispatched', 'verification-service', NOW())
	`, orderID); err != nil {
		return fmt.Errorf("failed to insert order status log: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *VerificationRepository) GetResult(ctx context.Context, callID string) (*domain.VerificationResult, error) {
	var (
		res           domain.VerificationResult
		matching      []byte
		discrepancies []byte
		finalOrder    []byte
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT call_id, approved, consensus_level, confidence, matching_agents, discrepancies, action, final_order, created_at
		FROM verifications WHERE call_id = $1
	`, callID).Scan(&res.CallID, &res.Approved, &res.ConsensusLevel, &res.ConfidencePercent,
		&matching, &discrepancies, &res.Action, &finalOrder, &res.Timestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load verification result: %w", err)
	}
	if err := json.Unmarshal(matching, &res.MatchingAgents); err != nil {
		return nil, fmt.Errorf("unmarshal matching agents: %w", err)
	}
	if err := json.Unmarshal(discrepancies, &res.Discrepancies); err != nil {
		return nil, fmt.Errorf("unmarshal discrepancies: %w", err)
	}
	if len(finalOrder) > 0 {
		res.FinalOrder = &domain.Order{}
		if err := json.Unmarshal(finalOrder, res.FinalOrder); err != nil {
			return nil, fmt.Errorf("unmarshal final order: %w", err)
		}
	}
	return &res, nil
}
