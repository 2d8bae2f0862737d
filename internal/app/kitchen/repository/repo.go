package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// KitchenRepositoryInterface covers worker lifecycle bookkeeping and the
// idempotent status transitions of a dispatched order.
type KitchenRepositoryInterface interface {
	RegisterOrFail(ctx context.Context, name, wtype string) error
	SetOffline(ctx context.Context, name string) error
	Heartbeat(ctx context.Context, name string) error

	// Transitions key on order_number: it is unique per process lifetime
	// and what every status notification carries.
	TryStartPreparingTx(ctx context.Context, orderNumber int64, workerName string) (bool, error)
	MarkReadyTx(ctx context.Context, orderNumber int64, workerName string) error
}

type KitchenRepository struct {
	db *sql.DB
}

func NewKitchenRepository(db *sql.DB) KitchenRepositoryInterface {
	return &KitchenRepository{db: db}
}

func (r *KitchenRepository) Heartbeat(ctx context.Context, name string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE workers SET last_seen=NOW() WHERE name=$1`, name)
	return err
}

func (r *KitchenRepository) RegisterOrFail(ctx context.Context, name, wtype string) error {
	var status string
	err := r.db.QueryRowContext(ctx, `SELECT status FROM workers WHERE name=$1`, name).Scan(&status)
	switch {
	case err == sql.ErrNoRows:
		_, err = r.db.ExecContext(ctx, `
			INSERT INTO workers(name, type, status, last_seen) VALUES ($1, $2, 'online', NOW())
		`, name, wtype)
		return err
	case err != nil:
		return err
	default:
		if status == "online" {
			return fmt.Errorf("worker %s already online", name)
		}
		_, err = r.db.ExecContext(ctx, `
			UPDATE workers SET type=$2, status='online', last_seen=NOW() WHERE name=$1
		`, name, wtype)
		return err
	}
}

func (r *KitchenRepository) SetOffline(ctx context.Context, name string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE workers SET status='offline', last_seen=NOW() WHERE name=$1`, name)
	return err
}

// TryStartPreparingTx moves a dispatched order to preparing. Returns false
// without changes when the order already left 'dispatched' (idempotent
// redelivery).
func (r *KitchenRepository) TryStartPreparingTx(ctx context.Context, orderNumber int64, workerName string) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	var status string
	if err := tx.QueryRowContext(ctx,
		`SELECT status FROM dispatched_orders WHERE order_number=$1 FOR UPDATE`, orderNumber).Scan(&status); err != nil {
		return false, err
	}
	if status != "dispatched" {
		return false, tx.Commit()
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE dispatched_orders SET status='preparing', processed_by=$2, updated_at=NOW()
		WHERE order_number=$1
	`, orderNumber, workerName); err != nil {
		return false, err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO order_status_log(order_id, status, changed_by, changed_at)
		SELECT id, 'preparing', $2, NOW() FROM dispatched_orders WHERE order_number=$1
	`, orderNumber, workerName); err != nil {
		return false, err
	}
	return true, tx.Commit()
}

func (r *KitchenRepository) MarkReadyTx(ctx context.Context, orderNumber int64, workerName string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		UPDATE dispatched_orders SET status='ready', completed_at=NOW(), updated_at=NOW()
		WHERE order_number=$1 AND status IN ('preparing','ready')
	`, orderNumber); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO order_status_log(order_id, status, changed_by, changed_at)
		SELECT id, 'ready', $2, NOW() FROM dispatched_orders WHERE order_number=$1
	`, orderNumber, workerName); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE workers SET orders_processed = orders_processed + 1, last_seen=NOW()
		WHERE name=$1
	`, workerName); err != nil {
		return err
	}
	return tx.Commit()
}
