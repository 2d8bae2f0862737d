package kitchen

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"golang.org/x/sync/errgroup"

	"verification-system/internal/app/kitchen/repository"
	"verification-system/internal/broadcast"
	"verification-system/internal/common/logger"
	"verification-system/internal/connections/rabbitmq"
	"verification-system/internal/domain"
)

var (
	ErrRequeue = errors.New("requeue")     // nack(requeue=true)
	ErrDLQ     = errors.New("dead_letter") // nack(requeue=false)
)

type WorkerConfig struct {
	WorkerName string
	OrderTypes []string // empty means every type
	Prefetch   int
	Heartbeat  time.Duration

	PrepareDineIn   time.Duration
	PreparePickup   time.Duration
	PrepareDelivery time.Duration
}

// Worker consumes dispatched kitchen orders, walks them through
// preparing -> ready and broadcasts every status change.
type Worker struct {
	cfg  WorkerConfig
	repo repository.KitchenRepositoryInterface
	rmq  *rabbitmq.Client
	bc   broadcast.Broadcaster
	lg   *logger.Logger
}

func NewWorker(cfg WorkerConfig, repo repository.KitchenRepositoryInterface, rmq *rabbitmq.Client, bc broadcast.Broadcaster, lg *logger.Logger) *Worker {
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 1
	}
	if cfg.Heartbeat <= 0 {
		cfg.Heartbeat = 30 * time.Second
	}
	if cfg.PrepareDineIn <= 0 {
		cfg.PrepareDineIn = 8 * time.Second
	}
	if cfg.PreparePickup <= 0 {
		cfg.PreparePickup = 10 * time.Second
	}
	if cfg.PrepareDelivery <= 0 {
		cfg.PrepareDelivery = 12 * time.Second
	}
	if bc == nil {
		bc = broadcast.Nop{}
	}
	if lg == nil {
		lg = logger.New("kitchen-worker")
	}
	return &Worker{cfg: cfg, repo: repo, rmq: rmq, bc: bc, lg: lg}
}

func (w *Worker) Run(ctx context.Context) error {
	if strings.TrimSpace(w.cfg.WorkerName) == "" {
		return errors.New("worker name is empty: pass --worker-name")
	}

	if err := w.repo.RegisterOrFail(ctx, w.cfg.WorkerName, "kitchen"); err != nil {
		w.lg.Error("worker_registration_failed", err, map[string]any{"worker": w.cfg.WorkerName})
		return err
	}
	w.lg.Info("worker_registered", map[string]any{"worker": w.cfg.WorkerName, "order_types": w.cfg.OrderTypes})

	msgs, err := w.rmq.Consume(rabbitmq.KitchenQueue, w.cfg.WorkerName, w.cfg.Prefetch)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		t := time.NewTicker(w.cfg.Heartbeat)
		defer t.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-t.C:
				if err := w.repo.Heartbeat(context.Background(), w.cfg.WorkerName); err == nil {
					w.lg.Debug("heartbeat_sent", map[string]any{"worker": w.cfg.WorkerName})
				}
			}
		}
	})

	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case d, ok := <-msgs:
				if !ok {
					return errors.New("kitchen queue channel closed")
				}
				err := w.processOne(gctx, d)
				switch {
				case err == nil:
					_ = d.Ack(false)
				case errors.Is(err, ErrDLQ):
					_ = d.Nack(false, false)
				default:
					_ = d.Nack(false, true)
				}
			}
		}
	})

	err = g.Wait()

	w.lg.Info("graceful_shutdown", map[string]any{"worker": w.cfg.WorkerName})
	_ = w.rmq.Channel().Cancel(w.cfg.WorkerName, false)
	_ = w.repo.SetOffline(context.Background(), w.cfg.WorkerName)
	return err
}

func (w *Worker) allowedType(t string) bool {
	if len(w.cfg.OrderTypes) == 0 {
		return true
	}
	t = strings.TrimSpace(strings.ToLower(t))
	for _, v := range w.cfg.OrderTypes {
		if t == strings.TrimSpace(strings.ToLower(v)) {
			return true
		}
	}
	return false
}

func (w *Worker) processOne(ctx context.Context, d amqp.Delivery) error {
	var msg domain.KitchenOrderMessage
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		return ErrDLQ
	}
	if msg.OrderNumber == 0 || msg.OrderType == "" {
		return ErrDLQ
	}
	if !w.allowedType(msg.OrderType) {
		// Not this worker's specialization; hand it back.
		return ErrRequeue
	}

	started, err := w.repo.TryStartPreparingTx(ctx, msg.OrderNumber, w.cfg.WorkerName)
	if err != nil {
		return ErrRequeue
	}
	if !started {
		// Already past 'dispatched': idempotent redelivery.
		return nil
	}
	w.publishStatus(ctx, msg.OrderNumber, "dispatched", "preparing", w.estimateReady(msg.OrderType))
	w.lg.Debug("order_preparation_started", map[string]any{
		"order_number": msg.OrderNumber, "call_id": msg.CallID, "worker": w.cfg.WorkerName,
	})

	select {
	case <-time.After(w.prepareDelayFor(msg.OrderType)):
	case <-ctx.Done():
		return ErrRequeue
	}

	if err := w.repo.MarkReadyTx(ctx, msg.OrderNumber, w.cfg.WorkerName); err != nil {
		return ErrRequeue
	}
	w.publishStatus(ctx, msg.OrderNumber, "preparing", "ready", time.Now().UTC())
	w.lg.Info("order_ready", map[string]any{
		"order_number": msg.OrderNumber, "call_id": msg.CallID, "worker": w.cfg.WorkerName,
	})
	return nil
}

func (w *Worker) prepareDelayFor(orderType string) time.Duration {
	switch strings.ToLower(strings.TrimSpace(orderType)) {
	case domain.OrderTypeDineIn:
		return w.cfg.PrepareDineIn
	case domain.OrderTypePickup:
		return w.cfg.PreparePickup
	case domain.OrderTypeDelivery:
		return w.cfg.PrepareDelivery
	default:
		return w.cfg.PreparePickup
	}
}

func (w *Worker) estimateReady(orderType string) time.Time {
	return time.Now().UTC().Add(w.prepareDelayFor(orderType))
}

func (w *Worker) publishStatus(ctx context.Context, orderNumber int64, oldStatus, newStatus string, eta time.Time) {
	ev := domain.NewEvent(domain.EventOrderStatus, domain.OrderStatusEvent{
		OrderNumber:         orderNumber,
		OldStatus:           oldStatus,
		NewStatus:           newStatus,
		ChangedBy:           w.cfg.WorkerName,
		Timestamp:           time.Now().UTC(),
		EstimatedCompletion: eta,
	})
	if err := w.bc.Publish(ctx, ev); err != nil {
		w.lg.Error("status_broadcast_failed", err, map[string]any{"order_number": orderNumber, "new_status": newStatus})
	}
}
