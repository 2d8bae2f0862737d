package dispatch

import (
	"context"
	"sync"
	"time"

	"verification-system/internal/common/logger"
	"verification-system/internal/domain"
)

// EventPublisher receives broadcast events. Emission is fire-and-forget:
// a publish failure is logged and never rolls back a committed dispatch.
type EventPublisher interface {
	Publish(ctx context.Context, ev domain.Event) error
}

// POSClient hands an approved order to the point-of-sale integration.
type POSClient interface {
	SubmitOrder(ctx context.Context, rec domain.KitchenDispatchRecord) error
}

// TimerRegistry starts the elapsed-time broadcast loop for a dispatched
// order. Ticks are the registry's responsibility, not the dispatcher's.
type TimerRegistry interface {
	Start(orderNumber int64, callID string) bool
}

// Dispatcher releases approved orders to the kitchen. Order numbers come
// from a single shared counter; dispatch is idempotent per call id.
type Dispatcher struct {
	counter *Counter
	events  EventPublisher
	pos     POSClient
	timers  TimerRegistry
	lg      *logger.Logger

	mu      sync.Mutex
	records map[string]*domain.KitchenDispatchRecord
}

// NewDispatcher builds a dispatcher. Any of events, pos and timers may be
// nil when the corresponding collaborator is absent (tests, degraded runs).
func NewDispatcher(counter *Counter, events EventPublisher, pos POSClient, timers TimerRegistry, lg *logger.Logger) *Dispatcher {
	if lg == nil {
		lg = logger.New("dispatcher")
	}
	return &Dispatcher{
		counter: counter,
		events:  events,
		pos:     pos,
		timers:  timers,
		lg:      lg,
		records: make(map[string]*domain.KitchenDispatchRecord),
	}
}

// Dispatch assigns the next order number and emits the kitchen order.
// Calling it twice for the same call is a no-op returning the original
// record, so a call can never hold two order numbers.
func (d *Dispatcher) Dispatch(ctx context.Context, callID string, order domain.Order) (domain.KitchenDispatchRecord, error) {
	if err := order.Validate(); err != nil {
		return domain.KitchenDispatchRecord{}, err
	}

	d.mu.Lock()
	if rec, ok := d.records[callID]; ok {
		d.mu.Unlock()
		return *rec, nil
	}
	rec := domain.KitchenDispatchRecord{
		CallID:       callID,
		OrderNumber:  d.counter.Next(),
		Order:        order,
		DispatchedAt: time.Now().UTC(),
	}
	d.records[callID] = &rec
	d.mu.Unlock()

	d.lg.Info("order_dispatched", map[string]any{"call_id": callID, "order_number": rec.OrderNumber})

	if d.events != nil {
		ev := domain.NewEvent(domain.EventKitchenOrder, domain.KitchenOrderEvent{
			CallID:       rec.CallID,
			OrderNumber:  rec.OrderNumber,
			Order:        rec.Order,
			DispatchedAt: rec.DispatchedAt,
		})
		if err := d.events.Publish(ctx, ev); err != nil {
			d.lg.Error("kitchen_order_broadcast_failed", err, map[string]any{"call_id": callID})
		}
	}
	if d.pos != nil {
		if err := d.pos.SubmitOrder(ctx, rec); err != nil {
			d.lg.Error("pos_submit_failed", err, map[string]any{"call_id": callID, "order_number": rec.OrderNumber})
		}
	}
	if d.timers != nil {
		d.timers.Start(rec.OrderNumber, rec.CallID)
	}
	return rec, nil
}

// Record returns the dispatch record for a call, if it was dispatched.
func (d *Dispatcher) Record(callID string) (domain.KitchenDispatchRecord, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	rec, ok := d.records[callID]
	if !ok {
		return domain.KitchenDispatchRecord{}, false
	}
	return *rec, true
}

// Count reports how many calls have been dispatched.
func (d *Dispatcher) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.records)
}
