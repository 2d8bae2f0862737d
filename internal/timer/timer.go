package timer

import (
	"context"
	"sync"
	"time"

	"verification-system/internal/common/logger"
	"verification-system/internal/domain"
)

// Publisher receives the timer_update events. Satisfied by
// broadcast.Broadcaster.
type Publisher interface {
	Publish(ctx context.Context, ev domain.Event) error
}

// Service runs one elapsed-time broadcast loop per dispatched order. Every
// tick publishes a timer_update event until the timer is stopped.
type Service struct {
	pub  Publisher
	lg   *logger.Logger
	tick time.Duration

	mu     sync.Mutex
	active map[int64]*orderTimer
}

type orderTimer struct {
	callID    string
	startedAt time.Time
	stop      chan struct{}
	done      chan struct{}
}

func New(pub Publisher, lg *logger.Logger, tick time.Duration) *Service {
	if lg == nil {
		lg = logger.New("kitchen-timer")
	}
	if tick <= 0 {
		tick = time.Second
	}
	return &Service{pub: pub, lg: lg, tick: tick, active: make(map[int64]*orderTimer)}
}

// Start begins broadcasting elapsed time for an order. Returns false if a
// timer for this order number is already running.
func (s *Service) Start(orderNumber int64, callID string) bool {
	s.mu.Lock()
	if _, running := s.active[orderNumber]; running {
		s.mu.Unlock()
		return false
	}
	t := &orderTimer{
		callID:    callID,
		startedAt: time.Now().UTC(),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	s.active[orderNumber] = t
	s.mu.Unlock()

	s.lg.Debug("timer_started", map[string]any{"order_number": orderNumber, "call_id": callID})
	go s.run(orderNumber, t)
	return true
}

func (s *Service) run(orderNumber int64, t *orderTimer) {
	defer close(t.done)
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()
	for {
		select {
		case <-t.stop:
			return
		case now := <-ticker.C:
			ev := domain.NewEvent(domain.EventTimerUpdate, domain.TimerUpdateEvent{
				OrderNumber: orderNumber,
				CallID:      t.callID,
				ElapsedSec:  int(now.Sub(t.startedAt) / time.Second),
				Status:      "active",
			})
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			if err := s.pub.Publish(ctx, ev); err != nil {
				s.lg.Error("timer_update_failed", err, map[string]any{"order_number": orderNumber})
			}
			cancel()
		}
	}
}

// Stop halts the broadcast loop for an order. Returns false if no timer was
// running. Blocks until the loop has exited.
func (s *Service) Stop(orderNumber int64) bool {
	s.mu.Lock()
	t, ok := s.active[orderNumber]
	if ok {
		delete(s.active, orderNumber)
	}
	s.mu.Unlock()
	if !ok {
		return false
	}
	close(t.stop)
	<-t.done
	s.lg.Debug("timer_stopped", map[string]any{"order_number": orderNumber})
	return true
}

// Active lists the order numbers with running timers.
func (s *Service) Active() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int64, 0, len(s.active))
	for n := range s.active {
		out = append(out, n)
	}
	return out
}

// Shutdown stops every running timer.
func (s *Service) Shutdown() {
	for _, n := range s.Active() {
		s.Stop(n)
	}
}
