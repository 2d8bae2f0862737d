package dispatch

import "sync/atomic"

// Counter issues the monotonically increasing kitchen order numbers. It is
// an explicitly owned object, not package state: two Dispatchers share a
// sequence only when constructed with the same Counter.
type Counter struct {
	n atomic.Int64
}

func NewCounter() *Counter { return &Counter{} }

// Next returns the next order number, starting at 1.
func (c *Counter) Next() int64 { return c.n.Add(1) }

// Current returns the last issued order number, 0 if none.
func (c *Counter) Current() int64 { return c.n.Load() }
