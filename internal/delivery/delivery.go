// Package delivery implements the Event Delivery primitive:
// invoke an action with bounded retries and exponential backoff, optionally
// gated by a confirmation predicate.
//
// Grounded on internal/agent/agent.go's sendWithRetry/retrySend: a select on
// time.After versus ctx.Done(), doubling the wait each attempt.
package delivery

import (
	"context"
	"sync/atomic"
	"time"
)

// Action is the effect to retry. A non-nil error counts as a failed attempt.
type Action func(ctx context.Context) error

// Confirm, if set, must return true for an attempt to count as delivered
// even when Action itself did not error.
type Confirm func() bool

// Config configures one Delivery instance.
type Config struct {
	MaxRetries  int // additional attempts beyond the first
	BaseDelay   time.Duration
	Confirm     Confirm
	OnExhausted func()
	OnDelivered func()
}

// Delivery invokes Action up to Config.MaxRetries+1 times with exponential
// backoff, tracking monotonic delivered/failed counters.
type Delivery struct {
	cfg Config

	delivered atomic.Int64
	failed    atomic.Int64
}

// New builds a Delivery from cfg.
func New(cfg Config) *Delivery {
	return &Delivery{cfg: cfg}
}

// DeliveredCount is the number of confirmed deliveries across all Deliver calls.
func (d *Delivery) DeliveredCount() int64 { return d.delivered.Load() }

// FailedCount is the number of exhausted (unconfirmed) Deliver calls.
func (d *Delivery) FailedCount() int64 { return d.failed.Load() }

// Deliver runs action, retrying on error or failed confirmation up to
// MaxRetries additional times, sleeping BaseDelay*2^attempt between
// attempts. Returns true on confirmed delivery, false on exhaustion. No
// delay is added after the final attempt.
func (d *Delivery) Deliver(ctx context.Context, action Action) bool {
	attempts := d.cfg.MaxRetries + 1
	for attempt := 0; attempt < attempts; attempt++ {
		err := action(ctx)
		if err == nil && (d.cfg.Confirm == nil || d.cfg.Confirm()) {
			d.delivered.Add(1)
			if d.cfg.OnDelivered != nil {
				d.cfg.OnDelivered()
			}
			return true
		}

		if attempt == attempts-1 {
			break
		}

		wait := d.cfg.BaseDelay * time.Duration(1<<uint(attempt))
		select {
		case <-ctx.Done():
			d.failed.Add(1)
			return false
		case <-time.After(wait):
		}
	}

	d.failed.Add(1)
	if d.cfg.OnExhausted != nil {
		d.cfg.OnExhausted()
	}
	return false
}
