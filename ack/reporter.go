// Package ack turns operation outcomes into acknowledgements and delivers
// them to the controller.
//
// Delivery that fails is kept in a bounded in-memory queue and retried by
// Flush. Nothing is persisted; after a restart the controller's at-least-once
// delivery re-sends unacknowledged operations.
package ack

import (
	"context"
	"fmt"
	"sync"

	"github.com/pithecene-io/outpost/log"
	"github.com/pithecene-io/outpost/metrics"
	"github.com/pithecene-io/outpost/types"
)

// DefaultMaxPending bounds the retry queue.
const DefaultMaxPending = 256

// Sender delivers one acknowledgement. c2.Client implements it.
type Sender interface {
	Acknowledge(ctx context.Context, ack *types.Acknowledgement) error
}

// NewAcknowledgement maps an outcome to its wire form.
// The operation id is echoed exactly. Empty details stay empty.
func NewAcknowledgement(out *types.OperationOutcome) *types.Acknowledgement {
	return &types.Acknowledgement{
		OperationID: out.OperationID,
		State:       out.State,
		Details:     out.Details,
	}
}

// Reporter sends acknowledgements and retries failed ones.
type Reporter struct {
	sender     Sender
	maxPending int
	logger     *log.Logger
	metrics    *metrics.Collector

	mu      sync.Mutex // guards pending
	pending []*types.Acknowledgement
}

// Option configures a Reporter.
type Option func(*Reporter)

// WithMaxPending bounds the retry queue. Values <= 0 keep the default.
func WithMaxPending(n int) Option {
	return func(r *Reporter) {
		if n > 0 {
			r.maxPending = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(r *Reporter) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(c *metrics.Collector) Option {
	return func(r *Reporter) { r.metrics = c }
}

// NewReporter creates a Reporter sending through sender.
func NewReporter(sender Sender, opts ...Option) *Reporter {
	r := &Reporter{
		sender:     sender,
		maxPending: DefaultMaxPending,
		logger:     log.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Report acknowledges one outcome. On failure the acknowledgement is queued
// for Flush and the delivery error is returned.
func (r *Reporter) Report(ctx context.Context, out *types.OperationOutcome) error {
	ack := NewAcknowledgement(out)
	if err := r.send(ctx, ack); err != nil {
		r.enqueue(ack)
		return err
	}
	return nil
}

// Flush retries queued acknowledgements in order. It stops at the first
// failure, leaving that acknowledgement and the rest queued, and returns the
// number delivered.
func (r *Reporter) Flush(ctx context.Context) (int, error) {
	r.mu.Lock()
	queued := r.pending
	r.pending = nil
	r.mu.Unlock()

	for i, ack := range queued {
		if err := r.send(ctx, ack); err != nil {
			r.requeue(queued[i:])
			return i, err
		}
	}
	return len(queued), nil
}

// Pending returns the number of queued acknowledgements.
func (r *Reporter) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

func (r *Reporter) send(ctx context.Context, ack *types.Acknowledgement) error {
	if err := r.sender.Acknowledge(ctx, ack); err != nil {
		r.metrics.IncAckFailed()
		r.logger.Warn("acknowledgement failed", map[string]any{
			"operation_id": ack.OperationID,
			"state":        string(ack.State),
			"error":        err.Error(),
		})
		return fmt.Errorf("acknowledge %s: %w", ack.OperationID, err)
	}
	r.metrics.IncAckSent()
	r.logger.Debug("acknowledged", map[string]any{
		"operation_id": ack.OperationID,
		"state":        string(ack.State),
	})
	return nil
}

func (r *Reporter) enqueue(ack *types.Acknowledgement) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = append(r.pending, ack)
	r.trimLocked()
}

// requeue puts undelivered acknowledgements back in front of anything queued
// since Flush started.
func (r *Reporter) requeue(acks []*types.Acknowledgement) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = append(append([]*types.Acknowledgement(nil), acks...), r.pending...)
	r.trimLocked()
}

// trimLocked drops the oldest entries above the bound. Caller holds r.mu.
func (r *Reporter) trimLocked() {
	over := len(r.pending) - r.maxPending
	if over <= 0 {
		return
	}
	for _, dropped := range r.pending[:over] {
		r.metrics.IncAckDropped()
		r.logger.Warn("dropping pending acknowledgement", map[string]any{
			"operation_id": dropped.OperationID,
			"state":        string(dropped.State),
		})
	}
	r.pending = append([]*types.Acknowledgement(nil), r.pending[over:]...)
}
