// Package agent runs the heartbeat control loop.
//
// A producer goroutine heartbeats on a ticker and queues each non-empty batch
// of operations on a bounded channel. A single consumer drains the channel in
// order, so only one synchronization pass touches the asset root at a time.
// For each batch the consumer flushes undelivered acknowledgements, dispatches
// the operations in arrival order, acknowledges each outcome and finally
// publishes one assets_synced notification if anything was rewritten.
package agent

import (
	"context"
	"sync"
	"time"

	"github.com/pithecene-io/outpost/ack"
	"github.com/pithecene-io/outpost/adapter"
	"github.com/pithecene-io/outpost/asset"
	"github.com/pithecene-io/outpost/c2"
	"github.com/pithecene-io/outpost/log"
	"github.com/pithecene-io/outpost/metrics"
	"github.com/pithecene-io/outpost/types"
)

// Defaults for Config.
const (
	DefaultHeartbeatPeriod = time.Second
	DefaultQueueSize       = 16
)

// Heartbeater polls the controller for operations. c2.Client implements it.
type Heartbeater interface {
	Heartbeat(ctx context.Context) ([]types.Operation, error)
}

// Config configures the control loop.
type Config struct {
	// AgentID is stamped on notifications.
	AgentID string
	// HeartbeatPeriod is the heartbeat interval (default 1s).
	HeartbeatPeriod time.Duration
	// QueueSize bounds the batches waiting for the consumer (default 16).
	QueueSize int
}

// Agent wires the heartbeat source, dispatcher and reporter together.
type Agent struct {
	config     Config
	heartbeat  Heartbeater
	dispatcher *c2.Dispatcher
	reporter   *ack.Reporter
	notifier   adapter.Adapter
	logger     *log.Logger
	metrics    *metrics.Collector
	now        func() time.Time
}

// Option configures an Agent.
type Option func(*Agent)

// WithNotifier publishes assets_synced events through n.
func WithNotifier(n adapter.Adapter) Option {
	return func(a *Agent) { a.notifier = n }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(a *Agent) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(c *metrics.Collector) Option {
	return func(a *Agent) { a.metrics = c }
}

// New creates an Agent.
func New(cfg Config, hb Heartbeater, dispatcher *c2.Dispatcher, reporter *ack.Reporter, opts ...Option) *Agent {
	if cfg.HeartbeatPeriod <= 0 {
		cfg.HeartbeatPeriod = DefaultHeartbeatPeriod
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	a := &Agent{
		config:     cfg,
		heartbeat:  hb,
		dispatcher: dispatcher,
		reporter:   reporter,
		logger:     log.Nop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run heartbeats until ctx is canceled. The batch being processed when ctx
// is canceled runs its current operation to completion; queued batches are
// abandoned and re-sent by the controller.
func (a *Agent) Run(ctx context.Context) error {
	queue := make(chan []types.Operation, a.config.QueueSize)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.consume(ctx, queue)
	}()

	a.logger.Info("control loop started", map[string]any{
		"heartbeat_period": a.config.HeartbeatPeriod.String(),
		"queue_size":       a.config.QueueSize,
	})

	ticker := time.NewTicker(a.config.HeartbeatPeriod)
	defer ticker.Stop()

	for {
		a.poll(ctx, queue)
		select {
		case <-ctx.Done():
			close(queue)
			wg.Wait()
			a.logger.Info("control loop stopped", nil)
			return nil
		case <-ticker.C:
		}
	}
}

// poll runs one heartbeat and queues the batch without blocking.
func (a *Agent) poll(ctx context.Context, queue chan<- []types.Operation) {
	ops, err := a.heartbeat.Heartbeat(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		a.metrics.IncHeartbeatFailed()
		a.logger.Warn("heartbeat failed", map[string]any{"error": err.Error()})
		return
	}
	a.metrics.IncHeartbeatSent()
	if len(ops) == 0 {
		return
	}

	select {
	case queue <- ops:
	default:
		a.metrics.IncBatchDropped()
		a.logger.Warn("operation queue full, dropping batch", map[string]any{
			"operations": len(ops),
			"queue_size": a.config.QueueSize,
		})
	}
}

func (a *Agent) consume(ctx context.Context, queue <-chan []types.Operation) {
	for batch := range queue {
		if ctx.Err() != nil {
			continue
		}
		a.ProcessBatch(ctx, batch)
	}
}

// ProcessBatch handles one batch in order and returns an outcome per
// processed operation. If ctx is canceled, processing stops between
// operations; the operation in progress is never interrupted.
func (a *Agent) ProcessBatch(ctx context.Context, ops []types.Operation) []*types.OperationOutcome {
	// Operations and their acknowledgements run to completion.
	opCtx := context.WithoutCancel(ctx)

	if a.reporter.Pending() > 0 {
		if n, err := a.reporter.Flush(opCtx); err != nil {
			a.logger.Warn("pending acknowledgements not flushed", map[string]any{
				"delivered": n,
				"pending":   a.reporter.Pending(),
			})
		}
	}

	a.metrics.AddOperationsReceived(len(ops))
	outcomes := make([]*types.OperationOutcome, 0, len(ops))
	var synced []adapter.SyncedAsset

	for i := range ops {
		if ctx.Err() != nil {
			a.logger.Info("batch interrupted", map[string]any{
				"processed": i,
				"remaining": len(ops) - i,
			})
			break
		}
		op := &ops[i]

		out := a.dispatcher.Dispatch(opCtx, op)
		outcomes = append(outcomes, out)
		a.metrics.IncOutcome(string(out.State))

		// Delivery failures are queued by the reporter and logged there.
		_ = a.reporter.Report(opCtx, out)

		if out.State == types.StateFullyApplied && op.Key() == assetUpdateKey {
			synced = append(synced, adapter.SyncedAsset{
				OperationID: op.ID,
				File:        op.Args[asset.ArgFile],
				URL:         op.Args[asset.ArgURL],
			})
		}
	}

	a.metrics.IncBatchProcessed()
	a.notify(opCtx, synced)
	return outcomes
}

var assetUpdateKey = types.NewOperationKey(types.OperationUpdate, types.OperandAsset)

func (a *Agent) notify(ctx context.Context, synced []adapter.SyncedAsset) {
	if a.notifier == nil || len(synced) == 0 {
		return
	}
	event := adapter.NewAssetsSyncedEvent(a.config.AgentID, synced, a.now())
	if err := a.notifier.Publish(ctx, event); err != nil {
		a.metrics.IncNotifyFailure()
		a.logger.Warn("assets_synced notification failed", map[string]any{
			"assets": len(synced),
			"error":  err.Error(),
		})
		return
	}
	a.metrics.IncNotifySuccess()
}
