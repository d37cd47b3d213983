// Package asset implements the asset synchronization engine.
//
// An "update asset" operation is handled in fixed steps:
//  1. ResolveOperation validates the arguments
//  2. ValidatePath rejects paths that could escape the asset root
//  3. the source is fetched through a Fetcher under a bounded timeout
//  4. unchanged content without force is reported as NO_OPERATION
//  5. Store.Write atomically replaces the file
//
// Every failure is converted into an OperationOutcome; nothing escapes Apply.
package asset

import (
	"context"
	"errors"
	"time"

	"github.com/pithecene-io/outpost/log"
	"github.com/pithecene-io/outpost/metrics"
	"github.com/pithecene-io/outpost/types"
)

// DefaultFetchTimeout bounds a single fetch when no timeout is configured.
const DefaultFetchTimeout = 30 * time.Second

// Synchronizer applies "update asset" operations against a Store.
//
// Apply is meant to be called by a single consumer; operations are applied
// one at a time in arrival order. The Synchronizer itself holds no mutable
// state.
type Synchronizer struct {
	store        *Store
	fetcher      Fetcher
	fetchTimeout time.Duration
	logger       *log.Logger
	metrics      *metrics.Collector
}

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithFetchTimeout bounds each fetch. Zero or negative keeps the default.
func WithFetchTimeout(d time.Duration) Option {
	return func(s *Synchronizer) {
		if d > 0 {
			s.fetchTimeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Synchronizer) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(c *metrics.Collector) Option {
	return func(s *Synchronizer) { s.metrics = c }
}

// NewSynchronizer creates a Synchronizer.
func NewSynchronizer(store *Store, fetcher Fetcher, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		store:        store,
		fetcher:      fetcher,
		fetchTimeout: DefaultFetchTimeout,
		logger:       log.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Apply handles one operation and returns its outcome.
//
// Content identity is decided by fetching the source and comparing it with
// the file on disk. With force set the comparison is skipped, so a forced
// update is always rewritten and never reported as NO_OPERATION.
func (s *Synchronizer) Apply(ctx context.Context, op *types.Operation) *types.OperationOutcome {
	req, err := ResolveOperation(op)
	if err != nil {
		s.logger.Warn("asset update rejected", map[string]any{
			"operation_id": op.ID,
			"error":        err.Error(),
		})
		return types.NotApplied(op.ID, err.Error())
	}

	fields := map[string]any{
		"operation_id": op.ID,
		"file":         req.RelativePath,
		"url":          req.SourceURL,
		"force":        req.Force,
	}

	if err := ValidatePath(req.RelativePath); err != nil {
		var pathErr *PathSafetyError
		if errors.As(err, &pathErr) {
			fields["reason"] = pathErr.Reason
		}
		s.logger.Warn("asset path rejected", fields)
		return types.NotApplied(op.ID, err.Error())
	}

	data, err := s.fetch(ctx, req.SourceURL)
	if err != nil {
		s.metrics.IncFetchFailure()
		fields["error"] = err.Error()
		s.logger.Warn("asset fetch failed", fields)
		return types.NotApplied(op.ID, DetailsFetchFailed)
	}

	if !req.Force {
		matches, err := s.store.ContentMatches(req.RelativePath, data)
		if err != nil {
			// Could not read the current file; fall through and overwrite it.
			fields["compare_error"] = err.Error()
			s.logger.Debug("asset compare failed", fields)
		}
		if matches {
			s.logger.Debug("asset unchanged", fields)
			return types.NoOperation(op.ID)
		}
	}

	if err := s.store.Write(req.RelativePath, data); err != nil {
		s.metrics.IncWriteFailure()
		fields["error"] = err.Error()
		s.logger.Error("asset write failed", fields)
		return types.NotApplied(op.ID, writeDetails(err))
	}

	s.metrics.AddBytesWritten(len(data))
	fields["bytes"] = len(data)
	s.logger.Info("asset updated", fields)
	return types.Applied(op.ID)
}

// fetch runs the fetcher under the configured timeout. A context expiry is
// reported as a timeout FetchError so callers see a single failure shape.
func (s *Synchronizer) fetch(ctx context.Context, url string) ([]byte, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	data, err := s.fetcher.Fetch(fetchCtx, url)
	if err != nil {
		if fetchCtx.Err() != nil {
			var fetchErr *FetchError
			if !errors.As(err, &fetchErr) {
				return nil, &FetchError{Kind: FetchTimeout, URL: url, Err: err}
			}
		}
		return nil, err
	}
	return data, nil
}

func writeDetails(err error) string {
	var writeErr *WriteError
	if errors.As(err, &writeErr) {
		return writeErr.Details()
	}
	var pathErr *PathSafetyError
	if errors.As(err, &pathErr) {
		return pathErr.Error()
	}
	return detailsWritePrefix + ": " + err.Error()
}
