// Package adapter defines the notification boundary towards downstream
// dataflow consumers.
//
// After a batch materializes new asset content the agent publishes one
// assets_synced event so processors can reload the files they read.
// Adapters only notify; acknowledgements to the controller never depend on
// them.
package adapter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pithecene-io/outpost/types"
)

// EventTypeAssetsSynced is the event_type of AssetsSyncedEvent.
const EventTypeAssetsSynced = "assets_synced"

// SyncedAsset describes one asset rewritten in a batch.
type SyncedAsset struct {
	OperationID string `json:"operation_id"`
	File        string `json:"file"`
	URL         string `json:"url"`
}

// AssetsSyncedEvent is the payload published after a batch applied at least
// one asset update.
type AssetsSyncedEvent struct {
	ContractVersion string        `json:"contract_version"`
	EventType       string        `json:"event_type"` // always "assets_synced"
	AgentID         string        `json:"agent_id"`
	Timestamp       string        `json:"timestamp"` // RFC 3339
	Assets          []SyncedAsset `json:"assets"`
}

// NewAssetsSyncedEvent builds an event stamped with now.
func NewAssetsSyncedEvent(agentID string, assets []SyncedAsset, now time.Time) *AssetsSyncedEvent {
	return &AssetsSyncedEvent{
		ContractVersion: types.ContractVersion,
		EventType:       EventTypeAssetsSynced,
		AgentID:         agentID,
		Timestamp:       now.UTC().Format(time.RFC3339),
		Assets:          assets,
	}
}

// Adapter publishes asset events to a downstream system.
type Adapter interface {
	// Publish sends an event. Must respect context cancellation and deadlines.
	Publish(ctx context.Context, event *AssetsSyncedEvent) error

	// Close releases adapter resources.
	Close() error
}

// ErrPermanent marks a failure that retrying cannot fix.
var ErrPermanent = errors.New("permanent failure")

// Retry runs fn up to 1+retries times with exponential backoff
// (500ms, 1s, 2s, ...) between attempts. It stops early on success, on
// context cancellation, and on errors wrapping ErrPermanent.
func Retry(ctx context.Context, name string, retries int, fn func(context.Context) error) error {
	var lastErr error
	attempts := 1 + retries

	for i := range attempts {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s: context canceled: %w", name, err)
		}

		if i > 0 {
			backoff := time.Duration(1<<uint(i-1)) * 500 * time.Millisecond
			select {
			case <-ctx.Done():
				return fmt.Errorf("%s: context canceled during backoff: %w", name, ctx.Err())
			case <-time.After(backoff):
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, ErrPermanent) {
			return fmt.Errorf("%s: non-retriable error: %w", name, lastErr)
		}
	}

	return fmt.Errorf("%s: failed after %d attempts: %w", name, attempts, lastErr)
}
