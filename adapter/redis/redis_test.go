package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/pithecene-io/outpost/adapter"
)

func testEvent() *adapter.AssetsSyncedEvent {
	return adapter.NewAssetsSyncedEvent("edge-1", []adapter.SyncedAsset{
		{OperationID: "3", File: "my_file.txt", URL: "/api/file/A.txt"},
	}, time.Date(2026, 2, 7, 12, 0, 0, 0, time.UTC))
}

// asyncReceive reads one message in a goroutine. Call it before Publish;
// miniredis delivers pub/sub messages synchronously.
func asyncReceive(sub *miniredis.Subscriber) <-chan miniredis.PubsubMessage {
	ch := make(chan miniredis.PubsubMessage, 1)
	go func() {
		ch <- <-sub.Messages()
	}()
	return ch
}

func waitMessage(t *testing.T, ch <-chan miniredis.PubsubMessage) miniredis.PubsubMessage {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for pub/sub message")
		return miniredis.PubsubMessage{}
	}
}

func TestPublish_Channels(t *testing.T) {
	tests := []struct {
		name    string
		channel string
		want    string
	}{
		{"default", "", DefaultChannel},
		{"custom", "edge:assets", "edge:assets"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mr := miniredis.RunT(t)
			a, err := New(Config{URL: "redis://" + mr.Addr(), Channel: tt.channel})
			if err != nil {
				t.Fatalf("new: %v", err)
			}
			defer func() { _ = a.Close() }()

			sub := mr.NewSubscriber()
			sub.Subscribe(tt.want)
			ch := asyncReceive(sub)

			if err := a.Publish(t.Context(), testEvent()); err != nil {
				t.Fatalf("publish: %v", err)
			}

			msg := waitMessage(t, ch)
			if msg.Channel != tt.want {
				t.Errorf("expected channel %q, got %q", tt.want, msg.Channel)
			}
			var received adapter.AssetsSyncedEvent
			if err := json.Unmarshal([]byte(msg.Message), &received); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if received.EventType != "assets_synced" || len(received.Assets) != 1 || received.Assets[0].OperationID != "3" {
				t.Errorf("unexpected event: %+v", received)
			}
		})
	}
}

func TestPublish_Unreachable(t *testing.T) {
	a, err := New(Config{URL: "redis://127.0.0.1:1", Retries: 1, Timeout: 100 * time.Millisecond})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer func() { _ = a.Close() }()

	if err := a.Publish(t.Context(), testEvent()); err == nil {
		t.Fatal("expected error after exhausting retries")
	}
}

func TestPublish_ContextCanceled(t *testing.T) {
	a, err := New(Config{URL: "redis://127.0.0.1:1", Retries: 5, Timeout: 10 * time.Second})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer func() { _ = a.Close() }()

	ctx, cancel := context.WithTimeout(t.Context(), 100*time.Millisecond)
	defer cancel()

	if err := a.Publish(ctx, testEvent()); err == nil {
		t.Fatal("expected error on canceled context")
	}
}

func TestPublish_AfterCloseFailsFast(t *testing.T) {
	mr := miniredis.RunT(t)
	a, err := New(Config{URL: "redis://" + mr.Addr(), Retries: 3})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	start := time.Now()
	if err := a.Publish(t.Context(), testEvent()); err == nil {
		t.Fatal("expected error after close")
	}
	if elapsed := time.Since(start); elapsed > 400*time.Millisecond {
		t.Errorf("closed client should not be retried, took %v", elapsed)
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing URL", Config{}},
		{"invalid URL", Config{URL: "not-a-redis-url"}},
		{"negative retries", Config{URL: "redis://localhost:6379", Retries: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg); err == nil {
				t.Error("expected error")
			}
		})
	}

	a, err := New(Config{URL: "redis://localhost:6379"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer func() { _ = a.Close() }()
	if a.config.Channel != DefaultChannel || a.config.Timeout != DefaultTimeout {
		t.Errorf("defaults not applied: %+v", a.config)
	}
}
