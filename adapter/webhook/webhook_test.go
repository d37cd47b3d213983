package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pithecene-io/outpost/adapter"
	"github.com/pithecene-io/outpost/iox"
)

func testEvent() *adapter.AssetsSyncedEvent {
	return adapter.NewAssetsSyncedEvent("edge-1", []adapter.SyncedAsset{
		{OperationID: "3", File: "my_file.txt", URL: "/api/file/A.txt"},
		{OperationID: "6", File: "new_dir/inner/my_file.txt", URL: "/api/file/A.txt"},
	}, time.Date(2026, 2, 7, 12, 0, 0, 0, time.UTC))
}

func newAdapter(t *testing.T, cfg Config) *Adapter {
	t.Helper()
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	t.Cleanup(iox.CloseFunc(a))
	return a
}

func TestPublish_Success(t *testing.T) {
	var received adapter.AssetsSyncedEvent
	var auth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected application/json, got %s", ct)
		}
		auth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &received); err != nil {
			t.Errorf("unmarshal: %v", err)
		}
	}))
	defer ts.Close()

	a := newAdapter(t, Config{URL: ts.URL, Headers: map[string]string{"Authorization": "Bearer test-token"}})
	if err := a.Publish(t.Context(), testEvent()); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if received.EventType != "assets_synced" || received.AgentID != "edge-1" {
		t.Errorf("unexpected event: %+v", received)
	}
	if len(received.Assets) != 2 || received.Assets[1].File != "new_dir/inner/my_file.txt" {
		t.Errorf("unexpected assets: %+v", received.Assets)
	}
	if auth != "Bearer test-token" {
		t.Errorf("expected Bearer test-token, got %s", auth)
	}
}

func TestPublish_StatusHandling(t *testing.T) {
	tests := []struct {
		code         int
		wantErr      bool
		wantAttempts int32
	}{
		{http.StatusOK, false, 1},
		{http.StatusAccepted, false, 1},
		{http.StatusNoContent, false, 1},
		{http.StatusBadRequest, true, 1},
		{http.StatusUnauthorized, true, 1},
		{http.StatusNotFound, true, 1},
		{http.StatusInternalServerError, true, 2},
		{http.StatusServiceUnavailable, true, 2},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.code), func(t *testing.T) {
			var attempts atomic.Int32
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				attempts.Add(1)
				w.WriteHeader(tt.code)
			}))
			defer ts.Close()

			err := newAdapter(t, Config{URL: ts.URL, Retries: 1}).Publish(t.Context(), testEvent())
			if (err != nil) != tt.wantErr {
				t.Errorf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if got := attempts.Load(); got != tt.wantAttempts {
				t.Errorf("expected %d attempts, got %d", tt.wantAttempts, got)
			}
		})
	}
}

func TestPublish_RecoversAfter5xx(t *testing.T) {
	var attempts atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer ts.Close()

	if err := newAdapter(t, Config{URL: ts.URL, Retries: 3}).Publish(t.Context(), testEvent()); err != nil {
		t.Fatalf("publish should succeed after retries: %v", err)
	}
	if got := attempts.Load(); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
}

func TestPublish_ContextCanceled(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer ts.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(t.Context(), 100*time.Millisecond)
	defer cancel()

	if err := newAdapter(t, Config{URL: ts.URL}).Publish(ctx, testEvent()); err == nil {
		t.Fatal("expected error on canceled context")
	}
}

func TestNew(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("expected error for empty URL")
	}
	if _, err := New(Config{URL: "http://example.com", Retries: -1}); err == nil {
		t.Error("expected error for negative retries")
	}

	a, err := New(Config{URL: "http://example.com"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if a.config.Timeout != DefaultTimeout {
		t.Errorf("expected default timeout %v, got %v", DefaultTimeout, a.config.Timeout)
	}
}
