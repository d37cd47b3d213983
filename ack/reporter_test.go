package ack

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/pithecene-io/outpost/metrics"
	"github.com/pithecene-io/outpost/types"
)

// StubSender records acknowledgements and fails while Err is set.
type StubSender struct {
	mu   sync.Mutex
	Err  error
	Acks []types.Acknowledgement
}

func (s *StubSender) Acknowledge(_ context.Context, ack *types.Acknowledgement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.Acks = append(s.Acks, *ack)
	return nil
}

func (s *StubSender) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Err = err
}

func (s *StubSender) ids() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, len(s.Acks))
	for i, a := range s.Acks {
		ids[i] = a.OperationID
	}
	return ids
}

var _ Sender = (*StubSender)(nil)

func TestNewAcknowledgement(t *testing.T) {
	tests := []struct {
		name string
		out  *types.OperationOutcome
		want types.Acknowledgement
	}{
		{"applied", types.Applied("3"), types.Acknowledgement{OperationID: "3", State: types.StateFullyApplied}},
		{"no-op", types.NoOperation("4"), types.Acknowledgement{OperationID: "4", State: types.StateNoOperation}},
		{
			"not applied",
			types.NotApplied("7", "Failed to fetch asset"),
			types.Acknowledgement{OperationID: "7", State: types.StateNotApplied, Details: "Failed to fetch asset"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewAcknowledgement(tt.out); *got != tt.want {
				t.Errorf("got %+v, want %+v", *got, tt.want)
			}
		})
	}
}

func TestReport_Sends(t *testing.T) {
	sender := &StubSender{}
	collector := metrics.NewCollector("edge", "json")
	r := NewReporter(sender, WithMetrics(collector))

	if err := r.Report(t.Context(), types.Applied("1")); err != nil {
		t.Fatalf("report: %v", err)
	}
	if got := sender.ids(); len(got) != 1 || got[0] != "1" {
		t.Errorf("expected [1], got %v", got)
	}
	if collector.Snapshot().AcksSent != 1 {
		t.Errorf("expected 1 ack sent, got %d", collector.Snapshot().AcksSent)
	}
}

func TestReport_FailureQueuesAndFlushRetries(t *testing.T) {
	sender := &StubSender{Err: errors.New("controller down")}
	r := NewReporter(sender)

	for _, id := range []string{"1", "2"} {
		if err := r.Report(t.Context(), types.Applied(id)); err == nil {
			t.Fatal("expected delivery error")
		}
	}
	if r.Pending() != 2 {
		t.Fatalf("expected 2 pending, got %d", r.Pending())
	}

	if n, err := r.Flush(t.Context()); err == nil || n != 0 {
		t.Errorf("expected failing flush, got n=%d err=%v", n, err)
	}
	if r.Pending() != 2 {
		t.Fatalf("expected 2 pending after failed flush, got %d", r.Pending())
	}

	sender.setErr(nil)
	n, err := r.Flush(t.Context())
	if err != nil || n != 2 {
		t.Fatalf("expected flush of 2, got n=%d err=%v", n, err)
	}
	if got := sender.ids(); len(got) != 2 || got[0] != "1" || got[1] != "2" {
		t.Errorf("expected [1 2] in order, got %v", got)
	}
	if r.Pending() != 0 {
		t.Errorf("expected empty queue, got %d", r.Pending())
	}
}

func TestReport_BoundedQueueDropsOldest(t *testing.T) {
	sender := &StubSender{Err: errors.New("down")}
	collector := metrics.NewCollector("edge", "json")
	r := NewReporter(sender, WithMaxPending(2), WithMetrics(collector))

	for _, id := range []string{"1", "2", "3"} {
		_ = r.Report(t.Context(), types.NoOperation(id))
	}
	if r.Pending() != 2 {
		t.Fatalf("expected 2 pending, got %d", r.Pending())
	}
	if collector.Snapshot().AcksDropped != 1 {
		t.Errorf("expected 1 dropped, got %d", collector.Snapshot().AcksDropped)
	}

	sender.setErr(nil)
	if _, err := r.Flush(t.Context()); err != nil {
		t.Fatal(err)
	}
	if got := sender.ids(); len(got) != 2 || got[0] != "2" || got[1] != "3" {
		t.Errorf("expected [2 3], got %v", got)
	}
}

// flakySender fails exactly on the nth call.
type flakySender struct {
	StubSender
	calls  int
	failOn int
}

func (s *flakySender) Acknowledge(ctx context.Context, ack *types.Acknowledgement) error {
	s.calls++
	if s.calls == s.failOn {
		return errors.New("transient")
	}
	return s.StubSender.Acknowledge(ctx, ack)
}

func TestFlush_PartialFailureKeepsOrder(t *testing.T) {
	sender := &flakySender{}
	r := NewReporter(sender)
	r.pending = []*types.Acknowledgement{
		{OperationID: "1", State: types.StateFullyApplied},
		{OperationID: "2", State: types.StateFullyApplied},
		{OperationID: "3", State: types.StateFullyApplied},
	}
	sender.failOn = 2

	n, err := r.Flush(t.Context())
	if err == nil || n != 1 {
		t.Fatalf("expected n=1 with error, got n=%d err=%v", n, err)
	}
	if r.Pending() != 2 || r.pending[0].OperationID != "2" {
		t.Fatalf("expected [2 3] pending, got %d", r.Pending())
	}

	if _, err := r.Flush(t.Context()); err != nil {
		t.Fatal(err)
	}
	if got := sender.ids(); len(got) != 3 || got[1] != "2" || got[2] != "3" {
		t.Errorf("expected [1 2 3], got %v", got)
	}
}
