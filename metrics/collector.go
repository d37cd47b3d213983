// Package metrics provides agent counters.
//
// The Collector accumulates counters for the lifetime of an agent process.
// It is a leaf package with no internal dependencies. All increment methods
// are nil-receiver safe so components can run without a collector.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all counters.
type Snapshot struct {
	// Control channel
	HeartbeatsSent   int64 `json:"heartbeats_sent"`
	HeartbeatsFailed int64 `json:"heartbeats_failed"`
	BatchesProcessed int64 `json:"batches_processed"`
	BatchesDropped   int64 `json:"batches_dropped"`

	// Operations
	OperationsReceived int64            `json:"operations_received"`
	OutcomesByState    map[string]int64 `json:"outcomes_by_state"`

	// Asset engine
	FetchFailures int64 `json:"fetch_failures"`
	WriteFailures int64 `json:"write_failures"`
	BytesWritten  int64 `json:"bytes_written"`

	// Acknowledgements
	AcksSent    int64 `json:"acks_sent"`
	AcksFailed  int64 `json:"acks_failed"`
	AcksDropped int64 `json:"acks_dropped"`

	// Notifications
	NotifySuccess int64 `json:"notify_success"`
	NotifyFailure int64 `json:"notify_failure"`

	// Dimensions
	AgentID  string `json:"agent_id,omitempty"`
	Encoding string `json:"encoding,omitempty"`
}

// Collector accumulates counters. Thread-safe via sync.Mutex.
type Collector struct {
	mu sync.Mutex

	heartbeatsSent   int64
	heartbeatsFailed int64
	batchesProcessed int64
	batchesDropped   int64

	operationsReceived int64
	outcomesByState    map[string]int64

	fetchFailures int64
	writeFailures int64
	bytesWritten  int64

	acksSent    int64
	acksFailed  int64
	acksDropped int64

	notifySuccess int64
	notifyFailure int64

	agentID  string
	encoding string
}

// NewCollector creates a Collector with dimension labels.
func NewCollector(agentID, encoding string) *Collector {
	return &Collector{
		outcomesByState: make(map[string]int64),
		agentID:         agentID,
		encoding:        encoding,
	}
}

// add increments a counter under the lock.
func (c *Collector) add(field *int64, n int64) {
	c.mu.Lock()
	*field += n
	c.mu.Unlock()
}

// --- Control channel ---

// IncHeartbeatSent records a successful heartbeat exchange.
func (c *Collector) IncHeartbeatSent() {
	if c == nil {
		return
	}
	c.add(&c.heartbeatsSent, 1)
}

// IncHeartbeatFailed records a failed heartbeat exchange.
func (c *Collector) IncHeartbeatFailed() {
	if c == nil {
		return
	}
	c.add(&c.heartbeatsFailed, 1)
}

// IncBatchProcessed records a drained operation batch.
func (c *Collector) IncBatchProcessed() {
	if c == nil {
		return
	}
	c.add(&c.batchesProcessed, 1)
}

// IncBatchDropped records a batch dropped because the queue was full.
func (c *Collector) IncBatchDropped() {
	if c == nil {
		return
	}
	c.add(&c.batchesDropped, 1)
}

// --- Operations ---

// AddOperationsReceived records operations delivered by a heartbeat.
func (c *Collector) AddOperationsReceived(n int) {
	if c == nil {
		return
	}
	c.add(&c.operationsReceived, int64(n))
}

// IncOutcome records an outcome by its state string.
func (c *Collector) IncOutcome(state string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.outcomesByState[state]++
	c.mu.Unlock()
}

// --- Asset engine ---

// IncFetchFailure records a failed asset fetch.
func (c *Collector) IncFetchFailure() {
	if c == nil {
		return
	}
	c.add(&c.fetchFailures, 1)
}

// IncWriteFailure records a failed asset write.
func (c *Collector) IncWriteFailure() {
	if c == nil {
		return
	}
	c.add(&c.writeFailures, 1)
}

// AddBytesWritten records bytes committed to the asset root.
func (c *Collector) AddBytesWritten(n int) {
	if c == nil {
		return
	}
	c.add(&c.bytesWritten, int64(n))
}

// --- Acknowledgements ---

// IncAckSent records a delivered acknowledgement.
func (c *Collector) IncAckSent() {
	if c == nil {
		return
	}
	c.add(&c.acksSent, 1)
}

// IncAckFailed records a failed delivery attempt.
func (c *Collector) IncAckFailed() {
	if c == nil {
		return
	}
	c.add(&c.acksFailed, 1)
}

// IncAckDropped records an acknowledgement evicted from the pending queue.
func (c *Collector) IncAckDropped() {
	if c == nil {
		return
	}
	c.add(&c.acksDropped, 1)
}

// --- Notifications ---

// IncNotifySuccess records a published notification.
func (c *Collector) IncNotifySuccess() {
	if c == nil {
		return
	}
	c.add(&c.notifySuccess, 1)
}

// IncNotifyFailure records a failed notification.
func (c *Collector) IncNotifyFailure() {
	if c == nil {
		return
	}
	c.add(&c.notifyFailure, 1)
}

// Snapshot returns a point-in-time copy of all counters.
// Returns a zero Snapshot for a nil collector.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{OutcomesByState: map[string]int64{}}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	byState := make(map[string]int64, len(c.outcomesByState))
	for k, v := range c.outcomesByState {
		byState[k] = v
	}

	return Snapshot{
		HeartbeatsSent:     c.heartbeatsSent,
		HeartbeatsFailed:   c.heartbeatsFailed,
		BatchesProcessed:   c.batchesProcessed,
		BatchesDropped:     c.batchesDropped,
		OperationsReceived: c.operationsReceived,
		OutcomesByState:    byState,
		FetchFailures:      c.fetchFailures,
		WriteFailures:      c.writeFailures,
		BytesWritten:       c.bytesWritten,
		AcksSent:           c.acksSent,
		AcksFailed:         c.acksFailed,
		AcksDropped:        c.acksDropped,
		NotifySuccess:      c.notifySuccess,
		NotifyFailure:      c.notifyFailure,
		AgentID:            c.agentID,
		Encoding:           c.encoding,
	}
}
