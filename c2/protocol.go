// Package c2 implements the agent side of the command-and-control channel.
//
// The controller is a REST endpoint. The agent POSTs a heartbeat and receives
// the operations it should carry out; each operation is then acknowledged with
// a second POST. Operations are routed to handlers by a Dispatcher keyed on
// (operation, operand).
package c2

import "github.com/pithecene-io/outpost/types"

// HeartbeatRequest is the body of a heartbeat POST.
type HeartbeatRequest struct {
	Operation  string `json:"operation" msgpack:"operation"` // always "heartbeat"
	AgentID    string `json:"agent_id" msgpack:"agent_id"`
	AgentClass string `json:"agent_class,omitempty" msgpack:"agent_class,omitempty"`
	Version    string `json:"version" msgpack:"version"`
	Timestamp  string `json:"timestamp" msgpack:"timestamp"` // RFC 3339
}

// HeartbeatResponse is the controller's reply to a heartbeat.
type HeartbeatResponse struct {
	RequestedOperations []types.Operation `json:"requested_operations,omitempty" msgpack:"requested_operations,omitempty"`
}

// AcknowledgeRequest is the body of an acknowledgement POST.
type AcknowledgeRequest struct {
	Operation   string               `json:"operation" msgpack:"operation"` // always "acknowledge"
	AgentID     string               `json:"agent_id" msgpack:"agent_id"`
	OperationID string               `json:"operation_id" msgpack:"operation_id"`
	State       types.OperationState `json:"state" msgpack:"state"`
	Details     string               `json:"details,omitempty" msgpack:"details,omitempty"`
}

// heartbeatEnvelope decodes the response loosely so each operation can be
// decoded on its own.
type heartbeatEnvelope struct {
	RequestedOperations []any `json:"requested_operations" msgpack:"requested_operations"`
}
