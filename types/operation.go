// Package types defines core domain types for the outpost agent.
//
//nolint:revive // types is a common Go package naming convention
package types

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// Operation verbs and operands understood by the agent.
const (
	OperationUpdate      = "update"
	OperationHeartbeat   = "heartbeat"
	OperationAcknowledge = "acknowledge"

	OperandAsset = "asset"
)

// Operation is a single directive pushed by the controller in a heartbeat
// response. Immutable once received.
type Operation struct {
	// ID is the opaque controller-assigned identifier, echoed in the acknowledgement.
	ID string `json:"operation_id" msgpack:"operation_id"`
	// Operation is the verb (e.g. "update").
	Operation string `json:"operation" msgpack:"operation"`
	// Operand is the target kind (e.g. "asset").
	Operand string `json:"operand" msgpack:"operand"`
	// Args carries operation arguments. Unknown keys are ignored by handlers.
	Args Args `json:"args,omitempty" msgpack:"args,omitempty"`
}

// Key returns the dispatch tag of the operation.
func (o *Operation) Key() OperationKey {
	return NewOperationKey(o.Operation, o.Operand)
}

// OperationKey is the (operation, operand) tag used to select a handler.
type OperationKey struct {
	Operation string
	Operand   string
}

// NewOperationKey builds a normalized (lower-cased, trimmed) key.
func NewOperationKey(operation, operand string) OperationKey {
	return OperationKey{
		Operation: strings.ToLower(strings.TrimSpace(operation)),
		Operand:   strings.ToLower(strings.TrimSpace(operand)),
	}
}

func (k OperationKey) String() string {
	return k.Operation + "/" + k.Operand
}

// Args holds operation arguments as strings.
//
// Controllers are not always strict about argument types, so decoding accepts
// scalar values of any kind and stores their string form. Null and nested
// values are dropped per key, so an unused structured argument never costs
// the whole operation.
type Args map[string]string

// Lookup returns the value for key and whether it was present and non-empty.
func (a Args) Lookup(key string) (string, bool) {
	v, ok := a[key]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Args) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	a.fromMap(raw)
	return nil
}

// DecodeMsgpack implements msgpack.CustomDecoder.
func (a *Args) DecodeMsgpack(dec *msgpack.Decoder) error {
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	a.fromMap(raw)
	return nil
}

func (a *Args) fromMap(raw map[string]any) {
	if raw == nil {
		*a = nil
		return
	}
	out := make(Args, len(raw))
	for k, v := range raw {
		if s, ok := ScalarString(v); ok {
			out[k] = s
		}
	}
	*a = out
}

// ScalarString renders a decoded scalar as a string. It returns false for
// nil and for nested values.
func ScalarString(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case []byte:
		return string(x), true
	case bool:
		return strconv.FormatBool(x), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32), true
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", x), true
	default:
		return "", false
	}
}
