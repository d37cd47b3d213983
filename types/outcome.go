package types

// OperationState is the result state reported to the controller.
type OperationState string

const (
	// StateFullyApplied indicates the directive was carried out.
	StateFullyApplied OperationState = "FULLY_APPLIED"
	// StateNotApplied indicates the directive was rejected or failed.
	StateNotApplied OperationState = "NOT_APPLIED"
	// StateNoOperation indicates the directive was already satisfied.
	StateNoOperation OperationState = "NO_OPERATION"
)

// IsValid reports whether s is one of the three protocol states.
func (s OperationState) IsValid() bool {
	switch s {
	case StateFullyApplied, StateNotApplied, StateNoOperation:
		return true
	}
	return false
}

// OperationOutcome is the result of handling one Operation.
// For asset updates this is the asset update outcome.
type OperationOutcome struct {
	OperationID string
	State       OperationState
	// Details is empty when there is nothing to report.
	Details string
}

// Applied returns a FULLY_APPLIED outcome.
func Applied(operationID string) *OperationOutcome {
	return &OperationOutcome{OperationID: operationID, State: StateFullyApplied}
}

// NoOperation returns a NO_OPERATION outcome.
func NoOperation(operationID string) *OperationOutcome {
	return &OperationOutcome{OperationID: operationID, State: StateNoOperation}
}

// NotApplied returns a NOT_APPLIED outcome with details.
func NotApplied(operationID, details string) *OperationOutcome {
	return &OperationOutcome{OperationID: operationID, State: StateNotApplied, Details: details}
}

// Acknowledgement is the wire form of an OperationOutcome.
type Acknowledgement struct {
	OperationID string         `json:"operation_id" msgpack:"operation_id"`
	State       OperationState `json:"state" msgpack:"state"`
	Details     string         `json:"details,omitempty" msgpack:"details,omitempty"`
}
