package c2

import (
	"context"
	"fmt"

	"github.com/pithecene-io/outpost/log"
	"github.com/pithecene-io/outpost/types"
)

// DetailsInternalError is reported when a handler panics or returns nothing.
const DetailsInternalError = "Internal error while handling operation"

// Handler carries out one kind of operation.
// Handlers must convert every failure into an outcome.
type Handler interface {
	Handle(ctx context.Context, op *types.Operation) *types.OperationOutcome
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, op *types.Operation) *types.OperationOutcome

// Handle calls f(ctx, op).
func (f HandlerFunc) Handle(ctx context.Context, op *types.Operation) *types.OperationOutcome {
	return f(ctx, op)
}

// Dispatcher routes operations to handlers by (operation, operand).
// Handlers are registered during setup; Dispatch is read-only afterwards.
type Dispatcher struct {
	handlers map[types.OperationKey]Handler
	logger   *log.Logger
}

// NewDispatcher creates an empty dispatcher. A nil logger discards output.
func NewDispatcher(logger *log.Logger) *Dispatcher {
	if logger == nil {
		logger = log.Nop()
	}
	return &Dispatcher{
		handlers: make(map[types.OperationKey]Handler),
		logger:   logger,
	}
}

// Register binds h to (operation, operand), replacing any previous handler.
func (d *Dispatcher) Register(operation, operand string, h Handler) {
	d.handlers[types.NewOperationKey(operation, operand)] = h
}

// Handles reports whether a handler is registered for the key.
func (d *Dispatcher) Handles(key types.OperationKey) bool {
	_, ok := d.handlers[key]
	return ok
}

// Dispatch runs the handler for op and returns its outcome.
// The returned outcome always carries op.ID.
func (d *Dispatcher) Dispatch(ctx context.Context, op *types.Operation) (out *types.OperationOutcome) {
	key := op.Key()
	h, ok := d.handlers[key]
	if !ok {
		d.logger.Warn("unsupported operation", map[string]any{
			"operation_id": op.ID,
			"operation":    op.Operation,
			"operand":      op.Operand,
		})
		return types.NotApplied(op.ID,
			fmt.Sprintf("Unsupported operation '%s' for operand '%s'", op.Operation, op.Operand))
	}

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("handler panicked", map[string]any{
				"operation_id": op.ID,
				"handler":      key.String(),
				"panic":        fmt.Sprint(r),
			})
			out = types.NotApplied(op.ID, DetailsInternalError)
		}
	}()

	out = h.Handle(ctx, op)
	if out == nil {
		return types.NotApplied(op.ID, DetailsInternalError)
	}
	out.OperationID = op.ID
	return out
}
