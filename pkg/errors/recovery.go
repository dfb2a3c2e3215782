package errors

import (
	"errors"
	"fmt"
	"runtime/debug"
)

// ErrPanic is in the cause chain of every error built by RecoverPanic.
var ErrPanic = errors.New("panic")

// RecoverPanic converts a value returned by recover() into a fatal internal
// error. The stack is kept in the details for logging; Error() leaves it out.
func RecoverPanic(r interface{}) error {
	if r == nil {
		return nil
	}

	var cause error
	if err, ok := r.(error); ok {
		cause = fmt.Errorf("%w: %w", ErrPanic, err)
	} else {
		cause = fmt.Errorf("%w: %v", ErrPanic, r)
	}

	return ErrInternal.
		WithCause(cause).
		WithDetails(map[string]interface{}{
			"panic":       true,
			"stack_trace": string(debug.Stack()),
		}).
		AsFatal()
}
