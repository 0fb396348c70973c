package tools

import "fmt"

// ValidationError reports a call that never reached its handler: the
// named tool does not exist, or the arguments failed the tool's schema.
// The executor converts it into the call's result so the model can
// correct itself and retry.
type ValidationError struct {
	Tool   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Tool, e.Reason)
}

// HandlerError reports a handler that ran and failed, typically a
// storage write, a network call, or a timeout. Treated like a
// validation failure: it becomes the call's result, never a fault.
type HandlerError struct {
	Tool string
	Err  error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("%s: %v", e.Tool, e.Err)
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}
