package agent

import "fmt"

// ModelError wraps a failure to reach or read the language model. The
// turn cannot proceed; the caller should surface the failure rather
// than retry blindly.
type ModelError struct {
	Iteration int
	Err       error
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("model call failed (iteration %d): %v", e.Iteration, e.Err)
}

func (e *ModelError) Unwrap() error { return e.Err }

// IterationLimitError reports that the turn exceeded its iteration
// bound. This is fatal for the turn: the model kept requesting tools
// without producing a final answer. Summary carries the model's forced
// closing statement when one could be obtained; Err is set when even
// that call failed.
type IterationLimitError struct {
	Iterations int
	Summary    string
	Err        error
}

func (e *IterationLimitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("iteration limit (%d) reached and final response failed: %v", e.Iterations, e.Err)
	}
	return fmt.Sprintf("iteration limit (%d) reached without a final response", e.Iterations)
}

func (e *IterationLimitError) Unwrap() error { return e.Err }
