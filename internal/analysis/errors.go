package analysis

import "fmt"

// InvalidInputError reports a pixel buffer or configuration the analyzers
// cannot work with.
type InvalidInputError struct {
	Operation string
	Reason    string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("%s: invalid input: %s", e.Operation, e.Reason)
}
