package store

import "fmt"

// ValidationError reports bad input to a mutation. The mutation is rejected
// before any state change, so the store is exactly as it was.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ImportError reports a malformed import payload. The import is rejected
// before any state change.
type ImportError struct {
	Err error
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("import failed: %v", e.Err)
}

func (e *ImportError) Unwrap() error {
	return e.Err
}
