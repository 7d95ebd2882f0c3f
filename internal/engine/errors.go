// internal/engine/errors.go
package engine

import (
	"fmt"
)

// RequestError ties a failure to the request that caused it, so run
// summaries can say which URL failed and why.
type RequestError struct {
	RequestID string
	URL       string
	Err       error
}

// Error implements the error interface
func (e *RequestError) Error() string {
	return fmt.Sprintf("[%s] %s: %v", e.RequestID, e.URL, e.Err)
}

// Unwrap returns the underlying error
func (e *RequestError) Unwrap() error {
	return e.Err
}

func errorFromPanic(r interface{}) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("panic: %v", r)
}
