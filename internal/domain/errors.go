package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates resource not found
	ErrNotFound = errors.New("resource not found")
	// ErrInvalidRequest indicates invalid request
	ErrInvalidRequest = errors.New("invalid request")
	// ErrTurnInFlight indicates a chat turn is already being processed
	// for this conversation
	ErrTurnInFlight = errors.New("a turn is already in flight")
	// ErrTurnCanceled indicates the turn was abandoned, e.g. because the
	// active dataset changed while it was running
	ErrTurnCanceled = errors.New("turn canceled")
)

// APIError is the single normalized shape for every connector failure,
// transport-level or backend-reported. Connector methods return it as the
// error value; nothing at that boundary panics or leaks raw HTTP errors.
type APIError struct {
	Status     int    `json:"status"`
	StatusText string `json:"statusText"`
	URL        string `json:"url"`
	Method     string `json:"method"`
	Message    string `json:"message"`
	Raw        string `json:"raw,omitempty"`
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s %s: %s", e.Method, e.URL, e.Message)
	}
	return fmt.Sprintf("%s %s: %d %s: %s", e.Method, e.URL, e.Status, e.StatusText, e.Message)
}

// AsAPIError unwraps err into an APIError if there is one in the chain.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
