package domain

import (
	"errors"
	"fmt"
)

var ErrBusClosed = errors.New("event bus closed")
var ErrUnexpectedEvent = errors.New("unexpected event payload")
var ErrSnapshotNotFound = errors.New("snapshot not found")
var ErrUnknownEventType = errors.New("unknown event type")

// UpstreamError is returned by the API client when the upstream service
// answers with a failure. Code is the HTTP status, zero for transport errors.
type UpstreamError struct {
	Code int
	Err  error
}

func (e *UpstreamError) Error() string {
	if e.Code == 0 {
		return fmt.Sprintf("upstream: %v", e.Err)
	}
	if e.Err == nil {
		return fmt.Sprintf("upstream: status %d", e.Code)
	}
	return fmt.Sprintf("upstream: status %d: %v", e.Code, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// APIErrorFrom converts a lookup failure into the API_ERROR event. Errors
// that did not come from upstream produce an event without code.
func APIErrorFrom(err error) APIError {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return APIError{Code: ue.Code, Message: err.Error()}
	}
	return APIError{Message: err.Error()}
}
