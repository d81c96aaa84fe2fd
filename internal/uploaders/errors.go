package uploaders

import (
	"errors"
	"fmt"
)

// ErrRetriesExhausted is returned when the chunked uploader gives up
// after its maximum number of transient-failure retries.
var ErrRetriesExhausted = errors.New("upload retries exhausted")

// ErrContainerTimeout is returned when a container never reaches a
// terminal state within the poll attempt budget.
var ErrContainerTimeout = errors.New("container processing timed out")

// UpstreamError is a structured rejection from a platform API. It is
// never retried.
type UpstreamError struct {
	Code    int
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s (status %d)", e.Message, e.Code)
	}
	return e.Message
}

// MissingConfigError marks a required credential field that is empty.
// It fails the attempt before any network call.
type MissingConfigError struct {
	Field string
}

func (e *MissingConfigError) Error() string {
	return fmt.Sprintf("%s is required", e.Field)
}

// StepError marks a failed browser-automation step. Screenshot is the
// path of the diagnostic capture, empty if the capture itself failed.
type StepError struct {
	Step       string
	Screenshot string
	Err        error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// retriableStatus reports whether an HTTP status signals temporary
// upstream unavailability.
func retriableStatus(status int) bool {
	switch status {
	case 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
