package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/desertthunder/downcida/internal/shared"
)

// ErrorKind classifies a failed download.
type ErrorKind int

const (
	TransportError ErrorKind = iota
	MalformedResponse
	SubmissionRejected
	JobFailed
	IOError
	Timeout
	Cancelled
)

// String returns the snake_case name used in logs and history records.
func (k ErrorKind) String() string {
	switch k {
	case TransportError:
		return "transport_error"
	case MalformedResponse:
		return "malformed_response"
	case SubmissionRejected:
		return "submission_rejected"
	case JobFailed:
		return "job_failed"
	case IOError:
		return "io_error"
	case Timeout:
		return "timeout"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case TransportError:
		return shared.ErrTransport
	case MalformedResponse:
		return shared.ErrMalformedResponse
	case SubmissionRejected:
		return shared.ErrSubmissionRejected
	case JobFailed:
		return shared.ErrJobFailed
	case IOError:
		return shared.ErrIO
	case Timeout:
		return shared.ErrTimeout
	case Cancelled:
		return shared.ErrCancelled
	default:
		return nil
	}
}

// DownloadError is returned by every [Client] operation that fails after input validation.
//
// Message carries the server's own text when the API supplied one.
type DownloadError struct {
	Kind    ErrorKind
	Message string
	Cause   error
	Context map[string]any
}

// NewDownloadError creates a DownloadError of the given kind.
func NewDownloadError(kind ErrorKind, message string) *DownloadError {
	return &DownloadError{Kind: kind, Message: message}
}

// NewDownloadErrorWithCause creates a DownloadError wrapping cause.
func NewDownloadErrorWithCause(kind ErrorKind, message string, cause error) *DownloadError {
	return &DownloadError{Kind: kind, Message: message, Cause: cause}
}

// Error implements the error interface
func (e *DownloadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause.
func (e *DownloadError) Unwrap() error {
	return e.Cause
}

// Is matches the shared sentinel for the error's kind, e.g. [shared.ErrJobFailed].
func (e *DownloadError) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// WithContext attaches a key/value for logging.
func (e *DownloadError) WithContext(key string, value any) *DownloadError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// KindOf extracts the [ErrorKind] of err, reporting false when err is not a [DownloadError].
func KindOf(err error) (ErrorKind, bool) {
	var de *DownloadError
	if errors.As(err, &de) {
		return de.Kind, true
	}
	return 0, false
}

// IsKind reports whether err is a [DownloadError] of any of the given kinds.
func IsKind(err error, kinds ...ErrorKind) bool {
	kind, ok := KindOf(err)
	if !ok {
		return false
	}
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// requestError classifies a failed HTTP exchange. Context expiry and cancellation win over the transport cause.
func requestError(ctx context.Context, message string, err error) *DownloadError {
	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		return NewDownloadErrorWithCause(Cancelled, message, ctx.Err())
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return NewDownloadErrorWithCause(Timeout, message, ctx.Err())
	default:
		return NewDownloadErrorWithCause(TransportError, message, err)
	}
}
