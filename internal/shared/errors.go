package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Download pipeline errors, one per failure class
	ErrTransport          = fmt.Errorf("transport error")
	ErrMalformedResponse  = fmt.Errorf("malformed response")
	ErrSubmissionRejected = fmt.Errorf("submission rejected")
	ErrJobFailed          = fmt.Errorf("job failed")
	ErrIO                 = fmt.Errorf("i/o error")
	ErrTimeout            = fmt.Errorf("operation timed out")
	ErrCancelled          = fmt.Errorf("operation cancelled")

	// Service and persistence errors
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrRecordNotFound     = fmt.Errorf("record not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
