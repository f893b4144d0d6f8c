package camera

import (
	"errors"
	"fmt"
)

// Error codes for the acquisition pipeline. The code tells the caller
// which recovery applies: discovery/connection failures need operator
// intervention, parameter rejections are retryable with a corrected value,
// stream-state errors are call-ordering bugs, and frame timeouts are part
// of normal trigger operation.
const (
	ErrCodeDiscovery   = "DISCOVERY_FAILED"
	ErrCodeConnection  = "CONNECTION_FAILED"
	ErrCodeParameter   = "PARAMETER_REJECTED"
	ErrCodeStreamState = "STREAM_STATE"
	ErrCodeTimeout     = "FRAME_TIMEOUT"
)

// Error is a camera pipeline error with a classification code.
type Error struct {
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError builds a classified error. Exported because the acquisition
// controller shares this taxonomy.
func NewError(code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// IsCode reports whether err (or anything it wraps) carries the code.
func IsCode(err error, code string) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Code == code
}
