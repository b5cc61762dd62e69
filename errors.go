package portal

import (
	"context"
	"fmt"
	"net"
	"strings"

	"github.com/goliatone/go-errors"
)

// Text codes attached to portal errors.
const (
	TextCodeNotAuthenticated = "NOT_AUTHENTICATED"
	TextCodeInvalidSession   = "INVALID_SESSION"
	TextCodeRequestFailed    = "REQUEST_FAILED"
)

// ErrNotAuthenticated is returned by operations that need a token when the
// session has none.
var ErrNotAuthenticated = errors.New("not authenticated", errors.CategoryAuth).
	WithTextCode(TextCodeNotAuthenticated).
	WithCode(errors.CodeUnauthorized)

func invalidSession(err error) error {
	return errors.Wrap(err, errors.CategoryInternal, "invalid session state").
		WithTextCode(TextCodeInvalidSession).
		WithCode(errors.CodeInternal)
}

// IsInvalidSession reports whether err comes from an undecodable session
// record.
func IsInvalidSession(err error) bool {
	var e *errors.Error
	return errors.As(err, &e) && e.TextCode == TextCodeInvalidSession
}

// ErrorKind tells where a request failed.
type ErrorKind string

const (
	// KindServer means the backend answered with a non 2xx status.
	KindServer ErrorKind = "server"
	// KindTransport means no response was received.
	KindTransport ErrorKind = "transport"
	// KindSetup means the request could not be built.
	KindSetup ErrorKind = "setup"
)

// APIError is the single failure type returned by Client.
type APIError struct {
	Kind    ErrorKind
	Method  string
	URL     string
	Status  int
	Payload *ErrorPayload
	Err     error
}

// Error returns the transport level message. The payload message, which is
// what users should see, is available through ErrorMessage.
func (e *APIError) Error() string {
	if e.Kind == KindServer {
		return fmt.Sprintf("Request failed with status code %d", e.Status)
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "request failed"
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// StatusCode is the HTTP status of a server failure, zero otherwise.
func (e *APIError) StatusCode() int {
	if e.Kind != KindServer {
		return 0
	}
	return e.Status
}

// PayloadMessage returns the backend supplied message, if any.
func (e *APIError) PayloadMessage() string {
	if e.Payload == nil {
		return ""
	}
	return strings.TrimSpace(e.Payload.Message.String())
}

// Timeout reports whether the request ran out of time.
func (e *APIError) Timeout() bool {
	if e.Kind != KindTransport || e.Err == nil {
		return false
	}
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(e.Err, &ne) && ne.Timeout()
}

// Failure is the closed set of shapes ErrorMessage understands.
type Failure interface {
	failure()
}

// APIFailure wraps an *APIError found in an error chain.
type APIFailure struct{ Err *APIError }

// ErrorFailure is any other error.
type ErrorFailure struct{ Err error }

// UnknownFailure is anything that is not an error, nil included.
type UnknownFailure struct{ Value any }

func (APIFailure) failure()     {}
func (ErrorFailure) failure()   {}
func (UnknownFailure) failure() {}

// Classify maps v to its failure variant.
func Classify(v any) Failure {
	err, ok := v.(error)
	if !ok || err == nil {
		return UnknownFailure{Value: v}
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr != nil {
		return APIFailure{Err: apiErr}
	}
	return ErrorFailure{Err: err}
}

// ErrorMessage turns any value into a message fit for display. A backend
// payload message wins over the transport message; values that are not
// errors give MsgUnexpectedError.
func ErrorMessage(v any) string {
	switch f := Classify(v).(type) {
	case APIFailure:
		if msg := f.Err.PayloadMessage(); msg != "" {
			return msg
		}
		return f.Err.Error()
	case ErrorFailure:
		return f.Err.Error()
	case UnknownFailure:
		return MsgUnexpectedError
	default:
		panic(fmt.Sprintf("portal: unhandled failure %T", f))
	}
}

// HandleError logs v according to its shape and returns a display message.
// Categorized errors keep their own message rather than the decorated
// Error() string.
func HandleError(logger Logger, v any) string {
	logger = normalizeLogger(logger)

	if err, ok := v.(error); ok && err != nil {
		var appErr *errors.Error
		if errors.As(err, &appErr) {
			logger.Error("Application Error",
				"message", appErr.Message,
				"code", appErr.Code,
				"text_code", appErr.TextCode,
				"category", appErr.Category,
			)
			return appErr.Message
		}

		logger.Error("Generic Error", "error", err.Error())
		return ErrorMessage(err)
	}

	logger.Error("Unknown Error", "value", v)
	return MsgUnexpectedError
}

// IsNetworkError reports transport failures, timeouts included.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind == KindTransport
	}

	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// StatusCode returns the HTTP status of a server error in the chain of err,
// 0 otherwise.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode()
	}
	return 0
}
