package errors

import "fmt"

// ErrorType represents different types of errors that can occur
type ErrorType string

const (
	ErrorTypeNetwork     ErrorType = "network"
	ErrorTypeRateLimit   ErrorType = "rate_limit"
	ErrorTypeAuth        ErrorType = "auth"
	ErrorTypeParsing     ErrorType = "parsing"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeServerError ErrorType = "server_error"
	ErrorTypeConfig      ErrorType = "config"
	ErrorTypeStorage     ErrorType = "storage"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// Error is a typed failure carrying the HTTP status (0 when there was none)
type Error struct {
	Type    ErrorType
	Message string
	Code    int
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s error (code %d): %s: %v", e.Type, e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a typed error
func New(errType ErrorType, code int, msg string) *Error {
	return &Error{Type: errType, Message: msg, Code: code}
}

// Wrap creates a typed error around a cause
func Wrap(errType ErrorType, code int, msg string, err error) *Error {
	return &Error{Type: errType, Message: msg, Code: code, Err: err}
}

// TypeOf returns the ErrorType of the first *Error in the chain, or
// ErrorTypeUnknown
func TypeOf(err error) ErrorType {
	var e *Error
	if As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}

// IsFatal reports whether an error of this type means the run cannot
// make progress no matter how often it is attempted.
func IsFatal(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeAuth, ErrorTypeConfig, ErrorTypeStorage, ErrorTypeNotFound:
		return true
	default:
		return false
	}
}

// TypeForStatus maps an HTTP status code onto an ErrorType
func TypeForStatus(statusCode int) ErrorType {
	switch {
	case statusCode == 0:
		return ErrorTypeNetwork
	case statusCode == 401 || statusCode == 403:
		return ErrorTypeAuth
	case statusCode == 404:
		return ErrorTypeNotFound
	case statusCode == 429:
		return ErrorTypeRateLimit
	case statusCode >= 500:
		return ErrorTypeServerError
	default:
		return ErrorTypeUnknown
	}
}
