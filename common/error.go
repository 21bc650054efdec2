package common

import "fmt"

// APIError is an error with the HTTP status it should be rendered with.
// Cause is kept for errors.Is/As and logging but never sent to clients.
type APIError struct {
	Status  int            `json:"-"`
	Message string         `json:"error"`
	Fields  map[string]any `json:"fields,omitempty"`
	Cause   error          `json:"-"`
}

func (e APIError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e APIError) Unwrap() error { return e.Cause }

func Errf(status int, format string, args ...any) APIError {
	return APIError{Status: status, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a client-facing status and message to err.
func Wrap(status int, err error, message string) APIError {
	return APIError{Status: status, Message: message, Cause: err}
}

// NewAPIError creates an APIError with status, message, and optional fields
func NewAPIError(status int, message string, fields map[string]any) APIError {
	return APIError{
		Status:  status,
		Message: message,
		Fields:  fields,
	}
}
