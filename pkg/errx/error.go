package errx

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Error represents a rich error with context and metadata
type Error struct {
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Type       Type                   `json:"type"`
	HTTPStatus int                    `json:"http_status"`
	Details    map[string]interface{} `json:"details,omitempty"`

	// Err is the underlying cause
	Err error `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches two *Error values by code, so a registry error can be used as
// an errors.Is target.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code != "" && t.Code == e.Code
}

// WithDetail adds a detail to the error and returns the error for chaining
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

func (e *Error) WithDetails(details map[string]interface{}) *Error {
	for k, v := range details {
		e.WithDetail(k, v)
	}
	return e
}

func (e *Error) MarshalJSON() ([]byte, error) {
	type alias Error
	return json.Marshal(&struct {
		*alias
		Error string `json:"error,omitempty"`
	}{
		alias: (*alias)(e),
		Error: e.Error(),
	})
}

// New creates a new Error
func New(message string, errType Type) *Error {
	return &Error{
		Code:       string(errType),
		Message:    message,
		Type:       errType,
		HTTPStatus: errType.HTTPStatus(),
		Details:    make(map[string]interface{}),
	}
}

// Wrap wraps err with a message. An existing *Error keeps its code and details.
func Wrap(err error, message string, errType Type) *Error {
	if err == nil {
		return nil
	}

	wrapped := New(message, errType)
	wrapped.Err = err

	var existing *Error
	if errors.As(err, &existing) {
		wrapped.Code = existing.Code
		wrapped.HTTPStatus = existing.HTTPStatus
		wrapped.Details = existing.Details
	}
	return wrapped
}

func Wrapf(err error, errType Type, format string, args ...interface{}) *Error {
	return Wrap(err, fmt.Sprintf(format, args...), errType)
}

func Is(err, target error) bool {
	return errors.Is(err, target)
}

func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// TypeOf returns the type of the outermost *Error in err's chain, or
// TypeInternal when there is none.
func TypeOf(err error) Type {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return TypeInternal
}

// IsType reports whether err carries the given type.
func IsType(err error, t Type) bool {
	return err != nil && TypeOf(err) == t
}
