package errx

import (
	"fmt"
	"sync"
)

// ErrorCode represents a registered error code
type ErrorCode struct {
	Code       string
	Type       Type
	HTTPStatus int
	Message    string
}

// Registry manages error codes for a module
type Registry struct {
	prefix string
	codes  map[string]*ErrorCode
	mu     sync.RWMutex
}

func NewRegistry(prefix string) *Registry {
	return &Registry{
		prefix: prefix,
		codes:  make(map[string]*ErrorCode),
	}
}

// Register registers a new error code. A zero httpStatus uses the type default.
func (r *Registry) Register(code string, errType Type, httpStatus int, message string) *ErrorCode {
	r.mu.Lock()
	defer r.mu.Unlock()

	if httpStatus == 0 {
		httpStatus = errType.HTTPStatus()
	}
	ec := &ErrorCode{
		Code:       fmt.Sprintf("%s_%s", r.prefix, code),
		Type:       errType,
		HTTPStatus: httpStatus,
		Message:    message,
	}
	r.codes[code] = ec
	return ec
}

func (r *Registry) New(code *ErrorCode) *Error {
	return r.NewWithMessage(code, code.Message)
}

func (r *Registry) NewWithMessage(code *ErrorCode, message string) *Error {
	return &Error{
		Code:       code.Code,
		Message:    message,
		Type:       code.Type,
		HTTPStatus: code.HTTPStatus,
		Details:    make(map[string]interface{}),
	}
}

func (r *Registry) NewWithCause(code *ErrorCode, cause error) *Error {
	e := r.New(code)
	e.Err = cause
	return e
}

func (r *Registry) Get(code string) (*ErrorCode, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ec, ok := r.codes[code]
	return ec, ok
}

// Codes returns a copy of all registered codes.
func (r *Registry) Codes() map[string]*ErrorCode {
	r.mu.RLock()
	defer r.mu.RUnlock()

	codes := make(map[string]*ErrorCode, len(r.codes))
	for k, v := range r.codes {
		codes[k] = v
	}
	return codes
}
