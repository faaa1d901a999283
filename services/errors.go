package services

import "errors"

// Error categories. Every error returned by a service matches exactly one
// of these under errors.Is.
var (
	ErrValidation   = errors.New("validation error")
	ErrUnauthorized = errors.New("unauthorized")
	ErrConflict     = errors.New("conflict")
	ErrNotFound     = errors.New("not found")
	ErrUpstream     = errors.New("upstream service error")
	ErrParse        = errors.New("parse error")
	ErrStorage      = errors.New("storage error")
	ErrNoDatabase   = errors.New("database not connected")
)

// AppError carries a category, the message shown to the caller, and the
// underlying cause when there is one.
type AppError struct {
	Kind    error
	Message string
	Err     error
}

// Error implements error.
func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Is(target error) bool { return target == e.Kind }

func (e *AppError) Unwrap() error { return e.Err }

func newError(kind error, message string, cause error) *AppError {
	return &AppError{Kind: kind, Message: message, Err: cause}
}

var errNoDatabase = newError(ErrNoDatabase, "Database not connected", nil)
