package errors

import (
	"errors"
	"fmt"
)

// AppError pairs a business code with an optional client-visible detail
// and the internal cause that produced it.
type AppError struct {
	Code   int
	Detail string
	Cause  error
}

func (e *AppError) Error() string {
	msg := FormatError(e.Code, e.Detail)
	if e.Cause != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, msg, e.Cause)
	}
	return fmt.Sprintf("[%d] %s", e.Code, msg)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates an AppError for code. Only the first detail is kept.
func New(code int, detail ...string) *AppError {
	e := &AppError{Code: code}
	if len(detail) > 0 {
		e.Detail = detail[0]
	}
	return e
}

// Wrap attaches code to err. An AppError already in the chain wins, so the
// innermost classification survives re-wrapping by outer handlers.
func Wrap(err error, code int, detail ...string) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	e := New(code, detail...)
	e.Cause = err
	return e
}

// ExtractCode returns the business code of err, ErrInternalServer for plain errors.
func ExtractCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrInternalServer
}

// GetDetails returns the detail safe to show a client. Causes of 5xx codes
// are never exposed.
func GetDetails(err error) string {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return ""
	}
	if appErr.Detail != "" {
		return appErr.Detail
	}
	if appErr.Cause != nil && IsClientError(appErr.Code) {
		return appErr.Cause.Error()
	}
	return ""
}
