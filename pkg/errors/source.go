package errors

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
)

// ErrorCode classifies a failure to acquire transcript text.
type ErrorCode string

const (
	CodeEmptyContent      ErrorCode = "empty_content"
	CodeUnsupportedFormat ErrorCode = "unsupported_format"
	CodeNotFound          ErrorCode = "not_found"
	CodeReadError         ErrorCode = "read_error"
	CodeContentTooLarge   ErrorCode = "content_too_large"
	CodeContextCancelled  ErrorCode = "context_cancelled"
	CodeTimeout           ErrorCode = "timeout"
)

// SourceError is a classified failure while loading a transcript.
type SourceError struct {
	Code    ErrorCode
	Path    string
	Message string
	Cause   error
}

func (e *SourceError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Path, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *SourceError) Unwrap() error {
	return e.Cause
}

// NewSourceError builds a SourceError whose message is taken from cause.
func NewSourceError(code ErrorCode, path string, cause error) *SourceError {
	msg := GetDescription(code)
	if cause != nil {
		msg = cause.Error()
	}
	return &SourceError{Code: code, Path: path, Message: msg, Cause: cause}
}

// ClassifyError wraps err in a *SourceError with a code derived from its
// chain. An err that already is a SourceError is returned unchanged.
func ClassifyError(err error, path string) *SourceError {
	if err == nil {
		return nil
	}

	var se *SourceError
	if errors.As(err, &se) {
		return se
	}

	se = &SourceError{Path: path, Message: err.Error(), Cause: err}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		se.Code = CodeTimeout
		se.Message = "operation timed out"
	case errors.Is(err, context.Canceled):
		se.Code = CodeContextCancelled
		se.Message = "operation cancelled"
	case errors.Is(err, ErrEmptyContent):
		se.Code = CodeEmptyContent
	case errors.Is(err, ErrUnsupportedFormat):
		se.Code = CodeUnsupportedFormat
	case errors.Is(err, ErrContentTooLarge):
		se.Code = CodeContentTooLarge
	case errors.Is(err, ErrNotFound), errors.Is(err, fs.ErrNotExist):
		se.Code = CodeNotFound
	default:
		se.Code = CodeReadError
	}
	return se
}

// CodeOf returns the classified code of err, or "" for nil.
func CodeOf(err error) ErrorCode {
	if se := ClassifyError(err, ""); se != nil {
		return se.Code
	}
	return ""
}

// IsTimeout returns true if the error is a timeout error.
func IsTimeout(err error) bool {
	return err != nil && CodeOf(err) == CodeTimeout
}

// IsErrorRetryable returns true if the error is likely transient and worth retrying.
func IsErrorRetryable(err error) bool {
	if err == nil {
		return false
	}
	return IsRetryable(CodeOf(err))
}
