// Package errors provides the error types shared across chatpulse.
//
// The scoring core never fails; these errors belong to the layers around it
// (loading transcripts, configuration, the HTTP API). Sentinel errors support
// errors.Is checks and SourceError carries a classified ErrorCode.
//
// Usage:
//
//	import cperrors "github.com/otherjamesbrown/chatpulse/pkg/errors"
//
//	return "", fmt.Errorf("open transcript: %w", cperrors.ErrNotFound)
//
//	if cperrors.IsUnsupportedFormat(err) {
//	    // ask for a .txt or .pdf export
//	}
package errors

import "errors"

// Sentinel errors.
var (
	// ErrNotFound indicates the transcript file does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates invalid input or configuration.
	ErrValidation = errors.New("validation error")

	// ErrUnsupportedFormat indicates the input is not a plain-text or PDF export.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrEmptyContent indicates the input holds no text.
	ErrEmptyContent = errors.New("empty content")

	// ErrContentTooLarge indicates the input exceeds the configured size limit.
	ErrContentTooLarge = errors.New("content too large")
)

// IsNotFound reports whether any error in err's chain is ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation reports whether any error in err's chain is ErrValidation.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsUnsupportedFormat reports whether any error in err's chain is ErrUnsupportedFormat.
func IsUnsupportedFormat(err error) bool {
	return errors.Is(err, ErrUnsupportedFormat)
}

// IsEmptyContent reports whether any error in err's chain is ErrEmptyContent.
func IsEmptyContent(err error) bool {
	return errors.Is(err, ErrEmptyContent)
}

// IsContentTooLarge reports whether any error in err's chain is ErrContentTooLarge.
func IsContentTooLarge(err error) bool {
	return errors.Is(err, ErrContentTooLarge)
}
