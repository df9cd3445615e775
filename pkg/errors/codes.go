package errors

import "net/http"

// ErrorCodeInfo contains metadata about an error code.
type ErrorCodeInfo struct {
	Code            ErrorCode
	Retryable       bool
	HTTPStatus      int
	Description     string
	SuggestedAction string
}

// ErrorCodeRegistry maps error codes to their metadata.
var ErrorCodeRegistry = map[ErrorCode]ErrorCodeInfo{
	CodeEmptyContent: {
		Code:            CodeEmptyContent,
		Retryable:       false,
		HTTPStatus:      http.StatusBadRequest,
		Description:     "Transcript is empty or holds only whitespace",
		SuggestedAction: "Export the chat again and check the file is not empty",
	},
	CodeUnsupportedFormat: {
		Code:            CodeUnsupportedFormat,
		Retryable:       false,
		HTTPStatus:      http.StatusUnsupportedMediaType,
		Description:     "Input is not a plain-text or PDF chat export",
		SuggestedAction: "Provide a .txt export, a .pdf export, or pipe text on stdin with '-'",
	},
	CodeNotFound: {
		Code:            CodeNotFound,
		Retryable:       false,
		HTTPStatus:      http.StatusNotFound,
		Description:     "Transcript file does not exist",
		SuggestedAction: "Check the path passed to: chatpulse analyze <file>",
	},
	CodeReadError: {
		Code:            CodeReadError,
		Retryable:       true,
		HTTPStatus:      http.StatusInternalServerError,
		Description:     "Transcript could not be read",
		SuggestedAction: "Check file permissions and rerun with --debug for details",
	},
	CodeContentTooLarge: {
		Code:            CodeContentTooLarge,
		Retryable:       false,
		HTTPStatus:      http.StatusRequestEntityTooLarge,
		Description:     "Transcript exceeds the maximum input size",
		SuggestedAction: "Raise the limit: chatpulse config set max_input_bytes <bytes>",
	},
	CodeContextCancelled: {
		Code:            CodeContextCancelled,
		Retryable:       false,
		HTTPStatus:      499,
		Description:     "Operation cancelled by user or system",
		SuggestedAction: "Check if cancellation was intentional, or investigate upstream cancellation",
	},
	CodeTimeout: {
		Code:            CodeTimeout,
		Retryable:       true,
		HTTPStatus:      http.StatusGatewayTimeout,
		Description:     "Operation exceeded time limit",
		SuggestedAction: "Check timeout configuration: chatpulse config show",
	},
}

// IsRetryable returns true if the given error code represents a transient, retryable error.
func IsRetryable(code ErrorCode) bool {
	if info, ok := ErrorCodeRegistry[code]; ok {
		return info.Retryable
	}
	return false
}

// GetSuggestedAction returns the suggested action for the given error code.
func GetSuggestedAction(code ErrorCode) string {
	if info, ok := ErrorCodeRegistry[code]; ok {
		return info.SuggestedAction
	}
	return "Check logs for more details: rerun with --debug"
}

// GetDescription returns the human-readable description for the given error code.
func GetDescription(code ErrorCode) string {
	if info, ok := ErrorCodeRegistry[code]; ok {
		return info.Description
	}
	return "Unknown error"
}

// HTTPStatus returns the HTTP status the API responds with for code.
func HTTPStatus(code ErrorCode) int {
	if info, ok := ErrorCodeRegistry[code]; ok {
		return info.HTTPStatus
	}
	return http.StatusInternalServerError
}
