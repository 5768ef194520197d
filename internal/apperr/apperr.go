// Package apperr defines the application error taxonomy.
//
// Every external-call failure is reclassified at the service boundary into a
// coded error so the HTTP layer can map it to a status and a stable
// machine-readable body without leaking internal detail.
package apperr

import (
	"errors"
	"net/http"
)

// Error codes. These are part of the API contract.
const (
	CodeInvalidFilename     = "INVALID_FILENAME"
	CodeInvalidRequest      = "INVALID_REQUEST"
	CodeInvalidVideoType    = "INVALID_VIDEO_TYPE"
	CodeConfiguration       = "CONFIGURATION_ERROR"
	CodeS3Service           = "S3_SERVICE_ERROR"
	CodeAPI                 = "API_ERROR"
	CodeSearch              = "SEARCH_ERROR"
	CodePromptNotFound      = "PROMPT_NOT_FOUND"
	CodeAgentAnalysis       = "AGENT_ANALYSIS_ERROR"
	CodePersistence         = "PERSISTENCE_ERROR"
	CodeInternal            = "INTERNAL_ERROR"
)

// Error is a classified application error with a stable machine code.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Error struct {
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a classified error without a cause.
func New(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates a classified error wrapping a cause.
func Wrap(code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf extracts the error code, or INTERNAL_ERROR for unclassified errors.
func CodeOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// HTTPStatus maps an error code to an HTTP status.
func HTTPStatus(code string) int {
	switch code {
	case CodeInvalidFilename, CodeInvalidRequest, CodeInvalidVideoType:
		return http.StatusBadRequest
	case CodeConfiguration:
		return http.StatusInternalServerError
	case CodeS3Service:
		return http.StatusServiceUnavailable
	case CodeAPI, CodeSearch, CodePromptNotFound, CodeAgentAnalysis, CodePersistence:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
