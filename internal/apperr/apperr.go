// Package apperr defines the typed error every service returns to its callers.
//
// A service either returns plain data or an *Error carrying a machine-readable
// code and the HTTP status it maps to. Validation errors additionally carry
// every failing field so a form can show all problems in one render.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Codes shared across services.
const (
	CodeValidation               = "VALIDATION_ERROR"
	CodeInvalidID                = "INVALID_ID"
	CodeCandidateNotFound        = "CANDIDATE_NOT_FOUND"
	CodeDocumentNotFound         = "DOCUMENT_NOT_FOUND"
	CodeApplicationNotFound      = "APPLICATION_NOT_FOUND"
	CodeFileNotFound             = "FILE_NOT_FOUND"
	CodeDuplicateEmail           = "DUPLICATE_EMAIL"
	CodeDuplicateApplication     = "DUPLICATE_APPLICATION"
	CodeApplicationLimitExceeded = "APPLICATION_LIMIT_EXCEEDED"
	CodeStageConflict            = "STAGE_CONFLICT"
	CodeFileTooLarge             = "FILE_TOO_LARGE"
	CodeUnsupportedFileType      = "UNSUPPORTED_FILE_TYPE"
	CodeUploadError              = "UPLOAD_ERROR"
	CodeInitializationError      = "INITIALIZATION_ERROR"
	CodeServerError              = "SERVER_ERROR"
)

// FieldError describes one failing field.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error is the single error family surfaced by the service layer.
type Error struct {
	Code       string       `json:"code"`
	Message    string       `json:"message"`
	StatusCode int          `json:"-"`
	Fields     []FieldError `json:"fields,omitempty"`

	cause error
}

func (e *Error) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, strings.Join(parts, "; "))
}

// Unwrap exposes the underlying infrastructure error for logging.
func (e *Error) Unwrap() error {
	return e.cause
}

// New builds an error with an explicit status.
func New(code, message string, status int) *Error {
	return &Error{Code: code, Message: message, StatusCode: status}
}

// Validation builds a 400 carrying all field errors.
func Validation(fields []FieldError) *Error {
	return &Error{
		Code:       CodeValidation,
		Message:    "Validation failed",
		StatusCode: http.StatusBadRequest,
		Fields:     fields,
	}
}

// BadRequest builds a 400 without field detail.
func BadRequest(code, message string) *Error {
	return New(code, message, http.StatusBadRequest)
}

// NotFound builds a 404.
func NotFound(code, message string) *Error {
	return New(code, message, http.StatusNotFound)
}

// Conflict builds a 409.
func Conflict(code, message string) *Error {
	return New(code, message, http.StatusConflict)
}

// Internal builds a 500 with a generic message; cause is kept for logs only.
func Internal(code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, StatusCode: http.StatusInternalServerError, cause: cause}
}

// Wrap passes an *Error through unchanged and turns anything else into an
// Internal error with the given code and message.
func Wrap(err error, code, message string) error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(code, message, err)
}

// As extracts an *Error from err.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err is an *Error with the given code.
func HasCode(err error, code string) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == code
}

// Status returns the HTTP status for err, defaulting to 500.
func Status(err error) int {
	if appErr, ok := As(err); ok && appErr.StatusCode != 0 {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}
