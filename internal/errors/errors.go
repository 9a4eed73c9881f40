package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a Vellum error code.
type ErrorCode string

const (
	ErrInvalidRequest   ErrorCode = "INVALID_REQUEST"    // 400
	ErrInvalidName      ErrorCode = "INVALID_NAME"       // 400
	ErrInvalidVersionID ErrorCode = "INVALID_VERSION_ID" // 400
	ErrPathEscape       ErrorCode = "PATH_ESCAPE"        // 400
	ErrForbidden        ErrorCode = "FORBIDDEN"          // 403
	ErrNotFound         ErrorCode = "NOT_FOUND"          // 404
	ErrFileNotFound     ErrorCode = "FILE_NOT_FOUND"     // 404
	ErrConflict         ErrorCode = "CONFLICT"           // 409
	ErrDocumentTooLarge ErrorCode = "DOCUMENT_TOO_LARGE" // 413
	ErrInvalidDocument  ErrorCode = "INVALID_DOCUMENT"   // 422
	ErrCancelled        ErrorCode = "CANCELLED"          // 499
	ErrInternal         ErrorCode = "INTERNAL"           // 500
)

// VellumError represents a structured error with code, status, and details.
type VellumError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *VellumError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *VellumError) Unwrap() error {
	return e.Err
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *VellumError {
	return &VellumError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewInvalidName creates a 400 error for a view name outside the safe charset.
func NewInvalidName(name string) *VellumError {
	return &VellumError{
		Code:    ErrInvalidName,
		Status:  400,
		Message: fmt.Sprintf("invalid view name %q: must start with a letter or digit and contain only letters, digits, '_' or '-'", name),
		Details: map[string]any{"name": name},
	}
}

// NewInvalidVersionID creates a 400 error for a malformed version id.
func NewInvalidVersionID(id string) *VellumError {
	return &VellumError{
		Code:    ErrInvalidVersionID,
		Status:  400,
		Message: fmt.Sprintf("invalid version id %q", id),
		Details: map[string]any{"version_id": id},
	}
}

// NewPathEscape creates a 400 error for a computed path outside the store root.
func NewPathEscape(path, root string) *VellumError {
	return &VellumError{
		Code:    ErrPathEscape,
		Status:  400,
		Message: fmt.Sprintf("path %q resolves outside store root %q", path, root),
		Details: map[string]any{"path": path, "root": root},
	}
}

// NewForbidden creates a 403 error for a request refused regardless of its input.
func NewForbidden(msg string) *VellumError {
	return &VellumError{
		Code:    ErrForbidden,
		Status:  403,
		Message: msg,
	}
}

// NewViewNotFound creates a 404 error for a view that does not exist.
func NewViewNotFound(name string) *VellumError {
	return &VellumError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("view not found: %s", name),
		Details: map[string]any{"name": name},
	}
}

// NewVersionNotFound creates a 404 error for a version id unknown to a view.
func NewVersionNotFound(name, id string) *VellumError {
	return &VellumError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("version %s not found in view %s", id, name),
		Details: map[string]any{"name": name, "version_id": id},
	}
}

// NewFileNotFound creates a 404 error for a missing import file.
func NewFileNotFound(path string) *VellumError {
	return &VellumError{
		Code:    ErrFileNotFound,
		Status:  404,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewConflict creates a 409 error for general conflicts.
func NewConflict(msg string) *VellumError {
	return &VellumError{
		Code:    ErrConflict,
		Status:  409,
		Message: msg,
	}
}

// NewDocumentTooLarge creates a 413 error when a serialized document exceeds the size limit.
func NewDocumentTooLarge(max, actual int) *VellumError {
	return &VellumError{
		Code:    ErrDocumentTooLarge,
		Status:  413,
		Message: fmt.Sprintf("document exceeds maximum size: %d bytes (max %d)", actual, max),
		Details: map[string]any{"max_bytes": max, "actual_bytes": actual},
	}
}

// NewInvalidDocument creates a 422 error when a document lacks its required fields.
func NewInvalidDocument(problems []string) *VellumError {
	return &VellumError{
		Code:    ErrInvalidDocument,
		Status:  422,
		Message: fmt.Sprintf("invalid document: %v", problems),
		Details: map[string]any{"problems": problems},
	}
}

// NewCancelled creates a 499 error when the caller cancelled a bulk operation.
func NewCancelled(op string) *VellumError {
	return &VellumError{
		Code:    ErrCancelled,
		Status:  499,
		Message: fmt.Sprintf("%s cancelled", op),
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
// The message stays generic; the cause is kept in Details and Err for logging.
func NewInternal(err error) *VellumError {
	details := map[string]any{}
	if err != nil {
		details["internal_error"] = err.Error()
	}
	return &VellumError{
		Code:    ErrInternal,
		Status:  500,
		Message: "an internal error occurred",
		Details: details,
		Err:     err,
	}
}

// Is checks if err, or any error it wraps, is a VellumError with the given code.
func Is(err error, code ErrorCode) bool {
	var vErr *VellumError
	if stderrors.As(err, &vErr) {
		return vErr.Code == code
	}
	return false
}

// As reports whether err wraps a VellumError and returns it.
func As(err error) (*VellumError, bool) {
	var vErr *VellumError
	if stderrors.As(err, &vErr) {
		return vErr, true
	}
	return nil, false
}
