package models

import "net/http"

// AppError represents an application error. ScimType, when set, is
// rendered into SCIMError.scimType by the handler layer instead of a
// second parallel error type.
type AppError struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	Details  string `json:"details,omitempty"`
	ScimType string `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	return e.Message
}

// Predefined errors
var (
	ErrUnauthorized   = &AppError{Code: http.StatusUnauthorized, Message: "Unauthorized"}
	ErrForbidden      = &AppError{Code: http.StatusForbidden, Message: "Forbidden"}
	ErrBadRequest     = &AppError{Code: http.StatusBadRequest, Message: "Bad request"}
	ErrInternalServer = &AppError{Code: http.StatusInternalServerError, Message: "Internal server error"}

	// Generic resource errors
	ErrNotFound            = &AppError{Code: http.StatusNotFound, Message: "Resource not found"}
	ErrAlreadyExists       = &AppError{Code: http.StatusConflict, Message: "Resource already exists"}
	ErrForeignKeyViolation = &AppError{Code: http.StatusBadRequest, Message: "Foreign key constraint violation"}
	ErrRequiredField       = &AppError{Code: http.StatusBadRequest, Message: "Required field is missing or null"}

	// SCIM-specific errors
	ErrVersionMismatch = &AppError{Code: http.StatusPreconditionFailed, Message: "Resource version does not match If-Match precondition"}
	ErrNotModified     = &AppError{Code: http.StatusNotModified, Message: "Resource matches If-None-Match precondition"}
	ErrTenantNotFound  = &AppError{Code: http.StatusNotFound, Message: "Unknown tenant"}
	ErrRetryable       = &AppError{Code: http.StatusInternalServerError, Message: "Operation failed after retries, please retry"}
)

// NewAppError creates a new application error
func NewAppError(code int, message string, details ...string) *AppError {
	err := &AppError{
		Code:    code,
		Message: message,
	}
	if len(details) > 0 {
		err.Details = details[0]
	}
	return err
}

// ScimError builds an AppError carrying a SCIM scimType token (RFC 7644
// 3.12), so handler dispatch can stay a single handleError(c, err) call
// while still rendering the scimType field on the wire.
func ScimError(code int, scimType, detail string) *AppError {
	return &AppError{
		Code:     code,
		Message:  http.StatusText(code),
		Details:  detail,
		ScimType: scimType,
	}
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	// HTTP error status text
	Error string `json:"error" example:"Bad Request"`
	// Human-readable error message
	Message string `json:"message" example:"Invalid request parameters"`
	// Additional error details
	Details string `json:"details,omitempty" example:"userName is required"`
}

// NewErrorResponse creates a new error response
func NewErrorResponse(err error) *ErrorResponse {
	if appErr, ok := err.(*AppError); ok {
		return &ErrorResponse{
			Error:   http.StatusText(appErr.Code),
			Message: appErr.Message,
			Details: appErr.Details,
		}
	}
	return &ErrorResponse{
		Error:   "Internal Server Error",
		Message: err.Error(),
	}
}

// MessageResponse represents a simple message response
type MessageResponse struct {
	// Response message
	Message string `json:"message" example:"Operation completed successfully"`
}
