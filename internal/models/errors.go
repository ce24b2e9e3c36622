package models

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Error codes returned by the API. Every error surfaced to a caller carries
// exactly one of these so clients never see an ambiguous generic failure.
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeAuthorization      = "AUTHORIZATION_ERROR"
	CodeInvalidTransition  = "INVALID_TRANSITION"
	CodeConflict           = "CONFLICT"
	CodeNotFound           = "NOT_FOUND"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeExternalDependency = "EXTERNAL_DEPENDENCY"
	CodeInternal           = "INTERNAL_ERROR"
)

// ErrorResponse represents a standardized API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// AppError represents a custom application error
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewNotFoundError reports a missing resource.
func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s with ID %v not found", resource, id),
	}
}

// NewValidationError reports invalid or missing caller input.
func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
	}
}

// NewAuthorizationError reports that the actor's role or scope does not
// permit the attempted action.
func NewAuthorizationError(message string) *AppError {
	return &AppError{
		Code:    CodeAuthorization,
		Message: message,
	}
}

// NewInvalidTransitionError reports an illegal workflow transition from the
// request's current status.
func NewInvalidTransitionError(message string) *AppError {
	return &AppError{
		Code:    CodeInvalidTransition,
		Message: message,
	}
}

// NewConflictError reports a lost concurrent update. Retryable: the caller
// should re-fetch current state before deciding to retry.
func NewConflictError(message string) *AppError {
	return &AppError{
		Code:    CodeConflict,
		Message: message,
	}
}

// NewUnauthorizedError reports a missing or invalid credential.
func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    CodeUnauthorized,
		Message: message,
	}
}

// NewExternalDependencyError wraps a failure from an external collaborator
// (e.g. the facility snapshot write during publish).
func NewExternalDependencyError(message string, err error) *AppError {
	return &AppError{
		Code:    CodeExternalDependency,
		Message: message,
		Err:     err,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: "Internal server error",
		Err:     err,
	}
}

// RespondWithError creates a standardized error response
func RespondWithError(c *fiber.Ctx, status int, err error) error {
	var response ErrorResponse

	if appErr, ok := err.(*AppError); ok {
		response = ErrorResponse{
			Error: appErr.Message,
			Code:  appErr.Code,
		}
		if appErr.Err != nil {
			response.Details = appErr.Err.Error()
		}
	} else {
		response = ErrorResponse{
			Error: err.Error(),
		}
	}

	return c.Status(status).JSON(response)
}
