package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error ErrorDetails `json:"error"`
}

// ErrorDetails contains the error information
type ErrorDetails struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	TraceID   string                 `json:"trace_id"`
}

// CustomError represents a custom application error
type CustomError struct {
	Code       string
	Message    string
	StatusCode int
	Details    map[string]interface{}
}

func (e CustomError) Error() string {
	return e.Message
}

// Common error codes
const (
	// Wizard precondition errors, raised before any upstream call is made
	ErrCodeFileRequired      = "FILE_REQUIRED"
	ErrCodeScopeRequired     = "CLUB_SELECTION_REQUIRED"
	ErrCodeMappingIncomplete = "MAPPING_INCOMPLETE"
	ErrCodeWizardConflict    = "WIZARD_CALL_IN_FLIGHT"
	ErrCodeWizardState       = "WIZARD_INVALID_STATE"
	ErrCodeWizardNotFound    = "WIZARD_NOT_FOUND"
	ErrCodeRowNotFound       = "ROW_NOT_FOUND"

	// General errors
	ErrCodeInternalServer   = "INTERNAL_SERVER_ERROR"
	ErrCodeBadRequest       = "BAD_REQUEST"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeValidationFailed = "VALIDATION_FAILED"
	ErrCodeDatabaseError    = "DATABASE_ERROR"
	ErrCodeExternalService  = "EXTERNAL_SERVICE_ERROR"
)

// ErrorHandler is a middleware that handles errors in a consistent way
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			err := c.Errors.Last()
			handleError(c, err.Err)
		}
	}
}

// handleError processes the error and sends appropriate response
func handleError(c *gin.Context, err error) {
	var response ErrorResponse
	var statusCode int

	traceID, exists := c.Get("trace_id")
	if !exists {
		traceID = uuid.New().String()
	}

	if customErr, ok := err.(CustomError); ok {
		statusCode = customErr.StatusCode
		response = ErrorResponse{
			Error: ErrorDetails{
				Code:      customErr.Code,
				Message:   customErr.Message,
				Details:   customErr.Details,
				Timestamp: time.Now().UTC(),
				TraceID:   traceID.(string),
			},
		}
	} else {
		statusCode = http.StatusInternalServerError
		response = ErrorResponse{
			Error: ErrorDetails{
				Code:      ErrCodeInternalServer,
				Message:   "An unexpected error occurred",
				Timestamp: time.Now().UTC(),
				TraceID:   traceID.(string),
			},
		}
	}

	logError(c, err, response.Error)

	c.JSON(statusCode, response)
}

// logError logs the error details
func logError(c *gin.Context, err error, errorDetails ErrorDetails) {
	fmt.Printf("[ERROR] TraceID: %s, Code: %s, Message: %s, Path: %s, Method: %s, Error: %v\n",
		errorDetails.TraceID,
		errorDetails.Code,
		errorDetails.Message,
		c.Request.URL.Path,
		c.Request.Method,
		err,
	)
}

// NewBadRequestError creates a new bad request error
func NewBadRequestError(message string, details map[string]interface{}) CustomError {
	return CustomError{
		Code:       ErrCodeBadRequest,
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Details:    details,
	}
}

// NewPreconditionError creates an error for a wizard precondition that
// failed before any network call was made
func NewPreconditionError(code, message string) CustomError {
	return CustomError{
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

// NewConflictError creates a new conflict error
func NewConflictError(code, message string) CustomError {
	return CustomError{
		Code:       code,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(code, resource string) CustomError {
	return CustomError{
		Code:       code,
		Message:    fmt.Sprintf("%s not found", resource),
		StatusCode: http.StatusNotFound,
	}
}

// NewForbiddenError creates a new forbidden error
func NewForbiddenError(message string) CustomError {
	return CustomError{
		Code:       ErrCodeForbidden,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

// NewDatabaseError creates a new database error
func NewDatabaseError(message string) CustomError {
	return CustomError{
		Code:       ErrCodeDatabaseError,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
	}
}

// NewExternalServiceError creates a new external service error. The
// upstream message is surfaced verbatim so the operator can act on it.
func NewExternalServiceError(service string, err error) CustomError {
	return CustomError{
		Code:       ErrCodeExternalService,
		Message:    err.Error(),
		StatusCode: http.StatusBadGateway,
		Details: map[string]interface{}{
			"service": service,
		},
	}
}
