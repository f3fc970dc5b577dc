package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/custodia-labs/docsearch/internal/core/domain"
	"github.com/custodia-labs/docsearch/internal/logger"
)

// APIError is the JSON body of every failed request.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewBadRequestError creates a 400 error.
func NewBadRequestError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusBadRequest,
		Code:    "BAD_REQUEST",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// NewValidationError creates a 400 error for a missing or malformed field.
func NewValidationError(field string) *APIError {
	return &APIError{
		Status:  http.StatusBadRequest,
		Code:    "VALIDATION_ERROR",
		Message: fmt.Sprintf("validation failed for field: %s", field),
	}
}

// NewInternalError creates a 500 error.
func NewInternalError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusInternalServerError,
		Code:    "INTERNAL_ERROR",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// errorMapping pairs a domain error with its HTTP rendering.
type errorMapping struct {
	target error
	status int
	code   string
}

// Checked in order; the first match wins.
var domainErrors = []errorMapping{
	{domain.ErrInvalidInput, http.StatusBadRequest, "BAD_REQUEST"},
	{domain.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
	{domain.ErrPermissionDenied, http.StatusForbidden, "FORBIDDEN"},
	{domain.ErrOversizedFile, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE"},
	{domain.ErrUnsupportedFormat, http.StatusUnsupportedMediaType, "UNSUPPORTED_FORMAT"},
	{domain.ErrExtractionFailure, http.StatusUnprocessableEntity, "EXTRACTION_FAILED"},
	{domain.ErrRateLimited, http.StatusTooManyRequests, "RATE_LIMITED"},
	{domain.ErrNoVectorStore, http.StatusServiceUnavailable, "NO_VECTOR_STORE"},
	{domain.ErrEmbeddingUnavailable, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"},
	{domain.ErrLLMUnavailable, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"},
	{domain.ErrEmbeddingFailure, http.StatusServiceUnavailable, "EMBEDDING_FAILED"},
	{domain.ErrModelInvocation, http.StatusBadGateway, "MODEL_FAILED"},
}

// FromDomainError converts a service error into an APIError.
func FromDomainError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	for _, m := range domainErrors {
		if errors.Is(err, m.target) {
			return &APIError{Status: m.status, Code: m.code, Message: err.Error()}
		}
	}
	return NewInternalError("An unexpected error occurred", err)
}

// ErrorHandler renders handler errors as APIError JSON.
// Usage: e.HTTPErrorHandler = api.ErrorHandler
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var apiErr *APIError
	var httpErr *echo.HTTPError
	switch {
	case errors.As(err, &httpErr):
		apiErr = &APIError{
			Status:  httpErr.Code,
			Code:    "HTTP_ERROR",
			Message: fmt.Sprintf("%v", httpErr.Message),
		}
	default:
		apiErr = FromDomainError(err)
	}

	if apiErr.Status >= http.StatusInternalServerError {
		logger.Error("%s %s: %v", c.Request().Method, c.Request().URL.Path, err)
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(apiErr.Status)
		return
	}
	_ = c.JSON(apiErr.Status, apiErr)
}
