package handlers

import (
	"encoding/csv"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/backstage/services/pickaudit/internal/ingest"
	"example.com/backstage/services/pickaudit/internal/repositories"
	"example.com/backstage/services/pickaudit/internal/services"
)

// ErrorResponse defines the structure of an error response
type ErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Error represents an API error
type Error struct {
	Message    string
	StatusCode int
	Code       string
}

// Error implements the error interface
func (e *Error) Error() string {
	return e.Message
}

// Common API errors
var (
	ErrInvalidRequest     = &Error{Message: "Invalid request", StatusCode: http.StatusBadRequest, Code: "INVALID_REQUEST"}
	ErrNotFound           = &Error{Message: "Resource not found", StatusCode: http.StatusNotFound, Code: "NOT_FOUND"}
	ErrInternalServer     = &Error{Message: "Internal server error", StatusCode: http.StatusInternalServerError, Code: "INTERNAL_ERROR"}
	ErrServiceUnavailable = &Error{Message: "Service unavailable", StatusCode: http.StatusServiceUnavailable, Code: "SERVICE_UNAVAILABLE"}
	ErrPayloadTooLarge    = &Error{Message: "Upload too large", StatusCode: http.StatusRequestEntityTooLarge, Code: "PAYLOAD_TOO_LARGE"}
)

// NewError creates a new API error with custom details
func NewError(message string, statusCode int, code string) *Error {
	return &Error{
		Message:    message,
		StatusCode: statusCode,
		Code:       code,
	}
}

// NewValidationError creates a new validation error with a custom message
func NewValidationError(message string) *Error {
	return NewError(message, http.StatusBadRequest, "VALIDATION_ERROR")
}

// Classify maps service and storage errors onto API errors
func Classify(err error) *Error {
	var apiErr *Error
	var missing *ingest.MissingColumnError
	var parseErr *csv.ParseError

	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.Is(err, repositories.ErrRunNotFound):
		return NewError("Analysis run not found", http.StatusNotFound, "RUN_NOT_FOUND")
	case errors.Is(err, repositories.ErrDatasetNotFound):
		return NewError("Dataset not found", http.StatusNotFound, "DATASET_NOT_FOUND")
	case errors.Is(err, ingest.ErrUnknownKind):
		return NewError(err.Error(), http.StatusNotFound, "UNKNOWN_KIND")
	case errors.As(err, &missing), errors.Is(err, ingest.ErrEmptyTable), errors.As(err, &parseErr):
		return NewError(err.Error(), http.StatusUnprocessableEntity, "INVALID_DATASET")
	case errors.Is(err, services.ErrInvalidRequest):
		return NewValidationError(err.Error())
	case errors.Is(err, services.ErrNoPicks):
		return NewError("Upload a picks dataset first", http.StatusConflict, "NO_PICKS")
	case errors.Is(err, services.ErrRunFailed):
		return NewError(err.Error(), http.StatusConflict, "RUN_FAILED")
	case errors.Is(err, services.ErrSearchDisabled):
		return NewError("Delivery search is not configured", http.StatusServiceUnavailable, "SEARCH_DISABLED")
	}
	return nil
}

// WriteError writes an error response
func WriteError(c *gin.Context, err error) {
	if apiErr := Classify(err); apiErr != nil {
		c.AbortWithStatusJSON(apiErr.StatusCode, ErrorResponse{
			Message: apiErr.Message,
			Code:    apiErr.Code,
		})
		return
	}

	log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Unhandled error")
	c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
		Message: ErrInternalServer.Message,
		Code:    ErrInternalServer.Code,
	})
}
