package handlers

import (
	"errors"
	"net/http"

	"storyquiz-service/internal/models"

	"github.com/gin-gonic/gin"
)

// ErrorResponse writes the error envelope: a stable machine-checkable code
// plus a human-readable message. Raw upstream error bodies never reach the
// client.
func ErrorResponse(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"error":   code,
		"message": message,
	})
}

// statusForError maps a service error to its HTTP status and error code.
func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, models.ErrInvalidIdentifier):
		return http.StatusBadRequest, "INVALID_IDENTIFIER"
	case errors.Is(err, models.ErrInvalidInput):
		return http.StatusBadRequest, "INVALID_INPUT"
	case errors.Is(err, models.ErrAlreadySubmitted):
		return http.StatusBadRequest, "ALREADY_SUBMITTED"
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, models.ErrUpstreamTimeout):
		return http.StatusGatewayTimeout, "UPSTREAM_TIMEOUT"
	case errors.Is(err, models.ErrGenerationFailed):
		return http.StatusInternalServerError, "GENERATION_FAILED"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}
