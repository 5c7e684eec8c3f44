package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "trade-journal/internal/errors"
	"trade-journal/internal/logging"
)

// errorResponse is the body of every failed request.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// statusOf maps a domain error to an HTTP status and error code.
func statusOf(err error) (int, string) {
	switch {
	case apperrors.Is(err, apperrors.ErrInputValidation):
		return http.StatusBadRequest, "validation_error"
	case apperrors.Is(err, apperrors.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid_credentials"
	case apperrors.Is(err, apperrors.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case apperrors.Is(err, apperrors.ErrPlanLimit):
		return http.StatusForbidden, "plan_limit"
	case apperrors.Is(err, apperrors.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case apperrors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case apperrors.Is(err, apperrors.ErrConflict):
		return http.StatusConflict, "conflict"
	case apperrors.Is(err, apperrors.ErrInvalidState):
		return http.StatusConflict, "invalid_state"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// respondError writes err as JSON. Internal errors are logged and their
// details withheld.
func respondError(c *gin.Context, err error) {
	status, code := statusOf(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		logger := logging.FromContext(c.Request.Context())
		logger.Error().Err(err).
			Str("path", c.FullPath()).
			Msg("Request failed")
		message = "internal server error"
	}
	c.AbortWithStatusJSON(status, errorResponse{Error: code, Message: message})
}

// badRequest reports a malformed request body or query.
func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: "bad_request", Message: err.Error()})
}
