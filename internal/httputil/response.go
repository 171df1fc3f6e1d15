// Package httputil provides HTTP utility functions for request and response handling.
package httputil

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/allisson/authkeyd/internal/errors"
)

// MakeJSONResponse writes a JSON response with the given status code and data.
func MakeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

// envelope is the wire-level error shape every endpoint returns on failure.
type envelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// SuccessEnvelope wraps a success payload with the "status":"success" marker used
// by endpoints that don't just return the resource representation directly.
func SuccessEnvelope(extra map[string]any) map[string]any {
	out := map[string]any{"status": "success"}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// statusFor maps a domain error kind to its HTTP status code.
func statusFor(err error) (int, string) {
	switch {
	case apperrors.Is(err, apperrors.ErrInvalidInput):
		return http.StatusBadRequest, "validation failed"
	case apperrors.Is(err, apperrors.ErrUnauthorized):
		return http.StatusUnauthorized, "authentication failed"
	case apperrors.Is(err, apperrors.ErrForbidden):
		return http.StatusForbidden, "access denied"
	case apperrors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound, "not found"
	case apperrors.Is(err, apperrors.ErrInvalidTransition):
		return http.StatusConflict, err.Error()
	case apperrors.Is(err, apperrors.ErrConflict):
		return http.StatusConflict, "conflict"
	case apperrors.Is(err, apperrors.ErrLocked):
		return http.StatusConflict, "locked"
	case apperrors.Is(err, apperrors.ErrBackendUnavailable):
		return http.StatusServiceUnavailable, "backend unavailable"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// HandleError writes the spec's error envelope for net/http handlers and logs the
// full (unredacted) error server-side.
func HandleError(w http.ResponseWriter, err error, logger *slog.Logger) {
	if err == nil {
		return
	}

	statusCode, message := statusFor(err)

	if logger != nil {
		logger.Error("request failed", slog.Int("status_code", statusCode), slog.Any("error", err))
	}

	MakeJSONResponse(w, statusCode, envelope{Status: "error", Message: message})
}

// HandleValidationErrorGin writes a 400 Bad Request envelope for Gin handlers
// when request parsing or validation fails.
func HandleValidationErrorGin(c *gin.Context, err error, logger *slog.Logger) {
	if err == nil {
		return
	}

	if logger != nil {
		logger.Warn("validation failed", slog.String("path", c.Request.URL.Path), slog.Any("error", err))
	}

	c.AbortWithStatusJSON(http.StatusBadRequest, envelope{Status: "error", Message: err.Error()})
}

// HandleErrorGin writes the spec's error envelope for Gin handlers.
func HandleErrorGin(c *gin.Context, err error, logger *slog.Logger) {
	if err == nil {
		return
	}

	statusCode, message := statusFor(err)

	if logger != nil {
		logger.Error("request failed",
			slog.Int("status_code", statusCode),
			slog.String("path", c.Request.URL.Path),
			slog.Any("error", err),
		)
	}

	c.AbortWithStatusJSON(statusCode, envelope{Status: "error", Message: message})
}
