// Package http provides HTTP handlers for threshold KEK recovery sessions and
// the public-key registry (C9).
package http

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/allisson/authkeyd/internal/httputil"
	identityHTTP "github.com/allisson/authkeyd/internal/identity/http"
	"github.com/allisson/authkeyd/internal/recovery/domain"
	"github.com/allisson/authkeyd/internal/recovery/http/dto"
	"github.com/allisson/authkeyd/internal/recovery/usecase"
	customValidation "github.com/allisson/authkeyd/internal/validation"
)

// RecoveryHandler handles HTTP requests for recovery sessions.
type RecoveryHandler struct {
	recoveryUseCase usecase.RecoveryUseCase
	logger          *slog.Logger
}

// NewRecoveryHandler creates a new recovery handler.
func NewRecoveryHandler(recoveryUseCase usecase.RecoveryUseCase, logger *slog.Logger) *RecoveryHandler {
	return &RecoveryHandler{recoveryUseCase: recoveryUseCase, logger: logger}
}

// InitiateHandler starts a recovery session for a non-active KEK version.
// POST /kek/recovery
func (h *RecoveryHandler) InitiateHandler(c *gin.Context) {
	principal, ok := identityHTTP.MustPrincipal(c)
	if !ok {
		return
	}
	tenantID := identityHTTP.TenantFromContext(c)

	var req dto.InitiateRecoveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	session, err := h.recoveryUseCase.Initiate(c.Request.Context(), domain.InitiateInput{
		TenantID:    tenantID,
		InitiatorID: principal.UserID,
		VersionID:   req.VersionID,
		Threshold:   req.Threshold,
		Reason:      req.Reason,
		TTL:         time.Duration(req.ExpiresIn) * time.Second,
	})
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.JSON(http.StatusCreated, dto.NewSessionResponse(session))
}

// ListHandler returns the tenant's recovery sessions.
// GET /kek/recovery
func (h *RecoveryHandler) ListHandler(c *gin.Context) {
	if _, ok := identityHTTP.MustPrincipal(c); !ok {
		return
	}
	tenantID := identityHTTP.TenantFromContext(c)

	sessions, err := h.recoveryUseCase.ListSessions(c.Request.Context(), tenantID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	out := make([]dto.SessionResponse, 0, len(sessions))
	for _, session := range sessions {
		out = append(out, dto.NewSessionResponse(session))
	}
	c.JSON(http.StatusOK, gin.H{"sessions": out})
}

// GetHandler returns a session with submitter ids and timestamps, never share
// ciphertexts.
// GET /kek/recovery/:sessionId
func (h *RecoveryHandler) GetHandler(c *gin.Context) {
	if _, ok := identityHTTP.MustPrincipal(c); !ok {
		return
	}
	tenantID := identityHTTP.TenantFromContext(c)

	session, err := h.recoveryUseCase.GetSession(c.Request.Context(), c.Param("sessionId"), tenantID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, dto.NewSessionResponse(session))
}

// SubmitShareHandler records the caller's encrypted share (S6).
// POST /kek/recovery/:sessionId/shares
func (h *RecoveryHandler) SubmitShareHandler(c *gin.Context) {
	principal, ok := identityHTTP.MustPrincipal(c)
	if !ok {
		return
	}
	tenantID := identityHTTP.TenantFromContext(c)

	var req dto.SubmitShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	session, err := h.recoveryUseCase.SubmitShare(
		c.Request.Context(), c.Param("sessionId"), tenantID, principal.UserID,
		strings.TrimPrefix(req.EncryptedFor, "user:"), req.Share,
	)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, dto.NewSessionResponse(session))
}

// CompleteHandler finishes the session once the threshold is met, creating the
// new active KEK version (S6).
// POST /kek/recovery/:sessionId/complete
func (h *RecoveryHandler) CompleteHandler(c *gin.Context) {
	principal, ok := identityHTTP.MustPrincipal(c)
	if !ok {
		return
	}
	tenantID := identityHTTP.TenantFromContext(c)

	var req dto.CompleteRecoveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	session, _, err := h.recoveryUseCase.Complete(c.Request.Context(), tenantID, domain.CompleteInput{
		SessionID:              c.Param("sessionId"),
		CallerUserID:           principal.UserID,
		RecoveredKEKCiphertext: req.RecoveredKEK,
		NewVersionID:           req.NewKEKVersion.ID,
		NewVersionReason:       req.NewKEKVersion.Reason,
	})
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, dto.NewSessionResponse(session))
}

// CancelHandler aborts a pending session.
// DELETE /kek/recovery/:sessionId
func (h *RecoveryHandler) CancelHandler(c *gin.Context) {
	principal, ok := identityHTTP.MustPrincipal(c)
	if !ok {
		return
	}
	tenantID := identityHTTP.TenantFromContext(c)

	err := h.recoveryUseCase.Cancel(c.Request.Context(), c.Param("sessionId"), tenantID, principal.UserID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.Status(http.StatusNoContent)
}
