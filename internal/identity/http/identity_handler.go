// Package http provides HTTP handlers for the identity gateway (C4): login,
// session validation, and logout.
package http

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/allisson/authkeyd/internal/identity/http/dto"
	"github.com/allisson/authkeyd/internal/identity/usecase"
	"github.com/allisson/authkeyd/internal/httputil"
	customValidation "github.com/allisson/authkeyd/internal/validation"
)

// IdentityHandler handles HTTP requests for login, session validation, and logout.
type IdentityHandler struct {
	identityUseCase usecase.IdentityUseCase
	logger          *slog.Logger
}

// NewIdentityHandler creates a new identity handler.
func NewIdentityHandler(identityUseCase usecase.IdentityUseCase, logger *slog.Logger) *IdentityHandler {
	return &IdentityHandler{identityUseCase: identityUseCase, logger: logger}
}

// LoginHandler authenticates via the external identity provider's password
// grant and mints a session token.
// POST /api/auth/login
func (h *IdentityHandler) LoginHandler(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	token, principal, exp, err := h.identityUseCase.LoginPassword(c.Request.Context(), req.TenantID, req.Username, req.Password)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(200, dto.SessionResponse{
		SessionToken: token,
		UserID:       principal.UserID,
		TenantID:     principal.TenantID,
		Scopes:       principal.Scopes,
		ExpiresAt:    exp.Format(time.RFC3339),
	})
}

// M2MLoginHandler authenticates via the external identity provider's
// client-credentials grant and mints a session token.
// POST /api/auth/m2m
func (h *IdentityHandler) M2MLoginHandler(c *gin.Context) {
	var req dto.M2MLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	token, exp, err := h.identityUseCase.LoginM2M(c.Request.Context(), req.TenantID, req.ClientID, req.ClientSecret)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(200, dto.SessionResponse{
		SessionToken: token,
		TenantID:     req.TenantID,
		ExpiresAt:    exp.Format(time.RFC3339),
	})
}

// APIKeyLoginHandler exchanges a raw API key for a session token.
// POST /api/auth/login-with-api-key
func (h *IdentityHandler) APIKeyLoginHandler(c *gin.Context) {
	var req dto.APIKeyLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	token, principal, exp, err := h.identityUseCase.LoginWithAPIKey(c.Request.Context(), req.APIKey)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(200, dto.SessionResponse{
		SessionToken: token,
		UserID:       principal.UserID,
		TenantID:     principal.TenantID,
		Scopes:       principal.Scopes,
		ExpiresAt:    exp.Format(time.RFC3339),
	})
}

// ValidateHandler verifies a session token's signature, expiry, and
// logout-deny-list status.
// POST /api/auth/validate
func (h *IdentityHandler) ValidateHandler(c *gin.Context) {
	var req dto.ValidateTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	principal, err := h.identityUseCase.Validate(c.Request.Context(), req.SessionToken)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(200, dto.PrincipalResponse{
		UserID:   principal.UserID,
		TenantID: principal.TenantID,
		Scopes:   principal.Scopes,
	})
}

// LogoutHandler records the caller's logout watermark, revoking every session
// token issued at or before now.
// POST /api/auth/logout
func (h *IdentityHandler) LogoutHandler(c *gin.Context) {
	var req dto.ValidateTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	principal, err := h.identityUseCase.Validate(c.Request.Context(), req.SessionToken)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	h.identityUseCase.Logout(c.Request.Context(), principal.UserID)
	c.JSON(200, httputil.SuccessEnvelope(nil))
}
