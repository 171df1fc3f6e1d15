// Package http provides HTTP handlers for the API-key subsystem (C5).
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/allisson/authkeyd/internal/apikey/domain"
	"github.com/allisson/authkeyd/internal/apikey/http/dto"
	"github.com/allisson/authkeyd/internal/apikey/usecase"
	apperrors "github.com/allisson/authkeyd/internal/errors"
	"github.com/allisson/authkeyd/internal/httputil"
	identityHTTP "github.com/allisson/authkeyd/internal/identity/http"
	customValidation "github.com/allisson/authkeyd/internal/validation"
)

// APIKeyHandler handles HTTP requests for API-key issuance, listing,
// revocation, and the two verification paths.
type APIKeyHandler struct {
	apiKeyUseCase usecase.APIKeyUseCase
	logger        *slog.Logger
}

// NewAPIKeyHandler creates a new API-key handler.
func NewAPIKeyHandler(apiKeyUseCase usecase.APIKeyUseCase, logger *slog.Logger) *APIKeyHandler {
	return &APIKeyHandler{apiKeyUseCase: apiKeyUseCase, logger: logger}
}

// IssueHandler mints a new key for the caller. The raw key appears in this
// response and nowhere else, ever (invariant 5, S5).
// POST /api/apikeys
func (h *APIKeyHandler) IssueHandler(c *gin.Context) {
	principal, ok := identityHTTP.MustPrincipal(c)
	if !ok {
		return
	}
	tenantID := identityHTTP.TenantFromContext(c)

	var req dto.IssueAPIKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	input := domain.IssueInput{
		UserID:   principal.UserID,
		TenantID: tenantID,
		Name:     req.Name,
		Scopes:   req.Scopes,
	}
	if req.ExpiresIn > 0 {
		ttl := time.Duration(req.ExpiresIn) * time.Second
		input.TTL = &ttl
	}

	out, err := h.apiKeyUseCase.Issue(c.Request.Context(), input)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.JSON(http.StatusCreated, dto.IssueAPIKeyResponse{
		APIKey:   out.RawKey,
		Metadata: dto.NewAPIKeyResponse(&out.APIKey),
	})
}

// ListHandler returns the caller's key metadata, never secrets.
// GET /api/apikeys
func (h *APIKeyHandler) ListHandler(c *gin.Context) {
	principal, ok := identityHTTP.MustPrincipal(c)
	if !ok {
		return
	}
	tenantID := identityHTTP.TenantFromContext(c)

	keys, err := h.apiKeyUseCase.List(c.Request.Context(), tenantID, principal.UserID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	out := make([]dto.APIKeyResponse, 0, len(keys))
	for i := range keys {
		out = append(out, dto.NewAPIKeyResponse(&keys[i]))
	}
	c.JSON(http.StatusOK, gin.H{"api_keys": out})
}

// DeleteHandler revokes a key; a revoked key never authenticates again
// (invariant 6).
// DELETE /api/apikeys/:id
func (h *APIKeyHandler) DeleteHandler(c *gin.Context) {
	if _, ok := identityHTTP.MustPrincipal(c); !ok {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleValidationErrorGin(
			c, apperrors.Wrap(apperrors.ErrInvalidInput, "invalid api key id"), h.logger,
		)
		return
	}

	if err := h.apiKeyUseCase.Delete(c.Request.Context(), id); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.Status(http.StatusNoContent)
}

// VerifyHandler authenticates a raw key directly (§4.4, direct path).
// POST /api/apikeys/verify
func (h *APIKeyHandler) VerifyHandler(c *gin.Context) {
	var req dto.VerifyAPIKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	principal, err := h.apiKeyUseCase.Verify(c.Request.Context(), req.APIKey)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, dto.PrincipalResponse{
		Valid:    true,
		UserID:   principal.UserID,
		TenantID: principal.TenantID,
		Scopes:   principal.Scopes,
	})
}

// ChallengeHandler mints a fresh nonce for the challenge/response path (S5).
// GET /api/apikeys/challenge
func (h *APIKeyHandler) ChallengeHandler(c *gin.Context) {
	challenge, ttl, err := h.apiKeyUseCase.IssueChallenge(c.Request.Context())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, dto.ChallengeResponse{
		Challenge: challenge,
		ExpiresIn: int(ttl / time.Second),
	})
}

// VerifyChallengeHandler verifies "<keyId>.<mac(challenge, secret)>" and
// consumes the challenge; a replay fails with 400 (S5, invariant 10).
// POST /api/apikeys/verify-challenge
func (h *APIKeyHandler) VerifyChallengeHandler(c *gin.Context) {
	var req dto.VerifyChallengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	principal, err := h.apiKeyUseCase.VerifyChallenge(c.Request.Context(), req.Challenge, req.Response)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, dto.PrincipalResponse{
		Valid:    true,
		UserID:   principal.UserID,
		TenantID: principal.TenantID,
		Scopes:   principal.Scopes,
	})
}
