package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "github.com/allisson/authkeyd/internal/errors"
	"github.com/allisson/authkeyd/internal/httputil"
	identityHTTP "github.com/allisson/authkeyd/internal/identity/http"
	"github.com/allisson/authkeyd/internal/recovery/http/dto"
	"github.com/allisson/authkeyd/internal/recovery/usecase"
	customValidation "github.com/allisson/authkeyd/internal/validation"
)

// PublicKeyHandler handles HTTP requests for the public-key registry.
type PublicKeyHandler struct {
	publicKeyUseCase usecase.PublicKeyUseCase
	logger           *slog.Logger
}

// NewPublicKeyHandler creates a new public-key handler.
func NewPublicKeyHandler(publicKeyUseCase usecase.PublicKeyUseCase, logger *slog.Logger) *PublicKeyHandler {
	return &PublicKeyHandler{publicKeyUseCase: publicKeyUseCase, logger: logger}
}

// StoreHandler upserts the caller's public key for a purpose.
// POST /public-keys
func (h *PublicKeyHandler) StoreHandler(c *gin.Context) {
	principal, ok := identityHTTP.MustPrincipal(c)
	if !ok {
		return
	}
	tenantID := identityHTTP.TenantFromContext(c)

	var req dto.StorePublicKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	key, err := h.publicKeyUseCase.Store(c.Request.Context(), tenantID, principal.UserID, req.Purpose, req.PublicKey)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.JSON(http.StatusCreated, dto.NewPublicKeyResponse(key))
}

// GetHandler returns one user's key for a purpose, or all of the user's keys
// when no purpose is given.
// GET /public-keys/:userId?purpose=...
func (h *PublicKeyHandler) GetHandler(c *gin.Context) {
	if _, ok := identityHTTP.MustPrincipal(c); !ok {
		return
	}
	tenantID := identityHTTP.TenantFromContext(c)
	userID := strings.TrimPrefix(c.Param("userId"), "user:")

	if purpose := c.Query("purpose"); purpose != "" {
		key, err := h.publicKeyUseCase.Get(c.Request.Context(), tenantID, userID, purpose)
		if err != nil {
			httputil.HandleErrorGin(c, err, h.logger)
			return
		}
		c.JSON(http.StatusOK, dto.NewPublicKeyResponse(key))
		return
	}

	keys, err := h.publicKeyUseCase.ListByUser(c.Request.Context(), tenantID, userID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	out := make([]dto.PublicKeyResponse, 0, len(keys))
	for _, key := range keys {
		out = append(out, dto.NewPublicKeyResponse(key))
	}
	c.JSON(http.StatusOK, gin.H{"public_keys": out})
}

// UpdateHandler replaces the key material of one of the caller's registrations.
// PUT /public-keys/:keyId
func (h *PublicKeyHandler) UpdateHandler(c *gin.Context) {
	principal, ok := identityHTTP.MustPrincipal(c)
	if !ok {
		return
	}
	tenantID := identityHTTP.TenantFromContext(c)

	keyID, err := uuid.Parse(c.Param("keyId"))
	if err != nil {
		httputil.HandleValidationErrorGin(
			c, apperrors.Wrap(apperrors.ErrInvalidInput, "invalid public key id"), h.logger,
		)
		return
	}

	var req dto.UpdatePublicKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	key, err := h.publicKeyUseCase.Update(c.Request.Context(), tenantID, principal.UserID, keyID, req.PublicKey)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, dto.NewPublicKeyResponse(key))
}

// DeleteHandler removes one of the caller's registrations.
// DELETE /public-keys/:keyId
func (h *PublicKeyHandler) DeleteHandler(c *gin.Context) {
	principal, ok := identityHTTP.MustPrincipal(c)
	if !ok {
		return
	}
	tenantID := identityHTTP.TenantFromContext(c)

	keyID, err := uuid.Parse(c.Param("keyId"))
	if err != nil {
		httputil.HandleValidationErrorGin(
			c, apperrors.Wrap(apperrors.ErrInvalidInput, "invalid public key id"), h.logger,
		)
		return
	}

	if err := h.publicKeyUseCase.Delete(c.Request.Context(), tenantID, principal.UserID, keyID); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.Status(http.StatusNoContent)
}

// VerifyHandler reports whether a presented key matches the registry.
// POST /public-keys/verify
func (h *PublicKeyHandler) VerifyHandler(c *gin.Context) {
	if _, ok := identityHTTP.MustPrincipal(c); !ok {
		return
	}
	tenantID := identityHTTP.TenantFromContext(c)

	var req dto.VerifyPublicKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	valid, err := h.publicKeyUseCase.Verify(
		c.Request.Context(), tenantID, strings.TrimPrefix(req.UserID, "user:"), req.Purpose, req.PublicKey,
	)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, dto.VerifyPublicKeyResponse{Valid: valid})
}
