package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/allisson/authkeyd/internal/httputil"
	identityHTTP "github.com/allisson/authkeyd/internal/identity/http"
	"github.com/allisson/authkeyd/internal/kek/http/dto"
	"github.com/allisson/authkeyd/internal/kek/usecase"
	customValidation "github.com/allisson/authkeyd/internal/validation"
)

// KekBlobHandler handles HTTP requests for the KEK blob store.
type KekBlobHandler struct {
	blobUseCase usecase.KekBlobUseCase
	logger      *slog.Logger
}

// NewKekBlobHandler creates a new KEK blob handler.
func NewKekBlobHandler(blobUseCase usecase.KekBlobUseCase, logger *slog.Logger) *KekBlobHandler {
	return &KekBlobHandler{blobUseCase: blobUseCase, logger: logger}
}

// userID normalizes a user reference: clients may address users either by bare
// id ("mallory") or typed ref ("user:mallory"); blobs and deny-lists key off
// the bare id.
func userID(ref string) string {
	return strings.TrimPrefix(ref, "user:")
}

// GetHandler returns one user's blob for one version.
// GET /kek/blobs/users/:userId/versions/:versionId
func (h *KekBlobHandler) GetHandler(c *gin.Context) {
	principal, ok := identityHTTP.MustPrincipal(c)
	if !ok {
		return
	}
	tenantID := identityHTTP.TenantFromContext(c)

	blob, err := h.blobUseCase.Get(
		c.Request.Context(), tenantID, principal.UserID, userID(c.Param("userId")), c.Param("versionId"),
	)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, dto.NewBlobResponse(blob))
}

// ListForUserHandler returns every blob provisioned for one user.
// GET /kek/blobs/users/:userId
func (h *KekBlobHandler) ListForUserHandler(c *gin.Context) {
	principal, ok := identityHTTP.MustPrincipal(c)
	if !ok {
		return
	}
	tenantID := identityHTTP.TenantFromContext(c)

	blobs, err := h.blobUseCase.ListForUser(
		c.Request.Context(), tenantID, principal.UserID, userID(c.Param("userId")),
	)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, dto.NewBlobListResponse(blobs))
}

// ListMineHandler returns every blob provisioned for the caller.
// GET /kek/blobs/me
func (h *KekBlobHandler) ListMineHandler(c *gin.Context) {
	principal, ok := identityHTTP.MustPrincipal(c)
	if !ok {
		return
	}
	tenantID := identityHTTP.TenantFromContext(c)

	blobs, err := h.blobUseCase.ListForUser(c.Request.Context(), tenantID, principal.UserID, principal.UserID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, dto.NewBlobListResponse(blobs))
}

// ProvisionHandler stores a wrapped-KEK blob for one user under one version.
// Fails with 403 if the user was removed during the rotation that created the
// version (S4).
// POST /kek/blobs
func (h *KekBlobHandler) ProvisionHandler(c *gin.Context) {
	principal, ok := identityHTTP.MustPrincipal(c)
	if !ok {
		return
	}
	tenantID := identityHTTP.TenantFromContext(c)

	var req dto.ProvisionBlobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	blob, err := h.blobUseCase.Set(
		c.Request.Context(), tenantID, principal.UserID, userID(req.UserID), req.KekVersionID, req.EncryptedBlob,
	)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.JSON(http.StatusCreated, dto.NewBlobResponse(blob))
}

// DeleteHandler removes one user's blob for one version.
// DELETE /kek/blobs/users/:userId/versions/:versionId
func (h *KekBlobHandler) DeleteHandler(c *gin.Context) {
	principal, ok := identityHTTP.MustPrincipal(c)
	if !ok {
		return
	}
	tenantID := identityHTTP.TenantFromContext(c)

	err := h.blobUseCase.Delete(
		c.Request.Context(), tenantID, principal.UserID, userID(c.Param("userId")), c.Param("versionId"),
	)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.Status(http.StatusNoContent)
}
