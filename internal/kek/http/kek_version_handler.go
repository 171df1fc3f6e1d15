// Package http provides HTTP handlers for the KEK custody endpoints: version
// lifecycle (C7) and per-user encrypted blob distribution (C8).
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	authzDomain "github.com/allisson/authkeyd/internal/authz/domain"
	apperrors "github.com/allisson/authkeyd/internal/errors"
	"github.com/allisson/authkeyd/internal/httputil"
	identityHTTP "github.com/allisson/authkeyd/internal/identity/http"
	"github.com/allisson/authkeyd/internal/kek/domain"
	"github.com/allisson/authkeyd/internal/kek/http/dto"
	"github.com/allisson/authkeyd/internal/kek/usecase"
	customValidation "github.com/allisson/authkeyd/internal/validation"
)

// KekVersionHandler handles HTTP requests for the KEK version registry.
type KekVersionHandler struct {
	versionUseCase usecase.KekVersionUseCase
	checker        usecase.RelationChecker
	logger         *slog.Logger
}

// NewKekVersionHandler creates a new KEK version handler.
func NewKekVersionHandler(
	versionUseCase usecase.KekVersionUseCase,
	checker usecase.RelationChecker,
	logger *slog.Logger,
) *KekVersionHandler {
	return &KekVersionHandler{versionUseCase: versionUseCase, checker: checker, logger: logger}
}

func (h *KekVersionHandler) requireTenantAdmin(c *gin.Context, tenantID, userID string) bool {
	allowed, err := h.checker.Check(
		c.Request.Context(), tenantID, "user:"+userID, authzDomain.RelationAdmin, "tenant:"+tenantID, nil,
	)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return false
	}
	if !allowed {
		httputil.HandleErrorGin(
			c,
			apperrors.Wrap(apperrors.ErrForbidden, "caller is not tenant admin"),
			h.logger,
		)
		return false
	}
	return true
}

// ListHandler returns every KEK version for the request's tenant.
// GET /kek/versions
func (h *KekVersionHandler) ListHandler(c *gin.Context) {
	if _, ok := identityHTTP.MustPrincipal(c); !ok {
		return
	}
	tenantID := identityHTTP.TenantFromContext(c)

	versions, err := h.versionUseCase.List(c.Request.Context(), tenantID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, dto.NewVersionListResponse(versions))
}

// GetActiveHandler returns the tenant's single active KEK version.
// GET /kek/versions/active
func (h *KekVersionHandler) GetActiveHandler(c *gin.Context) {
	if _, ok := identityHTTP.MustPrincipal(c); !ok {
		return
	}
	tenantID := identityHTTP.TenantFromContext(c)

	version, err := h.versionUseCase.GetActive(c.Request.Context(), tenantID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, dto.NewVersionResponse(version))
}

// CreateHandler creates a new active KEK version, atomically demoting the
// prior active one to decrypt-only (S3).
// POST /kek/versions
func (h *KekVersionHandler) CreateHandler(c *gin.Context) {
	principal, ok := identityHTTP.MustPrincipal(c)
	if !ok {
		return
	}
	tenantID := identityHTTP.TenantFromContext(c)

	var req dto.CreateVersionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	if !h.requireTenantAdmin(c, tenantID, principal.UserID) {
		return
	}

	version, err := h.versionUseCase.Create(c.Request.Context(), domain.CreateVersionInput{
		TenantID:    tenantID,
		InitiatorID: principal.UserID,
		Reason:      req.Reason,
	})
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.JSON(http.StatusCreated, dto.NewVersionResponse(version))
}

// UpdateStatusHandler applies a status transition to one version; illegal
// transitions fail with 409 (S3).
// PUT /kek/versions/:id/status
func (h *KekVersionHandler) UpdateStatusHandler(c *gin.Context) {
	principal, ok := identityHTTP.MustPrincipal(c)
	if !ok {
		return
	}
	tenantID := identityHTTP.TenantFromContext(c)

	var req dto.UpdateVersionStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	if !h.requireTenantAdmin(c, tenantID, principal.UserID) {
		return
	}

	version, err := h.versionUseCase.UpdateStatus(
		c.Request.Context(), tenantID, c.Param("id"), domain.KekVersionStatus(req.Status),
	)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, dto.NewVersionResponse(version))
}

// RotateHandler rotates the tenant's KEK, optionally denying the new version's
// blobs to removed users (S4).
// POST /kek/rotate
func (h *KekVersionHandler) RotateHandler(c *gin.Context) {
	principal, ok := identityHTTP.MustPrincipal(c)
	if !ok {
		return
	}
	tenantID := identityHTTP.TenantFromContext(c)

	var req dto.RotateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	if !h.requireTenantAdmin(c, tenantID, principal.UserID) {
		return
	}

	removed := make([]string, 0, len(req.RemovedUsers))
	for _, ref := range req.RemovedUsers {
		removed = append(removed, userID(ref))
	}

	version, err := h.versionUseCase.Rotate(c.Request.Context(), domain.CreateVersionInput{
		TenantID:     tenantID,
		InitiatorID:  principal.UserID,
		Reason:       req.Reason,
		RemovedUsers: removed,
	})
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.JSON(http.StatusCreated, dto.NewVersionResponse(version))
}
