// Package http provides HTTP handlers for the authorization service (C3):
// check/grant/revoke and the tenant lifecycle.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/allisson/authkeyd/internal/authz/domain"
	"github.com/allisson/authkeyd/internal/authz/http/dto"
	"github.com/allisson/authkeyd/internal/authz/service"
	apperrors "github.com/allisson/authkeyd/internal/errors"
	"github.com/allisson/authkeyd/internal/httputil"
	identityHTTP "github.com/allisson/authkeyd/internal/identity/http"
	customValidation "github.com/allisson/authkeyd/internal/validation"
)

// AuthzHandler handles HTTP requests for relationship checks and mutations.
type AuthzHandler struct {
	authz  *service.Service
	logger *slog.Logger
}

// NewAuthzHandler creates a new authorization handler.
func NewAuthzHandler(authz *service.Service, logger *slog.Logger) *AuthzHandler {
	return &AuthzHandler{authz: authz, logger: logger}
}

// requireTenantAdmin gates tuple mutations: the caller must be admin of the
// request's tenant or of system:*.
func (h *AuthzHandler) requireTenantAdmin(c *gin.Context, tenantID, userID string) bool {
	userRef := "user:" + userID
	allowed, err := h.authz.Check(c.Request.Context(), tenantID, userRef, domain.RelationAdmin, "tenant:"+tenantID, nil)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return false
	}
	if !allowed {
		allowed, err = h.authz.Check(c.Request.Context(), tenantID, userRef, domain.RelationAdmin, "system:*", nil)
		if err != nil {
			httputil.HandleErrorGin(c, err, h.logger)
			return false
		}
	}
	if !allowed {
		httputil.HandleErrorGin(
			c, apperrors.Wrap(apperrors.ErrForbidden, "caller is not tenant admin"), h.logger,
		)
		return false
	}
	return true
}

// CheckHandler resolves whether user holds relation on object.
// POST /api/auth/check
func (h *AuthzHandler) CheckHandler(c *gin.Context) {
	tenantID := identityHTTP.TenantFromContext(c)

	var req dto.CheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	contextual := make([]domain.Tuple, 0, len(req.ContextualTuples))
	for i := range req.ContextualTuples {
		contextual = append(contextual, req.ContextualTuples[i].Tuple())
	}

	allowed, err := h.authz.Check(
		c.Request.Context(), tenantID, req.User, domain.Relation(req.Relation), req.Object, contextual,
	)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, gin.H{"allowed": allowed})
}

// GrantHandler writes one tuple. Idempotent: granting an existing tuple
// succeeds (invariant 9).
// POST /api/auth/grant
func (h *AuthzHandler) GrantHandler(c *gin.Context) {
	principal, ok := identityHTTP.MustPrincipal(c)
	if !ok {
		return
	}
	tenantID := identityHTTP.TenantFromContext(c)

	var req dto.TupleRequest
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

	if err := h.authz.Grant(c.Request.Context(), tenantID, req.Tuple()); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, httputil.SuccessEnvelope(nil))
}

// RevokeHandler deletes one tuple. Idempotent: revoking a missing tuple succeeds.
// POST /api/auth/revoke
func (h *AuthzHandler) RevokeHandler(c *gin.Context) {
	principal, ok := identityHTTP.MustPrincipal(c)
	if !ok {
		return
	}
	tenantID := identityHTTP.TenantFromContext(c)

	var req dto.TupleRequest
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

	if err := h.authz.Revoke(c.Request.Context(), tenantID, req.Tuple()); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, httputil.SuccessEnvelope(nil))
}
