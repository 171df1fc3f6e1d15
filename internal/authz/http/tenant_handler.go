package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/allisson/authkeyd/internal/authz/http/dto"
	"github.com/allisson/authkeyd/internal/authz/usecase"
	"github.com/allisson/authkeyd/internal/httputil"
	identityHTTP "github.com/allisson/authkeyd/internal/identity/http"
	customValidation "github.com/allisson/authkeyd/internal/validation"
)

// TenantHandler handles HTTP requests for the tenant lifecycle.
type TenantHandler struct {
	tenantUseCase usecase.TenantUseCase
	logger        *slog.Logger
}

// NewTenantHandler creates a new tenant handler.
func NewTenantHandler(tenantUseCase usecase.TenantUseCase, logger *slog.Logger) *TenantHandler {
	return &TenantHandler{tenantUseCase: tenantUseCase, logger: logger}
}

// CreateHandler bootstraps a tenant: 201 on success, 409 on id collision (S1).
// POST /api/tenants
func (h *TenantHandler) CreateHandler(c *gin.Context) {
	if _, ok := identityHTTP.MustPrincipal(c); !ok {
		return
	}

	var req dto.CreateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	adminUserID := strings.TrimPrefix(req.AdminUserID, "user:")
	if err := h.tenantUseCase.Create(c.Request.Context(), req.TenantID, adminUserID); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"tenant_id": req.TenantID, "admin_user_id": adminUserID})
}

// ListHandler returns every known tenant id.
// GET /api/tenants
func (h *TenantHandler) ListHandler(c *gin.Context) {
	if _, ok := identityHTTP.MustPrincipal(c); !ok {
		return
	}

	tenants, err := h.tenantUseCase.List(c.Request.Context())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tenants": tenants})
}

// DeleteHandler removes a tenant and cascades across every tenant-scoped store.
// DELETE /api/tenants/:tenantId
func (h *TenantHandler) DeleteHandler(c *gin.Context) {
	principal, ok := identityHTTP.MustPrincipal(c)
	if !ok {
		return
	}

	if err := h.tenantUseCase.Delete(c.Request.Context(), c.Param("tenantId"), principal.UserID); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.Status(http.StatusNoContent)
}

// AddUserHandler grants a user membership (and optionally admin) on a tenant (S1).
// POST /api/tenants/:tenantId/users
func (h *TenantHandler) AddUserHandler(c *gin.Context) {
	if _, ok := identityHTTP.MustPrincipal(c); !ok {
		return
	}

	var req dto.AddUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	userID := strings.TrimPrefix(req.UserID, "user:")
	err := h.tenantUseCase.AddUser(c.Request.Context(), c.Param("tenantId"), userID, req.Role == "admin")
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, httputil.SuccessEnvelope(nil))
}

// UpdateUserRoleHandler promotes or demotes a user's admin relation.
// PUT /api/tenants/:tenantId/users/:userId/role
func (h *TenantHandler) UpdateUserRoleHandler(c *gin.Context) {
	if _, ok := identityHTTP.MustPrincipal(c); !ok {
		return
	}

	var req dto.UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	userID := strings.TrimPrefix(c.Param("userId"), "user:")
	err := h.tenantUseCase.UpdateUserRole(c.Request.Context(), c.Param("tenantId"), userID, req.Role == "admin")
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, httputil.SuccessEnvelope(nil))
}
