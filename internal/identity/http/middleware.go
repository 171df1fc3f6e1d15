package http

import (
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/allisson/authkeyd/internal/errors"
	"github.com/allisson/authkeyd/internal/httputil"
	"github.com/allisson/authkeyd/internal/identity/usecase"
)

// AuthenticationMiddleware validates the bearer session token on every request
// and stores the resolved principal in the request context. Requests without a
// valid session token are rejected with 401 before reaching any handler.
func AuthenticationMiddleware(identityUseCase usecase.IdentityUseCase, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			httputil.HandleErrorGin(
				c,
				apperrors.Wrap(apperrors.ErrUnauthorized, "missing bearer token"),
				logger,
			)
			return
		}

		principal, err := identityUseCase.Validate(c.Request.Context(), token)
		if err != nil {
			httputil.HandleErrorGin(c, err, logger)
			return
		}

		SetPrincipal(c, principal)
		c.Next()
	}
}

// TenantMiddleware resolves the request's tenant from the X-Tenant-ID header,
// falling back to defaultTenantID when absent (§4.3 edge policy, preserved for
// backward compatibility), and stores it in the request context.
func TenantMiddleware(defaultTenantID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := strings.TrimSpace(c.GetHeader("X-Tenant-ID"))
		if tenantID == "" {
			tenantID = defaultTenantID
		}
		c.Set(tenantKey, tenantID)
		c.Next()
	}
}

// tenantKey is the Gin context key under which TenantMiddleware stores the
// resolved tenant id.
const tenantKey = "authkeyd.tenant"

// TenantFromContext retrieves the tenant id resolved by TenantMiddleware.
func TenantFromContext(c *gin.Context) string {
	return c.GetString(tenantKey)
}

func bearerToken(header string) (string, bool) {
	if header == "" {
		return "", false
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", false
	}
	return token, true
}
