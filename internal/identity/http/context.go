package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/allisson/authkeyd/internal/identity/domain"
)

// principalKey is the Gin context key under which the authenticated principal
// is stored by AuthenticationMiddleware.
const principalKey = "authkeyd.principal"

// SetPrincipal stores the authenticated principal in the request context.
func SetPrincipal(c *gin.Context, p domain.Principal) {
	c.Set(principalKey, p)
}

// PrincipalFromContext retrieves the authenticated principal set by
// AuthenticationMiddleware. ok is false when the request never authenticated.
func PrincipalFromContext(c *gin.Context) (domain.Principal, bool) {
	v, exists := c.Get(principalKey)
	if !exists {
		return domain.Principal{}, false
	}
	p, ok := v.(domain.Principal)
	return p, ok
}

// MustPrincipal retrieves the authenticated principal, aborting the request
// with 401 if AuthenticationMiddleware never ran. Handlers on authenticated
// route groups use this instead of re-checking the Authorization header.
func MustPrincipal(c *gin.Context) (domain.Principal, bool) {
	p, ok := PrincipalFromContext(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"status": "error", "message": "authentication required"})
	}
	return p, ok
}
