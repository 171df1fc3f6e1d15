// Package http provides HTTP handlers for the token-exchange service (C6).
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/allisson/authkeyd/internal/httputil"
	identityHTTP "github.com/allisson/authkeyd/internal/identity/http"
	"github.com/allisson/authkeyd/internal/tokenexchange/http/dto"
	"github.com/allisson/authkeyd/internal/tokenexchange/usecase"
	customValidation "github.com/allisson/authkeyd/internal/validation"
)

// TokenExchangeHandler handles HTTP requests for token exchange and resource
// token verification.
type TokenExchangeHandler struct {
	exchangeUseCase usecase.TokenExchangeUseCase
	logger          *slog.Logger
}

// NewTokenExchangeHandler creates a new token-exchange handler.
func NewTokenExchangeHandler(exchangeUseCase usecase.TokenExchangeUseCase, logger *slog.Logger) *TokenExchangeHandler {
	return &TokenExchangeHandler{exchangeUseCase: exchangeUseCase, logger: logger}
}

// ExchangeHandler trades a verified IdP token for a tenant-scoped session token.
// POST /api/auth/exchange-token
func (h *TokenExchangeHandler) ExchangeHandler(c *gin.Context) {
	tenantID := identityHTTP.TenantFromContext(c)

	var req dto.ExchangeTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	token, exp, err := h.exchangeUseCase.Exchange(c.Request.Context(), req.Token, tenantID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, dto.TokenResponse{Token: token, ExpiresAt: exp.Format(time.RFC3339)})
}

// ExchangeForResourceHandler trades a verified IdP token for a short-lived
// token bound to a single resource.
// POST /api/auth/exchange-token-for-resource
func (h *TokenExchangeHandler) ExchangeForResourceHandler(c *gin.Context) {
	tenantID := identityHTTP.TenantFromContext(c)

	var req dto.ExchangeForResourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	token, exp, err := h.exchangeUseCase.ExchangeForResource(c.Request.Context(), req.Token, tenantID, req.Resource)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, dto.TokenResponse{Token: token, ExpiresAt: exp.Format(time.RFC3339)})
}

// VerifyResourceTokenHandler validates a resource token and returns its claims.
// POST /api/auth/verify-resource-token
func (h *TokenExchangeHandler) VerifyResourceTokenHandler(c *gin.Context) {
	tenantID := identityHTTP.TenantFromContext(c)

	var req dto.VerifyResourceTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	claims, err := h.exchangeUseCase.VerifyResourceToken(c.Request.Context(), req.Token, tenantID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, dto.ResourceClaimsResponse{
		Valid:    true,
		UserID:   claims.UserID,
		TenantID: claims.TenantID,
		Resource: claims.Resource,
	})
}
