// Package http provides the HTTP server and route wiring. The server uses Gin
// with a custom slog logging middleware, a manual http.Server for timeout and
// graceful-shutdown control, and the request-id middleware with UUIDv7 ids.
package http

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	apikeyHTTP "github.com/allisson/authkeyd/internal/apikey/http"
	authzHTTP "github.com/allisson/authkeyd/internal/authz/http"
	"github.com/allisson/authkeyd/internal/config"
	identityHTTP "github.com/allisson/authkeyd/internal/identity/http"
	identityUseCase "github.com/allisson/authkeyd/internal/identity/usecase"
	kekHTTP "github.com/allisson/authkeyd/internal/kek/http"
	"github.com/allisson/authkeyd/internal/metrics"
	recoveryHTTP "github.com/allisson/authkeyd/internal/recovery/http"
	tokenexchangeHTTP "github.com/allisson/authkeyd/internal/tokenexchange/http"
)

// Server represents the HTTP server.
type Server struct {
	db       *sql.DB
	server   *http.Server
	logger   *slog.Logger
	router   *gin.Engine
	reqGroup singleflight.Group
}

// NewServer creates a new HTTP server.
func NewServer(
	db *sql.DB,
	host string,
	port int,
	logger *slog.Logger,
) *Server {
	return &Server{
		db:     db,
		logger: logger,
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", host, port),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// Handlers bundles every route handler the router mounts, so SetupRouter's
// signature doesn't grow a parameter per endpoint group.
type Handlers struct {
	Identity      *identityHTTP.IdentityHandler
	TokenExchange *tokenexchangeHTTP.TokenExchangeHandler
	Authz         *authzHTTP.AuthzHandler
	Tenant        *authzHTTP.TenantHandler
	APIKey        *apikeyHTTP.APIKeyHandler
	KekVersion    *kekHTTP.KekVersionHandler
	KekBlob       *kekHTTP.KekBlobHandler
	Recovery      *recoveryHTTP.RecoveryHandler
	PublicKey     *recoveryHTTP.PublicKeyHandler
}

// SetupRouter configures the Gin router with all routes and middleware.
func (s *Server) SetupRouter(
	cfg *config.Config,
	handlers Handlers,
	identity identityUseCase.IdentityUseCase,
	metricsProvider *metrics.Provider,
) {
	router := gin.New()
	router.Use(gin.Recovery())

	if corsMiddleware := createCORSMiddleware(
		cfg.CORSEnabled,
		cfg.CORSAllowOrigins,
		s.logger,
	); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}

	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(s.logger))
	router.Use(identityHTTP.TenantMiddleware(cfg.DefaultTenantID))

	if metricsProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(metricsProvider.MeterProvider(), cfg.MetricsNamespace))
	}

	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	authMiddleware := identityHTTP.AuthenticationMiddleware(identity, s.logger)

	var rateLimitMiddleware gin.HandlerFunc
	if cfg.RateLimitEnabled {
		rateLimitMiddleware = identityHTTP.RateLimitMiddleware(
			cfg.RateLimitRequestsPerSec,
			cfg.RateLimitBurst,
			s.logger,
		)
	}

	var authRateLimitMiddleware gin.HandlerFunc
	if cfg.AuthRateLimitEnabled {
		authRateLimitMiddleware = identityHTTP.AuthRateLimitMiddleware(
			cfg.AuthRateLimitPerSec,
			cfg.AuthRateLimitBurst,
			s.logger,
		)
	}

	// Authentication endpoints: no session required (they mint or inspect
	// one), throttled per client IP against credential stuffing.
	auth := router.Group("/api/auth")
	if authRateLimitMiddleware != nil {
		auth.Use(authRateLimitMiddleware)
	}
	{
		auth.POST("/login", handlers.Identity.LoginHandler)
		auth.POST("/m2m", handlers.Identity.M2MLoginHandler)
		auth.POST("/login-with-api-key", handlers.Identity.APIKeyLoginHandler)
		auth.POST("/validate", handlers.Identity.ValidateHandler)
		auth.POST("/logout", handlers.Identity.LogoutHandler)
		auth.POST("/exchange-token", handlers.TokenExchange.ExchangeHandler)
		auth.POST("/exchange-token-for-resource", handlers.TokenExchange.ExchangeForResourceHandler)
		auth.POST("/verify-resource-token", handlers.TokenExchange.VerifyResourceTokenHandler)
	}

	// Authorization endpoints: check/grant/revoke require a session.
	authz := router.Group("/api/auth")
	authz.Use(authMiddleware)
	if rateLimitMiddleware != nil {
		authz.Use(rateLimitMiddleware)
	}
	{
		authz.POST("/check", handlers.Authz.CheckHandler)
		authz.POST("/grant", handlers.Authz.GrantHandler)
		authz.POST("/revoke", handlers.Authz.RevokeHandler)
	}

	// Tenant lifecycle.
	tenants := router.Group("/api/tenants")
	tenants.Use(authMiddleware)
	if rateLimitMiddleware != nil {
		tenants.Use(rateLimitMiddleware)
	}
	{
		tenants.POST("", handlers.Tenant.CreateHandler)
		tenants.GET("", handlers.Tenant.ListHandler)
		tenants.DELETE("/:tenantId", handlers.Tenant.DeleteHandler)
		tenants.POST("/:tenantId/users", handlers.Tenant.AddUserHandler)
		tenants.PUT("/:tenantId/users/:userId/role", handlers.Tenant.UpdateUserRoleHandler)
	}

	// API keys. The challenge and verification paths are themselves
	// authentication mechanisms, so they sit on the unauthenticated group.
	apikeysAuth := router.Group("/api/apikeys")
	if authRateLimitMiddleware != nil {
		apikeysAuth.Use(authRateLimitMiddleware)
	}
	{
		apikeysAuth.GET("/challenge", handlers.APIKey.ChallengeHandler)
		apikeysAuth.POST("/verify", handlers.APIKey.VerifyHandler)
		apikeysAuth.POST("/verify-challenge", handlers.APIKey.VerifyChallengeHandler)
	}

	apikeys := router.Group("/api/apikeys")
	apikeys.Use(authMiddleware)
	if rateLimitMiddleware != nil {
		apikeys.Use(rateLimitMiddleware)
	}
	{
		apikeys.POST("", handlers.APIKey.IssueHandler)
		apikeys.GET("", handlers.APIKey.ListHandler)
		apikeys.DELETE("/:id", handlers.APIKey.DeleteHandler)
	}

	// KEK custody: versions, blobs, recovery.
	kek := router.Group("/kek")
	kek.Use(authMiddleware)
	if rateLimitMiddleware != nil {
		kek.Use(rateLimitMiddleware)
	}
	{
		kek.GET("/versions", handlers.KekVersion.ListHandler)
		kek.GET("/versions/active", handlers.KekVersion.GetActiveHandler)
		kek.POST("/versions", handlers.KekVersion.CreateHandler)
		kek.PUT("/versions/:id/status", handlers.KekVersion.UpdateStatusHandler)
		kek.POST("/rotate", handlers.KekVersion.RotateHandler)

		kek.GET("/blobs/me", handlers.KekBlob.ListMineHandler)
		kek.GET("/blobs/users/:userId", handlers.KekBlob.ListForUserHandler)
		kek.GET("/blobs/users/:userId/versions/:versionId", handlers.KekBlob.GetHandler)
		kek.POST("/blobs", handlers.KekBlob.ProvisionHandler)
		kek.DELETE("/blobs/users/:userId/versions/:versionId", handlers.KekBlob.DeleteHandler)

		kek.POST("/recovery", handlers.Recovery.InitiateHandler)
		kek.GET("/recovery", handlers.Recovery.ListHandler)
		kek.GET("/recovery/:sessionId", handlers.Recovery.GetHandler)
		kek.POST("/recovery/:sessionId/shares", handlers.Recovery.SubmitShareHandler)
		kek.POST("/recovery/:sessionId/complete", handlers.Recovery.CompleteHandler)
		kek.DELETE("/recovery/:sessionId", handlers.Recovery.CancelHandler)
	}

	publicKeys := router.Group("/public-keys")
	publicKeys.Use(authMiddleware)
	if rateLimitMiddleware != nil {
		publicKeys.Use(rateLimitMiddleware)
	}
	{
		publicKeys.POST("", handlers.PublicKey.StoreHandler)
		publicKeys.POST("/verify", handlers.PublicKey.VerifyHandler)
		publicKeys.GET("/:userId", handlers.PublicKey.GetHandler)
		publicKeys.PUT("/:keyId", handlers.PublicKey.UpdateHandler)
		publicKeys.DELETE("/:keyId", handlers.PublicKey.DeleteHandler)
	}

	s.router = router
}

// GetHandler returns the http.Handler for testing purposes.
// Returns nil if SetupRouter has not been called yet.
func (s *Server) GetHandler() http.Handler {
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start(ctx context.Context) error {
	if s.router == nil {
		return fmt.Errorf("router not initialized - call SetupRouter first")
	}

	s.server.Handler = s.router

	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}

// healthHandler returns a simple health check response.
func (s *Server) healthHandler(c *gin.Context) {
	v, _, _ := s.reqGroup.Do("health", func() (interface{}, error) {
		return gin.H{"status": "healthy"}, nil
	})
	c.JSON(http.StatusOK, v)
}

type readinessResponse struct {
	StatusCode int
	Body       gin.H
}

// readinessHandler reports readiness based on database connectivity.
func (s *Server) readinessHandler(c *gin.Context) {
	v, _, _ := s.reqGroup.Do("readiness", func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		dbStatus := "ok"
		httpStatus := http.StatusOK

		if s.db == nil {
			s.logger.Error("readiness check failed: database not initialized")
			dbStatus = "error"
			httpStatus = http.StatusServiceUnavailable
		} else if err := s.db.PingContext(ctx); err != nil {
			s.logger.Error("readiness check failed: database ping error", slog.Any("err", err))
			dbStatus = "error"
			httpStatus = http.StatusServiceUnavailable
		}

		return readinessResponse{
			StatusCode: httpStatus,
			Body: gin.H{
				"status": map[int]string{
					http.StatusOK:                 "ready",
					http.StatusServiceUnavailable: "not_ready",
				}[httpStatus],
				"components": gin.H{
					"database": dbStatus,
				},
			},
		}, nil
	})

	res := v.(readinessResponse)
	c.JSON(res.StatusCode, res.Body)
}
