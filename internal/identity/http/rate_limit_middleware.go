package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	apperrors "github.com/allisson/authkeyd/internal/errors"
	"github.com/allisson/authkeyd/internal/httputil"
)

// rateLimiterStore holds per-key token-bucket limiters with periodic cleanup of
// idle entries so the map stays bounded.
type rateLimiterStore struct {
	limiters sync.Map // map[string]*rateLimiterEntry
	rps      float64
	burst    int
}

type rateLimiterEntry struct {
	limiter    *rate.Limiter
	mu         sync.Mutex
	lastAccess time.Time
}

func newRateLimiterStore(rps float64, burst int) *rateLimiterStore {
	store := &rateLimiterStore{rps: rps, burst: burst}
	go store.cleanupStale(5 * time.Minute)
	return store
}

func (s *rateLimiterStore) getLimiter(key string) *rate.Limiter {
	if val, ok := s.limiters.Load(key); ok {
		entry := val.(*rateLimiterEntry)
		entry.mu.Lock()
		entry.lastAccess = time.Now()
		entry.mu.Unlock()
		return entry.limiter
	}

	entry := &rateLimiterEntry{
		limiter:    rate.NewLimiter(rate.Limit(s.rps), s.burst),
		lastAccess: time.Now(),
	}
	actual, _ := s.limiters.LoadOrStore(key, entry)
	return actual.(*rateLimiterEntry).limiter
}

func (s *rateLimiterStore) cleanupStale(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-interval)
		s.limiters.Range(func(key, val any) bool {
			entry := val.(*rateLimiterEntry)
			entry.mu.Lock()
			stale := entry.lastAccess.Before(cutoff)
			entry.mu.Unlock()
			if stale {
				s.limiters.Delete(key)
			}
			return true
		})
	}
}

func rejectRateLimited(c *gin.Context, limiter *rate.Limiter, logger *slog.Logger, key string) {
	reservation := limiter.Reserve()
	retryAfter := int(reservation.Delay().Seconds())
	reservation.Cancel()

	logger.Debug("rate limit exceeded",
		slog.String("key", key),
		slog.Int("retry_after", retryAfter))

	c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
		"status":  "error",
		"message": "too many requests",
	})
}

// RateLimitMiddleware enforces per-principal rate limiting on authenticated
// requests. Must run after AuthenticationMiddleware.
func RateLimitMiddleware(rps float64, burst int, logger *slog.Logger) gin.HandlerFunc {
	store := newRateLimiterStore(rps, burst)

	return func(c *gin.Context) {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			logger.Error("rate limit middleware: no authenticated principal in context")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			return
		}

		key := principal.TenantID + "/" + principal.UserID
		limiter := store.getLimiter(key)
		if !limiter.Allow() {
			rejectRateLimited(c, limiter, logger, key)
			return
		}
		c.Next()
	}
}

// AuthRateLimitMiddleware enforces per-IP rate limiting on the unauthenticated
// authentication endpoints (login, token exchange, API-key verification), the
// paths where credential stuffing would otherwise go unthrottled.
func AuthRateLimitMiddleware(rps float64, burst int, logger *slog.Logger) gin.HandlerFunc {
	store := newRateLimiterStore(rps, burst)

	return func(c *gin.Context) {
		key := c.ClientIP()
		limiter := store.getLimiter(key)
		if !limiter.Allow() {
			rejectRateLimited(c, limiter, logger, key)
			return
		}
		c.Next()
	}
}
