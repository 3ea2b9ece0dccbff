package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/yourorg/civictrack/internal/infrastructure/redis"
	"github.com/yourorg/civictrack/pkg/database"
)

// HealthHandler serves the public health endpoint
type HealthHandler struct{}

// NewHealthHandler creates a new health handler
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// ServeHTTP handles GET /api/health requests
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// ReadinessHandler reports whether the backing stores are reachable.
// Redis is optional at startup, so a nil client is treated as ready.
type ReadinessHandler struct {
	pool  *database.ConnectionPool
	redis *redis.Client
}

// NewReadinessHandler creates a new readiness handler
func NewReadinessHandler(pool *database.ConnectionPool, redisClient *redis.Client) *ReadinessHandler {
	return &ReadinessHandler{pool: pool, redis: redisClient}
}

// ServeHTTP handles GET /readyz requests
func (h *ReadinessHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.pool.Health(ctx); err != nil {
		respondError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	if h.redis != nil {
		if err := h.redis.Ping(ctx); err != nil {
			respondError(w, http.StatusServiceUnavailable, "cache unavailable")
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
