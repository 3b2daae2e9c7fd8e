package handlers

import (
	"context"
	"net/http"
	"time"

	"garage-backend/internal/cache"
	"garage-backend/pkg/utils"

	"github.com/jackc/pgx/v5/pgxpool"
)

type HealthHandler struct {
	DB *pgxpool.Pool
}

func NewHealthHandler(db *pgxpool.Pool) *HealthHandler {
	return &HealthHandler{DB: db}
}

// BasicHealth - for Kubernetes liveness probe
func (h *HealthHandler) BasicHealth(w http.ResponseWriter, r *http.Request) {
	utils.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ReadinessHealth - for Kubernetes readiness probe. Requires the database;
// Redis is optional and only reported.
func (h *HealthHandler) ReadinessHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	dbOK := h.DB.Ping(ctx) == nil
	status := map[string]interface{}{
		"database": dbOK,
		"redis":    cache.IsHealthy(),
	}
	if dbOK {
		utils.JSON(w, http.StatusOK, status)
	} else {
		utils.JSON(w, http.StatusServiceUnavailable, status)
	}
}
