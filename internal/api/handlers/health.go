package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/hugh/canicloud/internal/api/respond"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type HealthHandler struct {
	db    *gorm.DB
	redis *redis.Client
	rs    *respond.Responder
}

// NewHealthHandler accepts a nil redis client when neither the revocation
// cache nor the job queue use redis.
func NewHealthHandler(db *gorm.DB, redis *redis.Client, rs *respond.Responder) *HealthHandler {
	return &HealthHandler{db: db, redis: redis, rs: rs}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	const action = "health"
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	services := make(map[string]string)
	healthy := true

	sqlDB, err := h.db.DB()
	if err != nil || sqlDB.PingContext(ctx) != nil {
		services["database"] = "unhealthy"
		healthy = false
	} else {
		services["database"] = "healthy"
	}

	if h.redis != nil {
		if err := h.redis.Ping(ctx).Err(); err != nil {
			services["redis"] = "unhealthy"
			healthy = false
		} else {
			services["redis"] = "healthy"
		}
	}

	if !healthy {
		respond.Write(w, respond.Body{
			Status:  respond.StatusFail,
			Code:    http.StatusServiceUnavailable,
			Action:  action,
			Message: "unhealthy",
			Data:    map[string]interface{}{"services": services},
		})
		return
	}
	h.rs.Success(w, http.StatusOK, action, "healthy", map[string]interface{}{"services": services})
}

func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
