package modules

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/readly/pkg/response"
)

type HealthModule struct {
	PG    *pgxpool.Pool
	Redis *redis.Client
}

func NewHealthModule(pg *pgxpool.Pool, rdb *redis.Client) *HealthModule {
	return &HealthModule{PG: pg, Redis: rdb}
}

func (m *HealthModule) Register(rg *gin.RouterGroup) {
	rg.GET("/health", m.health)
}

// health reports 503 only when the credential store is down; redis is advisory.
func (m *HealthModule) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := gin.H{}
	status := http.StatusOK
	if m.PG != nil {
		if err := m.PG.Ping(ctx); err != nil {
			checks["postgres"] = "down"
			status = http.StatusServiceUnavailable
		} else {
			checks["postgres"] = "up"
		}
	}
	if m.Redis != nil {
		if err := m.Redis.Ping(ctx).Err(); err != nil {
			checks["redis"] = "down"
		} else {
			checks["redis"] = "up"
		}
	}

	if status != http.StatusOK {
		response.Error[any](c, status, "unhealthy", checks)
		return
	}
	response.Success(c, status, checks, "ok", nil)
}
