package api

import (
	"context"
	"net/http"
	"time"

	"github.com/caesium-cloud/kanban/internal/event"
	"github.com/caesium-cloud/kanban/pkg/log"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

var startedAt = time.Now()

const pingTimeout = 2 * time.Second

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status      Status        `json:"status"`
	Uptime      time.Duration `json:"uptime"`
	Subscribers int           `json:"subscribers"`
}

// health reports whether the database answers, how long the process
// has been up and how many live event streams are attached.
func health(conn *gorm.DB, bus event.Bus) echo.HandlerFunc {
	return func(c echo.Context) error {
		resp := HealthResponse{
			Status:      Healthy,
			Uptime:      time.Since(startedAt),
			Subscribers: bus.Subscribers(),
		}

		if err := ping(c.Request().Context(), conn); err != nil {
			log.Warn("health check failed", "error", err)
			resp.Status = Unhealthy
			return c.JSON(http.StatusServiceUnavailable, resp)
		}

		return c.JSON(http.StatusOK, resp)
	}
}

func ping(ctx context.Context, conn *gorm.DB) error {
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	return sqlDB.PingContext(ctx)
}

// Status enumerates the health statuses of the board.
type Status string

const (
	// Healthy implies the board is having no major issues.
	Healthy Status = "healthy"
	// Unhealthy means the database did not answer.
	Unhealthy Status = "unhealthy"
)
