package event

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/caesium-cloud/kanban/internal/event"
	"github.com/caesium-cloud/kanban/pkg/log"
	"github.com/labstack/echo/v4"
)

// PingInterval is how often an idle stream sends a keep-alive comment.
var PingInterval = 15 * time.Second

type Controller struct {
	bus event.Bus
}

func New(bus event.Bus) *Controller {
	return &Controller{bus: bus}
}

// Stream relays board changes as server-sent events. The stream ends
// when the client goes away or the bus evicts it for falling behind;
// either way the client is expected to resync on reconnect.
func (ctrl *Controller) Stream(c echo.Context) error {
	ctx := c.Request().Context()

	ch, err := ctrl.bus.Subscribe(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Server error").SetInternal(err)
	}

	c.Response().Header().Set(echo.HeaderContentType, "text/event-stream")
	c.Response().Header().Set(echo.HeaderCacheControl, "no-cache")
	c.Response().Header().Set(echo.HeaderConnection, "keep-alive")
	c.Response().Header().Set("X-Accel-Buffering", "no") // Disable buffering in Nginx
	c.Response().WriteHeader(http.StatusOK)

	// an initial comment lets the client know the subscription is live
	if _, err := fmt.Fprintf(c.Response(), ": ping\n\n"); err != nil {
		return nil
	}
	c.Response().Flush()

	ticker := time.NewTicker(PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := fmt.Fprintf(c.Response(), ": ping\n\n"); err != nil {
				return nil
			}
			c.Response().Flush()
		case e, ok := <-ch:
			if !ok {
				return nil
			}

			data, err := json.Marshal(e)
			if err != nil {
				log.Error("failed to marshal event for stream", "type", e.Type, "task_id", e.TaskID, "error", err)
				continue
			}

			if _, err := fmt.Fprintf(c.Response(), "event: %s\ndata: %s\n\n", e.Type, data); err != nil {
				return nil
			}
			c.Response().Flush()
		}
	}
}
