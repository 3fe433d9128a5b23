package action

import (
	"net/http"
	"strconv"

	"github.com/caesium-cloud/kanban/internal/audit"
	"github.com/labstack/echo/v4"
)

type Controller struct {
	log *audit.Log
}

func New(log *audit.Log) *Controller {
	return &Controller{log: log}
}

// List returns the newest actions, 20 by default.
func (ctrl *Controller) List(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid limit")
		}
		limit = n
	}

	views, err := ctrl.log.Recent(c.Request().Context(), limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error").SetInternal(err)
	}

	return c.JSON(http.StatusOK, views)
}
