package task

import (
	"net/http"

	tsvc "github.com/caesium-cloud/kanban/api/rest/service/task"
	"github.com/caesium-cloud/kanban/api/middleware"
	"github.com/labstack/echo/v4"
)

// SmartAssign hands the task to whoever has the fewest open tasks.
func (ctrl *Controller) SmartAssign(c echo.Context) error {
	id, err := taskID(c)
	if err != nil {
		return err
	}

	task, err := ctrl.service(c).SmartAssign(&tsvc.AssignRequest{
		Actor: middleware.Actor(c),
		ID:    id,
	})
	if err != nil {
		return failure(c, err)
	}

	return c.JSON(http.StatusOK, task)
}
