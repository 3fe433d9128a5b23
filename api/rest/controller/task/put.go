package task

import (
	"net/http"

	tsvc "github.com/caesium-cloud/kanban/api/rest/service/task"
	"github.com/caesium-cloud/kanban/api/middleware"
	"github.com/caesium-cloud/kanban/internal/models"
	"github.com/labstack/echo/v4"
)

// Put applies a partial update. With lastKnownVersion in the body the
// update only commits if the task has not changed since; otherwise
// the response is 409 with the current server state.
func (ctrl *Controller) Put(c echo.Context) error {
	id, err := taskID(c)
	if err != nil {
		return err
	}

	var body models.TaskUpdate
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body").SetInternal(err)
	}

	task, err := ctrl.service(c).Update(&tsvc.UpdateRequest{
		Actor:      middleware.Actor(c),
		ID:         id,
		TaskUpdate: body,
	})
	if err != nil {
		return failure(c, err)
	}

	return c.JSON(http.StatusOK, task)
}
