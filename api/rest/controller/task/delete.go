package task

import (
	"net/http"

	tsvc "github.com/caesium-cloud/kanban/api/rest/service/task"
	"github.com/caesium-cloud/kanban/api/middleware"
	"github.com/caesium-cloud/kanban/internal/models"
	"github.com/labstack/echo/v4"
)

func (ctrl *Controller) Delete(c echo.Context) error {
	id, err := taskID(c)
	if err != nil {
		return err
	}

	if err := ctrl.service(c).Delete(&tsvc.DeleteRequest{
		Actor: middleware.Actor(c),
		ID:    id,
	}); err != nil {
		return failure(c, err)
	}

	return c.JSON(http.StatusOK, &models.Message{Message: "Task deleted"})
}
