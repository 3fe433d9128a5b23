package task

import (
	"net/http"

	tsvc "github.com/caesium-cloud/kanban/api/rest/service/task"
	"github.com/caesium-cloud/kanban/api/middleware"
	"github.com/caesium-cloud/kanban/internal/models"
	"github.com/labstack/echo/v4"
)

func (ctrl *Controller) Post(c echo.Context) error {
	var body models.NewTask

	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body").SetInternal(err)
	}

	task, err := ctrl.service(c).Create(&tsvc.CreateRequest{
		Actor:   middleware.Actor(c),
		NewTask: body,
	})
	if err != nil {
		return failure(c, err)
	}

	return c.JSON(http.StatusCreated, task)
}
