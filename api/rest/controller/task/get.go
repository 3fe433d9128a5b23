package task

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func (ctrl *Controller) Get(c echo.Context) error {
	id, err := taskID(c)
	if err != nil {
		return err
	}

	task, err := ctrl.service(c).Get(id)
	if err != nil {
		return failure(c, err)
	}

	return c.JSON(http.StatusOK, task)
}
