package task

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func (ctrl *Controller) List(c echo.Context) error {
	tasks, err := ctrl.service(c).List()
	if err != nil {
		return failure(c, err)
	}

	return c.JSON(http.StatusOK, tasks)
}
