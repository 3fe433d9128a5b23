package task

import (
	"net/http"

	tsvc "github.com/caesium-cloud/kanban/api/rest/service/task"
	"github.com/caesium-cloud/kanban/internal/assign"
	"github.com/caesium-cloud/kanban/internal/models"
	"github.com/caesium-cloud/kanban/internal/store"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type Controller struct {
	backend *tsvc.Backend
}

func New(backend *tsvc.Backend) *Controller {
	return &Controller{backend: backend}
}

func (ctrl *Controller) service(c echo.Context) tsvc.Task {
	return ctrl.backend.Service(c.Request().Context())
}

func taskID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		// ids that cannot exist are reported like ids that do not
		return uuid.Nil, echo.NewHTTPError(http.StatusNotFound, store.ErrNotFound.Error()).SetInternal(err)
	}
	return id, nil
}

// failure maps a domain error to its HTTP form. A conflict is
// rendered here because its body carries the server state.
func failure(c echo.Context, err error) error {
	var (
		conflict   *models.ConflictError
		validation *store.ValidationError
	)

	switch {
	case errors.As(err, &conflict):
		return c.JSON(http.StatusConflict, &models.Conflict{
			Message:       conflict.Error(),
			ServerVersion: conflict.Current,
		})
	case errors.As(err, &validation):
		return echo.NewHTTPError(http.StatusBadRequest, validation.Reason)
	case errors.Is(err, store.ErrNotFound), errors.Is(err, store.ErrUserNotFound):
		return echo.NewHTTPError(http.StatusNotFound, errors.Cause(err).Error())
	case errors.Is(err, assign.ErrNoUsers):
		return echo.NewHTTPError(http.StatusBadRequest, assign.ErrNoUsers.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error").SetInternal(err)
	}
}
