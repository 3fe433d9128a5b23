package api

import (
	"net/http"

	"github.com/caesium-cloud/kanban/internal/models"
	"github.com/caesium-cloud/kanban/pkg/log"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// errorHandler renders every error as {"message": ...}. Server-side
// failures are logged with their cause and shown to the caller only
// as "Server error".
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var he *echo.HTTPError
	if !errors.As(err, &he) {
		he = echo.NewHTTPError(http.StatusInternalServerError).SetInternal(err)
	}

	message, ok := he.Message.(string)
	if !ok || message == "" {
		message = http.StatusText(he.Code)
	}

	if he.Code >= http.StatusInternalServerError {
		cause := he.Internal
		if cause == nil {
			cause = err
		}
		log.Error(
			"request failed",
			"method", c.Request().Method,
			"path", c.Request().URL.Path,
			"status", he.Code,
			"error", cause,
		)
		message = "Server error"
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(he.Code)
	} else {
		err = c.JSON(he.Code, &models.Message{Message: message})
	}
	if err != nil {
		log.Error("failed to write error response", "error", err)
	}
}
