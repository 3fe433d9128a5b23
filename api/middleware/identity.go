package middleware

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const actorKey = "kanban.actor"

// Identity reads the authenticated user id that the auth proxy
// forwards in header. Requests without a valid id are rejected.
func Identity(header string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := c.Request().Header.Get(header)
			if raw == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Not authorized")
			}

			id, err := uuid.Parse(raw)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Not authorized").SetInternal(err)
			}

			c.Set(actorKey, id)
			return next(c)
		}
	}
}

// Actor returns the user id set by Identity.
func Actor(c echo.Context) uuid.UUID {
	id, _ := c.Get(actorKey).(uuid.UUID)
	return id
}
