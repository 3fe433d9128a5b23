package bind

import (
	"github.com/caesium-cloud/kanban/api/rest/controller/action"
	"github.com/caesium-cloud/kanban/api/rest/controller/event"
	"github.com/caesium-cloud/kanban/api/rest/controller/task"
	tsvc "github.com/caesium-cloud/kanban/api/rest/service/task"
	"github.com/caesium-cloud/kanban/internal/audit"
	ievent "github.com/caesium-cloud/kanban/internal/event"
	"github.com/caesium-cloud/kanban/internal/store"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// Backend bundles what the route handlers are built from.
type Backend struct {
	Tasks *tsvc.Backend
	Store *store.Store
	Bus   ievent.Bus
	Audit *audit.Log
}

func NewBackend(conn *gorm.DB, bus ievent.Bus, actions *audit.Log) *Backend {
	return &Backend{
		Tasks: tsvc.NewBackend(conn, bus, actions),
		Store: store.New(conn),
		Bus:   bus,
		Audit: actions,
	}
}

func All(g *echo.Group, b *Backend) {
	Tasks(g, b)
	Actions(g, b)
	Events(g, b)
}

func Tasks(g *echo.Group, b *Backend) {
	ctrl := task.New(b.Tasks)

	g.GET("/tasks", ctrl.List)
	g.POST("/tasks", ctrl.Post)
	g.GET("/tasks/:id", ctrl.Get)
	g.PUT("/tasks/:id", ctrl.Put)
	g.DELETE("/tasks/:id", ctrl.Delete)
	g.PUT("/tasks/:id/smart-assign", ctrl.SmartAssign)
}

func Actions(g *echo.Group, b *Backend) {
	g.GET("/actions", action.New(b.Audit).List)
}

func Events(g *echo.Group, b *Backend) {
	g.GET("/events", event.New(b.Bus).Stream)
}
