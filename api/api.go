package api

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	apimw "github.com/caesium-cloud/kanban/api/middleware"
	"github.com/caesium-cloud/kanban/api/gql"
	"github.com/caesium-cloud/kanban/api/rest/bind"
	"github.com/caesium-cloud/kanban/internal/audit"
	"github.com/caesium-cloud/kanban/internal/event"
	"github.com/caesium-cloud/kanban/internal/metrics"
	"github.com/caesium-cloud/kanban/pkg/log"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"gorm.io/gorm"
)

// Dependencies are the collaborators the API serves from. The caller
// owns their lifecycle.
type Dependencies struct {
	DB             *gorm.DB
	Bus            event.Bus
	Audit          *audit.Log
	IdentityHeader string
	CORSOrigins    []string
}

// Server is the board's HTTP API.
type Server struct {
	echo    *echo.Echo
	handler http.Handler
	server  *http.Server
}

// New builds the API. Each server gets its own metrics registry.
func New(deps Dependencies) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler

	e.Pre(collapseSlashes)
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover())

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics.Register(registry)

	// health
	e.GET("/health", health(deps.DB, deps.Bus))

	// metrics
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "kanban",
		Registerer: registry,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics" || strings.HasSuffix(c.Path(), "/events")
		},
	}))
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{
		Gatherer: registry,
	}))

	backend := bind.NewBackend(deps.DB, deps.Bus, deps.Audit)

	// REST
	v1 := e.Group("/v1", apimw.Identity(identityHeader(deps.IdentityHeader)))
	bind.All(v1, backend)

	// GraphQL
	handler := gql.Handler(backend.Store, deps.Audit)
	e.GET("/gql", handler)
	e.POST("/gql", handler)

	origins := deps.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	return &Server{
		echo: e,
		handler: cors.New(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{
				http.MethodGet,
				http.MethodPost,
				http.MethodPut,
				http.MethodDelete,
				http.MethodOptions,
			},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: true,
		}).Handler(e),
	}
}

// Handler returns the complete handler chain, CORS included.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start serves on addr until Shutdown is called. Requests inherit ctx.
func (s *Server) Start(ctx context.Context, addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           h2c.NewHandler(s.handler, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	log.Info("api listening", "addr", addr)

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "api server")
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight
// requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func identityHeader(h string) string {
	if h == "" {
		return "X-User-ID"
	}
	return h
}

// collapseSlashes folds repeated slashes so //v1//tasks routes like /v1/tasks.
func collapseSlashes(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		if strings.Contains(req.URL.Path, "//") {
			path := req.URL.Path
			for strings.Contains(path, "//") {
				path = strings.ReplaceAll(path, "//", "/")
			}
			req.URL.Path = path
			req.URL.RawPath = ""
		}
		return next(c)
	}
}
