package gql

import (
	"github.com/caesium-cloud/kanban/api/gql/schema"
	"github.com/caesium-cloud/kanban/internal/audit"
	"github.com/caesium-cloud/kanban/internal/store"
	"github.com/graphql-go/graphql"
	"github.com/graphql-go/handler"
	"github.com/labstack/echo/v4"
)

// Handler wraps the GraphQL schema and makes it injectable
// into the echo HTTP framework.
func Handler(st *store.Store, actions *audit.Log) echo.HandlerFunc {
	schema, err := graphql.NewSchema(schema.New(st, actions))
	if err != nil {
		panic(err)
	}

	return echo.WrapHandler(
		handler.New(
			&handler.Config{
				Schema:   &schema,
				Pretty:   true,
				GraphiQL: true,
			},
		),
	)
}
