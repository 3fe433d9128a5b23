package schema

import (
	"encoding/json"
	"time"

	"github.com/caesium-cloud/kanban/internal/audit"
	"github.com/caesium-cloud/kanban/internal/models"
	"github.com/caesium-cloud/kanban/internal/store"
	"github.com/google/uuid"
	"github.com/graphql-go/graphql"
	"github.com/pkg/errors"
)

// New instantiates the read-only GraphQL schema for the board.
func New(st *store.Store, actions *audit.Log) graphql.SchemaConfig {
	r := &resolver{store: st, actions: actions}

	return graphql.SchemaConfig{
		Query: graphql.NewObject(
			graphql.ObjectConfig{
				Name:   "Query",
				Fields: r.fields(),
			},
		),
	}
}

type resolver struct {
	store   *store.Store
	actions *audit.Log
}

func (r *resolver) fields() graphql.Fields {
	return graphql.Fields{
		"tasks": &graphql.Field{
			Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(taskType))),
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return r.store.List(p.Context)
			},
		},
		"task": &graphql.Field{
			Type: taskType,
			Args: graphql.FieldConfigArgument{
				"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				raw, _ := p.Args["id"].(string)
				id, err := uuid.Parse(raw)
				if err != nil {
					return nil, nil
				}
				task, err := r.store.Get(p.Context, id)
				if errors.Is(err, store.ErrNotFound) {
					return nil, nil
				}
				return task, err
			},
		},
		"actions": &graphql.Field{
			Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(actionType))),
			Args: graphql.FieldConfigArgument{
				"limit": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: audit.DefaultLimit},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				limit, _ := p.Args["limit"].(int)
				return r.actions.Recent(p.Context, limit)
			},
		},
	}
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// resolve adapts a typed getter to a graphql resolver.
func resolve[T any](get func(T) interface{}) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		src, ok := p.Source.(T)
		if !ok {
			return nil, nil
		}
		return get(src), nil
	}
}

var userType = graphql.NewObject(graphql.ObjectConfig{
	Name: "User",
	Fields: graphql.Fields{
		"id": &graphql.Field{Type: graphql.NewNonNull(graphql.ID), Resolve: resolve(func(u *models.UserRef) interface{} {
			return u.ID.String()
		})},
		"username": &graphql.Field{Type: graphql.NewNonNull(graphql.String), Resolve: resolve(func(u *models.UserRef) interface{} {
			return u.Username
		})},
		"email": &graphql.Field{Type: graphql.String, Resolve: resolve(func(u *models.UserRef) interface{} {
			return u.Email
		})},
		"missing": &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean), Resolve: resolve(func(u *models.UserRef) interface{} {
			return u.Missing
		})},
	},
})

var taskType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Task",
	Fields: graphql.Fields{
		"id": &graphql.Field{Type: graphql.NewNonNull(graphql.ID), Resolve: resolve(func(t *models.Task) interface{} {
			return t.ID.String()
		})},
		"title": &graphql.Field{Type: graphql.NewNonNull(graphql.String), Resolve: resolve(func(t *models.Task) interface{} {
			return t.Title
		})},
		"description": &graphql.Field{Type: graphql.String, Resolve: resolve(func(t *models.Task) interface{} {
			return t.Description
		})},
		"status": &graphql.Field{Type: graphql.NewNonNull(graphql.String), Resolve: resolve(func(t *models.Task) interface{} {
			return string(t.Status)
		})},
		"priority": &graphql.Field{Type: graphql.NewNonNull(graphql.String), Resolve: resolve(func(t *models.Task) interface{} {
			return string(t.Priority)
		})},
		"assignee": &graphql.Field{Type: userType, Resolve: resolve(func(t *models.Task) interface{} {
			if t.Assignee == nil {
				return nil
			}
			return t.Assignee
		})},
		"version": &graphql.Field{Type: graphql.NewNonNull(graphql.Int), Resolve: resolve(func(t *models.Task) interface{} {
			return int(t.Version)
		})},
		"createdAt": &graphql.Field{Type: graphql.NewNonNull(graphql.String), Resolve: resolve(func(t *models.Task) interface{} {
			return timestamp(t.CreatedAt)
		})},
		"updatedAt": &graphql.Field{Type: graphql.NewNonNull(graphql.String), Resolve: resolve(func(t *models.Task) interface{} {
			return timestamp(t.UpdatedAt)
		})},
	},
})

var taskRefType = graphql.NewObject(graphql.ObjectConfig{
	Name: "TaskRef",
	Fields: graphql.Fields{
		"id": &graphql.Field{Type: graphql.NewNonNull(graphql.ID), Resolve: resolve(func(t *models.TaskRef) interface{} {
			return t.ID.String()
		})},
		"title": &graphql.Field{Type: graphql.String, Resolve: resolve(func(t *models.TaskRef) interface{} {
			return t.Title
		})},
		"missing": &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean), Resolve: resolve(func(t *models.TaskRef) interface{} {
			return t.Missing
		})},
	},
})

var actionType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Action",
	Fields: graphql.Fields{
		"id": &graphql.Field{Type: graphql.NewNonNull(graphql.ID), Resolve: resolve(func(a *audit.View) interface{} {
			return a.ID.String()
		})},
		"actionType": &graphql.Field{Type: graphql.NewNonNull(graphql.String), Resolve: resolve(func(a *audit.View) interface{} {
			return string(a.ActionType)
		})},
		"user": &graphql.Field{Type: graphql.NewNonNull(userType), Resolve: resolve(func(a *audit.View) interface{} {
			return a.User
		})},
		"task": &graphql.Field{Type: taskRefType, Resolve: resolve(func(a *audit.View) interface{} {
			if a.Task == nil {
				return nil
			}
			return a.Task
		})},
		// details are free-form, so they are served as a JSON string
		"details": &graphql.Field{Type: graphql.String, Resolve: resolve(func(a *audit.View) interface{} {
			if len(a.Details) == 0 {
				return nil
			}
			buf, err := json.Marshal(a.Details)
			if err != nil {
				return nil
			}
			return string(buf)
		})},
		"timestamp": &graphql.Field{Type: graphql.NewNonNull(graphql.String), Resolve: resolve(func(a *audit.View) interface{} {
			return timestamp(a.Timestamp)
		})},
	},
})
