package client

import (
	"context"
	"net/http"

	"github.com/caesium-cloud/kanban/internal/models"
	"github.com/google/uuid"
)

func (c *Client) ListTasks(ctx context.Context) (models.Tasks, error) {
	tasks := models.Tasks{}
	if err := c.do(ctx, http.MethodGet, "/v1/tasks", nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (c *Client) GetTask(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	task := &models.Task{}
	if err := c.do(ctx, http.MethodGet, "/v1/tasks/"+id.String(), nil, task); err != nil {
		return nil, err
	}
	return task, nil
}

func (c *Client) CreateTask(ctx context.Context, req *models.NewTask) (*models.Task, error) {
	task := &models.Task{}
	if err := c.do(ctx, http.MethodPost, "/v1/tasks", req, task); err != nil {
		return nil, err
	}
	return task, nil
}

// UpdateTask sends a partial update. When lastKnownVersion is set and
// stale the result is a *models.ConflictError with the server state.
func (c *Client) UpdateTask(ctx context.Context, id uuid.UUID, patch *models.TaskPatch, lastKnownVersion *int64) (*models.Task, error) {
	body := &models.TaskUpdate{LastKnownVersion: lastKnownVersion}
	if patch != nil {
		body.TaskPatch = *patch
	}

	task := &models.Task{}
	if err := c.do(ctx, http.MethodPut, "/v1/tasks/"+id.String(), body, task); err != nil {
		return nil, err
	}
	return task, nil
}

func (c *Client) DeleteTask(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/v1/tasks/"+id.String(), nil, nil)
}

// SmartAssign asks the server to assign the task to the least-loaded user.
func (c *Client) SmartAssign(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	task := &models.Task{}
	if err := c.do(ctx, http.MethodPut, "/v1/tasks/"+id.String()+"/smart-assign", nil, task); err != nil {
		return nil, err
	}
	return task, nil
}
