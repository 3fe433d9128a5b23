package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/caesium-cloud/kanban/internal/models"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Action is an activity feed entry as served by the API.
type Action struct {
	ID         uuid.UUID         `json:"id"`
	ActionType models.ActionType `json:"actionType"`
	User       *models.UserRef   `json:"user"`
	Task       *models.TaskRef   `json:"task,omitempty"`
	Details    datatypes.JSONMap `json:"details,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}

// RecentActions returns the newest actions. A non-positive limit
// uses the server default.
func (c *Client) RecentActions(ctx context.Context, limit int) ([]*Action, error) {
	path := "/v1/actions"
	if limit > 0 {
		path = fmt.Sprintf("%s?limit=%d", path, limit)
	}

	actions := []*Action{}
	if err := c.do(ctx, http.MethodGet, path, nil, &actions); err != nil {
		return nil, err
	}
	return actions, nil
}
