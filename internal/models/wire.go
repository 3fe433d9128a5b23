package models

import "github.com/google/uuid"

// NewTask is the body of a create request.
type NewTask struct {
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Status      TaskStatus   `json:"status,omitempty"`
	Priority    TaskPriority `json:"priority,omitempty"`
	AssignedTo  *uuid.UUID   `json:"assignedTo,omitempty"`
}

// Task converts the request into an unsaved task.
func (n *NewTask) Task() *Task {
	t := &Task{
		Title:       n.Title,
		Description: n.Description,
		Status:      n.Status,
		Priority:    n.Priority,
	}
	if n.AssignedTo != nil {
		id := *n.AssignedTo
		t.AssignedTo = &id
	}
	return t
}

// TaskUpdate is the body of an update request. A missing
// LastKnownVersion applies the patch unconditionally.
type TaskUpdate struct {
	TaskPatch
	LastKnownVersion *int64 `json:"lastKnownVersion,omitempty"`
}

// Message is the generic response body.
type Message struct {
	Message string `json:"message"`
}

// Conflict is the body of a 409 response.
type Conflict struct {
	Message       string `json:"message"`
	ServerVersion *Task  `json:"serverVersion"`
}
