package models

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus is the board column a task sits in.
type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "Todo"
	TaskStatusInProgress TaskStatus = "In Progress"
	TaskStatusDone       TaskStatus = "Done"
)

// Statuses returns the board columns in display order.
func Statuses() []TaskStatus {
	return []TaskStatus{TaskStatusTodo, TaskStatusInProgress, TaskStatusDone}
}

// Valid reports whether s is a known column.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusDone:
		return true
	}
	return false
}

// Active reports whether a task in this status counts toward
// its assignee's load.
func (s TaskStatus) Active() bool {
	return s != TaskStatusDone
}

type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "Low"
	TaskPriorityMedium TaskPriority = "Medium"
	TaskPriorityHigh   TaskPriority = "High"
)

func (p TaskPriority) Valid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh:
		return true
	}
	return false
}

// Task is a card on the shared board. Version is the optimistic
// concurrency token: it starts at 1 and increases by one on every
// committed update.
type Task struct {
	ID          uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	Title       string       `gorm:"type:text;uniqueIndex;not null" json:"title"`
	Description string       `gorm:"type:text" json:"description"`
	Status      TaskStatus   `gorm:"type:text;index;not null" json:"status"`
	Priority    TaskPriority `gorm:"type:text;not null" json:"priority"`
	AssignedTo  *uuid.UUID   `gorm:"type:uuid;index" json:"assignedTo,omitempty"`
	Assignee    *UserRef     `gorm:"-" json:"assignee,omitempty"`
	Version     int64        `gorm:"not null;default:1" json:"version"`
	CreatedAt   time.Time    `gorm:"not null" json:"createdAt"`
	UpdatedAt   time.Time    `gorm:"not null" json:"updatedAt"`
}

// Ref returns the display projection used by audit entries.
func (t *Task) Ref() *TaskRef {
	return &TaskRef{ID: t.ID, Title: t.Title}
}

type Tasks []*Task

// TaskRef is the lightweight projection of a task.
type TaskRef struct {
	ID      uuid.UUID `json:"id"`
	Title   string    `json:"title"`
	Missing bool      `json:"missing,omitempty"`
}

// TaskPatch is a partial update. Nil fields are left untouched;
// Unassign clears the assignee and wins over AssignedTo.
type TaskPatch struct {
	Title       *string       `json:"title,omitempty"`
	Description *string       `json:"description,omitempty"`
	Status      *TaskStatus   `json:"status,omitempty"`
	Priority    *TaskPriority `json:"priority,omitempty"`
	AssignedTo  *uuid.UUID    `json:"assignedTo,omitempty"`
	Unassign    bool          `json:"unassign,omitempty"`
}

// Columns returns the patch as a column/value map for a gorm update.
func (p *TaskPatch) Columns() map[string]interface{} {
	values := map[string]interface{}{}
	if p.Title != nil {
		values["title"] = *p.Title
	}
	if p.Description != nil {
		values["description"] = *p.Description
	}
	if p.Status != nil {
		values["status"] = string(*p.Status)
	}
	if p.Priority != nil {
		values["priority"] = string(*p.Priority)
	}
	switch {
	case p.Unassign:
		values["assigned_to"] = nil
	case p.AssignedTo != nil:
		values["assigned_to"] = *p.AssignedTo
	}
	return values
}

// ApplyTo applies the patch to a local copy of a task.
func (p *TaskPatch) ApplyTo(t *Task) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	switch {
	case p.Unassign:
		t.AssignedTo = nil
		t.Assignee = nil
	case p.AssignedTo != nil:
		id := *p.AssignedTo
		t.AssignedTo = &id
		t.Assignee = nil
	}
}

// Clone returns a deep copy of the task.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	if t.AssignedTo != nil {
		id := *t.AssignedTo
		c.AssignedTo = &id
	}
	if t.Assignee != nil {
		ref := *t.Assignee
		c.Assignee = &ref
	}
	return &c
}
