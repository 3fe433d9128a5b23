package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ActionType string

const (
	ActionCreateTask  ActionType = "CREATE_TASK"
	ActionUpdateTask  ActionType = "UPDATE_TASK"
	ActionDeleteTask  ActionType = "DELETE_TASK"
	ActionSmartAssign ActionType = "SMART_ASSIGN"
)

// Action is an append-only audit record. UserID and TaskID are
// weak references: the referent may have been deleted.
type Action struct {
	ID         uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     *uuid.UUID        `gorm:"type:uuid;index" json:"userId,omitempty"`
	ActionType ActionType        `gorm:"type:text;not null" json:"actionType"`
	TaskID     *uuid.UUID        `gorm:"type:uuid;index" json:"taskId,omitempty"`
	Details    datatypes.JSONMap `gorm:"type:json" json:"details,omitempty"`
	Timestamp  time.Time         `gorm:"index;not null" json:"timestamp"`
}

type Actions []*Action
