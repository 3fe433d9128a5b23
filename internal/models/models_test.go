package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type ModelsTestSuite struct {
	suite.Suite
}

func (s *ModelsTestSuite) TestStatusValidity() {
	for _, status := range Statuses() {
		assert.True(s.T(), status.Valid())
	}
	assert.False(s.T(), TaskStatus("Blocked").Valid())
	assert.False(s.T(), TaskStatus("todo").Valid())

	assert.True(s.T(), TaskStatusTodo.Active())
	assert.True(s.T(), TaskStatusInProgress.Active())
	assert.False(s.T(), TaskStatusDone.Active())
}

func (s *ModelsTestSuite) TestPriorityValidity() {
	assert.True(s.T(), TaskPriorityHigh.Valid())
	assert.False(s.T(), TaskPriority("Urgent").Valid())
}

func (s *ModelsTestSuite) TestPatchColumns() {
	title := "Design Doc"
	status := TaskStatusDone
	user := uuid.New()

	patch := &TaskPatch{Title: &title, Status: &status, AssignedTo: &user}
	assert.Equal(s.T(), map[string]interface{}{
		"title":       "Design Doc",
		"status":      "Done",
		"assigned_to": user,
	}, patch.Columns())

	patch.Unassign = true
	cols := patch.Columns()
	v, ok := cols["assigned_to"]
	assert.True(s.T(), ok)
	assert.Nil(s.T(), v)

	assert.Empty(s.T(), (&TaskPatch{}).Columns())
}

func (s *ModelsTestSuite) TestPatchApplyTo() {
	user := uuid.New()
	desc := "updated"
	task := &Task{Title: "a", Status: TaskStatusTodo, Assignee: &UserRef{Username: "old"}}

	(&TaskPatch{Description: &desc, AssignedTo: &user}).ApplyTo(task)
	assert.Equal(s.T(), "updated", task.Description)
	assert.Equal(s.T(), user, *task.AssignedTo)
	assert.Nil(s.T(), task.Assignee)
	assert.Equal(s.T(), "a", task.Title)

	(&TaskPatch{Unassign: true}).ApplyTo(task)
	assert.Nil(s.T(), task.AssignedTo)
}

func (s *ModelsTestSuite) TestCloneIsDeep() {
	user := uuid.New()
	task := &Task{ID: uuid.New(), AssignedTo: &user, Assignee: &UserRef{Username: "alice"}}

	c := task.Clone()
	*c.AssignedTo = uuid.New()
	c.Assignee.Username = "bob"

	assert.Equal(s.T(), user, *task.AssignedTo)
	assert.Equal(s.T(), "alice", task.Assignee.Username)
	assert.Nil(s.T(), (*Task)(nil).Clone())
}

func (s *ModelsTestSuite) TestUnknownUser() {
	id := uuid.New()
	ref := UnknownUser(id)
	assert.Equal(s.T(), id, ref.ID)
	assert.Equal(s.T(), UnknownUsername, ref.Username)
	assert.True(s.T(), ref.Missing)
}

func TestModelsTestSuite(t *testing.T) {
	suite.Run(t, new(ModelsTestSuite))
}
