package watch

import (
	"bytes"
	"testing"

	"github.com/caesium-cloud/kanban/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestRender(t *testing.T) {
	tasks := models.Tasks{
		{ID: uuid.New(), Title: "Design Doc", Status: models.TaskStatusInProgress, Priority: models.TaskPriorityHigh, Version: 2,
			Assignee: &models.UserRef{Username: "alice"}},
		{ID: uuid.New(), Title: "Review", Status: models.TaskStatusTodo, Priority: models.TaskPriorityLow, Version: 1},
	}

	var buf bytes.Buffer
	Render(&buf, tasks, false)

	out := buf.String()
	assert.Contains(t, out, "[reconnecting] 2 task(s)")
	assert.Contains(t, out, "Design Doc")
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "v2")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("Review")), bytes.Index(buf.Bytes(), []byte("Design Doc")))
}
