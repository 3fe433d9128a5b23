package seed

import (
	"context"
	"strings"
	"testing"

	"github.com/caesium-cloud/kanban/internal/models"
	"github.com/caesium-cloud/kanban/internal/store"
	"github.com/caesium-cloud/kanban/pkg/db/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const board = `
users:
  - username: alice
    email: alice@example.com
  - username: bob
    email: bob@example.com
tasks:
  - title: Design Doc
    status: In Progress
    priority: High
    assignee: bob
  - title: Review
`

type SeedTestSuite struct {
	suite.Suite
}

func (s *SeedTestSuite) TestLoadAndApply() {
	conn := testutil.OpenTestDB(s.T())

	b, err := Load(strings.NewReader(board))
	require.NoError(s.T(), err)
	require.Len(s.T(), b.Users, 2)
	require.Len(s.T(), b.Tasks, 2)

	res, err := Apply(context.Background(), conn, b)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), &Result{UsersCreated: 2, TasksCreated: 2}, res)

	st := store.New(conn)
	tasks, err := st.List(context.Background())
	require.NoError(s.T(), err)
	require.Len(s.T(), tasks, 2)
	assert.Equal(s.T(), models.TaskStatusInProgress, tasks[0].Status)
	assert.Equal(s.T(), "bob", tasks[0].Assignee.Username)
	assert.Equal(s.T(), models.TaskPriorityMedium, tasks[1].Priority)

	users, err := st.Users(context.Background())
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "alice", users[0].Username)

	res, err = Apply(context.Background(), conn, b)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), &Result{UsersSkipped: 2, TasksSkipped: 2}, res)
}

func (s *SeedTestSuite) TestRejectsBadInput() {
	_, err := Load(strings.NewReader("users:\n  - username: alice\n"))
	assert.Error(s.T(), err)

	_, err = Load(strings.NewReader("colour: blue\n"))
	assert.Error(s.T(), err)

	conn := testutil.OpenTestDB(s.T())
	b, err := Load(strings.NewReader("tasks:\n  - title: Todo\n"))
	require.NoError(s.T(), err)
	_, err = Apply(context.Background(), conn, b)
	assert.ErrorIs(s.T(), err, store.ErrTitleReserved)

	b, err = Load(strings.NewReader("tasks:\n  - title: a\n    assignee: nobody\n"))
	require.NoError(s.T(), err)
	_, err = Apply(context.Background(), conn, b)
	assert.Error(s.T(), err)
}

func (s *SeedTestSuite) TestEmptyFile() {
	b, err := Load(strings.NewReader(""))
	require.NoError(s.T(), err)
	assert.Empty(s.T(), b.Tasks)
}

func TestSeedTestSuite(t *testing.T) {
	suite.Run(t, new(SeedTestSuite))
}
