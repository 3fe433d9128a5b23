package audit

import (
	"context"
	"testing"
	"time"

	"github.com/caesium-cloud/kanban/internal/metrics"
	metricstest "github.com/caesium-cloud/kanban/internal/metrics/testutil"
	"github.com/caesium-cloud/kanban/internal/models"
	"github.com/caesium-cloud/kanban/pkg/db/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

type AuditTestSuite struct {
	suite.Suite
	db  *gorm.DB
	log *Log
}

func (s *AuditTestSuite) SetupTest() {
	s.db = testutil.OpenTestDB(s.T())
	s.log = New(s.db, 16)
}

func (s *AuditTestSuite) TearDownTest() {
	s.log.Close()
}

func (s *AuditTestSuite) createUser(name string) *models.User {
	u := &models.User{
		ID:        uuid.New(),
		Username:  name,
		Email:     name + "@example.com",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	require.NoError(s.T(), s.db.Create(u).Error)
	return u
}

func (s *AuditTestSuite) createTask(title string) *models.Task {
	now := time.Now()
	t := &models.Task{
		ID:        uuid.New(),
		Title:     title,
		Status:    models.TaskStatusTodo,
		Priority:  models.TaskPriorityMedium,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(s.T(), s.db.Create(t).Error)
	return t
}

func (s *AuditTestSuite) TestAppendAndResolve() {
	alice := s.createUser("alice")
	task := s.createTask("Design Doc")

	s.log.Append(&alice.ID, models.ActionCreateTask, &task.ID, map[string]any{"title": task.Title})
	s.log.Close()

	views, err := s.log.Recent(context.Background(), 0)
	require.NoError(s.T(), err)
	require.Len(s.T(), views, 1)

	v := views[0]
	assert.Equal(s.T(), models.ActionCreateTask, v.ActionType)
	assert.Equal(s.T(), "alice", v.User.Username)
	assert.Equal(s.T(), "alice@example.com", v.User.Email)
	assert.False(s.T(), v.User.Missing)
	assert.Equal(s.T(), "Design Doc", v.Task.Title)
	assert.False(s.T(), v.Task.Missing)
	assert.Equal(s.T(), "Design Doc", v.Details["title"])
}

func (s *AuditTestSuite) TestMissingReferencesUsePlaceholders() {
	alice := s.createUser("alice")
	task := s.createTask("Design Doc")

	s.log.Append(&alice.ID, models.ActionDeleteTask, &task.ID, map[string]any{"title": "Design Doc"})
	s.log.Append(nil, models.ActionUpdateTask, nil, nil)
	s.log.Close()

	require.NoError(s.T(), s.db.Delete(&models.User{}, "id = ?", alice.ID).Error)
	require.NoError(s.T(), s.db.Delete(&models.Task{}, "id = ?", task.ID).Error)

	views, err := s.log.Recent(context.Background(), 10)
	require.NoError(s.T(), err)
	require.Len(s.T(), views, 2)

	byType := map[models.ActionType]*View{}
	for _, v := range views {
		byType[v.ActionType] = v
	}

	deleted := byType[models.ActionDeleteTask]
	assert.Equal(s.T(), models.UnknownUsername, deleted.User.Username)
	assert.Equal(s.T(), alice.ID, deleted.User.ID)
	assert.True(s.T(), deleted.User.Missing)
	assert.True(s.T(), deleted.Task.Missing)
	assert.Equal(s.T(), "Design Doc", deleted.Task.Title)

	anonymous := byType[models.ActionUpdateTask]
	assert.Equal(s.T(), models.UnknownUsername, anonymous.User.Username)
	assert.Nil(s.T(), anonymous.Task)
}

func (s *AuditTestSuite) TestRecentOrderAndLimit() {
	base := time.Now().UTC()
	for i := 0; i < MaxLimit+5; i++ {
		require.NoError(s.T(), s.db.Create(&models.Action{
			ID:         uuid.New(),
			ActionType: models.ActionUpdateTask,
			Timestamp:  base.Add(time.Duration(i) * time.Second),
		}).Error)
	}

	views, err := s.log.Recent(context.Background(), 0)
	require.NoError(s.T(), err)
	require.Len(s.T(), views, DefaultLimit)
	for i := 1; i < len(views); i++ {
		assert.True(s.T(), views[i-1].Timestamp.After(views[i].Timestamp))
	}
	assert.True(s.T(), views[0].Timestamp.Equal(base.Add(time.Duration(MaxLimit+4)*time.Second)))

	views, err = s.log.Recent(context.Background(), 1000)
	require.NoError(s.T(), err)
	assert.Len(s.T(), views, MaxLimit)
}

func (s *AuditTestSuite) TestRecentSameTimestampKeepsAppendOrder() {
	s.log.Close()

	l := New(s.db, 16)
	tick := time.Now().UTC().Truncate(time.Millisecond)
	l.now = func() time.Time { return tick }

	for i := 0; i < 10; i++ {
		l.Append(nil, models.ActionUpdateTask, nil, map[string]any{"n": i})
	}
	l.Close()

	views, err := l.Recent(context.Background(), 0)
	require.NoError(s.T(), err)
	require.Len(s.T(), views, 10)
	for i, v := range views {
		assert.True(s.T(), v.Timestamp.Equal(tick))
		assert.EqualValues(s.T(), 9-i, v.Details["n"])
	}
}

func (s *AuditTestSuite) TestRecentEmpty() {
	views, err := s.log.Recent(context.Background(), 5)
	require.NoError(s.T(), err)
	assert.NotNil(s.T(), views)
	assert.Empty(s.T(), views)
}

func (s *AuditTestSuite) TestFullQueueDrops() {
	// no writer goroutine, so the queue never drains
	l := newLog(s.db, 1)

	dropped := metricstest.CounterValue(s.T(), metrics.AuditAppendsTotal, metrics.OutcomeDropped)

	assert.NotPanics(s.T(), func() {
		l.Append(nil, models.ActionCreateTask, nil, nil)
		l.Append(nil, models.ActionCreateTask, nil, nil)
	})

	assert.Equal(s.T(), dropped+1, metricstest.CounterValue(s.T(), metrics.AuditAppendsTotal, metrics.OutcomeDropped))
	assert.Len(s.T(), l.queue, 1)
}

func (s *AuditTestSuite) TestAppendAfterClose() {
	s.log.Close()
	assert.NotPanics(s.T(), func() {
		s.log.Append(nil, models.ActionCreateTask, nil, nil)
	})
	testutil.AssertCount(s.T(), s.db, &models.Action{}, 0)
}

func (s *AuditTestSuite) TestUnencodableDetails() {
	failed := metricstest.CounterValue(s.T(), metrics.AuditAppendsTotal, metrics.OutcomeError)

	s.log.Append(nil, models.ActionCreateTask, nil, make(chan int))
	s.log.Close()

	assert.Equal(s.T(), failed+1, metricstest.CounterValue(s.T(), metrics.AuditAppendsTotal, metrics.OutcomeError))
	testutil.AssertCount(s.T(), s.db, &models.Action{}, 0)
}

func (s *AuditTestSuite) TestStorageFailureIsSwallowed() {
	require.NoError(s.T(), s.db.Migrator().DropTable(&models.Action{}))

	failed := metricstest.CounterValue(s.T(), metrics.AuditAppendsTotal, metrics.OutcomeError)

	assert.NotPanics(s.T(), func() {
		s.log.Append(nil, models.ActionCreateTask, nil, nil)
		s.log.Close()
	})

	assert.Equal(s.T(), failed+1, metricstest.CounterValue(s.T(), metrics.AuditAppendsTotal, metrics.OutcomeError))
}

func TestAuditTestSuite(t *testing.T) {
	suite.Run(t, new(AuditTestSuite))
}
