package task

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/caesium-cloud/kanban/internal/assign"
	"github.com/caesium-cloud/kanban/internal/audit"
	"github.com/caesium-cloud/kanban/internal/event"
	"github.com/caesium-cloud/kanban/internal/metrics"
	metricstest "github.com/caesium-cloud/kanban/internal/metrics/testutil"
	"github.com/caesium-cloud/kanban/internal/models"
	"github.com/caesium-cloud/kanban/internal/store"
	"github.com/caesium-cloud/kanban/pkg/db/testutil"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

type TaskTestSuite struct {
	suite.Suite
	db      *gorm.DB
	bus     event.Bus
	actions *audit.Log
	backend *Backend
	events  <-chan event.Event
	actor   *models.User
	cancel  context.CancelFunc
}

func (s *TaskTestSuite) SetupTest() {
	s.db = testutil.OpenTestDB(s.T())
	s.bus = event.New(16)
	s.actions = audit.New(s.db, 16)
	s.backend = NewBackend(s.db, s.bus, s.actions)

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	events, err := s.bus.Subscribe(ctx)
	require.NoError(s.T(), err)
	s.events = events

	s.actor = &models.User{
		ID:        uuid.New(),
		Username:  "alice",
		Email:     "alice@example.com",
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	require.NoError(s.T(), s.db.Create(s.actor).Error)
}

func (s *TaskTestSuite) TearDownTest() {
	s.cancel()
	s.bus.Close()
	s.actions.Close()
}

func (s *TaskTestSuite) svc() Task {
	return s.backend.Service(context.Background())
}

func (s *TaskTestSuite) next() event.Event {
	select {
	case e := <-s.events:
		return e
	case <-time.After(time.Second):
		s.T().Fatal("timed out waiting for event")
	}
	return event.Event{}
}

func (s *TaskTestSuite) noEvent() {
	select {
	case e := <-s.events:
		s.T().Fatalf("unexpected event %s", e.Type)
	case <-time.After(20 * time.Millisecond):
	}
}

func (s *TaskTestSuite) recent() []*audit.View {
	s.actions.Close()
	views, err := s.actions.Recent(context.Background(), 0)
	require.NoError(s.T(), err)
	return views
}

func ptr[T any](v T) *T {
	return &v
}

func (s *TaskTestSuite) create(title string) *models.Task {
	task, err := s.svc().Create(&CreateRequest{Actor: s.actor.ID, NewTask: models.NewTask{Title: title}})
	require.NoError(s.T(), err)
	require.Equal(s.T(), event.TypeTaskCreated, s.next().Type)
	return task
}

func (s *TaskTestSuite) TestCreatePublishesAndAudits() {
	task := s.create("Design Doc")
	assert.Equal(s.T(), int64(1), task.Version)

	views := s.recent()
	require.Len(s.T(), views, 1)
	assert.Equal(s.T(), models.ActionCreateTask, views[0].ActionType)
	assert.Equal(s.T(), "alice", views[0].User.Username)
	assert.Equal(s.T(), "Design Doc", views[0].Task.Title)
}

func (s *TaskTestSuite) TestRejectedCreateHasNoSideEffects() {
	s.create("Design Doc")

	_, err := s.svc().Create(&CreateRequest{Actor: s.actor.ID, NewTask: models.NewTask{Title: "Design Doc"}})
	assert.ErrorIs(s.T(), err, store.ErrTitleTaken)

	_, err = s.svc().Create(&CreateRequest{Actor: s.actor.ID, NewTask: models.NewTask{Title: "Todo"}})
	assert.ErrorIs(s.T(), err, store.ErrTitleReserved)

	s.noEvent()
	assert.Len(s.T(), s.recent(), 1)
}

func (s *TaskTestSuite) TestUpdateConflict() {
	task := s.create("Design Doc")

	updated, err := s.svc().Update(&UpdateRequest{
		Actor: s.actor.ID,
		ID:    task.ID,
		TaskUpdate: models.TaskUpdate{
			TaskPatch:        models.TaskPatch{Status: ptr(models.TaskStatusInProgress)},
			LastKnownVersion: ptr(int64(1)),
		},
	})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(2), updated.Version)

	e := s.next()
	assert.Equal(s.T(), event.TypeTaskUpdated, e.Type)
	assert.Equal(s.T(), int64(2), e.Task.Version)

	conflicts := metricstest.MetricValue(s.T(), metrics.TaskConflictsTotal)

	_, err = s.svc().Update(&UpdateRequest{
		Actor: s.actor.ID,
		ID:    task.ID,
		TaskUpdate: models.TaskUpdate{
			TaskPatch:        models.TaskPatch{Status: ptr(models.TaskStatusDone)},
			LastKnownVersion: ptr(int64(1)),
		},
	})

	var conflict *models.ConflictError
	require.True(s.T(), errors.As(err, &conflict))
	assert.Equal(s.T(), models.TaskStatusInProgress, conflict.Current.Status)
	assert.Equal(s.T(), conflicts+1, metricstest.MetricValue(s.T(), metrics.TaskConflictsTotal))

	s.noEvent()

	views := s.recent()
	require.Len(s.T(), views, 2)
	assert.Equal(s.T(), models.ActionUpdateTask, views[0].ActionType)
	assert.Equal(s.T(), "In Progress", views[0].Details["status"])
}

func (s *TaskTestSuite) TestConcurrentUpdatesPublishInCommitOrder() {
	const writers = 200

	bus := event.New(writers + 8)
	defer bus.Close()
	actions := audit.New(s.db, writers+8)
	defer actions.Close()
	backend := NewBackend(s.db, bus, actions)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, err := bus.Subscribe(ctx)
	require.NoError(s.T(), err)

	task, err := backend.Service(ctx).Create(&CreateRequest{Actor: s.actor.ID, NewTask: models.NewTask{Title: "Design Doc"}})
	require.NoError(s.T(), err)

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := backend.Service(ctx).Update(&UpdateRequest{
				Actor:      s.actor.ID,
				ID:         task.ID,
				TaskUpdate: models.TaskUpdate{TaskPatch: models.TaskPatch{Description: ptr(uuid.NewString())}},
			})
			assert.NoError(s.T(), err)
		}(i)
	}
	wg.Wait()

	created := <-events
	require.Equal(s.T(), event.TypeTaskCreated, created.Type)

	last := created.Task.Version
	for i := 0; i < writers; i++ {
		e := <-events
		require.Equal(s.T(), event.TypeTaskUpdated, e.Type)
		require.Equal(s.T(), last+1, e.Task.Version, "event %d out of commit order", i)
		last = e.Task.Version
	}
	assert.Equal(s.T(), int64(writers+1), last)
}

func (s *TaskTestSuite) TestDelete() {
	task := s.create("Design Doc")

	require.NoError(s.T(), s.svc().Delete(&DeleteRequest{Actor: s.actor.ID, ID: task.ID}))

	e := s.next()
	assert.Equal(s.T(), event.TypeTaskDeleted, e.Type)
	assert.Equal(s.T(), task.ID, e.TaskID)

	err := s.svc().Delete(&DeleteRequest{Actor: s.actor.ID, ID: task.ID})
	assert.ErrorIs(s.T(), err, store.ErrNotFound)
	s.noEvent()

	views := s.recent()
	require.Len(s.T(), views, 2)
	assert.Equal(s.T(), models.ActionDeleteTask, views[0].ActionType)
	assert.True(s.T(), views[0].Task.Missing)
	assert.Equal(s.T(), "Design Doc", views[0].Task.Title)
}

func (s *TaskTestSuite) TestSmartAssign() {
	task := s.create("Design Doc")

	assigned, err := s.svc().SmartAssign(&AssignRequest{Actor: s.actor.ID, ID: task.ID})
	require.NoError(s.T(), err)
	require.NotNil(s.T(), assigned.Assignee)
	assert.Equal(s.T(), "alice", assigned.Assignee.Username)

	e := s.next()
	assert.Equal(s.T(), event.TypeTaskUpdated, e.Type)
	assert.Equal(s.T(), s.actor.ID, *e.Task.AssignedTo)

	views := s.recent()
	require.Len(s.T(), views, 2)
	assert.Equal(s.T(), models.ActionSmartAssign, views[0].ActionType)
	assert.Equal(s.T(), "alice", views[0].Details["assignedTo"])
}

func (s *TaskTestSuite) TestSmartAssignNoUsers() {
	require.NoError(s.T(), s.db.Delete(&models.User{}, "id = ?", s.actor.ID).Error)
	task := s.create("Design Doc")

	_, err := s.svc().SmartAssign(&AssignRequest{Actor: s.actor.ID, ID: task.ID})
	assert.ErrorIs(s.T(), err, assign.ErrNoUsers)
	s.noEvent()
}

func (s *TaskTestSuite) TestListAndGet() {
	task := s.create("Design Doc")

	tasks, err := s.svc().List()
	require.NoError(s.T(), err)
	require.Len(s.T(), tasks, 1)

	got, err := s.svc().Get(task.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), task.ID, got.ID)
}

func TestTaskTestSuite(t *testing.T) {
	suite.Run(t, new(TaskTestSuite))
}
