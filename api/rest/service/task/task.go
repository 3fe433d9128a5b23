package task

import (
	"context"
	"sync"

	"github.com/caesium-cloud/kanban/internal/assign"
	"github.com/caesium-cloud/kanban/internal/audit"
	"github.com/caesium-cloud/kanban/internal/event"
	"github.com/caesium-cloud/kanban/internal/metrics"
	"github.com/caesium-cloud/kanban/internal/models"
	"github.com/caesium-cloud/kanban/internal/store"
	"github.com/caesium-cloud/kanban/pkg/log"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// Task is the mutation surface of the board. Every successful
// mutation is published to the bus and then recorded in the audit
// log, in that order, before the result is returned.
type Task interface {
	List() (models.Tasks, error)
	Get(uuid.UUID) (*models.Task, error)
	Create(*CreateRequest) (*models.Task, error)
	Update(*UpdateRequest) (*models.Task, error)
	Delete(*DeleteRequest) error
	SmartAssign(*AssignRequest) (*models.Task, error)
}

// Backend holds the long-lived collaborators shared by every request.
// Mutations commit and publish under mu, so subscribers see events in
// commit order.
type Backend struct {
	mu       sync.Mutex
	store    *store.Store
	guard    *store.Guard
	balancer *assign.Balancer
	bus      event.Bus
	audit    *audit.Log
}

func NewBackend(conn *gorm.DB, bus event.Bus, actions *audit.Log) *Backend {
	st := store.New(conn)
	guard := store.NewGuard(st)

	return &Backend{
		store:    st,
		guard:    guard,
		balancer: assign.New(st, guard),
		bus:      bus,
		audit:    actions,
	}
}

// commit runs a write and its publish as one ordered step.
func (b *Backend) commit(fn func() error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return fn()
}

// Service returns the task service bound to a request context.
func (b *Backend) Service(ctx context.Context) Task {
	return &taskService{ctx: ctx, b: b}
}

type taskService struct {
	ctx context.Context
	b   *Backend
}

func (t *taskService) List() (models.Tasks, error) {
	return t.b.store.List(t.ctx)
}

func (t *taskService) Get(id uuid.UUID) (*models.Task, error) {
	return t.b.store.Get(t.ctx, id)
}

type CreateRequest struct {
	Actor uuid.UUID
	models.NewTask
}

func (t *taskService) Create(req *CreateRequest) (*models.Task, error) {
	task := req.Task()

	err := t.b.commit(func() error {
		if err := t.b.store.Create(t.ctx, task); err != nil {
			return err
		}
		t.b.bus.Publish(event.Created(task))
		return nil
	})
	if err != nil {
		observe("create", err)
		return nil, err
	}

	t.b.audit.Append(&req.Actor, models.ActionCreateTask, &task.ID, map[string]any{"title": task.Title})
	observe("create", nil)

	log.Info("task created", "task_id", task.ID, "actor", req.Actor)

	return task, nil
}

type UpdateRequest struct {
	Actor uuid.UUID
	ID    uuid.UUID
	models.TaskUpdate
}

func (t *taskService) Update(req *UpdateRequest) (*models.Task, error) {
	var task *models.Task
	err := t.b.commit(func() (err error) {
		if task, err = t.b.guard.ApplyUpdate(t.ctx, req.ID, &req.TaskPatch, req.LastKnownVersion); err != nil {
			return err
		}
		t.b.bus.Publish(event.Updated(task))
		return nil
	})
	if err != nil {
		observe("update", err)
		return nil, err
	}

	t.b.audit.Append(&req.Actor, models.ActionUpdateTask, &task.ID, req.TaskPatch)
	observe("update", nil)

	log.Info("task updated", "task_id", task.ID, "version", task.Version, "actor", req.Actor)

	return task, nil
}

type DeleteRequest struct {
	Actor uuid.UUID
	ID    uuid.UUID
}

func (t *taskService) Delete(req *DeleteRequest) error {
	var task *models.Task
	err := t.b.commit(func() (err error) {
		if task, err = t.b.store.Delete(t.ctx, req.ID); err != nil {
			return err
		}
		t.b.bus.Publish(event.Deleted(task.ID))
		return nil
	})
	if err != nil {
		observe("delete", err)
		return err
	}

	t.b.audit.Append(&req.Actor, models.ActionDeleteTask, &task.ID, map[string]any{"title": task.Title})
	observe("delete", nil)

	log.Info("task deleted", "task_id", task.ID, "actor", req.Actor)

	return nil
}

type AssignRequest struct {
	Actor uuid.UUID
	ID    uuid.UUID
}

func (t *taskService) SmartAssign(req *AssignRequest) (*models.Task, error) {
	var (
		task *models.Task
		user *models.User
	)
	err := t.b.commit(func() (err error) {
		if task, user, err = t.b.balancer.SmartAssign(t.ctx, req.ID); err != nil {
			return err
		}
		t.b.bus.Publish(event.Updated(task))
		return nil
	})
	if err != nil {
		observe("assign", err)
		return nil, err
	}

	t.b.audit.Append(&req.Actor, models.ActionSmartAssign, &task.ID, map[string]any{"assignedTo": user.Username})
	observe("assign", nil)

	log.Info("task assigned", "task_id", task.ID, "assignee", user.ID, "actor", req.Actor)

	return task, nil
}

func observe(op string, err error) {
	var conflict *models.ConflictError

	outcome := metrics.OutcomeSuccess
	switch {
	case err == nil:
	case errors.As(err, &conflict):
		outcome = metrics.OutcomeConflict
		metrics.TaskConflictsTotal.Inc()
	case store.IsValidation(err),
		errors.Is(err, store.ErrNotFound),
		errors.Is(err, store.ErrUserNotFound),
		errors.Is(err, assign.ErrNoUsers):
		outcome = metrics.OutcomeRejected
	default:
		outcome = metrics.OutcomeError
	}

	metrics.TaskMutationsTotal.WithLabelValues(op, outcome).Inc()
}
