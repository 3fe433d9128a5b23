// Package audit records who did what to which task.
//
// Appends are handed to a single background writer so that a slow
// or failing store never holds up the mutation that produced them.
package audit

import (
	"context"
	"crypto/rand"
	"sync"
	"time"

	"github.com/caesium-cloud/kanban/internal/metrics"
	"github.com/caesium-cloud/kanban/internal/models"
	"github.com/caesium-cloud/kanban/pkg/jsonmap"
	"github.com/caesium-cloud/kanban/pkg/log"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/pkg/errors"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100

	DefaultQueue = 256

	writeTimeout = 5 * time.Second
)

// Log is the append-only action log. Action ids are ULIDs drawn
// under idMu, so they sort in append order even when timestamps tie.
type Log struct {
	db      *gorm.DB
	queue   chan *models.Action
	wg      *conc.WaitGroup
	mu      sync.RWMutex
	closed  bool
	idMu    sync.Mutex
	entropy *ulid.MonotonicEntropy
	now     func() time.Time
}

// New starts the background writer. Close must be called to drain it.
func New(conn *gorm.DB, size int) *Log {
	if size <= 0 {
		size = DefaultQueue
	}

	l := newLog(conn, size)
	l.wg.Go(l.drain)

	return l
}

func newLog(conn *gorm.DB, size int) *Log {
	return &Log{
		db:      conn,
		queue:   make(chan *models.Action, size),
		wg:      conc.NewWaitGroup(),
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Append enqueues an action and returns immediately. A full queue or
// an unencodable details value is logged and counted; it is never
// reported to the caller.
func (l *Log) Append(userID *uuid.UUID, actionType models.ActionType, taskID *uuid.UUID, details any) {
	id, ts := l.stamp()
	action := &models.Action{
		ID:         id,
		UserID:     copyID(userID),
		ActionType: actionType,
		TaskID:     copyID(taskID),
		Timestamp:  ts,
	}

	if details != nil {
		values, err := jsonmap.FromValue(details)
		if err != nil {
			log.Error("failed to encode action details", "action_type", actionType, "error", err)
			metrics.AuditAppendsTotal.WithLabelValues(metrics.OutcomeError).Inc()
			return
		}
		action.Details = values
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		log.Warn("action log closed, dropping action", "action_type", actionType)
		metrics.AuditAppendsTotal.WithLabelValues(metrics.OutcomeDropped).Inc()
		return
	}

	select {
	case l.queue <- action:
	default:
		log.Error("action log queue full, dropping action", "action_type", actionType, "capacity", cap(l.queue))
		metrics.AuditAppendsTotal.WithLabelValues(metrics.OutcomeDropped).Inc()
	}
}

func (l *Log) stamp() (uuid.UUID, time.Time) {
	l.idMu.Lock()
	defer l.idMu.Unlock()

	ts := l.now()
	return uuid.UUID(ulid.MustNew(ulid.Timestamp(ts), l.entropy)), ts
}

// Close stops accepting actions and waits for queued ones to be written.
func (l *Log) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	close(l.queue)
	l.mu.Unlock()

	l.wg.Wait()
}

func (l *Log) drain() {
	for action := range l.queue {
		l.write(action)
	}
}

func (l *Log) write(action *models.Action) {
	var (
		catcher panics.Catcher
		err     error
	)

	catcher.Try(func() {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()
		err = l.db.WithContext(ctx).Create(action).Error
	})
	if err == nil {
		err = catcher.Recovered().AsError()
	}

	if err != nil {
		log.Error(
			"failed to persist action",
			"action_id", action.ID,
			"action_type", action.ActionType,
			"error", err,
		)
		metrics.AuditAppendsTotal.WithLabelValues(metrics.OutcomeError).Inc()
		return
	}

	metrics.AuditAppendsTotal.WithLabelValues(metrics.OutcomeSuccess).Inc()
}

// View is an action with its weak references resolved for display.
type View struct {
	ID         uuid.UUID         `json:"id"`
	ActionType models.ActionType `json:"actionType"`
	User       *models.UserRef   `json:"user"`
	Task       *models.TaskRef   `json:"task,omitempty"`
	Details    datatypes.JSONMap `json:"details,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}

// Recent returns up to limit actions, newest first. A non-positive
// limit means DefaultLimit; anything above MaxLimit is capped.
// Users and tasks that no longer exist resolve to placeholders.
func (l *Log) Recent(ctx context.Context, limit int) ([]*View, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	actions := make(models.Actions, 0, limit)
	if err := l.db.WithContext(ctx).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "timestamp"}, Desc: true}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: true}).
		Limit(limit).
		Find(&actions).Error; err != nil {
		return nil, errors.Wrap(err, "list actions")
	}

	users, tasks := l.resolve(ctx, actions)

	views := make([]*View, 0, len(actions))
	for _, a := range actions {
		v := &View{
			ID:         a.ID,
			ActionType: a.ActionType,
			Details:    a.Details,
			Timestamp:  a.Timestamp,
		}

		switch {
		case a.UserID == nil:
			v.User = models.UnknownUser(uuid.Nil)
		case users[*a.UserID] != nil:
			v.User = users[*a.UserID]
		default:
			v.User = models.UnknownUser(*a.UserID)
		}

		if a.TaskID != nil {
			if ref, ok := tasks[*a.TaskID]; ok {
				v.Task = ref
			} else {
				title, _ := jsonmap.String(a.Details, "title")
				v.Task = &models.TaskRef{ID: *a.TaskID, Title: title, Missing: true}
			}
		}

		views = append(views, v)
	}

	return views, nil
}

// resolve batch-loads the referenced users and tasks. Lookup
// failures degrade to placeholders rather than failing the read.
func (l *Log) resolve(ctx context.Context, actions models.Actions) (map[uuid.UUID]*models.UserRef, map[uuid.UUID]*models.TaskRef) {
	var userIDs, taskIDs []uuid.UUID
	for _, a := range actions {
		if a.UserID != nil {
			userIDs = append(userIDs, *a.UserID)
		}
		if a.TaskID != nil {
			taskIDs = append(taskIDs, *a.TaskID)
		}
	}

	users := map[uuid.UUID]*models.UserRef{}
	if len(userIDs) > 0 {
		var found models.Users
		if err := l.db.WithContext(ctx).Where("id IN ?", userIDs).Find(&found).Error; err != nil {
			log.Error("failed to resolve action users", "error", err)
		}
		for _, u := range found {
			users[u.ID] = u.Ref()
		}
	}

	tasks := map[uuid.UUID]*models.TaskRef{}
	if len(taskIDs) > 0 {
		var found models.Tasks
		if err := l.db.WithContext(ctx).Select("id", "title").Where("id IN ?", taskIDs).Find(&found).Error; err != nil {
			log.Error("failed to resolve action tasks", "error", err)
		}
		for _, t := range found {
			tasks[t.ID] = t.Ref()
		}
	}

	return users, tasks
}

func copyID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	c := *id
	return &c
}
