// Package reconcile keeps a client-side replica of the board in step
// with the server.
//
// The replica is seeded from a full snapshot and then advanced by
// broadcast events. Local edits carry the cached version; a rejected
// edit becomes a PendingConflict that the interface layer resolves
// on its own schedule.
package reconcile

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/caesium-cloud/kanban/internal/event"
	"github.com/caesium-cloud/kanban/internal/models"
	"github.com/caesium-cloud/kanban/pkg/log"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var (
	// ErrUnknownTask is returned when editing a task that is not cached.
	ErrUnknownTask = errors.New("task is not in the local cache")
	// ErrConflictPending is returned by Edit when the server rejected
	// the edit. The conflict is available from Pending and Conflicts.
	ErrConflictPending = errors.New("edit conflicts with server state")
	// ErrNoConflict is returned by Resolve when nothing is pending.
	ErrNoConflict = errors.New("no pending conflict for task")
)

// Server is the reconciler's view of the authoritative store.
type Server interface {
	ListTasks(ctx context.Context) (models.Tasks, error)
	UpdateTask(ctx context.Context, id uuid.UUID, patch *models.TaskPatch, lastKnownVersion *int64) (*models.Task, error)
	Subscribe(ctx context.Context) (<-chan event.Event, error)
}

// PendingConflict is a local edit the server refused because the
// task moved on. Intent is what the user asked for; Server is the
// authoritative state at the time of the refusal.
type PendingConflict struct {
	TaskID     uuid.UUID
	Intent     *models.TaskPatch
	Server     *models.Task
	DetectedAt time.Time
}

// Resolution is the user's answer to a PendingConflict.
type Resolution int

const (
	// ForceOverwrite resubmits the intent without a version.
	ForceOverwrite Resolution = iota + 1
	// AcceptServer drops the intent and keeps the server state.
	AcceptServer
)

func (r Resolution) String() string {
	switch r {
	case ForceOverwrite:
		return "overwrite"
	case AcceptServer:
		return "accept"
	}
	return "unknown"
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithBackoff sets the reconnect backoff bounds.
func WithBackoff(initial, max time.Duration) Option {
	return func(r *Reconciler) {
		r.initialBackoff = initial
		r.maxBackoff = max
	}
}

// WithConflictBuffer sets how many unread conflict notifications are
// kept before new ones are only visible through Pending.
func WithConflictBuffer(n int) Option {
	return func(r *Reconciler) {
		r.conflictBuffer = n
	}
}

type Reconciler struct {
	server Server

	mu      sync.RWMutex
	tasks   map[uuid.UUID]*models.Task
	pending map[uuid.UUID]*PendingConflict

	conflicts chan *PendingConflict
	changes   chan struct{}
	connected atomic.Bool

	initialBackoff time.Duration
	maxBackoff     time.Duration
	conflictBuffer int
}

func New(server Server, opts ...Option) *Reconciler {
	r := &Reconciler{
		server:         server,
		tasks:          make(map[uuid.UUID]*models.Task),
		pending:        make(map[uuid.UUID]*PendingConflict),
		initialBackoff: 500 * time.Millisecond,
		maxBackoff:     30 * time.Second,
		conflictBuffer: 16,
	}

	for _, opt := range opts {
		opt(r)
	}

	r.conflicts = make(chan *PendingConflict, r.conflictBuffer)
	r.changes = make(chan struct{}, 1)

	return r
}

// Sync replaces the cache with a full snapshot from the server.
// Pending conflicts for tasks that no longer exist are dropped.
func (r *Reconciler) Sync(ctx context.Context) error {
	tasks, err := r.server.ListTasks(ctx)
	if err != nil {
		return errors.Wrap(err, "fetch snapshot")
	}

	next := make(map[uuid.UUID]*models.Task, len(tasks))
	for _, t := range tasks {
		next[t.ID] = t.Clone()
	}

	r.mu.Lock()
	r.tasks = next
	for id := range r.pending {
		if _, ok := next[id]; !ok {
			delete(r.pending, id)
		}
	}
	r.mu.Unlock()

	r.notify()
	return nil
}

// Apply merges one broadcast event into the cache. Created inserts
// only unknown ids, Updated replaces only known ids and never with an
// older version, Deleted removes if present.
func (r *Reconciler) Apply(e event.Event) {
	r.mu.Lock()
	changed := r.apply(e)
	r.mu.Unlock()

	if changed {
		r.notify()
	}
}

func (r *Reconciler) apply(e event.Event) bool {
	switch e.Type {
	case event.TypeTaskCreated:
		if e.Task == nil {
			return false
		}
		if _, ok := r.tasks[e.Task.ID]; ok {
			return false
		}
		r.tasks[e.Task.ID] = e.Task.Clone()
		return true

	case event.TypeTaskUpdated:
		if e.Task == nil {
			return false
		}
		return r.adopt(e.Task)

	case event.TypeTaskDeleted:
		delete(r.pending, e.TaskID)
		if _, ok := r.tasks[e.TaskID]; !ok {
			return false
		}
		delete(r.tasks, e.TaskID)
		return true
	}

	log.Debug("ignoring unknown event", "type", e.Type)
	return false
}

// adopt replaces a cached entry with task unless the entry is absent
// or newer. Must be called with mu held.
func (r *Reconciler) adopt(task *models.Task) bool {
	cached, ok := r.tasks[task.ID]
	if !ok || cached.Version > task.Version {
		return false
	}
	r.tasks[task.ID] = task.Clone()
	return true
}

// Edit sends patch to the server together with the cached version.
// On success the response is adopted. On a conflict the edit is
// parked as a PendingConflict and ErrConflictPending is returned.
func (r *Reconciler) Edit(ctx context.Context, id uuid.UUID, patch *models.TaskPatch) (*models.Task, error) {
	r.mu.RLock()
	cached, ok := r.tasks[id]
	var version int64
	if ok {
		version = cached.Version
	}
	r.mu.RUnlock()

	if !ok {
		return nil, ErrUnknownTask
	}

	updated, err := r.server.UpdateTask(ctx, id, patch, &version)

	var conflict *models.ConflictError
	switch {
	case err == nil:
		r.mu.Lock()
		changed := r.adopt(updated)
		r.mu.Unlock()
		if changed {
			r.notify()
		}
		return updated, nil

	case errors.As(err, &conflict):
		pc := &PendingConflict{
			TaskID:     id,
			Intent:     clonePatch(patch),
			Server:     conflict.Current.Clone(),
			DetectedAt: time.Now().UTC(),
		}

		r.mu.Lock()
		r.pending[id] = pc
		r.mu.Unlock()

		log.Info("edit conflicts with server", "task_id", id, "local_version", version)

		select {
		case r.conflicts <- pc:
		default:
			log.Warn("conflict notifications full", "task_id", id)
		}
		return nil, ErrConflictPending

	default:
		return nil, err
	}
}

// Resolve settles the pending conflict for id.
func (r *Reconciler) Resolve(ctx context.Context, id uuid.UUID, resolution Resolution) (*models.Task, error) {
	r.mu.RLock()
	pc, ok := r.pending[id]
	r.mu.RUnlock()

	if !ok {
		return nil, ErrNoConflict
	}

	switch resolution {
	case AcceptServer:
		r.mu.Lock()
		delete(r.pending, id)
		changed := pc.Server != nil && r.adopt(pc.Server)
		r.mu.Unlock()
		if changed {
			r.notify()
		}
		return pc.Server.Clone(), nil

	case ForceOverwrite:
		updated, err := r.server.UpdateTask(ctx, id, pc.Intent, nil)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		if r.pending[id] == pc {
			delete(r.pending, id)
		}
		changed := r.adopt(updated)
		r.mu.Unlock()
		if changed {
			r.notify()
		}
		return updated, nil
	}

	return nil, errors.Errorf("unknown resolution %d", resolution)
}

// Tasks returns a copy of the cache in creation order.
func (r *Reconciler) Tasks() models.Tasks {
	r.mu.RLock()
	tasks := make(models.Tasks, 0, len(r.tasks))
	for _, t := range r.tasks {
		tasks = append(tasks, t.Clone())
	}
	r.mu.RUnlock()

	sort.Slice(tasks, func(i, j int) bool {
		if !tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
		}
		return tasks[i].ID.String() < tasks[j].ID.String()
	})
	return tasks
}

// Task returns a copy of one cached task.
func (r *Reconciler) Task(id uuid.UUID) (*models.Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[id]
	return t.Clone(), ok
}

// Pending returns the unresolved conflicts.
func (r *Reconciler) Pending() []*PendingConflict {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*PendingConflict, 0, len(r.pending))
	for _, pc := range r.pending {
		out = append(out, pc)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].DetectedAt.Before(out[j].DetectedAt)
	})
	return out
}

// Conflicts delivers each new PendingConflict once.
func (r *Reconciler) Conflicts() <-chan *PendingConflict {
	return r.conflicts
}

// Changes receives a signal whenever the cache changes. Signals are
// coalesced; read Tasks for the current state.
func (r *Reconciler) Changes() <-chan struct{} {
	return r.changes
}

// Connected reports whether an event subscription is live.
func (r *Reconciler) Connected() bool {
	return r.connected.Load()
}

func (r *Reconciler) notify() {
	select {
	case r.changes <- struct{}{}:
	default:
	}
}

// Run keeps the replica subscribed until ctx is done. Every
// (re)connect subscribes before taking the snapshot so no event
// committed after the snapshot can be missed.
func (r *Reconciler) Run(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.initialBackoff
	b.MaxInterval = r.maxBackoff
	b.MaxElapsedTime = 0
	b.Reset()

	for {
		connected, err := r.session(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if connected {
			b.Reset()
		}

		wait := b.NextBackOff()
		log.Warn("event stream lost, reconnecting", "error", err, "retry_in", wait)

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

// session runs one subscription. connected reports whether the
// snapshot was taken, which resets the backoff.
func (r *Reconciler) session(ctx context.Context) (connected bool, err error) {
	sctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events, err := r.server.Subscribe(sctx)
	if err != nil {
		return false, errors.Wrap(err, "subscribe")
	}

	if err := r.Sync(sctx); err != nil {
		return false, err
	}

	r.connected.Store(true)
	r.notify()
	defer func() {
		r.connected.Store(false)
		r.notify()
	}()

	log.Info("replica synchronized", "tasks", len(r.Tasks()))

	for {
		select {
		case <-sctx.Done():
			return true, sctx.Err()
		case e, ok := <-events:
			if !ok {
				return true, errors.New("event stream closed")
			}
			r.Apply(e)
		}
	}
}

func clonePatch(p *models.TaskPatch) *models.TaskPatch {
	if p == nil {
		return &models.TaskPatch{}
	}
	c := *p
	if p.Title != nil {
		v := *p.Title
		c.Title = &v
	}
	if p.Description != nil {
		v := *p.Description
		c.Description = &v
	}
	if p.Status != nil {
		v := *p.Status
		c.Status = &v
	}
	if p.Priority != nil {
		v := *p.Priority
		c.Priority = &v
	}
	if p.AssignedTo != nil {
		v := *p.AssignedTo
		c.AssignedTo = &v
	}
	return &c
}
