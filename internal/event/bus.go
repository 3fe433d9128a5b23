package event

import (
	"context"
	"sync"
	"time"

	"github.com/caesium-cloud/kanban/internal/metrics"
	"github.com/caesium-cloud/kanban/internal/models"
	"github.com/caesium-cloud/kanban/pkg/log"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/pkg/errors"
)

// Type is the kind of board change.
type Type string

const (
	TypeTaskCreated Type = "taskCreated"
	TypeTaskUpdated Type = "taskUpdated"
	TypeTaskDeleted Type = "taskDeleted"
)

// DefaultBuffer is the per-subscriber queue length used when New is
// given a non-positive size.
const DefaultBuffer = 64

// ErrClosed is returned by Subscribe after the bus is closed.
var ErrClosed = errors.New("event bus closed")

// Event is a committed board change. Task carries the full state for
// created and updated events and is nil for deletions.
type Event struct {
	Type      Type         `json:"type"`
	TaskID    uuid.UUID    `json:"taskId"`
	Task      *models.Task `json:"task,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

func Created(task *models.Task) Event {
	return Event{Type: TypeTaskCreated, TaskID: task.ID, Task: task.Clone(), Timestamp: time.Now().UTC()}
}

func Updated(task *models.Task) Event {
	return Event{Type: TypeTaskUpdated, TaskID: task.ID, Task: task.Clone(), Timestamp: time.Now().UTC()}
}

func Deleted(id uuid.UUID) Event {
	return Event{Type: TypeTaskDeleted, TaskID: id, Timestamp: time.Now().UTC()}
}

// Bus fans committed changes out to every connected subscriber.
type Bus interface {
	// Publish delivers e to every subscriber without blocking.
	Publish(e Event)
	// Subscribe registers a subscriber until ctx is done. The returned
	// channel is closed when the subscription ends, including when the
	// subscriber falls behind and is evicted.
	Subscribe(ctx context.Context) (<-chan Event, error)
	// Subscribers returns the number of live subscriptions.
	Subscribers() int
	// Close ends every subscription.
	Close()
}

type subscriber struct {
	id   string
	ch   chan Event
	done chan struct{}
}

type bus struct {
	subscribers map[string]*subscriber
	buffer      int
	closed      bool
	mu          sync.Mutex
}

// New creates an event bus whose subscribers each buffer up to
// buffer events.
func New(buffer int) Bus {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &bus{
		subscribers: make(map[string]*subscriber),
		buffer:      buffer,
	}
}

func (b *bus) Publish(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	metrics.EventsPublishedTotal.WithLabelValues(string(e.Type)).Inc()

	for id, sub := range b.subscribers {
		select {
		case sub.ch <- e:
		default:
			// a subscriber that cannot keep up has already missed
			// state; cut it loose so it resyncs on reconnect
			log.Warn("evicting slow event subscriber", "subscriber", id, "buffer", b.buffer)
			b.remove(id)
			metrics.EventEvictionsTotal.Inc()
		}
	}
}

func (b *bus) Subscribe(ctx context.Context) (<-chan Event, error) {
	sub := &subscriber{
		id:   ulid.Make().String(),
		ch:   make(chan Event, b.buffer),
		done: make(chan struct{}),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrClosed
	}
	b.subscribers[sub.id] = sub
	metrics.EventSubscribers.Inc()
	b.mu.Unlock()

	log.Debug("event subscriber connected", "subscriber", sub.id)

	go func() {
		select {
		case <-ctx.Done():
			b.mu.Lock()
			b.remove(sub.id)
			b.mu.Unlock()
		case <-sub.done:
		}
		log.Debug("event subscriber disconnected", "subscriber", sub.id)
	}()

	return sub.ch, nil
}

func (b *bus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers)
}

func (b *bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	for id := range b.subscribers {
		b.remove(id)
	}
}

// remove must be called with mu held.
func (b *bus) remove(id string) {
	sub, ok := b.subscribers[id]
	if !ok {
		return
	}
	delete(b.subscribers, id)
	close(sub.ch)
	close(sub.done)
	metrics.EventSubscribers.Dec()
}
