// Package assign picks the least-loaded user for a task.
package assign

import (
	"context"

	"github.com/caesium-cloud/kanban/internal/models"
	"github.com/caesium-cloud/kanban/internal/store"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ErrNoUsers is returned when there is nobody to assign to.
var ErrNoUsers = errors.New("No users available")

// Balancer assigns tasks by active load.
type Balancer struct {
	store *store.Store
	guard *store.Guard
}

func New(st *store.Store, guard *store.Guard) *Balancer {
	return &Balancer{store: st, guard: guard}
}

// SmartAssign assigns the task to the user with the fewest active
// (not Done) tasks. The write goes through the guard without an
// expected version, so it always applies to the latest state.
func (b *Balancer) SmartAssign(ctx context.Context, id uuid.UUID) (*models.Task, *models.User, error) {
	if _, err := b.store.Get(ctx, id); err != nil {
		return nil, nil, err
	}

	users, err := b.store.Users(ctx)
	if err != nil {
		return nil, nil, err
	}

	counts, err := b.store.ActiveCounts(ctx)
	if err != nil {
		return nil, nil, err
	}

	user := Pick(users, counts)
	if user == nil {
		return nil, nil, ErrNoUsers
	}

	task, err := b.guard.ApplyUpdate(ctx, id, &models.TaskPatch{AssignedTo: &user.ID}, nil)
	if err != nil {
		return nil, nil, err
	}

	return task, user, nil
}

// Pick returns the user with the smallest count. Users missing from
// counts have a count of zero. Ties go to the earliest user in the
// given order. Pick returns nil for an empty slice.
func Pick(users models.Users, counts map[uuid.UUID]int64) *models.User {
	var (
		best     *models.User
		bestLoad int64
	)

	for _, u := range users {
		load := counts[u.ID]
		if best == nil || load < bestLoad {
			best, bestLoad = u, load
		}
	}

	return best
}
