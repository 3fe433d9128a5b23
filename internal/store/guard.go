package store

import (
	"context"

	"github.com/caesium-cloud/kanban/internal/models"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// Guard applies partial updates under optimistic concurrency
// control. The version comparison and the write happen in a single
// conditional UPDATE, so two writers holding the same version can
// never both commit.
type Guard struct {
	store *Store
}

func NewGuard(st *Store) *Guard {
	if st == nil {
		panic("guard requires a task store")
	}
	return &Guard{store: st}
}

// ApplyUpdate commits patch to the task if expectedVersion is nil or
// equals the stored version. On a mismatch it returns a
// *models.ConflictError carrying the current server state and leaves
// the task untouched. The version is checked before the assignee and
// title rules.
func (g *Guard) ApplyUpdate(
	ctx context.Context,
	id uuid.UUID,
	patch *models.TaskPatch,
	expectedVersion *int64,
) (*models.Task, error) {
	p, err := normalizePatch(patch)
	if err != nil {
		return nil, err
	}

	var updated *models.Task

	err = g.store.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// a stale version is a conflict regardless of what else is
		// wrong with the patch
		if expectedVersion != nil {
			current, err := findTask(tx, id)
			if err != nil {
				return err
			}
			if current.Version != *expectedVersion {
				return &models.ConflictError{Current: current}
			}
		}

		if p.AssignedTo != nil && !p.Unassign {
			if _, err := findUser(tx, *p.AssignedTo); err != nil {
				return err
			}
		}

		if p.Title != nil {
			taken, err := titleTaken(tx, *p.Title, id)
			if err != nil {
				return err
			}
			if taken {
				return ErrTitleTaken
			}
		}

		values := p.Columns()
		values["version"] = gorm.Expr("version + ?", 1)
		values["updated_at"] = g.store.now()

		q := tx.Model(&models.Task{}).Where("id = ?", id)
		if expectedVersion != nil {
			q = q.Where("version = ?", *expectedVersion)
		}

		result := q.Updates(values)
		if result.Error != nil {
			return result.Error
		}

		current, err := findTask(tx, id)
		if err != nil {
			return err
		}

		if result.RowsAffected == 0 {
			return &models.ConflictError{Current: current}
		}

		updated = current
		return nil
	})

	var conflict *models.ConflictError
	switch {
	case err == nil:
	case errors.As(err, &conflict):
		if rerr := g.store.ResolveAssignees(ctx, models.Tasks{conflict.Current}); rerr != nil {
			return nil, rerr
		}
		return nil, conflict
	case IsDuplicateKey(err):
		return nil, ErrTitleTaken
	case IsValidation(err), errors.Is(err, ErrNotFound), errors.Is(err, ErrUserNotFound):
		return nil, err
	default:
		return nil, errors.Wrap(err, "update task")
	}

	if err := g.store.ResolveAssignees(ctx, models.Tasks{updated}); err != nil {
		return nil, err
	}

	return updated, nil
}
