package store

import (
	"context"
	"time"

	"github.com/caesium-cloud/kanban/internal/models"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// Store is the authoritative task collection.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

func New(conn *gorm.DB) *Store {
	if conn == nil {
		panic("task store requires a database connection")
	}
	return &Store{
		db:  conn,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// DB returns the underlying connection.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Create validates and inserts a new task. ID, Version and the
// timestamps are assigned here; Status and Priority get defaults
// when empty.
func (s *Store) Create(ctx context.Context, task *models.Task) error {
	if err := normalizeTask(task); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if task.AssignedTo != nil {
			if _, err := findUser(tx, *task.AssignedTo); err != nil {
				return err
			}
		}

		taken, err := titleTaken(tx, task.Title, uuid.Nil)
		if err != nil {
			return err
		}
		if taken {
			return ErrTitleTaken
		}

		now := s.now()
		task.ID = uuid.New()
		task.Version = 1
		task.CreatedAt = now
		task.UpdatedAt = now

		return tx.Create(task).Error
	})

	switch {
	case err == nil:
		return s.ResolveAssignees(ctx, models.Tasks{task})
	case IsDuplicateKey(err):
		return ErrTitleTaken
	case IsValidation(err), errors.Is(err, ErrUserNotFound):
		return err
	default:
		return errors.Wrap(err, "create task")
	}
}

// Get returns a single task with its assignee resolved.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	task, err := findTask(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	return task, s.ResolveAssignees(ctx, models.Tasks{task})
}

// List returns every task in creation order with assignees resolved.
func (s *Store) List(ctx context.Context) (models.Tasks, error) {
	tasks := make(models.Tasks, 0)

	if err := s.db.WithContext(ctx).
		Order("created_at ASC").
		Order("id ASC").
		Find(&tasks).Error; err != nil {
		return nil, errors.Wrap(err, "list tasks")
	}

	return tasks, s.ResolveAssignees(ctx, tasks)
}

// Delete removes a task and returns its final state.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	var deleted *models.Task

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		task, err := findTask(tx, id)
		if err != nil {
			return err
		}

		result := tx.Delete(&models.Task{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}

		deleted = task
		return nil
	})

	switch {
	case err == nil:
		return deleted, nil
	case errors.Is(err, ErrNotFound):
		return nil, err
	default:
		return nil, errors.Wrap(err, "delete task")
	}
}

// ActiveCounts returns, per assignee, the number of assigned tasks
// that are not Done.
func (s *Store) ActiveCounts(ctx context.Context) (map[uuid.UUID]int64, error) {
	var rows []struct {
		AssignedTo uuid.UUID
		Count      int64
	}

	if err := s.db.WithContext(ctx).
		Model(&models.Task{}).
		Select("assigned_to, COUNT(*) AS count").
		Where("status <> ? AND assigned_to IS NOT NULL", string(models.TaskStatusDone)).
		Group("assigned_to").
		Scan(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "count active assignments")
	}

	counts := make(map[uuid.UUID]int64, len(rows))
	for _, row := range rows {
		counts[row.AssignedTo] = row.Count
	}
	return counts, nil
}

// Users enumerates registered users in registration order, oldest
// first, with the id as a secondary key so the order is total.
func (s *Store) Users(ctx context.Context) (models.Users, error) {
	users := make(models.Users, 0)

	if err := s.db.WithContext(ctx).
		Order("created_at ASC").
		Order("id ASC").
		Find(&users).Error; err != nil {
		return nil, errors.Wrap(err, "list users")
	}

	return users, nil
}

// User returns a single registered user.
func (s *Store) User(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return findUser(s.db.WithContext(ctx), id)
}

// ResolveAssignees fills the Assignee projection of every task that
// has an AssignedTo reference. A reference to a missing user resolves
// to the unknown-user placeholder.
func (s *Store) ResolveAssignees(ctx context.Context, tasks models.Tasks) error {
	ids := make([]uuid.UUID, 0, len(tasks))
	seen := map[uuid.UUID]bool{}
	for _, task := range tasks {
		if task.AssignedTo != nil && !seen[*task.AssignedTo] {
			seen[*task.AssignedTo] = true
			ids = append(ids, *task.AssignedTo)
		}
	}

	if len(ids) == 0 {
		return nil
	}

	users := make(models.Users, 0, len(ids))
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return errors.Wrap(err, "resolve assignees")
	}

	refs := make(map[uuid.UUID]*models.UserRef, len(users))
	for _, u := range users {
		refs[u.ID] = u.Ref()
	}

	for _, task := range tasks {
		if task.AssignedTo == nil {
			task.Assignee = nil
			continue
		}
		if ref, ok := refs[*task.AssignedTo]; ok {
			r := *ref
			task.Assignee = &r
		} else {
			task.Assignee = models.UnknownUser(*task.AssignedTo)
		}
	}

	return nil
}

func findTask(q *gorm.DB, id uuid.UUID) (*models.Task, error) {
	task := &models.Task{}
	if err := q.First(task, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "find task")
	}
	return task, nil
}

func findUser(q *gorm.DB, id uuid.UUID) (*models.User, error) {
	user := &models.User{}
	if err := q.First(user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, errors.Wrap(err, "find user")
	}
	return user, nil
}

func titleTaken(q *gorm.DB, title string, exclude uuid.UUID) (bool, error) {
	var count int64
	if err := q.Model(&models.Task{}).
		Where("title = ? AND id <> ?", title, exclude).
		Count(&count).Error; err != nil {
		return false, errors.Wrap(err, "check title")
	}
	return count > 0, nil
}
