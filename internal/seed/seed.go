// Package seed loads users and tasks from a YAML board file.
package seed

import (
	"context"
	"io"
	"time"

	"github.com/caesium-cloud/kanban/internal/models"
	"github.com/caesium-cloud/kanban/internal/store"
	"github.com/caesium-cloud/kanban/pkg/log"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// Board is the file format.
type Board struct {
	Users []User `yaml:"users"`
	Tasks []Task `yaml:"tasks"`
}

type User struct {
	Username string `yaml:"username"`
	Email    string `yaml:"email"`
}

type Task struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Status      string `yaml:"status"`
	Priority    string `yaml:"priority"`
	// Assignee is a username.
	Assignee string `yaml:"assignee"`
}

// Result counts what Apply wrote and skipped.
type Result struct {
	UsersCreated int
	UsersSkipped int
	TasksCreated int
	TasksSkipped int
}

// Load decodes a board file. Unknown keys are rejected.
func Load(r io.Reader) (*Board, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)

	board := &Board{}
	if err := decoder.Decode(board); err != nil {
		if errors.Is(err, io.EOF) {
			return board, nil
		}
		return nil, errors.Wrap(err, "decode board")
	}

	for i, u := range board.Users {
		if u.Username == "" || u.Email == "" {
			return nil, errors.Errorf("user %d: username and email are required", i)
		}
	}

	return board, nil
}

// Apply writes the board. Existing users (by username) and tasks
// whose title is already taken are skipped, so applying the same
// file twice is harmless.
func Apply(ctx context.Context, conn *gorm.DB, board *Board) (*Result, error) {
	res := &Result{}
	ids := map[string]uuid.UUID{}

	// registration order decides assignment ties, so keep file order
	base := time.Now().UTC()
	for i, u := range board.Users {
		existing := &models.User{}
		err := conn.WithContext(ctx).Where("username = ?", u.Username).First(existing).Error
		switch {
		case err == nil:
			ids[u.Username] = existing.ID
			res.UsersSkipped++
			continue
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return res, errors.Wrapf(err, "look up user %q", u.Username)
		}

		created := base.Add(time.Duration(i) * time.Millisecond)
		user := &models.User{
			ID:        uuid.New(),
			Username:  u.Username,
			Email:     u.Email,
			CreatedAt: created,
			UpdatedAt: created,
		}
		if err := conn.WithContext(ctx).Create(user).Error; err != nil {
			return res, errors.Wrapf(err, "create user %q", u.Username)
		}

		ids[u.Username] = user.ID
		res.UsersCreated++
	}

	st := store.New(conn)
	for _, t := range board.Tasks {
		task := &models.Task{
			Title:       t.Title,
			Description: t.Description,
			Status:      models.TaskStatus(t.Status),
			Priority:    models.TaskPriority(t.Priority),
		}

		if t.Assignee != "" {
			id, err := lookup(ctx, conn, ids, t.Assignee)
			if err != nil {
				return res, err
			}
			task.AssignedTo = &id
		}

		err := st.Create(ctx, task)
		switch {
		case err == nil:
			res.TasksCreated++
		case errors.Is(err, store.ErrTitleTaken):
			log.Debug("skipping existing task", "title", t.Title)
			res.TasksSkipped++
		default:
			return res, errors.Wrapf(err, "create task %q", t.Title)
		}
	}

	return res, nil
}

func lookup(ctx context.Context, conn *gorm.DB, ids map[string]uuid.UUID, username string) (uuid.UUID, error) {
	if id, ok := ids[username]; ok {
		return id, nil
	}

	user := &models.User{}
	if err := conn.WithContext(ctx).Where("username = ?", username).First(user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, errors.Errorf("unknown assignee %q", username)
		}
		return uuid.Nil, errors.Wrapf(err, "look up user %q", username)
	}

	ids[username] = user.ID
	return user.ID, nil
}
