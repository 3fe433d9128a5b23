package store

import (
	"fmt"
	"strings"

	"github.com/caesium-cloud/kanban/internal/models"
)

// ReservedTitles are the board column names; no task may use one as
// its title.
func ReservedTitles() []string {
	statuses := models.Statuses()
	titles := make([]string, len(statuses))
	for i, s := range statuses {
		titles[i] = string(s)
	}
	return titles
}

// NormalizeTitle trims surrounding whitespace.
func NormalizeTitle(title string) string {
	return strings.TrimSpace(title)
}

// ValidateTitle checks the title rules that need no storage lookup.
func ValidateTitle(title string) error {
	title = NormalizeTitle(title)
	if title == "" {
		return ErrTitleRequired
	}
	for _, reserved := range ReservedTitles() {
		if title == reserved {
			return ErrTitleReserved
		}
	}
	return nil
}

func validateStatus(status models.TaskStatus) error {
	if !status.Valid() {
		return invalid(fmt.Sprintf("Invalid status %q", status))
	}
	return nil
}

func validatePriority(priority models.TaskPriority) error {
	if !priority.Valid() {
		return invalid(fmt.Sprintf("Invalid priority %q", priority))
	}
	return nil
}

// normalizePatch validates a patch and returns a copy with the title
// normalized. The caller's patch is never modified.
func normalizePatch(patch *models.TaskPatch) (*models.TaskPatch, error) {
	if patch == nil {
		return &models.TaskPatch{}, nil
	}

	p := *patch
	if p.Title != nil {
		if err := ValidateTitle(*p.Title); err != nil {
			return nil, err
		}
		title := NormalizeTitle(*p.Title)
		p.Title = &title
	}
	if p.Status != nil {
		if err := validateStatus(*p.Status); err != nil {
			return nil, err
		}
	}
	if p.Priority != nil {
		if err := validatePriority(*p.Priority); err != nil {
			return nil, err
		}
	}
	return &p, nil
}

// normalizeTask fills create defaults and validates the result.
func normalizeTask(task *models.Task) error {
	if err := ValidateTitle(task.Title); err != nil {
		return err
	}
	task.Title = NormalizeTitle(task.Title)

	if task.Status == "" {
		task.Status = models.TaskStatusTodo
	}
	if err := validateStatus(task.Status); err != nil {
		return err
	}

	if task.Priority == "" {
		task.Priority = models.TaskPriorityMedium
	}
	return validatePriority(task.Priority)
}
