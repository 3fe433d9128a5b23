package task

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/caesium-cloud/kanban/internal/models"
	"github.com/caesium-cloud/kanban/internal/reconcile"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var moveCmd = &cobra.Command{
	Use:     "move <id> <status>",
	Short:   "Move a task to another column",
	Long:    "Moves a task using the version last seen on the board. If someone changed the task in the meantime you are asked whether to overwrite their change or keep it.",
	Example: `kanban task move 5f0c... "In Progress"`,
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		status := models.TaskStatus(args[1])
		if !status.Valid() {
			return errors.Errorf("unknown column %q", args[1])
		}

		c, err := newClient()
		if err != nil {
			return err
		}

		r := reconcile.New(c)
		if err := r.Sync(cmd.Context()); err != nil {
			return err
		}

		task, err := Move(cmd.Context(), r, id, status, cmd.InOrStdin(), cmd.OutOrStdout())
		if err != nil {
			return err
		}

		printTask(cmd.OutOrStdout(), task)
		return nil
	},
}

// Move edits the status through the replica and settles a conflict
// by asking on in/out.
func Move(ctx context.Context, r *reconcile.Reconciler, id uuid.UUID, status models.TaskStatus, in io.Reader, out io.Writer) (*models.Task, error) {
	task, err := r.Edit(ctx, id, &models.TaskPatch{Status: &status})
	if !errors.Is(err, reconcile.ErrConflictPending) {
		return task, err
	}

	var pc *reconcile.PendingConflict
	for _, p := range r.Pending() {
		if p.TaskID == id {
			pc = p
		}
	}
	if pc == nil {
		return nil, err
	}

	fmt.Fprintf(out, "Conflict: %q was changed by someone else (now %s, v%d).\n", pc.Server.Title, pc.Server.Status, pc.Server.Version)
	resolution, err := prompt(in, out)
	if err != nil {
		return nil, err
	}

	return r.Resolve(ctx, id, resolution)
}

func prompt(in io.Reader, out io.Writer) (reconcile.Resolution, error) {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "[o]verwrite with your change or [a]ccept theirs? ")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return 0, err
			}
			return 0, errors.New("no answer, conflict left unresolved")
		}

		switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
		case "o", "overwrite":
			return reconcile.ForceOverwrite, nil
		case "a", "accept":
			return reconcile.AcceptServer, nil
		}
	}
}
