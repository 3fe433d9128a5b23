package task

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/caesium-cloud/kanban/internal/models"
	"github.com/caesium-cloud/kanban/pkg/client"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// Cmd is the parent command for task operations.
var Cmd = &cobra.Command{
	Use:   "task",
	Short: "Manage board tasks",
}

func init() {
	Cmd.AddCommand(listCmd, createCmd, moveCmd, assignCmd, deleteCmd, actionsCmd)
}

func newClient() (*client.Client, error) {
	cfg, err := client.FromEnv()
	if err != nil {
		return nil, err
	}
	return client.New(cfg)
}

func parseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errors.Wrapf(err, "invalid task id %q", raw)
	}
	return id, nil
}

func printTask(w io.Writer, t *models.Task) {
	assignee := "-"
	if t.Assignee != nil {
		assignee = t.Assignee.Username
	}
	fmt.Fprintf(w, "%s  %s  [%s/%s]  v%d  %s\n", t.ID, t.Title, t.Status, t.Priority, t.Version, assignee)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all tasks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}

		tasks, err := c.ListTasks(cmd.Context())
		if err != nil {
			return err
		}

		for _, t := range tasks {
			printTask(cmd.OutOrStdout(), t)
		}
		return nil
	},
}

var (
	createDescription string
	createStatus      string
	createPriority    string
)

var createCmd = &cobra.Command{
	Use:   "create <title>",
	Short: "Create a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}

		task, err := c.CreateTask(cmd.Context(), &models.NewTask{
			Title:       args[0],
			Description: createDescription,
			Status:      models.TaskStatus(createStatus),
			Priority:    models.TaskPriority(createPriority),
		})
		if err != nil {
			return err
		}

		printTask(cmd.OutOrStdout(), task)
		return nil
	},
}

var assignCmd = &cobra.Command{
	Use:   "assign <id>",
	Short: "Assign a task to the least busy user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		c, err := newClient()
		if err != nil {
			return err
		}

		task, err := c.SmartAssign(cmd.Context(), id)
		if err != nil {
			return err
		}

		printTask(cmd.OutOrStdout(), task)
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		c, err := newClient()
		if err != nil {
			return err
		}

		if err := c.DeleteTask(cmd.Context(), id); err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Task deleted")
		return nil
	},
}

var actionsLimit int

var actionsCmd = &cobra.Command{
	Use:   "actions",
	Short: "Show recent activity",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}

		actions, err := c.RecentActions(cmd.Context(), actionsLimit)
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for _, a := range actions {
			user, title := models.UnknownUsername, "-"
			if a.User != nil {
				user = a.User.Username
			}
			if a.Task != nil && a.Task.Title != "" {
				title = a.Task.Title
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", a.Timestamp.Local().Format("2006-01-02 15:04:05"), user, a.ActionType, title)
		}
		return tw.Flush()
	},
}

func init() {
	createCmd.Flags().StringVarP(&createDescription, "description", "d", "", "Task description")
	createCmd.Flags().StringVarP(&createStatus, "status", "s", "", "Initial column (Todo, In Progress, Done)")
	createCmd.Flags().StringVarP(&createPriority, "priority", "p", "", "Priority (Low, Medium, High)")
	actionsCmd.Flags().IntVarP(&actionsLimit, "limit", "n", 20, "Number of entries")
}
