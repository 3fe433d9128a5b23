package watch

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/caesium-cloud/kanban/internal/models"
	"github.com/caesium-cloud/kanban/internal/reconcile"
	"github.com/caesium-cloud/kanban/pkg/client"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// Cmd is the watch command.
var Cmd = &cobra.Command{
	Use:     "watch",
	Short:   "Follow the board live",
	Long:    "Keeps a local replica of the board in sync with the server and prints it on every change",
	Example: "KANBAN_USERID=<uuid> kanban watch",
	RunE:    watch,
}

func watch(cmd *cobra.Command, args []string) error {
	cfg, err := client.FromEnv()
	if err != nil {
		return err
	}

	c, err := client.New(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r := reconcile.New(c)

	errs := make(chan error, 1)
	go func() { errs <- r.Run(ctx) }()

	out := cmd.OutOrStdout()
	for {
		select {
		case <-r.Changes():
			Render(out, r.Tasks(), r.Connected())
		case pc := <-r.Conflicts():
			fmt.Fprintf(out, "conflict on %q: server has version %d\n", pc.Server.Title, pc.Server.Version)
		case err := <-errs:
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
	}
}

// Render prints the board grouped by column.
func Render(w io.Writer, tasks models.Tasks, connected bool) {
	state := "live"
	if !connected {
		state = "reconnecting"
	}
	fmt.Fprintf(w, "\n[%s] %d task(s)\n", state, len(tasks))

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, status := range models.Statuses() {
		fmt.Fprintf(tw, "%s\n", status)
		for _, t := range tasks {
			if t.Status != status {
				continue
			}
			assignee := "-"
			if t.Assignee != nil {
				assignee = t.Assignee.Username
			}
			fmt.Fprintf(tw, "  %s\t%s\t%s\tv%d\t%s\n", t.ID.String()[:8], t.Title, t.Priority, t.Version, assignee)
		}
	}
	tw.Flush()
}
