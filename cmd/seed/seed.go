package seed

import (
	"fmt"
	"os"

	"github.com/caesium-cloud/kanban/internal/seed"
	"github.com/caesium-cloud/kanban/pkg/db"
	"github.com/caesium-cloud/kanban/pkg/log"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// Cmd is the seed command.
var Cmd = &cobra.Command{
	Use:     "seed <board.yaml>",
	Short:   "Load users and tasks from a YAML file",
	Example: "kanban seed ./board.yaml",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return errors.Wrap(err, "open board file")
		}
		defer f.Close()

		board, err := seed.Load(f)
		if err != nil {
			return err
		}

		conn, err := db.Connection()
		if err != nil {
			return err
		}
		defer func() {
			if err := db.Close(conn); err != nil {
				log.Error("database close failure", "error", err)
			}
		}()

		if err := db.Migrate(conn); err != nil {
			return err
		}

		res, err := seed.Apply(cmd.Context(), conn, board)
		if err != nil {
			return err
		}

		fmt.Fprintf(
			cmd.OutOrStdout(),
			"users: %d created, %d skipped\ntasks: %d created, %d skipped\n",
			res.UsersCreated, res.UsersSkipped, res.TasksCreated, res.TasksSkipped,
		)
		return nil
	},
}
