package cmd

import (
	"github.com/caesium-cloud/kanban/cmd/seed"
	"github.com/caesium-cloud/kanban/cmd/start"
	"github.com/caesium-cloud/kanban/cmd/task"
	"github.com/caesium-cloud/kanban/cmd/watch"
	"github.com/spf13/cobra"
)

var cmds = []*cobra.Command{
	start.Cmd,
	seed.Cmd,
	watch.Cmd,
	task.Cmd,
}

// Execute builds the command tree and executes commands.
func Execute() error {
	command := &cobra.Command{
		Use:           "kanban",
		Short:         "A collaborative task board",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Usage()
		},
	}

	for _, c := range cmds {
		command.AddCommand(c)
	}

	return command.Execute()
}
