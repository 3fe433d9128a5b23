package start

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/pprof"
	"syscall"

	"github.com/caesium-cloud/kanban/api"
	"github.com/caesium-cloud/kanban/internal/audit"
	"github.com/caesium-cloud/kanban/internal/event"
	"github.com/caesium-cloud/kanban/pkg/db"
	"github.com/caesium-cloud/kanban/pkg/env"
	"github.com/caesium-cloud/kanban/pkg/log"
	"github.com/spf13/cobra"
)

const (
	usage   = "start"
	short   = "Start a kanban board server"
	long    = "This command migrates the database and serves the board API until interrupted"
	example = "kanban start"
)

var (
	// Cmd is the start command.
	Cmd = &cobra.Command{
		Use:        usage,
		Short:      short,
		Long:       long,
		Aliases:    []string{"s"},
		SuggestFor: []string{"launch", "boot", "up", "run", "serve"},
		Example:    example,
		RunE:       start,
	}
)

func start(cmd *cobra.Command, args []string) error {
	vars := env.Variables()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go dumpOnSignal(ctx)

	conn, err := db.Connection()
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(conn); err != nil {
			log.Error("database close failure", "error", err)
		}
	}()

	log.Info("migrating database", "type", vars.DatabaseType)
	if err := db.Migrate(conn); err != nil {
		return err
	}

	bus := event.New(vars.EventBuffer)
	actions := audit.New(conn, vars.AuditQueue)

	server := api.New(api.Dependencies{
		DB:             conn,
		Bus:            bus,
		Audit:          actions,
		IdentityHeader: vars.IdentityHeader,
		CORSOrigins:    vars.CORSOrigins,
	})

	errs := make(chan error, 1)
	go func() {
		log.Info("spinning up api")
		errs <- server.Start(ctx, fmt.Sprintf(":%v", vars.Port))
	}()

	select {
	case err = <-errs:
	case <-ctx.Done():
		log.Info("gracefully shutting down")
	}

	shutdown(server, bus, actions)
	return err
}

// shutdown ends the event streams, which never finish on their own,
// then stops the server and drains the audit queue.
func shutdown(server *api.Server, bus event.Bus, actions *audit.Log) {
	ctx, cancel := context.WithTimeout(context.Background(), env.Variables().ShutdownGrace)
	defer cancel()

	bus.Close()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("api shutdown failure", "error", err)
	}

	actions.Close()
	log.Info("shutdown complete")
}

func dumpOnSignal(ctx context.Context) {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGUSR1)
	defer signal.Stop(signals)

	for {
		select {
		case <-ctx.Done():
			return
		case <-signals:
			log.Info("dumping stack traces due to SIGUSR1 signal")
			if profile := pprof.Lookup("goroutine"); profile != nil {
				if err := profile.WriteTo(os.Stdout, 1); err != nil {
					log.Error("write goroutine profile", "error", err)
				}
			}
		}
	}
}
