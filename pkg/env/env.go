package env

import (
	"time"

	"github.com/caesium-cloud/kanban/pkg/log"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

var variables = new(Environment)

// Process the environment variables set for kanban.
func Process() error {
	if err := envconfig.Process("kanban", variables); err != nil {
		return errors.Wrap(err, "failed to process environment variables")
	}

	// set the log level
	if err := log.SetLevel(variables.LogLevel); err != nil {
		return errors.Wrap(err, "failed to set log level")
	}

	return nil
}

// Variables returns the processed environment variables.
func Variables() Environment {
	return *variables
}

// Environment defines the environment variables used
// by kanban. Server and client commands share it; the
// client only reads BaseURL, UserID and HTTPTimeout.
type Environment struct {
	LogLevel       string        `default:"info"`
	Port           int           `default:"8080"`
	DatabaseType   string        `default:"sqlite"`
	DatabaseDSN    string        `default:"file:kanban.db?_busy_timeout=5000&_journal_mode=WAL&_txlock=immediate"`
	IdentityHeader string        `default:"X-User-ID"`
	CORSOrigins    []string      `default:"*"`
	EventBuffer    int           `default:"64"`
	AuditQueue     int           `default:"256"`
	ShutdownGrace  time.Duration `default:"10s"`
	BaseURL        string        `default:"http://127.0.0.1:8080"`
	UserID         string        `default:""`
	HTTPTimeout    time.Duration `default:"10s"`
}
