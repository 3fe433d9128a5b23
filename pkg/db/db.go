package db

import (
	"github.com/caesium-cloud/kanban/internal/models"
	"github.com/caesium-cloud/kanban/pkg/env"
	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	TypeSQLite   = "sqlite"
	TypePostgres = "postgres"
)

// Connection opens the database configured in the environment.
func Connection() (*gorm.DB, error) {
	vars := env.Variables()
	return Open(vars.DatabaseType, vars.DatabaseDSN)
}

// Open connects to the database of the given type. Driver errors are
// translated so that unique violations surface as gorm.ErrDuplicatedKey.
func Open(dbType, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch dbType {
	case TypePostgres:
		dialector = postgres.Open(dsn)
	case TypeSQLite, "":
		dialector = sqlite.Open(dsn)
	default:
		return nil, errors.Errorf("unsupported database type: %q", dbType)
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}

	return gdb, nil
}

// Migrate creates or updates the board schema.
func Migrate(conn *gorm.DB) error {
	return errors.Wrap(conn.AutoMigrate(models.All...), "failed to migrate database")
}

// Close closes the underlying sql.DB if available.
func Close(conn *gorm.DB) error {
	if conn == nil {
		return nil
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
