package db

import (
	"testing"

	"github.com/caesium-cloud/kanban/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestOpenRejectsUnknownType(t *testing.T) {
	_, err := Open("oracle", "")
	require.Error(t, err)
}

func TestMigrateCreatesTables(t *testing.T) {
	conn, err := Open(TypeSQLite, "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	defer Close(conn)

	require.NoError(t, Migrate(conn))
	for _, model := range models.All {
		require.True(t, conn.Migrator().HasTable(model))
	}
	require.True(t, conn.Migrator().HasIndex(&models.Task{}, "Title"))
}
