package persistence

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeMigration(t *testing.T, dir, name, sql string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(sql), 0o644))
}

func TestLoadMigrationsOrdersByFilename(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "0002_indexes.sql", "CREATE INDEX b;")
	writeMigration(t, dir, "0001_init.sql", "CREATE TABLE a;")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "archive"), 0o755))

	migrations, err := loadMigrations(dir)
	require.NoError(t, err)
	require.Len(t, migrations, 2)
	assert.Equal(t, "0001_init.sql", migrations[0].name)
	assert.Equal(t, "CREATE TABLE a;", migrations[0].sql)
	assert.Equal(t, "0002_indexes.sql", migrations[1].name)
}

func TestLoadMigrationsMissingDir(t *testing.T) {
	_, err := loadMigrations(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestRunMigrationsRequiresPool(t *testing.T) {
	err := RunMigrations(context.Background(), nil, t.TempDir(), zap.NewNop())
	assert.Error(t, err)
}
