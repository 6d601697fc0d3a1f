// Package database provides database connectivity and management for the platform service.
package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMigrator_Validation(t *testing.T) {
	logger := zerolog.Nop()

	t.Run("fails with nil database", func(t *testing.T) {
		migrator, err := NewMigrator(nil, "/some/path", logger)
		assert.Error(t, err)
		assert.Nil(t, migrator)
		assert.Contains(t, err.Error(), "database pool is required")
	})

	t.Run("fails with nil pool", func(t *testing.T) {
		migrator, err := NewMigrator(&DB{}, "/some/path", logger)
		assert.Error(t, err)
		assert.Nil(t, migrator)
		assert.Contains(t, err.Error(), "database pool is required")
	})

	t.Run("fails with empty migrations path", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		migrator, err := NewMigrator(db, "", logger)
		assert.Error(t, err)
		assert.Nil(t, migrator)
		assert.Contains(t, err.Error(), "migrations path is required")
	})

	t.Run("fails with nonexistent migrations path", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		migrator, err := NewMigrator(db, "/nonexistent/path", logger)
		assert.Error(t, err)
		assert.Nil(t, migrator)
		assert.Contains(t, err.Error(), "migrations path validation failed")
	})
}

// newTestMigrator connects to the test database and builds a migrator over
// the repository's migrations directory. The caller owns both closes.
func newTestMigrator(t *testing.T) (*DB, *Migrator) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupTestDB(t)
	migrator, err := NewMigrator(db, migrationsDir(t), zerolog.Nop())
	require.NoError(t, err)
	return db, migrator
}

func TestMigrator_UpAndVersion(t *testing.T) {
	db, migrator := newTestMigrator(t)
	defer db.Close()
	defer migrator.Close()

	require.NoError(t, migrator.Up())

	version, dirty, err := migrator.Version()
	require.NoError(t, err)
	assert.False(t, dirty, "migration should not be in dirty state")
	assert.GreaterOrEqual(t, version, uint(1))

	// A second Up is a no-op.
	assert.NoError(t, migrator.Up())
}

func TestMigrator_StepsPastEnd(t *testing.T) {
	db, migrator := newTestMigrator(t)
	defer db.Close()
	defer migrator.Close()

	require.NoError(t, migrator.Up())

	// Stepping forward at the newest version is a no-op, not an error.
	assert.NoError(t, migrator.Steps(1))
}

func TestMigrator_Force(t *testing.T) {
	db, migrator := newTestMigrator(t)
	defer db.Close()
	defer migrator.Close()

	require.NoError(t, migrator.Up())

	version, _, err := migrator.Version()
	require.NoError(t, err)

	// Forcing to the current version clears a hypothetical dirty flag
	// without running anything.
	assert.NoError(t, migrator.Force(int(version)))
}

func TestMigrator_Close(t *testing.T) {
	db, migrator := newTestMigrator(t)
	defer db.Close()

	assert.NoError(t, migrator.Close())
}

// migrationsDir resolves the migrations directory relative to this package.
func migrationsDir(t *testing.T) string {
	t.Helper()

	cwd, err := os.Getwd()
	require.NoError(t, err)

	path := filepath.Join(cwd, "..", "..", "migrations")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Skipf("migrations directory not found at %s", path)
	}
	return path
}
