package storage

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openRawDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := openDatabase(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func createVersionTable(t *testing.T, db *sql.DB, versions ...string) {
	t.Helper()
	_, err := db.Exec(`CREATE TABLE schema_version (
		version TEXT PRIMARY KEY,
		applied_at INTEGER NOT NULL DEFAULT 0
	)`)
	require.NoError(t, err)
	for _, v := range versions {
		_, err := db.Exec("INSERT INTO schema_version (version) VALUES (?)", v)
		require.NoError(t, err)
	}
}

func TestApplyMigrations(t *testing.T) {
	db := openRawDB(t)
	ctx := context.Background()

	require.NoError(t, ApplyMigrations(ctx, db))

	v, err := schemaVersion(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, v.String())

	for _, table := range []string{"schema_version", "documents", "index_meta", "runs"} {
		var name string
		err := db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		assert.NoError(t, err, "table %s", table)
	}
}

func TestMigrationsIdempotent(t *testing.T) {
	db := openRawDB(t)
	ctx := context.Background()

	require.NoError(t, ApplyMigrations(ctx, db))
	require.NoError(t, ApplyMigrations(ctx, db))

	var count int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_version").Scan(&count))
	assert.Equal(t, len(AllMigrations), count)
}

// 1.10.0 must sort above 1.2.0
func TestSemanticVersionComparison(t *testing.T) {
	tests := []struct {
		name     string
		v1       string
		v2       string
		v1Higher bool
	}{
		{"major", "2.0.0", "1.9.9", true},
		{"minor is numeric", "1.10.0", "1.2.0", true},
		{"patch is numeric", "1.0.10", "1.0.2", true},
		{"equal", "1.0.0", "1.0.0", false},
		{"pre-release below release", "1.0.0-alpha", "1.0.0", false},
		{"pre-release ordering", "1.0.0-beta", "1.0.0-alpha", true},
		{"build metadata ignored", "1.0.0+build.1", "1.0.0+build.2", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := openRawDB(t)
			ctx := context.Background()
			createVersionTable(t, db, tt.v2)

			original := AllMigrations
			AllMigrations = []Migration{{Version: tt.v1, Up: "SELECT 1", Down: "SELECT 1"}}
			defer func() { AllMigrations = original }()

			require.NoError(t, ApplyMigrations(ctx, db))

			var count int
			require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_version").Scan(&count))
			if tt.v1Higher {
				assert.Equal(t, 2, count, "migration should have run")
			} else {
				assert.Equal(t, 1, count, "migration should not have run")
			}
		})
	}
}

func TestMigrationErrorHandling(t *testing.T) {
	ctx := context.Background()

	t.Run("empty version table starts from zero", func(t *testing.T) {
		db := openRawDB(t)
		createVersionTable(t, db)

		require.NoError(t, ApplyMigrations(ctx, db))
		v, err := schemaVersion(ctx, db)
		require.NoError(t, err)
		assert.Equal(t, CurrentSchemaVersion, v.String())
	})

	t.Run("invalid stored version", func(t *testing.T) {
		db := openRawDB(t)
		createVersionTable(t, db, "invalid-version")

		err := ApplyMigrations(ctx, db)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid schema version")
	})

	t.Run("nothing to roll back", func(t *testing.T) {
		db := openRawDB(t)
		assert.Error(t, RollbackMigration(ctx, db))
	})
}
