package postgres

import (
	"io/fs"
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMigrationsHaveMatchingUpAndDownFiles(t *testing.T) {
	t.Parallel()

	entries, err := fs.ReadDir(migrationsFS, "migrations")
	require.NoError(t, err)

	pattern := regexp.MustCompile(`^(\d+)_.*\.(up|down)\.sql$`)
	byVersion := map[string]map[string]bool{}
	for _, entry := range entries {
		match := pattern.FindStringSubmatch(entry.Name())
		require.NotNil(t, match, "unexpected migration file %s", entry.Name())
		if byVersion[match[1]] == nil {
			byVersion[match[1]] = map[string]bool{}
		}
		byVersion[match[1]][match[2]] = true
	}

	require.NotEmpty(t, byVersion)
	for version, dirs := range byVersion {
		require.True(t, dirs["up"] && dirs["down"], "version %s must include both up and down files", version)
	}
}

func TestMigrateURL(t *testing.T) {
	t.Parallel()

	require.Equal(t, "pgx5://u:p@db:5432/mb?sslmode=disable", migrateURL("postgres://u:p@db:5432/mb?sslmode=disable"))
	require.Equal(t, "pgx5://db/mb", migrateURL("postgresql://db/mb"))
	require.Equal(t, "pgx5://db/mb", migrateURL("pgx5://db/mb"))
}

func TestMigrateRejectsUnknownDirection(t *testing.T) {
	t.Parallel()

	err := Migrate("postgres://localhost/mb", "sideways")
	require.ErrorContains(t, err, "invalid migration direction")
}
