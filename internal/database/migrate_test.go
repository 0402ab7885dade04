package database

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	require.NoError(t, err)

	var ups, downs int
	for _, e := range entries {
		switch {
		case strings.HasSuffix(e.Name(), ".up.sql"):
			ups++
		case strings.HasSuffix(e.Name(), ".down.sql"):
			downs++
		}
	}
	assert.Greater(t, ups, 0)
	assert.Equal(t, ups, downs, "every up migration needs a down migration")
}

func TestMigrationsCoverModels(t *testing.T) {
	data, err := fs.ReadFile(migrationsFS, "migrations/000001_init.up.sql")
	require.NoError(t, err)

	for _, table := range []string{"users", "user_canisters", "otps", "projects", "tokens", "payments"} {
		assert.Contains(t, string(data), "CREATE TABLE IF NOT EXISTS "+table+" ")
	}
	assert.Len(t, Models(), 6)
}

func TestMigrationsScopeUserIdentityToLiveAccounts(t *testing.T) {
	data, err := fs.ReadFile(migrationsFS, "migrations/000002_users_live_identity.up.sql")
	require.NoError(t, err)

	for _, index := range []string{"idx_users_email", "idx_users_principal_id", "idx_users_google_id"} {
		assert.Contains(t, string(data), "DROP INDEX IF EXISTS "+index+";")
		assert.Regexp(t, "CREATE UNIQUE INDEX IF NOT EXISTS "+index+` ON users \(\w+\) WHERE deleted = FALSE;`, string(data))
	}
}
