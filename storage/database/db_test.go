package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/cohort/core"
)

func TestGooseDialect(t *testing.T) {
	tests := []struct {
		engine  string
		want    string
		wantErr bool
	}{
		{engine: Postgres, want: "postgres"},
		{engine: SQLite, want: "sqlite3"},
		{engine: "mysql", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.engine, func(t *testing.T) {
			got, err := GooseDialect(tt.engine)
			if (err != nil) != tt.wantErr {
				t.Errorf("GooseDialect() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("GooseDialect() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPostgresURL(t *testing.T) {
	conf := core.NewTestConfig()
	conf.Database = core.DatabaseConfig{
		Host: "db", Port: 5432, Name: "cohort", User: "app", Password: "p@ss",
		AdminUser: "postgres", AdminPassword: "root", DisableTLS: true,
	}

	assert.Equal(t, "postgres://app:p%40ss@db:5432/cohort?sslmode=disable&timezone=utc", postgresURL("cohort", false, conf))
	assert.Equal(t, "postgres://postgres:root@db:5432/postgres?sslmode=disable&timezone=utc", postgresURL("postgres", true, conf))

	conf.Database.DisableTLS = false
	assert.Contains(t, postgresURL("cohort", false, conf), "sslmode=require")
}

func TestSqliteDSN(t *testing.T) {
	assert.Contains(t, sqliteDSN(":memory:"), "file::memory:?")
	assert.Contains(t, sqliteDSN("cohort.db"), "file:cohort.db?")
	assert.Contains(t, sqliteDSN("cohort.db"), "_txlock=immediate")
}

func TestOpenMigrate(t *testing.T) {
	conf := core.NewTestConfig()
	require.NoError(t, CreateIfNotExist(conf))

	db, err := Open(conf)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	require.NoError(t, Migrate(db.DB, conf.Database.Engine))
	require.NoError(t, Migrate(db.DB, conf.Database.Engine), "migrating twice")

	var tables []string
	require.NoError(t, db.Select(&tables, "SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'goose%' AND name NOT LIKE 'sqlite%' ORDER BY name"))
	assert.Equal(t, []string{"announcement", "campus", "legacy_score", "member", "mentor_assignment", "season_score"}, tables)

	require.NoError(t, RunMigrations(db.DB, conf.Database.Engine, "down-to", "0"))
	tables = nil
	require.NoError(t, db.Select(&tables, "SELECT name FROM sqlite_master WHERE type = 'table' AND name IN ('member', 'campus')"))
	assert.Empty(t, tables)
}
