package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyDefaults_SQLitePath(t *testing.T) {
	t.Run("UsesXDGConfigHome", func(t *testing.T) {
		tmpDir := t.TempDir()
		t.Setenv("XDG_CONFIG_HOME", tmpDir)

		cfg := &Config{Type: DatabaseTypeSQLite}
		cfg.ApplyDefaults()

		assert.Equal(t, filepath.Join(tmpDir, "sftpbox", "credentials.db"), cfg.SQLite.Path)
	})

	t.Run("FallbackWithoutXDG", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "")

		cfg := &Config{Type: DatabaseTypeSQLite}
		cfg.ApplyDefaults()

		home, _ := os.UserHomeDir()
		assert.Equal(t, filepath.Join(home, ".config", "sftpbox", "credentials.db"), cfg.SQLite.Path)
	})
}

func TestApplyDefaults_PreservesExplicitPath(t *testing.T) {
	customPath := "/custom/path/to/db.sqlite"
	cfg := &Config{
		Type:   DatabaseTypeSQLite,
		SQLite: SQLiteConfig{Path: customPath},
	}
	cfg.ApplyDefaults()

	assert.Equal(t, customPath, cfg.SQLite.Path)
}

func TestApplyDefaults_Postgres(t *testing.T) {
	cfg := &Config{Type: DatabaseTypePostgres}
	cfg.ApplyDefaults()

	assert.Equal(t, 5432, cfg.Postgres.Port)
	assert.Equal(t, "disable", cfg.Postgres.SSLMode)
	assert.Equal(t, 25, cfg.Postgres.MaxOpenConns)
	assert.Equal(t, 5, cfg.Postgres.MaxIdleConns)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"sqlite with path", Config{Type: DatabaseTypeSQLite, SQLite: SQLiteConfig{Path: "x.db"}}, false},
		{"sqlite without path", Config{Type: DatabaseTypeSQLite}, true},
		{"postgres complete", Config{Type: DatabaseTypePostgres, Postgres: PostgresConfig{Host: "db", Database: "sftpbox", User: "sftpbox"}}, false},
		{"postgres without host", Config{Type: DatabaseTypePostgres, Postgres: PostgresConfig{Database: "sftpbox", User: "sftpbox"}}, true},
		{"unknown type", Config{Type: "mysql"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPostgresDSN(t *testing.T) {
	cfg := PostgresConfig{Host: "db", Port: 5432, User: "u", Password: "p", Database: "d", SSLMode: "require"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=d sslmode=require", cfg.DSN())
}
