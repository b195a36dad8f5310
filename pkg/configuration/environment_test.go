package configuration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestLoadEnv_FallsBackToGoModRoot(t *testing.T) {
	tmp := t.TempDir()

	requireWriteFile(t, filepath.Join(tmp, "go.mod"), "module example.com/test\n\ngo 1.22\n")
	requireWriteFile(t, filepath.Join(tmp, ".env.local"), "SENOTYPE_TEST_ENV_LOAD=ok\n")

	sub := filepath.Join(tmp, "modules", "senotype")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	t.Chdir(sub)
	t.Setenv("SENOTYPE_TEST_ENV_LOAD", "")
	require.NoError(t, os.Unsetenv("SENOTYPE_TEST_ENV_LOAD"))

	n, err := LoadEnv([]string{".env", ".env.local"})
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, "ok", os.Getenv("SENOTYPE_TEST_ENV_LOAD"))
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LOG_LEVEL", "debug")

	c, err := Load()
	require.NoError(t, err)
	require.Equal(t, "pgx", c.Database.Driver)
	require.Equal(t, 5, c.Lookup.Retries)
	require.Equal(t, "none", c.Archive.Backend)
	require.Equal(t, "localhost:3200", c.SocketAddress)
	require.Equal(t, logrus.DebugLevel, c.Logger().GetLevel())
	require.Contains(t, c.Database.Opts, "dbname=senlib")
}

func TestLoad_RejectsInvalidOptions(t *testing.T) {
	cases := map[string]map[string]string{
		"driver":       {"DB_DRIVER": "mysql"},
		"rate storage": {"RATE_LIMIT_STORAGE": "disk"},
		"redis url":    {"RATE_LIMIT_STORAGE": "redis"},
		"archive":      {"ARCHIVE_BACKEND": "gcs"},
		"s3 bucket":    {"ARCHIVE_BACKEND": "s3"},
		"retries":      {"LOOKUP_RETRIES": "0"},
	}
	for name, vars := range cases {
		t.Run(name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			for k, v := range vars {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
		})
	}
}

func TestDatabaseOptions_SQLite(t *testing.T) {
	t.Parallel()

	d := DatabaseOptions{Driver: "sqlite", SQLitePath: "/tmp/senlib.db"}
	require.Equal(t, "file:/tmp/senlib.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", d.ConnectionString())
}

func requireWriteFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
