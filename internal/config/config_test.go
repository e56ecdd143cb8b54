package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("SERVER_PORT", "9999")
	t.Setenv("DB_NAME", "chatflow_test")

	cfg := Load()
	require.Equal(t, "9999", cfg.ServerPort)
	require.Equal(t, "chatflow_test", cfg.DBName)
}

func TestLoadIgnoresEnvFiles(t *testing.T) {
	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, ".env"), []byte("SERVER_PORT=1234\n"), 0o644)
	require.NoError(t, err)
	t.Chdir(dir)

	cfg := Load()
	require.Equal(t, "4000", cfg.ServerPort)
}
