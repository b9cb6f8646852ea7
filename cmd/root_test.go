package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "aedi", cmd.Use)

	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	assert.True(t, names["serve"])
	assert.True(t, names["migrate"])
	assert.True(t, names["version"])

	flag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, flag)
	assert.Equal(t, "c", flag.Shorthand)
}

func TestServeFlags(t *testing.T) {
	serve := NewServeCommand(&RootOptions{})
	port := serve.Flags().Lookup("port")
	require.NotNil(t, port)
	assert.Equal(t, "p", port.Shorthand)
	assert.NotNil(t, serve.Flags().Lookup("migrate"))
}

func TestVersionCommand(t *testing.T) {
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "aedi "+Version+"\n", out.String())
}

func TestMigrateCommand(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	body := "app:\n  JWTSecret: cmd-secret\n" +
		"database:\n  Driver: sqlite\n  DatabaseURI: " + filepath.Join(dir, "aedi.db") + "\n" +
		"log:\n  Level: error\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(body), 0o600))

	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"migrate", "--config", cfgPath})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "migrations applied")
	assert.FileExists(t, filepath.Join(dir, "aedi.db"))
}

func TestMigrateCommandMissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("database:\n  Driver: sqlite\n"), 0o600))

	cmd := NewRootCommand()
	cmd.SetArgs([]string{"migrate", "-c", cfgPath})
	assert.Error(t, cmd.Execute())
}
