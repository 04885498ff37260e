package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate keeps host environment overrides out of config loading.
func isolate(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DATABASE_URL", "REDIS_URL", "JWT_SECRET", "ADMIN_PASSWORD_HASH",
		"EMBEDDING_PROVIDER", "EMBEDDING_MODEL", "OPENAI_API_KEY", "EMBEDDING_BASE_URL",
		"S3_BUCKET", "S3_ENDPOINT", "LEDGER_PATH", "LOG_LEVEL",
		"PORT", "WORKER_CONCURRENCY", "WORKER_DEQUEUE_TIMEOUT",
	} {
		t.Setenv(key, "")
	}
}

// writeConfig writes a YAML config into a temp dir and returns its path.
func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "docqa.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

// execute runs the root command with the given config file.
func execute(t *testing.T, cfgPath string, args ...string) (string, error) {
	t.Helper()
	isolate(t)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(new(bytes.Buffer))
	argv := append([]string{"--config", cfgPath, "--env-file", filepath.Join(t.TempDir(), "missing.env")}, args...)
	rootCmd.SetArgs(argv)
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()
	if svc != nil {
		_ = svc.Close()
		svc = nil
	}
	return buf.String(), err
}

func missingConfig(t *testing.T) string {
	return filepath.Join(t.TempDir(), "none.yaml")
}

func TestRootCmd_Use(t *testing.T) {
	assert.Equal(t, "docqa", rootCmd.Use)
}

func TestRootCmd_PersistentFlags(t *testing.T) {
	flag := rootCmd.PersistentFlags().Lookup("config")
	require.NotNil(t, flag)
	assert.Equal(t, "c", flag.Shorthand)
	assert.Equal(t, "docqa.yaml", flag.DefValue)

	flag = rootCmd.PersistentFlags().Lookup("env-file")
	require.NotNil(t, flag)
	assert.Equal(t, ".env", flag.DefValue)
}

func TestRootCmd_HasSubcommands(t *testing.T) {
	want := []string{
		"watch", "worker", "serve", "all", "ingest", "process",
		"search", "dashboard", "stats", "token", "hash-password", "version",
	}

	names := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		names[cmd.Name()] = true
	}
	for _, name := range want {
		assert.True(t, names[name], "missing subcommand %s", name)
	}
}

func TestRootCmd_InvalidConfig(t *testing.T) {
	path := writeConfig(t, "search:\n  top_k: 500\n")

	_, err := execute(t, path, "version")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config")
}
