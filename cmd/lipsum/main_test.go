package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

// executeCommand runs rootCmd with args and returns what it wrote to its
// output stream. Flags are reset first, since cobra keeps their values between
// executions.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(io.Discard)
	if args == nil {
		// A nil slice makes cobra fall back to os.Args.
		args = []string{}
	}
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

// writeTestConfig writes a config file whose database lives in a temporary
// directory and returns its path.
func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	cfg := DefaultConfig()
	cfg.Server.LogLevel = "error"
	cfg.Server.DatabasePath = filepath.Join(dir, "data", "lipsum.db")
	data, err := json.Marshal(cfg)
	require.NoError(t, err)

	path := filepath.Join(dir, "lipsum.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

// writeTestFile writes content to a file called name in a temporary directory.
func writeTestFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// newTestServer starts the API on an httptest server backed by a fresh
// database. mutate may adjust the default config before the server is built.
func newTestServer(t *testing.T, mutate func(*Config)) (*Server, *httptest.Server) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Server.DatabasePath = filepath.Join(t.TempDir(), "lipsum.db")
	if mutate != nil {
		mutate(cfg)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, closeStore, err := openStore(cfg.Server.DatabasePath, logger)
	require.NoError(t, err)
	t.Cleanup(closeStore)

	s := NewServer(cfg, store, logger)
	ts := httptest.NewServer(s)
	t.Cleanup(ts.Close)
	return s, ts
}
