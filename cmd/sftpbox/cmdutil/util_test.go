package cmdutil

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/sftpbox/internal/cli/prompt"
)

type rows [][]string

func (r rows) Headers() []string { return []string{"NAME"} }
func (r rows) Rows() [][]string  { return r }

// newCmd returns a command with the --config flag the root command provides.
func newCmd(configPath string) (*cobra.Command, *bytes.Buffer) {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("config", configPath, "")
	var errOut bytes.Buffer
	cmd.SetErr(&errOut)
	return cmd, &errOut
}

func TestReadSecret(t *testing.T) {
	got, err := ReadSecret(strings.NewReader("s3cret-pass\r\nignored\n"))
	require.NoError(t, err)
	assert.Equal(t, "s3cret-pass", got)

	got, err = ReadSecret(strings.NewReader("no-newline"))
	require.NoError(t, err)
	assert.Equal(t, "no-newline", got)

	_, err = ReadSecret(strings.NewReader(""))
	assert.Error(t, err)

	_, err = ReadSecret(strings.NewReader("\n"))
	assert.Error(t, err)
}

func TestPrintOutput(t *testing.T) {
	data := []map[string]string{{"name": "alice"}}

	t.Run("table", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, PrintOutput(&buf, "table", data, false, "none", rows{{"alice"}}))
		assert.Contains(t, buf.String(), "NAME")
		assert.Contains(t, buf.String(), "alice")
	})

	t.Run("empty table", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, PrintOutput(&buf, "", nil, true, "No users found.", rows{}))
		assert.Equal(t, "No users found.\n", buf.String())
	})

	t.Run("json ignores emptiness", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, PrintOutput(&buf, "json", []string{}, true, "none", rows{}))
		assert.Equal(t, "[]\n", buf.String())
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, PrintOutput(&buf, "yaml", data, false, "none", rows{{"alice"}}))
		assert.Equal(t, "- name: alice\n", buf.String())
	})

	t.Run("unknown format", func(t *testing.T) {
		var buf bytes.Buffer
		assert.Error(t, PrintOutput(&buf, "xml", data, false, "none", rows{}))
	})
}

func TestHandleAbort(t *testing.T) {
	cmd, errOut := newCmd("")

	assert.NoError(t, HandleAbort(cmd, prompt.ErrAborted))
	assert.Equal(t, "Aborted.\n", errOut.String())

	wrapped := fmt.Errorf("reading password: %w", prompt.ErrAborted)
	assert.NoError(t, HandleAbort(cmd, wrapped))

	other := prompt.ErrPasswordMismatch
	assert.ErrorIs(t, HandleAbort(cmd, other), other)
}

func TestEmptyOr(t *testing.T) {
	assert.Equal(t, "-", EmptyOr("", "-"))
	assert.Equal(t, "laptop", EmptyOr("laptop", "-"))
}

func TestAPIURL(t *testing.T) {
	t.Run("override", func(t *testing.T) {
		cmd, _ := newCmd("")
		got, err := APIURL(cmd, "http://example.test:9000")
		require.NoError(t, err)
		assert.Equal(t, "http://example.test:9000", got)
	})

	t.Run("wildcard bind maps to loopback", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("controlplane:\n  enabled: true\n  bind_address: 0.0.0.0\n  port: 18080\n"), 0o600))

		cmd, _ := newCmd(path)
		got, err := APIURL(cmd, "")
		require.NoError(t, err)
		assert.Equal(t, "http://127.0.0.1:18080", got)
	})

	t.Run("disabled control plane", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("controlplane:\n  enabled: false\n"), 0o600))

		cmd, _ := newCmd(path)
		_, err := APIURL(cmd, "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "controlplane.enabled")
	})
}

func TestOpenStore(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	dbPath := filepath.Join(dir, "creds", "credentials.db")
	content := fmt.Sprintf("database:\n  type: sqlite\n  sqlite:\n    path: %q\n", dbPath)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cmd, errOut := newCmd(path)
	s, cfg, err := OpenStore(cmd)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	assert.Equal(t, dbPath, cfg.Database.SQLite.Path)
	assert.FileExists(t, dbPath)
	assert.Contains(t, errOut.String(), "auth.database is disabled")

	t.Run("missing config", func(t *testing.T) {
		cmd, _ := newCmd(filepath.Join(dir, "missing.yaml"))
		_, _, err := OpenStore(cmd)
		assert.Error(t, err)
	})
}
