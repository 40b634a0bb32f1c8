package config

import (
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/sftpbox/internal/bytesize"
	"github.com/marmos91/sftpbox/pkg/adapter/sftp"
	"github.com/marmos91/sftpbox/pkg/controlplane/store"
)

// yamlSafePath converts a filesystem path for use inside a YAML string.
func yamlSafePath(p string) string {
	return filepath.ToSlash(p)
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, `
logging:
  level: debug
sandbox:
  root: "`+yamlSafePath(dir)+`/files"
  root_mode: "0750"
server:
  port: 2222
  max_packet_size: 64KiB
  auth_rejection_delay: 500ms
auth:
  static:
    - username: alice
      password_hash: "$2a$10$abcdefghijklmnopqrstuu"
  token:
    enabled: true
    secret: "0123456789abcdef0123456789abcdef"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "DEBUG", cfg.Logging.Level, "level is normalized")
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, yamlSafePath(dir)+"/files", cfg.Sandbox.Root)
	assert.Equal(t, fs.FileMode(0o750), cfg.Sandbox.RootMode.FileMode())
	assert.Equal(t, 2222, cfg.Server.Port)
	assert.Equal(t, 64*bytesize.KiB, cfg.Server.MaxPacketSize)
	assert.Equal(t, 500*time.Millisecond, cfg.Server.AuthRejectionDelay)
	assert.Equal(t, time.Duration(0), cfg.Server.AuthRejectionDelayInitial)
	assert.Equal(t, sftp.DefaultMaxAuthTries, cfg.Server.MaxAuthTries)
	require.Len(t, cfg.Auth.Static, 1)
	assert.Equal(t, "alice", cfg.Auth.Static[0].Username)
	assert.Equal(t, "sftpbox", cfg.Auth.Token.Issuer)
	assert.Equal(t, "sftp", cfg.Auth.Token.Audience)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
}

func TestLoadExplicitZeroDelay(t *testing.T) {
	path := writeConfig(t, `
server:
  auth_rejection_delay: 0s
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), cfg.Server.AuthRejectionDelay)
}

func TestLoadNoConfigFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, sftp.DefaultPort, cfg.Server.Port)
	assert.Equal(t, sftp.DefaultAuthRejectionDelay, cfg.Server.AuthRejectionDelay)
	assert.Equal(t, sftp.DefaultMaxPacketSize, cfg.Server.MaxPacketSize)
	assert.Equal(t, ".", cfg.Sandbox.Root)
	assert.Equal(t, fs.FileMode(0o775), cfg.Sandbox.RootMode.FileMode())
	assert.Equal(t, store.DatabaseTypeSQLite, cfg.Database.Type)
	assert.True(t, cfg.ControlPlane.Enabled)
	assert.Equal(t, "127.0.0.1", cfg.ControlPlane.BindAddress)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("SFTPBOX_SERVER_PORT", "2223")
	t.Setenv("SFTPBOX_LOGGING_FORMAT", "json")
	t.Setenv("SFTPBOX_SERVER_HANDSHAKE_TIMEOUT", "5s")
	t.Setenv("SFTPBOX_AUTH_TOKEN_SECRET", "from-the-environment-and-long-enough")

	path := writeConfig(t, `
server:
  port: 2222
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2223, cfg.Server.Port)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 5*time.Second, cfg.Server.HandshakeTimeout)
	assert.Equal(t, "from-the-environment-and-long-enough", cfg.Auth.Token.Secret)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad log level", "logging:\n  level: LOUD\n"},
		{"bad duration", "server:\n  handshake_timeout: soon\n"},
		{"bad byte size", "server:\n  max_packet_size: lots\n"},
		{"bad file mode", "sandbox:\n  root_mode: \"0999\"\n"},
		{"bad server version", "server:\n  server_version: OpenSSH_9\n"},
		{"short token secret", "auth:\n  token:\n    enabled: true\n    secret: short\n"},
		{"static user without hash", "auth:\n  static:\n    - username: alice\n"},
		{"malformed yaml", "server: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestMustLoad(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	_, err := MustLoad("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sftpbox init")

	_, err = MustLoad(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration file not found")

	cfg, err := MustLoad(writeConfig(t, "server:\n  port: 2200\n"))
	require.NoError(t, err)
	assert.Equal(t, 2200, cfg.Server.Port)
}

func TestSaveConfigRoundTrips(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Server.MaxPacketSize = 128 * bytesize.KiB
	cfg.Sandbox.RootMode = sftp.FileMode(0o700)
	cfg.Server.AuthRejectionDelay = 0

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, SaveConfig(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, fs.FileMode(0o600), info.Mode().Perm())

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 128*bytesize.KiB, loaded.Server.MaxPacketSize)
	assert.Equal(t, fs.FileMode(0o700), loaded.Sandbox.RootMode.FileMode())
	assert.Equal(t, time.Duration(0), loaded.Server.AuthRejectionDelay)
}

func TestFileModeDecodeHook(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  fs.FileMode
	}{
		{"string", "0755", 0o755},
		{"yaml octal integer", 0o750, 0o750},
		{"float", float64(0o700), 0o700},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out struct {
				Mode sftp.FileMode `mapstructure:"mode"`
			}
			dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
				DecodeHook: configDecodeHooks(),
				Result:     &out,
			})
			require.NoError(t, err)
			require.NoError(t, dec.Decode(map[string]any{"mode": tt.input}))
			assert.Equal(t, tt.want, out.Mode.FileMode())
		})
	}
}

func TestAdapterConfig(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Sandbox.Root = "/srv/sftp"

	ac := cfg.AdapterConfig()
	assert.Equal(t, "/srv/sftp", ac.Sandbox.Root)
	assert.Equal(t, cfg.Server.Port, ac.Server.Port)
	assert.Equal(t, cfg.ShutdownTimeout, ac.ShutdownTimeout)
}

func TestSchema(t *testing.T) {
	data, err := json.Marshal(Schema())
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "sftpbox Configuration", doc["title"])

	props := doc["properties"].(map[string]any)
	for _, key := range []string{"logging", "sandbox", "server", "auth", "database", "metrics", "controlplane"} {
		assert.Contains(t, props, key)
	}

	server := props["server"].(map[string]any)["properties"].(map[string]any)
	assert.Equal(t, "string", server["handshake_timeout"].(map[string]any)["type"])
	assert.Contains(t, server["max_packet_size"], "oneOf")
}
