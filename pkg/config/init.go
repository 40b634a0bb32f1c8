package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/marmos91/sftpbox/pkg/adapter/sftp"
)

// HostKeyFileName is the host key written next to a generated configuration.
const HostKeyFileName = "ssh_host_ed25519_key"

const configHeader = `# sftpbox Configuration File
#
# Every setting can be overridden with an environment variable named after
# its path, e.g. SFTPBOX_SERVER_PORT=2222 or SFTPBOX_LOGGING_LEVEL=DEBUG.
#
# Credentials:
#   auth.static       users with bcrypt hashes (htpasswd -nbB "" pass | cut -d: -f2)
#   auth.public_keys  users bound to authorized_keys files
#   auth.token        signed JWTs presented as passwords (sftpbox token issue)
#   auth.database     users and keys managed with 'sftpbox user' and 'sftpbox key'
#
# At least one of them must be configured before 'sftpbox start'.

`

// InitConfig writes a sample configuration to the default location and
// returns its path.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes a sample configuration to path. It also creates a
// persistent host key next to the file and a random token secret.
func InitConfigToPath(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", path)
	}

	cfg, err := sampleConfig(filepath.Dir(path))
	if err != nil {
		return err
	}

	hostKey := cfg.Server.HostKeyPath
	if _, err := sftp.GenerateHostKey(hostKey, false); err != nil && !errors.Is(err, sftp.ErrHostKeyExists) {
		return fmt.Errorf("failed to generate host key: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, append([]byte(configHeader), data...), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func sampleConfig(dir string) (*Config, error) {
	cfg := GetDefaultConfig()

	secret, err := randomSecret()
	if err != nil {
		return nil, err
	}
	cfg.Auth.Token.Secret = secret
	cfg.Server.HostKeyPath = filepath.Join(dir, HostKeyFileName)
	cfg.Database.SQLite.Path = filepath.Join(dir, "credentials.db")
	cfg.Sandbox.Root = filepath.Join(dir, "data")
	cfg.Auth.Database = true

	return cfg, nil
}

// randomSecret returns 32 random bytes, hex encoded.
func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}
