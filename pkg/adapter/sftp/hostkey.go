package sftp

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/ssh"

	"github.com/marmos91/sftpbox/internal/logger"
)

// ErrHostKeyExists is returned by GenerateHostKey when the file exists and
// overwriting was not requested.
var ErrHostKeyExists = errors.New("host key already exists")

// LoadHostKey reads a PEM private key (OpenSSH, PKCS#1, PKCS#8 or SEC1). An
// empty path returns a fresh ed25519 key that lives only in memory.
func LoadHostKey(path string) (ssh.Signer, error) {
	if path == "" {
		_, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("generate host key: %w", err)
		}
		signer, err := ssh.NewSignerFromKey(priv)
		if err != nil {
			return nil, err
		}
		logger.Warn("No host key configured, using an ephemeral key",
			"fingerprint", ssh.FingerprintSHA256(signer.PublicKey()))
		return signer, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read host key: %w", err)
	}
	signer, err := ssh.ParsePrivateKey(data)
	if err != nil {
		return nil, fmt.Errorf("parse host key %s: %w", path, err)
	}
	return signer, nil
}

// GenerateHostKey writes a new ed25519 host key to path in OpenSSH PEM format
// with mode 0600 and returns its public half.
func GenerateHostKey(path string, overwrite bool) (ssh.PublicKey, error) {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return nil, fmt.Errorf("%w: %s", ErrHostKeyExists, path)
		}
	}

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate host key: %w", err)
	}
	block, err := ssh.MarshalPrivateKey(priv, "sftpbox host key")
	if err != nil {
		return nil, fmt.Errorf("encode host key: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create host key directory: %w", err)
	}
	if err := os.WriteFile(path, pem.EncodeToMemory(block), 0o600); err != nil {
		return nil, fmt.Errorf("write host key: %w", err)
	}

	signer, err := ssh.NewSignerFromKey(priv)
	if err != nil {
		return nil, err
	}
	return signer.PublicKey(), nil
}
