package auth

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/crypto/ssh"

	"github.com/marmos91/sftpbox/internal/logger"
)

// AuthorizedKeysFile binds a username to an OpenSSH authorized_keys file.
type AuthorizedKeysFile struct {
	Username       string `mapstructure:"username" yaml:"username" validate:"required"`
	AuthorizedKeys string `mapstructure:"authorized_keys" yaml:"authorized_keys" validate:"required"`
}

// PublicKeyTrustStore accepts a public key when it appears in the user's
// authorized_keys file. It never accepts passwords.
type PublicKeyTrustStore struct {
	files []AuthorizedKeysFile

	mu   sync.RWMutex
	keys map[string]map[string]struct{} // username -> marshaled wire keys
}

// NewPublicKeyTrustStore loads every file once. A missing or malformed file
// is an error here; later reloads only log.
func NewPublicKeyTrustStore(files []AuthorizedKeysFile) (*PublicKeyTrustStore, error) {
	ts := &PublicKeyTrustStore{
		files: files,
		keys:  make(map[string]map[string]struct{}, len(files)),
	}
	for _, f := range files {
		set, err := loadAuthorizedKeys(f.AuthorizedKeys)
		if err != nil {
			return nil, fmt.Errorf("load authorized keys for %q: %w", f.Username, err)
		}
		ts.merge(f.Username, set)
	}
	return ts, nil
}

func (ts *PublicKeyTrustStore) Name() string { return "authorized_keys" }

func (ts *PublicKeyTrustStore) VerifyPassword(context.Context, string, string) (Result, error) {
	return Reject, nil
}

func (ts *PublicKeyTrustStore) VerifyPublicKey(_ context.Context, user string, key ssh.PublicKey) (Result, error) {
	if key == nil {
		return Reject, nil
	}
	ts.mu.RLock()
	_, ok := ts.keys[user][string(key.Marshal())]
	ts.mu.RUnlock()
	if !ok {
		return Reject, nil
	}
	return Accept, nil
}

// KeyCount returns the number of keys trusted for user.
func (ts *PublicKeyTrustStore) KeyCount(user string) int {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return len(ts.keys[user])
}

// Reload re-reads every file. Files that cannot be read leave their user
// with no trusted keys.
func (ts *PublicKeyTrustStore) Reload() {
	keys := make(map[string]map[string]struct{}, len(ts.files))
	for _, f := range ts.files {
		set, err := loadAuthorizedKeys(f.AuthorizedKeys)
		if err != nil {
			logger.Warn("Failed to reload authorized keys",
				logger.Username(f.Username), logger.Path(f.AuthorizedKeys), logger.Err(err))
			set = nil
		}
		if keys[f.Username] == nil {
			keys[f.Username] = make(map[string]struct{})
		}
		for k := range set {
			keys[f.Username][k] = struct{}{}
		}
	}

	ts.mu.Lock()
	ts.keys = keys
	ts.mu.Unlock()
}

func (ts *PublicKeyTrustStore) merge(user string, set map[string]struct{}) {
	if ts.keys[user] == nil {
		ts.keys[user] = make(map[string]struct{}, len(set))
	}
	for k := range set {
		ts.keys[user][k] = struct{}{}
	}
}

// Watch reloads the store whenever one of its files changes. The parent
// directories are watched so that files replaced by rename are picked up.
// It blocks until ctx is cancelled.
func (ts *PublicKeyTrustStore) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	watched := make(map[string]struct{}, len(ts.files))
	dirs := make(map[string]struct{})
	for _, f := range ts.files {
		abs, err := filepath.Abs(f.AuthorizedKeys)
		if err != nil {
			return err
		}
		watched[abs] = struct{}{}
		dir := filepath.Dir(abs)
		if _, ok := dirs[dir]; ok {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		dirs[dir] = struct{}{}
	}

	logger.Debug("Watching authorized keys", logger.Count(uint32(len(watched))))

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if _, ok := watched[filepath.Clean(event.Name)]; !ok {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			logger.Info("Authorized keys changed, reloading", logger.Path(event.Name))
			ts.Reload()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Authorized keys watcher error", logger.Err(err))
		}
	}
}

// loadAuthorizedKeys parses an authorized_keys file into a set of wire-format
// keys. Blank lines and comments are skipped; options are ignored.
func loadAuthorizedKeys(path string) (map[string]struct{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	set := make(map[string]struct{})
	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		key, _, _, _, err := ssh.ParseAuthorizedKey(line)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, lineNo, errors.Join(ErrInvalidCredentials, err))
		}
		set[string(key.Marshal())] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return set, nil
}
