package handlers

import (
	"errors"
	"os"

	"github.com/google/uuid"

	"github.com/marmos91/sftpbox/internal/sandbox"
)

// errTooManyHandles is returned when a session hits its handle limit.
var errTooManyHandles = errors.New("too many open handles")

type handleKind uint8

const (
	fileHandle handleKind = iota + 1
	dirHandle
)

// openHandle is the resource behind a handle token.
type openHandle struct {
	kind handleKind
	path sandbox.ResolvedPath

	// file handles
	file   *os.File
	pflags uint32

	// dir handles
	exhausted bool
}

func (o *openHandle) writable() bool { return o.pflags&openWriteMask != 0 }

// handleTable maps opaque tokens to open resources. Tokens are random
// UUIDs so they reveal nothing about the path and cannot be guessed across
// sessions.
type handleTable struct {
	entries map[string]*openHandle
	max     int
}

func newHandleTable(max int) *handleTable {
	return &handleTable{entries: make(map[string]*openHandle), max: max}
}

func (t *handleTable) add(h *openHandle) (string, error) {
	if len(t.entries) >= t.max {
		return "", errTooManyHandles
	}
	token := uuid.NewString()
	t.entries[token] = h
	return token, nil
}

func (t *handleTable) lookup(token string, kind handleKind) (*openHandle, bool) {
	h, ok := t.entries[token]
	if !ok || h.kind != kind {
		return nil, false
	}
	return h, true
}

func (t *handleTable) get(token string) (*openHandle, bool) {
	h, ok := t.entries[token]
	return h, ok
}

// release removes the token and closes its file, if any.
func (t *handleTable) release(token string) (bool, error) {
	h, ok := t.entries[token]
	if !ok {
		return false, nil
	}
	delete(t.entries, token)
	if h.file != nil {
		return true, h.file.Close()
	}
	return true, nil
}

func (t *handleTable) closeAll() (int, error) {
	var errs []error
	n := len(t.entries)
	for token := range t.entries {
		if _, err := t.release(token); err != nil {
			errs = append(errs, err)
		}
	}
	return n, errors.Join(errs...)
}

func (t *handleTable) len() int { return len(t.entries) }
