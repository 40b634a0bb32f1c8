// Package sandbox confines client supplied paths to a single directory tree.
//
// Every path that reaches the filesystem on behalf of a client passes through
// a Guard first. The guard rejects parent-directory segments outright, then
// canonicalizes the result with all symlinks resolved and requires the
// canonical form to stay under the canonical root. Only a ResolvedPath,
// produced by the guard, is meant to be handed to os functions.
package sandbox

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrTraversal is returned for paths containing a ".." segment.
	ErrTraversal = errors.New("path contains parent directory segment")

	// ErrInvalidPath is returned for paths the filesystem cannot represent.
	ErrInvalidPath = errors.New("invalid path")

	// ErrEscape is returned when a path canonicalizes outside the root.
	ErrEscape = errors.New("path escapes sandbox root")

	// ErrNotFound is returned when a path (or, for creation, its parent)
	// cannot be canonicalized.
	ErrNotFound = errors.New("path not found")
)

// ResolvedPath is an absolute, canonical path proven to lie within the
// sandbox root.
type ResolvedPath struct {
	abs string
}

// String returns the absolute filesystem path.
func (p ResolvedPath) String() string { return p.abs }

// IsZero reports whether p was never resolved.
func (p ResolvedPath) IsZero() bool { return p.abs == "" }

// Guard validates client paths against a canonical root.
type Guard struct {
	root string
}

// New returns a Guard for an existing root directory. The root is
// canonicalized once; later changes to symlinks above it are not observed.
func New(root string) (*Guard, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("sandbox root %q: %w", root, err)
	}
	canonical, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("sandbox root %q: %w", root, err)
	}
	info, err := os.Stat(canonical)
	if err != nil {
		return nil, fmt.Errorf("sandbox root %q: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("sandbox root %q: not a directory", root)
	}
	return &Guard{root: filepath.Clean(canonical)}, nil
}

// Prepare creates root (and any missing parents) when it does not exist,
// applies mode to a freshly created root, and returns a Guard for it.
// An existing root keeps its permissions.
func Prepare(root string, mode fs.FileMode) (*Guard, error) {
	if _, err := os.Stat(root); errors.Is(err, fs.ErrNotExist) {
		if err := os.MkdirAll(root, mode); err != nil {
			return nil, fmt.Errorf("create sandbox root %q: %w", root, err)
		}
		// MkdirAll is subject to umask
		if err := os.Chmod(root, mode); err != nil {
			return nil, fmt.Errorf("chmod sandbox root %q: %w", root, err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("stat sandbox root %q: %w", root, err)
	}
	return New(root)
}

// Root returns the canonical sandbox root.
func (g *Guard) Root() string { return g.root }

// RootPath returns the root as a ResolvedPath.
func (g *Guard) RootPath() ResolvedPath { return ResolvedPath{abs: g.root} }

// IsRoot reports whether p is the sandbox root itself.
func (g *Guard) IsRoot(p ResolvedPath) bool { return p.abs == g.root }

// Resolve canonicalizes an existing client path. The path must exist:
// absence is reported as ErrNotFound, never as success.
func (g *Guard) Resolve(clientPath string) (ResolvedPath, error) {
	joined, err := g.join(clientPath)
	if err != nil {
		return ResolvedPath{}, err
	}

	canonical, err := filepath.EvalSymlinks(joined)
	if err != nil {
		return ResolvedPath{}, fmt.Errorf("%w: %s", ErrNotFound, clientPath)
	}
	return g.contain(clientPath, canonical)
}

// ResolveForCreate canonicalizes the parent of a path that may not exist yet
// and re-attaches the final element. The parent must exist inside the root.
// An existing final element that is a symlink must itself resolve inside the
// root, so a create through it cannot land outside.
func (g *Guard) ResolveForCreate(clientPath string) (ResolvedPath, error) {
	joined, err := g.join(clientPath)
	if err != nil {
		return ResolvedPath{}, err
	}
	if joined == g.root {
		return ResolvedPath{abs: g.root}, nil
	}

	parent, err := filepath.EvalSymlinks(filepath.Dir(joined))
	if err != nil {
		return ResolvedPath{}, fmt.Errorf("%w: parent of %s", ErrNotFound, clientPath)
	}
	if _, err := g.contain(clientPath, parent); err != nil {
		return ResolvedPath{}, err
	}

	candidate := filepath.Join(parent, filepath.Base(joined))
	info, err := os.Lstat(candidate)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return ResolvedPath{abs: candidate}, nil
	case err != nil:
		return ResolvedPath{}, fmt.Errorf("%w: %s: %v", ErrNotFound, clientPath, err)
	case info.Mode()&fs.ModeSymlink == 0:
		return ResolvedPath{abs: candidate}, nil
	}

	// Dangling links are rejected: creating through one would follow it.
	target, err := filepath.EvalSymlinks(candidate)
	if err != nil {
		return ResolvedPath{}, fmt.Errorf("%w: dangling symlink %s", ErrEscape, clientPath)
	}
	return g.contain(clientPath, target)
}

// ResolveEntry canonicalizes the parent of an existing path and re-attaches
// the final element without following it. Suited to operations that act on
// the directory entry itself (lstat, unlink, rename), where a final symlink
// must not be dereferenced.
func (g *Guard) ResolveEntry(clientPath string) (ResolvedPath, error) {
	joined, err := g.join(clientPath)
	if err != nil {
		return ResolvedPath{}, err
	}
	if joined == g.root {
		return ResolvedPath{abs: g.root}, nil
	}

	parent, err := filepath.EvalSymlinks(filepath.Dir(joined))
	if err != nil {
		return ResolvedPath{}, fmt.Errorf("%w: parent of %s", ErrNotFound, clientPath)
	}
	if _, err := g.contain(clientPath, parent); err != nil {
		return ResolvedPath{}, err
	}

	entry := filepath.Join(parent, filepath.Base(joined))
	if _, err := os.Lstat(entry); err != nil {
		return ResolvedPath{}, fmt.Errorf("%w: %s", ErrNotFound, clientPath)
	}
	return ResolvedPath{abs: entry}, nil
}

// join validates the segments of clientPath and joins them onto the root.
// Both "/a/b" and "a/b" name the same entry under the root.
func (g *Guard) join(clientPath string) (string, error) {
	if strings.IndexByte(clientPath, 0) >= 0 {
		return "", fmt.Errorf("%w: NUL byte", ErrInvalidPath)
	}

	segments := strings.Split(filepath.ToSlash(clientPath), "/")
	kept := make([]string, 0, len(segments)+1)
	kept = append(kept, g.root)
	for _, seg := range segments {
		switch seg {
		case "", ".":
			continue
		case "..":
			return "", fmt.Errorf("%w: %s", ErrTraversal, clientPath)
		}
		kept = append(kept, seg)
	}
	return filepath.Join(kept...), nil
}

func (g *Guard) contain(clientPath, canonical string) (ResolvedPath, error) {
	canonical = filepath.Clean(canonical)
	if g.root == string(filepath.Separator) {
		return ResolvedPath{abs: canonical}, nil
	}
	if canonical != g.root && !strings.HasPrefix(canonical, g.root+string(filepath.Separator)) {
		return ResolvedPath{}, fmt.Errorf("%w: %s", ErrEscape, clientPath)
	}
	return ResolvedPath{abs: canonical}, nil
}

// Rel returns p relative to the root in client form: "/" for the root,
// "/a/b" otherwise.
func (g *Guard) Rel(p ResolvedPath) string {
	rel, err := filepath.Rel(g.root, p.abs)
	if err != nil || rel == "." {
		return "/"
	}
	return "/" + filepath.ToSlash(rel)
}
