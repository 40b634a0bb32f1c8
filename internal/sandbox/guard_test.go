package sandbox

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestGuard builds a sandbox with a small tree:
//
//	root/
//	  docs/readme.txt
//	  link-in  -> docs
//	  link-out -> <outside>
//	outside/secret.txt
func newTestGuard(t *testing.T) (*Guard, string) {
	t.Helper()

	base := t.TempDir()
	root := filepath.Join(base, "root")
	outside := filepath.Join(base, "outside")

	require.NoError(t, os.MkdirAll(filepath.Join(root, "docs"), 0o755))
	require.NoError(t, os.MkdirAll(outside, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "docs", "readme.txt"), []byte("hi"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(outside, "secret.txt"), []byte("no"), 0o644))
	require.NoError(t, os.Symlink(filepath.Join(root, "docs"), filepath.Join(root, "link-in")))
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "link-out")))

	g, err := New(root)
	require.NoError(t, err)
	return g, outside
}

func TestResolve(t *testing.T) {
	g, _ := newTestGuard(t)

	t.Run("InsidePathsAreCanonicalAndRootPrefixed", func(t *testing.T) {
		for _, p := range []string{"docs", "/docs", "./docs/", "docs/./readme.txt", "//docs//readme.txt", "link-in/readme.txt"} {
			resolved, err := g.Resolve(p)
			require.NoError(t, err, p)
			assert.True(t, strings.HasPrefix(resolved.String(), g.Root()+string(filepath.Separator)), p)
			assert.True(t, filepath.IsAbs(resolved.String()), p)
		}
	})

	t.Run("SymlinkInsideResolvesToTarget", func(t *testing.T) {
		resolved, err := g.Resolve("link-in/readme.txt")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(g.Root(), "docs", "readme.txt"), resolved.String())
	})

	t.Run("RootAliases", func(t *testing.T) {
		for _, p := range []string{"", ".", "/", "./", "/."} {
			resolved, err := g.Resolve(p)
			require.NoError(t, err, p)
			assert.True(t, g.IsRoot(resolved), p)
		}
	})

	t.Run("ParentSegmentsRejected", func(t *testing.T) {
		for _, p := range []string{"..", "../outside", "docs/..", "docs/../docs", "/a/../../b", "docs/../../outside/secret.txt"} {
			_, err := g.Resolve(p)
			assert.ErrorIs(t, err, ErrTraversal, p)
		}
	})

	t.Run("SymlinkEscapeRejected", func(t *testing.T) {
		_, err := g.Resolve("link-out/secret.txt")
		assert.ErrorIs(t, err, ErrEscape)

		_, err = g.Resolve("link-out")
		assert.ErrorIs(t, err, ErrEscape)
	})

	t.Run("MissingPathIsNotFound", func(t *testing.T) {
		_, err := g.Resolve("docs/missing.txt")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("NulByteRejected", func(t *testing.T) {
		_, err := g.Resolve("docs/a\x00b")
		assert.ErrorIs(t, err, ErrInvalidPath)
	})
}

func TestResolveForCreate(t *testing.T) {
	g, outside := newTestGuard(t)

	t.Run("MissingLeafUnderExistingParent", func(t *testing.T) {
		resolved, err := g.ResolveForCreate("/docs/new.txt")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(g.Root(), "docs", "new.txt"), resolved.String())
	})

	t.Run("ParentThroughInsideSymlink", func(t *testing.T) {
		resolved, err := g.ResolveForCreate("link-in/new.txt")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(g.Root(), "docs", "new.txt"), resolved.String())
	})

	t.Run("MissingParentIsNotFound", func(t *testing.T) {
		_, err := g.ResolveForCreate("nope/new.txt")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("ParentOutsideRejected", func(t *testing.T) {
		_, err := g.ResolveForCreate("link-out/new.txt")
		assert.ErrorIs(t, err, ErrEscape)
	})

	t.Run("DanglingLeafSymlinkRejected", func(t *testing.T) {
		require.NoError(t, os.Symlink(filepath.Join(outside, "planted.txt"), filepath.Join(g.Root(), "trap")))

		_, err := g.ResolveForCreate("trap")
		assert.ErrorIs(t, err, ErrEscape)

		_, statErr := os.Stat(filepath.Join(outside, "planted.txt"))
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("ParentSegmentsRejected", func(t *testing.T) {
		_, err := g.ResolveForCreate("../outside/new.txt")
		assert.ErrorIs(t, err, ErrTraversal)
	})
}

func TestResolveEntry(t *testing.T) {
	g, _ := newTestGuard(t)

	t.Run("FinalSymlinkNotFollowed", func(t *testing.T) {
		resolved, err := g.ResolveEntry("link-out")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(g.Root(), "link-out"), resolved.String())
	})

	t.Run("IntermediateSymlinkStillContained", func(t *testing.T) {
		_, err := g.ResolveEntry("link-out/secret.txt")
		assert.ErrorIs(t, err, ErrEscape)
	})

	t.Run("MissingEntryIsNotFound", func(t *testing.T) {
		_, err := g.ResolveEntry("docs/missing.txt")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestPrepare(t *testing.T) {
	t.Run("CreatesMissingRootWithMode", func(t *testing.T) {
		root := filepath.Join(t.TempDir(), "a", "b")

		g, err := Prepare(root, 0o775)
		require.NoError(t, err)

		info, err := os.Stat(g.Root())
		require.NoError(t, err)
		assert.True(t, info.IsDir())
		assert.Equal(t, os.FileMode(0o775), info.Mode().Perm())
	})

	t.Run("KeepsExistingRootPermissions", func(t *testing.T) {
		root := t.TempDir()
		require.NoError(t, os.Chmod(root, 0o700))

		_, err := Prepare(root, 0o775)
		require.NoError(t, err)

		info, err := os.Stat(root)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o700), info.Mode().Perm())
	})

	t.Run("RootMustBeDirectory", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(file, nil, 0o644))

		_, err := Prepare(file, 0o775)
		assert.Error(t, err)
	})
}

func TestRel(t *testing.T) {
	g, _ := newTestGuard(t)

	resolved, err := g.Resolve("docs/readme.txt")
	require.NoError(t, err)
	assert.Equal(t, "/docs/readme.txt", g.Rel(resolved))
	assert.Equal(t, "/", g.Rel(g.RootPath()))
}
