package cargofiles

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDepInfo(t *testing.T) {
	t.Run("simple target line", func(t *testing.T) {
		deps := parseDepInfo([]byte("/out/lib.rmeta: /src/lib.rs /src/util.rs\n"))
		assert.Equal(t, []string{"/src/lib.rs", "/src/util.rs"}, deps)
	})

	t.Run("escaped spaces in paths", func(t *testing.T) {
		deps := parseDepInfo([]byte(`/out/a: /src/my\ crate/lib.rs`))
		assert.Equal(t, []string{"/src/my crate/lib.rs"}, deps)
	})

	t.Run("line continuations", func(t *testing.T) {
		deps := parseDepInfo([]byte("/out/a: /src/lib.rs \\\n /src/mod_a.rs\n"))
		assert.Equal(t, []string{"/src/lib.rs", "/src/mod_a.rs"}, deps)
	})

	t.Run("lines without targets are skipped", func(t *testing.T) {
		deps := parseDepInfo([]byte("\n# comment-ish noise\n"))
		assert.Empty(t, deps)
	})
}

func TestCollectDepInfoFiles(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "debug", "deps")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(nested, "demo-abc.d"), []byte("a: b"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(nested, "demo-abc.rmeta"), nil, 0o644))

	files, err := collectDepInfoFiles(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "demo-abc.d", filepath.Base(files[0]))
}

func TestSet(t *testing.T) {
	t.Run("diff returns members missing from the other set, sorted", func(t *testing.T) {
		dir := t.TempDir()
		a := filepath.Join(dir, "a.rs")
		b := filepath.Join(dir, "b.rs")
		require.NoError(t, os.WriteFile(a, nil, 0o644))
		require.NoError(t, os.WriteFile(b, nil, 0o644))

		compiled := NewSet(a, b)
		visited := map[string]struct{}{Canonical(a): {}}

		assert.Equal(t, []string{Canonical(b)}, compiled.Diff(visited))
		assert.Empty(t, compiled.Diff(compiled))
	})

	t.Run("membership is canonical", func(t *testing.T) {
		dir := t.TempDir()
		a := filepath.Join(dir, "a.rs")
		require.NoError(t, os.WriteFile(a, nil, 0o644))

		s := NewSet(a)
		assert.True(t, s.Contains(filepath.Join(dir, ".", "a.rs")))
		assert.False(t, s.Contains(filepath.Join(dir, "b.rs")))
	})

	t.Run("sorted output", func(t *testing.T) {
		s := NewSet("/z/file.rs", "/a/file.rs")
		sorted := s.Sorted()
		require.Len(t, sorted, 2)
		assert.Less(t, sorted[0], sorted[1])
	})
}

func TestCanonical(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "lib.rs")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	// canonicalization is idempotent
	once := Canonical(file)
	assert.Equal(t, once, Canonical(once))

	// a missing file still canonicalizes to an absolute path
	missing := Canonical(filepath.Join(dir, "nope.rs"))
	assert.True(t, filepath.IsAbs(missing))
}
