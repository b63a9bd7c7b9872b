package scan

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sofiebrandt/crate-audit/cargofiles"
	"github.com/sofiebrandt/crate-audit/graph"
	"github.com/sofiebrandt/crate-audit/metadata"
)

// writeCrate lays a minimal crate out on disk and returns a one-package graph
// rooted at it
func writeCrate(t *testing.T, files map[string]string) (*graph.Graph, string) {
	t.Helper()
	dir := t.TempDir()

	for rel, content := range files {
		path := filepath.Join(dir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	doc := &metadata.Document{
		Packages: []metadata.Package{
			{
				ID:           "demo 0.1.0 (path+file://" + dir + ")",
				Name:         "demo",
				Version:      "0.1.0",
				ManifestPath: filepath.Join(dir, "Cargo.toml"),
				Targets: []metadata.Target{
					{Name: "demo", Kind: []string{"lib"}, SrcPath: filepath.Join(dir, "src", "lib.rs")},
				},
			},
		},
		Resolve: &metadata.Resolve{
			Root:  "demo 0.1.0 (path+file://" + dir + ")",
			Nodes: []metadata.Node{{ID: "demo 0.1.0 (path+file://" + dir + ")"}},
		},
	}
	g, err := graph.Build(doc, graph.DefaultEdgeFilter())
	require.NoError(t, err)
	return g, dir
}

func TestScanFull(t *testing.T) {
	t.Run("walks child modules from the entry file", func(t *testing.T) {
		g, dir := writeCrate(t, map[string]string{
			"src/lib.rs":        "mod alpha;\nmod beta;\n",
			"src/alpha.rs":      "pub fn safe_call() { other(); }\n",
			"src/beta/mod.rs":   "mod gamma;\n",
			"src/beta/gamma.rs": "pub unsafe fn poke() {}\n",
		})

		sc, err := New(Options{Mode: ModeFull}).Scan(context.Background(), g)
		require.NoError(t, err)

		files := sc.PackageFiles[g.Root().ID]
		assert.Len(t, files, 4)

		visited := sc.VisitedPaths()
		for _, rel := range []string{"src/lib.rs", "src/alpha.rs", "src/beta/mod.rs", "src/beta/gamma.rs"} {
			_, ok := visited[cargofiles.Canonical(filepath.Join(dir, rel))]
			assert.True(t, ok, rel)
		}

		var total CounterBlock
		for _, f := range files {
			total.Add(f.Counters)
		}
		assert.EqualValues(t, 1, total.Functions.Unsafe)
		assert.EqualValues(t, 1, total.Functions.Safe)
	})

	t.Run("a file reachable via two module paths is scanned once", func(t *testing.T) {
		g, _ := writeCrate(t, map[string]string{
			"src/lib.rs": "mod shared;\n#[path = \"shared.rs\"]\nmod alias;\n",
			"src/shared.rs": `pub fn f() {}
`,
		})

		sc, err := New(Options{Mode: ModeFull}).Scan(context.Background(), g)
		require.NoError(t, err)

		files := sc.PackageFiles[g.Root().ID]
		assert.Len(t, files, 2)

		var total CounterBlock
		for _, f := range files {
			total.Add(f.Counters)
		}
		assert.EqualValues(t, 1, total.Functions.Safe)
	})

	t.Run("unresolvable module becomes a warning, not a failure", func(t *testing.T) {
		g, _ := writeCrate(t, map[string]string{
			"src/lib.rs": "mod missing;\n",
		})

		sc, err := New(Options{Mode: ModeFull}).Scan(context.Background(), g)
		require.NoError(t, err)

		require.Len(t, sc.Warnings, 1)
		assert.Contains(t, sc.Warnings[0], "missing")
		assert.Len(t, sc.PackageFiles[g.Root().ID], 1)
	})

	t.Run("unreadable entry file is excluded and recorded", func(t *testing.T) {
		g, dir := writeCrate(t, map[string]string{
			"src/lib.rs": "fn f() {}\n",
		})
		require.NoError(t, os.Remove(filepath.Join(dir, "src", "lib.rs")))

		sc, err := New(Options{Mode: ModeFull}).Scan(context.Background(), g)
		require.NoError(t, err)

		assert.Empty(t, sc.PackageFiles[g.Root().ID])
		require.Len(t, sc.Warnings, 1)
		assert.Contains(t, sc.Warnings[0], "parse error")
	})

	t.Run("package without source root produces no entries", func(t *testing.T) {
		doc := &metadata.Document{
			Packages: []metadata.Package{
				{ID: "ghost 1.0.0 (registry)", Name: "ghost", Version: "1.0.0"},
			},
			Resolve: &metadata.Resolve{Root: "ghost 1.0.0 (registry)"},
		}
		g, err := graph.Build(doc, graph.DefaultEdgeFilter())
		require.NoError(t, err)

		sc, err := New(Options{Mode: ModeFull}).Scan(context.Background(), g)
		require.NoError(t, err)
		assert.Empty(t, sc.PackageFiles)
	})
}

func TestScanEntryPointsOnly(t *testing.T) {
	t.Run("reads only the entry file and leaves counters at zero", func(t *testing.T) {
		g, dir := writeCrate(t, map[string]string{
			"src/lib.rs":   "#![forbid(unsafe_code)]\nmod child;\n",
			"src/child.rs": "pub unsafe fn poke() {}\n",
		})

		sc, err := New(Options{Mode: ModeEntryPointsOnly}).Scan(context.Background(), g)
		require.NoError(t, err)

		files := sc.PackageFiles[g.Root().ID]
		require.Len(t, files, 1)
		assert.True(t, files[0].ForbidsUnsafe)
		assert.Equal(t, CounterBlock{}, files[0].Counters)

		_, childVisited := sc.VisitedPaths()[cargofiles.Canonical(filepath.Join(dir, "src", "child.rs"))]
		assert.False(t, childVisited)
	})

	t.Run("entry without the directive is permissive", func(t *testing.T) {
		g, _ := writeCrate(t, map[string]string{
			"src/lib.rs": "pub fn f() {}\n",
		})

		sc, err := New(Options{Mode: ModeEntryPointsOnly}).Scan(context.Background(), g)
		require.NoError(t, err)

		files := sc.PackageFiles[g.Root().ID]
		require.Len(t, files, 1)
		assert.False(t, files[0].ForbidsUnsafe)
	})
}

func TestScanIdempotent(t *testing.T) {
	g, _ := writeCrate(t, map[string]string{
		"src/lib.rs":   "mod child;\nfn f() { unsafe { g(); } }\n",
		"src/child.rs": "pub fn h() {}\n",
	})

	first, err := New(Options{Mode: ModeFull}).Scan(context.Background(), g)
	require.NoError(t, err)
	second, err := New(Options{Mode: ModeFull}).Scan(context.Background(), g)
	require.NoError(t, err)

	assert.Equal(t, first.VisitedPaths(), second.VisitedPaths())

	var firstTotal, secondTotal CounterBlock
	for _, f := range first.AllFiles() {
		firstTotal.Add(f.Counters)
	}
	for _, f := range second.AllFiles() {
		secondTotal.Add(f.Counters)
	}
	assert.Equal(t, firstTotal, secondTotal)
}
