package metadata

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDocument = `{
	"packages": [
		{
			"id": "demo 0.1.0 (path+file:///ws/demo)",
			"name": "demo",
			"version": "0.1.0",
			"source": null,
			"manifest_path": "/ws/demo/Cargo.toml",
			"targets": [
				{"name": "demo", "kind": ["lib"], "src_path": "/ws/demo/src/lib.rs"},
				{"name": "demo-bin", "kind": ["bin"], "src_path": "/ws/demo/src/main.rs"},
				{"name": "demo-dup", "kind": ["bin"], "src_path": "/ws/demo/src/main.rs"}
			]
		},
		{
			"id": "dep 1.0.0 (registry+https://github.com/rust-lang/crates.io-index)",
			"name": "dep",
			"version": "1.0.0",
			"source": "registry+https://github.com/rust-lang/crates.io-index",
			"manifest_path": "/reg/dep-1.0.0/Cargo.toml",
			"targets": []
		}
	],
	"resolve": {
		"root": "demo 0.1.0 (path+file:///ws/demo)",
		"nodes": [
			{
				"id": "demo 0.1.0 (path+file:///ws/demo)",
				"deps": [
					{
						"name": "dep",
						"pkg": "dep 1.0.0 (registry+https://github.com/rust-lang/crates.io-index)",
						"dep_kinds": [{"kind": null, "target": null}]
					}
				]
			}
		]
	},
	"workspace_root": "/ws/demo",
	"target_directory": "/ws/demo/target"
}`

func TestDecode(t *testing.T) {
	t.Run("valid document", func(t *testing.T) {
		doc, err := Decode(strings.NewReader(sampleDocument))
		require.NoError(t, err)

		assert.Len(t, doc.Packages, 2)
		assert.Equal(t, "demo 0.1.0 (path+file:///ws/demo)", doc.Resolve.Root)
		assert.Equal(t, "/ws/demo", doc.WorkspaceRoot)

		// null kind decodes to the normal-dependency spelling
		assert.Equal(t, "", doc.Resolve.Nodes[0].Deps[0].DepKinds[0].Kind)
	})

	t.Run("invalid JSON fails", func(t *testing.T) {
		_, err := Decode(strings.NewReader("{not json"))
		assert.Error(t, err)
	})

	t.Run("missing resolve section fails", func(t *testing.T) {
		_, err := Decode(strings.NewReader(`{"packages": [{"id": "x"}]}`))
		assert.Error(t, err)
	})

	t.Run("empty package list fails", func(t *testing.T) {
		_, err := Decode(strings.NewReader(`{"packages": [], "resolve": {"root": "x"}}`))
		assert.Error(t, err)
	})
}

func TestPackage(t *testing.T) {
	doc, err := Decode(strings.NewReader(sampleDocument))
	require.NoError(t, err)
	index := doc.PackageIndex()

	t.Run("entry points are deduplicated in declaration order", func(t *testing.T) {
		demo := index["demo 0.1.0 (path+file:///ws/demo)"]
		require.NotNil(t, demo)
		assert.Equal(t, []string{"/ws/demo/src/lib.rs", "/ws/demo/src/main.rs"}, demo.EntryPoints())
	})

	t.Run("source root is the manifest directory", func(t *testing.T) {
		demo := index["demo 0.1.0 (path+file:///ws/demo)"]
		assert.Equal(t, "/ws/demo", demo.SourceRoot())
		assert.True(t, demo.IsLocal())
	})

	t.Run("registry package is not local", func(t *testing.T) {
		dep := index["dep 1.0.0 (registry+https://github.com/rust-lang/crates.io-index)"]
		require.NotNil(t, dep)
		assert.False(t, dep.IsLocal())
		assert.Equal(t, "/reg/dep-1.0.0", dep.SourceRoot())
	})

	t.Run("package without manifest has no source root", func(t *testing.T) {
		pkg := Package{ID: "x"}
		assert.Equal(t, "", pkg.SourceRoot())
	})
}
