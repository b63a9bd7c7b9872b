package metadata

import "path/filepath"

// Document is the resolved dependency metadata for a workspace, as produced by
// `cargo metadata --format-version 1`. It is delivered to this tool as an
// already-resolved document; nothing here talks to a registry.
type Document struct {
	Packages      []Package `json:"packages"`
	Resolve       *Resolve  `json:"resolve"`
	WorkspaceRoot string    `json:"workspace_root"`
	TargetDir     string    `json:"target_directory"`
}

// Package describes one package version in the resolved dependency closure
type Package struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	Source       string   `json:"source"`
	ManifestPath string   `json:"manifest_path"`
	Targets      []Target `json:"targets"`
}

// Target is a single compilation target (lib, bin, ...) with its entry file
type Target struct {
	Name    string   `json:"name"`
	Kind    []string `json:"kind"`
	SrcPath string   `json:"src_path"`
}

// Resolve is the resolved dependency graph section of the metadata document
type Resolve struct {
	Root  string `json:"root"`
	Nodes []Node `json:"nodes"`
}

// Node lists the resolved dependencies of one package version
type Node struct {
	ID   string    `json:"id"`
	Deps []NodeDep `json:"deps"`
}

// NodeDep is one resolved dependency edge with its kinds
type NodeDep struct {
	Name     string    `json:"name"`
	Pkg      string    `json:"pkg"`
	DepKinds []DepKind `json:"dep_kinds"`
}

// DepKind carries the dependency kind ("" for normal, "build", "dev") and an
// optional target platform expression the dependency is restricted to
type DepKind struct {
	Kind   string `json:"kind"`
	Target string `json:"target"`
}

// SourceRoot returns the directory containing the package manifest, or "" when
// the package has no local source available
func (p *Package) SourceRoot() string {
	if p.ManifestPath == "" {
		return ""
	}
	return filepath.Dir(p.ManifestPath)
}

// IsLocal reports whether the package comes from the local workspace rather
// than a registry or git source
func (p *Package) IsLocal() bool {
	return p.Source == ""
}

// EntryPoints returns the entry files of the package's compilation targets,
// deduplicated and in target declaration order
func (p *Package) EntryPoints() []string {
	seen := make(map[string]bool)
	var paths []string
	for _, t := range p.Targets {
		if t.SrcPath == "" || seen[t.SrcPath] {
			continue
		}
		seen[t.SrcPath] = true
		paths = append(paths, t.SrcPath)
	}
	return paths
}
