package graph

import (
	"fmt"
	"sort"

	"github.com/sofiebrandt/crate-audit/metadata"
)

// EdgeKind classifies a dependency edge the way cargo resolves it
type EdgeKind uint8

const (
	KindNormal EdgeKind = iota
	KindBuild
	KindDev
)

// String returns the metadata spelling of the edge kind
func (k EdgeKind) String() string {
	switch k {
	case KindBuild:
		return "build"
	case KindDev:
		return "dev"
	default:
		return "normal"
	}
}

// KindFromMetadata maps a metadata dep_kinds entry to an EdgeKind. Cargo emits
// null (decoded as "") for normal dependencies.
func KindFromMetadata(kind string) EdgeKind {
	switch kind {
	case "build":
		return KindBuild
	case "dev":
		return KindDev
	default:
		return KindNormal
	}
}

// EdgeFilter selects which dependency kinds survive graph construction
type EdgeFilter struct {
	Normal bool
	Build  bool
	Dev    bool
}

// DefaultEdgeFilter keeps only normal dependencies
func DefaultEdgeFilter() EdgeFilter {
	return EdgeFilter{Normal: true}
}

// AllEdgeFilter keeps every dependency kind
func AllEdgeFilter() EdgeFilter {
	return EdgeFilter{Normal: true, Build: true, Dev: true}
}

// Includes reports whether edges of the given kind survive the filter
func (f EdgeFilter) Includes(k EdgeKind) bool {
	switch k {
	case KindBuild:
		return f.Build
	case KindDev:
		return f.Dev
	default:
		return f.Normal
	}
}

// ResolutionError reports a metadata document that cannot be turned into a
// dependency graph
type ResolutionError struct {
	PackageID string
	Reason    string
}

func (e *ResolutionError) Error() string {
	if e.PackageID == "" {
		return fmt.Sprintf("graph resolution failed: %s", e.Reason)
	}
	return fmt.Sprintf("graph resolution failed for %q: %s", e.PackageID, e.Reason)
}

type edge struct {
	to   int
	kind EdgeKind
}

// Graph is a directed dependency graph over integer node indices. Edges point
// from a package to the packages it depends on.
type Graph struct {
	packages []*metadata.Package
	index    map[string]int
	out      [][]edge
	root     int
	inverse  *Graph
}

// Build constructs the dependency graph reachable from the resolve root
// through edges whose kind passes the filter. Excluded-kind edges are pruned,
// not hidden: packages reachable only through them are absent from the result.
func Build(doc *metadata.Document, filter EdgeFilter) (*Graph, error) {
	rootID := doc.Resolve.Root
	if rootID == "" {
		return nil, &ResolutionError{Reason: "resolve section has no root package"}
	}
	return BuildFrom(doc, filter, rootID)
}

// BuildFrom is Build with an explicit root package id
func BuildFrom(doc *metadata.Document, filter EdgeFilter, rootID string) (*Graph, error) {
	packages := doc.PackageIndex()
	if _, ok := packages[rootID]; !ok {
		return nil, &ResolutionError{PackageID: rootID, Reason: "root package not present in metadata"}
	}

	nodeDeps := make(map[string][]metadata.NodeDep, len(doc.Resolve.Nodes))
	for _, node := range doc.Resolve.Nodes {
		nodeDeps[node.ID] = node.Deps
	}

	g := &Graph{index: make(map[string]int)}

	// Breadth-first from the root so only filter-reachable packages get nodes.
	queue := []string{rootID}
	g.addNode(packages[rootID])
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		from := g.index[id]

		for _, dep := range nodeDeps[id] {
			kinds := dep.DepKinds
			if len(kinds) == 0 {
				kinds = []metadata.DepKind{{}}
			}
			for _, dk := range kinds {
				kind := KindFromMetadata(dk.Kind)
				if !filter.Includes(kind) {
					continue
				}
				pkg, ok := packages[dep.Pkg]
				if !ok {
					return nil, &ResolutionError{PackageID: dep.Pkg, Reason: "dependency edge references unknown package"}
				}
				to, known := g.index[dep.Pkg]
				if !known {
					to = g.addNode(pkg)
					queue = append(queue, dep.Pkg)
				}
				g.out[from] = append(g.out[from], edge{to: to, kind: kind})
			}
		}
	}

	g.root = g.index[rootID]
	g.normalize()
	return g, nil
}

func (g *Graph) addNode(pkg *metadata.Package) int {
	idx := len(g.packages)
	g.packages = append(g.packages, pkg)
	g.out = append(g.out, nil)
	g.index[pkg.ID] = idx
	return idx
}

// normalize sorts and deduplicates every adjacency list so traversal order and
// double inversion are deterministic
func (g *Graph) normalize() {
	for i, edges := range g.out {
		sort.Slice(edges, func(a, b int) bool {
			if edges[a].to != edges[b].to {
				return edges[a].to < edges[b].to
			}
			return edges[a].kind < edges[b].kind
		})
		deduped := edges[:0]
		for j, e := range edges {
			if j > 0 && e == edges[j-1] {
				continue
			}
			deduped = append(deduped, e)
		}
		g.out[i] = deduped
	}
}

// Len returns the number of packages in the graph
func (g *Graph) Len() int {
	return len(g.packages)
}

// Root returns the root package
func (g *Graph) Root() *metadata.Package {
	return g.packages[g.root]
}

// Package returns the package at a node index
func (g *Graph) Package(idx int) *metadata.Package {
	return g.packages[idx]
}

// Lookup returns the node index for a package id
func (g *Graph) Lookup(id string) (int, bool) {
	idx, ok := g.index[id]
	return idx, ok
}

// Contains reports whether the package id survived graph construction
func (g *Graph) Contains(id string) bool {
	_, ok := g.index[id]
	return ok
}

// PackageIDs returns every package id in the graph, sorted
func (g *Graph) PackageIDs() []string {
	ids := make([]string, 0, len(g.packages))
	for _, pkg := range g.packages {
		ids = append(ids, pkg.ID)
	}
	sort.Strings(ids)
	return ids
}

// Dependencies visits the dependency edges leaving a node
func (g *Graph) Dependencies(idx int, visit func(to int, kind EdgeKind)) {
	for _, e := range g.out[idx] {
		visit(e.to, e.kind)
	}
}

// Edges returns every edge as (fromID, toID, kind) triples, sorted, for
// inspection and comparison
func (g *Graph) Edges() [][3]string {
	var edges [][3]string
	for from, adjacent := range g.out {
		for _, e := range adjacent {
			edges = append(edges, [3]string{g.packages[from].ID, g.packages[e.to].ID, e.kind.String()})
		}
	}
	sort.Slice(edges, func(a, b int) bool {
		if edges[a][0] != edges[b][0] {
			return edges[a][0] < edges[b][0]
		}
		if edges[a][1] != edges[b][1] {
			return edges[a][1] < edges[b][1]
		}
		return edges[a][2] < edges[b][2]
	})
	return edges
}

// Inverted returns the transposed view of the graph: same nodes and root, every
// edge reversed. The receiver is never mutated, and inverting twice yields the
// original edge set.
func (g *Graph) Inverted() *Graph {
	if g.inverse != nil {
		return g.inverse
	}

	inv := &Graph{
		packages: g.packages,
		index:    g.index,
		out:      make([][]edge, len(g.out)),
		root:     g.root,
	}
	for from, adjacent := range g.out {
		for _, e := range adjacent {
			inv.out[e.to] = append(inv.out[e.to], edge{to: from, kind: e.kind})
		}
	}
	inv.normalize()

	inv.inverse = g
	g.inverse = inv
	return inv
}
