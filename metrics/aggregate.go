// Package metrics folds per-file scan results onto the packages of a
// dependency graph. A package with no scanned files is reported as "without
// metrics" rather than zero: the true cause may be "not part of the active
// build" or "no local source available", which must never be conflated with a
// genuinely unsafe-free package.
package metrics

import (
	"sort"
	"strings"

	"github.com/sofiebrandt/crate-audit/cargofiles"
	"github.com/sofiebrandt/crate-audit/graph"
	"github.com/sofiebrandt/crate-audit/scan"
)

// PackageMetrics is the aggregated scan result for one package
type PackageMetrics struct {
	PackageID string
	Counters  scan.CounterBlock
	// Files is the per-file breakdown, sorted by path
	Files []scan.FileMetrics
}

// ForbidsUnsafe reports whether every owned file declares the forbid directive
func (pm *PackageMetrics) ForbidsUnsafe() bool {
	if len(pm.Files) == 0 {
		return false
	}
	for _, f := range pm.Files {
		if !f.ForbidsUnsafe {
			return false
		}
	}
	return true
}

// Result maps package ids to aggregated metrics and lists the packages the
// scan produced no data for
type Result struct {
	Packages               map[string]*PackageMetrics
	PackagesWithoutMetrics []string
}

// WithoutMetrics reports whether a package id is in the without-metrics set
func (r *Result) WithoutMetrics(id string) bool {
	for _, missing := range r.PackagesWithoutMetrics {
		if missing == id {
			return true
		}
	}
	return false
}

type sourceOwner struct {
	root      string
	packageID string
}

// Aggregate attributes every scanned file to the graph package whose source
// root is its longest matching path prefix and sums the owned counter blocks.
// Summation is associative and commutative, so file order never changes totals.
func Aggregate(g *graph.Graph, sc *scan.Context) *Result {
	owners := make([]sourceOwner, 0, g.Len())
	for idx := 0; idx < g.Len(); idx++ {
		pkg := g.Package(idx)
		root := pkg.SourceRoot()
		if root == "" {
			continue
		}
		owners = append(owners, sourceOwner{root: cargofiles.Canonical(root), packageID: pkg.ID})
	}
	sort.Slice(owners, func(a, b int) bool {
		if len(owners[a].root) != len(owners[b].root) {
			return len(owners[a].root) > len(owners[b].root)
		}
		return owners[a].root < owners[b].root
	})

	owned := make(map[string][]scan.FileMetrics)
	for _, fm := range sc.AllFiles() {
		for _, owner := range owners {
			if pathHasRoot(fm.Path, owner.root) {
				owned[owner.packageID] = append(owned[owner.packageID], fm)
				break
			}
		}
	}

	result := &Result{Packages: make(map[string]*PackageMetrics)}
	for _, id := range g.PackageIDs() {
		files := owned[id]
		if len(files) == 0 {
			result.PackagesWithoutMetrics = append(result.PackagesWithoutMetrics, id)
			continue
		}
		sort.Slice(files, func(a, b int) bool { return files[a].Path < files[b].Path })

		pm := &PackageMetrics{PackageID: id, Files: files}
		for _, f := range files {
			pm.Counters.Add(f.Counters)
		}
		result.Packages[id] = pm
	}
	sort.Strings(result.PackagesWithoutMetrics)

	return result
}

// pathHasRoot reports whether path sits under root, on a path separator
// boundary
func pathHasRoot(path, root string) bool {
	if !strings.HasPrefix(path, root) {
		return false
	}
	if len(path) == len(root) {
		return true
	}
	return path[len(root)] == '/' || path[len(root)] == '\\'
}
