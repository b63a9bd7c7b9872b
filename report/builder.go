// Package report renders aggregated package metrics into the two serializable
// report shapes. The shapes are distinct records assembled by separate builder
// functions over the same aggregated input.
package report

import (
	"github.com/sofiebrandt/crate-audit/cargofiles"
	"github.com/sofiebrandt/crate-audit/graph"
	"github.com/sofiebrandt/crate-audit/metadata"
	"github.com/sofiebrandt/crate-audit/metrics"
	"github.com/sofiebrandt/crate-audit/scan"
)

// BuildSafetyReport assembles the full-mode report. compiled is the file set a
// real compilation opened; files in it that the scanner never visited are
// surfaced in used_but_not_scanned_files since each is an unaudited blind
// spot.
func BuildSafetyReport(g *graph.Graph, res *metrics.Result, compiled cargofiles.Set, sc *scan.Context) *SafetyReport {
	r := &SafetyReport{
		Packages:               make(map[string]Entry),
		PackagesWithoutMetrics: append([]string{}, res.PackagesWithoutMetrics...),
		UsedButNotScannedFiles: []string{},
	}

	for id, pm := range res.Packages {
		idx, ok := g.Lookup(id)
		if !ok {
			continue
		}
		r.Packages[id] = Entry{
			Package:  packageInfo(g.Package(idx)),
			Unsafety: unsafeInfo(pm, compiled),
		}
	}

	if compiled != nil {
		r.UsedButNotScannedFiles = compiled.Diff(sc.VisitedPaths())
	}

	return r
}

// BuildQuickReport assembles the entry-points-only report. A package's verdict
// is true only when every owned file forbids unsafe code; absence of evidence
// is treated as permissive, so unscanned and partially covered packages get
// false.
func BuildQuickReport(g *graph.Graph, res *metrics.Result) *QuickSafetyReport {
	r := &QuickSafetyReport{
		Packages:               make(map[string]QuickEntry),
		PackagesWithoutMetrics: append([]string{}, res.PackagesWithoutMetrics...),
	}

	for _, id := range g.PackageIDs() {
		idx, _ := g.Lookup(id)
		entry := QuickEntry{Package: packageInfo(g.Package(idx))}
		if pm, ok := res.Packages[id]; ok && !res.WithoutMetrics(id) {
			entry.ForbidsUnsafe = pm.ForbidsUnsafe()
		}
		r.Packages[id] = entry
	}

	return r
}

func packageInfo(pkg *metadata.Package) PackageInfo {
	return PackageInfo{
		ID:      pkg.ID,
		Name:    pkg.Name,
		Version: pkg.Version,
		Source:  pkg.Source,
	}
}

// unsafeInfo splits a package's counters by compilation membership and derives
// the unsafe ratio over everything that was counted
func unsafeInfo(pm *metrics.PackageMetrics, compiled cargofiles.Set) UnsafeInfo {
	info := UnsafeInfo{ForbidsUnsafe: pm.ForbidsUnsafe()}

	for _, f := range pm.Files {
		if compiled == nil || compiled.Contains(f.Path) {
			info.Used.Add(f.Counters)
		} else {
			info.Unused.Add(f.Counters)
		}
	}

	usedSafe, usedUnsafe := info.Used.Totals()
	unusedSafe, unusedUnsafe := info.Unused.Totals()
	total := usedSafe + usedUnsafe + unusedSafe + unusedUnsafe
	if total > 0 {
		info.UnsafeRatio = float64(usedUnsafe+unusedUnsafe) / float64(total)
	}

	return info
}
