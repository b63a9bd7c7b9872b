package scan

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/sofiebrandt/crate-audit/cargofiles"
	"github.com/sofiebrandt/crate-audit/graph"
	"github.com/sofiebrandt/crate-audit/parser"
)

// Mode selects the scan fidelity
type Mode int

const (
	// ModeFull walks every package's module tree from its entry files and
	// counts safety-relevant constructs per file
	ModeFull Mode = iota
	// ModeEntryPointsOnly parses only declared entry files and checks for the
	// #![forbid(unsafe_code)] directive; O(1) per package, blind to child
	// modules
	ModeEntryPointsOnly
)

// Options configures a scan invocation
type Options struct {
	Mode         Mode
	IncludeTests bool
	// Workers bounds the parse worker pool; runtime.NumCPU() when zero
	Workers int
	Logger  *slog.Logger
}

// Scanner runs package-scoped source scans over a dependency graph
type Scanner struct {
	opts Options
	log  *slog.Logger
}

// New creates a scanner with the given options
func New(opts Options) *Scanner {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Scanner{opts: opts, log: log}
}

// Scan visits the source files of every package in the graph and returns the
// per-package file metrics. Individual parse failures never abort sibling
// work; they are recorded as warnings and the file is excluded from counters.
func (s *Scanner) Scan(ctx context.Context, g *graph.Graph) (*Context, error) {
	sc := newContext()

	if s.opts.Mode == ModeEntryPointsOnly {
		s.scanEntryPoints(g, sc)
		return sc, ctx.Err()
	}

	// File discovery is dynamic: a child path is unknown until its parent is
	// parsed. Spawning is unbounded while the semaphore bounds the parse work
	// itself, so workers can schedule children without risking pool deadlock.
	w := &walker{
		scanner: s,
		ctx:     ctx,
		sem:     semaphore.NewWeighted(int64(s.opts.Workers)),
		out:     sc,
	}

	for idx := 0; idx < g.Len(); idx++ {
		pkg := g.Package(idx)
		if pkg.SourceRoot() == "" {
			continue
		}
		for _, entry := range pkg.EntryPoints() {
			w.schedule(pkg.ID, entry, true)
		}
	}
	w.wg.Wait()

	return sc, ctx.Err()
}

// scanEntryPoints parses only each package's declared entry files and records
// the top-level forbid directive, leaving all counters at zero
func (s *Scanner) scanEntryPoints(g *graph.Graph, sc *Context) {
	for idx := 0; idx < g.Len(); idx++ {
		pkg := g.Package(idx)
		if pkg.SourceRoot() == "" {
			continue
		}
		for _, entry := range pkg.EntryPoints() {
			canonical := cargofiles.Canonical(entry)
			if !sc.markVisited(canonical) {
				continue
			}
			fc, err := s.scanFile(canonical)
			if err != nil {
				s.recordParseFailure(sc, canonical, err)
				continue
			}
			sc.addFile(pkg.ID, FileMetrics{Path: canonical, ForbidsUnsafe: fc.forbids})
		}
	}
}

// scanFile parses and counts a single file
func (s *Scanner) scanFile(path string) (*fileCounter, error) {
	p, err := parser.CreateParser(path)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	defer p.Close()

	res, err := p.ParseFile(path)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	defer res.Tree.Close()

	return countFile(res, s.opts.IncludeTests), nil
}

func (s *Scanner) recordParseFailure(sc *Context, path string, err error) {
	s.log.Warn("file excluded from scan", "path", path, "error", err)
	sc.addWarning(err.Error())
}

// walker runs the full-mode file worklist: a shared visited set keyed by
// canonical path guarantees each file is scanned at most once no matter how
// many module paths reach it
type walker struct {
	scanner *Scanner
	ctx     context.Context
	sem     *semaphore.Weighted
	wg      sync.WaitGroup
	out     *Context
}

func (w *walker) schedule(packageID, path string, isRoot bool) {
	canonical := cargofiles.Canonical(path)
	if !w.out.markVisited(canonical) {
		return
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		if err := w.sem.Acquire(w.ctx, 1); err != nil {
			return
		}
		fc, err := w.scanner.scanFile(canonical)
		w.sem.Release(1)

		if err != nil {
			w.scanner.recordParseFailure(w.out, canonical, err)
			return
		}

		w.out.addFile(packageID, FileMetrics{
			Path:          canonical,
			Counters:      fc.counters,
			ForbidsUnsafe: fc.forbids,
		})
		for _, warning := range fc.warnings {
			w.scanner.log.Warn("scan warning", "detail", warning)
			w.out.addWarning(warning)
		}

		for _, decl := range fc.mods {
			child := resolveModuleFile(canonical, decl, isRoot)
			if child == "" {
				w.out.addWarning(fmt.Sprintf("%s: could not resolve module %q", canonical, decl.name))
				continue
			}
			w.schedule(packageID, child, false)
		}
	}()
}
