package scan

import "sync"

// Context is the result of one scan invocation: per-package file metrics in
// discovery order, the global set of visited paths, and recovered warnings.
// It is mutated only while a scan is running and frozen afterwards.
type Context struct {
	mu sync.Mutex

	// PackageFiles maps package id to the metrics of the files discovered
	// while walking that package's module tree
	PackageFiles map[string][]FileMetrics

	// Warnings lists recovered problems: parse failures, unresolvable module
	// declarations, and macro invocations whose contents could not be analyzed
	Warnings []string

	visited map[string]struct{}
}

func newContext() *Context {
	return &Context{
		PackageFiles: make(map[string][]FileMetrics),
		visited:      make(map[string]struct{}),
	}
}

// markVisited records a canonical path as scheduled, reporting whether it was
// new. Discovery is concurrent, so the visited set is the synchronization
// point that keeps every file scanned at most once.
func (c *Context) markVisited(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.visited[path]; ok {
		return false
	}
	c.visited[path] = struct{}{}
	return true
}

func (c *Context) addFile(packageID string, fm FileMetrics) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.PackageFiles[packageID] = append(c.PackageFiles[packageID], fm)
}

func (c *Context) addWarning(w string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Warnings = append(c.Warnings, w)
}

// VisitedPaths returns the canonical paths of every file the scanner visited
func (c *Context) VisitedPaths() map[string]struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	paths := make(map[string]struct{}, len(c.visited))
	for p := range c.visited {
		paths[p] = struct{}{}
	}
	return paths
}

// AllFiles returns every scanned file's metrics across all packages
func (c *Context) AllFiles() []FileMetrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	var files []FileMetrics
	for _, pkgFiles := range c.PackageFiles {
		files = append(files, pkgFiles...)
	}
	return files
}
