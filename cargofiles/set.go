package cargofiles

import (
	"path/filepath"
	"sort"
)

// Set is a set of canonical source file paths confirmed to be part of a real
// compilation for the active target/feature selection
type Set map[string]struct{}

// NewSet builds a Set from raw paths, canonicalizing each one
func NewSet(paths ...string) Set {
	s := make(Set, len(paths))
	for _, p := range paths {
		s.Add(p)
	}
	return s
}

// Add inserts a path after canonicalization
func (s Set) Add(path string) {
	s[Canonical(path)] = struct{}{}
}

// Contains reports whether the canonical form of path is in the set
func (s Set) Contains(path string) bool {
	_, ok := s[Canonical(path)]
	return ok
}

// Sorted returns the set contents as a sorted slice
func (s Set) Sorted() []string {
	paths := make([]string, 0, len(s))
	for p := range s {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Diff returns the members of s absent from other, sorted
func (s Set) Diff(other map[string]struct{}) []string {
	var missing []string
	for p := range s {
		if _, ok := other[p]; !ok {
			missing = append(missing, p)
		}
	}
	sort.Strings(missing)
	return missing
}

// Canonical normalizes a path for set membership: absolute, cleaned, symlinks
// resolved when the file exists
func Canonical(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	return abs
}
