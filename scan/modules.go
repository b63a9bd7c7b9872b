package scan

import (
	"os"
	"path/filepath"
	"strings"
)

// moduleSearchDir returns the directory where a file's out-of-line child
// modules live. Crate roots and mod.rs files own their directory; any other
// file foo.rs owns the foo/ subdirectory.
func moduleSearchDir(parentPath string, parentIsRoot bool) string {
	dir := filepath.Dir(parentPath)
	base := filepath.Base(parentPath)
	if parentIsRoot || base == "mod.rs" {
		return dir
	}
	return filepath.Join(dir, strings.TrimSuffix(base, ".rs"))
}

// resolveModuleFile maps a `mod name;` declaration to the child file a real
// build would load, or "" when no candidate exists on disk (a cfg-gated module
// for another selection, typically)
func resolveModuleFile(parentPath string, decl modDecl, parentIsRoot bool) string {
	if decl.pathAttr != "" {
		candidate := filepath.Join(filepath.Dir(parentPath), decl.pathAttr)
		if fileExists(candidate) {
			return candidate
		}
		return ""
	}

	searchDir := moduleSearchDir(parentPath, parentIsRoot)
	candidates := []string{
		filepath.Join(searchDir, decl.name+".rs"),
		filepath.Join(searchDir, decl.name, "mod.rs"),
	}
	for _, candidate := range candidates {
		if fileExists(candidate) {
			return candidate
		}
	}
	return ""
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
