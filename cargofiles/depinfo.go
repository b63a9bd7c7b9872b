package cargofiles

import (
	"os"
	"path/filepath"
	"strings"
)

// parseDepInfo extracts the dependency paths from a makefile-style dep-info
// (.d) file as written by rustc. Lines have the form `target: dep dep ...`,
// spaces inside paths are escaped with a backslash, and long lines continue
// with a trailing backslash.
func parseDepInfo(content []byte) []string {
	var deps []string

	text := strings.ReplaceAll(string(content), "\\\n", " ")
	for _, line := range strings.Split(text, "\n") {
		colon := findUnescapedColon(line)
		if colon < 0 {
			continue
		}
		deps = append(deps, splitEscaped(line[colon+1:])...)
	}

	return deps
}

// findUnescapedColon locates the target separator, skipping Windows drive
// letters like `C:\`
func findUnescapedColon(line string) int {
	for i := 0; i < len(line); i++ {
		if line[i] != ':' {
			continue
		}
		if i+1 < len(line) && (line[i+1] == '\\' || line[i+1] == '/') && i >= 1 && i <= 2 {
			continue
		}
		return i
	}
	return -1
}

// splitEscaped splits a dep-info field list on spaces, honoring `\ ` escapes
func splitEscaped(s string) []string {
	var fields []string
	var current strings.Builder

	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\\' && i+1 < len(s) && s[i+1] == ' ' {
			current.WriteByte(' ')
			i++
			continue
		}
		if c == ' ' || c == '\t' {
			if current.Len() > 0 {
				fields = append(fields, current.String())
				current.Reset()
			}
			continue
		}
		current.WriteByte(c)
	}
	if current.Len() > 0 {
		fields = append(fields, current.String())
	}

	return fields
}

// collectDepInfoFiles walks a cargo target directory and gathers every .d file
// the compilation wrote
func collectDepInfoFiles(targetDir string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(targetDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, ".d") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return files, nil
}
