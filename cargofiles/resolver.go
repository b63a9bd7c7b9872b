package cargofiles

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Selection describes the target/feature selection a compilation is resolved
// for. These fields mirror the cargo flags of the same names.
type Selection struct {
	ManifestPath      string
	Features          []string
	AllFeatures       bool
	NoDefaultFeatures bool
	Target            string
	AllTargets        bool
}

// Resolver answers which source files are part of a real compilation for a
// given selection
type Resolver interface {
	Resolve(ctx context.Context, sel Selection) (Set, error)
}

// BuildResolutionError reports that the build orchestrator could not produce a
// trustworthy compiled file set. This is fatal for full-mode scanning.
type BuildResolutionError struct {
	Command string
	Stderr  string
	Err     error
}

func (e *BuildResolutionError) Error() string {
	msg := fmt.Sprintf("build resolution failed (%s)", e.Command)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *BuildResolutionError) Unwrap() error {
	return e.Err
}

// CargoResolver resolves the compiled file set by running `cargo check` in a
// dedicated target directory and harvesting the dep-info files the type-check
// writes. Checking performs no code generation but opens exactly the source
// units a real build would, including cfg-gated and generated modules.
type CargoResolver struct {
	// Cargo is the cargo executable name or path; "cargo" when empty
	Cargo string
	// TargetDir overrides where check artifacts are written. When empty a
	// tool-owned directory under the workspace target dir is used so dep-info
	// from earlier selections never leaks into the result.
	TargetDir string
}

// Resolve runs the type-check and returns the canonical set of .rs files the
// compilation opened
func (r *CargoResolver) Resolve(ctx context.Context, sel Selection) (Set, error) {
	cargo := r.Cargo
	if cargo == "" {
		cargo = "cargo"
	}

	targetDir := r.TargetDir
	if targetDir == "" {
		targetDir = filepath.Join(filepath.Dir(sel.ManifestPath), "target", "crate-audit")
	}
	if err := os.RemoveAll(targetDir); err != nil {
		return nil, &BuildResolutionError{Command: "rm " + targetDir, Err: err}
	}

	args := []string{"check", "--quiet"}
	if sel.ManifestPath != "" {
		args = append(args, "--manifest-path", sel.ManifestPath)
	}
	if len(sel.Features) > 0 {
		args = append(args, "--features", strings.Join(sel.Features, " "))
	}
	if sel.AllFeatures {
		args = append(args, "--all-features")
	}
	if sel.NoDefaultFeatures {
		args = append(args, "--no-default-features")
	}
	if sel.Target != "" {
		args = append(args, "--target", sel.Target)
	}
	if sel.AllTargets {
		args = append(args, "--all-targets")
	}

	cmd := exec.CommandContext(ctx, cargo, args...)
	cmd.Env = append(os.Environ(), "CARGO_TARGET_DIR="+targetDir)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, &BuildResolutionError{
			Command: cargo + " " + strings.Join(args, " "),
			Stderr:  strings.TrimSpace(stderr.String()),
			Err:     err,
		}
	}

	depFiles, err := collectDepInfoFiles(targetDir)
	if err != nil {
		return nil, &BuildResolutionError{Command: "walk " + targetDir, Err: err}
	}
	if len(depFiles) == 0 {
		return nil, &BuildResolutionError{
			Command: cargo + " " + strings.Join(args, " "),
			Err:     fmt.Errorf("check produced no dep-info files under %s", targetDir),
		}
	}

	files := make(Set)
	for _, depFile := range depFiles {
		content, err := os.ReadFile(depFile)
		if err != nil {
			continue
		}
		for _, dep := range parseDepInfo(content) {
			if strings.HasSuffix(dep, ".rs") {
				files.Add(dep)
			}
		}
	}

	return files, nil
}
