package report

import (
	"encoding/json"
	"fmt"

	"github.com/sofiebrandt/crate-audit/scan"
)

// PackageInfo identifies one package version in a report
type PackageInfo struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Version string `json:"version"`
	Source  string `json:"source,omitempty"`
}

// UnsafeInfo is the per-package safety summary of a full scan. Counts are
// split by whether the file is part of the active compilation.
type UnsafeInfo struct {
	Used          scan.CounterBlock `json:"used"`
	Unused        scan.CounterBlock `json:"unused"`
	ForbidsUnsafe bool              `json:"forbids_unsafe"`
	UnsafeRatio   float64           `json:"unsafe_ratio"`
}

// Entry is one package's row in the full safety report
type Entry struct {
	Package  PackageInfo `json:"package"`
	Unsafety UnsafeInfo  `json:"unsafety"`
}

// SafetyReport is the full-mode report: per-package counters plus the
// diagnostic sets an integrator needs to judge coverage
type SafetyReport struct {
	Packages               map[string]Entry `json:"packages"`
	PackagesWithoutMetrics []string         `json:"packages_without_metrics"`
	UsedButNotScannedFiles []string         `json:"used_but_not_scanned_files"`
}

// QuickEntry is one package's row in the quick report
type QuickEntry struct {
	Package       PackageInfo `json:"package"`
	ForbidsUnsafe bool        `json:"forbids_unsafe"`
}

// QuickSafetyReport is the entry-points-only report: a single verdict per
// package
type QuickSafetyReport struct {
	Packages               map[string]QuickEntry `json:"packages"`
	PackagesWithoutMetrics []string              `json:"packages_without_metrics"`
}

// SerializationError reports a report that could not be encoded
type SerializationError struct {
	Err error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("report serialization failed: %v", e.Err)
}

func (e *SerializationError) Unwrap() error {
	return e.Err
}

// ToJSON serializes the report with stable field order; map keys are emitted
// sorted, so unchanged inputs produce byte-identical output
func (r *SafetyReport) ToJSON() ([]byte, error) {
	return marshal(r)
}

// ToJSON serializes the quick report with stable field order
func (r *QuickSafetyReport) ToJSON() ([]byte, error) {
	return marshal(r)
}

func marshal(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, &SerializationError{Err: err}
	}
	return data, nil
}
