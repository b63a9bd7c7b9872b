package scan

import "fmt"

// Count is a safe/unsafe occurrence tally for one safety category
type Count struct {
	Safe   uint64 `json:"safe"`
	Unsafe uint64 `json:"unsafe"`
}

// Add accumulates another count into the receiver
func (c *Count) Add(other Count) {
	c.Safe += other.Safe
	c.Unsafe += other.Unsafe
}

func (c *Count) increment(inUnsafe bool) {
	if inUnsafe {
		c.Unsafe++
	} else {
		c.Safe++
	}
}

// CounterBlock tallies safety-relevant constructs per category for one file or
// one package. Category names follow the Rust item taxonomy: free functions,
// expressions, trait implementations, trait declarations, and methods declared
// in impl blocks.
type CounterBlock struct {
	Functions  Count `json:"functions"`
	Exprs      Count `json:"exprs"`
	ItemImpls  Count `json:"item_impls"`
	ItemTraits Count `json:"item_traits"`
	Methods    Count `json:"methods"`
}

// Add accumulates another counter block into the receiver. Addition is
// associative and commutative, so any fold order over a package's files yields
// the same totals.
func (cb *CounterBlock) Add(other CounterBlock) {
	cb.Functions.Add(other.Functions)
	cb.Exprs.Add(other.Exprs)
	cb.ItemImpls.Add(other.ItemImpls)
	cb.ItemTraits.Add(other.ItemTraits)
	cb.Methods.Add(other.Methods)
}

// HasUnsafe reports whether any category recorded an unsafe occurrence
func (cb *CounterBlock) HasUnsafe() bool {
	return cb.Functions.Unsafe > 0 ||
		cb.Exprs.Unsafe > 0 ||
		cb.ItemImpls.Unsafe > 0 ||
		cb.ItemTraits.Unsafe > 0 ||
		cb.Methods.Unsafe > 0
}

// Totals returns the summed safe and unsafe counts across all categories
func (cb *CounterBlock) Totals() (safe, unsafe uint64) {
	safe = cb.Functions.Safe + cb.Exprs.Safe + cb.ItemImpls.Safe +
		cb.ItemTraits.Safe + cb.Methods.Safe
	unsafe = cb.Functions.Unsafe + cb.Exprs.Unsafe + cb.ItemImpls.Unsafe +
		cb.ItemTraits.Unsafe + cb.Methods.Unsafe
	return safe, unsafe
}

// FileMetrics holds the scan result for a single source file
type FileMetrics struct {
	Path          string       `json:"path"`
	Counters      CounterBlock `json:"counters"`
	ForbidsUnsafe bool         `json:"forbids_unsafe"`
}

// ParseError reports a source file that could not be parsed. It is recovered
// locally: the file is excluded from counters and sibling files keep scanning.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error for %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
