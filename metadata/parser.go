package metadata

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Decode reads a resolved metadata document from r and validates that it
// carries the resolve section this tool depends on
func Decode(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("error reading metadata: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("error decoding metadata JSON: %w", err)
	}

	if len(doc.Packages) == 0 {
		return nil, fmt.Errorf("metadata document contains no packages")
	}
	if doc.Resolve == nil {
		return nil, fmt.Errorf("metadata document has no resolve section")
	}

	return &doc, nil
}

// DecodeFile reads a resolved metadata document from a file on disk
func DecodeFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening metadata file %s: %w", path, err)
	}
	defer f.Close()

	return Decode(f)
}

// PackageIndex builds a lookup from package id to package
func (d *Document) PackageIndex() map[string]*Package {
	index := make(map[string]*Package, len(d.Packages))
	for i := range d.Packages {
		index[d.Packages[i].ID] = &d.Packages[i]
	}
	return index
}
