package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/sofiebrandt/crate-audit/cargofiles"
	"github.com/sofiebrandt/crate-audit/graph"
	"github.com/sofiebrandt/crate-audit/metadata"
	"github.com/sofiebrandt/crate-audit/metrics"
	"github.com/sofiebrandt/crate-audit/report"
	"github.com/sofiebrandt/crate-audit/scan"
)

func main() {
	var (
		metadataPath = flag.String("metadata", "", "Path to resolved metadata JSON (cargo metadata --format-version 1); reads stdin when empty")
		forbidOnly   = flag.Bool("forbid-only", false, "Only check entry files for #![forbid(unsafe_code)]; much faster, blind to child modules")
		buildDeps    = flag.Bool("build-dependencies", false, "Include build dependencies")
		devDeps      = flag.Bool("dev-dependencies", false, "Include dev dependencies")
		allDeps      = flag.Bool("all-dependencies", false, "Include build and dev dependencies")
		includeTests = flag.Bool("include-tests", false, "Count unsafe usage in tests")
		target       = flag.String("target", "", "Target triple for compiled file resolution")
		allFeatures  = flag.Bool("all-features", false, "Activate all available features")
		noDefault    = flag.Bool("no-default-features", false, "Do not activate the default feature")
		workers      = flag.Int("workers", 0, "Parse worker pool size (default: number of CPUs)")
	)
	flag.Parse()

	filter := graph.DefaultEdgeFilter()
	filter.Build = *buildDeps || *allDeps
	filter.Dev = *devDeps || *allDeps

	doc, err := loadMetadata(*metadataPath)
	if err != nil {
		log.Fatalf("Loading metadata failed: %v", err)
	}

	g, err := graph.Build(doc, filter)
	if err != nil {
		log.Fatalf("Graph resolution failed: %v", err)
	}

	ctx := context.Background()
	mode := scan.ModeFull
	if *forbidOnly {
		mode = scan.ModeEntryPointsOnly
	}

	var compiled cargofiles.Set
	if mode == scan.ModeFull {
		resolver := &cargofiles.CargoResolver{}
		compiled, err = resolver.Resolve(ctx, cargofiles.Selection{
			ManifestPath:      g.Root().ManifestPath,
			Target:            *target,
			AllFeatures:       *allFeatures,
			NoDefaultFeatures: *noDefault,
		})
		if err != nil {
			log.Fatalf("Compiled file set resolution failed: %v", err)
		}
	}

	scanner := scan.New(scan.Options{
		Mode:         mode,
		IncludeTests: *includeTests,
		Workers:      *workers,
	})
	sc, err := scanner.Scan(ctx, g)
	if err != nil {
		log.Fatalf("Scan failed: %v", err)
	}

	result := metrics.Aggregate(g, sc)

	var out []byte
	if mode == scan.ModeEntryPointsOnly {
		out, err = report.BuildQuickReport(g, result).ToJSON()
	} else {
		out, err = report.BuildSafetyReport(g, result, compiled, sc).ToJSON()
	}
	if err != nil {
		log.Fatalf("Report serialization failed: %v", err)
	}

	fmt.Println(string(out))
}

func loadMetadata(path string) (*metadata.Document, error) {
	if path == "" {
		return metadata.Decode(os.Stdin)
	}
	return metadata.DecodeFile(path)
}
