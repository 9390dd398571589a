//go:build ignore

// generate_testdata.go creates standard row datasets for benchmarking sf.
// Usage: go run scripts/generate_testdata.go
//
// Creates, for each size, a JSONL file and a SQLite table of
// (groupId, groupLabel, id, label, value) rows:
//
//	testdata/benchmark/small.jsonl   small.db   (~100 leaves)
//	testdata/benchmark/medium.jsonl  medium.db  (~2,000 leaves)
//	testdata/benchmark/large.jsonl   large.db   (~50,000 leaves)
//
// Run them through sf with a two-level input config and --stats, e.g.
//
//	sf --config bench.yaml --page-size 500 --prefetch 8 --stats testdata/benchmark/large.db
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vanderheijden86/scalefilter/internal/datasource"
	"github.com/vanderheijden86/scalefilter/pkg/testutil"
)

type datasetSpec struct {
	name     string
	depth    int
	maxWidth int
}

var datasets = []datasetSpec{
	{"small", 2, 8},
	{"medium", 3, 20},
	{"large", 3, 60},
}

var columns = []string{"group_id", "group_label", "id", "label", "value"}

func main() {
	outputDir := "testdata/benchmark"
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create output directory: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	for i, ds := range datasets {
		fmt.Printf("Generating %s dataset...\n", ds.name)

		gen := testutil.New(testutil.GeneratorConfig{
			Seed:     int64(i + 1), // Reproducible per-size
			IDPrefix: "B",
			Depth:    ds.depth,
			MaxWidth: ds.maxWidth,
		})
		rows := testutil.Rows(gen.Forest())
		jsonl := testutil.ToJSONL(rows)

		jsonlPath := filepath.Join(outputDir, ds.name+".jsonl")
		if err := os.WriteFile(jsonlPath, []byte(jsonl), 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", jsonlPath, err)
			os.Exit(1)
		}

		dbPath := filepath.Join(outputDir, ds.name+".db")
		if err := datasource.Import(ctx, dbPath, "rows", columns, rows); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", dbPath, err)
			os.Exit(1)
		}

		fmt.Printf("  Written %s (%d bytes) and %s (%d rows)\n", jsonlPath, len(jsonl), dbPath, len(rows))
	}

	fmt.Println("\nDone! Test datasets created in", outputDir)
}
