// Package testutil provides shared test infrastructure for the simulator.
// It holds the golden rank scenarios and assertion helpers used across
// sim/ and sim/sweep/ test packages.
package testutil

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// GoldenDataset represents the structure of testdata/goldendataset.json.
type GoldenDataset struct {
	Tests []GoldenTestCase `json:"tests"`
}

// GoldenTestCase is a fixed rank sequence with hand-verified outcomes.
// Stage2Queues == 0 means a single-stage run.
type GoldenTestCase struct {
	Name         string        `json:"name"`
	Ranks        []int         `json:"ranks"`
	Stage1Queues int           `json:"stage1-queues"`
	Stage2Queues int           `json:"stage2-queues"`
	MaxRank      int           `json:"max-rank"`
	Metrics      GoldenMetrics `json:"metrics"`
}

// GoldenMetrics holds the expected per-stage results.
type GoldenMetrics struct {
	Stage1 GoldenStage  `json:"stage1"`
	Stage2 *GoldenStage `json:"stage2,omitempty"`
}

// GoldenStage is the expected end state of one stage.
type GoldenStage struct {
	// Exact match
	Packets     int64         `json:"packets"`
	Inversions  int64         `json:"inversions"`
	PerRank     map[int]int64 `json:"per_rank"`
	Bounds      []int         `json:"bounds"`
	QueueCounts []int64       `json:"queue_counts"`

	// Normalized by the run's packet count, not the stage's
	NormalizedMeanInversions float64 `json:"normalized_mean_inversions"`
}

// LoadGoldenDataset loads the golden dataset from the testdata directory.
// The path is resolved relative to this source file: sim/internal/testutil/ → testdata/.
func LoadGoldenDataset(t *testing.T) *GoldenDataset {
	t.Helper()

	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get current file path")
	}
	path := filepath.Join(filepath.Dir(thisFile), "..", "..", "..", "testdata", "goldendataset.json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read golden dataset: %v", err)
	}

	var dataset GoldenDataset
	if err := json.Unmarshal(data, &dataset); err != nil {
		t.Fatalf("Failed to parse golden dataset: %v", err)
	}
	if len(dataset.Tests) == 0 {
		t.Fatal("Golden dataset has no test cases")
	}
	return &dataset
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}
