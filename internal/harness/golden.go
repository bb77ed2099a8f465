package harness

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// RunWithGolden executes a scenario and compares its transcript against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if the scenario cannot run. Failed expectations are in the
// result; a transcript mismatch fails t through goldie.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	runner := NewRunner(WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	result, err := runner.Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}
	AssertGolden(t, scenario.Name, result)
	return result, nil
}

// AssertGolden compares an existing result's transcript against a golden
// file without re-running the scenario.
func AssertGolden(t *testing.T, name string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, []byte(result.TranscriptText()))
}
