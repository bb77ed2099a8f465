package cli

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/condsql/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Filter string // scenario name glob
	Golden string // directory of <name>.golden transcripts
	Update bool   // regenerate golden files
	Jobs   int
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run conformance scenarios",
		Long: `Run YAML conformance scenarios: filters and changeset commands with
their expected SQL, errors and evaluation results.

With --golden each scenario's transcript is also compared against
<golden-dir>/<name>.golden; --update rewrites those files instead.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, scenario cannot run)

Examples:
  condsql test ./scenarios
  condsql test ./scenarios --filter "datetime_*"
  condsql test ./scenarios --golden ./golden --update`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return runTests(ctx, opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by name glob")
	cmd.Flags().StringVar(&opts.Golden, "golden", "", "directory of golden transcripts")
	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().IntVarP(&opts.Jobs, "jobs", "j", 0, "scenarios run in parallel (default GOMAXPROCS)")

	return cmd
}

func runTests(ctx context.Context, opts *TestOptions, dir string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return f.Fail(ExitCommandError, ErrCodeScenario, fmt.Errorf("scenarios directory not found: %s", dir))
	}
	if opts.Update && opts.Golden == "" {
		return f.Fail(ExitCommandError, ErrCodeArgument, fmt.Errorf("--update needs --golden"))
	}

	scenarios, err := harness.LoadScenarios(dir, opts.Filter)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeScenario, err)
	}

	runnerOpts := []harness.Option{harness.WithLogger(slog.Default())}
	if opts.Jobs > 0 {
		runnerOpts = append(runnerOpts, harness.WithConcurrency(opts.Jobs))
	}
	results, err := harness.NewRunner(runnerOpts...).RunAll(ctx, scenarios)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeScenario, err)
	}

	summary := TestResult{Scenarios: make([]ScenarioResult, 0, len(results)), Total: len(results)}
	for _, r := range results {
		sr := ScenarioResult{Name: r.Scenario, Pass: r.Pass, Errors: r.Errors}
		if opts.Golden != "" {
			if err := checkGolden(opts, r); err != nil {
				sr.Pass = false
				sr.Errors = append(sr.Errors, err.Error())
			}
		}
		if sr.Pass {
			summary.Passed++
		} else {
			summary.Failed++
		}
		summary.Scenarios = append(summary.Scenarios, sr)
	}

	if f.JSON() {
		return outputTestJSON(f, summary)
	}
	return outputTestText(f, summary)
}

// checkGolden compares a transcript with its golden file, or rewrites the
// file under --update.
func checkGolden(opts *TestOptions, r *harness.Result) error {
	path := filepath.Join(opts.Golden, r.Scenario+".golden")
	text := []byte(r.TranscriptText())
	if opts.Update {
		if err := os.MkdirAll(opts.Golden, 0o755); err != nil {
			return fmt.Errorf("failed to create golden directory: %w", err)
		}
		if err := os.WriteFile(path, text, 0o644); err != nil {
			return fmt.Errorf("failed to write golden file: %w", err)
		}
		return nil
	}
	want, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read golden file: %w", err)
	}
	if !bytes.Equal(want, text) {
		return fmt.Errorf("transcript does not match %s (run with --update to regenerate)", path)
	}
	return nil
}

func outputTestJSON(f *OutputFormatter, result TestResult) error {
	resp := CLIResponse{Status: "ok", Data: result}
	if result.Failed > 0 {
		resp.Status = "error"
		resp.Error = &CLIError{Code: "E_TEST_FAILED", Message: fmt.Sprintf("%d scenario(s) failed", result.Failed)}
	}
	if err := f.encode(resp); err != nil {
		return err
	}
	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	return nil
}

func outputTestText(f *OutputFormatter, result TestResult) error {
	w := f.Writer
	for _, s := range result.Scenarios {
		if s.Pass {
			fmt.Fprintf(w, "✓ %s\n", s.Name)
			continue
		}
		fmt.Fprintf(w, "✗ %s\n", s.Name)
		for _, e := range s.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	if result.Total == 0 {
		fmt.Fprintln(w, "No scenarios found.")
		return nil
	}
	fmt.Fprintln(w, "✓ All scenarios passed")
	return nil
}
