package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kolamlabs/kolamscan/pkg/pipeline"
	"github.com/kolamlabs/kolamscan/pkg/report"
)

// analyzeCommand creates the analyze command.
func (c *CLI) analyzeCommand() *cobra.Command {
	var (
		jsonOut    bool
		noCache    bool
		refresh    bool
		outputPath string
		configPath string
	)

	cmd := &cobra.Command{
		Use:   "analyze <image>",
		Short: "Analyze a rangoli or kolam photograph",
		Long: `Analyze runs the full staged pipeline on an image: dot grid detection,
symmetry measurement, stroke classification, spatial reasoning and
traditional pattern recognition, then prints a composite report.

With --json, each pipeline event is printed as one JSON line (progress
records, per-stage partial reports, then the final report), matching the
wire format of the analysis server.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := pipeline.LoadConfig(configPath)
			if err != nil {
				return err
			}

			runner, err := c.newRunner(noCache, cfg)
			if err != nil {
				return fmt.Errorf("create runner: %w", err)
			}
			defer runner.Close()

			opts := pipeline.Options{
				Path:    args[0],
				Refresh: refresh,
				Logger:  loggerFromContext(cmd.Context()),
			}

			if jsonOut {
				return c.runAnalyzeJSON(cmd, opts, runner)
			}
			return c.runAnalyze(cmd, opts, runner, outputPath)
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "print pipeline events as JSON lines")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the report cache")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "re-run analysis even if a cached report exists")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "write the composite report JSON to a file")
	cmd.Flags().StringVar(&configPath, "config", "", "path to a TOML config file")

	return cmd
}

// runAnalyzeJSON streams every pipeline event to stdout, one JSON record
// per line. The stream ends with either a report or an error record.
func (c *CLI) runAnalyzeJSON(cmd *cobra.Command, opts pipeline.Options, runner *pipeline.Runner) error {
	var failed string
	for ev := range runner.Run(cmd.Context(), opts) {
		line, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("encode event: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(line))
		if f, ok := ev.(pipeline.Failure); ok {
			failed = f.Message
		}
	}
	if err := cmd.Context().Err(); err != nil {
		return err
	}
	if failed != "" {
		return fmt.Errorf("analysis failed: %s", failed)
	}
	return nil
}

// runAnalyze drives the pipeline with a spinner and prints a styled
// summary of the composite report.
func (c *CLI) runAnalyze(cmd *cobra.Command, opts pipeline.Options, runner *pipeline.Runner, outputPath string) error {
	spinner := newSpinnerWithContext(cmd.Context(), "Starting analysis...")
	spinner.Start()

	var (
		final   *report.CompositeReport
		partial int
	)
	for ev := range runner.Run(cmd.Context(), opts) {
		switch e := ev.(type) {
		case pipeline.Progress:
			spinner.UpdateMessage(e.Description)
		case pipeline.Partial:
			partial++
		case pipeline.Final:
			final = e.Report
		case pipeline.Failure:
			spinner.StopWithError(e.Message)
			return fmt.Errorf("analysis failed: %s", e.Message)
		}
	}

	if spinner.Cancelled() || cmd.Context().Err() != nil {
		spinner.Stop()
		return cmd.Context().Err()
	}
	if final == nil {
		spinner.StopWithError("Analysis produced no report")
		return fmt.Errorf("analysis produced no report")
	}

	cached := partial == 0
	spinner.StopWithSuccess(fmt.Sprintf("Analyzed %s", opts.Path))
	printSummary(final, cached)

	if outputPath != "" {
		data, err := json.MarshalIndent(final, "", "  ")
		if err != nil {
			return fmt.Errorf("encode report: %w", err)
		}
		if err := os.WriteFile(outputPath, data, 0o644); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		printFile(outputPath)
	}

	printNewline()
	printNextStep("Inspect the stroke topology", "kolamscan graph "+opts.Path)
	return nil
}

// printSummary renders the composite report for terminal display.
func printSummary(r *report.CompositeReport, cached bool) {
	printStats(r.Summary.TotalDots, r.Summary.TotalStrokes, cached)
	printNewline()

	printKeyValue("Quality", fmt.Sprintf("%.2f%%", float64(r.Summary.OverallQuality)))
	printKeyValue("Symmetry", fmt.Sprintf("%.2f%%", float64(r.Summary.SymmetryLevel)))
	printKeyValue("Authentic", fmt.Sprintf("%.2f%%", float64(r.Summary.CulturalAuthenticity)))
	printKeyValue("Feature", r.Summary.PredominantFeatures)
	printKeyValue("Style", r.Summary.ArtisticStyle)
	printKeyValue("Complexity", r.Summary.ComplexityRating)
	printKeyValue("Size", fmt.Sprintf("%dx%d (%s)", r.Dimensions.Width, r.Dimensions.Height, r.Dimensions.AspectRatio))

	if len(r.Recommendations.Improvements) > 0 {
		printNewline()
		printInfo("Suggestions")
		for _, s := range r.Recommendations.Improvements {
			printDetail("%s", s)
		}
	}

	if errs := stageErrors(r); len(errs) > 0 {
		printNewline()
		printWarning("Some stages failed and used fallback results")
		for _, e := range errs {
			printDetail("%s", e)
		}
	}
}

// stageErrors collects per-stage failure descriptions from the report.
func stageErrors(r *report.CompositeReport) []string {
	var out []string
	for _, s := range r.Stages {
		if s.Err != "" {
			out = append(out, fmt.Sprintf("%s: %s", strings.ReplaceAll(string(s.Stage), "_", " "), s.Err))
		}
	}
	return out
}
