// -- cmd/analyze.go --
package cmd

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/craigjson/pindlebot-v2/internal/observability"
	"github.com/craigjson/pindlebot-v2/internal/telemetry"
)

var (
	analyzeLast     int
	analyzeOutlierZ float64
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [timing-log]",
	Short: "Analyze per-run phase timing data",
	Long: `Analyze reads the JSONL timing log the bot appends to after every run
and prints per-phase statistics, outlier runs, and high-variance phases.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfg.Telemetry.LogPath
		if len(args) == 1 {
			path = args[0]
		}
		outlierZ := cfg.Telemetry.OutlierZ
		if cmd.Flags().Changed("outlier") {
			outlierZ = analyzeOutlierZ
		}

		out := cmd.OutOrStdout()
		records, err := telemetry.LoadRecords(path, observability.GetLogger())
		if err != nil {
			if errors.Is(err, telemetry.ErrNoData) {
				fmt.Fprintf(out, "No timing data found at %s\n", path)
				fmt.Fprintln(out, "Run the bot first - data is written after each run.")
				return nil
			}
			return err
		}

		fmt.Fprintf(out, "Loaded %d runs from %s\n", len(records), path)
		if analyzeLast > 0 && analyzeLast < len(records) {
			fmt.Fprintf(out, "Analyzing last %d runs only\n", analyzeLast)
			records = telemetry.LastN(records, analyzeLast)
		}

		renderReport(out, telemetry.Analyze(records, outlierZ, cfg.Telemetry.HighVarianceCV))
		return nil
	},
}

func init() {
	analyzeCmd.Flags().IntVar(&analyzeLast, "last", 0, "only analyze the last N runs")
	analyzeCmd.Flags().Float64Var(&analyzeOutlierZ, "outlier", 2.5, "outlier z-score threshold")
	rootCmd.AddCommand(analyzeCmd)
}

func renderReport(out io.Writer, report *telemetry.Report) {
	fmt.Fprintf(out, "\n=== Phase Timing Summary (N=%d runs) ===\n", report.Runs)
	fmt.Fprintf(out, "%-32s %5s  %6s  %6s  %6s  %6s  %5s  note\n",
		"Phase", "count", "mean", "p50", "p90", "max", "cv")
	fmt.Fprintln(out, strings.Repeat("-", 82))

	for _, ps := range report.Phases {
		note := ""
		if ps.HighVariance {
			note = "HIGH VARIANCE"
		}
		fmt.Fprintf(out, "  %-30s %5d  %5.1fs  %5.1fs  %5.1fs  %5.1fs  %4.2f  %s\n",
			ps.Phase, ps.Count, ps.Mean, ps.Median, ps.P90, ps.Max, ps.CV, note)
	}

	if report.Total != nil {
		fmt.Fprintln(out, strings.Repeat("-", 82))
		t := report.Total
		fmt.Fprintf(out, "  %-30s %5d  %5.1fs  %5.1fs  %5.1fs  %5.1fs  %4.2f\n",
			t.Phase, t.Count, t.Mean, t.Median, t.P90, t.Max, t.CV)
	}

	if !report.OutliersChecked {
		fmt.Fprintf(out, "\n(Need at least 5 runs for outlier detection, have %d)\n", report.Runs)
		return
	}

	fmt.Fprintf(out, "\n=== Outlier Runs (phase > mean + %.1fσ) ===\n", report.OutlierZ)
	if len(report.Outliers) == 0 {
		fmt.Fprintf(out, "  None found (all phases within %.1fσ of their mean)\n", report.OutlierZ)
	}
	for _, o := range report.Outliers {
		ts := time.Unix(int64(o.TS), 0).Format("2006-01-02 15:04")
		fmt.Fprintf(out, "  Run #%4d  %s  %s: %.1fs  (avg=%.1fs, z=%.1f)\n",
			o.RunIndex+1, ts, o.Phase, o.Duration, o.Mean, o.Z)
	}

	var noisy []telemetry.PhaseStats
	for _, ps := range report.Phases {
		if ps.HighVariance {
			noisy = append(noisy, ps)
		}
	}
	if len(noisy) > 0 {
		sort.Slice(noisy, func(i, j int) bool { return noisy[i].CV > noisy[j].CV })
		fmt.Fprintf(out, "\n=== High-Variance Phases (cv > %.1f) - likely instability sources ===\n",
			report.HighVarianceCV)
		for _, ps := range noisy {
			fmt.Fprintf(out, "  %-32s cv=%.2f  range=[%.1fs, %.1fs]\n",
				ps.Phase, ps.CV, ps.Min, ps.Max)
		}
	}
}
