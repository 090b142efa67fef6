// -- cmd/analyze_test.go --
package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craigjson/pindlebot-v2/internal/telemetry"
)

func runCommand(t *testing.T, args ...string) string {
	t.Helper()
	t.Cleanup(func() {
		analyzeLast = 0
		analyzeOutlierZ = 2.5
	})
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute())
	return buf.String()
}

func TestAnalyzeNoDataExitsCleanly(t *testing.T) {
	out := runCommand(t, "analyze", filepath.Join(t.TempDir(), "missing.jsonl"))
	assert.Contains(t, out, "No timing data found")
	assert.Contains(t, out, "Run the bot first")
}

func writeRuns(t *testing.T, n int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "timing.jsonl")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	for i := 0; i < n; i++ {
		fight := 10.0
		if i == n-1 {
			fight = 40.0
		}
		fmt.Fprintf(f, `{"ts": %d, "phases": {"fight": %.1f, "town": 2.0}, "total": %.1f}`+"\n",
			1_700_000_000+i*300, fight, fight+2)
	}
	return path
}

func TestAnalyzeFewRunsSkipsOutliers(t *testing.T) {
	out := runCommand(t, "analyze", writeRuns(t, 3))
	assert.Contains(t, out, "Loaded 3 runs")
	assert.Contains(t, out, "Phase Timing Summary (N=3 runs)")
	assert.Contains(t, out, "Need at least 5 runs for outlier detection")
	assert.NotContains(t, out, "Outlier Runs")
}

func TestAnalyzeFullReport(t *testing.T) {
	out := runCommand(t, "analyze", writeRuns(t, 10))
	assert.Contains(t, out, "Loaded 10 runs")
	assert.Contains(t, out, "fight")
	assert.Contains(t, out, "TOTAL (full cycle)")
	assert.Contains(t, out, "Outlier Runs")
	assert.Contains(t, out, "Run #  10")
	assert.Contains(t, out, "HIGH VARIANCE")
	assert.Contains(t, out, "High-Variance Phases")
}

func TestAnalyzeLastFlag(t *testing.T) {
	out := runCommand(t, "analyze", "--last", "4", writeRuns(t, 10))
	assert.Contains(t, out, "Analyzing last 4 runs only")
	assert.Contains(t, out, "(N=4 runs)")
}

func TestRenderReportRanksByMean(t *testing.T) {
	report := telemetry.Analyze([]telemetry.Record{
		{TS: 1, Phases: map[string]float64{"short": 1, "long": 9}, Total: 10},
		{TS: 2, Phases: map[string]float64{"short": 1, "long": 9}, Total: 10},
	}, 2.5, 0.4)

	buf := new(bytes.Buffer)
	renderReport(buf, report)
	out := buf.String()
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("long")), bytes.Index(buf.Bytes(), []byte("short")))
	assert.Contains(t, out, "(N=2 runs)")
}
