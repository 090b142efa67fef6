// File: internal/telemetry/analyzer.go
package telemetry

import (
	"bufio"
	"errors"
	"math"
	"os"
	"sort"

	json "github.com/json-iterator/go"
	"go.uber.org/zap"
)

// ErrNoData means the timing log does not exist yet.
var ErrNoData = errors.New("telemetry: no timing data")

// outlierMinRuns is the minimum history size for outlier detection to be
// statistically meaningful.
const outlierMinRuns = 5

// PhaseStats summarizes one phase across the analyzed runs.
type PhaseStats struct {
	Phase  string
	Count  int
	Mean   float64
	Stdev  float64
	Median float64
	P90    float64
	Min    float64
	Max    float64
	// CV is the coefficient of variation (stdev / mean).
	CV float64
	// HighVariance marks phases whose CV exceeds the configured threshold.
	HighVariance bool
}

// Outlier is a single phase duration that landed far above its mean.
type Outlier struct {
	// RunIndex is the 0-based position of the run within the analyzed slice.
	RunIndex int
	TS       float64
	Phase    string
	Duration float64
	Mean     float64
	Z        float64
}

// Report is the full offline analysis of a set of timing records.
type Report struct {
	Runs int
	// Phases is ranked by mean duration, biggest time sinks first.
	Phases []PhaseStats
	// Total summarizes whole-run durations; nil when no record carried one.
	Total *PhaseStats
	// Outliers is empty when Runs < outlierMinRuns; OutliersChecked tells
	// the two cases apart.
	Outliers        []Outlier
	OutliersChecked bool
	OutlierZ        float64
	HighVarianceCV  float64
}

// LoadRecords reads the JSONL timing log. A missing file is ErrNoData;
// malformed lines are skipped with a warning so one bad write cannot poison
// the whole history.
func LoadRecords(path string, logger *zap.Logger) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoData
		}
		return nil, err
	}
	defer f.Close()

	var records []Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			logger.Warn("Skipping malformed timing record",
				zap.Int("line", lineNo), zap.Error(err))
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// LastN returns the trailing n records, or all of them when n is zero,
// negative, or larger than the history.
func LastN(records []Record, n int) []Record {
	if n <= 0 || n >= len(records) {
		return records
	}
	return records[len(records)-n:]
}

// Analyze computes per-phase statistics, whole-run totals, and outlier runs
// for the given records.
func Analyze(records []Record, outlierZ, highVarianceCV float64) *Report {
	report := &Report{
		Runs:           len(records),
		OutlierZ:       outlierZ,
		HighVarianceCV: highVarianceCV,
	}

	phaseData := make(map[string][]float64)
	for _, rec := range records {
		for phase, duration := range rec.Phases {
			phaseData[phase] = append(phaseData[phase], duration)
		}
	}

	for phase, vals := range phaseData {
		report.Phases = append(report.Phases, phaseStats(phase, vals, highVarianceCV))
	}
	sort.Slice(report.Phases, func(i, j int) bool {
		if report.Phases[i].Mean != report.Phases[j].Mean {
			return report.Phases[i].Mean > report.Phases[j].Mean
		}
		return report.Phases[i].Phase < report.Phases[j].Phase
	})

	var totals []float64
	for _, rec := range records {
		if rec.Total > 0 {
			totals = append(totals, rec.Total)
		}
	}
	if len(totals) > 0 {
		stats := phaseStats("TOTAL (full cycle)", totals, highVarianceCV)
		report.Total = &stats
	}

	if len(records) < outlierMinRuns {
		return report
	}
	report.OutliersChecked = true

	phaseIndex := make(map[string]PhaseStats, len(report.Phases))
	for _, ps := range report.Phases {
		phaseIndex[ps.Phase] = ps
	}
	for i, rec := range records {
		var runOutliers []Outlier
		for phase, duration := range rec.Phases {
			ps, ok := phaseIndex[phase]
			if !ok || ps.Stdev <= 0 {
				continue
			}
			z := (duration - ps.Mean) / ps.Stdev
			if z >= outlierZ {
				runOutliers = append(runOutliers, Outlier{
					RunIndex: i,
					TS:       rec.TS,
					Phase:    phase,
					Duration: duration,
					Mean:     ps.Mean,
					Z:        z,
				})
			}
		}
		// Worst offense first within the run.
		sort.Slice(runOutliers, func(a, b int) bool { return runOutliers[a].Z > runOutliers[b].Z })
		report.Outliers = append(report.Outliers, runOutliers...)
	}
	return report
}

func phaseStats(phase string, vals []float64, highVarianceCV float64) PhaseStats {
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)

	m := mean(vals)
	sd := sampleStdev(vals, m)
	cv := 0.0
	if m > 0 {
		cv = sd / m
	}
	return PhaseStats{
		Phase:        phase,
		Count:        len(vals),
		Mean:         m,
		Stdev:        sd,
		Median:       percentile(sorted, 0.5),
		P90:          percentile(sorted, 0.9),
		Min:          sorted[0],
		Max:          sorted[len(sorted)-1],
		CV:           cv,
		HighVariance: cv > highVarianceCV,
	}
}

// sampleStdev is the n-1 standard deviation; 0 for fewer than two samples.
func sampleStdev(vals []float64, m float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(vals)-1))
}

// percentile is the nearest-rank value from an ascending-sorted slice.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(float64(len(sorted)) * p)
	if idx > len(sorted)-1 {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
