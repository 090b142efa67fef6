// File: internal/telemetry/runtimer.go
package telemetry

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	json "github.com/json-iterator/go"
	"go.uber.org/zap"
)

// totalKey holds the whole-run duration in history. The leading underscore
// keeps it out of the per-phase sections of summaries and persisted records.
const totalKey = "_total"

// RunTimer accumulates phase durations for the run in flight and keeps an
// in-memory history across runs for the end-of-run summary. Safe for use
// from multiple goroutines.
type RunTimer struct {
	mu      sync.Mutex
	logger  *zap.Logger
	logPath string
	now     func() time.Time

	active     map[string]time.Time
	current    map[string]float64
	history    map[string][]float64
	phaseOrder []string
	runStart   time.Time
}

// NewRunTimer builds a RunTimer persisting to logPath.
func NewRunTimer(logPath string, logger *zap.Logger) *RunTimer {
	return &RunTimer{
		logger:  logger.Named("telemetry"),
		logPath: logPath,
		now:     time.Now,
		active:  make(map[string]time.Time),
		current: make(map[string]float64),
		history: make(map[string][]float64),
	}
}

// StartRun marks the beginning of a run. If the previous run was never
// ended, its partial timings are flushed into history first so they are not
// lost.
func (t *RunTimer) StartRun() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.current) > 0 {
		t.flushRun()
	}
	t.current = make(map[string]float64)
	t.active = make(map[string]time.Time)
	t.phaseOrder = nil
	t.runStart = t.now()
}

// Start begins timing a named phase. Starting an already-active phase
// restarts its clock.
func (t *RunTimer) Start(phase string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active[phase] = t.now()
}

// Stop ends a phase and returns its duration in seconds. Stopping a phase
// that was never started is a no-op returning 0. Repeated Start/Stop pairs
// within one run accumulate.
func (t *RunTimer) Stop(phase string) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	started, ok := t.active[phase]
	if !ok {
		return 0
	}
	delete(t.active, phase)

	duration := t.now().Sub(started).Seconds()
	if _, seen := t.current[phase]; !seen {
		t.phaseOrder = append(t.phaseOrder, phase)
	}
	t.current[phase] += duration
	return duration
}

// EndRun closes out the run: the record is appended to the timing log, the
// phase durations roll into history, and a summary with running averages is
// logged. A no-op when no run was started.
func (t *RunTimer) EndRun() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.runStart.IsZero() {
		return
	}
	total := t.now().Sub(t.runStart).Seconds()
	t.current[totalKey] = total
	t.persistRun(total)
	t.flushRun()
	t.logSummary()
	t.runStart = time.Time{}
}

// persistRun appends the current run to the JSONL timing log. Persistence
// failures are logged and swallowed; telemetry must never kill a run.
func (t *RunTimer) persistRun(total float64) {
	phases := make(map[string]float64, len(t.current))
	for phase, duration := range t.current {
		if strings.HasPrefix(phase, "_") {
			continue
		}
		phases[phase] = round3(duration)
	}
	record := Record{
		TS:     float64(t.now().UnixNano()) / float64(time.Second),
		Phases: phases,
		Total:  round3(total),
	}

	data, err := json.Marshal(record)
	if err != nil {
		t.logger.Warn("Failed to encode timing record", zap.Error(err))
		return
	}
	if err := os.MkdirAll(filepath.Dir(t.logPath), 0o755); err != nil {
		t.logger.Warn("Failed to create timing log directory", zap.Error(err))
		return
	}
	f, err := os.OpenFile(t.logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		t.logger.Warn("Failed to open timing log", zap.Error(err))
		return
	}
	defer f.Close()
	if _, err := f.Write(append(data, '\n')); err != nil {
		t.logger.Warn("Failed to persist timing record", zap.Error(err))
	}
}

// flushRun rolls the current run's durations into the cross-run history.
func (t *RunTimer) flushRun() {
	for phase, duration := range t.current {
		t.history[phase] = append(t.history[phase], duration)
	}
	t.current = make(map[string]float64)
}

// logSummary logs the finished run's phase breakdown in first-seen order,
// each with its share of the run and its running average.
func (t *RunTimer) logSummary() {
	totals := t.history[totalKey]
	if len(totals) == 0 {
		return
	}
	nRuns := len(totals)
	lastTotal := totals[nRuns-1]
	avgTotal := mean(totals)

	var b strings.Builder
	fmt.Fprintf(&b, "=== Run #%d timing (total: %.1fs, avg: %.1fs) ===", nRuns, lastTotal, avgTotal)

	tracked := 0.0
	for _, phase := range t.phaseOrder {
		if strings.HasPrefix(phase, "_") {
			continue
		}
		vals := t.history[phase]
		if len(vals) == 0 {
			continue
		}
		last := vals[len(vals)-1]
		pct := 0.0
		if lastTotal > 0 {
			pct = last / lastTotal * 100
		}
		fmt.Fprintf(&b, "\n  %s %5.1fs (%4.1f%%) avg=%.1fs", padDots(phase, 30), last, pct, mean(vals))
		tracked += last
	}

	if untracked := lastTotal - tracked; untracked > 0.5 {
		pct := 0.0
		if lastTotal > 0 {
			pct = untracked / lastTotal * 100
		}
		fmt.Fprintf(&b, "\n  %s %5.1fs (%4.1f%%)", padDots("(untracked)", 30), untracked, pct)
	}

	t.logger.Info(b.String())
}

func padDots(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(".", width-len(s))
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}
