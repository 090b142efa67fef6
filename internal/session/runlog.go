// File: internal/session/runlog.go
package session

import (
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	json "github.com/json-iterator/go"
	"go.uber.org/zap"
)

// RunRecord is one completed run in the persistent session log.
type RunRecord struct {
	RunID      string   `json:"run_id"`
	Timestamp  string   `json:"timestamp"`
	RunNumber  int      `json:"run_number"`
	SessionRun int      `json:"session_run"`
	DurationS  float64  `json:"duration_s"`
	Items      []string `json:"items"`
}

// LogRun records a completed run with the items it found.
func (s *Scheduler) LogRun(duration time.Duration, items []string) {
	s.runsThisSession++
	s.totalRunsToday++

	if items == nil {
		items = []string{}
	}
	s.runLog = append(s.runLog, RunRecord{
		RunID:      uuid.NewString(),
		Timestamp:  s.now().Format(time.RFC3339),
		RunNumber:  s.totalRunsToday,
		SessionRun: s.runsThisSession,
		DurationS:  math.Round(duration.Seconds()*100) / 100,
		Items:      items,
	})

	s.logger.Info("Run complete",
		zap.Int("run", s.totalRunsToday),
		zap.Float64("duration_s", duration.Seconds()),
		zap.Int("items", len(items)))
}

// SaveLog merges the buffered run records into today's JSON log file and
// clears the buffer. A no-op with nothing buffered.
func (s *Scheduler) SaveLog() error {
	if len(s.runLog) == 0 {
		return nil
	}

	if err := os.MkdirAll(s.cfg.LogDir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(s.cfg.LogDir, "runs_"+s.now().Format("20060102")+".json")

	// Merge with whatever an earlier process wrote today; a corrupt existing
	// file is discarded rather than blocking the save.
	var existing []RunRecord
	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, &existing); err != nil {
			s.logger.Warn("Existing run log is unreadable, overwriting", zap.Error(err))
			existing = nil
		}
	}
	existing = append(existing, s.runLog...)

	data, err := json.MarshalIndent(existing, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}

	s.logger.Info("Saved run log",
		zap.Int("runs", len(s.runLog)), zap.String("path", path))
	s.runLog = s.runLog[:0]
	return nil
}
