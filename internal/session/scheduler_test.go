// File: internal/session/scheduler_test.go
package session

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	json "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/craigjson/pindlebot-v2/internal/config"
	"github.com/craigjson/pindlebot-v2/internal/humanize"
)

func testSessionConfig(dir string) config.SessionConfig {
	return config.SessionConfig{
		MaxDailyHours:           8,
		AvgSessionMinutes:       150,
		SessionVarianceMinutes:  30,
		AvgBreakMinutes:         25,
		BreakVarianceMinutes:    10,
		SkipLootProbability:     0.02,
		RandomActionProbability: 0.05,
		LogDir:                  dir,
	}
}

type schedClock struct{ t time.Time }

func (c *schedClock) now() time.Time { return c.t }

func (c *schedClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestScheduler(t *testing.T, seed int64) (*Scheduler, *schedClock) {
	t.Helper()
	human := humanize.New(zap.NewNop(), humanize.WithRand(rand.New(rand.NewSource(seed))))
	s := NewScheduler(testSessionConfig(t.TempDir()), human, zap.NewNop())
	clock := &schedClock{t: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)}
	s.now = clock.now
	return s, clock
}

func TestSessionLengthBounds(t *testing.T) {
	s, _ := newTestScheduler(t, 1)
	for i := 0; i < 200; i++ {
		length := s.sampleSessionLength()
		assert.GreaterOrEqual(t, length, 30*time.Minute)
		assert.LessOrEqual(t, length, 300*time.Minute)
	}
}

func TestBreakLengthBounds(t *testing.T) {
	s, _ := newTestScheduler(t, 2)
	for i := 0; i < 200; i++ {
		length := s.BreakDuration()
		assert.GreaterOrEqual(t, length, 5*time.Minute)
		assert.LessOrEqual(t, length, 75*time.Minute)
	}
}

func TestBreakAfterSessionLengthExceeded(t *testing.T) {
	s, clock := newTestScheduler(t, 3)
	s.StartSession()

	assert.False(t, s.ShouldTakeBreak())
	assert.True(t, s.ShouldContinueRunning())

	clock.advance(s.sessionLength)
	assert.True(t, s.ShouldTakeBreak())
	assert.False(t, s.ShouldContinueRunning())
}

func TestNoBreakOutsideSession(t *testing.T) {
	s, clock := newTestScheduler(t, 4)
	clock.advance(24 * time.Hour)
	assert.False(t, s.ShouldTakeBreak())
}

func TestDailyCapCountsInFlightSession(t *testing.T) {
	s, clock := newTestScheduler(t, 5)

	// Two closed sessions totalling 6h.
	for i := 0; i < 2; i++ {
		s.StartSession()
		clock.advance(3 * time.Hour)
		s.EndSession()
	}
	assert.False(t, s.ShouldStopForDay())

	// A third session crosses the 8h cap while still open.
	s.StartSession()
	clock.advance(2*time.Hour + time.Minute)
	assert.True(t, s.ShouldStopForDay())
	assert.False(t, s.ShouldContinueRunning())
}

func TestEndSessionAccumulatesPlayTime(t *testing.T) {
	s, clock := newTestScheduler(t, 6)
	s.StartSession()
	clock.advance(90 * time.Minute)
	s.EndSession()

	assert.Equal(t, 90*time.Minute, s.playTimeToday)
	assert.True(t, s.sessionStart.IsZero())

	// Double EndSession must not double-count.
	s.EndSession()
	assert.Equal(t, 90*time.Minute, s.playTimeToday)
}

func TestStartSessionResamplesLength(t *testing.T) {
	s, _ := newTestScheduler(t, 7)
	lengths := make(map[time.Duration]bool)
	for i := 0; i < 20; i++ {
		s.StartSession()
		lengths[s.sessionLength] = true
	}
	assert.Greater(t, len(lengths), 1, "session lengths must vary")
}

func TestStatsSnapshot(t *testing.T) {
	s, clock := newTestScheduler(t, 8)
	s.StartSession()
	s.LogRun(200*time.Second, []string{"ring"})
	s.LogRun(210*time.Second, nil)
	clock.advance(30 * time.Minute)

	stats := s.Stats()
	assert.Equal(t, 2, stats.RunsThisSession)
	assert.Equal(t, 2, stats.TotalRunsToday)
	assert.Equal(t, 30*time.Minute, stats.SessionElapsed)
	assert.Equal(t, 30*time.Minute, stats.TotalPlayTime)
	assert.Equal(t, 8*time.Hour, stats.DailyCap)
}

func TestRunCountersSurviveSessions(t *testing.T) {
	s, clock := newTestScheduler(t, 9)
	s.StartSession()
	s.LogRun(200*time.Second, nil)
	clock.advance(time.Hour)
	s.EndSession()

	s.StartSession()
	s.LogRun(205*time.Second, nil)

	assert.Equal(t, 1, s.runsThisSession)
	assert.Equal(t, 2, s.totalRunsToday)
}

func TestBehavioralDiceRates(t *testing.T) {
	s, _ := newTestScheduler(t, 10)
	skips, actions := 0, 0
	const trials = 10000
	for i := 0; i < trials; i++ {
		if s.ShouldSkipLoot() {
			skips++
		}
		if s.ShouldRandomAction() {
			actions++
		}
	}
	assert.InDelta(t, 0.02, float64(skips)/trials, 0.01)
	assert.InDelta(t, 0.05, float64(actions)/trials, 0.015)
}

func TestSaveLogMergesExisting(t *testing.T) {
	s, clock := newTestScheduler(t, 11)
	s.StartSession()

	s.LogRun(200*time.Second, []string{"ring", "charm"})
	require.NoError(t, s.SaveLog())

	clock.advance(5 * time.Minute)
	s.LogRun(215*time.Second, nil)
	require.NoError(t, s.SaveLog())

	path := filepath.Join(s.cfg.LogDir, "runs_"+clock.t.Format("20060102")+".json")
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var records []RunRecord
	require.NoError(t, json.Unmarshal(data, &records))
	require.Len(t, records, 2)
	assert.Equal(t, 1, records[0].RunNumber)
	assert.Equal(t, []string{"ring", "charm"}, records[0].Items)
	assert.Equal(t, 2, records[1].RunNumber)
	assert.NotEmpty(t, records[1].RunID)
	assert.Equal(t, []string{}, records[1].Items, "nil items persist as an empty list")
	assert.InDelta(t, 215.0, records[1].DurationS, 1e-9)
}

func TestSaveLogEmptyBufferIsNoop(t *testing.T) {
	s, _ := newTestScheduler(t, 12)
	require.NoError(t, s.SaveLog())
	entries, err := os.ReadDir(s.cfg.LogDir)
	if err == nil {
		assert.Empty(t, entries)
	}
}
