// File: internal/session/scheduler.go

// Package session paces play into human-looking sessions: gaussian session
// and break lengths, a daily play cap, and per-run behavioral variance.
package session

import (
	"time"

	"go.uber.org/zap"

	"github.com/craigjson/pindlebot-v2/internal/config"
	"github.com/craigjson/pindlebot-v2/internal/humanize"
)

// Scheduler decides when to run, when to break, and when to call it a day.
// Not safe for concurrent use; the run loop owns it.
type Scheduler struct {
	cfg    config.SessionConfig
	logger *zap.Logger
	human  *humanize.Humanizer
	now    func() time.Time

	// sessionLength/breakLength are resampled per session so no two sessions
	// look alike.
	sessionLength time.Duration
	breakLength   time.Duration

	runsThisSession int
	totalRunsToday  int
	sessionStart    time.Time
	dailyStart      time.Time
	playTimeToday   time.Duration

	runLog []RunRecord
}

// NewScheduler plans the first session immediately so the planned lengths
// show up in the log before any run starts.
func NewScheduler(cfg config.SessionConfig, human *humanize.Humanizer, logger *zap.Logger) *Scheduler {
	s := &Scheduler{
		cfg:    cfg,
		logger: logger.Named("session"),
		human:  human,
		now:    time.Now,
	}
	s.dailyStart = s.now()
	s.sessionLength = s.sampleSessionLength()
	s.breakLength = s.sampleBreakLength()

	s.logger.Info("Session planned",
		zap.Float64("play_min", s.sessionLength.Minutes()),
		zap.Float64("break_min", s.breakLength.Minutes()))
	return s
}

// StartSession marks the beginning of a new play session and resamples its
// length.
func (s *Scheduler) StartSession() {
	s.sessionStart = s.now()
	s.runsThisSession = 0
	s.sessionLength = s.sampleSessionLength()
	s.logger.Info("Starting session", zap.Float64("minutes", s.sessionLength.Minutes()))
}

// ShouldContinueRunning reports whether another run fits within both the
// session budget and the daily cap.
func (s *Scheduler) ShouldContinueRunning() bool {
	if s.ShouldStopForDay() {
		return false
	}
	if s.ShouldTakeBreak() {
		return false
	}
	return true
}

// ShouldTakeBreak reports whether the current session has outrun its planned
// length. Always false outside a session.
func (s *Scheduler) ShouldTakeBreak() bool {
	if s.sessionStart.IsZero() {
		return false
	}
	return s.now().Sub(s.sessionStart) >= s.sessionLength
}

// ShouldStopForDay reports whether total play time, including the session in
// flight, has hit the daily cap.
func (s *Scheduler) ShouldStopForDay() bool {
	total := s.playTimeToday
	if !s.sessionStart.IsZero() {
		total += s.now().Sub(s.sessionStart)
	}
	limit := time.Duration(s.cfg.MaxDailyHours * float64(time.Hour))
	return total >= limit
}

// ShouldSkipLoot rolls the occasional skip-the-loot die.
func (s *Scheduler) ShouldSkipLoot() bool {
	return s.human.ShouldSkipLoot(s.cfg.SkipLootProbability)
}

// ShouldRandomAction rolls for an idle human-like action between steps.
func (s *Scheduler) ShouldRandomAction() bool {
	return s.human.ShouldDoRandomAction(s.cfg.RandomActionProbability)
}

// BreakDuration samples a fresh break length.
func (s *Scheduler) BreakDuration() time.Duration {
	return s.sampleBreakLength()
}

// EndSession closes the current session and rolls its play time into the
// daily total. A no-op when no session is active.
func (s *Scheduler) EndSession() {
	if s.sessionStart.IsZero() {
		return
	}
	elapsed := s.now().Sub(s.sessionStart)
	s.playTimeToday += elapsed
	s.logger.Info("Session ended",
		zap.Float64("session_min", elapsed.Minutes()),
		zap.Int("runs", s.runsThisSession),
		zap.Float64("total_today_min", s.playTimeToday.Minutes()))
	s.sessionStart = time.Time{}
}

// Stats is a point-in-time snapshot of the session state.
type Stats struct {
	RunsThisSession int
	TotalRunsToday  int
	SessionElapsed  time.Duration
	TotalPlayTime   time.Duration
	DailyCap        time.Duration
}

// Stats returns the current session statistics, counting the in-flight
// session toward the totals.
func (s *Scheduler) Stats() Stats {
	var sessionElapsed time.Duration
	if !s.sessionStart.IsZero() {
		sessionElapsed = s.now().Sub(s.sessionStart)
	}
	return Stats{
		RunsThisSession: s.runsThisSession,
		TotalRunsToday:  s.totalRunsToday,
		SessionElapsed:  sessionElapsed,
		TotalPlayTime:   s.playTimeToday + sessionElapsed,
		DailyCap:        time.Duration(s.cfg.MaxDailyHours * float64(time.Hour)),
	}
}

// sampleSessionLength draws a gaussian session length clamped to
// [30min, 2x the configured average].
func (s *Scheduler) sampleSessionLength() time.Duration {
	minutes := s.human.ClampedGaussian(
		s.cfg.AvgSessionMinutes, s.cfg.SessionVarianceMinutes,
		30, s.cfg.AvgSessionMinutes*2)
	return time.Duration(minutes * float64(time.Minute))
}

// sampleBreakLength draws a gaussian break length clamped to
// [5min, 3x the configured average].
func (s *Scheduler) sampleBreakLength() time.Duration {
	minutes := s.human.ClampedGaussian(
		s.cfg.AvgBreakMinutes, s.cfg.BreakVarianceMinutes,
		5, s.cfg.AvgBreakMinutes*3)
	return time.Duration(minutes * float64(time.Minute))
}
