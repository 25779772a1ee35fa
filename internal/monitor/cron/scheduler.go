package cronjob

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// CheckRunner is the pipeline entry point the scheduler drives.
type CheckRunner interface {
	RunCheck(ctx context.Context) error
}

// Scheduler owns the recurring check timer: one run shortly after startup
// (the hub needs a moment to settle before it reports flow state reliably),
// then one run every interval. Rescheduling removes the previous cron entry
// before adding the new one, so there is never more than one live timer.
type Scheduler struct {
	runner CheckRunner
	log    zerolog.Logger
	settle time.Duration

	mu       sync.Mutex
	cron     *cron.Cron
	entry    cron.EntryID
	interval time.Duration
	enabled  bool
}

// NewScheduler creates a scheduler ticking at the given interval.
func NewScheduler(runner CheckRunner, interval, settle time.Duration, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		runner:   runner,
		log:      log.With().Str("component", "scheduler").Logger(),
		settle:   settle,
		cron:     cron.New(),
		interval: interval,
	}
}

// Start begins the recurring schedule (when enabled) and queues the initial
// startup run after the settle delay.
func (s *Scheduler) Start(enabled bool) {
	s.mu.Lock()
	s.enabled = enabled
	s.cron.Start()
	if enabled {
		s.scheduleLocked()
	}
	s.mu.Unlock()

	time.AfterFunc(s.settle, s.run)
	s.log.Info().Dur("interval", s.interval).Bool("enabled", enabled).Msg("scheduler started")
}

// Reschedule switches the recurring timer to a new interval. A no-op while
// recurring checks are disabled; the new interval still takes effect once
// they are re-enabled.
func (s *Scheduler) Reschedule(interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.interval = interval
	if !s.enabled {
		return
	}

	s.unscheduleLocked()
	s.scheduleLocked()
	s.log.Info().Dur("interval", interval).Msg("check schedule updated")
}

// SetEnabled turns the recurring timer on or off. An in-flight pass is not
// cancelled; only future ticks are affected.
func (s *Scheduler) SetEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if enabled == s.enabled {
		return
	}
	s.enabled = enabled

	if enabled {
		s.scheduleLocked()
	} else {
		s.unscheduleLocked()
	}
	s.log.Info().Bool("enabled", enabled).Msg("recurring checks toggled")
}

// Stop halts the cron runner. Running jobs finish on their own.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unscheduleLocked()
	s.cron.Stop()
}

func (s *Scheduler) scheduleLocked() {
	spec := fmt.Sprintf("@every %s", s.interval)
	entry, err := s.cron.AddFunc(spec, s.run)
	if err != nil {
		s.log.Error().Err(err).Str("spec", spec).Msg("failed to create cron entry")
		return
	}
	s.entry = entry
}

func (s *Scheduler) unscheduleLocked() {
	if s.entry != 0 {
		s.cron.Remove(s.entry)
		s.entry = 0
	}
}

// run executes one pass. Failures are logged and swallowed: the schedule
// continues regardless of pass outcome, and the next tick is the retry.
func (s *Scheduler) run() {
	if err := s.runner.RunCheck(context.Background()); err != nil {
		s.log.Error().Err(err).Msg("scheduled check pass failed")
	}
}
