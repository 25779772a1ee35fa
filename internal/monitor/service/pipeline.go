package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/flowwatch/flowwatch-backend/internal/monitor/diff"
	"github.com/flowwatch/flowwatch-backend/internal/monitor/dispatch"
	"github.com/flowwatch/flowwatch-backend/internal/monitor/domain"
)

// Classifier produces the current problem set per category.
type Classifier interface {
	Classify(ctx context.Context) (map[domain.Category][]domain.ProblemItem, error)
}

// SettingsStore owns the persisted settings bundle.
type SettingsStore interface {
	Load(ctx context.Context) (*domain.SettingsBundle, error)
	Update(ctx context.Context, mutate func(*domain.SettingsBundle) error) (*domain.SettingsBundle, error)
}

// Dispatcher fans out diff events to the hub.
type Dispatcher interface {
	Dispatch(ctx context.Context, events []domain.Event, notify map[domain.Category]bool) []dispatch.Result
}

// EventLogReader reads the audit trail. Nil when no database is configured.
type EventLogReader interface {
	ListRecent(ctx context.Context, limit int) ([]domain.ProblemEvent, error)
}

// Scheduler is controlled by the service when the user changes the check
// period or toggles recurring checks.
type Scheduler interface {
	Reschedule(interval time.Duration)
	SetEnabled(enabled bool)
}

// MonitorService runs the classify→diff→dispatch pipeline and answers the
// API surface: settings reads, condition checks and the user-facing
// actions.
type MonitorService struct {
	classifier Classifier
	store      SettingsStore
	dispatcher Dispatcher
	events     EventLogReader
	sched      Scheduler
	log        zerolog.Logger
}

func NewMonitorService(classifier Classifier, store SettingsStore, dispatcher Dispatcher, events EventLogReader, log zerolog.Logger) *MonitorService {
	return &MonitorService{
		classifier: classifier,
		store:      store,
		dispatcher: dispatcher,
		events:     events,
		log:        log.With().Str("component", "monitor").Logger(),
	}
}

// SetScheduler attaches the scheduler after construction; the scheduler
// itself is built around this service, so the two are wired in two steps.
func (s *MonitorService) SetScheduler(sched Scheduler) {
	s.sched = sched
}

// RunCheck performs one full pass: classify all categories, diff each
// against its snapshot, swap changed snapshots, then dispatch the resulting
// events. A classification failure aborts the pass before any snapshot is
// touched. A persistence failure is logged and does not stop dispatch; the
// in-memory state simply diverges until the next successful write.
func (s *MonitorService) RunCheck(ctx context.Context) error {
	start := time.Now()

	current, err := s.classifier.Classify(ctx)
	if err != nil {
		return fmt.Errorf("check pass aborted: %w", err)
	}

	var events []domain.Event
	var notify map[domain.Category]bool

	_, err = s.store.Update(ctx, func(bundle *domain.SettingsBundle) error {
		for _, cat := range domain.Categories() {
			res := diff.Compare(bundle.Snapshots[cat], current[cat])
			if !res.Changed {
				continue
			}
			bundle.Snapshots[cat] = res.Snapshot
			events = append(events, res.Events(cat)...)
		}

		notify = make(map[domain.Category]bool, len(bundle.Notifications))
		for cat, on := range bundle.Notifications {
			notify[cat] = on
		}
		return nil
	})
	if err != nil {
		if notify == nil {
			// The previous snapshots could not even be read; without a
			// baseline there is nothing to diff or dispatch.
			return fmt.Errorf("check pass aborted: %w", err)
		}
		s.log.Error().Err(err).Msg("settings bundle write failed; state diverges until next successful pass")
	}

	if len(events) > 0 {
		s.dispatcher.Dispatch(ctx, events, notify)
	}

	s.log.Info().
		Int("events", len(events)).
		Dur("took", time.Since(start)).
		Msg("check pass finished")
	return nil
}

// Settings returns the full settings bundle (the widget read path).
func (s *MonitorService) Settings(ctx context.Context) (*domain.SettingsBundle, error) {
	return s.store.Load(ctx)
}

// HasProblems answers a condition card: is the category's snapshot
// non-empty.
func (s *MonitorService) HasProblems(ctx context.Context, cat domain.Category) (bool, error) {
	bundle, err := s.store.Load(ctx)
	if err != nil {
		return false, err
	}
	return len(bundle.Snapshots[cat]) > 0, nil
}

// SetInterval changes the check period. Values below the minimum are
// clamped; the effective value is returned and the running schedule is
// updated in place.
func (s *MonitorService) SetInterval(ctx context.Context, minutes int) (int, error) {
	clamped := domain.ClampInterval(minutes)

	bundle, err := s.store.Update(ctx, func(b *domain.SettingsBundle) error {
		b.IntervalMinutes = clamped
		return nil
	})
	if err != nil {
		return 0, err
	}

	if s.sched != nil && bundle.RecurringEnabled {
		s.sched.Reschedule(time.Duration(clamped) * time.Minute)
	}
	return clamped, nil
}

// SetRecurring enables or disables the recurring check timer.
func (s *MonitorService) SetRecurring(ctx context.Context, enabled bool) error {
	_, err := s.store.Update(ctx, func(b *domain.SettingsBundle) error {
		b.RecurringEnabled = enabled
		return nil
	})
	if err != nil {
		return err
	}

	if s.sched != nil {
		s.sched.SetEnabled(enabled)
	}
	return nil
}

// SetNotification toggles notification-center entries for one category.
func (s *MonitorService) SetNotification(ctx context.Context, cat domain.Category, enabled bool) error {
	_, err := s.store.Update(ctx, func(b *domain.SettingsBundle) error {
		b.Notifications[cat] = enabled
		return nil
	})
	return err
}

// RecentEvents reads the newest audit-trail rows.
func (s *MonitorService) RecentEvents(ctx context.Context, limit int) ([]domain.ProblemEvent, error) {
	if s.events == nil {
		return nil, domain.ErrEventLogDisabled
	}
	return s.events.ListRecent(ctx, limit)
}
