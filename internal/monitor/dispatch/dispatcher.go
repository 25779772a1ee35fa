package dispatch

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/flowwatch/flowwatch-backend/internal/monitor/domain"
)

// HubWriter is the slice of the hub API the dispatcher needs.
type HubWriter interface {
	FireTrigger(ctx context.Context, kind string, tokens map[string]any) error
	CreateNotification(ctx context.Context, excerpt string) error
}

// EventLog records dispatched events. May be nil-backed; see NewDispatcher.
type EventLog interface {
	Append(ctx context.Context, ev *domain.ProblemEvent) error
}

// Result is the explicit outcome of dispatching one event. Failures are
// collected and logged by the caller, never propagated to siblings.
type Result struct {
	Event domain.Event
	Err   error
}

// Dispatcher turns diff events into hub trigger firings and notification
// entries. Everything is fire-and-forget from the diff engine's point of
// view: a failed item never blocks the others and never rolls back the
// snapshot swap that already happened.
type Dispatcher struct {
	hub     HubWriter
	events  EventLog
	appName string
	log     zerolog.Logger
}

// NewDispatcher creates a Dispatcher. events may be nil when no event-log
// database is configured.
func NewDispatcher(hub HubWriter, events EventLog, appName string, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		hub:     hub,
		events:  events,
		appName: appName,
		log:     log.With().Str("component", "dispatcher").Logger(),
	}
}

// Dispatch fans the events out concurrently. notify gives the per-category
// notification toggles as of the snapshot swap. The returned results are in
// no particular order.
func (d *Dispatcher) Dispatch(ctx context.Context, events []domain.Event, notify map[domain.Category]bool) []Result {
	results := make([]Result, len(events))

	var wg sync.WaitGroup
	for i, ev := range events {
		wg.Add(1)
		go func(i int, ev domain.Event) {
			defer wg.Done()
			results[i] = Result{Event: ev, Err: d.dispatchOne(ctx, ev, notify[ev.Category])}
		}(i, ev)
	}
	wg.Wait()

	for _, res := range results {
		if res.Err != nil {
			d.log.Error().Err(res.Err).
				Str("category", string(res.Event.Category)).
				Str("kind", res.Event.Kind).
				Str("item_id", res.Event.Item.ID).
				Msg("event dispatch failed")
		}
	}

	return results
}

func (d *Dispatcher) dispatchOne(ctx context.Context, ev domain.Event, notify bool) error {
	var firstErr error

	tokens := map[string]any{
		ev.Category.TokenName(): ev.Item.Name,
		"id":                    ev.Item.ID,
	}
	if err := d.hub.FireTrigger(ctx, ev.Kind, tokens); err != nil {
		firstErr = fmt.Errorf("fire trigger: %w", err)
	}

	if notify {
		if err := d.hub.CreateNotification(ctx, d.excerpt(ev)); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("create notification: %w", err)
		}
	}

	d.record(ctx, ev, firstErr)
	return firstErr
}

// record appends the event to the audit log. Log failures are logged and
// swallowed; the audit trail is best-effort.
func (d *Dispatcher) record(ctx context.Context, ev domain.Event, dispatchErr error) {
	if d.events == nil {
		return
	}

	outcome := domain.OutcomeDelivered
	if dispatchErr != nil {
		outcome = domain.OutcomeFailed
	}

	err := d.events.Append(ctx, &domain.ProblemEvent{
		Category: ev.Category,
		Kind:     ev.Kind,
		ItemID:   ev.Item.ID,
		ItemName: ev.Item.Name,
		Outcome:  outcome,
	})
	if err != nil {
		d.log.Warn().Err(err).Str("item_id", ev.Item.ID).Msg("event log append failed")
	}
}

func (d *Dispatcher) excerpt(ev domain.Event) string {
	return fmt.Sprintf("%s - Event: %s - %s: **%s**",
		d.appName, ev.Category, ev.Category.TypeLabel(), ev.Item.Name)
}
