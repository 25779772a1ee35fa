package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowwatch/flowwatch-backend/internal/monitor/domain"
)

type fakeHubWriter struct {
	mu            sync.Mutex
	triggers      []string
	tokens        []map[string]any
	notifications []string
	triggerErr    map[string]error
}

func (f *fakeHubWriter) FireTrigger(_ context.Context, kind string, tokens map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.triggerErr[kind]; err != nil {
		return err
	}
	f.triggers = append(f.triggers, kind)
	f.tokens = append(f.tokens, tokens)
	return nil
}

func (f *fakeHubWriter) CreateNotification(_ context.Context, excerpt string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notifications = append(f.notifications, excerpt)
	return nil
}

type fakeEventLog struct {
	mu   sync.Mutex
	rows []domain.ProblemEvent
	err  error
}

func (f *fakeEventLog) Append(_ context.Context, ev *domain.ProblemEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.rows = append(f.rows, *ev)
	return nil
}

func allOn() map[domain.Category]bool {
	notify := make(map[domain.Category]bool)
	for _, c := range domain.Categories() {
		notify[c] = true
	}
	return notify
}

func brokenEvent(id, name string) domain.Event {
	return domain.Event{
		Category: domain.CategoryBroken,
		Kind:     domain.TriggerBroken,
		Item:     domain.ProblemItem{Name: name, ID: id},
	}
}

func TestDispatchFiresTriggerWithTokens(t *testing.T) {
	hub := &fakeHubWriter{}
	d := NewDispatcher(hub, nil, "Flow Watch", zerolog.Nop())

	results := d.Dispatch(context.Background(), []domain.Event{brokenEvent("f1", "Morning")}, allOn())

	require.Len(t, results, 1)
	assert.NoError(t, results[0].Err)
	require.Len(t, hub.triggers, 1)
	assert.Equal(t, domain.TriggerBroken, hub.triggers[0])
	assert.Equal(t, map[string]any{"flow": "Morning", "id": "f1"}, hub.tokens[0])
}

func TestDispatchNotificationExcerptFormat(t *testing.T) {
	hub := &fakeHubWriter{}
	d := NewDispatcher(hub, nil, "Flow Watch", zerolog.Nop())

	d.Dispatch(context.Background(), []domain.Event{brokenEvent("f1", "Morning")}, allOn())

	require.Len(t, hub.notifications, 1)
	assert.Equal(t, "Flow Watch - Event: BROKEN - Flow: **Morning**", hub.notifications[0])
}

func TestDispatchRespectsNotificationToggle(t *testing.T) {
	hub := &fakeHubWriter{}
	d := NewDispatcher(hub, nil, "Flow Watch", zerolog.Nop())

	notify := allOn()
	notify[domain.CategoryBroken] = false
	d.Dispatch(context.Background(), []domain.Event{brokenEvent("f1", "Morning")}, notify)

	assert.Empty(t, hub.notifications)
	assert.Len(t, hub.triggers, 1) // trigger still fires
}

func TestDispatchLogicCategoryUsesLogicToken(t *testing.T) {
	hub := &fakeHubWriter{}
	d := NewDispatcher(hub, nil, "Flow Watch", zerolog.Nop())

	d.Dispatch(context.Background(), []domain.Event{{
		Category: domain.CategoryUnusedLogic,
		Kind:     domain.TriggerUnusedLogic,
		Item:     domain.ProblemItem{Name: "temp", ID: "v1"},
	}}, allOn())

	require.Len(t, hub.tokens, 1)
	assert.Equal(t, map[string]any{"logic": "temp", "id": "v1"}, hub.tokens[0])
	require.Len(t, hub.notifications, 1)
	assert.Equal(t, "Flow Watch - Event: UNUSED_LOGIC - Logic: **temp**", hub.notifications[0])
}

// One item's dispatch failure never blocks its siblings.
func TestDispatchFailureIsolatedPerItem(t *testing.T) {
	hub := &fakeHubWriter{triggerErr: map[string]error{
		domain.TriggerDisabled: errors.New("hub rejected"),
	}}
	d := NewDispatcher(hub, nil, "Flow Watch", zerolog.Nop())

	events := []domain.Event{
		brokenEvent("f1", "Morning"),
		{Category: domain.CategoryDisabled, Kind: domain.TriggerDisabled, Item: domain.ProblemItem{Name: "Evening", ID: "f2"}},
		brokenEvent("f3", "Night"),
	}

	results := d.Dispatch(context.Background(), events, allOn())
	require.Len(t, results, 3)

	var failed int
	for _, res := range results {
		if res.Err != nil {
			failed++
			assert.Equal(t, "f2", res.Event.Item.ID)
		}
	}
	assert.Equal(t, 1, failed)
	assert.Len(t, hub.triggers, 2)
}

func TestDispatchRecordsEventLogOutcomes(t *testing.T) {
	hub := &fakeHubWriter{triggerErr: map[string]error{
		domain.TriggerDisabled: errors.New("hub rejected"),
	}}
	eventLog := &fakeEventLog{}
	d := NewDispatcher(hub, eventLog, "Flow Watch", zerolog.Nop())

	events := []domain.Event{
		brokenEvent("f1", "Morning"),
		{Category: domain.CategoryDisabled, Kind: domain.TriggerDisabled, Item: domain.ProblemItem{Name: "Evening", ID: "f2"}},
	}
	d.Dispatch(context.Background(), events, allOn())

	require.Len(t, eventLog.rows, 2)
	outcomes := map[string]string{}
	for _, row := range eventLog.rows {
		outcomes[row.ItemID] = row.Outcome
	}
	assert.Equal(t, domain.OutcomeDelivered, outcomes["f1"])
	assert.Equal(t, domain.OutcomeFailed, outcomes["f2"])
}

// An event-log failure is swallowed; the dispatch itself still succeeds.
func TestDispatchEventLogFailureIsNonFatal(t *testing.T) {
	hub := &fakeHubWriter{}
	d := NewDispatcher(hub, &fakeEventLog{err: errors.New("db down")}, "Flow Watch", zerolog.Nop())

	results := d.Dispatch(context.Background(), []domain.Event{brokenEvent("f1", "Morning")}, allOn())

	require.Len(t, results, 1)
	assert.NoError(t, results[0].Err)
}
