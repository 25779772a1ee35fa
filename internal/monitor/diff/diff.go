// Package diff decides, given a category's previous snapshot and its newly
// classified problem set, what changed and which events to raise.
package diff

import "github.com/flowwatch/flowwatch-backend/internal/monitor/domain"

// Result is the outcome of comparing one category's snapshots.
//
// When Changed is false nothing may be persisted and no events may be
// emitted. Snapshot is the replacement set to swap in, deduplicated by id.
type Result struct {
	Changed  bool
	Added    []domain.ProblemItem
	Removed  []domain.ProblemItem
	Snapshot []domain.ProblemItem
}

// Compare diffs the previous snapshot against the current problem set.
//
// Two long-standing behaviors are kept on purpose and pinned by tests:
//
//   - Equal-length inputs short-circuit: no comparison happens at all, so a
//     same-size swap (one flow breaks while another gets fixed in the same
//     pass) is invisible.
//   - Membership is by whole item, not id, so a rename with a stable id
//     shows up as one removed plus one added.
func Compare(previous, current []domain.ProblemItem) Result {
	if len(previous) == len(current) {
		return Result{}
	}

	return Result{
		Changed:  true,
		Added:    itemsNotIn(current, previous),
		Removed:  itemsNotIn(previous, current),
		Snapshot: dedupeByID(current),
	}
}

// Events turns a result into dispatchable events for one category: every
// added item raises the category's "became problem" trigger, every removed
// item the matching "fixed" trigger. Order between items is not meaningful.
func (r Result) Events(category domain.Category) []domain.Event {
	if !r.Changed {
		return nil
	}

	events := make([]domain.Event, 0, len(r.Added)+len(r.Removed))
	for _, item := range r.Added {
		events = append(events, domain.Event{
			Category: category,
			Kind:     category.ProblemTrigger(),
			Item:     item,
		})
	}
	for _, item := range r.Removed {
		events = append(events, domain.Event{
			Category: category,
			Kind:     category.FixedTrigger(),
			Item:     item,
		})
	}
	return events
}

// itemsNotIn returns the items of list absent from other, comparing whole
// items.
func itemsNotIn(list, other []domain.ProblemItem) []domain.ProblemItem {
	var out []domain.ProblemItem
	for _, item := range list {
		if !contains(other, item) {
			out = append(out, item)
		}
	}
	return out
}

func contains(list []domain.ProblemItem, item domain.ProblemItem) bool {
	for _, candidate := range list {
		if candidate == item {
			return true
		}
	}
	return false
}

func dedupeByID(items []domain.ProblemItem) []domain.ProblemItem {
	seen := make(map[string]struct{}, len(items))
	out := make([]domain.ProblemItem, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.ID]; ok {
			continue
		}
		seen[item.ID] = struct{}{}
		out = append(out, item)
	}
	return out
}
