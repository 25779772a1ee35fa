package domain

import "time"

// SettingsBundle is the single persisted record holding every snapshot, the
// per-category notification toggles and the scheduler settings. It is read
// whole at startup and rewritten whole on every mutation; there are no
// partial updates.
type SettingsBundle struct {
	Snapshots        map[Category][]ProblemItem `json:"snapshots"`
	Notifications    map[Category]bool          `json:"notifications"`
	IntervalMinutes  int                        `json:"interval_minutes"`
	RecurringEnabled bool                       `json:"recurring_enabled"`
	UpdatedAt        time.Time                  `json:"updated_at"`
}

// DefaultBundle is the bundle used before the first successful pass: empty
// snapshots, notifications on, recurring checks enabled.
func DefaultBundle() *SettingsBundle {
	snapshots := make(map[Category][]ProblemItem, len(Categories()))
	notifications := make(map[Category]bool, len(Categories()))
	for _, c := range Categories() {
		snapshots[c] = []ProblemItem{}
		notifications[c] = true
	}
	return &SettingsBundle{
		Snapshots:        snapshots,
		Notifications:    notifications,
		IntervalMinutes:  MinIntervalMinutes,
		RecurringEnabled: true,
	}
}

// Counts returns category -> snapshot size, the shape the display widget
// renders.
func (b *SettingsBundle) Counts() map[Category]int {
	counts := make(map[Category]int, len(b.Snapshots))
	for c, items := range b.Snapshots {
		counts[c] = len(items)
	}
	return counts
}

// ProblemEvent is one appended event-log row: a dispatched state change and
// its outcome.
type ProblemEvent struct {
	ID        string    `json:"id"`
	Category  Category  `json:"category"`
	Kind      string    `json:"kind"`
	ItemID    string    `json:"item_id"`
	ItemName  string    `json:"item_name"`
	Outcome   string    `json:"outcome"`
	CreatedAt time.Time `json:"created_at"`
}

// Dispatch outcomes recorded in the event log.
const (
	OutcomeDelivered = "delivered"
	OutcomeFailed    = "failed"
)
