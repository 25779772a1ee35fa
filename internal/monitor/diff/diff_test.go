package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowwatch/flowwatch-backend/internal/monitor/domain"
)

func item(id, name string) domain.ProblemItem {
	return domain.ProblemItem{ID: id, Name: name}
}

func TestCompareFirstProblemAppears(t *testing.T) {
	res := Compare(nil, []domain.ProblemItem{item("f1", "Morning")})

	require.True(t, res.Changed)
	assert.Equal(t, []domain.ProblemItem{item("f1", "Morning")}, res.Added)
	assert.Empty(t, res.Removed)
	assert.Equal(t, []domain.ProblemItem{item("f1", "Morning")}, res.Snapshot)
}

func TestCompareProblemResolved(t *testing.T) {
	res := Compare([]domain.ProblemItem{item("f1", "Morning")}, nil)

	require.True(t, res.Changed)
	assert.Empty(t, res.Added)
	assert.Equal(t, []domain.ProblemItem{item("f1", "Morning")}, res.Removed)
	assert.Empty(t, res.Snapshot)
}

// Equal-length inputs perform no comparison at all, even when the contents
// differ. A simultaneous same-size swap is invisible; this pins that
// behavior.
func TestCompareEqualLengthShortCircuits(t *testing.T) {
	previous := []domain.ProblemItem{item("f1", "Morning"), item("f2", "Evening")}
	current := []domain.ProblemItem{item("f3", "Night"), item("f4", "Noon")}

	res := Compare(previous, current)

	assert.False(t, res.Changed)
	assert.Empty(t, res.Added)
	assert.Empty(t, res.Removed)
	assert.Nil(t, res.Snapshot)
}

// Added and removed partition exactly the symmetric difference when the
// lengths differ.
func TestCompareSymmetricDifference(t *testing.T) {
	previous := []domain.ProblemItem{item("a", "A"), item("b", "B"), item("c", "C")}
	current := []domain.ProblemItem{item("b", "B"), item("d", "D")}

	res := Compare(previous, current)

	require.True(t, res.Changed)
	assert.Equal(t, []domain.ProblemItem{item("d", "D")}, res.Added)
	assert.Equal(t, []domain.ProblemItem{item("a", "A"), item("c", "C")}, res.Removed)
}

// Membership is by whole item: a rename with a stable id counts as one
// removed plus one added.
func TestCompareRenameIsRemovedPlusAdded(t *testing.T) {
	previous := []domain.ProblemItem{item("f1", "Old name"), item("f2", "Other")}
	current := []domain.ProblemItem{item("f1", "New name")}

	res := Compare(previous, current)

	require.True(t, res.Changed)
	assert.Contains(t, res.Added, item("f1", "New name"))
	assert.Contains(t, res.Removed, item("f1", "Old name"))
}

func TestCompareSnapshotDeduplicatedByID(t *testing.T) {
	current := []domain.ProblemItem{item("f1", "Morning"), item("f1", "Morning copy"), item("f2", "Evening")}

	res := Compare(nil, current)

	require.True(t, res.Changed)
	assert.Equal(t, []domain.ProblemItem{item("f1", "Morning"), item("f2", "Evening")}, res.Snapshot)
}

func TestEventsAddedAndRemovedKinds(t *testing.T) {
	res := Compare(
		[]domain.ProblemItem{item("f1", "Morning")},
		[]domain.ProblemItem{item("f2", "Evening"), item("f3", "Night")},
	)
	require.True(t, res.Changed)

	events := res.Events(domain.CategoryBroken)
	require.Len(t, events, 3)

	kinds := map[string]int{}
	for _, ev := range events {
		kinds[ev.Kind]++
		assert.Equal(t, domain.CategoryBroken, ev.Category)
	}
	assert.Equal(t, 2, kinds[domain.TriggerBroken])
	assert.Equal(t, 1, kinds[domain.TriggerFixed])
}

func TestEventsLogicCategoryUsesLogicFixedTrigger(t *testing.T) {
	res := Compare([]domain.ProblemItem{item("v1", "temp")}, nil)
	require.True(t, res.Changed)

	events := res.Events(domain.CategoryUnusedLogic)
	require.Len(t, events, 1)
	assert.Equal(t, domain.TriggerFixedLogic, events[0].Kind)
}

func TestEventsUnchangedResultYieldsNone(t *testing.T) {
	res := Compare(nil, nil)
	assert.Nil(t, res.Events(domain.CategoryBroken))
}
