package repository

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowwatch/flowwatch-backend/internal/monitor/domain"
)

// setupTestPostgres connects to the database named by TEST_DB_DSN and skips
// the test when it is not set. The problem_events migration must have been
// applied.
func setupTestPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set, skipping PostgreSQL integration test")
	}

	pool, err := pgxpool.New(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, pool.Ping(context.Background()))
	return pool
}

func TestAppendAndListRecent(t *testing.T) {
	repo := NewEventLogRepository(setupTestPostgres(t))
	ctx := context.Background()

	ev := &domain.ProblemEvent{
		Category: domain.CategoryBroken,
		Kind:     domain.TriggerBroken,
		ItemID:   "f1",
		ItemName: "Morning",
		Outcome:  domain.OutcomeDelivered,
	}
	require.NoError(t, repo.Append(ctx, ev))
	assert.NotEmpty(t, ev.ID, "Append assigns an id")
	assert.False(t, ev.CreatedAt.IsZero())

	events, err := repo.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.NotEmpty(t, events)

	found := false
	for _, got := range events {
		if got.ID == ev.ID {
			found = true
			assert.Equal(t, domain.CategoryBroken, got.Category)
			assert.Equal(t, "Morning", got.ItemName)
			assert.Equal(t, domain.OutcomeDelivered, got.Outcome)
		}
	}
	assert.True(t, found, "appended event present in recent list")
}
