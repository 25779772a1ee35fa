package repository

import (
	"context"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowwatch/flowwatch-backend/internal/monitor/domain"
)

func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestLoadMissingBundleYieldsDefaults(t *testing.T) {
	repo := NewSettingsRepository(setupTestRedis(t))

	bundle, err := repo.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.MinIntervalMinutes, bundle.IntervalMinutes)
	assert.True(t, bundle.RecurringEnabled)
	for _, cat := range domain.Categories() {
		assert.Empty(t, bundle.Snapshots[cat])
		assert.True(t, bundle.Notifications[cat])
	}
}

func TestSaveLoadRoundtrip(t *testing.T) {
	repo := NewSettingsRepository(setupTestRedis(t))
	ctx := context.Background()

	bundle := domain.DefaultBundle()
	bundle.Snapshots[domain.CategoryBroken] = []domain.ProblemItem{{Name: "Morning", ID: "f1"}}
	bundle.Notifications[domain.CategoryDisabled] = false
	bundle.IntervalMinutes = 10
	require.NoError(t, repo.Save(ctx, bundle))

	loaded, err := repo.Load(ctx)
	require.NoError(t, err)

	assert.Equal(t, bundle.Snapshots[domain.CategoryBroken], loaded.Snapshots[domain.CategoryBroken])
	assert.False(t, loaded.Notifications[domain.CategoryDisabled])
	assert.Equal(t, 10, loaded.IntervalMinutes)
	assert.False(t, loaded.UpdatedAt.IsZero())
}

// Bundles written before a category existed come back with that category
// backfilled, so callers can index without nil checks.
func TestLoadBackfillsMissingCategories(t *testing.T) {
	client := setupTestRedis(t)
	repo := NewSettingsRepository(client)
	ctx := context.Background()

	partial := `{"snapshots":{"BROKEN":[{"name":"Morning","id":"f1"}]},"notifications":{"BROKEN":false},"interval_minutes":5,"recurring_enabled":true}`
	require.NoError(t, client.Set(ctx, bundleKey, partial, 0).Err())

	bundle, err := repo.Load(ctx)
	require.NoError(t, err)

	assert.Len(t, bundle.Snapshots[domain.CategoryBroken], 1)
	assert.False(t, bundle.Notifications[domain.CategoryBroken])
	assert.Empty(t, bundle.Snapshots[domain.CategoryUnusedLogic])
	assert.True(t, bundle.Notifications[domain.CategoryUnusedLogic])
}

// Concurrent Update calls serialize around the whole-bundle rewrite: no
// category swap may be lost to a racing writer.
func TestUpdateSerializesConcurrentWriters(t *testing.T) {
	repo := NewSettingsRepository(setupTestRedis(t))
	ctx := context.Background()

	categories := domain.Categories()
	var wg sync.WaitGroup
	for _, cat := range categories {
		wg.Add(1)
		go func(cat domain.Category) {
			defer wg.Done()
			_, err := repo.Update(ctx, func(b *domain.SettingsBundle) error {
				b.Snapshots[cat] = []domain.ProblemItem{{Name: string(cat), ID: "id-" + string(cat)}}
				return nil
			})
			assert.NoError(t, err)
		}(cat)
	}
	wg.Wait()

	bundle, err := repo.Load(ctx)
	require.NoError(t, err)
	for _, cat := range categories {
		assert.Len(t, bundle.Snapshots[cat], 1, "lost update for %s", cat)
	}
}

func TestUpdateMutateErrorAbortsWrite(t *testing.T) {
	repo := NewSettingsRepository(setupTestRedis(t))
	ctx := context.Background()

	bundle := domain.DefaultBundle()
	bundle.IntervalMinutes = 7
	require.NoError(t, repo.Save(ctx, bundle))

	_, err := repo.Update(ctx, func(b *domain.SettingsBundle) error {
		b.IntervalMinutes = 99
		return assert.AnError
	})
	require.Error(t, err)

	loaded, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, loaded.IntervalMinutes)
}
