package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/flowwatch/flowwatch-backend/internal/monitor/domain"
)

const bundleKey = "monitor:settings:bundle" // the single whole-bundle record

// SettingsRepository persists the settings bundle as one JSON blob in redis.
// Every mutation rewrites the whole bundle; Update serializes concurrent
// read-modify-write cycles so overlapping category passes cannot lose each
// other's snapshot swaps.
type SettingsRepository struct {
	client *redis.Client
	mu     sync.Mutex
}

// NewSettingsRepository creates a new SettingsRepository
func NewSettingsRepository(client *redis.Client) *SettingsRepository {
	return &SettingsRepository{client: client}
}

// Load reads the whole bundle. A missing key yields the default bundle, not
// an error.
func (r *SettingsRepository) Load(ctx context.Context) (*domain.SettingsBundle, error) {
	data, err := r.client.Get(ctx, bundleKey).Result()
	if err == redis.Nil {
		return domain.DefaultBundle(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settings bundle: %w", err)
	}

	var bundle domain.SettingsBundle
	if err := json.Unmarshal([]byte(data), &bundle); err != nil {
		return nil, fmt.Errorf("failed to unmarshal settings bundle: %w", err)
	}

	// Older bundles may predate a category; backfill so callers can index
	// every category without nil checks.
	defaults := domain.DefaultBundle()
	if bundle.Snapshots == nil {
		bundle.Snapshots = defaults.Snapshots
	}
	if bundle.Notifications == nil {
		bundle.Notifications = defaults.Notifications
	}
	for _, c := range domain.Categories() {
		if _, ok := bundle.Snapshots[c]; !ok {
			bundle.Snapshots[c] = []domain.ProblemItem{}
		}
		if _, ok := bundle.Notifications[c]; !ok {
			bundle.Notifications[c] = true
		}
	}

	return &bundle, nil
}

// Save rewrites the whole bundle.
func (r *SettingsRepository) Save(ctx context.Context, bundle *domain.SettingsBundle) error {
	bundle.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(bundle)
	if err != nil {
		return fmt.Errorf("failed to marshal settings bundle: %w", err)
	}

	if err := r.client.Set(ctx, bundleKey, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save settings bundle: %w", err)
	}

	return nil
}

// Update runs one serialized read-modify-write cycle. mutate works on a
// fresh copy of the persisted bundle; the rewritten bundle is returned.
// Last full-bundle write wins between processes, so all writers in this
// process must come through here.
func (r *SettingsRepository) Update(ctx context.Context, mutate func(*domain.SettingsBundle) error) (*domain.SettingsBundle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	bundle, err := r.Load(ctx)
	if err != nil {
		return nil, err
	}

	if err := mutate(bundle); err != nil {
		return nil, err
	}

	if err := r.Save(ctx, bundle); err != nil {
		return nil, err
	}

	return bundle, nil
}
