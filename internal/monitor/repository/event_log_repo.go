package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flowwatch/flowwatch-backend/internal/monitor/domain"
)

// EventLogRepository appends dispatched problem events to postgres as an
// audit trail behind the notification timeline.
type EventLogRepository struct {
	db *pgxpool.Pool
}

// NewEventLogRepository creates a new EventLogRepository
func NewEventLogRepository(db *pgxpool.Pool) *EventLogRepository {
	return &EventLogRepository{db: db}
}

// Append inserts one event row. The row is append-only; there is no update
// path.
func (r *EventLogRepository) Append(ctx context.Context, ev *domain.ProblemEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO problem_events (id, category, kind, item_id, item_name, outcome, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.Exec(ctx, query,
		ev.ID,
		string(ev.Category),
		ev.Kind,
		ev.ItemID,
		ev.ItemName,
		ev.Outcome,
		ev.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append problem event: %w", err)
	}

	return nil
}

// ListRecent returns the newest events first, capped at limit.
func (r *EventLogRepository) ListRecent(ctx context.Context, limit int) ([]domain.ProblemEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, category, kind, item_id, item_name, outcome, created_at
		FROM problem_events
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list problem events: %w", err)
	}
	defer rows.Close()

	var events []domain.ProblemEvent
	for rows.Next() {
		var ev domain.ProblemEvent
		var category string
		if err := rows.Scan(&ev.ID, &category, &ev.Kind, &ev.ItemID, &ev.ItemName, &ev.Outcome, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan problem event: %w", err)
		}
		ev.Category = domain.Category(category)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate problem events: %w", err)
	}

	return events, nil
}
