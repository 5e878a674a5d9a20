package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/journalpay/internal/outbox/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, event *domain.Event) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO outbox_events (
			id, event_id, event_type, aggregate_id, topic, payload, status, attempts, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID,
		event.EventID,
		event.EventType,
		event.AggregateID,
		event.Topic,
		event.Payload,
		event.Status,
		event.Attempts,
		event.CreatedAt,
	).Error
}

func (r *repo) ListPending(ctx context.Context, db *gorm.DB, limit int) ([]domain.Event, error) {
	var events []domain.Event
	err := db.WithContext(ctx).Raw(
		`SELECT id, event_id, event_type, aggregate_id, topic, payload, status,
			attempts, last_error, created_at, sent_at
		 FROM outbox_events
		 WHERE status = ?
		 ORDER BY created_at ASC, id ASC
		 LIMIT ?`,
		domain.StatusPending,
		limit,
	).Scan(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (r *repo) MarkSent(ctx context.Context, db *gorm.DB, id snowflake.ID, sentAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE outbox_events
		 SET status = ?, sent_at = ?, attempts = attempts + 1, last_error = NULL
		 WHERE id = ?`,
		domain.StatusSent,
		sentAt,
		id,
	).Error
}

func (r *repo) RecordFailure(ctx context.Context, db *gorm.DB, id snowflake.ID, lastErr string, giveUp bool) error {
	status := domain.StatusPending
	if giveUp {
		status = domain.StatusFailed
	}
	return db.WithContext(ctx).Exec(
		`UPDATE outbox_events
		 SET status = ?, attempts = attempts + 1, last_error = ?
		 WHERE id = ?`,
		status,
		lastErr,
		id,
	).Error
}
