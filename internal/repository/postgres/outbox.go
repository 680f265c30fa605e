package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

// maxOutboxRetries is how many failed publishes an event gets before it is
// parked as failed.
const maxOutboxRetries = 5

type outboxRepository struct {
	BaseRepository
}

func NewOutboxRepository(base BaseRepository) repository.OutboxRepository {
	return &outboxRepository{base}
}

func (r *outboxRepository) Create(ctx context.Context, event *model.OutboxEvent) error {
	return insertOutboxEvent(ctx, r.db, event)
}

func insertOutboxEvent(ctx context.Context, db sqlx.ExtContext, event *model.OutboxEvent) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}
	if event.Payload == nil {
		return fmt.Errorf("event payload cannot be nil")
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO outbox_events (id, event_type, payload, status, retry_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, event.ID, event.EventType, []byte(event.Payload), event.Status, event.RetryCount,
		event.CreatedAt, event.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create outbox event: %w", err)
	}
	return nil
}

func (r *outboxRepository) ProcessPending(ctx context.Context, limit int, fn func(*model.OutboxEvent) error) (int, error) {
	processed := 0
	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		var events []*model.OutboxEvent
		err := tx.SelectContext(ctx, &events, `
			SELECT id, event_type, payload, status, error_message, retry_count, created_at, processed_at, updated_at
			FROM outbox_events
			WHERE status = 'pending'
			ORDER BY created_at, id
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		`, limit)
		if err != nil {
			return fmt.Errorf("failed to get pending events: %w", err)
		}

		for _, event := range events {
			now := time.Now().UTC()
			if fnErr := fn(event); fnErr != nil {
				msg := fnErr.Error()
				status := model.OutboxStatusPending
				if event.RetryCount+1 >= maxOutboxRetries {
					status = model.OutboxStatusFailed
				}
				if _, err := tx.ExecContext(ctx, `
					UPDATE outbox_events
					SET status = $1, error_message = $2, retry_count = retry_count + 1, updated_at = $3
					WHERE id = $4
				`, status, msg, now, event.ID); err != nil {
					return fmt.Errorf("failed to record outbox failure: %w", err)
				}
				continue
			}

			if _, err := tx.ExecContext(ctx, `
				UPDATE outbox_events
				SET status = $1, error_message = NULL, processed_at = $2, updated_at = $2
				WHERE id = $3
			`, model.OutboxStatusProcessed, now, event.ID); err != nil {
				return fmt.Errorf("failed to mark outbox event processed: %w", err)
			}
			processed++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return processed, nil
}

func (r *outboxRepository) PendingCount(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM outbox_events WHERE status = 'pending'`); err != nil {
		return 0, fmt.Errorf("failed to count pending events: %w", err)
	}
	return n, nil
}
