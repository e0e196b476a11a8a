package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

// TrackingEvent is one normalized webhook event as stored in the audit log.
// Payload keeps the provider's raw JSON for later inspection.
type TrackingEvent struct {
	ID         string          `json:"id"`
	EmailID    string          `json:"email_id"`
	Provider   string          `json:"provider"`
	Kind       string          `json:"kind"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
	CreatedAt  time.Time       `json:"created_at"`
}

// EventRepo stores the webhook event audit log.
type EventRepo struct{ db *sql.DB }

// NewEventRepo creates a Postgres-backed event log.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

func (r *EventRepo) Insert(ctx context.Context, e *TrackingEvent) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	payload := pqtype.NullRawMessage{RawMessage: e.Payload, Valid: len(e.Payload) > 0}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO outreach_events (id, email_id, provider, kind, payload, occurred_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
	`, e.ID, e.EmailID, e.Provider, e.Kind, payload, e.OccurredAt)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// Record is the audit-log entry point used by the webhook dispatcher.
func (r *EventRepo) Record(ctx context.Context, emailID, provider, kind string, payload json.RawMessage, occurredAt time.Time) error {
	return r.Insert(ctx, &TrackingEvent{
		EmailID:    emailID,
		Provider:   provider,
		Kind:       kind,
		Payload:    payload,
		OccurredAt: occurredAt,
	})
}

// ListByEmail returns an email's events oldest first.
func (r *EventRepo) ListByEmail(ctx context.Context, emailID string) ([]TrackingEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, email_id, provider, kind, payload, occurred_at, created_at
		FROM outreach_events
		WHERE email_id = $1
		ORDER BY occurred_at ASC
	`, emailID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var out []TrackingEvent
	for rows.Next() {
		var e TrackingEvent
		var payload pqtype.NullRawMessage
		if err := rows.Scan(&e.ID, &e.EmailID, &e.Provider, &e.Kind,
			&payload, &e.OccurredAt, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if payload.Valid {
			e.Payload = payload.RawMessage
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
