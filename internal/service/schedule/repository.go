package schedule

import (
	"context"
	"time"

	"github.com/jobpilot/outreach/internal/domain"
)

// Repository defines the storage operations for daily send schedules.
type Repository interface {
	// GetByDate returns the schedule for the given UTC calendar date.
	// Returns ErrNotFound when no schedule exists for that date.
	GetByDate(ctx context.Context, date time.Time) (*domain.Schedule, error)

	// Create inserts a new schedule row for a date.
	Create(ctx context.Context, s *domain.Schedule) error

	// UpdateLimit changes the email limit for an existing date without
	// touching the sent counter.
	UpdateLimit(ctx context.Context, date time.Time, limit int) error

	// IncrementSent atomically advances the sent counter for the date,
	// but only while emails_sent < emails_limit. Returns the updated
	// schedule, ErrQuotaExceeded when the limit is already reached, or
	// ErrNotFound when no row exists for the date.
	IncrementSent(ctx context.Context, date time.Time) (*domain.Schedule, error)

	// Latest returns the schedule with the most recent date, or
	// ErrNotFound when no schedules exist at all.
	Latest(ctx context.Context) (*domain.Schedule, error)
}
