package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jobpilot/outreach/internal/domain"
	"github.com/jobpilot/outreach/internal/service/schedule"
)

const scheduleColumns = `id, date, emails_limit, emails_sent, is_completed, created_at, updated_at`

// ScheduleRepo implements schedule.Repository against PostgreSQL.
type ScheduleRepo struct{ db *sql.DB }

// NewScheduleRepo creates a Postgres-backed schedule repository.
func NewScheduleRepo(db *sql.DB) *ScheduleRepo { return &ScheduleRepo{db: db} }

func scanSchedule(row interface{ Scan(...any) error }) (*domain.Schedule, error) {
	s := &domain.Schedule{}
	err := row.Scan(&s.ID, &s.Date, &s.EmailsLimit, &s.EmailsSent, &s.IsCompleted,
		&s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, schedule.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan schedule: %w", err)
	}
	return s, nil
}

func (r *ScheduleRepo) GetByDate(ctx context.Context, date time.Time) (*domain.Schedule, error) {
	row := r.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT %s FROM outreach_schedules WHERE date = $1
	`, scheduleColumns), domain.UTCDay(date))
	return scanSchedule(row)
}

func (r *ScheduleRepo) Create(ctx context.Context, s *domain.Schedule) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO outreach_schedules
			(id, date, emails_limit, emails_sent, is_completed, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (date) DO NOTHING
	`, s.ID, domain.UTCDay(s.Date), s.EmailsLimit, s.EmailsSent, s.IsCompleted)
	if err != nil {
		return fmt.Errorf("create schedule: %w", err)
	}
	return nil
}

func (r *ScheduleRepo) UpdateLimit(ctx context.Context, date time.Time, limit int) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE outreach_schedules
		SET emails_limit = $1, is_completed = emails_sent >= $1, updated_at = NOW()
		WHERE date = $2
	`, limit, domain.UTCDay(date))
	if err != nil {
		return fmt.Errorf("update schedule limit: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return schedule.ErrNotFound
	}
	return nil
}

// IncrementSent advances the sent counter in a single conditional UPDATE.
// The WHERE clause guards the quota, so concurrent runners race on the row
// lock, not on a stale read: once emails_sent reaches emails_limit every
// further attempt affects zero rows.
func (r *ScheduleRepo) IncrementSent(ctx context.Context, date time.Time) (*domain.Schedule, error) {
	day := domain.UTCDay(date)
	row := r.db.QueryRowContext(ctx, fmt.Sprintf(`
		UPDATE outreach_schedules
		SET emails_sent = emails_sent + 1,
		    is_completed = emails_sent + 1 >= emails_limit,
		    updated_at = NOW()
		WHERE date = $1 AND emails_sent < emails_limit
		RETURNING %s
	`, scheduleColumns), day)

	s, err := scanSchedule(row)
	if err == nil {
		return s, nil
	}
	if err != schedule.ErrNotFound {
		return nil, err
	}

	// Zero rows updated: either the day has no schedule or the quota is
	// spent. Distinguish so callers get the right sentinel.
	var exists bool
	if qerr := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM outreach_schedules WHERE date = $1)`, day,
	).Scan(&exists); qerr != nil {
		return nil, fmt.Errorf("check schedule exists: %w", qerr)
	}
	if exists {
		return nil, schedule.ErrQuotaExceeded
	}
	return nil, schedule.ErrNotFound
}

func (r *ScheduleRepo) Latest(ctx context.Context) (*domain.Schedule, error) {
	row := r.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT %s FROM outreach_schedules ORDER BY date DESC LIMIT 1
	`, scheduleColumns))
	return scanSchedule(row)
}
