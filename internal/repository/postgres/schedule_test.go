package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobpilot/outreach/internal/domain"
	"github.com/jobpilot/outreach/internal/service/schedule"
)

func setupMockDB(t *testing.T) (*ScheduleRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewScheduleRepo(db), mock
}

func scheduleRows(date time.Time, limit, sent int, completed bool) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "date", "emails_limit", "emails_sent", "is_completed", "created_at", "updated_at",
	}).AddRow("sched-1", date, limit, sent, completed, now, now)
}

func TestIncrementSentAtomicUpdate(t *testing.T) {
	repo, mock := setupMockDB(t)
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`UPDATE outreach_schedules`).
		WithArgs(day).
		WillReturnRows(scheduleRows(day, 10, 4, false))

	s, err := repo.IncrementSent(context.Background(), day)
	require.NoError(t, err)
	assert.Equal(t, 4, s.EmailsSent)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIncrementSentQuotaExceeded(t *testing.T) {
	repo, mock := setupMockDB(t)
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	// The guarded UPDATE matches no row once the limit is reached; the
	// follow-up existence check distinguishes exhausted from missing.
	mock.ExpectQuery(`UPDATE outreach_schedules`).
		WithArgs(day).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "date", "emails_limit", "emails_sent", "is_completed", "created_at", "updated_at",
		}))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(day).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	_, err := repo.IncrementSent(context.Background(), day)
	assert.ErrorIs(t, err, schedule.ErrQuotaExceeded)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIncrementSentMissingSchedule(t *testing.T) {
	repo, mock := setupMockDB(t)
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`UPDATE outreach_schedules`).
		WithArgs(day).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "date", "emails_limit", "emails_sent", "is_completed", "created_at", "updated_at",
		}))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(day).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	_, err := repo.IncrementSent(context.Background(), day)
	assert.ErrorIs(t, err, schedule.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByDateTruncatesToUTCDay(t *testing.T) {
	repo, mock := setupMockDB(t)
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT .+ FROM outreach_schedules WHERE date`).
		WithArgs(day).
		WillReturnRows(scheduleRows(day, 20, 0, false))

	// A mid-day local timestamp resolves to the same UTC calendar row.
	s, err := repo.GetByDate(context.Background(), day.Add(15*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, domain.UTCDay(day), domain.UTCDay(s.Date))
	assert.NoError(t, mock.ExpectationsWereMet())
}
