package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobpilot/outreach/internal/domain"
)

// memRepo is an in-memory Repository that mirrors the conditional-update
// semantics of the Postgres implementation.
type memRepo struct {
	rows map[string]*domain.Schedule
}

func newMemRepo() *memRepo {
	return &memRepo{rows: make(map[string]*domain.Schedule)}
}

func (r *memRepo) key(date time.Time) string {
	return date.Format(domain.ScheduleDateFormat)
}

func (r *memRepo) GetByDate(_ context.Context, date time.Time) (*domain.Schedule, error) {
	s, ok := r.rows[r.key(date)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *memRepo) Create(_ context.Context, s *domain.Schedule) error {
	cp := *s
	r.rows[r.key(s.Date)] = &cp
	return nil
}

func (r *memRepo) UpdateLimit(_ context.Context, date time.Time, limit int) error {
	s, ok := r.rows[r.key(date)]
	if !ok {
		return ErrNotFound
	}
	s.EmailsLimit = limit
	return nil
}

func (r *memRepo) IncrementSent(_ context.Context, date time.Time) (*domain.Schedule, error) {
	s, ok := r.rows[r.key(date)]
	if !ok {
		return nil, ErrNotFound
	}
	if s.EmailsSent >= s.EmailsLimit {
		return nil, ErrQuotaExceeded
	}
	s.EmailsSent++
	s.IsCompleted = s.EmailsSent >= s.EmailsLimit
	cp := *s
	return &cp, nil
}

func (r *memRepo) Latest(_ context.Context) (*domain.Schedule, error) {
	var latest *domain.Schedule
	for _, s := range r.rows {
		if latest == nil || s.Date.After(latest.Date) {
			latest = s
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

func TestIncrementSentStopsAtLimit(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, 10, 5)
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC)

	_, err := svc.CreateOrUpdate(ctx, now, 2)
	require.NoError(t, err)

	s, err := svc.IncrementSent(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, s.EmailsSent)
	assert.False(t, s.IsCompleted)

	s, err = svc.IncrementSent(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 2, s.EmailsSent)
	assert.True(t, s.IsCompleted)

	// Quota is exhausted exactly at sent == limit.
	_, err = svc.IncrementSent(ctx, now)
	assert.ErrorIs(t, err, ErrQuotaExceeded)
}

func TestIncrementSentMissingDay(t *testing.T) {
	svc := NewService(newMemRepo(), 10, 5)
	_, err := svc.IncrementSent(context.Background(), time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRemainingQuotaCreatesTodayLazily(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, 25, 5)
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	remaining, err := svc.RemainingQuota(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 25, remaining)

	// The lazily created row is persisted for the rest of the day.
	s, err := svc.Get(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 25, s.EmailsLimit)
	assert.Equal(t, 0, s.EmailsSent)
}

func TestCreateOrUpdateKeepsSentCounter(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, 10, 5)
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	_, err := svc.CreateOrUpdate(ctx, now, 10)
	require.NoError(t, err)
	_, err = svc.IncrementSent(ctx, now)
	require.NoError(t, err)

	s, err := svc.CreateOrUpdate(ctx, now, 50)
	require.NoError(t, err)
	assert.Equal(t, 50, s.EmailsLimit)
	assert.Equal(t, 1, s.EmailsSent)
}

func TestCreateOrUpdateRejectsNonPositiveLimit(t *testing.T) {
	svc := NewService(newMemRepo(), 10, 5)
	_, err := svc.CreateOrUpdate(context.Background(), time.Now(), 0)
	assert.Error(t, err)
}

func TestGenerateFromScratch(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, 20, 10)
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 16, 45, 0, 0, time.UTC)

	created, err := svc.Generate(ctx, now, 3)
	require.NoError(t, err)
	require.Len(t, created, 3)

	// Day zero starts today at the default limit; each following day
	// ramps by the increment.
	assert.Equal(t, "2025-03-10", created[0].Date.Format(domain.ScheduleDateFormat))
	assert.Equal(t, 20, created[0].EmailsLimit)
	assert.Equal(t, "2025-03-11", created[1].Date.Format(domain.ScheduleDateFormat))
	assert.Equal(t, 30, created[1].EmailsLimit)
	assert.Equal(t, "2025-03-12", created[2].Date.Format(domain.ScheduleDateFormat))
	assert.Equal(t, 40, created[2].EmailsLimit)
}

func TestGenerateContinuesFromLatest(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, 20, 10)
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

	_, err := svc.CreateOrUpdate(ctx, time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC), 60)
	require.NoError(t, err)

	created, err := svc.Generate(ctx, now, 2)
	require.NoError(t, err)
	require.Len(t, created, 2)

	// The ramp continues from the latest existing schedule, not from today.
	assert.Equal(t, "2025-03-13", created[0].Date.Format(domain.ScheduleDateFormat))
	assert.Equal(t, 70, created[0].EmailsLimit)
	assert.Equal(t, "2025-03-14", created[1].Date.Format(domain.ScheduleDateFormat))
	assert.Equal(t, 80, created[1].EmailsLimit)
}
