package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jobpilot/outreach/internal/domain"
	"github.com/jobpilot/outreach/internal/pkg/logger"
)

// Service manages daily send schedules and the warm-up ramp.
type Service struct {
	repo            Repository
	defaultLimit    int
	warmupIncrement int
}

// NewService creates a schedule service. defaultLimit is the quota used for
// a day that has no schedule yet; warmupIncrement is the per-day ramp applied
// when generating future schedules.
func NewService(repo Repository, defaultLimit, warmupIncrement int) *Service {
	return &Service{
		repo:            repo,
		defaultLimit:    defaultLimit,
		warmupIncrement: warmupIncrement,
	}
}

// Get returns the schedule for the given date, or ErrNotFound.
func (s *Service) Get(ctx context.Context, date time.Time) (*domain.Schedule, error) {
	return s.repo.GetByDate(ctx, domain.UTCDay(date))
}

// CreateOrUpdate sets the email limit for a date. An existing row keeps its
// sent counter; lowering the limit below the current sent count is allowed
// and simply means no further sends happen that day.
func (s *Service) CreateOrUpdate(ctx context.Context, date time.Time, limit int) (*domain.Schedule, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("schedule limit must be positive, got %d", limit)
	}
	day := domain.UTCDay(date)

	existing, err := s.repo.GetByDate(ctx, day)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		sched := &domain.Schedule{Date: day, EmailsLimit: limit}
		if err := s.repo.Create(ctx, sched); err != nil {
			return nil, err
		}
		logger.Info("schedule created",
			"date", day.Format(domain.ScheduleDateFormat),
			"limit", limit)
		return sched, nil
	}

	if err := s.repo.UpdateLimit(ctx, day, limit); err != nil {
		return nil, err
	}
	existing.EmailsLimit = limit
	logger.Info("schedule limit updated",
		"date", day.Format(domain.ScheduleDateFormat),
		"limit", limit)
	return existing, nil
}

// IncrementSent records one sent email against the date's quota. The
// underlying update is conditional on emails_sent < emails_limit, so two
// concurrent runners can never push the counter past the limit. Returns
// ErrQuotaExceeded when the quota is already exhausted.
func (s *Service) IncrementSent(ctx context.Context, date time.Time) (*domain.Schedule, error) {
	return s.repo.IncrementSent(ctx, domain.UTCDay(date))
}

// RemainingQuota reports how many more emails may be sent today. When today
// has no schedule yet, one is created with the default limit so the first
// run of a new deployment can send immediately.
func (s *Service) RemainingQuota(ctx context.Context, now time.Time) (int, error) {
	day := domain.UTCDay(now)
	sched, err := s.repo.GetByDate(ctx, day)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return 0, err
		}
		sched = &domain.Schedule{Date: day, EmailsLimit: s.defaultLimit}
		if err := s.repo.Create(ctx, sched); err != nil {
			return 0, err
		}
		logger.Info("schedule created with default limit",
			"date", day.Format(domain.ScheduleDateFormat),
			"limit", s.defaultLimit)
	}
	return sched.Remaining(), nil
}

// Generate creates schedules for the next days following the warm-up ramp.
// With an existing latest schedule at limit L, the k-th new day gets limit
// L + k*increment. With no prior schedule the ramp starts today at the
// default limit. Dates that already have a schedule are left untouched.
func (s *Service) Generate(ctx context.Context, now time.Time, days int) ([]*domain.Schedule, error) {
	if days <= 0 {
		return nil, fmt.Errorf("days must be positive, got %d", days)
	}

	start := domain.UTCDay(now)
	baseLimit := s.defaultLimit
	offset := 0

	latest, err := s.repo.Latest(ctx)
	switch {
	case err == nil:
		baseLimit = latest.EmailsLimit
		start = latest.Date.AddDate(0, 0, 1)
		offset = 1
	case errors.Is(err, ErrNotFound):
		// First ever generation: day zero is today at the default limit.
	default:
		return nil, err
	}

	created := make([]*domain.Schedule, 0, days)
	for k := 0; k < days; k++ {
		sched := &domain.Schedule{
			Date:        start.AddDate(0, 0, k),
			EmailsLimit: baseLimit + (k+offset)*s.warmupIncrement,
		}
		if err := s.repo.Create(ctx, sched); err != nil {
			return created, err
		}
		created = append(created, sched)
	}
	logger.Info("warm-up schedules generated",
		"count", len(created),
		"start", start.Format(domain.ScheduleDateFormat))
	return created, nil
}
