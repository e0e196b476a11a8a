package schedule

import "github.com/jobpilot/outreach/internal/domain"

// Aliased so repository implementations and callers can match either
// schedule.ErrNotFound or domain.ErrNotFound with errors.Is.
var (
	ErrNotFound      = domain.ErrNotFound
	ErrQuotaExceeded = domain.ErrQuotaExceeded
)
