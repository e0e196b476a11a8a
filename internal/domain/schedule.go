package domain

import "time"

// ScheduleDateFormat is the canonical wire/storage format for schedule days.
// Schedules are keyed by UTC calendar date; there is exactly one row per day.
const ScheduleDateFormat = "2006-01-02"

// Schedule is the persisted per-day send counter. EmailsSent never exceeds
// EmailsLimit; IsCompleted is derived (sent >= limit) and recomputed on every
// increment.
type Schedule struct {
	ID          string    `json:"id" db:"id"`
	Date        time.Time `json:"date" db:"date"`
	EmailsLimit int       `json:"emails_limit" db:"emails_limit"`
	EmailsSent  int       `json:"emails_sent" db:"emails_sent"`
	IsCompleted bool      `json:"is_completed" db:"is_completed"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Remaining returns the sends left today, never negative.
func (s *Schedule) Remaining() int {
	if r := s.EmailsLimit - s.EmailsSent; r > 0 {
		return r
	}
	return 0
}

// UTCDay truncates t to its UTC calendar date.
func UTCDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
