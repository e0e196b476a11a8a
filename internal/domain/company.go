package domain

import "time"

// CompanyStatus enumerates the outreach lifecycle of a target company.
type CompanyStatus string

const (
	CompanyPending       CompanyStatus = "pending"
	CompanyContacted     CompanyStatus = "contacted"
	CompanyResponded     CompanyStatus = "responded"
	CompanyNotInterested CompanyStatus = "not_interested"
	CompanyInterview     CompanyStatus = "interview"
	CompanyRejected      CompanyStatus = "rejected"
)

// Company represents a target company imported into the outreach pipeline.
// Priority runs 1 (highest) to 5 (lowest) and drives selection order.
type Company struct {
	ID            string        `json:"id" db:"id"`
	Name          string        `json:"name" db:"name"`
	Website       string        `json:"website" db:"website"`
	Industry      string        `json:"industry" db:"industry"`
	Location      string        `json:"location" db:"location"`
	Size          string        `json:"size" db:"size"`
	ContactEmail  string        `json:"contact_email" db:"contact_email"`
	EmailVerified bool          `json:"email_verified" db:"email_verified"`
	Priority      int           `json:"priority" db:"priority"`
	Status        CompanyStatus `json:"status" db:"status"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at" db:"updated_at"`
}

// IsTerminal returns true once a company has reached a final outcome and
// should no longer be selected for outreach.
func (c *Company) IsTerminal() bool {
	return c.Status == CompanyNotInterested || c.Status == CompanyRejected
}
