package domain

import "time"

// EmailStatus enumerates the delivery/engagement lifecycle of a sent email.
// opened and clicked are reachable independently and repeatedly; bounced is
// terminal for the address (the owning company is unverified on bounce).
type EmailStatus string

const (
	EmailDraft   EmailStatus = "draft"
	EmailSent    EmailStatus = "sent"
	EmailOpened  EmailStatus = "opened"
	EmailClicked EmailStatus = "clicked"
	EmailReplied EmailStatus = "replied"
	EmailBounced EmailStatus = "bounced"
)

// EmailRecord is one outbound application email. ProviderMessageID is the
// opaque identifier assigned by the delivery provider at send time and is
// the correlation key for webhook events.
type EmailRecord struct {
	ID                string      `json:"id" db:"id"`
	CompanyID         string      `json:"company_id" db:"company_id"`
	Subject           string      `json:"subject" db:"subject"`
	Body              string      `json:"body" db:"body"`
	Provider          string      `json:"provider" db:"provider"`
	ProviderMessageID string      `json:"provider_message_id" db:"provider_message_id"`
	Status            EmailStatus `json:"status" db:"status"`
	SentAt            *time.Time  `json:"sent_at" db:"sent_at"`
	OpenedAt          *time.Time  `json:"opened_at" db:"opened_at"`
	ClickedAt         *time.Time  `json:"clicked_at" db:"clicked_at"`
	RepliedAt         *time.Time  `json:"replied_at" db:"replied_at"`
	BouncedAt         *time.Time  `json:"bounced_at" db:"bounced_at"`
	CreatedAt         time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at" db:"updated_at"`
}
