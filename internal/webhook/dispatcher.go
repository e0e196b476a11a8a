package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jobpilot/outreach/internal/domain"
	"github.com/jobpilot/outreach/internal/pkg/logger"
)

// EmailStore is the slice of email storage the dispatcher needs.
type EmailStore interface {
	GetByProviderMessageID(ctx context.Context, messageID string) (*domain.EmailRecord, error)
	MarkOpened(ctx context.Context, id string, at time.Time) error
	MarkClicked(ctx context.Context, id string, at time.Time) error
	MarkBounced(ctx context.Context, id string, at time.Time) error
}

// CompanyStore is the slice of company storage the dispatcher needs.
type CompanyStore interface {
	SetEmailVerified(ctx context.Context, id string, verified bool) error
}

// EventLog records every processed event for auditing. A nil log disables
// auditing.
type EventLog interface {
	Record(ctx context.Context, emailID, provider, kind string, payload json.RawMessage, occurredAt time.Time) error
}

// Skip details the single-event handler matches on.
const (
	detailNoMessageID    = "event has no message id"
	detailUnknownMessage = "no email for message id"
)

// Dispatcher applies normalized events to the store.
type Dispatcher struct {
	emails    EmailStore
	companies CompanyStore
	events    EventLog
}

// NewDispatcher creates a dispatcher over the given stores.
func NewDispatcher(emails EmailStore, companies CompanyStore, events EventLog) *Dispatcher {
	return &Dispatcher{emails: emails, companies: companies, events: events}
}

// Dispatch processes each event independently and reports per-event
// outcomes. Unknown message ids are skips, not failures: providers replay
// events for mail this system never sent.
func (d *Dispatcher) Dispatch(ctx context.Context, provider string, events []Event) []Result {
	results := make([]Result, 0, len(events))
	for _, e := range events {
		results = append(results, d.dispatchOne(ctx, provider, e))
	}
	return results
}

func (d *Dispatcher) dispatchOne(ctx context.Context, provider string, e Event) Result {
	res := Result{Kind: e.Kind, ProviderMessageID: e.ProviderMessageID}

	if e.ProviderMessageID == "" {
		res.Outcome = OutcomeSkipped
		res.Detail = detailNoMessageID
		return res
	}

	email, err := d.emails.GetByProviderMessageID(ctx, e.ProviderMessageID)
	if errors.Is(err, domain.ErrNotFound) {
		res.Outcome = OutcomeSkipped
		res.Detail = detailUnknownMessage
		return res
	}
	if err != nil {
		res.Outcome = OutcomeFailed
		res.Detail = err.Error()
		return res
	}

	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	switch e.Kind {
	case KindOpen:
		err = d.emails.MarkOpened(ctx, email.ID, ts)
	case KindClick:
		err = d.emails.MarkClicked(ctx, email.ID, ts)
	case KindBounce:
		err = d.handleBounce(ctx, email, ts)
	default:
		res.Outcome = OutcomeSkipped
		res.Detail = fmt.Sprintf("unsupported kind %q", e.Kind)
		return res
	}
	if err != nil {
		logger.Error("webhook event failed",
			"provider", provider, "kind", string(e.Kind),
			"message_id", e.ProviderMessageID, "error", err)
		res.Outcome = OutcomeFailed
		res.Detail = err.Error()
		return res
	}

	if d.events != nil {
		if logErr := d.events.Record(ctx, email.ID, provider, string(e.Kind), e.Raw, ts); logErr != nil {
			// Audit trail is best effort; the state change already landed.
			logger.Warn("event audit record failed", "email_id", email.ID, "error", logErr)
		}
	}

	res.Outcome = OutcomeProcessed
	return res
}

// handleBounce stamps the email and unverifies the company's address. The
// company keeps its lifecycle status; only the verification flag drops so
// a future discovery pass can find a fresh address.
func (d *Dispatcher) handleBounce(ctx context.Context, email *domain.EmailRecord, ts time.Time) error {
	if err := d.emails.MarkBounced(ctx, email.ID, ts); err != nil {
		return err
	}
	if err := d.companies.SetEmailVerified(ctx, email.CompanyID, false); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("unverify company %s: %w", email.CompanyID, err)
	}
	return nil
}
