package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jobpilot/outreach/internal/domain"
)

const emailColumns = `id, company_id, subject, body, provider,
	       COALESCE(provider_message_id,''), status,
	       sent_at, opened_at, clicked_at, replied_at, bounced_at,
	       created_at, updated_at`

// EmailRepo implements outbound email storage against PostgreSQL.
type EmailRepo struct{ db *sql.DB }

// NewEmailRepo creates a Postgres-backed email repository.
func NewEmailRepo(db *sql.DB) *EmailRepo { return &EmailRepo{db: db} }

func scanEmail(row interface{ Scan(...any) error }) (*domain.EmailRecord, error) {
	e := &domain.EmailRecord{}
	err := row.Scan(
		&e.ID, &e.CompanyID, &e.Subject, &e.Body, &e.Provider,
		&e.ProviderMessageID, &e.Status,
		&e.SentAt, &e.OpenedAt, &e.ClickedAt, &e.RepliedAt, &e.BouncedAt,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan email: %w", err)
	}
	return e, nil
}

func (r *EmailRepo) Get(ctx context.Context, id string) (*domain.EmailRecord, error) {
	row := r.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT %s FROM outreach_emails WHERE id = $1
	`, emailColumns), id)
	return scanEmail(row)
}

// GetByProviderMessageID is the webhook correlation lookup.
func (r *EmailRepo) GetByProviderMessageID(ctx context.Context, messageID string) (*domain.EmailRecord, error) {
	row := r.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT %s FROM outreach_emails WHERE provider_message_id = $1
	`, emailColumns), messageID)
	return scanEmail(row)
}

// Create persists a sent email. SentAt and ProviderMessageID come from the
// delivery provider response.
func (r *EmailRepo) Create(ctx context.Context, e *domain.EmailRecord) (string, error) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Status == "" {
		e.Status = domain.EmailSent
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO outreach_emails
			(id, company_id, subject, body, provider, provider_message_id,
			 status, sent_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6,''), $7, $8, NOW(), NOW())
	`, e.ID, e.CompanyID, e.Subject, e.Body, e.Provider,
		e.ProviderMessageID, e.Status, e.SentAt)
	if err != nil {
		return "", fmt.Errorf("create email: %w", err)
	}
	return e.ID, nil
}

// ListByCompany returns a company's emails, newest first.
func (r *EmailRepo) ListByCompany(ctx context.Context, companyID string) ([]domain.EmailRecord, error) {
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s FROM outreach_emails
		WHERE company_id = $1
		ORDER BY created_at DESC
	`, emailColumns), companyID)
	if err != nil {
		return nil, fmt.Errorf("list emails: %w", err)
	}
	defer rows.Close()

	var out []domain.EmailRecord
	for rows.Next() {
		e, err := scanEmail(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// MarkOpened records an open event. Opens arrive repeatedly and every one
// re-writes the timestamp; there is no dedup.
func (r *EmailRepo) MarkOpened(ctx context.Context, id string, at time.Time) error {
	return r.markEngagement(ctx, id, "opened_at", domain.EmailOpened, at)
}

// MarkClicked records a click event, re-writing the timestamp on repeats.
func (r *EmailRepo) MarkClicked(ctx context.Context, id string, at time.Time) error {
	return r.markEngagement(ctx, id, "clicked_at", domain.EmailClicked, at)
}

// MarkReplied records a reply.
func (r *EmailRepo) MarkReplied(ctx context.Context, id string, at time.Time) error {
	return r.markEngagement(ctx, id, "replied_at", domain.EmailReplied, at)
}

// MarkBounced records a bounce. Bounced is terminal for the record.
func (r *EmailRepo) MarkBounced(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE outreach_emails
		SET status = $1, bounced_at = COALESCE(bounced_at, $2), updated_at = NOW()
		WHERE id = $3
	`, domain.EmailBounced, at, id)
	if err != nil {
		return fmt.Errorf("mark bounced: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// markEngagement stamps one engagement event. The status is applied per
// event, except that bounced is terminal and never overwritten.
func (r *EmailRepo) markEngagement(ctx context.Context, id, tsColumn string, to domain.EmailStatus, at time.Time) error {
	res, err := r.db.ExecContext(ctx, fmt.Sprintf(`
		UPDATE outreach_emails
		SET status = CASE WHEN status = $1 THEN status ELSE $2 END,
		    %s = $3,
		    updated_at = NOW()
		WHERE id = $4
	`, tsColumn), string(domain.EmailBounced), string(to), at, id)
	if err != nil {
		return fmt.Errorf("mark %s: %w", to, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
