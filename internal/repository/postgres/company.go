package postgres

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/jobpilot/outreach/internal/domain"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const companyColumns = `id, name, website, industry, location, size,
	       COALESCE(contact_email,''), email_verified, priority, status,
	       created_at, updated_at`

// CompanyRepo implements company storage against PostgreSQL.
type CompanyRepo struct{ db *sql.DB }

// NewCompanyRepo creates a Postgres-backed company repository.
func NewCompanyRepo(db *sql.DB) *CompanyRepo { return &CompanyRepo{db: db} }

func scanCompany(row interface{ Scan(...any) error }) (*domain.Company, error) {
	c := &domain.Company{}
	err := row.Scan(
		&c.ID, &c.Name, &c.Website, &c.Industry, &c.Location, &c.Size,
		&c.ContactEmail, &c.EmailVerified, &c.Priority, &c.Status,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan company: %w", err)
	}
	return c, nil
}

func (r *CompanyRepo) Get(ctx context.Context, id string) (*domain.Company, error) {
	row := r.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT %s FROM outreach_companies WHERE id = $1
	`, companyColumns), id)
	return scanCompany(row)
}

func (r *CompanyRepo) Create(ctx context.Context, c *domain.Company) (string, error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.Status == "" {
		c.Status = domain.CompanyPending
	}
	if c.Priority == 0 {
		c.Priority = 3
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO outreach_companies
			(id, name, website, industry, location, size, contact_email,
			 email_verified, priority, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7,''), $8, $9, $10, NOW(), NOW())
	`, c.ID, c.Name, c.Website, c.Industry, c.Location, c.Size,
		c.ContactEmail, c.EmailVerified, c.Priority, c.Status)
	if err != nil {
		return "", fmt.Errorf("create company: %w", err)
	}
	return c.ID, nil
}

// ListFilter narrows company listings. Zero values mean "any".
type ListFilter struct {
	Status        domain.CompanyStatus
	EmailVerified *bool
	Limit         int
	Offset        int
}

// List returns companies matching the filter, most recently added first.
func (r *CompanyRepo) List(ctx context.Context, f ListFilter) ([]domain.Company, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	b := psql.Select("id", "name", "website", "industry", "location", "size",
		"COALESCE(contact_email,'')", "email_verified", "priority", "status",
		"created_at", "updated_at").
		From("outreach_companies").
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		Offset(uint64(f.Offset))
	if f.Status != "" {
		b = b.Where(sq.Eq{"status": f.Status})
	}
	if f.EmailVerified != nil {
		b = b.Where(sq.Eq{"email_verified": *f.EmailVerified})
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	defer rows.Close()

	var out []domain.Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// SelectEligible returns up to limit companies that are verified, still
// pending, and ordered by priority then age. This is the daily-run pick.
// A verified company without an address on file is still eligible; the
// orchestrator runs discovery for it.
func (r *CompanyRepo) SelectEligible(ctx context.Context, limit int) ([]domain.Company, error) {
	query, args, err := psql.Select("id", "name", "website", "industry", "location", "size",
		"COALESCE(contact_email,'')", "email_verified", "priority", "status",
		"created_at", "updated_at").
		From("outreach_companies").
		Where(sq.Eq{"email_verified": true, "status": domain.CompanyPending}).
		OrderBy("priority ASC", "created_at ASC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build eligible query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select eligible companies: %w", err)
	}
	defer rows.Close()

	var out []domain.Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// UpdateStatus moves a company through its outreach lifecycle.
func (r *CompanyRepo) UpdateStatus(ctx context.Context, id string, status domain.CompanyStatus) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE outreach_companies SET status = $1, updated_at = NOW()
		WHERE id = $2
	`, status, id)
	if err != nil {
		return fmt.Errorf("update company status: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// UpdateContactEmail stores a discovered address and its verification state.
func (r *CompanyRepo) UpdateContactEmail(ctx context.Context, id, email string, verified bool) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE outreach_companies
		SET contact_email = NULLIF($1,''), email_verified = $2, updated_at = NOW()
		WHERE id = $3
	`, email, verified, id)
	if err != nil {
		return fmt.Errorf("update contact email: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SetEmailVerified flips only the verification flag, leaving status alone.
// Bounce handling uses this to unverify an address without losing the
// contacted state.
func (r *CompanyRepo) SetEmailVerified(ctx context.Context, id string, verified bool) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE outreach_companies SET email_verified = $1, updated_at = NOW()
		WHERE id = $2
	`, verified, id)
	if err != nil {
		return fmt.Errorf("set email verified: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
