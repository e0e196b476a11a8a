package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/jobpilot/outreach/internal/domain"
)

// TemplateRepo implements template storage against PostgreSQL.
type TemplateRepo struct{ db *sql.DB }

// NewTemplateRepo creates a Postgres-backed template repository.
func NewTemplateRepo(db *sql.DB) *TemplateRepo { return &TemplateRepo{db: db} }

func scanTemplate(row interface{ Scan(...any) error }) (*domain.Template, error) {
	t := &domain.Template{}
	err := row.Scan(&t.ID, &t.Name, &t.Subject, &t.Body, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan template: %w", err)
	}
	return t, nil
}

func (r *TemplateRepo) Get(ctx context.Context, id string) (*domain.Template, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, subject, body, created_at
		FROM outreach_templates WHERE id = $1
	`, id)
	return scanTemplate(row)
}

func (r *TemplateRepo) GetByName(ctx context.Context, name string) (*domain.Template, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, subject, body, created_at
		FROM outreach_templates WHERE name = $1
		ORDER BY created_at DESC LIMIT 1
	`, name)
	return scanTemplate(row)
}

// Latest returns the active guidance template, which is simply the most
// recently created one.
func (r *TemplateRepo) Latest(ctx context.Context) (*domain.Template, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, subject, body, created_at
		FROM outreach_templates
		ORDER BY created_at DESC LIMIT 1
	`)
	return scanTemplate(row)
}

func (r *TemplateRepo) Create(ctx context.Context, t *domain.Template) (string, error) {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO outreach_templates (id, name, subject, body, created_at)
		VALUES ($1, $2, $3, $4, NOW())
	`, t.ID, t.Name, t.Subject, t.Body)
	if err != nil {
		return "", fmt.Errorf("create template: %w", err)
	}
	return t.ID, nil
}
