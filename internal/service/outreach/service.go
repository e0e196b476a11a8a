package outreach

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jobpilot/outreach/internal/compose"
	"github.com/jobpilot/outreach/internal/delivery"
	"github.com/jobpilot/outreach/internal/discovery"
	"github.com/jobpilot/outreach/internal/domain"
	"github.com/jobpilot/outreach/internal/pkg/logger"
	"github.com/jobpilot/outreach/internal/service/schedule"
)

// CompanyStore is the company storage slice the orchestrator needs.
type CompanyStore interface {
	SelectEligible(ctx context.Context, limit int) ([]domain.Company, error)
	UpdateContactEmail(ctx context.Context, id, email string, verified bool) error
	UpdateStatus(ctx context.Context, id string, status domain.CompanyStatus) error
}

// EmailStore persists sent email records.
type EmailStore interface {
	Create(ctx context.Context, e *domain.EmailRecord) (string, error)
}

// TemplateStore provides the active guidance template.
type TemplateStore interface {
	Latest(ctx context.Context) (*domain.Template, error)
}

// Scheduler is the quota tracker slice the orchestrator needs.
type Scheduler interface {
	RemainingQuota(ctx context.Context, now time.Time) (int, error)
	IncrementSent(ctx context.Context, now time.Time) (*domain.Schedule, error)
	Get(ctx context.Context, date time.Time) (*domain.Schedule, error)
}

// Discoverer finds candidate addresses for a company domain.
type Discoverer interface {
	DomainSearch(ctx context.Context, companyDomain string) ([]discovery.Candidate, error)
}

// Verifier checks deliverability of one address.
type Verifier interface {
	Verify(ctx context.Context, email string) (*discovery.VerifyResult, error)
}

// Generator produces a personalized subject and body.
type Generator interface {
	Compose(ctx context.Context, tmpl *domain.Template, company *domain.Company) (*compose.Message, error)
}

// Sender delivers the finished email.
type Sender interface {
	Send(ctx context.Context, msg *delivery.Message) (*delivery.Result, error)
}

// Timeouts bounds each external collaborator call. Zero values mean no
// bound beyond the caller's context.
type Timeouts struct {
	Discovery time.Duration
	Generate  time.Duration
	Send      time.Duration
}

// Outcome classifies what happened to one company during a run.
type Outcome string

const (
	OutcomeSent    Outcome = "sent"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// CompanyResult is one line of the run summary.
type CompanyResult struct {
	CompanyID   string  `json:"company_id"`
	CompanyName string  `json:"company_name"`
	Outcome     Outcome `json:"outcome"`
	Detail      string  `json:"detail,omitempty"`
	MessageID   string  `json:"message_id,omitempty"`
}

// Summary is the result of one orchestrator invocation.
type Summary struct {
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Quota      int              `json:"quota"`
	Results    []CompanyResult  `json:"results"`
	Schedule   *domain.Schedule `json:"schedule,omitempty"`
}

// Sent counts successful sends in the summary.
func (s *Summary) Sent() int {
	n := 0
	for _, r := range s.Results {
		if r.Outcome == OutcomeSent {
			n++
		}
	}
	return n
}

// Service is the daily-run orchestrator.
type Service struct {
	companies CompanyStore
	emails    EmailStore
	templates TemplateStore
	scheduler Scheduler

	discoverer Discoverer
	verifier   Verifier
	generator  Generator
	sender     Sender

	timeouts Timeouts
	now      func() time.Time
}

// NewService wires the orchestrator. discoverer and verifier may be nil
// when no discovery provider is configured; companies without a verified
// address are then skipped.
func NewService(
	companies CompanyStore, emails EmailStore, templates TemplateStore, scheduler Scheduler,
	discoverer Discoverer, verifier Verifier, generator Generator, sender Sender,
	timeouts Timeouts,
) *Service {
	return &Service{
		companies:  companies,
		emails:     emails,
		templates:  templates,
		scheduler:  scheduler,
		discoverer: discoverer,
		verifier:   verifier,
		generator:  generator,
		sender:     sender,
		timeouts:   timeouts,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Run executes one send pass. Schedule store errors abort the run; any
// other failure is confined to its company.
func (s *Service) Run(ctx context.Context) (*Summary, error) {
	start := s.now()
	summary := &Summary{StartedAt: start}

	remaining, err := s.scheduler.RemainingQuota(ctx, start)
	if err != nil {
		return nil, fmt.Errorf("remaining quota: %w", err)
	}
	summary.Quota = remaining
	if remaining <= 0 {
		logger.Info("daily quota exhausted, nothing to do")
		summary.FinishedAt = s.now()
		summary.Schedule, _ = s.scheduler.Get(ctx, start)
		return summary, nil
	}

	companies, err := s.companies.SelectEligible(ctx, remaining)
	if err != nil {
		return nil, fmt.Errorf("selecting companies: %w", err)
	}
	logger.Info("run starting", "quota", remaining, "companies", len(companies))

	// The guidance template is optional; a store with no templates yet
	// just means the composer works from company and applicant facts.
	tmpl, err := s.templates.Latest(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		tmpl = nil
	} else if err != nil {
		return nil, fmt.Errorf("loading template: %w", err)
	}

	for i := range companies {
		company := &companies[i]
		result, quotaHit := s.processCompany(ctx, tmpl, company)
		summary.Results = append(summary.Results, result)
		if quotaHit {
			logger.Warn("quota reached mid-run, stopping", "processed", len(summary.Results))
			break
		}
	}

	summary.FinishedAt = s.now()
	summary.Schedule, _ = s.scheduler.Get(ctx, start)
	logger.Info("run finished",
		"sent", summary.Sent(), "total", len(summary.Results),
		"duration", summary.FinishedAt.Sub(start).String())
	return summary, nil
}

// processCompany runs the full pipeline for one company. The bool return
// reports a QuotaExceeded from the schedule tracker, which ends the run.
func (s *Service) processCompany(ctx context.Context, tmpl *domain.Template, company *domain.Company) (CompanyResult, bool) {
	res := CompanyResult{CompanyID: company.ID, CompanyName: company.Name}

	addr, skipDetail, err := s.resolveAddress(ctx, company)
	if err != nil {
		res.Outcome = OutcomeFailed
		res.Detail = err.Error()
		logger.Error("company failed", "company", company.Name, "error", err)
		return res, false
	}
	if addr == "" {
		res.Outcome = OutcomeSkipped
		res.Detail = skipDetail
		logger.Info("company skipped", "company", company.Name, "reason", skipDetail)
		return res, false
	}

	msg, err := s.generate(ctx, tmpl, company)
	if err != nil {
		res.Outcome = OutcomeFailed
		res.Detail = err.Error()
		logger.Error("company failed", "company", company.Name, "error", err)
		return res, false
	}

	sendCtx, cancel := withTimeout(ctx, s.timeouts.Send)
	sent, err := s.sender.Send(sendCtx, &delivery.Message{To: addr, Subject: msg.Subject, Body: msg.Body, HTML: msg.HTML})
	cancel()
	if err != nil {
		res.Outcome = OutcomeFailed
		res.Detail = err.Error()
		logger.Error("send failed", "company", company.Name, "recipient", addr, "error", err)
		return res, false
	}

	record := &domain.EmailRecord{
		CompanyID:         company.ID,
		Subject:           msg.Subject,
		Body:              msg.Body,
		Provider:          delivery.Provider,
		ProviderMessageID: sent.MessageID,
		Status:            domain.EmailSent,
		SentAt:            &sent.SentAt,
	}
	if _, err := s.emails.Create(ctx, record); err != nil {
		// The mail is out; report the bookkeeping failure but keep going.
		res.Outcome = OutcomeFailed
		res.Detail = fmt.Sprintf("sent but not recorded: %v", err)
		logger.Error("email record failed", "company", company.Name, "message_id", sent.MessageID, "error", err)
		return res, false
	}

	if err := s.companies.UpdateStatus(ctx, company.ID, domain.CompanyContacted); err != nil {
		res.Outcome = OutcomeFailed
		res.Detail = fmt.Sprintf("sent but status not updated: %v", err)
		res.MessageID = sent.MessageID
		logger.Error("company status update failed", "company", company.Name, "error", err)
		return res, false
	}

	if _, err := s.scheduler.IncrementSent(ctx, s.now()); err != nil {
		if errors.Is(err, schedule.ErrQuotaExceeded) {
			res.Outcome = OutcomeSent
			res.MessageID = sent.MessageID
			return res, true
		}
		// Any other schedule store error is load-bearing: surface it on
		// this company and stop the run.
		res.Outcome = OutcomeFailed
		res.Detail = fmt.Sprintf("schedule increment: %v", err)
		return res, true
	}

	res.Outcome = OutcomeSent
	res.MessageID = sent.MessageID
	return res, false
}

// resolveAddress returns the address to contact, or an empty address plus
// a skip reason. Discovery runs only when the company has no verified
// address on file.
func (s *Service) resolveAddress(ctx context.Context, company *domain.Company) (addr, skipDetail string, err error) {
	if company.ContactEmail != "" && company.EmailVerified {
		return company.ContactEmail, "", nil
	}

	if s.discoverer == nil || s.verifier == nil {
		return "", "no verified address and discovery not configured", nil
	}

	dCtx, cancel := withTimeout(ctx, s.timeouts.Discovery)
	defer cancel()

	candidates, err := s.discoverer.DomainSearch(dCtx, company.Website)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			return "", err.Error(), nil
		}
		return "", "", err
	}
	if len(candidates) == 0 {
		return "", "no candidate addresses found", nil
	}

	best := candidates[0]
	verdict, err := s.verifier.Verify(dCtx, best.Email)
	if err != nil {
		return "", "", err
	}
	if !verdict.Deliverable() {
		return "", fmt.Sprintf("address %s failed verification (%s)", best.Email, verdict.Status), nil
	}

	if err := s.companies.UpdateContactEmail(ctx, company.ID, best.Email, true); err != nil {
		return "", "", fmt.Errorf("storing discovered address: %w", err)
	}
	company.ContactEmail = best.Email
	company.EmailVerified = true
	return best.Email, "", nil
}

func (s *Service) generate(ctx context.Context, tmpl *domain.Template, company *domain.Company) (*compose.Message, error) {
	gCtx, cancel := withTimeout(ctx, s.timeouts.Generate)
	defer cancel()
	return s.generator.Compose(gCtx, tmpl, company)
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
