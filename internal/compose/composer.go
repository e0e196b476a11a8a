package compose

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/osteele/liquid"

	"github.com/jobpilot/outreach/internal/config"
	"github.com/jobpilot/outreach/internal/domain"
	"github.com/jobpilot/outreach/internal/pkg/logger"
)

const systemPrompt = `You write short, specific job application emails on behalf of a candidate.
Rules:
- First line must be "SUBJECT: <subject line>".
- Then a blank line, then the email body.
- Plain text only, no markdown, no placeholders.
- Under 180 words, professional but warm, reference the company specifically.
- Sign off with the candidate's name.`

// Message is a generated email ready for delivery.
type Message struct {
	Subject string
	Body    string
	HTML    string
}

// Composer renders guidance templates and drives content generation.
type Composer struct {
	invoker   ModelInvoker
	engine    *liquid.Engine
	applicant config.ApplicantConfig
}

// NewComposer creates a composer for the configured applicant.
func NewComposer(invoker ModelInvoker, applicant config.ApplicantConfig) *Composer {
	engine := liquid.NewEngine()
	engine.RegisterFilter("default", func(value any, defaultVal string) any {
		if value == nil {
			return defaultVal
		}
		if s := fmt.Sprintf("%v", value); s == "" || s == "<nil>" {
			return defaultVal
		}
		return value
	})
	return &Composer{invoker: invoker, engine: engine, applicant: applicant}
}

// bindings exposes company and applicant facts to Liquid templates.
func (c *Composer) bindings(company *domain.Company) map[string]any {
	return map[string]any{
		"company": map[string]any{
			"name":     company.Name,
			"website":  company.Website,
			"industry": company.Industry,
			"location": company.Location,
			"size":     company.Size,
		},
		"applicant": map[string]any{
			"name":     c.applicant.Name,
			"role":     c.applicant.Role,
			"years":    c.applicant.Years,
			"skills":   strings.Join(c.applicant.Skills, ", "),
			"summary":  c.applicant.Summary,
			"linkedin": c.applicant.LinkedIn,
		},
	}
}

// Render expands a Liquid template body against the company and applicant.
func (c *Composer) Render(tmplBody string, company *domain.Company) (string, error) {
	out, err := c.engine.ParseAndRenderString(tmplBody, c.bindings(company))
	if err != nil {
		return "", domain.ValidationFailure("template render: %v", err)
	}
	return out, nil
}

// Compose generates a personalized application email for a company guided
// by the template. The template subject serves as the fallback when the
// model omits the SUBJECT: marker. A nil template is fine: the guidance is
// then built from the company and applicant facts directly.
func (c *Composer) Compose(ctx context.Context, tmpl *domain.Template, company *domain.Company) (*Message, error) {
	var guidance, fallbackSubject string
	var err error
	if tmpl != nil {
		guidance, err = c.Render(tmpl.Body, company)
		if err != nil {
			return nil, err
		}
		fallbackSubject, err = c.Render(tmpl.Subject, company)
		if err != nil {
			return nil, err
		}
	} else {
		guidance = c.defaultGuidance(company)
		fallbackSubject = fmt.Sprintf("%s application from %s", c.applicant.Role, c.applicant.Name)
	}

	raw, err := c.invoker.Invoke(ctx, systemPrompt, guidance)
	if err != nil {
		return nil, err
	}

	subject, body := ParseSubjectBody(raw)
	if subject == "" {
		logger.Warn("generated content missing subject marker, using template subject",
			"company", company.Name)
		subject = fallbackSubject
	}
	if strings.TrimSpace(body) == "" {
		return nil, domain.ValidationFailure("generated email has empty body")
	}
	body = strings.TrimSpace(body)
	return &Message{Subject: subject, Body: body, HTML: HTMLBody(body)}, nil
}

// defaultGuidance stands in when no guidance template is stored yet.
func (c *Composer) defaultGuidance(company *domain.Company) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a job application email to %s", company.Name)
	if company.Industry != "" {
		fmt.Fprintf(&b, ", a %s company", company.Industry)
	}
	fmt.Fprintf(&b, ". Candidate: %s, %s with %d years of experience. Skills: %s.",
		c.applicant.Name, c.applicant.Role, c.applicant.Years,
		strings.Join(c.applicant.Skills, ", "))
	if c.applicant.Summary != "" {
		b.WriteString(" " + c.applicant.Summary)
	}
	if c.applicant.LinkedIn != "" {
		fmt.Fprintf(&b, " LinkedIn: %s.", c.applicant.LinkedIn)
	}
	return b.String()
}

// HTMLBody wraps the plain-text body in minimal markup so the HTML part
// of the message carries the same content. Provider open and click
// tracking only works on the HTML part.
func HTMLBody(text string) string {
	escaped := html.EscapeString(strings.ReplaceAll(text, "\r\n", "\n"))
	paras := strings.Split(escaped, "\n\n")
	for i, p := range paras {
		paras[i] = "<p>" + strings.ReplaceAll(p, "\n", "<br>") + "</p>"
	}
	return "<html><body>" + strings.Join(paras, "") + "</body></html>"
}

// ParseSubjectBody splits generated text on the SUBJECT: marker line. The
// marker is only honored in the first few lines so a quoted "SUBJECT:"
// deep in the body does not truncate the email. An empty subject return
// means no marker was found.
func ParseSubjectBody(raw string) (subject, body string) {
	lines := strings.Split(strings.TrimSpace(raw), "\n")
	for i, line := range lines {
		if i > 2 {
			break
		}
		trimmed := strings.TrimSpace(line)
		upper := strings.ToUpper(trimmed)
		if strings.HasPrefix(upper, "SUBJECT:") {
			subject = strings.TrimSpace(trimmed[len("SUBJECT:"):])
			body = strings.Join(lines[i+1:], "\n")
			return subject, body
		}
	}
	return "", raw
}
