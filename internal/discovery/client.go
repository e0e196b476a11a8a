// Package discovery finds and verifies hiring contact addresses for target
// companies through a Hunter-style HTTP API, with a cheap DNS MX pre-filter
// so obviously dead domains never spend API quota.
package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/jobpilot/outreach/internal/config"
	"github.com/jobpilot/outreach/internal/domain"
	"github.com/jobpilot/outreach/internal/pkg/httpretry"
)

// Candidate is one discovered address with the provider's confidence score
// (0-100) and the matched person, when known.
type Candidate struct {
	Email      string
	FirstName  string
	LastName   string
	Position   string
	Confidence int
}

// VerifyResult is the provider's judgement on a single address.
type VerifyResult struct {
	Email  string
	Status string // valid, invalid, accept_all, disposable, webmail, unknown
	Score  int
}

// Deliverable reports whether the verification outcome is good enough to
// send to. accept_all domains score lower but are still worth a send.
func (v VerifyResult) Deliverable() bool {
	return v.Status == "valid" || v.Status == "accept_all"
}

// Client talks to the discovery/verification API.
type Client struct {
	baseURL       string
	apiKey        string
	roleHint      string
	minConfidence int
	httpClient    httpretry.HTTPDoer

	// lookupMX is swappable in tests.
	lookupMX func(ctx context.Context, domain string) ([]*net.MX, error)
}

// NewClient creates a discovery client from configuration.
func NewClient(cfg config.DiscoveryConfig) *Client {
	return &Client{
		baseURL:       cfg.BaseURL,
		apiKey:        cfg.APIKey,
		roleHint:      cfg.RoleHint,
		minConfidence: cfg.MinConfidence,
		httpClient: httpretry.NewRetryClient(&http.Client{
			Timeout: cfg.Timeout(),
		}, 3),
		lookupMX: func(ctx context.Context, d string) ([]*net.MX, error) {
			return net.DefaultResolver.LookupMX(ctx, d)
		},
	}
}

func (c *Client) doRequest(ctx context.Context, path string, params url.Values) ([]byte, error) {
	params.Set("api_key", c.apiKey)
	fullURL := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.ExternalFailure("discovery", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.ExternalFailure("discovery", fmt.Errorf("reading response: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, domain.ExternalFailure("discovery",
			fmt.Errorf("status %d: %s", resp.StatusCode, string(body)))
	}
	return body, nil
}

type domainSearchResponse struct {
	Data struct {
		Domain string `json:"domain"`
		Emails []struct {
			Value      string `json:"value"`
			FirstName  string `json:"first_name"`
			LastName   string `json:"last_name"`
			Position   string `json:"position"`
			Confidence int    `json:"confidence"`
			Department string `json:"department"`
		} `json:"emails"`
	} `json:"data"`
}

// DomainSearch returns candidate addresses for a company domain, best
// confidence first, preferring the configured department role hint.
// Candidates below the configured confidence floor are dropped.
func (c *Client) DomainSearch(ctx context.Context, companyDomain string) ([]Candidate, error) {
	companyDomain = NormalizeDomain(companyDomain)
	if companyDomain == "" {
		return nil, domain.ValidationFailure("empty company domain")
	}

	if err := c.checkMX(ctx, companyDomain); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("domain", companyDomain)
	if c.roleHint != "" {
		params.Set("department", c.roleHint)
	}

	body, err := c.doRequest(ctx, "/domain-search", params)
	if err != nil {
		return nil, err
	}

	var parsed domainSearchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, domain.ExternalFailure("discovery", fmt.Errorf("decoding response: %w", err))
	}

	var out []Candidate
	for _, e := range parsed.Data.Emails {
		if e.Confidence < c.minConfidence {
			continue
		}
		out = append(out, Candidate{
			Email:      e.Value,
			FirstName:  e.FirstName,
			LastName:   e.LastName,
			Position:   e.Position,
			Confidence: e.Confidence,
		})
	}
	// Provider returns confidence-descending already, but do not rely on it.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Confidence > out[j].Confidence
	})
	return out, nil
}

type verifyResponse struct {
	Data struct {
		Email  string `json:"email"`
		Status string `json:"status"`
		Result string `json:"result"`
		Score  int    `json:"score"`
	} `json:"data"`
}

// Verify checks deliverability of a single address.
func (c *Client) Verify(ctx context.Context, email string) (*VerifyResult, error) {
	email = strings.TrimSpace(email)
	if !strings.Contains(email, "@") {
		return nil, domain.ValidationFailure("not an email address: %q", email)
	}

	params := url.Values{}
	params.Set("email", email)
	body, err := c.doRequest(ctx, "/email-verifier", params)
	if err != nil {
		return nil, err
	}

	var parsed verifyResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, domain.ExternalFailure("discovery", fmt.Errorf("decoding response: %w", err))
	}
	status := parsed.Data.Status
	if status == "" {
		status = parsed.Data.Result
	}
	return &VerifyResult{
		Email:  parsed.Data.Email,
		Status: status,
		Score:  parsed.Data.Score,
	}, nil
}

// checkMX rejects domains with no mail exchanger before any API spend.
func (c *Client) checkMX(ctx context.Context, companyDomain string) error {
	mx, err := c.lookupMX(ctx, companyDomain)
	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
			return domain.ValidationFailure("domain %s has no MX records", companyDomain)
		}
		// Transient resolver trouble should not block discovery.
		return nil
	}
	if len(mx) == 0 {
		return domain.ValidationFailure("domain %s has no MX records", companyDomain)
	}
	return nil
}

// NormalizeDomain strips scheme, path and www from a company website value.
func NormalizeDomain(website string) string {
	s := strings.TrimSpace(strings.ToLower(website))
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimPrefix(s, "www.")
	return s
}
