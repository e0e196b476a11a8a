package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobpilot/outreach/internal/domain"
)

type memEmailStore struct {
	byMessageID map[string]*domain.EmailRecord
	failMark    bool
}

func (m *memEmailStore) GetByProviderMessageID(_ context.Context, id string) (*domain.EmailRecord, error) {
	e, ok := m.byMessageID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return e, nil
}

func (m *memEmailStore) MarkOpened(_ context.Context, id string, at time.Time) error {
	e := m.find(id)
	if e == nil {
		return domain.ErrNotFound
	}
	if m.failMark {
		return errors.New("db down")
	}
	e.Status = domain.EmailOpened
	e.OpenedAt = &at
	return nil
}

func (m *memEmailStore) MarkClicked(_ context.Context, id string, at time.Time) error {
	e := m.find(id)
	if e == nil {
		return domain.ErrNotFound
	}
	if m.failMark {
		return errors.New("db down")
	}
	e.Status = domain.EmailClicked
	e.ClickedAt = &at
	return nil
}

func (m *memEmailStore) MarkBounced(_ context.Context, id string, at time.Time) error {
	e := m.find(id)
	if e == nil {
		return domain.ErrNotFound
	}
	if m.failMark {
		return errors.New("db down")
	}
	e.Status = domain.EmailBounced
	e.BouncedAt = &at
	return nil
}

func (m *memEmailStore) find(id string) *domain.EmailRecord {
	for _, e := range m.byMessageID {
		if e.ID == id {
			return e
		}
	}
	return nil
}

type memCompanyStore struct {
	verified map[string]bool
	failSet  bool
}

func (m *memCompanyStore) SetEmailVerified(_ context.Context, id string, verified bool) error {
	if m.failSet {
		return errors.New("db down")
	}
	m.verified[id] = verified
	return nil
}

type memEventLog struct {
	records []string
}

func (m *memEventLog) Record(_ context.Context, emailID, provider, kind string, _ json.RawMessage, _ time.Time) error {
	m.records = append(m.records, emailID+"/"+provider+"/"+kind)
	return nil
}

func newDispatcherFixture() (*Dispatcher, *memEmailStore, *memCompanyStore, *memEventLog) {
	emails := &memEmailStore{byMessageID: map[string]*domain.EmailRecord{
		"msg-1": {ID: "e1", CompanyID: "c1", Status: domain.EmailSent},
		"msg-2": {ID: "e2", CompanyID: "c2", Status: domain.EmailSent},
	}}
	companies := &memCompanyStore{verified: map[string]bool{"c1": true, "c2": true}}
	log := &memEventLog{}
	return NewDispatcher(emails, companies, log), emails, companies, log
}

func TestDispatchBatchIsolatesUnknownMessageID(t *testing.T) {
	d, emails, _, _ := newDispatcherFixture()
	now := time.Now().UTC()

	results := d.Dispatch(context.Background(), "sparkpost", []Event{
		{Kind: KindOpen, ProviderMessageID: "msg-1", Timestamp: now},
		{Kind: KindOpen, ProviderMessageID: "unknown", Timestamp: now},
		{Kind: KindClick, ProviderMessageID: "msg-2", Timestamp: now},
	})

	require.Len(t, results, 3)
	assert.Equal(t, OutcomeProcessed, results[0].Outcome)
	assert.Equal(t, OutcomeSkipped, results[1].Outcome)
	assert.Equal(t, OutcomeProcessed, results[2].Outcome)

	assert.Equal(t, domain.EmailOpened, emails.byMessageID["msg-1"].Status)
	assert.Equal(t, domain.EmailClicked, emails.byMessageID["msg-2"].Status)
}

func TestDispatchBounceUnverifiesCompany(t *testing.T) {
	d, emails, companies, log := newDispatcherFixture()

	results := d.Dispatch(context.Background(), "mailgun", []Event{
		{Kind: KindBounce, ProviderMessageID: "msg-1", Reason: "550 no such user", Timestamp: time.Now()},
	})

	require.Len(t, results, 1)
	assert.Equal(t, OutcomeProcessed, results[0].Outcome)
	assert.Equal(t, domain.EmailBounced, emails.byMessageID["msg-1"].Status)
	assert.False(t, companies.verified["c1"])
	// The sibling company is untouched.
	assert.True(t, companies.verified["c2"])
	require.Len(t, log.records, 1)
	assert.Equal(t, "e1/mailgun/bounce", log.records[0])
}

func TestDispatchStoreFailureDoesNotStopBatch(t *testing.T) {
	d, emails, _, _ := newDispatcherFixture()
	emails.failMark = true

	results := d.Dispatch(context.Background(), "sparkpost", []Event{
		{Kind: KindOpen, ProviderMessageID: "msg-1", Timestamp: time.Now()},
		{Kind: KindOpen, ProviderMessageID: "unknown", Timestamp: time.Now()},
	})

	require.Len(t, results, 2)
	assert.Equal(t, OutcomeFailed, results[0].Outcome)
	assert.Equal(t, OutcomeSkipped, results[1].Outcome)
}

func TestDispatchMissingMessageIDIsSkipped(t *testing.T) {
	d, _, _, _ := newDispatcherFixture()

	results := d.Dispatch(context.Background(), "sparkpost", []Event{
		{Kind: KindOpen, Timestamp: time.Now()},
	})
	require.Len(t, results, 1)
	assert.Equal(t, OutcomeSkipped, results[0].Outcome)
}

func TestDispatchUnsupportedKindIsSkipped(t *testing.T) {
	d, emails, _, _ := newDispatcherFixture()

	results := d.Dispatch(context.Background(), "sparkpost", []Event{
		{Kind: Kind("delivery"), ProviderMessageID: "msg-1", Timestamp: time.Now()},
	})
	require.Len(t, results, 1)
	assert.Equal(t, OutcomeSkipped, results[0].Outcome)
	assert.Contains(t, results[0].Detail, "unsupported kind")
	assert.Equal(t, domain.EmailSent, emails.byMessageID["msg-1"].Status)
}

func TestDispatchOpenThenClick(t *testing.T) {
	d, emails, _, _ := newDispatcherFixture()
	t1 := time.Now().UTC()
	t2 := t1.Add(time.Minute)

	d.Dispatch(context.Background(), "sparkpost", []Event{
		{Kind: KindOpen, ProviderMessageID: "msg-1", Timestamp: t1},
		{Kind: KindClick, ProviderMessageID: "msg-1", Timestamp: t2},
	})

	e := emails.byMessageID["msg-1"]
	assert.Equal(t, domain.EmailClicked, e.Status)
	require.NotNil(t, e.OpenedAt)
	require.NotNil(t, e.ClickedAt)
	assert.True(t, e.ClickedAt.After(*e.OpenedAt))
}
