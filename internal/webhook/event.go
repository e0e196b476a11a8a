package webhook

import (
	"encoding/json"
	"time"
)

// Kind is a normalized engagement event type.
type Kind string

const (
	KindOpen   Kind = "open"
	KindClick  Kind = "click"
	KindBounce Kind = "bounce"
)

// Event is the provider-independent form every adapter produces.
type Event struct {
	Kind              Kind
	ProviderMessageID string
	Recipient         string
	Timestamp         time.Time
	URL    string // click target, when the provider reports it
	Reason string // bounce reason, when the provider reports it

	// Raw keeps the provider's original JSON for the audit log.
	Raw json.RawMessage
}

// Outcome says what happened to one event during dispatch.
type Outcome string

const (
	OutcomeProcessed Outcome = "processed"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeFailed    Outcome = "failed"
)

// Result is the per-event dispatch report returned to the provider.
type Result struct {
	Kind              Kind    `json:"kind"`
	ProviderMessageID string  `json:"provider_message_id"`
	Outcome           Outcome `json:"outcome"`
	Detail            string  `json:"detail,omitempty"`
}
