package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// mailgunPayload is the single-event webhook body Mailgun posts.
type mailgunPayload struct {
	Signature struct {
		Timestamp string `json:"timestamp"`
		Token     string `json:"token"`
		Signature string `json:"signature"`
	} `json:"signature"`
	EventData struct {
		Event     string  `json:"event"` // opened, clicked, failed
		Timestamp float64 `json:"timestamp"`
		Recipient string  `json:"recipient"`
		Severity  string  `json:"severity"` // permanent, temporary
		Reason    string  `json:"reason"`
		URL       string  `json:"url"`
		Message   struct {
			Headers struct {
				MessageID string `json:"message-id"`
			} `json:"headers"`
		} `json:"message"`
		DeliveryStatus struct {
			Description string `json:"description"`
			Message     string `json:"message"`
		} `json:"delivery-status"`
	} `json:"event-data"`
}

// ErrUnsupportedEvent marks provider event types we do not track. Handlers
// acknowledge these with a skip rather than an error so the provider does
// not retry them forever.
var ErrUnsupportedEvent = fmt.Errorf("unsupported event type")

// ErrBadSignature means the payload failed HMAC verification.
var ErrBadSignature = fmt.Errorf("invalid event signature")

// ParseMailgunEvent decodes a Mailgun webhook into one normalized event.
// signingKey, when non-empty, is used to verify the payload signature
// (HMAC-SHA256 over timestamp+token).
func ParseMailgunEvent(body []byte, signingKey string) (*Event, error) {
	var p mailgunPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("decoding event payload: %w", err)
	}

	if signingKey != "" {
		if !verifyMailgunSignature(signingKey, p.Signature.Timestamp, p.Signature.Token, p.Signature.Signature) {
			return nil, ErrBadSignature
		}
	}

	e := &Event{
		ProviderMessageID: p.EventData.Message.Headers.MessageID,
		Recipient:         p.EventData.Recipient,
		Timestamp:         time.Unix(int64(p.EventData.Timestamp), 0).UTC(),
		Raw:               json.RawMessage(body),
	}
	if p.EventData.Timestamp == 0 {
		e.Timestamp = time.Now().UTC()
	}

	switch p.EventData.Event {
	case "opened":
		e.Kind = KindOpen
	case "clicked":
		e.Kind = KindClick
		e.URL = p.EventData.URL
	case "failed":
		e.Kind = KindBounce
		e.Reason = p.EventData.Reason
		if e.Reason == "" {
			e.Reason = p.EventData.DeliveryStatus.Description
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEvent, p.EventData.Event)
	}
	return e, nil
}

func verifyMailgunSignature(key, timestamp, token, signature string) bool {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(timestamp + token))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// SignMailgunPayload computes the signature a test or replay tool needs to
// produce a payload this package will accept.
func SignMailgunPayload(key, timestamp, token string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(timestamp + token))
	return hex.EncodeToString(mac.Sum(nil))
}
