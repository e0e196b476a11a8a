package webhook

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// sparkPostEnvelope is one element of the batch array SparkPost posts.
type sparkPostEnvelope struct {
	Msys struct {
		MessageEvent struct {
			Type      string `json:"type"`
			MessageID string `json:"message_id"`
			Recipient string `json:"rcpt_to"`
			Timestamp string `json:"timestamp"`
			Reason    string `json:"reason"`
		} `json:"message_event"`
		TrackEvent struct {
			Type      string `json:"type"`
			MessageID string `json:"message_id"`
			Recipient string `json:"rcpt_to"`
			Timestamp string `json:"timestamp"`
			TargetURL string `json:"target_link_url"`
		} `json:"track_event"`
	} `json:"msys"`
}

// ParseSparkPostBatch decodes a SparkPost webhook batch into normalized
// events. Event types we do not track come through with their raw kind so
// the dispatcher can report them skipped; a payload that is not a JSON
// array is an error.
func ParseSparkPostBatch(body []byte) ([]Event, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("batch payload is not a JSON array: %w", err)
	}

	var out []Event
	for _, item := range raw {
		var env sparkPostEnvelope
		if err := json.Unmarshal(item, &env); err != nil {
			// Malformed element: skip it, keep the rest of the batch.
			continue
		}

		var e Event
		switch {
		case env.Msys.MessageEvent.Type == "bounce":
			e = Event{
				Kind:              KindBounce,
				ProviderMessageID: env.Msys.MessageEvent.MessageID,
				Recipient:         env.Msys.MessageEvent.Recipient,
				Timestamp:         parseEpoch(env.Msys.MessageEvent.Timestamp),
				Reason:            env.Msys.MessageEvent.Reason,
			}
		case env.Msys.TrackEvent.Type == "open", env.Msys.TrackEvent.Type == "initial_open":
			e = Event{
				Kind:              KindOpen,
				ProviderMessageID: env.Msys.TrackEvent.MessageID,
				Recipient:         env.Msys.TrackEvent.Recipient,
				Timestamp:         parseEpoch(env.Msys.TrackEvent.Timestamp),
			}
		case env.Msys.TrackEvent.Type == "click":
			e = Event{
				Kind:              KindClick,
				ProviderMessageID: env.Msys.TrackEvent.MessageID,
				Recipient:         env.Msys.TrackEvent.Recipient,
				Timestamp:         parseEpoch(env.Msys.TrackEvent.Timestamp),
				URL:               env.Msys.TrackEvent.TargetURL,
			}
		default:
			kind, msgID := env.Msys.MessageEvent.Type, env.Msys.MessageEvent.MessageID
			if kind == "" {
				kind, msgID = env.Msys.TrackEvent.Type, env.Msys.TrackEvent.MessageID
			}
			if kind == "" {
				// Not an event shape at all.
				continue
			}
			e = Event{Kind: Kind(kind), ProviderMessageID: msgID}
		}
		e.Raw = item
		out = append(out, e)
	}
	return out, nil
}

// parseEpoch handles SparkPost's string Unix timestamps. A missing or
// unparseable value falls back to now so the event is still usable.
func parseEpoch(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Now().UTC()
	}
	var secs int64
	if _, err := fmt.Sscanf(s, "%d", &secs); err != nil || secs <= 0 {
		return time.Now().UTC()
	}
	return time.Unix(secs, 0).UTC()
}
