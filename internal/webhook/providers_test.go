package webhook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSparkPostBatch(t *testing.T) {
	body := []byte(`[
		{"msys":{"track_event":{"type":"open","message_id":"msg-1","rcpt_to":"jobs@acme.io","timestamp":"1710072000"}}},
		{"msys":{"message_event":{"type":"bounce","message_id":"msg-2","rcpt_to":"jobs@dead.io","timestamp":"1710072060","reason":"550 5.1.1 user unknown"}}},
		{"msys":{"track_event":{"type":"click","message_id":"msg-3","rcpt_to":"jobs@acme.io","target_link_url":"https://rivera.dev"}}},
		{"msys":{"message_event":{"type":"delivery","message_id":"msg-4"}}}
	]`)

	events, err := ParseSparkPostBatch(body)
	require.NoError(t, err)
	require.Len(t, events, 4)

	assert.Equal(t, KindOpen, events[0].Kind)
	assert.Equal(t, "msg-1", events[0].ProviderMessageID)
	assert.Equal(t, int64(1710072000), events[0].Timestamp.Unix())

	assert.Equal(t, KindBounce, events[1].Kind)
	assert.Equal(t, "550 5.1.1 user unknown", events[1].Reason)

	assert.Equal(t, KindClick, events[2].Kind)
	assert.Equal(t, "https://rivera.dev", events[2].URL)
	assert.NotEmpty(t, events[2].Raw)

	// Untracked types keep their raw kind so dispatch reports them skipped.
	assert.Equal(t, Kind("delivery"), events[3].Kind)
	assert.Equal(t, "msg-4", events[3].ProviderMessageID)
}

func TestParseSparkPostBatchRejectsNonArray(t *testing.T) {
	_, err := ParseSparkPostBatch([]byte(`{"msys":{}}`))
	assert.Error(t, err)
}

func TestParseSparkPostBatchSkipsMalformedElement(t *testing.T) {
	body := []byte(`[
		"not an object",
		{"msys":{"track_event":{"type":"open","message_id":"msg-1"}}}
	]`)
	events, err := ParseSparkPostBatch(body)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "msg-1", events[0].ProviderMessageID)
}

func TestParseMailgunEvent(t *testing.T) {
	body := []byte(`{
		"signature":{"timestamp":"1710072000","token":"tok","signature":"` +
		SignMailgunPayload("key", "1710072000", "tok") + `"},
		"event-data":{
			"event":"failed","timestamp":1710072000,"recipient":"jobs@dead.io",
			"severity":"permanent","reason":"suppress-bounce",
			"message":{"headers":{"message-id":"msg-9"}},
			"delivery-status":{"description":"550 no such user"}
		}
	}`)

	e, err := ParseMailgunEvent(body, "key")
	require.NoError(t, err)
	assert.Equal(t, KindBounce, e.Kind)
	assert.Equal(t, "msg-9", e.ProviderMessageID)
	assert.Equal(t, "suppress-bounce", e.Reason)
	assert.Equal(t, int64(1710072000), e.Timestamp.Unix())
}

func TestParseMailgunEventBadSignature(t *testing.T) {
	body := []byte(`{
		"signature":{"timestamp":"1710072000","token":"tok","signature":"bogus"},
		"event-data":{"event":"opened","message":{"headers":{"message-id":"msg-9"}}}
	}`)
	_, err := ParseMailgunEvent(body, "key")
	assert.ErrorIs(t, err, ErrBadSignature)
}

func TestParseMailgunEventUnsupportedType(t *testing.T) {
	body := []byte(`{"event-data":{"event":"unsubscribed","message":{"headers":{"message-id":"msg-9"}}}}`)
	_, err := ParseMailgunEvent(body, "")
	assert.ErrorIs(t, err, ErrUnsupportedEvent)
}

func TestParseMailgunEventClick(t *testing.T) {
	body := []byte(`{"event-data":{"event":"clicked","url":"https://rivera.dev","timestamp":1710072000,
		"message":{"headers":{"message-id":"msg-9"}}}}`)
	e, err := ParseMailgunEvent(body, "")
	require.NoError(t, err)
	assert.Equal(t, KindClick, e.Kind)
	assert.Equal(t, "https://rivera.dev", e.URL)
}
