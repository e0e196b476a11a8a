package delivery

import (
	"bytes"
	"context"
	"errors"
	"io"
	"regexp"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobpilot/outreach/internal/domain"
)

type stubSES struct {
	input *sesv2.SendEmailInput
	err   error
}

func (s *stubSES) SendEmail(_ context.Context, in *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	s.input = in
	if s.err != nil {
		return nil, s.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("msg-123")}, nil
}

func newTestSender(ses sesAPI, attachments AttachmentFetcher) *SESSender {
	return &SESSender{
		client:      ses,
		fromName:    "Sam Rivera",
		fromEmail:   "sam@rivera.dev",
		replyTo:     "sam@rivera.dev",
		attachments: attachments,
	}
}

func TestSendSimpleReturnsMessageID(t *testing.T) {
	ses := &stubSES{}
	sender := newTestSender(ses, nil)

	res, err := sender.Send(context.Background(), &Message{
		To: "jobs@acme.io", Subject: "Hello", Body: "Body",
	})
	require.NoError(t, err)
	assert.Equal(t, "msg-123", res.MessageID)
	assert.False(t, res.SentAt.IsZero())

	require.NotNil(t, ses.input.Content.Simple)
	assert.Equal(t, "Hello", *ses.input.Content.Simple.Subject.Data)
	assert.Equal(t, []string{"jobs@acme.io"}, ses.input.Destination.ToAddresses)
}

func TestSendSimpleCarriesBothBodies(t *testing.T) {
	ses := &stubSES{}
	sender := newTestSender(ses, nil)

	_, err := sender.Send(context.Background(), &Message{
		To: "jobs@acme.io", Cc: []string{"self@rivera.dev"},
		Subject: "Hello", Body: "Body", HTML: "<html><body><p>Body</p></body></html>",
	})
	require.NoError(t, err)

	body := ses.input.Content.Simple.Body
	assert.Equal(t, "Body", *body.Text.Data)
	require.NotNil(t, body.Html)
	assert.Contains(t, *body.Html.Data, "<p>Body</p>")
	assert.Equal(t, []string{"self@rivera.dev"}, ses.input.Destination.CcAddresses)
}

func TestSendProviderErrorIsExternalFailure(t *testing.T) {
	ses := &stubSES{err: errors.New("throttled")}
	sender := newTestSender(ses, nil)

	_, err := sender.Send(context.Background(), &Message{To: "jobs@acme.io"})
	assert.ErrorIs(t, err, domain.ErrExternalService)
}

func TestSendRejectsEmptyRecipient(t *testing.T) {
	sender := newTestSender(&stubSES{}, nil)
	_, err := sender.Send(context.Background(), &Message{})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

type stubFetcher struct {
	attachment *Attachment
	err        error
}

func (s *stubFetcher) Fetch(context.Context) (*Attachment, error) { return s.attachment, s.err }

func TestSendWithAttachmentUsesRawContent(t *testing.T) {
	ses := &stubSES{}
	sender := newTestSender(ses, &stubFetcher{attachment: &Attachment{
		Filename:    "resume.pdf",
		ContentType: "application/pdf",
		Data:        []byte("%PDF-1.4 fake"),
	}})

	_, err := sender.Send(context.Background(), &Message{
		To: "jobs@acme.io", Subject: "Hello", Body: "Body text",
		HTML: "<html><body><p>Body text</p></body></html>",
	})
	require.NoError(t, err)

	require.NotNil(t, ses.input.Content.Raw)
	raw := string(ses.input.Content.Raw.Data)
	assert.Contains(t, raw, "multipart/mixed")
	assert.Contains(t, raw, "multipart/alternative")
	assert.Contains(t, raw, "Body text")
	assert.Contains(t, raw, "<p>Body text</p>")
	assert.Contains(t, raw, `filename="resume.pdf"`)
	assert.Contains(t, raw, "Subject: Hello")
}

func TestSendFetcherFailureFallsBackToSimple(t *testing.T) {
	ses := &stubSES{}
	sender := newTestSender(ses, &stubFetcher{err: errors.New("bucket gone")})

	_, err := sender.Send(context.Background(), &Message{
		To: "jobs@acme.io", Subject: "Hello", Body: "Body",
	})
	require.NoError(t, err)
	assert.NotNil(t, ses.input.Content.Simple)
	assert.Nil(t, ses.input.Content.Raw)
}

type stubS3 struct {
	calls int
}

func (s *stubS3) GetObject(_ context.Context, _ *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	s.calls++
	return &s3.GetObjectOutput{
		Body:        io.NopCloser(bytes.NewReader([]byte("pdf-bytes"))),
		ContentType: aws.String("application/pdf"),
	}, nil
}

func TestResumeFetcherCaches(t *testing.T) {
	s3c := &stubS3{}
	f := &S3ResumeFetcher{client: s3c, bucket: "b", key: "k", filename: "resume.pdf"}

	a1, err := f.Fetch(context.Background())
	require.NoError(t, err)
	a2, err := f.Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, s3c.calls)
	assert.Same(t, a1, a2)
	assert.Equal(t, "pdf-bytes", string(a1.Data))
}

func TestBuildRawMessageWrapsBase64(t *testing.T) {
	raw, err := buildRawMessage("Sam", "sam@rivera.dev", &Message{
		To: "jobs@acme.io", Subject: "Hi", Body: "Body",
	}, &Attachment{Filename: "r.pdf", ContentType: "application/pdf", Data: bytes.Repeat([]byte("x"), 500)})
	require.NoError(t, err)

	// Base64 attachment lines stay within the RFC 2045 limit.
	base64Line := regexp.MustCompile(`^[A-Za-z0-9+/=]+$`)
	wrapped := 0
	for _, line := range strings.Split(string(raw), "\r\n") {
		if base64Line.MatchString(line) && len(line) > 10 {
			assert.LessOrEqual(t, len(line), 76)
			wrapped++
		}
	}
	assert.Greater(t, wrapped, 1)
}
