// Package delivery sends finished application emails through AWS SES and
// reports the provider message id used to correlate webhook events.
package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/jobpilot/outreach/internal/config"
	"github.com/jobpilot/outreach/internal/domain"
	"github.com/jobpilot/outreach/internal/pkg/logger"
)

// Provider is the name recorded on email rows sent through this package.
const Provider = "ses"

// Message is one outbound email.
type Message struct {
	To      string
	Cc      []string
	Bcc     []string
	Subject string
	Body    string // plain text
	HTML    string // optional HTML alternative
}

// Result reports a successful send.
type Result struct {
	MessageID string
	SentAt    time.Time
}

// Attachment is a file included with the email, fetched at send time.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

type sesAPI interface {
	SendEmail(ctx context.Context, in *sesv2.SendEmailInput, opts ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// AttachmentFetcher loads the resume attachment, or returns nil when no
// attachment is configured.
type AttachmentFetcher interface {
	Fetch(ctx context.Context) (*Attachment, error)
}

// SESSender delivers email through AWS SES v2.
type SESSender struct {
	client      sesAPI
	fromName    string
	fromEmail   string
	replyTo     string
	attachments AttachmentFetcher
}

// NewSESSender creates an SES sender with static credentials.
func NewSESSender(ctx context.Context, cfg config.SESConfig, attachments AttachmentFetcher) (*SESSender, error) {
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, domain.ConfigMissing("ses credentials")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	return &SESSender{
		client:      sesv2.NewFromConfig(awsCfg),
		fromName:    cfg.FromName,
		fromEmail:   cfg.FromEmail,
		replyTo:     cfg.ReplyTo,
		attachments: attachments,
	}, nil
}

// Send delivers one email and returns the SES message id. With an
// attachment fetcher configured, the message goes out as raw MIME so the
// resume rides along; otherwise the simple content path is used.
func (s *SESSender) Send(ctx context.Context, msg *Message) (*Result, error) {
	if msg.To == "" {
		return nil, domain.ValidationFailure("empty recipient")
	}

	var attachment *Attachment
	if s.attachments != nil {
		a, err := s.attachments.Fetch(ctx)
		if err != nil {
			// A missing resume should not block the day's sends.
			logger.Warn("resume attachment unavailable, sending without", "error", err)
		} else {
			attachment = a
		}
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)),
		Destination: &types.Destination{
			ToAddresses:  []string{msg.To},
			CcAddresses:  msg.Cc,
			BccAddresses: msg.Bcc,
		},
	}
	if s.replyTo != "" {
		input.ReplyToAddresses = []string{s.replyTo}
	}

	if attachment != nil {
		raw, err := buildRawMessage(s.fromName, s.fromEmail, msg, attachment)
		if err != nil {
			return nil, err
		}
		input.Content = &types.EmailContent{Raw: &types.RawMessage{Data: raw}}
	} else {
		body := &types.Body{
			Text: &types.Content{Data: aws.String(msg.Body), Charset: aws.String("UTF-8")},
		}
		if msg.HTML != "" {
			body.Html = &types.Content{Data: aws.String(msg.HTML), Charset: aws.String("UTF-8")}
		}
		input.Content = &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
				Body:    body,
			},
		}
	}

	out, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return nil, domain.ExternalFailure("ses", err)
	}

	messageID := ""
	if out.MessageId != nil {
		messageID = *out.MessageId
	}
	logger.Info("email sent", "recipient", msg.To, "message_id", messageID)

	return &Result{MessageID: messageID, SentAt: time.Now().UTC()}, nil
}
