package delivery

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/jobpilot/outreach/internal/config"
	"github.com/jobpilot/outreach/internal/domain"
)

type s3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3ResumeFetcher pulls the resume PDF from S3 once and serves it from
// memory for the rest of the run.
type S3ResumeFetcher struct {
	client   s3API
	bucket   string
	key      string
	filename string

	mu     sync.Mutex
	cached *Attachment
}

// NewS3ResumeFetcher creates the fetcher, or returns nil when no resume
// bucket is configured so callers can pass it straight to the sender.
func NewS3ResumeFetcher(ctx context.Context, cfg config.ResumeConfig) (*S3ResumeFetcher, error) {
	if cfg.Bucket == "" {
		return nil, nil
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	filename := cfg.Filename
	if filename == "" {
		filename = "resume.pdf"
	}
	return &S3ResumeFetcher{
		client:   s3.NewFromConfig(awsCfg),
		bucket:   cfg.Bucket,
		key:      cfg.Key,
		filename: filename,
	}, nil
}

// Fetch downloads the resume on first use and caches it.
func (f *S3ResumeFetcher) Fetch(ctx context.Context) (*Attachment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cached != nil {
		return f.cached, nil
	}

	out, err := f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(f.bucket),
		Key:    aws.String(f.key),
	})
	if err != nil {
		return nil, domain.ExternalFailure("s3", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, domain.ExternalFailure("s3", fmt.Errorf("reading object: %w", err))
	}

	contentType := "application/pdf"
	if out.ContentType != nil && *out.ContentType != "" {
		contentType = *out.ContentType
	}
	f.cached = &Attachment{Filename: f.filename, ContentType: contentType, Data: data}
	return f.cached, nil
}
