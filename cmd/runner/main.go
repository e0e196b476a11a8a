// The runner binary executes one daily send pass and exits. Schedule it
// from cron; a distributed lock keeps overlapping invocations from
// interleaving.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/jobpilot/outreach/internal/compose"
	"github.com/jobpilot/outreach/internal/config"
	"github.com/jobpilot/outreach/internal/delivery"
	"github.com/jobpilot/outreach/internal/discovery"
	"github.com/jobpilot/outreach/internal/pkg/distlock"
	"github.com/jobpilot/outreach/internal/pkg/logger"
	"github.com/jobpilot/outreach/internal/repository/postgres"
	"github.com/jobpilot/outreach/internal/service/outreach"
	"github.com/jobpilot/outreach/internal/service/schedule"
)

const runLockKey = "outreach:daily-run"

func main() {
	cfgPath := "config/config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := config.LoadFromEnv(cfgPath)
	if err != nil {
		logger.Error("config load failed", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("config invalid", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		logger.Error("database open failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Error("database ping failed", "error", err)
		os.Exit(1)
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}

	lock := distlock.NewLock(redisClient, db, runLockKey, 30*time.Minute)
	acquired, err := lock.Acquire(ctx)
	if err != nil {
		logger.Error("lock acquire failed", "error", err)
		os.Exit(1)
	}
	if !acquired {
		logger.Info("another run holds the lock, exiting")
		return
	}
	defer func() {
		if err := lock.Release(ctx); err != nil {
			logger.Warn("lock release failed", "error", err)
		}
	}()

	svc, err := buildService(ctx, cfg, db)
	if err != nil {
		logger.Error("wiring failed", "error", err)
		os.Exit(1)
	}

	summary, err := svc.Run(ctx)
	if err != nil {
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(summary)
}

func buildService(ctx context.Context, cfg *config.Config, db *sql.DB) (*outreach.Service, error) {
	attachments, err := delivery.NewS3ResumeFetcher(ctx, cfg.Resume)
	if err != nil {
		return nil, err
	}
	var fetcher delivery.AttachmentFetcher
	if attachments != nil {
		fetcher = attachments
	}

	sender, err := delivery.NewSESSender(ctx, cfg.SES, fetcher)
	if err != nil {
		return nil, err
	}

	invoker, err := compose.NewBedrockInvoker(ctx, cfg.Bedrock)
	if err != nil {
		return nil, err
	}
	composer := compose.NewComposer(invoker, cfg.Applicant)

	var discoverer outreach.Discoverer
	var verifier outreach.Verifier
	if cfg.Discovery.APIKey != "" {
		client := discovery.NewClient(cfg.Discovery)
		discoverer, verifier = client, client
	} else {
		logger.Warn("discovery API key not set, unverified companies will be skipped")
	}

	scheduler := schedule.NewService(
		postgres.NewScheduleRepo(db),
		cfg.Schedule.DefaultLimit,
		cfg.Schedule.WarmupIncrement,
	)

	return outreach.NewService(
		postgres.NewCompanyRepo(db),
		postgres.NewEmailRepo(db),
		postgres.NewTemplateRepo(db),
		scheduler,
		discoverer,
		verifier,
		composer,
		sender,
		outreach.Timeouts{
			Discovery: cfg.Discovery.Timeout(),
			Generate:  cfg.Bedrock.Timeout(),
			Send:      cfg.SES.Timeout(),
		},
	), nil
}
