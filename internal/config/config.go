package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/jobpilot/outreach/internal/domain"
)

// Config holds all configuration for the outreach service. It is constructed
// once at process start and passed by reference to every collaborator
// constructor; nothing reads the environment after Load returns.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	SES       SESConfig       `yaml:"ses"`
	Bedrock   BedrockConfig   `yaml:"bedrock"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Schedule  ScheduleConfig  `yaml:"schedule"`
	Applicant ApplicantConfig `yaml:"applicant"`
	Resume    ResumeConfig    `yaml:"resume"`
}

// ServerConfig holds HTTP server configuration for the webhook endpoint.
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// DatabaseConfig holds the PostgreSQL connection settings.
type DatabaseConfig struct {
	URL          string `yaml:"url"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// RedisConfig holds optional Redis settings used for the run lock.
// When Addr is empty the runner falls back to a Postgres advisory lock.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// SESConfig holds AWS SES delivery credentials and the sender identity.
type SESConfig struct {
	Region         string `yaml:"region"`
	AccessKey      string `yaml:"access_key"`
	SecretKey      string `yaml:"secret_key"`
	FromName       string `yaml:"from_name"`
	FromEmail      string `yaml:"from_email"`
	ReplyTo        string `yaml:"reply_to"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the configured per-send timeout as a duration.
func (c SESConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// BedrockConfig holds AWS Bedrock settings for content generation.
type BedrockConfig struct {
	Region         string  `yaml:"region"`
	ModelID        string  `yaml:"model_id"`
	MaxTokens      int     `yaml:"max_tokens"`
	Temperature    float64 `yaml:"temperature"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
}

// Timeout returns the configured per-generation timeout as a duration.
func (c BedrockConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// DiscoveryConfig holds the email discovery/verification provider settings.
// The API key is optional: without it the orchestrator can still contact
// companies that already have a verified address on file.
type DiscoveryConfig struct {
	APIKey         string `yaml:"api_key"`
	BaseURL        string `yaml:"base_url"`
	RoleHint       string `yaml:"role_hint"`
	MinConfidence  int    `yaml:"min_confidence"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the configured per-request timeout as a duration.
func (c DiscoveryConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// WebhookConfig holds inbound webhook verification secrets. Empty values
// disable signature checking for the corresponding provider.
type WebhookConfig struct {
	BatchSharedSecret string `yaml:"batch_shared_secret"`
	EventSigningKey   string `yaml:"event_signing_key"`
}

// ScheduleConfig holds the warm-up policy for daily send quotas.
type ScheduleConfig struct {
	DefaultLimit    int `yaml:"default_limit"`
	WarmupIncrement int `yaml:"warmup_increment"`
}

// ApplicantConfig holds the applicant facts fed into content generation.
type ApplicantConfig struct {
	Name     string   `yaml:"name"`
	Role     string   `yaml:"role"`
	Years    int      `yaml:"years"`
	Skills   []string `yaml:"skills"`
	Summary  string   `yaml:"summary"`
	LinkedIn string   `yaml:"linkedin"`
}

// ResumeConfig holds the optional S3-hosted resume attached to outgoing
// applications. When Bucket is empty mail is sent without an attachment.
type ResumeConfig struct {
	Bucket   string `yaml:"bucket"`
	Key      string `yaml:"key"`
	Region   string `yaml:"region"`
	Filename string `yaml:"filename"`
}

// Load reads configuration from a YAML file and applies defaults.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.SES.Region == "" {
		cfg.SES.Region = "us-east-1"
	}
	if cfg.SES.TimeoutSeconds == 0 {
		cfg.SES.TimeoutSeconds = 30
	}
	if cfg.Bedrock.Region == "" {
		cfg.Bedrock.Region = cfg.SES.Region
	}
	if cfg.Bedrock.ModelID == "" {
		cfg.Bedrock.ModelID = "anthropic.claude-3-sonnet-20240229-v1:0"
	}
	if cfg.Bedrock.MaxTokens == 0 {
		cfg.Bedrock.MaxTokens = 1500
	}
	if cfg.Bedrock.Temperature == 0 {
		cfg.Bedrock.Temperature = 0.7
	}
	if cfg.Bedrock.TimeoutSeconds == 0 {
		cfg.Bedrock.TimeoutSeconds = 60
	}
	if cfg.Discovery.BaseURL == "" {
		cfg.Discovery.BaseURL = "https://api.hunter.io/v2"
	}
	if cfg.Discovery.RoleHint == "" {
		cfg.Discovery.RoleHint = "hr"
	}
	if cfg.Discovery.MinConfidence == 0 {
		cfg.Discovery.MinConfidence = 50
	}
	if cfg.Discovery.TimeoutSeconds == 0 {
		cfg.Discovery.TimeoutSeconds = 30
	}
	if cfg.Schedule.DefaultLimit == 0 {
		cfg.Schedule.DefaultLimit = 5
	}
	if cfg.Schedule.WarmupIncrement == 0 {
		cfg.Schedule.WarmupIncrement = 2
	}
	if cfg.Resume.Region == "" {
		cfg.Resume.Region = cfg.SES.Region
	}
	if cfg.Resume.Filename == "" {
		cfg.Resume.Filename = "resume.pdf"
	}
}

// LoadFromEnv loads configuration with environment variable overrides.
// A .env file (if present) is loaded first, so secrets can live in .env
// locally and in real env vars on the deployment host.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Container platforms need the listener on all interfaces.
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if v := os.Getenv("SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("AWS_SES_ACCESS_KEY"); v != "" {
		cfg.SES.AccessKey = v
	}
	if v := os.Getenv("AWS_SES_SECRET_KEY"); v != "" {
		cfg.SES.SecretKey = v
	}
	if v := os.Getenv("AWS_SES_REGION"); v != "" {
		cfg.SES.Region = v
	}
	if v := os.Getenv("SES_FROM_EMAIL"); v != "" {
		cfg.SES.FromEmail = v
	}
	if v := os.Getenv("BEDROCK_MODEL_ID"); v != "" {
		cfg.Bedrock.ModelID = v
	}
	if v := os.Getenv("DISCOVERY_API_KEY"); v != "" {
		cfg.Discovery.APIKey = v
	}
	if v := os.Getenv("WEBHOOK_BATCH_SECRET"); v != "" {
		cfg.Webhook.BatchSharedSecret = v
	}
	if v := os.Getenv("WEBHOOK_EVENT_SIGNING_KEY"); v != "" {
		cfg.Webhook.EventSigningKey = v
	}
	if v := os.Getenv("SCHEDULE_DEFAULT_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Schedule.DefaultLimit = n
		}
	}
	if v := os.Getenv("SCHEDULE_WARMUP_INCREMENT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Schedule.WarmupIncrement = n
		}
	}
	if v := os.Getenv("RESUME_S3_BUCKET"); v != "" {
		cfg.Resume.Bucket = v
	}
	if v := os.Getenv("RESUME_S3_KEY"); v != "" {
		cfg.Resume.Key = v
	}

	return cfg, nil
}

// Validate checks mandatory settings and fails fast on missing ones.
// Optional credentials (discovery API key, Redis) are not checked here;
// their absence degrades behavior at first use instead.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return domain.ConfigMissing("database.url (or DATABASE_URL)")
	}
	if c.SES.AccessKey == "" || c.SES.SecretKey == "" {
		return domain.ConfigMissing("ses.access_key/ses.secret_key (or AWS_SES_ACCESS_KEY/AWS_SES_SECRET_KEY)")
	}
	if c.SES.FromEmail == "" {
		return domain.ConfigMissing("ses.from_email")
	}
	if c.Applicant.Name == "" {
		return domain.ConfigMissing("applicant.name")
	}
	return nil
}
