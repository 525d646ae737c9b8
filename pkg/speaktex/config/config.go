// Package config loads server configuration from the environment and wires
// the pipeline service from it. Capability backends always receive explicit
// config structs; nothing reads ambient global state.
package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/speaktex/speaktex/pkg/speaktex"
	historydynamodb "github.com/speaktex/speaktex/pkg/speaktex/history/dynamodb"
	historymemory "github.com/speaktex/speaktex/pkg/speaktex/history/memory"
	markupopenai "github.com/speaktex/speaktex/pkg/speaktex/markup/openai"
	storagememory "github.com/speaktex/speaktex/pkg/speaktex/storage/memory"
	storages3 "github.com/speaktex/speaktex/pkg/speaktex/storage/s3"
	"github.com/speaktex/speaktex/pkg/speaktex/transcribe/awstranscribe"
)

// ServerConfig holds the full server configuration
type ServerConfig struct {
	Port        string `env:"PORT" env-default:"8080"`
	Environment string `env:"ENVIRONMENT" env-default:"development"`

	// Backend selection: "memory" for local development, "s3"/"dynamodb"
	// for the real stores
	StorageBackend string `env:"STORAGE_BACKEND" env-default:"memory"`
	HistoryBackend string `env:"HISTORY_BACKEND" env-default:"memory"`

	AWSRegion          string `env:"AWS_REGION" env-default:"us-east-2"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`

	S3Bucket       string `env:"S3_BUCKET_NAME"`
	S3Endpoint     string `env:"S3_ENDPOINT"`
	S3UsePathStyle bool   `env:"S3_USE_PATH_STYLE" env-default:"false"`

	DynamoDBTable    string `env:"DYNAMODB_TABLE_NAME" env-default:"speaktex-history"`
	DynamoDBEndpoint string `env:"DYNAMODB_ENDPOINT"`

	TranscribeLanguage string `env:"TRANSCRIBE_LANGUAGE_CODE" env-default:"en-US"`

	OpenAIAPIKey  string `env:"OPENAI_API_KEY"`
	OpenAIModel   string `env:"OPENAI_MODEL"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL"`

	UploadExpirySeconds  int `env:"UPLOAD_EXPIRY_SECONDS" env-default:"300"`
	PollIntervalSeconds  int `env:"POLL_INTERVAL_SECONDS" env-default:"5"`
	PollTimeoutSeconds   int `env:"POLL_TIMEOUT_SECONDS" env-default:"300"`
	MarkupTimeoutSeconds int `env:"MARKUP_TIMEOUT_SECONDS" env-default:"30"`

	MaxUploadBytes int64 `env:"MAX_UPLOAD_BYTES" env-default:"10485760"`
}

// Load reads configuration from the environment
func Load() (*ServerConfig, error) {
	var cfg ServerConfig
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	return &cfg, nil
}

// BuildService constructs the pipeline service with the configured backends
func (c *ServerConfig) BuildService() (speaktex.Service, error) {
	opts := []speaktex.Option{
		speaktex.WithUploadExpiry(time.Duration(c.UploadExpirySeconds) * time.Second),
		speaktex.WithPollInterval(time.Duration(c.PollIntervalSeconds) * time.Second),
		speaktex.WithPollTimeout(time.Duration(c.PollTimeoutSeconds) * time.Second),
		speaktex.WithMarkupTimeout(time.Duration(c.MarkupTimeoutSeconds) * time.Second),
	}

	switch c.StorageBackend {
	case "memory":
		opts = append(opts, speaktex.WithBlobStore(storagememory.New()))
	case "s3":
		store, err := storages3.New(storages3.Config{
			Region:          c.AWSRegion,
			Bucket:          c.S3Bucket,
			AccessKeyID:     c.AWSAccessKeyID,
			SecretAccessKey: c.AWSSecretAccessKey,
			Endpoint:        c.S3Endpoint,
			UsePathStyle:    c.S3UsePathStyle,
			PresignDuration: c.UploadExpirySeconds,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 backend: %w", err)
		}
		opts = append(opts,
			speaktex.WithBlobStore(store),
			speaktex.WithMediaBucket(c.S3Bucket),
		)

		transcriber, err := awstranscribe.New(awstranscribe.Config{
			Region:          c.AWSRegion,
			AccessKeyID:     c.AWSAccessKeyID,
			SecretAccessKey: c.AWSSecretAccessKey,
			LanguageCode:    c.TranscribeLanguage,
			OutputBucket:    c.S3Bucket,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create transcribe client: %w", err)
		}
		opts = append(opts, speaktex.WithTranscriptionClient(transcriber))
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s (use 'memory' or 's3')", c.StorageBackend)
	}

	switch c.HistoryBackend {
	case "memory":
		opts = append(opts, speaktex.WithHistoryStore(historymemory.New()))
	case "dynamodb":
		store, err := historydynamodb.New(historydynamodb.Config{
			Region:          c.AWSRegion,
			AccessKeyID:     c.AWSAccessKeyID,
			SecretAccessKey: c.AWSSecretAccessKey,
			Table:           c.DynamoDBTable,
			Endpoint:        c.DynamoDBEndpoint,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create DynamoDB history store: %w", err)
		}
		opts = append(opts, speaktex.WithHistoryStore(store))
	default:
		return nil, fmt.Errorf("unsupported history backend: %s (use 'memory' or 'dynamodb')", c.HistoryBackend)
	}

	if c.OpenAIAPIKey != "" {
		markup, err := markupopenai.New(markupopenai.Config{
			APIKey:  c.OpenAIAPIKey,
			Model:   c.OpenAIModel,
			BaseURL: c.OpenAIBaseURL,
			Timeout: time.Duration(c.MarkupTimeoutSeconds) * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create markup client: %w", err)
		}
		opts = append(opts, speaktex.WithMarkupClient(markup))
	}

	return speaktex.New(opts...)
}
