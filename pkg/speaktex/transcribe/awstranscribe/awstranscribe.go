// Package awstranscribe implements the speaktex.TranscriptionClient
// interface on AWS Transcribe. Jobs read audio straight from the object
// store via s3:// media URIs and write their output document to the
// configured output bucket.
package awstranscribe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/transcribe"
	"github.com/aws/aws-sdk-go-v2/service/transcribe/types"
	"github.com/speaktex/speaktex/pkg/speaktex"
)

// Config options for the AWS Transcribe client
type Config struct {
	Region          string // AWS region
	AccessKeyID     string // AWS access key ID
	SecretAccessKey string // AWS secret access key
	LanguageCode    string // Transcription language (default: en-US)
	OutputBucket    string // Bucket where Transcribe writes its output document
}

// Client is an AWS Transcribe implementation of the
// speaktex.TranscriptionClient interface
type Client struct {
	transcribeClient *transcribe.Client
	s3Client         *s3.Client
	languageCode     string
	outputBucket     string
}

// New creates a new AWS Transcribe client
func New(config Config) (speaktex.TranscriptionClient, error) {
	if config.Region == "" {
		config.Region = "us-east-1"
	}
	if config.LanguageCode == "" {
		config.LanguageCode = "en-US"
	}

	var awsCfg aws.Config
	var err error

	if config.AccessKeyID != "" && config.SecretAccessKey != "" {
		awsCfg, err = awsconfig.LoadDefaultConfig(context.Background(),
			awsconfig.WithRegion(config.Region),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				config.AccessKeyID,
				config.SecretAccessKey,
				"",
			)),
		)
	} else {
		awsCfg, err = awsconfig.LoadDefaultConfig(context.Background(),
			awsconfig.WithRegion(config.Region),
		)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &Client{
		transcribeClient: transcribe.NewFromConfig(awsCfg),
		// Transcribe's output document lands in S3; the same credentials
		// fetch it back.
		s3Client:     s3.NewFromConfig(awsCfg),
		languageCode: config.LanguageCode,
		outputBucket: config.OutputBucket,
	}, nil
}

// StartJob submits a transcription job referencing the media by URI
func (c *Client) StartJob(ctx context.Context, jobName, mediaURI, mediaFormat string) error {
	input := &transcribe.StartTranscriptionJobInput{
		TranscriptionJobName: aws.String(jobName),
		Media: &types.Media{
			MediaFileUri: aws.String(mediaURI),
		},
		MediaFormat:  types.MediaFormat(mediaFormat),
		LanguageCode: types.LanguageCode(c.languageCode),
	}
	if c.outputBucket != "" {
		input.OutputBucketName = aws.String(c.outputBucket)
	}

	if _, err := c.transcribeClient.StartTranscriptionJob(ctx, input); err != nil {
		return fmt.Errorf("failed to start transcription job %s: %w", jobName, err)
	}

	return nil
}

// GetJob returns the current state of a submitted job
func (c *Client) GetJob(ctx context.Context, jobName string) (*speaktex.TranscriptionJob, error) {
	output, err := c.transcribeClient.GetTranscriptionJob(ctx, &transcribe.GetTranscriptionJobInput{
		TranscriptionJobName: aws.String(jobName),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get transcription job %s: %w", jobName, err)
	}

	awsJob := output.TranscriptionJob
	job := &speaktex.TranscriptionJob{
		JobName: jobName,
		Status:  jobStatusFrom(awsJob.TranscriptionJobStatus),
	}
	if awsJob.Transcript != nil && awsJob.Transcript.TranscriptFileUri != nil {
		job.TranscriptURI = *awsJob.Transcript.TranscriptFileUri
	}
	if awsJob.FailureReason != nil {
		job.FailureReason = *awsJob.FailureReason
	}

	return job, nil
}

// FetchTranscript downloads the job's output document from S3 and extracts
// the primary transcript text
func (c *Client) FetchTranscript(ctx context.Context, transcriptURI string) (string, error) {
	bucket, key, err := parseTranscriptURI(transcriptURI)
	if err != nil {
		return "", err
	}

	result, err := c.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", fmt.Errorf("failed to download transcript %s: %w", transcriptURI, err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read transcript body: %w", err)
	}

	return ExtractTranscriptText(data)
}

func jobStatusFrom(status types.TranscriptionJobStatus) speaktex.JobStatus {
	switch status {
	case types.TranscriptionJobStatusCompleted:
		return speaktex.JobStatusCompleted
	case types.TranscriptionJobStatusFailed:
		return speaktex.JobStatusFailed
	default:
		return speaktex.JobStatusInProgress
	}
}

// transcriptDocument is the subset of the Transcribe output document the
// pipeline cares about.
type transcriptDocument struct {
	Results struct {
		Transcripts []struct {
			Transcript string `json:"transcript"`
		} `json:"transcripts"`
	} `json:"results"`
}

// ExtractTranscriptText parses a Transcribe output document and returns the
// combined primary transcript.
func ExtractTranscriptText(data []byte) (string, error) {
	var doc transcriptDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", fmt.Errorf("failed to parse transcript document: %w", err)
	}

	if len(doc.Results.Transcripts) == 0 {
		return "", errors.New("no transcripts found in result")
	}

	text := strings.TrimSpace(doc.Results.Transcripts[0].Transcript)
	if text == "" {
		return "", speaktex.ErrEmptyTranscript
	}

	return text, nil
}

// parseTranscriptURI resolves the bucket and key out of a transcript URI.
// Transcribe reports either an s3:// URI or an https URL in virtual-host or
// path style.
func parseTranscriptURI(transcriptURI string) (bucket, key string, err error) {
	u, err := url.Parse(transcriptURI)
	if err != nil {
		return "", "", fmt.Errorf("invalid transcript URI %s: %w", transcriptURI, err)
	}

	switch {
	case u.Scheme == "s3":
		bucket = u.Host
		key = strings.TrimPrefix(u.Path, "/")
	case strings.Contains(u.Host, ".s3.") || strings.Contains(u.Host, ".s3-"):
		// bucket-name.s3.region.amazonaws.com/key
		bucket = strings.SplitN(u.Host, ".", 2)[0]
		key = strings.TrimPrefix(u.Path, "/")
	default:
		// s3.region.amazonaws.com/bucket-name/key
		parts := strings.SplitN(strings.TrimPrefix(u.Path, "/"), "/", 2)
		bucket = parts[0]
		if len(parts) > 1 {
			key = parts[1]
		}
	}

	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("cannot resolve bucket and key from transcript URI %s", transcriptURI)
	}
	return bucket, key, nil
}
