// Package dynamodb implements the speaktex.HistoryStore interface on a
// DynamoDB table partitioned by user_id with timestamp as the sort key.
package dynamodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/speaktex/speaktex/pkg/speaktex"
)

// Config options for the DynamoDB history store
type Config struct {
	Region          string // AWS region
	AccessKeyID     string // AWS access key ID
	SecretAccessKey string // AWS secret access key
	Table           string // DynamoDB table name
	Endpoint        string // Optional custom endpoint (DynamoDB Local)
}

// Store is a DynamoDB implementation of the speaktex.HistoryStore interface
type Store struct {
	client *dynamodb.Client
	table  string
}

// item mirrors speaktex.HistoryRecord with DynamoDB attribute names.
type item struct {
	UserID     string `dynamodbav:"user_id"`
	Timestamp  string `dynamodbav:"timestamp"`
	ID         string `dynamodbav:"id"`
	Transcript string `dynamodbav:"transcript"`
	Latex      string `dynamodbav:"latex"`
}

// New creates a new DynamoDB history store
func New(config Config) (speaktex.HistoryStore, error) {
	if config.Table == "" {
		return nil, errors.New("table name is required")
	}
	if config.Region == "" {
		config.Region = "us-east-1"
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

	var options []func(*dynamodb.Options)
	if config.Endpoint != "" {
		options = append(options, func(o *dynamodb.Options) {
			o.BaseEndpoint = aws.String(config.Endpoint)
		})
	}

	return &Store{
		client: dynamodb.NewFromConfig(awsCfg, options...),
		table:  config.Table,
	}, nil
}

// Insert appends a record
func (s *Store) Insert(ctx context.Context, record *speaktex.HistoryRecord) error {
	av, err := attributevalue.MarshalMap(item{
		UserID:     record.UserID,
		Timestamp:  record.Timestamp,
		ID:         record.ID,
		Transcript: record.Transcript,
		Latex:      record.Latex,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal history record: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("failed to put history record: %w", err)
	}

	return nil
}

// Query returns a user's records newest first
func (s *Store) Query(ctx context.Context, userID string, limit int) ([]*speaktex.HistoryRecord, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		KeyConditionExpression: aws.String("user_id = :uid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberS{Value: userID},
		},
		// Timestamp sort key descending == reverse chronological
		ScanIndexForward: aws.Bool(false),
	}
	if limit > 0 {
		input.Limit = aws.Int32(int32(limit))
	}

	output, err := s.client.Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}

	records := make([]*speaktex.HistoryRecord, 0, len(output.Items))
	for _, raw := range output.Items {
		var it item
		if err := attributevalue.UnmarshalMap(raw, &it); err != nil {
			return nil, fmt.Errorf("failed to unmarshal history record: %w", err)
		}
		records = append(records, &speaktex.HistoryRecord{
			UserID:     it.UserID,
			Timestamp:  it.Timestamp,
			ID:         it.ID,
			Transcript: it.Transcript,
			Latex:      it.Latex,
		})
	}

	return records, nil
}

// Delete removes one record and returns it, or speaktex.ErrRecordNotFound
func (s *Store) Delete(ctx context.Context, userID, timestamp string) (*speaktex.HistoryRecord, error) {
	output, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			"user_id":   &types.AttributeValueMemberS{Value: userID},
			"timestamp": &types.AttributeValueMemberS{Value: timestamp},
		},
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to delete history record: %w", err)
	}

	if len(output.Attributes) == 0 {
		return nil, speaktex.ErrRecordNotFound
	}

	var it item
	if err := attributevalue.UnmarshalMap(output.Attributes, &it); err != nil {
		return nil, fmt.Errorf("failed to unmarshal deleted record: %w", err)
	}

	return &speaktex.HistoryRecord{
		UserID:     it.UserID,
		Timestamp:  it.Timestamp,
		ID:         it.ID,
		Transcript: it.Transcript,
		Latex:      it.Latex,
	}, nil
}
