package cost

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/google/uuid"

	"github.com/Aviral2610/Lead-gen/internal/domain"
)

type dynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// costItem is one session summary stored in DynamoDB.
type costItem struct {
	PK            string  `dynamodbav:"PK"`
	SK            string  `dynamodbav:"SK"`
	SessionID     string  `dynamodbav:"SessionID"`
	TotalAPICalls int     `dynamodbav:"TotalAPICalls"`
	TotalCostUSD  float64 `dynamodbav:"TotalCostUSD"`
	DurationS     float64 `dynamodbav:"DurationS"`
	Data          string  `dynamodbav:"Data"`
	Timestamp     string  `dynamodbav:"Timestamp"`
}

// DynamoSink puts one item per session into a DynamoDB table.
type DynamoSink struct {
	client dynamoAPI
	table  string
}

// NewDynamoSink returns a sink writing to table.
func NewDynamoSink(client *dynamodb.Client, table string) *DynamoSink {
	return &DynamoSink{client: client, table: table}
}

func (s *DynamoSink) Append(ctx context.Context, entry domain.CostLogEntry) error {
	data, err := json.Marshal(entry.CostSummary)
	if err != nil {
		return fmt.Errorf("marshaling cost summary: %w", err)
	}

	item := costItem{
		PK:            "COST#session",
		SK:            entry.Timestamp.UTC().Format(time.RFC3339Nano),
		SessionID:     uuid.New().String(),
		TotalAPICalls: entry.TotalAPICalls,
		TotalCostUSD:  entry.EstimatedTotalCostUSD,
		DurationS:     entry.SessionDurationS,
		Data:          string(data),
		Timestamp:     entry.Timestamp.UTC().Format(time.RFC3339),
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("marshaling item: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("putting item to DynamoDB: %w", err)
	}
	return nil
}
