package repository

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/nwishs/Images/internal/domain"
)

// ImageRegistry persists image provenance rows keyed by ImageId.
//
// The key is the bare filename stem, not scoped by item: two items whose
// source files share a name collide on one row. Callers compensate by
// cross-checking the stored ItemId, which is why GetImage returns the full
// record rather than a bool.
type ImageRegistry interface {
	GetImage(ctx context.Context, imageID string) (*domain.ImageRecord, error)
	PutImage(ctx context.Context, record domain.ImageRecord) error
}

// DynamoAPI is the slice of the DynamoDB client the registry uses.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

type dynamoRegistry struct {
	client DynamoAPI
	table  string
	log    *zap.Logger
}

func NewDynamoRegistry(client DynamoAPI, table string, log *zap.Logger) ImageRegistry {
	return &dynamoRegistry{
		client: client,
		table:  table,
		log:    log,
	}
}

// GetImage returns the record for imageID, or nil when no row exists. Rows
// written before the format column was introduced unmarshal with an empty
// Format.
func (r *dynamoRegistry) GetImage(ctx context.Context, imageID string) (*domain.ImageRecord, error) {
	output, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.table),
		Key: map[string]types.AttributeValue{
			"ImageId": &types.AttributeValueMemberS{Value: imageID},
		},
	})

	if err != nil {
		r.log.Error("Failed to read image record",
			zap.String("image_id", imageID),
			zap.Error(err))
		return nil, err
	}

	if len(output.Item) == 0 {
		return nil, nil
	}

	var record domain.ImageRecord
	if err := attributevalue.UnmarshalMap(output.Item, &record); err != nil {
		return nil, err
	}

	return &record, nil
}

func (r *dynamoRegistry) PutImage(ctx context.Context, record domain.ImageRecord) error {
	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return err
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.table),
		Item:      item,
	})

	if err != nil {
		r.log.Error("Failed to write image record",
			zap.String("image_id", record.ImageID),
			zap.String("item_id", record.ItemID),
			zap.Error(err))
		return err
	}

	r.log.Info("Image record written",
		zap.String("image_id", record.ImageID),
		zap.String("item_id", record.ItemID),
		zap.String("format", record.Format))

	return nil
}
