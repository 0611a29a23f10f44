package queue

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.uber.org/zap"

	"github.com/nwishs/Images/internal/domain"
)

// Message attribute names. Routing reads attributes, not the body.
const (
	AttrItemID = "ItemId"
	AttrS3URL  = "S3URL"
	AttrFormat = "format"
)

// Publisher sends transformation work items to the event channel.
type Publisher interface {
	PublishWorkItem(ctx context.Context, item domain.WorkItem) error
}

// SQSSendAPI is the slice of the SQS client the publisher uses.
type SQSSendAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

type sqsPublisher struct {
	client   SQSSendAPI
	queueURL string
	log      *zap.Logger
}

func NewPublisher(client SQSSendAPI, queueURL string, log *zap.Logger) Publisher {
	return &sqsPublisher{
		client:   client,
		queueURL: queueURL,
		log:      log,
	}
}

// PublishWorkItem sends one work item: JSON body plus the same three fields
// mirrored as typed string message attributes.
func (p *sqsPublisher) PublishWorkItem(ctx context.Context, item domain.WorkItem) error {
	body, err := json.Marshal(item)
	if err != nil {
		return err
	}

	_, err = p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			AttrItemID: {DataType: aws.String("String"), StringValue: aws.String(item.ItemID)},
			AttrS3URL:  {DataType: aws.String("String"), StringValue: aws.String(item.S3URL)},
			AttrFormat: {DataType: aws.String("String"), StringValue: aws.String(item.Format)},
		},
	})

	if err != nil {
		p.log.Error("Failed to publish work item",
			zap.String("item_id", item.ItemID),
			zap.String("format", item.Format),
			zap.Error(err))
		return err
	}

	p.log.Info("Work item published",
		zap.String("item_id", item.ItemID),
		zap.String("s3_url", item.S3URL),
		zap.String("format", item.Format))

	return nil
}
