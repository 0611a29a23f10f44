package queue

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.uber.org/zap"

	"github.com/nwishs/Images/internal/config"
)

// receiveBackoff paces the poll loop after a failed ReceiveMessage call.
const receiveBackoff = time.Second

// Message is one delivery attempt of a work item.
type Message struct {
	ID            string
	Body          string
	Attributes    map[string]string
	ReceiptHandle string
}

// Attribute returns the named message attribute, or "" when absent.
func (m Message) Attribute(name string) string {
	return m.Attributes[name]
}

// Handler processes one message. A nil return means the message is done
// (including terminal skips) and may be deleted; an error leaves it on the
// queue for redelivery per the queue's visibility/dead-letter policy.
type Handler interface {
	Handle(ctx context.Context, msg Message) error
}

// SQSReceiveAPI is the slice of the SQS client the consumer uses.
type SQSReceiveAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// Consumer long-polls the queue and hands each message to the handler. It
// performs no retry of its own.
type Consumer struct {
	client  SQSReceiveAPI
	cfg     *config.QueueConfig
	handler Handler
	log     *zap.Logger
}

func NewConsumer(client SQSReceiveAPI, cfg *config.QueueConfig, handler Handler, log *zap.Logger) *Consumer {
	return &Consumer{
		client:  client,
		cfg:     cfg,
		handler: handler,
		log:     log,
	}
}

// Run polls until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	c.log.Info("Consumer started", zap.String("queue_url", c.cfg.URL))

	for {
		output, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:              aws.String(c.cfg.URL),
			MaxNumberOfMessages:   c.cfg.MaxMessages,
			WaitTimeSeconds:       c.cfg.WaitTimeSeconds,
			VisibilityTimeout:     c.cfg.VisibilityTimeout,
			MessageAttributeNames: []string{string(types.QueueAttributeNameAll)},
		})

		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				c.log.Info("Consumer stopped")
				return nil
			}
			c.log.Error("Failed to receive messages", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(receiveBackoff):
			}
			continue
		}

		for _, raw := range output.Messages {
			c.process(ctx, toMessage(raw))
		}
	}
}

func (c *Consumer) process(ctx context.Context, msg Message) {
	if err := c.handler.Handle(ctx, msg); err != nil {
		// Leave the message for redelivery.
		c.log.Error("Failed to process message",
			zap.String("message_id", msg.ID),
			zap.Error(err))
		return
	}

	if _, err := c.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.cfg.URL),
		ReceiptHandle: aws.String(msg.ReceiptHandle),
	}); err != nil {
		c.log.Error("Failed to delete message",
			zap.String("message_id", msg.ID),
			zap.Error(err))
	}
}

func toMessage(raw types.Message) Message {
	attrs := make(map[string]string, len(raw.MessageAttributes))
	for name, value := range raw.MessageAttributes {
		if value.StringValue != nil {
			attrs[name] = *value.StringValue
		}
	}

	return Message{
		ID:            aws.ToString(raw.MessageId),
		Body:          aws.ToString(raw.Body),
		Attributes:    attrs,
		ReceiptHandle: aws.ToString(raw.ReceiptHandle),
	}
}
