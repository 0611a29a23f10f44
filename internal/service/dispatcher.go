package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/nwishs/Images/internal/queue"
)

// Dispatcher routes work items to the processor matching their format tag.
//
// Malformed items (missing attribute) and unsupported tags are terminal
// skips: Handle returns nil so the delivery mechanism deletes the message.
// Processor errors propagate, leaving the message for redelivery. The
// dispatcher itself never retries.
type Dispatcher struct {
	processors map[string]Processor
	log        *zap.Logger
}

func NewDispatcher(processors map[string]Processor, log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		processors: processors,
		log:        log,
	}
}

func (d *Dispatcher) Handle(ctx context.Context, msg queue.Message) error {
	itemID := strings.TrimSpace(msg.Attribute(queue.AttrItemID))
	if itemID == "" {
		d.log.Warn("Missing ItemId attribute, skipping message",
			zap.String("message_id", msg.ID))
		return nil
	}

	sourceURL := strings.TrimSpace(msg.Attribute(queue.AttrS3URL))
	if sourceURL == "" {
		d.log.Warn("Missing S3URL attribute, skipping message",
			zap.String("message_id", msg.ID))
		return nil
	}

	format := strings.TrimSpace(msg.Attribute(queue.AttrFormat))
	if format == "" {
		d.log.Warn("Missing format attribute, skipping message",
			zap.String("message_id", msg.ID))
		return nil
	}

	processor, ok := d.processors[strings.ToLower(format)]
	if !ok {
		d.log.Warn("Unsupported format, skipping message",
			zap.String("message_id", msg.ID),
			zap.String("format", format))
		return nil
	}

	outputURL, err := processor.Process(ctx, itemID, sourceURL)
	if err != nil {
		return err
	}

	d.log.Info("Image processed",
		zap.String("item_id", itemID),
		zap.String("format", processor.Format()),
		zap.String("output_url", outputURL))

	return nil
}
