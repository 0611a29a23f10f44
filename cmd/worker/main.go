package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/nwishs/Images/internal/config"
	"github.com/nwishs/Images/internal/queue"
	"github.com/nwishs/Images/internal/repository"
	"github.com/nwishs/Images/internal/service"
	"github.com/nwishs/Images/pkg/logger"
)

func main() {
	log, err := logger.NewSugared()
	if err != nil {
		os.Stderr.WriteString("CRITICAL: Failed to initialize logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config: ", err)
	}
	if cfg.Queue.URL == "" {
		log.Fatal("SQS_QUEUE_URL is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	awsCfg, err := config.NewAWSConfig(ctx, &cfg.S3)
	if err != nil {
		log.Fatal("Failed to load AWS config: ", err)
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3.Endpoint != "" {
			o.UsePathStyle = true
		}
	})

	zl := log.Desugar()
	s3Repo := repository.NewS3Repository(s3Client, &cfg.S3, zl)
	registry := repository.NewDynamoRegistry(dynamodb.NewFromConfig(awsCfg), cfg.Registry.Table, zl)

	dispatcher := service.NewDispatcher(service.NewProcessors(s3Repo, registry, zl), zl)
	consumer := queue.NewConsumer(sqs.NewFromConfig(awsCfg), &cfg.Queue, dispatcher, zl)

	log.Infof("Starting worker on queue %s", cfg.Queue.URL)
	if err := consumer.Run(ctx); err != nil {
		log.Fatal("Worker failed: ", err)
	}

	log.Info("Worker exited")
}
