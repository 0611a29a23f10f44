package config

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	S3       S3Config
	Registry RegistryConfig
	Queue    QueueConfig
	Ingest   IngestConfig
}

type ServerConfig struct {
	Host string
	Port string
}

type S3Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
	BucketName      string
	Region          string
}

type RegistryConfig struct {
	Table string
}

type QueueConfig struct {
	URL               string
	WaitTimeSeconds   int32
	MaxMessages       int32
	VisibilityTimeout int32
}

type IngestConfig struct {
	DownloadTimeout time.Duration
	PresignTTL      time.Duration
}

func Load() (*Config, error) {
	viper.SetDefault("SERVER_HOST", "localhost")
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("S3_ENDPOINT", "")
	viper.SetDefault("S3_ACCESS_KEY_ID", "")
	viper.SetDefault("S3_SECRET_ACCESS_KEY", "")
	viper.SetDefault("S3_USE_SSL", true)
	viper.SetDefault("S3_BUCKET_NAME", "carimagesrepository2")
	viper.SetDefault("S3_REGION", "ap-southeast-2")
	viper.SetDefault("IMAGES_TABLE", "Images")
	viper.SetDefault("SQS_QUEUE_URL", "")
	viper.SetDefault("SQS_WAIT_TIME_SECONDS", 20)
	viper.SetDefault("SQS_MAX_MESSAGES", 10)
	viper.SetDefault("SQS_VISIBILITY_TIMEOUT", 60)
	viper.SetDefault("DOWNLOAD_TIMEOUT", "30s")
	viper.SetDefault("PRESIGN_TTL", "15m")

	viper.AutomaticEnv()

	cfg := &Config{
		Server: ServerConfig{
			Host: viper.GetString("SERVER_HOST"),
			Port: viper.GetString("SERVER_PORT"),
		},
		S3: S3Config{
			Endpoint:        viper.GetString("S3_ENDPOINT"),
			AccessKeyID:     viper.GetString("S3_ACCESS_KEY_ID"),
			SecretAccessKey: viper.GetString("S3_SECRET_ACCESS_KEY"),
			UseSSL:          viper.GetBool("S3_USE_SSL"),
			BucketName:      viper.GetString("S3_BUCKET_NAME"),
			Region:          viper.GetString("S3_REGION"),
		},
		Registry: RegistryConfig{
			Table: viper.GetString("IMAGES_TABLE"),
		},
		Queue: QueueConfig{
			URL:               viper.GetString("SQS_QUEUE_URL"),
			WaitTimeSeconds:   viper.GetInt32("SQS_WAIT_TIME_SECONDS"),
			MaxMessages:       viper.GetInt32("SQS_MAX_MESSAGES"),
			VisibilityTimeout: viper.GetInt32("SQS_VISIBILITY_TIMEOUT"),
		},
		Ingest: IngestConfig{
			DownloadTimeout: viper.GetDuration("DOWNLOAD_TIMEOUT"),
			PresignTTL:      viper.GetDuration("PRESIGN_TTL"),
		},
	}

	return cfg, nil
}

// NewAWSConfig resolves the shared AWS client configuration once at process
// start. A non-empty S3 endpoint switches clients to a custom
// (MinIO-compatible) endpoint with static credentials.
func NewAWSConfig(ctx context.Context, cfg *S3Config) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}

	if cfg.Endpoint != "" {
		customResolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{
				URL:               cfg.Endpoint,
				HostnameImmutable: true,
				Source:            aws.EndpointSourceCustom,
			}, nil
		})
		opts = append(opts, awsconfig.WithEndpointResolverWithOptions(customResolver))
	}

	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	return awsconfig.LoadDefaultConfig(ctx, opts...)
}
