package repository

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	s3config "github.com/nwishs/Images/internal/config"
)

// S3Repository is the object-store boundary. Originals live at
// <itemId>/<fileName>, derivatives at <itemId>/<imageId>_<format><ext>, and a
// zero-byte marker at <itemId>/.
type S3Repository interface {
	UploadFile(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	DownloadFile(ctx context.Context, bucket, key string) (io.ReadCloser, error)
	ListFiles(ctx context.Context, prefix string) ([]string, error)
	CopyFile(ctx context.Context, sourceBucket, sourceKey, destKey string) error
	EnsureFolder(ctx context.Context, itemID string) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
	ObjectURL(key string) string
	Bucket() string
}

type s3Repository struct {
	client    *s3.Client
	presigner *s3.PresignClient
	cfg       *s3config.S3Config
	log       *zap.Logger
}

func NewS3Repository(client *s3.Client, cfg *s3config.S3Config, log *zap.Logger) S3Repository {
	return &s3Repository{
		client:    client,
		presigner: s3.NewPresignClient(client),
		cfg:       cfg,
		log:       log,
	}
}

func (r *s3Repository) UploadFile(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	_, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(r.cfg.BucketName),
		Key:           aws.String(key),
		Body:          body,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	})

	if err != nil {
		r.log.Error("Failed to upload file to S3",
			zap.String("key", key),
			zap.Error(err))
		return err
	}

	r.log.Info("File uploaded to S3",
		zap.String("key", key),
		zap.Int64("size", size))

	return nil
}

func (r *s3Repository) DownloadFile(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	output, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})

	if err != nil {
		r.log.Error("Failed to download file from S3",
			zap.String("bucket", bucket),
			zap.String("key", key),
			zap.Error(err))
		return nil, err
	}

	return output.Body, nil
}

func (r *s3Repository) ListFiles(ctx context.Context, prefix string) ([]string, error) {
	var keys []string

	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(r.cfg.BucketName),
		Prefix: aws.String(prefix),
	}

	for {
		output, err := r.client.ListObjectsV2(ctx, input)
		if err != nil {
			return nil, err
		}

		for _, obj := range output.Contents {
			keys = append(keys, *obj.Key)
		}

		if output.IsTruncated == nil || !*output.IsTruncated {
			break
		}
		input.ContinuationToken = output.NextContinuationToken
	}

	return keys, nil
}

func (r *s3Repository) CopyFile(ctx context.Context, sourceBucket, sourceKey, destKey string) error {
	_, err := r.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(r.cfg.BucketName),
		CopySource: aws.String(sourceBucket + "/" + sourceKey),
		Key:        aws.String(destKey),
	})

	if err != nil {
		r.log.Error("Failed to copy file in S3",
			zap.String("source", sourceBucket+"/"+sourceKey),
			zap.String("destination", destKey),
			zap.Error(err))
		return err
	}

	r.log.Info("File copied in S3",
		zap.String("source", sourceBucket+"/"+sourceKey),
		zap.String("destination", destKey))

	return nil
}

// EnsureFolder writes the zero-byte folder marker for an item. Idempotent.
func (r *s3Repository) EnsureFolder(ctx context.Context, itemID string) error {
	folderKey := strings.TrimRight(itemID, "/") + "/"

	_, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(r.cfg.BucketName),
		Key:    aws.String(folderKey),
		Body:   strings.NewReader(""),
	})

	if err != nil {
		r.log.Error("Failed to create folder marker",
			zap.String("key", folderKey),
			zap.Error(err))
		return err
	}

	return nil
}

func (r *s3Repository) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, err := r.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.cfg.BucketName),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))

	if err != nil {
		r.log.Error("Failed to presign object",
			zap.String("key", key),
			zap.Error(err))
		return "", err
	}

	return req.URL, nil
}

func (r *s3Repository) ObjectURL(key string) string {
	return BuildObjectURL(r.cfg.BucketName, key)
}

func (r *s3Repository) Bucket() string {
	return r.cfg.BucketName
}
