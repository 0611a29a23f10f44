package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/nwishs/Images/internal/domain"
	"github.com/nwishs/Images/internal/repository"
)

// fakeS3Repo implements repository.S3Repository in memory.
type fakeS3Repo struct {
	bucket       string
	objects      map[string][]byte
	contentTypes map[string]string
	sources      map[string][]byte // "<bucket>/<key>" -> bytes served by DownloadFile
	copies       []string          // "<srcBucket>/<srcKey> -> <destKey>"
	folders      []string
	listKeys     []string

	uploadErr  error
	presignErr error
}

func newFakeS3Repo(bucket string) *fakeS3Repo {
	return &fakeS3Repo{
		bucket:       bucket,
		objects:      map[string][]byte{},
		contentTypes: map[string]string{},
		sources:      map[string][]byte{},
	}
}

func (f *fakeS3Repo) UploadFile(_ context.Context, key string, body io.Reader, _ int64, contentType string) error {
	if f.uploadErr != nil {
		return f.uploadErr
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}

	f.objects[key] = data
	f.contentTypes[key] = contentType
	return nil
}

func (f *fakeS3Repo) DownloadFile(_ context.Context, bucket, key string) (io.ReadCloser, error) {
	data, ok := f.sources[bucket+"/"+key]
	if !ok {
		return nil, fmt.Errorf("no such object %s/%s", bucket, key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeS3Repo) ListFiles(_ context.Context, prefix string) ([]string, error) {
	return f.listKeys, nil
}

func (f *fakeS3Repo) CopyFile(_ context.Context, sourceBucket, sourceKey, destKey string) error {
	f.copies = append(f.copies, sourceBucket+"/"+sourceKey+" -> "+destKey)
	f.objects[destKey] = f.sources[sourceBucket+"/"+sourceKey]
	return nil
}

func (f *fakeS3Repo) EnsureFolder(_ context.Context, itemID string) error {
	f.folders = append(f.folders, itemID+"/")
	return nil
}

func (f *fakeS3Repo) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	if f.presignErr != nil {
		return "", f.presignErr
	}
	return "https://signed.example/" + key, nil
}

func (f *fakeS3Repo) ObjectURL(key string) string {
	return repository.BuildObjectURL(f.bucket, key)
}

func (f *fakeS3Repo) Bucket() string {
	return f.bucket
}

// fakeRegistry implements repository.ImageRegistry in memory.
type fakeRegistry struct {
	records map[string]domain.ImageRecord
	puts    []domain.ImageRecord
	getErr  error
	putErr  error
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{records: map[string]domain.ImageRecord{}}
}

func (f *fakeRegistry) GetImage(_ context.Context, imageID string) (*domain.ImageRecord, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}

	record, ok := f.records[imageID]
	if !ok {
		return nil, nil
	}
	return &record, nil
}

func (f *fakeRegistry) PutImage(_ context.Context, record domain.ImageRecord) error {
	if f.putErr != nil {
		return f.putErr
	}

	f.records[record.ImageID] = record
	f.puts = append(f.puts, record)
	return nil
}

// fakePublisher records published work items; fan-out publishes run
// concurrently, hence the mutex.
type fakePublisher struct {
	mu         sync.Mutex
	items      []domain.WorkItem
	failFormat string
}

func (f *fakePublisher) PublishWorkItem(_ context.Context, item domain.WorkItem) error {
	if f.failFormat != "" && item.Format == f.failFormat {
		return errors.New("publish failed")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, item)
	return nil
}

func (f *fakePublisher) formats() map[string]bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	formats := make(map[string]bool, len(f.items))
	for _, item := range f.items {
		formats[item.Format] = true
	}
	return formats
}
