package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nwishs/Images/internal/domain"
	"github.com/nwishs/Images/internal/repository"
	"github.com/nwishs/Images/pkg/imgops"
)

// Processor produces one named derivative from a source object and commits
// it (object store + registry). Errors are not handled locally; they
// propagate to the dispatcher's retry path.
type Processor interface {
	Format() string
	Process(ctx context.Context, itemID, sourceURL string) (string, error)
}

// NewProcessors builds the dispatch table, keyed by lowercase format tag.
func NewProcessors(s3Repo repository.S3Repository, registry repository.ImageRegistry, log *zap.Logger) map[string]Processor {
	core := processorCore{s3Repo: s3Repo, registry: registry, log: log}

	processors := []Processor{
		&resizeProcessor{processorCore: core, format: domain.Format32Px, size: 32},
		&resizeProcessor{processorCore: core, format: domain.Format100Px, size: 100},
		&resizeProcessor{processorCore: core, format: domain.Format200Px, size: 200},
		&blurProcessor{processorCore: core},
	}

	table := make(map[string]Processor, len(processors))
	for _, p := range processors {
		table[strings.ToLower(p.Format())] = p
	}

	return table
}

// processorCore carries the shared collaborators and the common
// identity/commit steps of every processor.
type processorCore struct {
	s3Repo   repository.S3Repository
	registry repository.ImageRegistry
	log      *zap.Logger
}

// sourceInfo is the shared preamble result: the parsed source location and
// the identity derived from its key.
type sourceInfo struct {
	bucket    string
	key       string
	imageID   string
	extension string
}

func resolveSource(sourceURL string) (sourceInfo, error) {
	bucket, key, err := repository.ParseObjectURL(sourceURL)
	if err != nil {
		return sourceInfo{}, err
	}

	imageID, extension := extractImageInfo(key)

	return sourceInfo{
		bucket:    bucket,
		key:       key,
		imageID:   imageID,
		extension: extension,
	}, nil
}

// extractImageInfo derives (imageId, extension) from the key's filename,
// defaulting the extension to .jpg.
func extractImageInfo(key string) (string, string) {
	fileName := path.Base(key)

	extension := path.Ext(fileName)
	if extension == "" {
		extension = ".jpg"
	}

	imageID := strings.TrimSuffix(fileName, path.Ext(fileName))
	if imageID == "" {
		imageID = strings.ReplaceAll(uuid.New().String(), "-", "")
	}

	return imageID, extension
}

func destinationKey(itemID string, src sourceInfo, format string) string {
	return fmt.Sprintf("%s/%s_%s%s", itemID, src.imageID, format, src.extension)
}

func (c processorCore) fetchSource(ctx context.Context, src sourceInfo) ([]byte, error) {
	body, err := c.s3Repo.DownloadFile(ctx, src.bucket, src.key)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	return io.ReadAll(body)
}

// commit writes the derivative's registry row and returns its URL.
func (c processorCore) commit(ctx context.Context, itemID string, src sourceInfo, format, destKey string) (string, error) {
	outputURL := c.s3Repo.ObjectURL(destKey)

	err := c.registry.PutImage(ctx, domain.ImageRecord{
		ItemID:  itemID,
		ImageID: fmt.Sprintf("%s_%s", src.imageID, strings.ToUpper(format)),
		Format:  format,
		URL:     outputURL,
	})
	if err != nil {
		return "", err
	}

	return outputURL, nil
}

// resizeProcessor scales the source down to fit a size x size box,
// preserving aspect ratio, re-encoding in the source's own format when an
// encoder exists and as JPEG otherwise.
type resizeProcessor struct {
	processorCore
	format string
	size   int
}

func (p *resizeProcessor) Format() string { return p.format }

func (p *resizeProcessor) Process(ctx context.Context, itemID, sourceURL string) (string, error) {
	src, err := resolveSource(sourceURL)
	if err != nil {
		return "", err
	}

	data, err := p.fetchSource(ctx, src)
	if err != nil {
		return "", err
	}

	img, detectedFormat, err := imgops.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to decode %s: %w", src.key, err)
	}

	resized := imgops.Fit(img, p.size)

	encoded, contentType, err := imgops.Encode(resized, detectedFormat)
	if err != nil {
		return "", err
	}

	destKey := destinationKey(itemID, src, p.format)
	if err := p.s3Repo.UploadFile(ctx, destKey, bytes.NewReader(encoded), int64(len(encoded)), contentType); err != nil {
		return "", err
	}

	return p.commit(ctx, itemID, src, p.format, destKey)
}

// blurProcessor produces the blurred preview.
type blurProcessor struct {
	processorCore
}

func (p *blurProcessor) Format() string { return domain.FormatBlurred }

func (p *blurProcessor) Process(ctx context.Context, itemID, sourceURL string) (string, error) {
	src, err := resolveSource(sourceURL)
	if err != nil {
		return "", err
	}

	data, err := p.fetchSource(ctx, src)
	if err != nil {
		return "", err
	}

	img, detectedFormat, err := imgops.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to decode %s: %w", src.key, err)
	}

	blurred := imgops.Blur(img)

	encoded, contentType, err := imgops.Encode(blurred, detectedFormat)
	if err != nil {
		return "", err
	}

	destKey := destinationKey(itemID, src, p.Format())
	if err := p.s3Repo.UploadFile(ctx, destKey, bytes.NewReader(encoded), int64(len(encoded)), contentType); err != nil {
		return "", err
	}

	return p.commit(ctx, itemID, src, p.Format(), destKey)
}

// copyProcessor is the identity transform: a server-side copy of the source
// object with no decode. No format tag routes to it at dispatch time; it is
// a building block for formats that need the original bytes unchanged.
type copyProcessor struct {
	processorCore
	format string
}

// NewCopyProcessor returns an identity processor committing under the given
// format tag.
func NewCopyProcessor(s3Repo repository.S3Repository, registry repository.ImageRegistry, format string, log *zap.Logger) Processor {
	return &copyProcessor{
		processorCore: processorCore{s3Repo: s3Repo, registry: registry, log: log},
		format:        format,
	}
}

func (p *copyProcessor) Format() string { return p.format }

func (p *copyProcessor) Process(ctx context.Context, itemID, sourceURL string) (string, error) {
	src, err := resolveSource(sourceURL)
	if err != nil {
		return "", err
	}

	destKey := destinationKey(itemID, src, p.format)
	if err := p.s3Repo.CopyFile(ctx, src.bucket, src.key, destKey); err != nil {
		return "", err
	}

	return p.commit(ctx, itemID, src, p.format, destKey)
}
