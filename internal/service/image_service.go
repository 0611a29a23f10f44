package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nwishs/Images/internal/config"
	"github.com/nwishs/Images/internal/domain"
	"github.com/nwishs/Images/internal/queue"
	"github.com/nwishs/Images/internal/repository"
)

// ErrInvalidRequest marks a malformed ingestion request, rejected before any
// side effect.
var ErrInvalidRequest = errors.New("itemId and photoUrls are required")

type ImageService interface {
	IngestImages(ctx context.Context, req domain.IngestRequest) ([]domain.IngestedImage, error)
	ListItemImages(ctx context.Context, itemID string) ([]string, error)
}

type imageService struct {
	s3Repo     repository.S3Repository
	registry   repository.ImageRegistry
	publisher  queue.Publisher
	httpClient *http.Client
	cfg        *config.Config
	log        *zap.Logger
}

func NewImageService(
	s3Repo repository.S3Repository,
	registry repository.ImageRegistry,
	publisher queue.Publisher,
	cfg *config.Config,
	log *zap.Logger,
) ImageService {
	return &imageService{
		s3Repo:     s3Repo,
		registry:   registry,
		publisher:  publisher,
		httpClient: &http.Client{Timeout: cfg.Ingest.DownloadTimeout},
		cfg:        cfg,
		log:        log,
	}
}

// IngestImages commits each source photo as an original and fans out one
// work item per derivative format. URLs are processed sequentially; the
// first failure aborts the whole request, leaving earlier commits in place.
// Already-registered photos are skipped silently.
func (s *imageService) IngestImages(ctx context.Context, req domain.IngestRequest) ([]domain.IngestedImage, error) {
	if strings.TrimSpace(req.ItemID) == "" || len(req.PhotoURLs) == 0 {
		return nil, ErrInvalidRequest
	}

	if err := s.s3Repo.EnsureFolder(ctx, req.ItemID); err != nil {
		return nil, fmt.Errorf("failed to prepare folder for item %s: %w", req.ItemID, err)
	}

	var ingested []domain.IngestedImage

	for _, photoURL := range req.PhotoURLs {
		photoURL = strings.TrimSpace(photoURL)
		if photoURL == "" {
			continue
		}

		s.log.Info("Processing photo",
			zap.String("item_id", req.ItemID),
			zap.String("url", photoURL))

		image, err := s.ingestOne(ctx, req.ItemID, photoURL)
		if err != nil {
			s.log.Error("Failed processing photo",
				zap.String("item_id", req.ItemID),
				zap.String("url", photoURL),
				zap.Error(err))
			return nil, fmt.Errorf("failed processing image %s: %w", photoURL, err)
		}

		if image != nil {
			ingested = append(ingested, *image)
		}
	}

	return ingested, nil
}

// ingestOne runs the full pipeline for a single photo URL. A nil image with
// a nil error means the photo was already registered.
func (s *imageService) ingestOne(ctx context.Context, itemID, photoURL string) (*domain.IngestedImage, error) {
	imageID, objectKey, fileName, err := buildObjectKey(itemID, photoURL)
	if err != nil {
		return nil, err
	}

	registered, err := s.isImageRegistered(ctx, itemID, imageID)
	if err != nil {
		return nil, err
	}
	if registered {
		s.log.Info("Image already registered, skipping",
			zap.String("item_id", itemID),
			zap.String("image_id", imageID))
		return nil, nil
	}

	body, contentType, err := s.download(ctx, photoURL)
	if err != nil {
		return nil, err
	}

	if err := s.s3Repo.UploadFile(ctx, objectKey, bytes.NewReader(body), int64(len(body)), contentType); err != nil {
		return nil, err
	}

	s3URL := s.s3Repo.ObjectURL(objectKey)

	if err := s.registry.PutImage(ctx, domain.ImageRecord{
		ItemID:  itemID,
		ImageID: imageID,
		Format:  domain.FormatOriginal,
		URL:     s3URL,
	}); err != nil {
		return nil, err
	}

	if err := s.fanOut(ctx, itemID, s3URL); err != nil {
		return nil, err
	}

	return &domain.IngestedImage{
		ImageID:  imageID,
		FileName: fileName,
		S3URL:    s3URL,
	}, nil
}

// isImageRegistered reports whether imageID already holds an ORIGINAL row
// for this item. The stored ItemId is cross-checked because the registry key
// is not scoped by item; rows without a format column count as legacy
// matches.
func (s *imageService) isImageRegistered(ctx context.Context, itemID, imageID string) (bool, error) {
	record, err := s.registry.GetImage(ctx, imageID)
	if err != nil {
		return false, err
	}
	if record == nil {
		return false, nil
	}

	if !strings.EqualFold(record.ItemID, itemID) {
		return false, nil
	}

	return record.Format == "" || strings.EqualFold(record.Format, domain.FormatOriginal), nil
}

func (s *imageService) download(ctx context.Context, photoURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, photoURL, nil)
	if err != nil {
		return nil, "", err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", fmt.Errorf("download failed with status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return body, contentType, nil
}

// fanOut publishes one work item per derivative format, all concurrently,
// and joins them. The first publish failure fails the image step.
func (s *imageService) fanOut(ctx context.Context, itemID, s3URL string) error {
	g, gctx := errgroup.WithContext(ctx)

	for _, format := range domain.DerivativeFormats {
		format := format
		s.log.Info("Queueing work item",
			zap.String("item_id", itemID),
			zap.String("s3_url", s3URL),
			zap.String("format", format))

		g.Go(func() error {
			return s.publisher.PublishWorkItem(gctx, domain.WorkItem{
				ItemID: itemID,
				S3URL:  s3URL,
				Format: format,
			})
		})
	}

	return g.Wait()
}

// ListItemImages returns presigned links for every stored variant of an
// item, skipping the folder marker.
func (s *imageService) ListItemImages(ctx context.Context, itemID string) ([]string, error) {
	prefix := strings.TrimRight(itemID, "/") + "/"

	keys, err := s.s3Repo.ListFiles(ctx, prefix)
	if err != nil {
		return nil, err
	}

	urls := make([]string, 0, len(keys))
	for _, key := range keys {
		if strings.HasSuffix(key, "/") {
			continue
		}

		presigned, err := s.s3Repo.PresignGet(ctx, key, s.cfg.Ingest.PresignTTL)
		if err != nil {
			return nil, err
		}
		urls = append(urls, presigned)
	}

	return urls, nil
}

// buildObjectKey derives the identity triple for a source photo URL: the
// file name is the last path component (an opaque id when the URL has none),
// the image id is the name without its extension, and the object key is
// <itemId>/<fileName>.
func buildObjectKey(itemID, photoURL string) (imageID, objectKey, fileName string, err error) {
	u, err := url.Parse(photoURL)
	if err != nil {
		return "", "", "", fmt.Errorf("invalid photo URL %q: %w", photoURL, err)
	}

	fileName = path.Base(u.Path)
	if fileName == "." || fileName == "/" || fileName == "" {
		fileName = strings.ReplaceAll(uuid.New().String(), "-", "")
	}

	imageID = strings.TrimSuffix(fileName, path.Ext(fileName))
	objectKey = strings.TrimRight(itemID, "/") + "/" + fileName

	return imageID, objectKey, fileName, nil
}
