package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nwishs/Images/internal/domain"
	"github.com/nwishs/Images/internal/service"
)

type fakeImageService struct {
	ingestReq    domain.IngestRequest
	ingestResult []domain.IngestedImage
	ingestErr    error

	listItemID string
	listResult []string
	listErr    error
}

func (f *fakeImageService) IngestImages(_ context.Context, req domain.IngestRequest) ([]domain.IngestedImage, error) {
	f.ingestReq = req
	return f.ingestResult, f.ingestErr
}

func (f *fakeImageService) ListItemImages(_ context.Context, itemID string) ([]string, error) {
	f.listItemID = itemID
	return f.listResult, f.listErr
}

func newTestRouter(svc service.ImageService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(svc, zap.NewNop())

	router := gin.New()
	router.POST("/api/images", h.IngestImages)
	router.GET("/api/images/:itemId", h.ListItemImages)
	router.GET("/health", h.HealthCheck)
	return router
}

func postJSON(router *gin.Engine, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestIngestImagesReturnsCreated(t *testing.T) {
	svc := &fakeImageService{
		ingestResult: []domain.IngestedImage{{
			ImageID:  "front",
			FileName: "front.jpg",
			S3URL:    "https://bucket.s3.amazonaws.com/car-42/front.jpg",
		}},
	}
	router := newTestRouter(svc)

	w := postJSON(router, "/api/images", []byte(`{"itemId":"car-42","photoUrls":["https://cdn.example/a/front.jpg"]}`))
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Message string
		Items   []domain.IngestedImage
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Images ingested", resp.Message)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "front", resp.Items[0].ImageID)

	assert.Equal(t, "car-42", svc.ingestReq.ItemID)
	assert.Equal(t, []string{"https://cdn.example/a/front.jpg"}, svc.ingestReq.PhotoURLs)
}

func TestIngestImagesEmptyResultStillCreated(t *testing.T) {
	// All photos already registered: 201 with an empty item list.
	router := newTestRouter(&fakeImageService{})

	w := postJSON(router, "/api/images", []byte(`{"itemId":"car-42","photoUrls":["https://cdn.example/a/front.jpg"]}`))
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"Items":[]`)
}

func TestIngestImagesRejectsBadPayload(t *testing.T) {
	router := newTestRouter(&fakeImageService{})

	w := postJSON(router, "/api/images", []byte(`{not json`))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Error")
}

func TestIngestImagesMapsValidationError(t *testing.T) {
	router := newTestRouter(&fakeImageService{ingestErr: service.ErrInvalidRequest})

	w := postJSON(router, "/api/images", []byte(`{"itemId":"","photoUrls":[]}`))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "itemId and photoUrls are required")
}

func TestIngestImagesMapsProcessingError(t *testing.T) {
	router := newTestRouter(&fakeImageService{ingestErr: errors.New("failed processing image https://cdn.example/a/front.jpg")})

	w := postJSON(router, "/api/images", []byte(`{"itemId":"car-42","photoUrls":["https://cdn.example/a/front.jpg"]}`))
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "failed processing image")
}

func TestListItemImagesReturnsPresignedURLs(t *testing.T) {
	svc := &fakeImageService{listResult: []string{"https://signed.example/car-42/front.jpg"}}
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/images/car-42", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "car-42", svc.listItemID)

	var resp struct {
		ItemId string
		Urls   []string
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "car-42", resp.ItemId)
	assert.Equal(t, []string{"https://signed.example/car-42/front.jpg"}, resp.Urls)
}

func TestListItemImagesMapsStorageError(t *testing.T) {
	router := newTestRouter(&fakeImageService{listErr: errors.New("bucket unavailable")})

	req := httptest.NewRequest(http.MethodGet, "/api/images/car-42", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Failed to load images")
}

func TestHealthCheck(t *testing.T) {
	router := newTestRouter(&fakeImageService{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "OK")
}
