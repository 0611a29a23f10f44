package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nwishs/Images/internal/domain"
	"github.com/nwishs/Images/internal/service"
)

type Handler struct {
	service service.ImageService
	log     *zap.Logger
}

func NewHandler(service service.ImageService, log *zap.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log,
	}
}

// IngestImages handles POST /api/images. 201 with the newly committed
// images on success (already-registered photos silently omitted), 400 for
// malformed input, 500 on any processing failure.
func (h *Handler) IngestImages(c *gin.Context) {
	var req domain.IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Error("Failed to parse ingest request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"Error": "Invalid request payload."})
		return
	}

	images, err := h.service.IngestImages(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRequest) {
			c.JSON(http.StatusBadRequest, gin.H{"Error": "itemId and photoUrls are required."})
			return
		}

		h.log.Error("Failed to ingest images",
			zap.String("item_id", req.ItemID),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"Error": err.Error()})
		return
	}

	if images == nil {
		images = []domain.IngestedImage{}
	}

	c.JSON(http.StatusCreated, gin.H{
		"Message": "Images ingested",
		"Items":   images,
	})
}

// ListItemImages handles GET /api/images/:itemId, returning presigned links
// for every stored variant of the item.
func (h *Handler) ListItemImages(c *gin.Context) {
	itemID := strings.TrimSpace(c.Param("itemId"))
	if itemID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"Error": "ItemId is required in the path."})
		return
	}

	urls, err := h.service.ListItemImages(c.Request.Context(), itemID)
	if err != nil {
		h.log.Error("Failed to list item images",
			zap.String("item_id", itemID),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"Error": "Failed to load images."})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ItemId": itemID,
		"Urls":   urls,
	})
}

func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "OK"})
}
