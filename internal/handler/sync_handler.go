package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/BrandonDonnellDesign/sensor-tracker-sub000/internal/model"
	"github.com/BrandonDonnellDesign/sensor-tracker-sub000/internal/repository"
	syncservice "github.com/BrandonDonnellDesign/sensor-tracker-sub000/internal/service/sync"
)

type SyncHandler struct {
	syncService    *syncservice.Service
	processingRepo *repository.ProcessingRepository
}

func NewSyncHandler(syncService *syncservice.Service, processingRepo *repository.ProcessingRepository) *SyncHandler {
	return &SyncHandler{
		syncService:    syncService,
		processingRepo: processingRepo,
	}
}

func userIDFrom(c *gin.Context) (int64, bool) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return 0, false
	}
	uid, ok := userID.(int64)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "invalid user_id"})
		return 0, false
	}
	return uid, true
}

// TriggerSync handles POST /sync: runs one pass for the caller.
func (h *SyncHandler) TriggerSync(c *gin.Context) {
	userID, ok := userIDFrom(c)
	if !ok {
		return
	}

	result, err := h.syncService.SyncUser(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, syncservice.ErrSyncInProgress) {
			c.JSON(http.StatusConflict, gin.H{"error": "sync already in progress"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "sync failed"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetResults handles GET /sync/results: recent successful reconciliations.
func (h *SyncHandler) GetResults(c *gin.Context) {
	userID, ok := userIDFrom(c)
	if !ok {
		return
	}

	limit := parseLimit(c.Query("limit"), 50)
	records, err := h.processingRepo.ListByUser(c.Request.Context(), userID, model.ProcessingStatusSuccess, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch results"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"results": records})
}

// GetUnparsed handles GET /sync/unparsed: the manual-triage list.
func (h *SyncHandler) GetUnparsed(c *gin.Context) {
	userID, ok := userIDFrom(c)
	if !ok {
		return
	}

	limit := parseLimit(c.Query("limit"), 50)
	records, err := h.processingRepo.ListByUser(c.Request.Context(), userID, model.ProcessingStatusFailed, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch unparsed emails"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"unparsed": records})
}

func parseLimit(raw string, def int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n > 500 {
		return def
	}
	return n
}
