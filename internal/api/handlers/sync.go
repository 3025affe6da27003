package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"shopsync/internal/logger"
	"shopsync/internal/queue"
	"shopsync/internal/sync"
)

const defaultInventoryLookbackMinutes = 35

// SyncHandler exposes manual sync triggers. Inventory runs inline and
// returns counts; the heavier catalog and customer passes are handed
// to the worker through the job queue.
type SyncHandler struct {
	inventory *sync.InventoryReconciler
	producer  *queue.Producer
	logger    *logger.Logger
}

func NewSyncHandler(inventory *sync.InventoryReconciler, producer *queue.Producer, logger *logger.Logger) *SyncHandler {
	return &SyncHandler{inventory: inventory, producer: producer, logger: logger}
}

func (h *SyncHandler) Inventory(c *gin.Context) {
	lookback := defaultInventoryLookbackMinutes
	if raw := c.Query("lookback"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			lookback = parsed
		}
	}

	checked, updated, err := h.inventory.ReconcileInventory(c.Request.Context(), lookback)
	if err != nil {
		h.logger.Error("inventory sync failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "inventory sync failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"checked": checked, "updated": updated})
}

func (h *SyncHandler) CatalogAsync(c *gin.Context) {
	h.enqueue(c, queue.JobCatalog)
}

func (h *SyncHandler) CustomersAsync(c *gin.Context) {
	h.enqueue(c, queue.JobCustomers)
}

func (h *SyncHandler) enqueue(c *gin.Context, jobType string) {
	if err := h.producer.Enqueue(c.Request.Context(), jobType); err != nil {
		h.logger.Error("failed to enqueue %s job: %v", jobType, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to enqueue job"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"queued": jobType})
}
