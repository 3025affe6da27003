package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"shopsync/internal/logger"
	"shopsync/internal/sync"
)

// AdminHandler serves the dashboard-facing ledger and settings API.
type AdminHandler struct {
	ledger   *sync.Ledger
	settings *sync.SettingsStore
	logger   *logger.Logger
}

func NewAdminHandler(ledger *sync.Ledger, settings *sync.SettingsStore, logger *logger.Logger) *AdminHandler {
	return &AdminHandler{ledger: ledger, settings: settings, logger: logger}
}

func (h *AdminHandler) Events(c *gin.Context) {
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	events, err := h.ledger.Query(sync.EventFilter{
		Category: c.Query("category"),
		Status:   c.Query("status"),
	}, limit)
	if err != nil {
		h.logger.Error("event query failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query events"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"events": events})
}

func (h *AdminHandler) GetSettings(c *gin.Context) {
	settings, err := h.settings.Load()
	if err != nil {
		h.logger.Error("settings load failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load settings"})
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (h *AdminHandler) PutSettings(c *gin.Context) {
	settings, err := h.settings.Load()
	if err != nil {
		h.logger.Error("settings load failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load settings"})
		return
	}

	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.settings.Save(settings); err != nil {
		h.logger.Error("settings save failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save settings"})
		return
	}
	c.JSON(http.StatusOK, settings)
}
