package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"shopsync/internal/api/handlers"
	"shopsync/internal/api/middleware"
	"shopsync/internal/config"
	"shopsync/internal/logger"
	"shopsync/internal/queue"
	"shopsync/internal/sync"
)

// Deps carries the wired sync components the HTTP layer exposes.
type Deps struct {
	Reconciler *sync.OrderReconciler
	Customers  *sync.CustomerMirror
	Inventory  *sync.InventoryReconciler
	Producer   *queue.Producer
	Ledger     *sync.Ledger
	Settings   *sync.SettingsStore
}

type Server struct {
	config *config.Config
	logger *logger.Logger
	router *gin.Engine
	server *http.Server
}

func New(cfg *config.Config, logger *logger.Logger, deps Deps) *Server {
	// Set Gin mode
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Middleware
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.CORS())

	// Initialize handlers
	webhookHandler := handlers.NewWebhookHandler(deps.Reconciler, deps.Customers, cfg.ShopifyWebhookSecret, logger)
	syncHandler := handlers.NewSyncHandler(deps.Inventory, deps.Producer, logger)
	adminHandler := handlers.NewAdminHandler(deps.Ledger, deps.Settings, logger)

	// Routes
	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "Storefront sync connector. Stock locations: %v", cfg.OdooStockLocationIDs)
	})

	webhooks := router.Group("/webhook")
	{
		webhooks.POST("/orders", webhookHandler.Orders)
		webhooks.POST("/orders/updated", webhookHandler.Orders)
		webhooks.POST("/orders/cancelled", webhookHandler.OrdersCancelled)
		webhooks.POST("/customers", webhookHandler.Customers)
	}

	syncRoutes := router.Group("/sync")
	{
		syncRoutes.GET("/inventory", syncHandler.Inventory)
		syncRoutes.POST("/products/master", syncHandler.CatalogAsync)
		syncRoutes.POST("/customers", syncHandler.CustomersAsync)
	}

	v1 := router.Group("/api/v1")
	{
		v1.GET("/events", adminHandler.Events)
		v1.GET("/settings", adminHandler.GetSettings)
		v1.PUT("/settings", adminHandler.PutSettings)
	}

	return &Server{
		config: cfg,
		logger: logger,
		router: router,
	}
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%s", s.config.APIHost, s.config.APIPort)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("Starting server on %s", addr)
	return s.server.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	return s.server.Shutdown(ctx)
}

// GetRouter exposes the Gin router for tests.
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}
