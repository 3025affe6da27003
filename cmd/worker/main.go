package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"shopsync/internal/config"
	"shopsync/internal/database"
	"shopsync/internal/gateways/odoo"
	"shopsync/internal/gateways/shopify"
	"shopsync/internal/logger"
	"shopsync/internal/sync"
	"shopsync/internal/worker"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Initialize logger
	logger := logger.New(cfg.LogLevel)
	defer logger.Sync()

	// Initialize database
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Connect to the ERP backend
	odooClient, err := odoo.NewClient(cfg.OdooURL, cfg.OdooDB, cfg.OdooUsername, cfg.OdooPassword)
	if err != nil {
		logger.Fatal("Failed to authenticate against Odoo: %v", err)
	}
	erp := odoo.NewGateway(odooClient, cfg.OdooCompanyID)

	// Storefront client
	store := shopify.NewClient(cfg.ShopifyShopDomain, cfg.ShopifyAccessToken)

	// Sync components
	ledger := sync.NewLedger(db.DB)
	settings := sync.NewSettingsStore(db.DB)
	erp.SetCompanySource(companySource(settings))
	catalog := sync.NewCatalogMirror(erp, store, settings, ledger, db.DB, logger)
	inventory := sync.NewInventoryReconciler(erp, store, settings, ledger, logger, cfg.ShopifyLocationID)
	customers := sync.NewCustomerMirror(erp, store, ledger, db.DB, logger)

	// Initialize worker
	w := worker.New(cfg, logger, catalog, inventory, customers)

	// Start worker
	logger.Info("Starting worker...")
	go w.Start()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down worker...")
	w.Stop()
}

// companySource reads the saved company override; 0 means no override
// and the gateway keeps its configured default.
func companySource(settings *sync.SettingsStore) func() int {
	return func() int {
		s, err := settings.Load()
		if err != nil || s.CompanyID == nil {
			return 0
		}
		return *s.CompanyID
	}
}
