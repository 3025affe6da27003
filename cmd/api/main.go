package main

import (
	"log"

	"shopsync/internal/api"
	"shopsync/internal/config"
	"shopsync/internal/database"
	"shopsync/internal/gateways/odoo"
	"shopsync/internal/gateways/shopify"
	"shopsync/internal/logger"
	"shopsync/internal/queue"
	"shopsync/internal/sync"
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
	reconciler := sync.NewOrderReconciler(erp, ledger, db.DB, logger)
	inventory := sync.NewInventoryReconciler(erp, store, settings, ledger, logger, cfg.ShopifyLocationID)
	customers := sync.NewCustomerMirror(erp, store, ledger, db.DB, logger)

	// Job queue producer for async catalog and customer passes
	producer := queue.NewProducer(cfg.KafkaBrokers)
	defer producer.Close()

	// Initialize API server
	server := api.New(cfg, logger, api.Deps{
		Reconciler: reconciler,
		Customers:  customers,
		Inventory:  inventory,
		Producer:   producer,
		Ledger:     ledger,
		Settings:   settings,
	})

	// Start server
	logger.Info("Starting API server on port %s", cfg.APIPort)
	if err := server.Start(); err != nil {
		logger.Fatal("Failed to start server: %v", err)
	}
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
