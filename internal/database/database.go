package database

import (
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Database struct {
	DB *gorm.DB
}

func New(databaseURL string) (*Database, error) {
	var db *gorm.DB
	var err error

	if strings.HasPrefix(databaseURL, "sqlite://") {
		// SQLite for development
		dbPath := strings.TrimPrefix(databaseURL, "sqlite://")
		db, err = gorm.Open(sqlite.Open(dbPath), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
		})
	} else {
		// PostgreSQL for production
		db, err = gorm.Open(postgres.Open(databaseURL), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
		})
	}

	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Create tables manually with raw SQL
	createTablesSQL := `
	CREATE TABLE IF NOT EXISTS sync_events (
		id TEXT PRIMARY KEY,
		timestamp TIMESTAMPTZ DEFAULT NOW(),
		category TEXT NOT NULL,
		status TEXT NOT NULL,
		message TEXT
	);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TIMESTAMPTZ DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS customer_maps (
		id TEXT PRIMARY KEY,
		shopify_customer_id TEXT,
		odoo_partner_id INTEGER NOT NULL,
		email TEXT,
		created_at TIMESTAMPTZ DEFAULT NOW(),
		updated_at TIMESTAMPTZ DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS product_maps (
		id TEXT PRIMARY KEY,
		shopify_variant_id TEXT,
		odoo_product_id INTEGER NOT NULL,
		sku TEXT,
		last_synced_at TIMESTAMPTZ DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_sync_events_category ON sync_events(category);
	CREATE INDEX IF NOT EXISTS idx_customer_maps_email ON customer_maps(email);
	CREATE INDEX IF NOT EXISTS idx_product_maps_sku ON product_maps(sku);
	`

	// SQLite has no NOW(); AutoMigrate covers it there instead
	if strings.HasPrefix(databaseURL, "sqlite://") {
		createTablesSQL = strings.ReplaceAll(createTablesSQL, "TIMESTAMPTZ DEFAULT NOW()", "DATETIME DEFAULT CURRENT_TIMESTAMP")
	}

	err = db.Exec(createTablesSQL).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &Database{DB: db}, nil
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
