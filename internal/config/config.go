package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	// Database
	DatabaseURL string

	// Kafka
	KafkaBrokers string

	// API Configuration
	APIPort string
	APIHost string

	// Odoo
	OdooURL       string
	OdooDB        string
	OdooUsername  string
	OdooPassword  string
	OdooCompanyID int
	// Stock locations summed during inventory sync, e.g. "12,15,22"
	OdooStockLocationIDs []int

	// Shopify
	ShopifyShopDomain    string
	ShopifyAccessToken   string
	ShopifyWebhookSecret string
	ShopifyLocationID    int64

	// Environment
	Env      string
	LogLevel string
}

func Load() (*Config, error) {
	// Load .env file
	godotenv.Load()

	return &Config{
		DatabaseURL:          getEnv("DATABASE_URL", "sqlite://local.db"),
		KafkaBrokers:         getEnv("KAFKA_BROKERS", "localhost:9092"),
		APIPort:              getEnv("API_PORT", "8080"),
		APIHost:              getEnv("API_HOST", "0.0.0.0"),
		OdooURL:              getEnv("ODOO_URL", ""),
		OdooDB:               getEnv("ODOO_DB", ""),
		OdooUsername:         getEnv("ODOO_USERNAME", ""),
		OdooPassword:         getEnv("ODOO_PASSWORD", ""),
		OdooCompanyID:        getEnvAsInt("ODOO_COMPANY_ID", 0),
		OdooStockLocationIDs: getEnvAsIntList("ODOO_STOCK_LOCATION_IDS"),
		ShopifyShopDomain:    getEnv("SHOPIFY_URL", ""),
		ShopifyAccessToken:   getEnv("SHOPIFY_TOKEN", ""),
		ShopifyWebhookSecret: getEnv("SHOPIFY_SECRET", ""),
		ShopifyLocationID:    int64(getEnvAsInt("SHOPIFY_WAREHOUSE_ID", 0)),
		Env:                  getEnv("ENV", "development"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsIntList parses a comma-separated list of ids, skipping blanks
// and anything non-numeric ("12,15,22" -> [12 15 22]).
func getEnvAsIntList(key string) []int {
	var ids []int
	for _, part := range strings.Split(os.Getenv(key), ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if id, err := strconv.Atoi(part); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}
