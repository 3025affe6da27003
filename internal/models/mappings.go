package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CustomerMap links a Shopify customer to the Odoo partner it resolved
// to, so later deliveries reuse the partner instead of re-matching by
// email.
type CustomerMap struct {
	ID                string    `json:"id" gorm:"primary_key"`
	ShopifyCustomerID string    `json:"shopify_customer_id"`
	OdooPartnerID     int       `json:"odoo_partner_id" gorm:"not null"`
	Email             string    `json:"email" gorm:"index"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (m *CustomerMap) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return nil
}

// ProductMap links a Shopify variant to an Odoo product by SKU.
type ProductMap struct {
	ID               string    `json:"id" gorm:"primary_key"`
	ShopifyVariantID string    `json:"shopify_variant_id"`
	OdooProductID    int       `json:"odoo_product_id" gorm:"not null"`
	SKU              string    `json:"sku" gorm:"index"`
	LastSyncedAt     time.Time `json:"last_synced_at"`
}

func (m *ProductMap) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return nil
}
