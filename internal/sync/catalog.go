package sync

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"shopsync/internal/gateways/odoo"
	"shopsync/internal/gateways/shopify"
	"shopsync/internal/logger"
	"shopsync/internal/models"
)

// ErpCatalog is the ERP side of the product mirror.
type ErpCatalog interface {
	ListProducts(ctx context.Context, includeArchived bool) ([]odoo.CatalogProduct, error)
	SetProductCategory(ctx context.Context, productID int, category string) error
}

// StoreCatalog is the storefront side of the product mirror.
type StoreCatalog interface {
	ListProducts(ctx context.Context) ([]shopify.Product, error)
	CreateProduct(ctx context.Context, product *shopify.Product) (*shopify.Product, error)
	UpdateProduct(ctx context.Context, product *shopify.Product) error
	ArchiveProduct(ctx context.Context, productID int64) error
}

// SettingsSource yields the current installation settings.
type SettingsSource interface {
	Load() (Settings, error)
}

// CatalogMirror pushes ERP product master data to the storefront and
// keeps the storefront free of duplicates and orphans. The ERP is
// authoritative for every field except category, which is imported
// once from the storefront when the ERP side is empty.
type CatalogMirror struct {
	erp      ErpCatalog
	store    StoreCatalog
	settings SettingsSource
	ledger   Recorder
	db       *gorm.DB
	logger   *logger.Logger
}

// NewCatalogMirror builds a mirror. db may be nil; the variant-mapping
// record is then skipped.
func NewCatalogMirror(erp ErpCatalog, store StoreCatalog, settings SettingsSource, ledger Recorder, db *gorm.DB, log *logger.Logger) *CatalogMirror {
	return &CatalogMirror{erp: erp, store: store, settings: settings, ledger: ledger, db: db, logger: log}
}

// MirrorCatalog runs one full pass. A single product's failure is
// logged and skipped; only listing calls abort the pass.
func (m *CatalogMirror) MirrorCatalog(ctx context.Context) (int, error) {
	settings, err := m.settings.Load()
	if err != nil {
		return 0, err
	}

	// Archived ERP products are included so status transitions are seen.
	erpProducts, err := m.erp.ListProducts(ctx, true)
	if err != nil {
		m.ledger.Record("Product", string(models.StatusError), fmt.Sprintf("catalog pass aborted: %v", err))
		return 0, err
	}
	storeProducts, err := m.store.ListProducts(ctx)
	if err != nil {
		m.ledger.Record("Product", string(models.StatusError), fmt.Sprintf("catalog pass aborted: %v", err))
		return 0, err
	}

	bySKU := map[string]*shopify.Product{}
	for i := range storeProducts {
		if sku := primarySKU(&storeProducts[i]); sku != "" {
			if _, dup := bySKU[sku]; !dup {
				bySKU[sku] = &storeProducts[i]
			}
		}
	}

	processed := 0
	erpActive := map[string]bool{}
	for _, product := range erpProducts {
		if product.SKU == "" {
			continue
		}
		stored := bySKU[product.SKU]

		if !product.Active {
			// Archived products are not field-synced, only unpublished.
			if stored != nil && stored.Status != shopify.StatusArchived {
				if err := m.store.ArchiveProduct(ctx, stored.ID); err != nil {
					m.warnProduct(product.SKU, err)
					continue
				}
				// Mark it handled so the cleanup pass does not archive
				// the same listing a second time.
				stored.Status = shopify.StatusArchived
				m.ledger.Record("Product", string(models.StatusSuccess),
					fmt.Sprintf("SKU %s archived on storefront (archived in ERP)", product.SKU))
			}
			continue
		}

		erpActive[product.SKU] = true
		if err := m.syncProduct(ctx, settings, product, stored); err != nil {
			m.warnProduct(product.SKU, err)
			continue
		}
		processed++
	}

	m.cleanupStore(ctx, storeProducts, erpActive)
	return processed, nil
}

func (m *CatalogMirror) warnProduct(sku string, err error) {
	m.ledger.Record("Product", string(models.StatusWarning),
		fmt.Sprintf("SKU %s sync failed: %v", sku, err))
	if m.logger != nil {
		m.logger.Warn("catalog sync for SKU %s failed: %v", sku, err)
	}
}

// syncProduct upserts one active ERP product, writing only enabled
// fields whose target value differs from the storefront value.
func (m *CatalogMirror) syncProduct(ctx context.Context, settings Settings, product odoo.CatalogProduct, stored *shopify.Product) error {
	tags := filterTags(product.Tags, settings)

	if stored == nil {
		created := &shopify.Product{
			Title:       product.Name,
			BodyHTML:    product.Description,
			ProductType: product.Category,
			Vendor:      product.Vendor,
			Tags:        strings.Join(tags, ", "),
			Status:      shopify.StatusActive,
			Variants: []shopify.Variant{{
				SKU:   product.SKU,
				Price: formatPrice(product.ListPrice),
			}},
		}
		if settings.SyncImage && product.ImageB64 != "" {
			created.Images = []shopify.Image{{Attachment: product.ImageB64}}
		}
		result, err := m.store.CreateProduct(ctx, created)
		if err != nil {
			return err
		}
		if len(result.Variants) > 0 {
			m.rememberVariant(product.SKU, result.Variants[0].ID, product.ID)
		}
		return nil
	}

	if len(stored.Variants) > 0 {
		m.rememberVariant(product.SKU, stored.Variants[0].ID, product.ID)
	}

	changes := shopify.Product{ID: stored.ID}
	changed := false

	if settings.SyncTitle && product.Name != "" && product.Name != stored.Title {
		changes.Title = product.Name
		changed = true
	}
	if settings.SyncDescription && product.Description != "" && product.Description != stored.BodyHTML {
		changes.BodyHTML = product.Description
		changed = true
	}
	if settings.SyncCategory {
		if product.Category == "" && stored.ProductType != "" {
			// Bidirectional once: empty ERP category is seeded from the
			// storefront; once set, the ERP side is authoritative.
			if err := m.erp.SetProductCategory(ctx, product.ID, stored.ProductType); err != nil {
				return err
			}
		} else if product.Category != "" && product.Category != stored.ProductType {
			changes.ProductType = product.Category
			changed = true
		}
	}
	if settings.SyncVendor && product.Vendor != "" && product.Vendor != stored.Vendor {
		changes.Vendor = product.Vendor
		changed = true
	}
	if settings.SyncTags {
		joined := strings.Join(tags, ", ")
		if joined != stored.Tags {
			changes.Tags = joined
			changed = true
		}
	}
	if settings.SyncPrice && len(stored.Variants) > 0 {
		price := formatPrice(product.ListPrice)
		if stored.Variants[0].Price != price {
			changes.Variants = []shopify.Variant{{ID: stored.Variants[0].ID, Price: price}}
			changed = true
		}
	}
	if settings.SyncImage && product.ImageB64 != "" && len(stored.Images) == 0 {
		changes.Images = []shopify.Image{{Attachment: product.ImageB64}}
		changed = true
	}
	if stored.Status == shopify.StatusArchived {
		changes.Status = shopify.StatusActive
		changed = true
	}

	if !changed {
		return nil
	}
	return m.store.UpdateProduct(ctx, &changes)
}

// cleanupStore archives storefront products whose SKU is absent from
// the ERP active set, or whose SKU was already seen once this pass.
// The storefront never keeps duplicate SKUs or stale listings.
func (m *CatalogMirror) cleanupStore(ctx context.Context, storeProducts []shopify.Product, erpActive map[string]bool) {
	seen := map[string]bool{}
	for i := range storeProducts {
		product := &storeProducts[i]
		if product.Status == shopify.StatusArchived {
			continue
		}
		sku := primarySKU(product)
		if erpActive[sku] && !seen[sku] {
			seen[sku] = true
			continue
		}

		if err := m.store.ArchiveProduct(ctx, product.ID); err != nil {
			m.warnProduct(sku, err)
			continue
		}
		reason := "no ERP backing"
		if seen[sku] {
			reason = "duplicate SKU"
		}
		m.ledger.Record("Product", string(models.StatusSuccess),
			fmt.Sprintf("storefront product %d (SKU %q) archived: %s", product.ID, sku, reason))
	}
}

// rememberVariant upserts the SKU-keyed variant mapping so later
// passes and the dashboard can resolve storefront variants to ERP
// products without another lookup.
func (m *CatalogMirror) rememberVariant(sku string, variantID int64, erpProductID int) {
	if m.db == nil || variantID == 0 {
		return
	}
	row := models.ProductMap{SKU: sku}
	err := m.db.Where("sku = ?", sku).Assign(models.ProductMap{
		ShopifyVariantID: strconv.FormatInt(variantID, 10),
		OdooProductID:    erpProductID,
		LastSyncedAt:     time.Now().UTC(),
	}).FirstOrCreate(&row).Error
	if err != nil && m.logger != nil {
		m.logger.Warn("could not record product mapping for %s: %v", sku, err)
	}
}

func primarySKU(product *shopify.Product) string {
	for _, variant := range product.Variants {
		if variant.SKU != "" {
			return variant.SKU
		}
	}
	return ""
}

// filterTags applies the allow/deny lists, case-insensitively.
func filterTags(tags []string, settings Settings) []string {
	var out []string
	for _, tag := range tags {
		if len(settings.TagAllow) > 0 && !containsFold(settings.TagAllow, tag) {
			continue
		}
		if containsFold(settings.TagDeny, tag) {
			continue
		}
		out = append(out, tag)
	}
	return out
}

func containsFold(list []string, s string) bool {
	for _, item := range list {
		if strings.EqualFold(item, s) {
			return true
		}
	}
	return false
}

func formatPrice(price float64) string {
	return strconv.FormatFloat(price, 'f', 2, 64)
}
