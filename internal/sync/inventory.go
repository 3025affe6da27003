package sync

import (
	"context"
	"fmt"
	"math"
	"time"

	"shopsync/internal/gateways/odoo"
	"shopsync/internal/gateways/shopify"
	"shopsync/internal/logger"
	"shopsync/internal/models"
)

// ErpStock is the ERP side of the inventory diff.
type ErpStock interface {
	ChangedProducts(ctx context.Context, since time.Time) ([]odoo.StockProduct, error)
	StockQuantity(ctx context.Context, productID int, locationIDs []int, field string) (float64, error)
}

// StoreInventory is the storefront side of the inventory diff.
type StoreInventory interface {
	VariantBySKU(ctx context.Context, sku string) (*shopify.VariantStock, error)
	SetInventoryLevel(ctx context.Context, inventoryItemID, locationID int64, available int) error
}

// InventoryReconciler diffs recent ERP stock levels against the
// storefront and patches differences. The ERP is authoritative; there
// is no conflict resolution. Retry is by the overlapping lookback
// window of the next timer run, not by this call.
type InventoryReconciler struct {
	erp             ErpStock
	store           StoreInventory
	settings        SettingsSource
	ledger          Recorder
	logger          *logger.Logger
	storeLocationID int64

	// now is swappable in tests
	now func() time.Time
}

func NewInventoryReconciler(erp ErpStock, store StoreInventory, settings SettingsSource, ledger Recorder, log *logger.Logger, storeLocationID int64) *InventoryReconciler {
	return &InventoryReconciler{
		erp:             erp,
		store:           store,
		settings:        settings,
		ledger:          ledger,
		logger:          log,
		storeLocationID: storeLocationID,
		now:             time.Now,
	}
}

// ReconcileInventory checks every ERP product changed within the
// lookback window and pushes quantities that differ.
func (r *InventoryReconciler) ReconcileInventory(ctx context.Context, lookbackMinutes int) (checked, updated int, err error) {
	settings, err := r.settings.Load()
	if err != nil {
		return 0, 0, err
	}

	since := r.now().Add(-time.Duration(lookbackMinutes) * time.Minute)
	products, err := r.erp.ChangedProducts(ctx, since)
	if err != nil {
		r.ledger.Record("Inventory", string(models.StatusError), fmt.Sprintf("inventory pass aborted: %v", err))
		return 0, 0, err
	}

	for _, product := range products {
		if product.SKU == "" {
			continue
		}

		qty, err := r.erp.StockQuantity(ctx, product.ID, settings.LocationIDs, settings.InventoryField)
		if err != nil {
			r.warn(product.SKU, err)
			continue
		}
		quantity := int(math.Round(qty))

		if quantity == 0 && !settings.SyncZeroStock {
			continue
		}
		checked++

		variant, err := r.store.VariantBySKU(ctx, product.SKU)
		if err != nil {
			r.warn(product.SKU, err)
			continue
		}
		if variant == nil {
			r.ledger.Record("Inventory", string(models.StatusWarning),
				fmt.Sprintf("SKU %s has no storefront variant, stock not pushed", product.SKU))
			continue
		}

		if variant.Available == quantity {
			continue
		}
		if err := r.store.SetInventoryLevel(ctx, variant.InventoryItemID, r.storeLocationID, quantity); err != nil {
			r.warn(product.SKU, err)
			continue
		}
		updated++
	}

	r.ledger.Record("Inventory", string(models.StatusSuccess),
		fmt.Sprintf("inventory pass complete: %d checked, %d updated", checked, updated))
	return checked, updated, nil
}

func (r *InventoryReconciler) warn(sku string, err error) {
	r.ledger.Record("Inventory", string(models.StatusWarning),
		fmt.Sprintf("SKU %s stock sync failed: %v", sku, err))
	if r.logger != nil {
		r.logger.Warn("inventory sync for SKU %s failed: %v", sku, err)
	}
}
