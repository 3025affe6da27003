package sync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"shopsync/internal/gateways/odoo"
	"shopsync/internal/gateways/shopify"
	"shopsync/internal/models"
)

type mockErpCatalog struct {
	mock.Mock
}

func (m *mockErpCatalog) ListProducts(ctx context.Context, includeArchived bool) ([]odoo.CatalogProduct, error) {
	args := m.Called(ctx, includeArchived)
	var products []odoo.CatalogProduct
	if v := args.Get(0); v != nil {
		products = v.([]odoo.CatalogProduct)
	}
	return products, args.Error(1)
}

func (m *mockErpCatalog) SetProductCategory(ctx context.Context, productID int, category string) error {
	args := m.Called(ctx, productID, category)
	return args.Error(0)
}

type mockStoreCatalog struct {
	mock.Mock
}

func (m *mockStoreCatalog) ListProducts(ctx context.Context) ([]shopify.Product, error) {
	args := m.Called(ctx)
	var products []shopify.Product
	if v := args.Get(0); v != nil {
		products = v.([]shopify.Product)
	}
	return products, args.Error(1)
}

func (m *mockStoreCatalog) CreateProduct(ctx context.Context, product *shopify.Product) (*shopify.Product, error) {
	args := m.Called(ctx, product)
	var created *shopify.Product
	if v := args.Get(0); v != nil {
		created = v.(*shopify.Product)
	}
	return created, args.Error(1)
}

func (m *mockStoreCatalog) UpdateProduct(ctx context.Context, product *shopify.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *mockStoreCatalog) ArchiveProduct(ctx context.Context, productID int64) error {
	args := m.Called(ctx, productID)
	return args.Error(0)
}

type staticSettings struct {
	settings Settings
}

func (s staticSettings) Load() (Settings, error) {
	return s.settings, nil
}

func activeCatalogProduct() odoo.CatalogProduct {
	return odoo.CatalogProduct{
		ID:        11,
		SKU:       "WIDGET-1",
		Name:      "Widget",
		ListPrice: 12.5,
		Category:  "Hardware",
		Vendor:    "Acme",
		Tags:      []string{"new", "sale"},
		Active:    true,
	}
}

func TestMirrorCatalog_CreatesMissingProduct(t *testing.T) {
	erp := new(mockErpCatalog)
	store := new(mockStoreCatalog)
	m := NewCatalogMirror(erp, store, staticSettings{DefaultSettings()}, &memLedger{}, nil, nil)

	erp.On("ListProducts", mock.Anything, true).Return([]odoo.CatalogProduct{activeCatalogProduct()}, nil)
	store.On("ListProducts", mock.Anything).Return(nil, nil)
	store.On("CreateProduct", mock.Anything, mock.MatchedBy(func(p *shopify.Product) bool {
		return p.Title == "Widget" && p.ProductType == "Hardware" && p.Vendor == "Acme" &&
			p.Tags == "new, sale" && p.Status == shopify.StatusActive &&
			len(p.Variants) == 1 && p.Variants[0].SKU == "WIDGET-1" && p.Variants[0].Price == "12.50"
	})).Return(&shopify.Product{ID: 1000}, nil)

	processed, err := m.MirrorCatalog(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, processed)
	store.AssertExpectations(t)
}

func TestMirrorCatalog_UpdatesOnlyEnabledChangedFields(t *testing.T) {
	erp := new(mockErpCatalog)
	store := new(mockStoreCatalog)
	settings := DefaultSettings()
	settings.SyncTitle = false

	m := NewCatalogMirror(erp, store, staticSettings{settings}, &memLedger{}, nil, nil)

	stored := shopify.Product{
		ID:          1000,
		Title:       "Old widget name",
		ProductType: "Hardware",
		Vendor:      "Acme",
		Tags:        "new, sale",
		Status:      shopify.StatusActive,
		Variants:    []shopify.Variant{{ID: 2000, SKU: "WIDGET-1", Price: "9.99"}},
	}
	erp.On("ListProducts", mock.Anything, true).Return([]odoo.CatalogProduct{activeCatalogProduct()}, nil)
	store.On("ListProducts", mock.Anything).Return([]shopify.Product{stored}, nil)
	// Title differs but its flag is off; only the price write survives.
	store.On("UpdateProduct", mock.Anything, mock.MatchedBy(func(p *shopify.Product) bool {
		return p.ID == 1000 && p.Title == "" &&
			len(p.Variants) == 1 && p.Variants[0].ID == 2000 && p.Variants[0].Price == "12.50"
	})).Return(nil)

	_, err := m.MirrorCatalog(context.Background())
	require.NoError(t, err)
	store.AssertExpectations(t)
}

func TestMirrorCatalog_NoWriteWhenNothingDiffers(t *testing.T) {
	erp := new(mockErpCatalog)
	store := new(mockStoreCatalog)
	m := NewCatalogMirror(erp, store, staticSettings{DefaultSettings()}, &memLedger{}, nil, nil)

	product := activeCatalogProduct()
	stored := shopify.Product{
		ID:          1000,
		Title:       product.Name,
		ProductType: product.Category,
		Vendor:      product.Vendor,
		Tags:        "new, sale",
		Status:      shopify.StatusActive,
		Variants:    []shopify.Variant{{ID: 2000, SKU: "WIDGET-1", Price: "12.50"}},
	}
	erp.On("ListProducts", mock.Anything, true).Return([]odoo.CatalogProduct{product}, nil)
	store.On("ListProducts", mock.Anything).Return([]shopify.Product{stored}, nil)

	_, err := m.MirrorCatalog(context.Background())
	require.NoError(t, err)
	store.AssertNotCalled(t, "UpdateProduct", mock.Anything, mock.Anything)
}

func TestMirrorCatalog_ArchivedInErpUnpublishesWithoutFieldSync(t *testing.T) {
	erp := new(mockErpCatalog)
	store := new(mockStoreCatalog)
	m := NewCatalogMirror(erp, store, staticSettings{DefaultSettings()}, &memLedger{}, nil, nil)

	product := activeCatalogProduct()
	product.Active = false
	product.Name = "Renamed while archived"

	stored := shopify.Product{
		ID:       1000,
		Title:    "Widget",
		Status:   shopify.StatusActive,
		Variants: []shopify.Variant{{ID: 2000, SKU: "WIDGET-1", Price: "12.50"}},
	}
	erp.On("ListProducts", mock.Anything, true).Return([]odoo.CatalogProduct{product}, nil)
	store.On("ListProducts", mock.Anything).Return([]shopify.Product{stored}, nil)
	store.On("ArchiveProduct", mock.Anything, int64(1000)).Return(nil)

	_, err := m.MirrorCatalog(context.Background())
	require.NoError(t, err)
	store.AssertExpectations(t)
	store.AssertNotCalled(t, "UpdateProduct", mock.Anything, mock.Anything)
	// The cleanup pass must not archive the same listing again.
	store.AssertNumberOfCalls(t, "ArchiveProduct", 1)
}

func TestMirrorCatalog_DuplicateSkuIsArchived(t *testing.T) {
	erp := new(mockErpCatalog)
	store := new(mockStoreCatalog)
	m := NewCatalogMirror(erp, store, staticSettings{DefaultSettings()}, &memLedger{}, nil, nil)

	product := activeCatalogProduct()
	kept := shopify.Product{
		ID: 1000, Title: product.Name, ProductType: product.Category, Vendor: product.Vendor,
		Tags: "new, sale", Status: shopify.StatusActive,
		Variants: []shopify.Variant{{ID: 2000, SKU: "WIDGET-1", Price: "12.50"}},
	}
	duplicate := shopify.Product{
		ID: 1001, Title: "Widget (copy)", Status: shopify.StatusActive,
		Variants: []shopify.Variant{{ID: 2001, SKU: "WIDGET-1", Price: "12.50"}},
	}
	erp.On("ListProducts", mock.Anything, true).Return([]odoo.CatalogProduct{product}, nil)
	store.On("ListProducts", mock.Anything).Return([]shopify.Product{kept, duplicate}, nil)
	store.On("ArchiveProduct", mock.Anything, int64(1001)).Return(nil)

	_, err := m.MirrorCatalog(context.Background())
	require.NoError(t, err)
	store.AssertExpectations(t)
}

func TestMirrorCatalog_OrphanIsArchived(t *testing.T) {
	erp := new(mockErpCatalog)
	store := new(mockStoreCatalog)
	m := NewCatalogMirror(erp, store, staticSettings{DefaultSettings()}, &memLedger{}, nil, nil)

	orphan := shopify.Product{
		ID: 1002, Title: "Gone from ERP", Status: shopify.StatusActive,
		Variants: []shopify.Variant{{ID: 2002, SKU: "GONE-1"}},
	}
	erp.On("ListProducts", mock.Anything, true).Return(nil, nil)
	store.On("ListProducts", mock.Anything).Return([]shopify.Product{orphan}, nil)
	store.On("ArchiveProduct", mock.Anything, int64(1002)).Return(nil)

	_, err := m.MirrorCatalog(context.Background())
	require.NoError(t, err)
	store.AssertExpectations(t)
}

func TestMirrorCatalog_EmptyErpCategorySeededFromStore(t *testing.T) {
	erp := new(mockErpCatalog)
	store := new(mockStoreCatalog)
	m := NewCatalogMirror(erp, store, staticSettings{DefaultSettings()}, &memLedger{}, nil, nil)

	product := activeCatalogProduct()
	product.Category = ""
	stored := shopify.Product{
		ID: 1000, Title: product.Name, ProductType: "Garden", Vendor: product.Vendor,
		Tags: "new, sale", Status: shopify.StatusActive,
		Variants: []shopify.Variant{{ID: 2000, SKU: "WIDGET-1", Price: "12.50"}},
	}
	erp.On("ListProducts", mock.Anything, true).Return([]odoo.CatalogProduct{product}, nil)
	store.On("ListProducts", mock.Anything).Return([]shopify.Product{stored}, nil)
	erp.On("SetProductCategory", mock.Anything, 11, "Garden").Return(nil)

	_, err := m.MirrorCatalog(context.Background())
	require.NoError(t, err)
	erp.AssertExpectations(t)
	store.AssertNotCalled(t, "UpdateProduct", mock.Anything, mock.Anything)
}

func TestMirrorCatalog_CreateRecordsVariantMapping(t *testing.T) {
	erp := new(mockErpCatalog)
	store := new(mockStoreCatalog)
	db := testDB(t)
	m := NewCatalogMirror(erp, store, staticSettings{DefaultSettings()}, &memLedger{}, db, nil)

	erp.On("ListProducts", mock.Anything, true).Return([]odoo.CatalogProduct{activeCatalogProduct()}, nil)
	store.On("ListProducts", mock.Anything).Return(nil, nil)
	store.On("CreateProduct", mock.Anything, mock.Anything).Return(&shopify.Product{
		ID:       1000,
		Variants: []shopify.Variant{{ID: 2000, SKU: "WIDGET-1"}},
	}, nil)

	_, err := m.MirrorCatalog(context.Background())
	require.NoError(t, err)

	var mapping models.ProductMap
	require.NoError(t, db.First(&mapping, "sku = ?", "WIDGET-1").Error)
	assert.Equal(t, "2000", mapping.ShopifyVariantID)
	assert.Equal(t, 11, mapping.OdooProductID)
	assert.False(t, mapping.LastSyncedAt.IsZero())
}

func TestMirrorCatalog_ExistingProductRefreshesVariantMapping(t *testing.T) {
	erp := new(mockErpCatalog)
	store := new(mockStoreCatalog)
	db := testDB(t)
	m := NewCatalogMirror(erp, store, staticSettings{DefaultSettings()}, &memLedger{}, db, nil)

	product := activeCatalogProduct()
	stored := shopify.Product{
		ID: 1000, Title: product.Name, ProductType: product.Category, Vendor: product.Vendor,
		Tags: "new, sale", Status: shopify.StatusActive,
		Variants: []shopify.Variant{{ID: 2000, SKU: "WIDGET-1", Price: "12.50"}},
	}
	erp.On("ListProducts", mock.Anything, true).Return([]odoo.CatalogProduct{product}, nil)
	store.On("ListProducts", mock.Anything).Return([]shopify.Product{stored}, nil)

	// Run twice: the mapping row is upserted, never duplicated.
	_, err := m.MirrorCatalog(context.Background())
	require.NoError(t, err)
	_, err = m.MirrorCatalog(context.Background())
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&models.ProductMap{}).Where("sku = ?", "WIDGET-1").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestFilterTags(t *testing.T) {
	settings := DefaultSettings()
	assert.Equal(t, []string{"new", "sale"}, filterTags([]string{"new", "sale"}, settings))

	settings.TagDeny = []string{"SALE"}
	assert.Equal(t, []string{"new"}, filterTags([]string{"new", "sale"}, settings))

	settings.TagDeny = nil
	settings.TagAllow = []string{"new"}
	assert.Equal(t, []string{"new"}, filterTags([]string{"new", "sale"}, settings))
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "12.50", formatPrice(12.5))
	assert.Equal(t, "0.00", formatPrice(0))
}
