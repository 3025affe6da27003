package sync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"shopsync/internal/models"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.SyncEvent{}, &models.Setting{}, &models.CustomerMap{}, &models.ProductMap{}))
	return db
}

func TestLedger_RecordAndQuery(t *testing.T) {
	ledger := NewLedger(testDB(t))

	ledger.Record("Order", string(models.StatusSuccess), "order #1001 created")
	ledger.Record("Order", string(models.StatusError), "order #1002 failed")
	ledger.Record("Inventory", string(models.StatusSuccess), "pass complete")

	events, err := ledger.Query(EventFilter{}, 0)
	require.NoError(t, err)
	assert.Len(t, events, 3)

	events, err = ledger.Query(EventFilter{Category: "Order"}, 0)
	require.NoError(t, err)
	assert.Len(t, events, 2)

	events, err = ledger.Query(EventFilter{Category: "Order", Status: string(models.StatusError)}, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "order #1002 failed", events[0].Message)
	assert.NotEmpty(t, events[0].ID)
	assert.False(t, events[0].Timestamp.IsZero())
}

func TestLedger_QueryNewestFirst(t *testing.T) {
	db := testDB(t)
	ledger := NewLedger(db)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		db.Create(&models.SyncEvent{
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Category:  "Order",
			Status:    string(models.StatusSuccess),
			Message:   "event",
		})
	}

	events, err := ledger.Query(EventFilter{}, 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.True(t, events[0].Timestamp.After(events[1].Timestamp))
}

func TestSettingsStore_DefaultsWhenEmpty(t *testing.T) {
	store := NewSettingsStore(testDB(t))

	settings, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, InventoryFieldOnHand, settings.InventoryField)
	assert.True(t, settings.SyncZeroStock)
	assert.True(t, settings.SyncTitle)
}

func TestSettingsStore_SaveAndReload(t *testing.T) {
	store := NewSettingsStore(testDB(t))

	settings := DefaultSettings()
	settings.InventoryField = InventoryFieldForecasted
	settings.SyncZeroStock = false
	settings.LocationIDs = []int{12, 15}
	settings.TagDeny = []string{"internal"}
	require.NoError(t, store.Save(settings))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, InventoryFieldForecasted, loaded.InventoryField)
	assert.False(t, loaded.SyncZeroStock)
	assert.Equal(t, []int{12, 15}, loaded.LocationIDs)
	assert.Equal(t, []string{"internal"}, loaded.TagDeny)

	// Saving again overwrites the same row instead of adding one.
	settings.SyncZeroStock = true
	require.NoError(t, store.Save(settings))
	loaded, err = store.Load()
	require.NoError(t, err)
	assert.True(t, loaded.SyncZeroStock)
}
