package sync

import (
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"shopsync/internal/models"
)

const settingsKey = "sync_settings"

// Stock fields an installation can choose between.
const (
	InventoryFieldOnHand     = "qty_available"
	InventoryFieldForecasted = "virtual_available"
)

// Settings is the typed per-installation configuration, stored as one
// JSON value and read back with defaults for absent fields.
type Settings struct {
	InventoryField string `json:"inventory_field"`
	SyncZeroStock  bool   `json:"sync_zero_stock"`
	LocationIDs    []int  `json:"location_ids"`
	CompanyID      *int   `json:"company_id,omitempty"`

	TagAllow []string `json:"tag_allow"`
	TagDeny  []string `json:"tag_deny"`

	SyncTitle       bool `json:"sync_title"`
	SyncDescription bool `json:"sync_description"`
	SyncPrice       bool `json:"sync_price"`
	SyncCategory    bool `json:"sync_category"`
	SyncVendor      bool `json:"sync_vendor"`
	SyncTags        bool `json:"sync_tags"`
	SyncImage       bool `json:"sync_image"`
}

func DefaultSettings() Settings {
	return Settings{
		InventoryField:  InventoryFieldOnHand,
		SyncZeroStock:   true,
		SyncTitle:       true,
		SyncDescription: true,
		SyncPrice:       true,
		SyncCategory:    true,
		SyncVendor:      true,
		SyncTags:        true,
		SyncImage:       true,
	}
}

// SettingsStore loads and saves the settings row.
type SettingsStore struct {
	db *gorm.DB
}

func NewSettingsStore(db *gorm.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

// Load returns saved settings, or the defaults when none were saved
// yet. Unknown stored fields are ignored; missing ones keep their
// defaults.
func (s *SettingsStore) Load() (Settings, error) {
	settings := DefaultSettings()

	var row models.Setting
	err := s.db.First(&row, "key = ?", settingsKey).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return settings, nil
	}
	if err != nil {
		return settings, fmt.Errorf("loading settings: %w", err)
	}

	if err := json.Unmarshal([]byte(row.Value), &settings); err != nil {
		return DefaultSettings(), fmt.Errorf("decoding settings: %w", err)
	}
	return settings, nil
}

// Save overwrites the settings row.
func (s *SettingsStore) Save(settings Settings) error {
	value, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}

	row := models.Setting{Key: settingsKey, Value: string(value)}
	err = s.db.Where("key = ?", settingsKey).Assign(models.Setting{Value: string(value)}).FirstOrCreate(&row).Error
	if err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}
	return nil
}
