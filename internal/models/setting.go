package models

import "time"

// Setting is a single key -> JSON value row. The typed view over the
// recognized keys lives in internal/sync/settings.go.
type Setting struct {
	Key       string    `json:"key" gorm:"primary_key"`
	Value     string    `json:"value" gorm:"not null"`
	UpdatedAt time.Time `json:"updated_at"`
}
