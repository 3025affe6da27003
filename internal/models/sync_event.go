package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SyncEvent is one append-only ledger entry. Entries are never updated
// or deleted; the dashboard and tests read them newest-first.
type SyncEvent struct {
	ID        string    `json:"id" gorm:"primary_key"`
	Timestamp time.Time `json:"timestamp"`
	Category  string    `json:"category" gorm:"not null;index"`
	Status    string    `json:"status" gorm:"not null"`
	Message   string    `json:"message"`
}

type SyncStatus string

const (
	StatusSuccess SyncStatus = "Success"
	StatusWarning SyncStatus = "Warning"
	StatusError   SyncStatus = "Error"
	StatusSkipped SyncStatus = "Skipped"
)

func (e *SyncEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	return nil
}
