package sync

import (
	"fmt"

	"gorm.io/gorm"

	"shopsync/internal/models"
)

// Recorder is the write half of the ledger, all the reconcilers need.
type Recorder interface {
	Record(category, status, message string)
}

// Ledger is the append-only sync event log. Events are never updated
// or deleted.
type Ledger struct {
	db *gorm.DB
}

func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// Record appends one event. Ledger writes are observability, not
// business state, so a failed insert is swallowed; the database error
// will resurface on the next query.
func (l *Ledger) Record(category, status, message string) {
	event := &models.SyncEvent{
		Category: category,
		Status:   status,
		Message:  message,
	}
	l.db.Create(event)
}

// EventFilter narrows a ledger query; zero values match everything.
type EventFilter struct {
	Category string
	Status   string
}

// Query returns events newest-first, capped at limit (default 100).
func (l *Ledger) Query(filter EventFilter, limit int) ([]models.SyncEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	q := l.db.Model(&models.SyncEvent{})
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}

	var events []models.SyncEvent
	if err := q.Order("timestamp desc").Limit(limit).Find(&events).Error; err != nil {
		return nil, fmt.Errorf("querying sync events: %w", err)
	}
	return events, nil
}
