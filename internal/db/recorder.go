package db

import (
	"context"
	"log"

	"github.com/akimovd/deskbot/internal/models"
	"github.com/akimovd/deskbot/internal/task"
	"gorm.io/gorm"
)

// Recorder writes task audit events and delivery failures to the local
// database. Every write is best-effort: the sheet is the source of truth
// and a broken audit database must never fail a task operation.
type Recorder struct {
	db *gorm.DB
}

// NewRecorder wraps a connected, migrated database.
func NewRecorder(gdb *gorm.DB) *Recorder {
	return &Recorder{db: gdb}
}

// Record satisfies task.Recorder.
func (r *Recorder) Record(ctx context.Context, ev task.Event) {
	row := models.TaskEvent{
		TaskID: ev.TaskID,
		Kind:   ev.Kind,
		Actor:  ev.Actor,
		Detail: ev.Detail,
		At:     ev.At,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		log.Printf("db: record task event %s/%d: %v", ev.Kind, ev.TaskID, err)
	}
}

// RecordDeliveryFailure audits a notification that never reached its chat.
func (r *Recorder) RecordDeliveryFailure(ctx context.Context, platform string, chatID int64, taskID int, reason string) {
	row := models.DeliveryFailure{
		Platform: platform,
		ChatID:   chatID,
		TaskID:   taskID,
		Reason:   reason,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		log.Printf("db: record delivery failure for chat %d: %v", chatID, err)
	}
}

// RecordCartridgeChange mirrors a recorded cartridge swap.
func (r *Recorder) RecordCartridgeChange(ctx context.Context, floor, room int, device, changedOn, changedBy string) {
	row := models.CartridgeChange{
		Floor:     floor,
		Room:      room,
		Device:    device,
		ChangedOn: changedOn,
		ChangedBy: changedBy,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		log.Printf("db: record cartridge change %s: %v", device, err)
	}
}
