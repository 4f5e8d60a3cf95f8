package dashboard

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/akimovd/deskbot/internal/models"
)

// EventRow holds a task event for display.
type EventRow struct {
	TaskID int
	Kind   string
	Actor  string
	Detail string
	At     time.Time
}

// EventListResult holds the event list plus distinct kinds for the filter
// dropdown.
type EventListResult struct {
	Events []EventRow
	Kinds  []string
}

// ListEvents returns recent task events, newest first, optionally filtered
// by kind.
func ListEvents(db *gorm.DB, kind string) EventListResult {
	if db == nil {
		return EventListResult{Events: []EventRow{}}
	}

	q := db.Model(&models.TaskEvent{})
	if kind != "" {
		q = q.Where("kind = ?", kind)
	}

	var events []models.TaskEvent
	q.Order("at DESC, id DESC").Limit(200).Find(&events)

	rows := make([]EventRow, len(events))
	for i, e := range events {
		rows[i] = EventRow{
			TaskID: e.TaskID,
			Kind:   e.Kind,
			Actor:  e.Actor,
			Detail: e.Detail,
			At:     e.At,
		}
	}

	var kinds []string
	db.Model(&models.TaskEvent{}).Distinct("kind").Order("kind ASC").Pluck("kind", &kinds)

	return EventListResult{Events: rows, Kinds: kinds}
}

// KindCount holds the event count for one kind.
type KindCount struct {
	Kind  string
	Count int64
}

// EventSummary returns per-kind event counts for the overview page.
func EventSummary(db *gorm.DB) ([]KindCount, error) {
	if db == nil {
		return []KindCount{}, nil
	}
	var counts []KindCount
	if err := db.Model(&models.TaskEvent{}).
		Select("kind, count(*) as count").
		Group("kind").
		Order("kind ASC").
		Find(&counts).Error; err != nil {
		return nil, err
	}
	return counts, nil
}

// FailureRow holds a delivery failure for display.
type FailureRow struct {
	Platform  string
	ChatID    int64
	TaskID    int
	Reason    string
	CreatedAt time.Time
}

// ListFailures returns recent delivery failures, newest first.
func ListFailures(db *gorm.DB) []FailureRow {
	if db == nil {
		return []FailureRow{}
	}

	var failures []models.DeliveryFailure
	db.Order("created_at DESC, id DESC").Limit(200).Find(&failures)

	rows := make([]FailureRow, len(failures))
	for i, f := range failures {
		rows[i] = FailureRow{
			Platform:  f.Platform,
			ChatID:    f.ChatID,
			TaskID:    f.TaskID,
			Reason:    f.Reason,
			CreatedAt: f.CreatedAt,
		}
	}
	return rows
}

// FailureCount returns the total number of recorded delivery failures.
func FailureCount(db *gorm.DB) int64 {
	if db == nil {
		return 0
	}
	var count int64
	db.Model(&models.DeliveryFailure{}).Count(&count)
	return count
}

// CartridgeRow holds a cartridge change for display.
type CartridgeRow struct {
	Floor     int
	Room      int
	Device    string
	ChangedOn string
	ChangedBy string
	CreatedAt time.Time
}

// ListCartridgeChanges returns recent cartridge changes, newest first.
func ListCartridgeChanges(db *gorm.DB) []CartridgeRow {
	if db == nil {
		return []CartridgeRow{}
	}

	var changes []models.CartridgeChange
	db.Order("created_at DESC, id DESC").Limit(200).Find(&changes)

	rows := make([]CartridgeRow, len(changes))
	for i, c := range changes {
		rows[i] = CartridgeRow{
			Floor:     c.Floor,
			Room:      c.Room,
			Device:    c.Device,
			ChangedOn: c.ChangedOn,
			ChangedBy: c.ChangedBy,
			CreatedAt: c.CreatedAt,
		}
	}
	return rows
}

// TimeAgo formats a timestamp as a coarse relative string like "3h ago".
func TimeAgo(t time.Time) string {
	if t.IsZero() {
		return "—"
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours())/24)
	}
}
