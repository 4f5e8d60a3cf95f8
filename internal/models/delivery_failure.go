package models

import "time"

// DeliveryFailure records a notification that could not reach a recipient.
// Fan-out never retries; the row is what remains of the attempt.
type DeliveryFailure struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	Platform  string `gorm:"size:16"`
	ChatID    int64  `gorm:"index"`
	TaskID    int    `gorm:"index"`
	Reason    string `gorm:"type:text"`
	CreatedAt time.Time
}
