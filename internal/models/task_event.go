// Package models holds the GORM models of the local audit database. The
// sheet stays the authoritative store for tasks and users; these tables
// only record what happened and when, for the dashboard and the digest.
package models

import "time"

// TaskEvent is one audit record of a task operation.
type TaskEvent struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	TaskID    int    `gorm:"index"`
	Kind      string `gorm:"size:16;index"`
	Actor     string `gorm:"size:128"`
	Detail    string `gorm:"type:text"`
	At        time.Time
	CreatedAt time.Time
}
