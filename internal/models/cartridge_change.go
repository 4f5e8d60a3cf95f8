package models

import "time"

// CartridgeChange is one recorded printer cartridge swap. The sheet row is
// the authoritative record; this mirror feeds the dashboard.
type CartridgeChange struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	Floor     int    `gorm:"index"`
	Room      int    `gorm:"index"`
	Device    string `gorm:"size:128"`
	ChangedOn string `gorm:"size:16"` // date as entered, DD.MM.YYYY
	ChangedBy string `gorm:"size:128"`
	CreatedAt time.Time
}
