// Package db opens and migrates the local audit database.
package db

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DSN builds the MySQL DSN for the audit database.
func DSN(user, host string, port int, database string) string {
	return fmt.Sprintf("%s@tcp(%s:%d)/%s?parseTime=true", user, host, port, database)
}

// Connect opens a GORM connection. Driver "sqlite" takes a file path (or
// ":memory:"); driver "mysql" takes host, port and database.
func Connect(driver, path, user, host string, port int, database string) (*gorm.DB, error) {
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}
	switch driver {
	case "sqlite":
		db, err := gorm.Open(sqlite.Open(path), cfg)
		if err != nil {
			return nil, fmt.Errorf("db: open sqlite %s: %w", path, err)
		}
		return db, nil
	case "mysql":
		dsn := DSN(user, host, port, database)
		db, err := gorm.Open(mysql.Open(dsn), cfg)
		if err != nil {
			return nil, fmt.Errorf("db: connect to %s:%d/%s: %w", host, port, database, err)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("db: unknown driver %q", driver)
	}
}
