package db

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/akimovd/deskbot/internal/models"
	"github.com/akimovd/deskbot/internal/task"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := AutoMigrate(gdb); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	return gdb
}

func TestDSN(t *testing.T) {
	tests := []struct {
		name string
		user string
		host string
		port int
		db   string
		want string
	}{
		{
			name: "default local",
			user: "deskbot",
			host: "127.0.0.1",
			port: 3306,
			db:   "deskbot_audit",
			want: "deskbot@tcp(127.0.0.1:3306)/deskbot_audit?parseTime=true",
		},
		{
			name: "custom host and port",
			user: "root",
			host: "10.0.0.5",
			port: 3307,
			db:   "audit",
			want: "root@tcp(10.0.0.5:3307)/audit?parseTime=true",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DSN(tt.user, tt.host, tt.port, tt.db)
			if got != tt.want {
				t.Errorf("DSN() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDSN_ParseTimeFlag(t *testing.T) {
	if dsn := DSN("u", "localhost", 3306, "test"); !strings.Contains(dsn, "parseTime=true") {
		t.Errorf("DSN missing parseTime=true: %s", dsn)
	}
}

func TestConnectUnknownDriver(t *testing.T) {
	if _, err := Connect("postgres", "", "", "", 0, ""); err == nil {
		t.Fatal("want error for unknown driver")
	}
}

func TestAllModels_Count(t *testing.T) {
	if got := len(AllModels()); got != 3 {
		t.Errorf("AllModels() returned %d models, want 3", got)
	}
}

func TestRecorderWritesTaskEvent(t *testing.T) {
	gdb := testDB(t)
	rec := NewRecorder(gdb)
	at := time.Date(2026, 8, 28, 10, 30, 0, 0, time.UTC)
	rec.Record(context.Background(), task.Event{
		TaskID: 5, Kind: "taken", Actor: "Akimov D.", At: at,
	})

	var rows []models.TaskEvent
	if err := gdb.Find(&rows).Error; err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if rows[0].TaskID != 5 || rows[0].Kind != "taken" || rows[0].Actor != "Akimov D." {
		t.Errorf("row = %+v", rows[0])
	}
}

func TestRecorderWritesDeliveryFailure(t *testing.T) {
	gdb := testDB(t)
	rec := NewRecorder(gdb)
	rec.RecordDeliveryFailure(context.Background(), "telegram", 42, 5, "blocked by user")

	var rows []models.DeliveryFailure
	if err := gdb.Find(&rows).Error; err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(rows) != 1 || rows[0].ChatID != 42 || rows[0].Platform != "telegram" {
		t.Errorf("rows = %+v", rows)
	}
}

func TestRecorderWritesCartridgeChange(t *testing.T) {
	gdb := testDB(t)
	rec := NewRecorder(gdb)
	rec.RecordCartridgeChange(context.Background(), 2, 36, "HP LaserJet", "28.08.2026", "Akimov D.")

	var rows []models.CartridgeChange
	if err := gdb.Find(&rows).Error; err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(rows) != 1 || rows[0].Device != "HP LaserJet" || rows[0].Floor != 2 {
		t.Errorf("rows = %+v", rows)
	}
}
