package fleet

import (
	"context"
	"testing"

	"github.com/akimovd/deskbot/internal/sheets"
)

func testInventory() *Inventory {
	inv := NewInventory()
	inv.Replace([]Device{
		{Floor: 2, Room: 36, Name: "HP LaserJet"},
		{Floor: 2, Room: 36, Name: "Kyocera M2040"},
		{Floor: 2, Room: 14, Name: "Canon i-SENSYS"},
		{Floor: 3, Room: 41, Name: "HP LaserJet"},
	})
	return inv
}

func TestFloorsSortedUnique(t *testing.T) {
	got := testInventory().Floors()
	want := []int{2, 3}
	if len(got) != len(want) {
		t.Fatalf("floors = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("floors[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestRoomsScopedToFloor(t *testing.T) {
	got := testInventory().Rooms(2)
	if len(got) != 2 || got[0] != 14 || got[1] != 36 {
		t.Errorf("rooms(2) = %v, want [14 36]", got)
	}
	if got := testInventory().Rooms(5); got != nil {
		t.Errorf("rooms(5) = %v, want nil", got)
	}
}

func TestDevicesScopedToRoom(t *testing.T) {
	got := testInventory().Devices(2, 36)
	if len(got) != 2 || got[0] != "HP LaserJet" || got[1] != "Kyocera M2040" {
		t.Errorf("devices(2,36) = %v", got)
	}
	if got := testInventory().Devices(3, 41); len(got) != 1 {
		t.Errorf("devices(3,41) = %v, want one device", got)
	}
}

func TestLoadDevicesSkipsBadRows(t *testing.T) {
	devices := sheets.NewMemoryStore(DeviceSheetHeader())
	ctx := context.Background()
	devices.Append(ctx, []string{"2", "36", "HP LaserJet"})
	devices.Append(ctx, []string{"ground", "36", "Broken Row"})
	devices.Append(ctx, []string{"3", "41", ""})
	devices.Append(ctx, []string{"3", "41", "Kyocera M2040"})

	store, err := NewStore(devices, sheets.NewMemoryStore(ChangeSheetHeader()))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	got, err := store.LoadDevices(ctx)
	if err != nil {
		t.Fatalf("LoadDevices: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("loaded %d devices, want 2: %+v", len(got), got)
	}
}

func TestRecordChangeAppendsRow(t *testing.T) {
	changes := sheets.NewMemoryStore(ChangeSheetHeader())
	store, _ := NewStore(sheets.NewMemoryStore(DeviceSheetHeader()), changes)
	ctx := context.Background()

	err := store.RecordChange(ctx, Change{
		ChangedOn: "28.08.2026",
		Floor:     2,
		Room:      36,
		Device:    "HP LaserJet",
		ChangedBy: "Akimov D.",
	})
	if err != nil {
		t.Fatalf("RecordChange: %v", err)
	}
	rows, _ := changes.Rows(ctx, 10)
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	want := []string{"28.08.2026", "2", "36", "HP LaserJet", "Akimov D."}
	for i := range want {
		if rows[0][i] != want[i] {
			t.Errorf("row[%d] = %q, want %q", i, rows[0][i], want[i])
		}
	}
}
