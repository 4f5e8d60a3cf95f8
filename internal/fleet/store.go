package fleet

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"github.com/akimovd/deskbot/internal/sheets"
)

const (
	deviceSheetWidth = 3 // floor, room, device
	changeSheetWidth = 5 // changed_on, floor, room, device, changed_by
)

// Change is one recorded cartridge swap.
type Change struct {
	ChangedOn string // date as entered, DD.MM.YYYY
	Floor     int
	Room      int
	Device    string
	ChangedBy string
}

// Store reads the devices sheet and appends to the cartridge-change log.
type Store struct {
	devices sheets.RowStore
	changes sheets.RowStore
}

// NewStore creates a Store over the two sheets.
func NewStore(devices, changes sheets.RowStore) (*Store, error) {
	if devices == nil || changes == nil {
		return nil, fmt.Errorf("fleet: store requires both row stores")
	}
	return &Store{devices: devices, changes: changes}, nil
}

// LoadDevices reads the full device list. Rows that do not parse are
// skipped with a warning so one bad row cannot hide the rest of the fleet.
func (s *Store) LoadDevices(ctx context.Context) ([]Device, error) {
	rows, err := s.devices.Rows(ctx, 500)
	if err != nil {
		return nil, fmt.Errorf("fleet: read device rows: %w", err)
	}
	var out []Device
	for _, row := range rows {
		row = sheets.PadRow(row, deviceSheetWidth)
		floor, ferr := strconv.Atoi(row[0])
		room, rerr := strconv.Atoi(row[1])
		if ferr != nil || rerr != nil || row[2] == "" {
			log.Printf("fleet: skipping bad device row %v", row)
			continue
		}
		out = append(out, Device{Floor: floor, Room: room, Name: row[2]})
	}
	return out, nil
}

// RecordChange appends one swap to the change log.
func (s *Store) RecordChange(ctx context.Context, c Change) error {
	row := []string{
		c.ChangedOn,
		strconv.Itoa(c.Floor),
		strconv.Itoa(c.Room),
		c.Device,
		c.ChangedBy,
	}
	if err := s.changes.Append(ctx, row); err != nil {
		return fmt.Errorf("fleet: record cartridge change: %w", err)
	}
	return nil
}

// DeviceSheetHeader returns the header row of the devices sheet.
func DeviceSheetHeader() []string {
	return []string{"floor", "room", "device"}
}

// ChangeSheetHeader returns the header row of the cartridge-change sheet.
func ChangeSheetHeader() []string {
	return []string{"changed_on", "floor", "room", "device", "changed_by"}
}
