// Package fleet tracks the printer inventory used by the cartridge-change
// workflow: which devices sit on which floor and in which room, and the
// log of recorded cartridge swaps.
package fleet

import (
	"sort"
	"strconv"
	"sync"
)

// Device is one printer from the devices sheet.
type Device struct {
	Floor int
	Room  int
	Name  string
}

// Inventory answers the narrowing questions of the cartridge dialogue:
// floor, then room on that floor, then device in that room.
type Inventory struct {
	mu      sync.RWMutex
	devices []Device
}

// NewInventory creates an empty Inventory.
func NewInventory() *Inventory {
	return &Inventory{}
}

// Replace swaps the whole device list, used on load and reload.
func (inv *Inventory) Replace(devices []Device) {
	inv.mu.Lock()
	inv.devices = append([]Device(nil), devices...)
	inv.mu.Unlock()
}

// Floors returns the distinct floors with at least one device, ascending.
func (inv *Inventory) Floors() []int {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	return uniqueInts(inv.devices, func(d Device) (int, bool) { return d.Floor, true })
}

// Rooms returns the distinct rooms on a floor, ascending.
func (inv *Inventory) Rooms(floor int) []int {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	return uniqueInts(inv.devices, func(d Device) (int, bool) { return d.Room, d.Floor == floor })
}

// Devices returns the device names in a room, in sheet order.
func (inv *Inventory) Devices(floor, room int) []string {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	var out []string
	for _, d := range inv.devices {
		if d.Floor == floor && d.Room == room {
			out = append(out, d.Name)
		}
	}
	return out
}

// Len returns the number of devices.
func (inv *Inventory) Len() int {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	return len(inv.devices)
}

func uniqueInts(devices []Device, pick func(Device) (int, bool)) []int {
	seen := make(map[int]bool)
	var out []int
	for _, d := range devices {
		v, ok := pick(d)
		if !ok || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Ints(out)
	return out
}

// Labels formats ints as button labels.
func Labels(values []int) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strconv.Itoa(v)
	}
	return out
}
