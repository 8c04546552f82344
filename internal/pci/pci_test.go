package pci_test

import (
	"testing"

	"github.com/kestrel-os/kestrel/internal/pci"
)

// fakeBus models a tiny topology: a PCI-to-PCI bridge at (0,1,0) whose
// secondary bus is 1, with one xHCI-like function at (1,0,0).
type fakeBus struct {
	regs map[[3]uint8]map[uint8]uint32
}

func newFakeBus() *fakeBus {
	return &fakeBus{regs: make(map[[3]uint8]map[uint8]uint32)}
}

func (f *fakeBus) put(bus, device, function uint8, reg uint8, value uint32) {
	key := [3]uint8{bus, device, function}
	if f.regs[key] == nil {
		f.regs[key] = make(map[uint8]uint32)
	}
	f.regs[key][reg&0xFC] = value
}

func (f *fakeBus) Read32(bus, device, function uint8, reg uint8) uint32 {
	key := [3]uint8{bus, device, function}
	m, ok := f.regs[key]
	if !ok {
		return 0xFFFFFFFF
	}
	v, ok := m[reg&0xFC]
	if !ok {
		return 0xFFFFFFFF
	}
	return v
}

func (f *fakeBus) Write32(bus, device, function uint8, reg uint8, value uint32) {
	f.put(bus, device, function, reg, value)
}

func buildTopology() *fakeBus {
	f := newFakeBus()

	// Bridge at bus 0, device 1, function 0: vendor/device present,
	// header type 01h (bridge), class 06h/04h, secondary bus 1.
	f.put(0, 1, 0, 0x00, 0x00011234) // device<<16 | vendor
	f.put(0, 1, 0, 0x0C, 0x00010000) // header type in bits 16-23
	f.put(0, 1, 0, 0x08, 0x06040000) // class 06, subclass 04, in top bits
	f.put(0, 1, 0, 0x18, 0x00000100) // secondary bus number in bits 8-15

	// xHCI-like function behind the bridge, at bus 1, device 0, function 0.
	f.put(1, 0, 0, 0x00, 0x00021234)
	f.put(1, 0, 0, 0x0C, 0x00000000) // header type 0 (normal device)
	f.put(1, 0, 0, 0x08, 0x0C033000) // class 0Ch (serial bus), subclass 03 (USB)
	f.put(1, 0, 0, 0x10, 0xF0000004) // BAR0: 64-bit memory space

	return f
}

func TestScanAllBusFindsDeviceBehindBridge(t *testing.T) {
	f := buildTopology()
	devices := pci.ScanAllBus(f)

	var found bool
	for _, d := range devices {
		if d.Bus == 1 && d.Device == 0 && d.Function == 0 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected to find device behind bridge, got %+v", devices)
	}
}

func TestReadBAR64Bit(t *testing.T) {
	f := buildTopology()
	f.put(1, 0, 0, 0x14, 0x00000001) // BAR1: high half of a 64-bit BAR0

	dev := pci.Device{Bus: 1, Device: 0, Function: 0}
	bar := pci.ReadBAR(f, dev, 0)
	want := uint64(0x00000001)<<32 | uint64(0xF0000004)
	if bar != want {
		t.Fatalf("ReadBAR() = 0x%x, want 0x%x", bar, want)
	}
}
