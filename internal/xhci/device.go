package xhci

// maxSlots is the controller's configured MaxSlotsEn (spec.md §4.I.1 step
// 5: CONFIG.MaxSlotsEn=8).
const maxSlots = 8

// maxTransferRings is the highest device-context-index a device may use
// (31 endpoints' worth, per spec.md §3's Device Context description).
const maxTransferRings = 31

// ClassDriver identifies which HID class driver owns a device's boot
// interface, selected by first-match interface scan per
// SPEC_FULL.md's Module I supplement (grounded on
// original_source/kernel/src/usb/device.rs's `classes` field and its
// interface-protocol dispatch, InterfaceProtocolKeyboard=1,
// InterfaceProtocolMouse=2).
type ClassDriver uint8

const (
	ClassNone ClassDriver = iota
	ClassKeyboard
	ClassMouse
)

const (
	InterfaceProtocolKeyboard = 1
	InterfaceProtocolMouse    = 2
)

// Device is one addressed xHCI device: its slot, DCBAA-resident Device
// Context pointer, per-endpoint Transfer Rings, and the class driver
// selected from its boot-protocol interface descriptor. route_string is
// carried as a constant-zero placeholder field — this driver never
// addresses a device behind a hub (Non-goal), so the field only exists
// to keep the Input Context's Slot Context layout honest for any future
// hub support, per SPEC_FULL.md's Module I note.
type Device struct {
	SlotID            uint8
	RootHubPortNum    uint8
	RouteString       uint32
	DeviceContextPtr  uint64
	TransferRings     [maxTransferRings]*Ring
	Class             ClassDriver
	MaxPacketSize0    uint8
	NumConfigurations uint8
	Phase             Phase

	// ReportDCI, ReportBufPtr and ReportBufLen describe this device's
	// boot-protocol interrupt IN endpoint once ConfigureReportEndpoint
	// has been called during bring-up; ReportDCI == 0 means "not yet
	// configured" and the controller leaves the recurring Normal TRB
	// unarmed.
	ReportDCI    int
	ReportBufPtr uint64
	ReportBufLen uint32
}

// ConfigureReportEndpoint records dev's boot-protocol IN endpoint's
// Transfer Ring and recurring report buffer, the state
// Controller.armReportEndpoint needs to push and re-push the Normal TRB
// spec.md §4.I.2's ConfiguringEndpoints/Configured rows describe.
func (d *Device) ConfigureReportEndpoint(dci int, ring *Ring, bufPtr uint64, bufLen uint32) {
	if dci < 1 || dci > maxTransferRings {
		return
	}
	d.TransferRings[dci-1] = ring
	d.ReportDCI = dci
	d.ReportBufPtr = bufPtr
	d.ReportBufLen = bufLen
}

// EndpointDCI converts a boot-HID interrupt-IN endpoint number into the
// Device Context Index xHCI uses to pick a Transfer Ring slot:
// dci = (endpoint_number + 1) * 2 + 1, matching original_source's
// TransferEventTRB.set_normal_trb.
func EndpointDCI(endpointNumber uint8) int {
	return int(endpointNumber+1)*2 + 1
}

// TransferRing returns the Transfer Ring for a Device Context Index, or
// nil if none has been configured there yet.
func (d *Device) TransferRing(dci int) *Ring {
	if dci < 1 || dci > maxTransferRings {
		return nil
	}
	return d.TransferRings[dci-1]
}

// SelectClassDriver applies SPEC_FULL.md's first-match rule: the first
// interface descriptor whose bInterfaceProtocol is 1 or 2 wins,
// regardless of how many interfaces a composite device advertises.
func SelectClassDriver(interfaceProtocols []uint8) ClassDriver {
	for _, p := range interfaceProtocols {
		switch p {
		case InterfaceProtocolKeyboard:
			return ClassKeyboard
		case InterfaceProtocolMouse:
			return ClassMouse
		}
	}
	return ClassNone
}

// DeviceTable is the fixed per-slot device table (spec.md §9: an
// arena-with-option indexed 1..MaxSlotsEn, never a growable map).
type DeviceTable struct {
	slots [maxSlots + 1]*Device
}

func (t *DeviceTable) Get(slotID uint8) *Device {
	if slotID == 0 || int(slotID) >= len(t.slots) {
		return nil
	}
	return t.slots[slotID]
}

func (t *DeviceTable) Set(slotID uint8, d *Device) {
	if slotID == 0 || int(slotID) >= len(t.slots) {
		return
	}
	t.slots[slotID] = d
}

func (t *DeviceTable) Clear(slotID uint8) {
	t.Set(slotID, nil)
}
