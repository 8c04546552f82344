package xhci

import (
	"unsafe"

	"github.com/kestrel-os/kestrel/internal/cpu/idt"
	"github.com/kestrel-os/kestrel/internal/hid"
	"github.com/kestrel-os/kestrel/internal/kerr"
	"github.com/kestrel-os/kestrel/internal/klog"
	"github.com/kestrel-os/kestrel/internal/mm/heap"
)

// Capability and operational register offsets (xHCI 1.2 §5). Operational
// registers are accessed relative to capLength, read out of CAPLENGTH at
// Init time, matching original_source/kernel/src/usb/registers.rs's two-
// stage capability-then-operational layout.
const (
	regCapLength    = 0x00
	regHCSParams1   = 0x04
	regHCSParams2   = 0x08
	regHCCParams1   = 0x10

	opUSBCmd  = 0x00
	opUSBSts  = 0x04
	opPageSize = 0x08
	opDNCtrl  = 0x14
	opCRCR    = 0x18
	opDCBAAP  = 0x30
	opConfig  = 0x38
	opPortSCBase = 0x400
	opPortSCStride = 0x10

	rtIR0EventRingSegTableSize = 0x28
	rtIR0EventRingSegTableAddr = 0x30
	rtIR0EventRingDequeuePtr   = 0x38

	usbCmdRunStop    = 1 << 0
	usbCmdHCReset    = 1 << 1
	usbCmdINTE       = 1 << 2
	usbStsHCHalted   = 1 << 0
	usbStsControllerNotReady = 1 << 11

	portSCCCS       = 1 << 0 // Current Connect Status
	portSCPR        = 1 << 4 // Port Reset
	portSCCSC       = 1 << 17
)

// MMIO is the volatile register access surface, implemented over raw
// pointers on real hardware; controller logic is written against this
// interface so state-machine and init-sequence ordering can be unit
// tested with a fake.
type MMIO interface {
	Read32(offset uintptr) uint32
	Write32(offset uintptr, value uint32)
	Read64(offset uintptr) uint64
	Write64(offset uintptr, value uint64)
}

// realMMIO backs MMIO with explicit volatile-style reads/writes against a
// mapped BAR, per spec.md §9's note that MMIO access is always an
// explicit wrapper, never a plain pointer dereference.
type realMMIO struct{ base uintptr }

func (m realMMIO) Read32(offset uintptr) uint32 {
	return *(*uint32)(unsafe.Pointer(m.base + offset))
}
func (m realMMIO) Write32(offset uintptr, value uint32) {
	*(*uint32)(unsafe.Pointer(m.base + offset)) = value
}
func (m realMMIO) Read64(offset uintptr) uint64 {
	return *(*uint64)(unsafe.Pointer(m.base + offset))
}
func (m realMMIO) Write64(offset uintptr, value uint64) {
	*(*uint64)(unsafe.Pointer(m.base + offset)) = value
}

// NewRealMMIO wraps a mapped BAR base address for use by Controller on
// real hardware.
func NewRealMMIO(base uintptr) MMIO { return realMMIO{base} }

// Controller is one xHCI host controller instance, driving the 11-step
// bring-up sequence spec.md §4.I.1 lists and owning the per-slot device
// table, command ring, and event ring it allocates during Init.
type Controller struct {
	mmio      MMIO
	heap      *heap.Heap
	capLength uintptr
	pageSize  uint32

	dcbaaPtr     uint64
	commandRing  *Ring
	eventRing    *EventRing
	setupMap     *SetupTRBMap
	devices      DeviceTable
	ports        *PortManager
	log          *klog.Logger

	// KeyboardHandler and MouseHandler are spec.md §4.K's "two callback
	// slots on the xHCI driver" — invoked from OnTransferEvent whenever a
	// Transfer Event completes a boot-protocol HID report on a device
	// whose ClassDriver selected it. Either may be left nil (no HID
	// device of that class attached).
	KeyboardHandler func(hid.KeyboardReport)
	MouseHandler    func(hid.MouseReport)
}

// op returns an operational-register offset, relative to capLength.
func (c *Controller) op(offset uintptr) uintptr { return c.capLength + offset }

// New constructs a Controller against an already-mapped MMIO surface and
// a heap it uses for the scratchpad buffers and their pointer array; the
// DCBAA and ring memory are allocated by the caller and passed to Init.
func New(mmio MMIO, h *heap.Heap, log *klog.Logger) *Controller {
	return &Controller{mmio: mmio, heap: h, log: log}
}

// halt implements step "halt the controller" before reset: clear
// USBCMD.Run/Stop and busy-wait for USBSTS.HCHalted, per spec.md's
// HostControllerNotHalted error kind — a controller that never halts is
// a fatal boot condition, not a recoverable one.
func (c *Controller) halt() error {
	cmd := c.mmio.Read32(c.op(opUSBCmd))
	c.mmio.Write32(c.op(opUSBCmd), cmd&^usbCmdRunStop)
	for i := 0; i < 1_000_000; i++ {
		if c.mmio.Read32(c.op(opUSBSts))&usbStsHCHalted != 0 {
			return nil
		}
	}
	return kerr.New("Controller.halt", kerr.HostControllerNotHalted)
}

func (c *Controller) reset() error {
	cmd := c.mmio.Read32(c.op(opUSBCmd))
	c.mmio.Write32(c.op(opUSBCmd), cmd|usbCmdHCReset)
	for i := 0; i < 1_000_000; i++ {
		sts := c.mmio.Read32(c.op(opUSBSts))
		if c.mmio.Read32(c.op(opUSBCmd))&usbCmdHCReset == 0 && sts&usbStsControllerNotReady == 0 {
			return nil
		}
	}
	return kerr.New("Controller.reset", kerr.HostControllerNotHalted)
}

// Init runs the controller bring-up sequence: map capability registers
// (capLength from CAPLENGTH), BIOS-to-OS handover is the platform's job
// and assumed already done by the time this driver is reached, halt,
// reset, set CONFIG.MaxSlotsEn, read PAGESIZE, install the DCBAA (plus
// any scratchpad buffers), Command Ring and Event Ring whose memory the
// caller allocated, set USBCMD.INTE and Run/Stop, and perform a first
// port-reset pass over every reported root port. Init does not program
// the device's PCI MSI capability; EnableMSI is separate and Init does
// not call it.
func (c *Controller) Init(dcbaaPtr, commandRingPtr, eventRingPtr uint64, ops PortOps, numPorts uint8) error {
	c.capLength = uintptr(c.mmio.Read32(regCapLength) & 0xFF)

	if err := c.halt(); err != nil {
		return err
	}
	if err := c.reset(); err != nil {
		return err
	}

	hcsParams1 := c.mmio.Read32(regHCSParams1)
	maxSlotsSupported := uint8(hcsParams1 & 0xFF)
	slotsEn := uint8(maxSlots)
	if maxSlotsSupported < slotsEn {
		slotsEn = maxSlotsSupported
	}
	c.mmio.Write32(c.op(opConfig), uint32(slotsEn))

	c.pageSize = c.mmio.Read32(c.op(opPageSize))

	c.dcbaaPtr = dcbaaPtr
	c.mmio.Write64(c.op(opDCBAAP), dcbaaPtr)

	if err := c.allocScratchpadBuffers(); err != nil {
		return err
	}

	c.commandRing = NewRing(commandRingPtr, 256)
	c.mmio.Write64(c.op(opCRCR), commandRingPtr|1) // bit0 = Ring Cycle State, starts true

	c.eventRing = NewEventRing(256, c.log)
	c.mmio.Write32(rtIR0EventRingSegTableSize, 1)
	c.mmio.Write64(rtIR0EventRingSegTableAddr, eventRingPtr)
	c.mmio.Write64(rtIR0EventRingDequeuePtr, eventRingPtr)

	c.setupMap = NewSetupTRBMap()
	c.ports = NewPortManagerWithLog(ops, c.log)

	cmd := c.mmio.Read32(c.op(opUSBCmd))
	c.mmio.Write32(c.op(opUSBCmd), cmd|usbCmdINTE|usbCmdRunStop)

	for port := uint8(1); port <= numPorts; port++ {
		connected := c.portConnected(port)
		if connected {
			if err := c.ports.HandlePortStatusChange(port, true, false); err != nil {
				c.logPhaseError(port, err)
			}
		}
	}
	return nil
}

// scratchpadBufferSize is one page, the unit xHCI scratchpad buffers are
// always sized in (xHCI 1.2 §4.20).
const scratchpadBufferSize = 4096

// scratchpadBufferCount decodes HCSPARAMS2's split Max Scratchpad Buffers
// field: the low 5 bits live at bits 31:27, the high 5 bits at bits 25:21
// (xHCI 1.2 Table 5-12).
func scratchpadBufferCount(hcsParams2 uint32) int {
	lo := (hcsParams2 >> 27) & 0x1F
	hi := (hcsParams2 >> 21) & 0x1F
	return int(lo | hi<<5)
}

// allocScratchpadBuffers implements spec.md §4.I.1 step 7: if HCSPARAMS2
// reports a nonzero Max Scratchpad Buffers count, allocate that many
// page-sized buffers plus the pointer array referencing them, and record
// the array's physical address at DCBAA[0] — the slot the xHC itself
// reads on its first access to the Device Context Base Address Array.
func (c *Controller) allocScratchpadBuffers() error {
	count := scratchpadBufferCount(c.mmio.Read32(regHCSParams2))
	if count == 0 {
		return nil
	}

	arrayPtr, err := c.heap.AllocAligned(uint32(count)*8, 64)
	if err != nil {
		return err
	}
	array := (*[1 << 10]uint64)(arrayPtr)[:count:count]

	for i := 0; i < count; i++ {
		buf, err := c.heap.AllocAligned(scratchpadBufferSize, scratchpadBufferSize)
		if err != nil {
			return err
		}
		array[i] = uint64(uintptr(buf))
	}

	dcbaa := (*[256]uint64)(unsafe.Pointer(uintptr(c.dcbaaPtr)))
	dcbaa[0] = uint64(uintptr(arrayPtr))
	return nil
}

func (c *Controller) portConnected(port uint8) bool {
	offset := c.op(opPortSCBase + uintptr(port-1)*opPortSCStride)
	return c.mmio.Read32(offset)&portSCCCS != 0
}

func (c *Controller) logPhaseError(port uint8, err error) {
	if c.log != nil {
		c.log.Warnf("xhci: port %d: %v", port, err)
	}
}

// ResetPort implements PortOps for the real controller by writing the
// Port Reset bit of the port's PORTSC register.
func (c *Controller) ResetPort(portID uint8) {
	offset := c.op(opPortSCBase + uintptr(portID-1)*opPortSCStride)
	sts := c.mmio.Read32(offset)
	c.mmio.Write32(offset, sts|portSCPR)
}

// PushCommand implements PortOps by enqueueing onto the command ring and
// returning the slot's physical address for completion-event matching.
func (c *Controller) PushCommand(t TRB) (uint64, error) {
	return c.commandRing.Enqueue(t)
}

// RingDoorbell writes the per-slot doorbell register; doorbell 0 is the
// Command Ring's, target 0 signals "new command posted."
func (c *Controller) RingDoorbell(slot, target uint8) {
	c.mmio.Write32(uintptr(0x480+uint32(slot)*4), uint32(target))
}

// PollEvents drains the Event Ring, dispatching Port Status Change,
// Command Completion, and Transfer Event TRBs to this controller's own
// handlers, and advances ERDP preserving its low 4 bits (the Event
// Handler Busy bit and reserved bits), per spec.md §4.I.3.
func (c *Controller) PollEvents() {
	c.eventRing.Consume(c)
	erdp := c.mmio.Read64(rtIR0EventRingDequeuePtr)
	low := erdp & 0xF
	newPtr := uint64(c.eventRing.dequeue)*16 | low
	c.mmio.Write64(rtIR0EventRingDequeuePtr, newPtr)
}

func (c *Controller) OnPortStatusChange(e PortStatusChangeEvent) {
	port := e.PortID()
	resetInProgress := c.mmio.Read32(c.op(opPortSCBase+uintptr(port-1)*opPortSCStride))&portSCPR != 0
	connected := c.portConnected(port)
	if err := c.ports.HandlePortStatusChange(port, connected, resetInProgress); err != nil {
		c.logPhaseError(port, err)
		c.ports.Abandon(port)
	}
}

func (c *Controller) OnCommandCompletion(e CommandCompletionEvent) {
	if e.CompletionCode() != CompletionSuccess {
		if c.log != nil {
			c.log.Warnf("xhci: command completion code %d, slot %d", e.CompletionCode(), e.SlotID())
		}
		return
	}
	ptr := e.CommandTRBPointer()
	cmdTRB := c.commandTRBAt(ptr)
	switch cmdTRB.Type() {
	case TypeEnableSlotCommand:
		dev := &Device{SlotID: e.SlotID()}
		c.devices.Set(e.SlotID(), dev)
		// No code in this package builds an Input Context for the new
		// slot; dev.DeviceContextPtr is still zero when forwarded here.
		if err := c.ports.HandleEnableSlotCompletion(e.SlotID(), dev.DeviceContextPtr); err != nil {
			c.logPhaseError(0, err)
		}
	case TypeAddressDeviceCommand:
		dev := c.devices.Get(e.SlotID())
		if dev == nil {
			if c.log != nil {
				c.log.Warnf("xhci: address device completion for unknown slot %d", e.SlotID())
			}
			return
		}
		if err := c.ports.HandleAddressDeviceCompletion(dev.RootHubPortNum); err != nil {
			c.logPhaseError(dev.RootHubPortNum, err)
		}
	case TypeConfigureEndpointCommand:
		dev := c.devices.Get(e.SlotID())
		if dev == nil {
			return
		}
		if err := c.ports.Complete(dev.RootHubPortNum); err != nil {
			c.logPhaseError(dev.RootHubPortNum, err)
			return
		}
		// Per spec.md §4.I.2's ConfiguringEndpoints row, Configured is
		// reached by pushing the first Normal TRB on the boot-protocol IN
		// endpoint. armReportEndpoint does nothing unless dev's report
		// endpoint was set with Device.ConfigureReportEndpoint, and no
		// code in this package calls that method.
		c.armReportEndpoint(dev)
	default:
		if c.log != nil {
			c.log.Warnf("xhci: command completion for unhandled command type %d", cmdTRB.Type())
		}
	}
}

func (c *Controller) OnTransferEvent(e TransferEvent) {
	dev := c.devices.Get(e.SlotID())
	if dev == nil {
		return
	}
	if e.CompletionCode() != CompletionSuccess {
		if c.log != nil {
			c.log.Warnf("xhci: transfer event completion code %d, slot %d", e.CompletionCode(), e.SlotID())
		}
		return
	}
	if _, ok := c.setupMap.Remove(e.TRBPointer()); ok {
		// Control-transfer completion: this only clears the side-map
		// entry the Setup Stage registered. No descriptor is parsed here,
		// and no code in this package issues GET_DESCRIPTOR on a live
		// device or calls SelectClassDriver/ConfigureReportEndpoint.
		return
	}

	// No Setup-Stage match: per spec.md §4.I.4 this Transfer Event
	// completes a Normal transfer on the boot-protocol IN endpoint.
	// Dispatch the report to whichever class handler owns this device,
	// then re-arm the endpoint with a fresh Normal TRB so the next report
	// is already queued by the time the device sends it.
	c.dispatchReport(dev)
	c.armReportEndpoint(dev)
}

// dispatchReport reads dev's report buffer and hands it to the matching
// HID callback slot (spec.md §4.K), by the class driver SelectClassDriver
// chose during device bring-up.
func (c *Controller) dispatchReport(dev *Device) {
	if dev.ReportBufPtr == 0 || dev.ReportBufLen == 0 {
		return
	}
	raw := (*[1 << 16]byte)(unsafe.Pointer(uintptr(dev.ReportBufPtr)))[:dev.ReportBufLen:dev.ReportBufLen]

	switch dev.Class {
	case ClassKeyboard:
		if c.KeyboardHandler == nil || len(raw) < 8 {
			return
		}
		var r hid.KeyboardReport
		r.Modifiers = raw[0]
		copy(r.Keys[:], raw[2:8])
		c.KeyboardHandler(r)
	case ClassMouse:
		if c.MouseHandler == nil || len(raw) < 3 {
			return
		}
		c.MouseHandler(hid.MouseReport{Buttons: raw[0], DX: int8(raw[1]), DY: int8(raw[2])})
	}
}

// armReportEndpoint pushes a fresh Normal TRB onto dev's configured report
// endpoint and rings its doorbell, a no-op for a device with no report
// endpoint configured yet (ReportDCI == 0).
func (c *Controller) armReportEndpoint(dev *Device) {
	if dev.ReportDCI == 0 {
		return
	}
	ring := dev.TransferRing(dev.ReportDCI)
	if ring == nil {
		return
	}
	if _, err := ring.Enqueue(NormalTRB(dev.ReportBufPtr, dev.ReportBufLen, true)); err != nil {
		if c.log != nil {
			c.log.Warnf("xhci: slot %d: enqueue Normal TRB: %v", dev.SlotID, err)
		}
		return
	}
	c.RingDoorbell(dev.SlotID, uint8(dev.ReportDCI))
}

// commandTRBAt reads back a previously enqueued command TRB by physical
// address for dispatch; since this driver's own Command Ring is the only
// producer, the address always falls within its backing array.
func (c *Controller) commandTRBAt(physAddr uint64) TRB {
	// Physical addresses are base + index*16; recovering the index avoids
	// a second MMIO-backed translation table for what is, in this
	// single-controller design, always our own ring.
	idx := int((physAddr - c.commandRing.physBase) / 16)
	t, _ := c.commandRing.Dequeue(idx)
	return t
}

// EnableMSI computes the MSI message address and data that deliver the
// xHCI interrupt vector to the given local APIC, per spec.md §4.E's
// message address/data formulas, and returns them; it writes no PCI
// configuration register.
func (c *Controller) EnableMSI(cap idt.MSICapability, apicID uint8) (address, data uint32) {
	address, data, _ = idt.ProgramMSI(cap, apicID, idt.VectorXHCI, idt.DeliveryFixed, false, 0)
	return address, data
}
