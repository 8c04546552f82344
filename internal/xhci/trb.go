// Package xhci is the xHCI host-controller driver: the ~35% core named by
// spec.md §4.I. TRB and ring mechanics are grounded on the teacher's
// virtqueue.go (producer/consumer descriptor rings with a free list and
// memory barriers around index publication), generalized from VirtIO's
// split-descriptor model to xHCI's single-table Link-TRB-wrapped ring.
// Field layouts, the port-configuration state machine, and the
// Setup-Stage side map follow
// original_source/kernel/src/usb/{trb,controller,device,registers}.rs
// where spec.md's prose leaves a gap.
package xhci

// TRB is an untagged 16-byte Transfer Request Block: four 32-bit words,
// variant tag in bits 10-15 of word 3, cycle bit in bit 0 of word 3.
// Deliberately not modeled as an inheritance hierarchy — dispatch is a
// bit-shift, variants are views produced by plain functions, per the
// design notes' explicit instruction.
type TRB struct {
	Data [4]uint32
}

// Type reports the TRB's variant tag.
func (t TRB) Type() uint32 { return (t.Data[3] >> 10) & 0x3F }

// Cycle reports the TRB's cycle bit.
func (t TRB) Cycle() bool { return t.Data[3]&1 != 0 }

// SetCycle rewrites the cycle bit in place, leaving every other bit of
// word 3 untouched.
func (t *TRB) SetCycle(c bool) {
	if c {
		t.Data[3] |= 1
	} else {
		t.Data[3] &^= 1
	}
}

// TRB type tags used by this driver (xHCI 1.2 §6.4.6).
const (
	TypeNormal                     = 1
	TypeSetupStage                 = 2
	TypeDataStage                  = 3
	TypeStatusStage                = 4
	TypeLink                       = 6
	TypeEnableSlotCommand          = 9
	TypeAddressDeviceCommand       = 11
	TypeConfigureEndpointCommand   = 12
	TypeNoOpCommand                = 23
	TypeTransferEvent              = 32
	TypeCommandCompletionEvent     = 33
	TypePortStatusChangeEvent      = 34
)

// NoOpCommand builds a No-Op Command TRB, used during the port-enable
// sequence to exercise the command ring before Enable Slot.
func NoOpCommand() TRB {
	return TRB{Data: [4]uint32{0, 0, 0, TypeNoOpCommand << 10}}
}

// EnableSlotCommand builds an Enable Slot Command TRB.
func EnableSlotCommand() TRB {
	return TRB{Data: [4]uint32{0, 0, 0, TypeEnableSlotCommand << 10}}
}

// AddressDeviceCommand builds an Address Device Command TRB referencing an
// Input Context; the context pointer must be 64-byte aligned.
func AddressDeviceCommand(inputContextPtr uint64, slotID uint8) TRB {
	return TRB{Data: [4]uint32{
		uint32(inputContextPtr & 0xFFFFFFF0),
		uint32(inputContextPtr >> 32),
		0,
		uint32(slotID)<<24 | TypeAddressDeviceCommand<<10,
	}}
}

// ConfigureEndpointCommand builds a Configure Endpoint Command TRB
// referencing an Input Context.
func ConfigureEndpointCommand(inputContextPtr uint64, slotID uint8) TRB {
	return TRB{Data: [4]uint32{
		uint32(inputContextPtr & 0xFFFFFFF0),
		uint32(inputContextPtr >> 32),
		0,
		uint32(slotID)<<24 | TypeConfigureEndpointCommand<<10,
	}}
}

// LinkTRB builds a Link TRB pointing at ptr (a ring's base address),
// terminating one producer ring's segment and wrapping the consumer back
// to the start.
func LinkTRB(ptr uint64) TRB {
	return TRB{Data: [4]uint32{
		uint32(ptr & 0xFFFFFFF0),
		uint32(ptr >> 32),
		0,
		TypeLink<<10 | 1<<1, // toggle-cycle bit set
	}}
}

// SetupStageTRB builds the first TRB of a control transfer: the 8-byte USB
// setup packet, split across words 0-1, plus the transfer type in word 3.
type SetupPacket struct {
	RequestType uint8
	Request     uint8
	Value       uint16
	Index       uint16
	Length      uint16
}

// TransferType selects the Data/Status stage direction encoded in a
// Setup-Stage TRB's TRT field.
type TransferType uint32

const (
	TransferNoData  TransferType = 0
	TransferOut     TransferType = 2
	TransferIn      TransferType = 3
)

func SetupStageTRB(p SetupPacket, trt TransferType) TRB {
	word0 := uint32(p.RequestType) | uint32(p.Request)<<8 | uint32(p.Value)<<16
	word1 := uint32(p.Index) | uint32(p.Length)<<16
	word2 := uint32(8) // transfer length is always 8 for the setup packet itself
	word3 := uint32(trt) << 16 | TypeSetupStage<<10 | 1<<6 // IDT=1 (immediate data)
	return TRB{Data: [4]uint32{word0, word1, word2, word3}}
}

// DataStageTRB builds the Data-Stage TRB pointing at a data buffer; dirIn
// selects device-to-host transfer.
func DataStageTRB(bufPtr uint64, length uint32, dirIn bool) TRB {
	word3 := uint32(TypeDataStage << 10)
	if dirIn {
		word3 |= 1 << 16
	}
	return TRB{Data: [4]uint32{
		uint32(bufPtr),
		uint32(bufPtr >> 32),
		length,
		word3,
	}}
}

// StatusStageTRB builds the zero-length Status-Stage TRB closing a control
// transfer; dirIn is the opposite direction from the Data stage. IOC is
// always set so the transfer's completion is observable on the Event
// Ring.
func StatusStageTRB(dirIn bool) TRB {
	word3 := uint32(TypeStatusStage<<10) | 1<<5 // IOC
	if dirIn {
		word3 |= 1 << 16
	}
	return TRB{Data: [4]uint32{0, 0, 0, word3}}
}

// NormalTRB builds a Normal TRB for a non-control transfer (the boot-HID IN
// endpoint's recurring report buffer).
func NormalTRB(bufPtr uint64, length uint32, ioc bool) TRB {
	word3 := uint32(TypeNormal << 10)
	if ioc {
		word3 |= 1 << 5
	}
	return TRB{Data: [4]uint32{
		uint32(bufPtr),
		uint32(bufPtr >> 32),
		length,
		word3,
	}}
}

// PortStatusChangeEvent is a typed view over a Port Status Change Event
// TRB.
type PortStatusChangeEvent struct{ TRB }

func (e PortStatusChangeEvent) PortID() uint8 { return uint8(e.Data[0] >> 24) }

// CommandCompletionEvent is a typed view over a Command Completion Event
// TRB.
type CommandCompletionEvent struct{ TRB }

func (e CommandCompletionEvent) CommandTRBPointer() uint64 {
	return uint64(e.Data[0]) | uint64(e.Data[1])<<32
}
func (e CommandCompletionEvent) CompletionCode() uint8 { return uint8(e.Data[2] >> 24) }
func (e CommandCompletionEvent) SlotID() uint8          { return uint8(e.Data[3] >> 24) }

// TransferEvent is a typed view over a Transfer Event TRB.
type TransferEvent struct{ TRB }

func (e TransferEvent) TRBPointer() uint64 {
	return uint64(e.Data[0]) | uint64(e.Data[1])<<32
}
func (e TransferEvent) CompletionCode() uint8 { return uint8(e.Data[2] >> 24) }
func (e TransferEvent) SlotID() uint8          { return uint8(e.Data[3] >> 24) }
func (e TransferEvent) EndpointID() uint8      { return uint8(e.Data[3]>>16) & 0x1F }

// CompletionSuccess is the xHCI completion code value 1 ("Success").
const CompletionSuccess = 1
