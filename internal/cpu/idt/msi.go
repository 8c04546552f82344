package idt

import "github.com/kestrel-os/kestrel/internal/bitfield"

// DeliveryMode mirrors the low-level APIC delivery-mode encoding used in an
// MSI message-data word.
type DeliveryMode uint8

const (
	DeliveryFixed   DeliveryMode = 0
	DeliveryLowest  DeliveryMode = 1
	DeliveryNMI     DeliveryMode = 4
	DeliveryInit    DeliveryMode = 5
	DeliveryExtINT  DeliveryMode = 7
)

// messageData packs the MSI message-data DWORD: vector, delivery mode, and
// (for level-triggered interrupts) the trigger-mode/level-assert bits.
type messageData struct {
	Vector       uint8 `bitfield:",8"`
	DeliveryMode uint8 `bitfield:",3"`
	Reserved     uint8 `bitfield:",3"`
	LevelAssert  bool  `bitfield:",1"`
	TriggerMode  bool  `bitfield:",1"`
}

// MSICapability is the subset of a PCI MSI capability structure the
// programming sequence in spec.md §4.E touches.
type MSICapability struct {
	CapOffset           uint8
	Is64Bit             bool
	MultiMessageCapable  uint8 // log2 of the number of vectors the function supports
}

// ProgramMSI computes the message-address and message-data values spec.md
// §4.E names, and the multi-message-enable field to write back
// (min(capable, requested) as a log2 exponent).
//
// message_address = 0xFEE00000 | (apic_id << 12)
// message_data = (delivery_mode << 8) | vector | (level_trigger ? 0xC000 : 0)
func ProgramMSI(cap MSICapability, apicID uint8, vector uint8, deliveryMode DeliveryMode, levelTrigger bool, requestedExponent uint8) (address uint32, data uint32, multiMessageEnable uint8) {
	address = 0xFEE00000 | (uint32(apicID) << 12)

	packed, _ := bitfield.Pack(messageData{
		Vector:       vector,
		DeliveryMode: uint8(deliveryMode),
		LevelAssert:  levelTrigger,
		TriggerMode:  levelTrigger,
	}, &bitfield.Config{NumBits: 16})
	data = uint32(packed)

	multiMessageEnable = requestedExponent
	if cap.MultiMessageCapable < multiMessageEnable {
		multiMessageEnable = cap.MultiMessageCapable
	}
	return address, data, multiMessageEnable
}
