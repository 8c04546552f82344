package xhci

import "github.com/kestrel-os/kestrel/internal/kerr"

// setupMapCapacity mirrors original_source's FnvIndexMap<u64, TRB, 32>:
// a fixed-capacity map keyed by the Setup-Stage TRB's physical address,
// recording in-flight control transfers so a later Transfer Event for the
// Status stage can be matched back to its Setup stage.
const setupMapCapacity = 32

// SetupTRBMap is the fixed-capacity side map spec.md §9 describes.
type SetupTRBMap struct {
	entries map[uint64]TRB
}

func NewSetupTRBMap() *SetupTRBMap {
	return &SetupTRBMap{entries: make(map[uint64]TRB, setupMapCapacity)}
}

func (m *SetupTRBMap) Insert(physAddr uint64, t TRB) error {
	if len(m.entries) >= setupMapCapacity {
		return kerr.New("SetupTRBMap.Insert", kerr.Full)
	}
	m.entries[physAddr] = t
	return nil
}

// Remove removes and returns the entry for physAddr, reporting whether it
// was present.
func (m *SetupTRBMap) Remove(physAddr uint64) (TRB, bool) {
	t, ok := m.entries[physAddr]
	if ok {
		delete(m.entries, physAddr)
	}
	return t, ok
}

func (m *SetupTRBMap) Len() int { return len(m.entries) }

// DeviceDescriptor is the 18-byte USB device descriptor's fields this
// driver actually consumes — bMaxPacketSize0 at byte 7, bNumConfigurations
// at byte 17, per spec.md §8 scenario 4.
type DeviceDescriptor struct {
	MaxPacketSize0   uint8
	NumConfigurations uint8
}

func ParseDeviceDescriptor(raw []byte) (DeviceDescriptor, error) {
	if len(raw) < 18 {
		return DeviceDescriptor{}, kerr.New("ParseDeviceDescriptor", kerr.BufferTooSmall)
	}
	return DeviceDescriptor{
		MaxPacketSize0:    raw[7],
		NumConfigurations: raw[17],
	}, nil
}

// GetDescriptor's standard request fields (USB 2.0 §9.4).
const (
	requestTypeDeviceToHost = 0x80
	requestGetDescriptor    = 0x06
	descriptorTypeDevice    = 0x01
)

// Endpoint0Ring is the subset of Ring a control transfer needs: enqueue
// with physical-address feedback for the side map, and a live cycle/base
// so the caller's doorbell write is meaningful.
type Endpoint0Ring interface {
	Enqueue(t TRB) (physAddr uint64, err error)
}

// BuildGetDeviceDescriptor appends the three TRBs (Setup, Data, Status) a
// GET_DESCRIPTOR(Device) control transfer requires onto ring, records the
// Setup TRB's physical address in setupMap so the eventual Transfer Event
// can be matched back to it, and returns that physical address. This is
// the literal bookkeeping spec.md §8 scenario 4 exercises: exactly 3 TRBs
// appended, one Setup TRB side-map insertion.
func BuildGetDeviceDescriptor(ring Endpoint0Ring, setupMap *SetupTRBMap, dataBufPtr uint64, length uint16) (setupPhysAddr uint64, err error) {
	setup := SetupPacket{
		RequestType: requestTypeDeviceToHost,
		Request:     requestGetDescriptor,
		Value:       uint16(descriptorTypeDevice) << 8,
		Index:       0,
		Length:      length,
	}
	setupTRB := SetupStageTRB(setup, TransferIn)

	setupPhysAddr, err = ring.Enqueue(setupTRB)
	if err != nil {
		return 0, err
	}
	if err := setupMap.Insert(setupPhysAddr, setupTRB); err != nil {
		return 0, err
	}

	if _, err := ring.Enqueue(DataStageTRB(dataBufPtr, uint32(length), true)); err != nil {
		return 0, err
	}
	if _, err := ring.Enqueue(StatusStageTRB(false)); err != nil {
		return 0, err
	}
	return setupPhysAddr, nil
}

// CompleteGetDeviceDescriptor finishes a GET_DESCRIPTOR(Device) transfer:
// it removes the transfer's entry from setupMap (a miss returns a
// NoCorrespondingSetupStage error) and applies the fetched descriptor's
// MaxPacketSize0/NumConfigurations onto dev. Controller.OnTransferEvent
// does not call it.
func CompleteGetDeviceDescriptor(setupMap *SetupTRBMap, setupPhysAddr uint64, raw []byte, dev *Device) error {
	if _, ok := setupMap.Remove(setupPhysAddr); !ok {
		return kerr.New("CompleteGetDeviceDescriptor", kerr.NoCorrespondingSetupStage)
	}
	desc, err := ParseDeviceDescriptor(raw)
	if err != nil {
		return err
	}
	dev.MaxPacketSize0 = desc.MaxPacketSize0
	dev.NumConfigurations = desc.NumConfigurations
	return nil
}
