package xhci

import "testing"

// fakeEndpointRing records every Enqueue call without any wrap/cycle
// logic, since the scenario only needs to observe how many TRBs were
// appended and in what order.
type fakeEndpointRing struct {
	trbs []TRB
}

func (r *fakeEndpointRing) Enqueue(t TRB) (uint64, error) {
	r.trbs = append(r.trbs, t)
	return uint64(len(r.trbs)-1) * 16, nil
}

// TestControlTransferBookkeepingScenario implements spec.md §8 scenario
// 4: GET_DESCRIPTOR(Device) appends exactly 3 TRBs to the endpoint-0
// Transfer Ring, inserts the Setup TRB's physical address into the side
// map, and a matching Transfer Event removes it and applies the 18-byte
// descriptor's MaxPacketSize0/NumConfigurations fields onto the device.
func TestControlTransferBookkeepingScenario(t *testing.T) {
	ring := &fakeEndpointRing{}
	setupMap := NewSetupTRBMap()

	setupPhysAddr, err := BuildGetDeviceDescriptor(ring, setupMap, 0x2000, 18)
	if err != nil {
		t.Fatalf("BuildGetDeviceDescriptor: %v", err)
	}

	if len(ring.trbs) != 3 {
		t.Fatalf("appended %d TRBs, want 3", len(ring.trbs))
	}
	if ring.trbs[0].Type() != TypeSetupStage {
		t.Fatalf("trb[0] type = %d, want SetupStage", ring.trbs[0].Type())
	}
	if ring.trbs[1].Type() != TypeDataStage {
		t.Fatalf("trb[1] type = %d, want DataStage", ring.trbs[1].Type())
	}
	if ring.trbs[2].Type() != TypeStatusStage {
		t.Fatalf("trb[2] type = %d, want StatusStage", ring.trbs[2].Type())
	}
	if setupMap.Len() != 1 {
		t.Fatalf("setupMap.Len() = %d, want 1", setupMap.Len())
	}

	raw := make([]byte, 18)
	raw[7] = 64  // bMaxPacketSize0
	raw[17] = 2  // bNumConfigurations

	dev := &Device{}
	if err := CompleteGetDeviceDescriptor(setupMap, setupPhysAddr, raw, dev); err != nil {
		t.Fatalf("CompleteGetDeviceDescriptor: %v", err)
	}
	if setupMap.Len() != 0 {
		t.Fatalf("setupMap.Len() after completion = %d, want 0", setupMap.Len())
	}
	if dev.MaxPacketSize0 != 64 {
		t.Fatalf("MaxPacketSize0 = %d, want 64", dev.MaxPacketSize0)
	}
	if dev.NumConfigurations != 2 {
		t.Fatalf("NumConfigurations = %d, want 2", dev.NumConfigurations)
	}
}

func TestCompleteGetDeviceDescriptorUnknownSetup(t *testing.T) {
	setupMap := NewSetupTRBMap()
	dev := &Device{}
	err := CompleteGetDeviceDescriptor(setupMap, 0xdead, make([]byte, 18), dev)
	if err == nil {
		t.Fatal("expected error for unmatched setup physical address")
	}
}

func TestSetupTRBMapCapacity(t *testing.T) {
	m := NewSetupTRBMap()
	for i := 0; i < setupMapCapacity; i++ {
		if err := m.Insert(uint64(i), TRB{}); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}
	if err := m.Insert(uint64(setupMapCapacity), TRB{}); err == nil {
		t.Fatal("expected Full error once capacity is exceeded")
	}
}
