package xhci

import "testing"

type fakePortOps struct {
	resets     []uint8
	pushed     []TRB
	doorbells  [][2]uint8
}

func (f *fakePortOps) ResetPort(portID uint8) { f.resets = append(f.resets, portID) }

func (f *fakePortOps) PushCommand(t TRB) (uint64, error) {
	f.pushed = append(f.pushed, t)
	return uint64(len(f.pushed)-1) * 16, nil
}

func (f *fakePortOps) RingDoorbell(slot, target uint8) {
	f.doorbells = append(f.doorbells, [2]uint8{slot, target})
}

// TestEnableSlotSequenceScenario implements spec.md §8 scenario 3
// literally: port 3, addressing_port initially 0, a Port Status Change
// event with port_id=3 while the port is NotConnected triggers a reset;
// a second Port Status Change event with PortReset cleared pushes
// No-Op + Enable Slot onto the command ring and rings doorbell 0
// target 0.
func TestEnableSlotSequenceScenario(t *testing.T) {
	ops := &fakePortOps{}
	m := NewPortManager(ops)

	if err := m.HandlePortStatusChange(3, true, false); err != nil {
		t.Fatalf("first event: %v", err)
	}
	if m.Phase(3) != ResettingPort {
		t.Fatalf("phase after first event = %v, want ResettingPort", m.Phase(3))
	}
	if len(ops.resets) != 1 || ops.resets[0] != 3 {
		t.Fatalf("resets = %v, want [3]", ops.resets)
	}

	if err := m.HandlePortStatusChange(3, true, false); err != nil {
		t.Fatalf("second event: %v", err)
	}
	if m.Phase(3) != EnablingSlot {
		t.Fatalf("phase after second event = %v, want EnablingSlot", m.Phase(3))
	}
	if len(ops.pushed) != 2 {
		t.Fatalf("pushed %d TRBs, want 2", len(ops.pushed))
	}
	if ops.pushed[0].Type() != TypeNoOpCommand {
		t.Fatalf("first pushed TRB type = %d, want NoOp", ops.pushed[0].Type())
	}
	if ops.pushed[1].Type() != TypeEnableSlotCommand {
		t.Fatalf("second pushed TRB type = %d, want EnableSlot", ops.pushed[1].Type())
	}
	if len(ops.doorbells) != 1 || ops.doorbells[0] != [2]uint8{0, 0} {
		t.Fatalf("doorbells = %v, want [[0 0]]", ops.doorbells)
	}
}

func TestSecondPortParkedWhileAddressingInFlight(t *testing.T) {
	ops := &fakePortOps{}
	m := NewPortManager(ops)

	_ = m.HandlePortStatusChange(1, true, false)
	_ = m.HandlePortStatusChange(1, true, false) // port 1 now EnablingSlot, holds the guard

	if err := m.HandlePortStatusChange(2, true, false); err != nil {
		t.Fatalf("port 2 event: %v", err)
	}
	if m.Phase(2) != WaitingAddressed {
		t.Fatalf("phase(2) = %v, want WaitingAddressed", m.Phase(2))
	}

	if err := m.HandleEnableSlotCompletion(5, 0x1000); err != nil {
		t.Fatalf("enable slot completion: %v", err)
	}
	if err := m.HandleAddressDeviceCompletion(1); err != nil {
		t.Fatalf("address device completion: %v", err)
	}

	if m.Phase(2) != ResettingPort {
		t.Fatalf("phase(2) after promotion = %v, want ResettingPort", m.Phase(2))
	}
	if len(ops.resets) != 2 || ops.resets[1] != 2 {
		t.Fatalf("resets = %v, want second reset to be port 2", ops.resets)
	}
}

func TestAbandonClearsAddressingGuard(t *testing.T) {
	ops := &fakePortOps{}
	m := NewPortManager(ops)

	_ = m.HandlePortStatusChange(1, true, false)
	_ = m.HandlePortStatusChange(1, true, false)

	m.Abandon(1)
	if m.Phase(1) != Broken {
		t.Fatalf("phase(1) = %v, want Broken", m.Phase(1))
	}

	// With the guard cleared, a fresh port can now claim it.
	if err := m.HandlePortStatusChange(2, true, false); err != nil {
		t.Fatalf("port 2 event: %v", err)
	}
	if m.Phase(2) != ResettingPort {
		t.Fatalf("phase(2) = %v, want ResettingPort (guard should have been free)", m.Phase(2))
	}
}
