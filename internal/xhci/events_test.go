package xhci

import "testing"

type recordingSink struct {
	portChanges []uint8
	completions []uint8
	transfers   []uint8
}

func (s *recordingSink) OnPortStatusChange(e PortStatusChangeEvent) {
	s.portChanges = append(s.portChanges, e.PortID())
}
func (s *recordingSink) OnCommandCompletion(e CommandCompletionEvent) {
	s.completions = append(s.completions, e.SlotID())
}
func (s *recordingSink) OnTransferEvent(e TransferEvent) {
	s.transfers = append(s.transfers, e.SlotID())
}

func portStatusChangeTRB(portID uint8) TRB {
	return TRB{Data: [4]uint32{uint32(portID) << 24, 0, 0, TypePortStatusChangeEvent << 10}}
}

func TestEventRingConsumeStopsAtUnwrittenSlot(t *testing.T) {
	r := NewEventRing(4, nil)
	r.Write(0, portStatusChangeTRB(3), true)
	r.Write(1, portStatusChangeTRB(5), true)
	// slots 2,3 left at cycle=false (zero value), signalling "not yet written"

	sink := &recordingSink{}
	n := r.Consume(sink)

	if n != 2 {
		t.Fatalf("processed %d TRBs, want 2", n)
	}
	if len(sink.portChanges) != 2 || sink.portChanges[0] != 3 || sink.portChanges[1] != 5 {
		t.Fatalf("portChanges = %v, want [3 5]", sink.portChanges)
	}
	if r.dequeue != 2 {
		t.Fatalf("dequeue = %d, want 2", r.dequeue)
	}
}

func TestEventRingWrapsAndTogglesCycle(t *testing.T) {
	r := NewEventRing(2, nil)
	r.Write(0, portStatusChangeTRB(1), true)
	r.Write(1, portStatusChangeTRB(2), true)

	sink := &recordingSink{}
	n := r.Consume(sink)
	if n != 2 {
		t.Fatalf("processed %d TRBs, want 2", n)
	}
	if r.dequeue != 0 {
		t.Fatalf("dequeue = %d, want 0 after wrap", r.dequeue)
	}
	if r.cycle != false {
		t.Fatalf("cycle = %v, want false after one wrap", r.cycle)
	}

	// Nothing new written at cycle=false yet: a second Consume call sees
	// cycle mismatch on both slots (still written at cycle=true) and does
	// no further work.
	if n2 := r.Consume(sink); n2 != 0 {
		t.Fatalf("second Consume processed %d, want 0", n2)
	}
}

func TestEventRingSkipsUnknownType(t *testing.T) {
	r := NewEventRing(2, nil)
	r.Write(0, TRB{Data: [4]uint32{0, 0, 0, 63 << 10}}, true) // type 63 is unassigned
	r.Write(1, portStatusChangeTRB(7), true)

	sink := &recordingSink{}
	n := r.Consume(sink)
	if n != 2 {
		t.Fatalf("processed %d TRBs, want 2", n)
	}
	if len(sink.portChanges) != 1 || sink.portChanges[0] != 7 {
		t.Fatalf("portChanges = %v, want [7]", sink.portChanges)
	}
}
