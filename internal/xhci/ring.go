package xhci

import "github.com/kestrel-os/kestrel/internal/kerr"

// Ring is a 64-byte-aligned TRB producer ring. A Link TRB occupies the
// final slot and is never handed back to a caller; Enqueue wraps the
// insertion index to 0 and toggles the ring's cycle state there, matching
// the real hardware's wrap semantics so a ring transparently becomes
// arbitrarily long without ever growing its backing array.
type Ring struct {
	trbs       []TRB
	enqueue    int
	cycle      bool
	physBase   uint64
	entrySize  uint64
}

// NewRing allocates a ring of capacity entries (including its trailing
// Link TRB slot) backed by memory starting at physBase, and seeds the
// Link TRB pointing back at physBase with the initial cycle bit clear
// (the producer starts with cycle=true, so the Link TRB it will
// eventually overwrite its own cycle bit on is written with cycle=false
// until the first wrap).
func NewRing(physBase uint64, capacity int) *Ring {
	r := &Ring{
		trbs:      make([]TRB, capacity),
		cycle:     true,
		physBase:  physBase,
		entrySize: 16,
	}
	link := LinkTRB(physBase)
	link.SetCycle(false)
	r.trbs[capacity-1] = link
	return r
}

// Len reports the ring's usable capacity, excluding the trailing Link
// slot.
func (r *Ring) Len() int { return len(r.trbs) - 1 }

// PhysAddr returns the physical address of the slot currently at the
// enqueue pointer — the value a TRB-pointer-keyed side map (e.g. the
// Setup-Stage map) should record before Enqueue advances the pointer.
func (r *Ring) PhysAddr() uint64 {
	return r.physBase + uint64(r.enqueue)*r.entrySize
}

// Cycle reports the ring's current producer cycle state.
func (r *Ring) Cycle() bool { return r.cycle }

// Enqueue writes t into the current slot with the ring's cycle bit, then
// advances the enqueue pointer, following the Link TRB and toggling cycle
// when the last usable slot is passed.
func (r *Ring) Enqueue(t TRB) (slotPhysAddr uint64, err error) {
	last := len(r.trbs) - 1
	if r.enqueue == last {
		return 0, kerr.New("Ring.Enqueue", kerr.Full)
	}
	slotPhysAddr = r.PhysAddr()
	t.SetCycle(r.cycle)
	r.trbs[r.enqueue] = t

	r.enqueue++
	if r.enqueue == last {
		link := r.trbs[last]
		link.SetCycle(r.cycle)
		r.trbs[last] = link
		r.enqueue = 0
		r.cycle = !r.cycle
	}
	return slotPhysAddr, nil
}

// Dequeue reads back an entry by index without touching the producer
// state. Tests use it to inspect TRBs, and Controller.commandTRBAt uses it
// to find the command a Command Completion Event refers to.
func (r *Ring) Dequeue(index int) (TRB, error) {
	if index < 0 || index >= len(r.trbs) {
		return TRB{}, kerr.New("Ring.Dequeue", kerr.IndexOutOfRange)
	}
	return r.trbs[index], nil
}
