package frame_test

import (
	"testing"

	"github.com/kestrel-os/kestrel/internal/kerr"
	"github.com/kestrel-os/kestrel/internal/mm/frame"
)

func TestFirstFitScenario(t *testing.T) {
	// range=[1, 1000), all frames free: allocate(4)=1, allocate(2)=5,
	// free(1,4), allocate(1)=1.
	b := frame.New(1, 1000)

	p, err := b.Allocate(4)
	if err != nil || p != 1 {
		t.Fatalf("Allocate(4) = %d, %v, want 1, nil", p, err)
	}
	p, err = b.Allocate(2)
	if err != nil || p != 5 {
		t.Fatalf("Allocate(2) = %d, %v, want 5, nil", p, err)
	}
	if err := b.Free(1, 4); err != nil {
		t.Fatalf("Free(1,4) error = %v", err)
	}
	p, err = b.Allocate(1)
	if err != nil || p != 1 {
		t.Fatalf("Allocate(1) = %d, %v, want 1, nil", p, err)
	}
}

func TestAllocateNoBacktrack(t *testing.T) {
	b := frame.New(0, 10)
	// Allocate frames 0..3, then free 0..2 so frame 3 stays allocated alone.
	// A run of 4 must skip past 3, landing at 4..7, never retrying the
	// partial run at 0..2.
	if _, err := b.Allocate(4); err != nil {
		t.Fatalf("Allocate(4) error = %v", err)
	}
	if err := b.Free(0, 3); err != nil {
		t.Fatalf("Free(0,3) error = %v", err)
	}
	p, err := b.Allocate(4)
	if err != nil || p != 4 {
		t.Fatalf("Allocate(4) = %d, %v, want 4, nil", p, err)
	}
}

func TestAllocateExhausted(t *testing.T) {
	b := frame.New(0, 4)
	if _, err := b.Allocate(4); err != nil {
		t.Fatalf("Allocate(4) error = %v", err)
	}
	_, err := b.Allocate(1)
	if !kerr.Is(err, kerr.NoEnoughMemory) {
		t.Fatalf("Allocate() error = %v, want NoEnoughMemory", err)
	}
}

func TestFreeOutOfRange(t *testing.T) {
	b := frame.New(1, 10)
	err := b.Free(0, 1)
	if !kerr.Is(err, kerr.IndexOutOfRange) {
		t.Fatalf("Free() error = %v, want IndexOutOfRange", err)
	}
}

func TestAllocateFreeInvariant(t *testing.T) {
	b := frame.New(0, 100)
	p, err := b.Allocate(10)
	if err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}
	if err := b.Free(p, 10); err != nil {
		t.Fatalf("Free() error = %v", err)
	}
	// Same run must be available again.
	p2, err := b.Allocate(10)
	if err != nil || p2 != p {
		t.Fatalf("Allocate() after Free = %d, %v, want %d, nil", p2, err, p)
	}
}

func TestSeed(t *testing.T) {
	descriptors := []frame.MemoryDescriptor{
		{PhysStart: 0, PageCount: 1, Available: true},
		{PhysStart: frame.Size, PageCount: 9, Available: true},
	}
	b := frame.Seed(descriptors)
	// Frame 0 is always reserved regardless of the map.
	if err := b.Free(0, 1); err == nil {
		t.Fatalf("expected frame 0 to be out of the usable range")
	}
	p, err := b.Allocate(1)
	if err != nil || p != 1 {
		t.Fatalf("Allocate(1) = %d, %v, want 1, nil", p, err)
	}
}
