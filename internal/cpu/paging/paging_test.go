package paging

import "testing"

func TestIdentityMapEntryFlags(t *testing.T) {
	for i := 0; i < pdptEntries; i++ {
		for j := 0; j < entriesPerPD; j++ {
			phys := uint64(i)*1024*1024*1024 + uint64(j)*pageSize2M
			pd[i][j] = phys | flagPresent | flagWrite | flagHuge
		}
	}

	entry := EntryFor(0x1000)
	if entry&0xfff != 0x83 {
		t.Fatalf("PDE low bits = 0x%x, want 0x83", entry&0xfff)
	}
	if entry&^uint64(0xfff) != 0 {
		t.Fatalf("PDE for 0x1000 should point at the page starting at 0, got base 0x%x", entry&^uint64(0xfff))
	}
}
