// Package paging installs the identity-mapped page tree covering low
// physical memory. Grounded on
// original_source/kernel/src/paging.rs (PML4 -> single PDPT -> PD-per-GiB,
// 2 MiB pages, PS|RW|P flags), narrowed from the original's 64 GiB span to
// the 4 GiB spec.md §4.B calls for.
package paging

import (
	"unsafe"

	"github.com/kestrel-os/kestrel/internal/asm/amd64"
)

const (
	pageSize2M   = 512 * 4096
	entriesPerPD = 512
	pdptEntries  = 4 // 4 GiB / 1 GiB per PDPT entry

	flagPresent = 1 << 0
	flagWrite   = 1 << 1
	flagHuge    = 1 << 7 // PS bit: this PD entry maps a 2 MiB page directly
)

type table [512]uint64

var (
	pml4 table
	pdpt table
	pd   [pdptEntries]table
)

// SetupIdentityMap builds a PML4 -> PDPT -> PD tree identity-mapping
// [0, 4 GiB) with 2 MiB pages and installs it via CR3. Scenario 1 (spec.md
// §8): after this call, the PDE covering 0x1000 has low 12 bits 0x83
// (P|RW|PS).
func SetupIdentityMap() {
	for i := 0; i < pdptEntries; i++ {
		for j := 0; j < entriesPerPD; j++ {
			phys := uint64(i)*1024*1024*1024 + uint64(j)*pageSize2M
			pd[i][j] = phys | flagPresent | flagWrite | flagHuge
		}
		pdpt[i] = uint64(uintptr(unsafe.Pointer(&pd[i]))) | flagPresent | flagWrite
	}
	pml4[0] = uint64(uintptr(unsafe.Pointer(&pdpt))) | flagPresent | flagWrite

	amd64.WriteCR3(uintptr(unsafe.Pointer(&pml4)))
}

// EntryFor returns the raw PD entry covering the given physical address,
// for diagnostics and testing; it does not touch CR3.
func EntryFor(phys uint64) uint64 {
	pdptIdx := phys / (1024 * 1024 * 1024)
	pdIdx := (phys / pageSize2M) % entriesPerPD
	return pd[pdptIdx][pdIdx]
}
