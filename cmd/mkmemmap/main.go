// Command mkmemmap emits a synthetic UEFI memory map in the wire layout
// internal/bootcfg decodes, standing in for the real GetMemoryMap() call a
// UEFI firmware would make. Grounded on tools/imageconvert's "flag-driven
// single-purpose binary writer" shape; the map itself is a fixed two-entry
// layout (loader-reserved pages at address 0, then conventional RAM capped
// at 2GiB) so cmd/qrun scenarios get a stable, reproducible boot
// configuration.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"os"

	"github.com/kestrel-os/kestrel/internal/bootcfg"
)

const pageSize = 4096

func main() {
	var (
		ramMiB = flag.Uint64("ram-mib", 128, "total RAM in MiB, matching the -m flag passed to qemu-system-x86_64")
		out    = flag.String("out", "memmap.bin", "output path for the encoded memory map")
	)
	flag.Parse()

	descs := build(*ramMiB * 1024 * 1024)

	f, err := os.Create(*out)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mkmemmap: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	if err := binary.Write(f, binary.LittleEndian, uint64(len(descs))); err != nil {
		fmt.Fprintf(os.Stderr, "mkmemmap: writing entry count: %v\n", err)
		os.Exit(1)
	}
	for _, d := range descs {
		// bootcfg.MemoryDescriptor has 4 bytes of padding after Type in
		// memory; binary.Write skips implicit padding, so spell it out.
		wire := struct {
			PhysStart  uint64
			PageCount  uint64
			Type       bootcfg.MemoryType
			_          uint32
			Attributes uint64
		}{PhysStart: d.PhysStart, PageCount: d.PageCount, Type: d.Type, Attributes: d.Attributes}
		if err := binary.Write(f, binary.LittleEndian, wire); err != nil {
			fmt.Fprintf(os.Stderr, "mkmemmap: writing descriptor: %v\n", err)
			os.Exit(1)
		}
	}

	fmt.Printf("mkmemmap: wrote %d descriptors covering %d MiB to %s\n", len(descs), *ramMiB, *out)
}

// build lays out two descriptors: the first 64 pages as loader data, where
// the loader and its boot-configuration block live, and the rest of RAM,
// up to 2GiB, as conventional. It does not model the legacy 640KiB hole
// and reports no RAM above 2GiB.
func build(totalBytes uint64) []bootcfg.MemoryDescriptor {
	const (
		lowRAMEnd      = 0x80000000 // cap conventional low RAM reporting at 2GiB
		loaderReserved = 64 * pageSize
	)

	ramEnd := totalBytes
	if ramEnd > lowRAMEnd {
		ramEnd = lowRAMEnd
	}

	return []bootcfg.MemoryDescriptor{
		{
			PhysStart: 0,
			PageCount: loaderReserved / pageSize,
			Type:      bootcfg.MemTypeLoaderData,
		},
		{
			PhysStart: loaderReserved,
			PageCount: (ramEnd - loaderReserved) / pageSize,
			Type:      bootcfg.MemTypeConventional,
		},
	}
}
