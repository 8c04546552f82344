// Command mkimage assembles a raw disk image for QEMU: a 16-byte header
// ("KESTIMG0" plus the kernel and memory-map offsets) followed by the UEFI
// loader stub, the freestanding kernel ELF, the encoded memory map
// mkmemmap produced, and the kernel's own ELF symtab/strtab (so a panic
// can resolve symbols), each copied to a fixed offset. The image is a flat
// layout, not a FAT-formatted EFI System Partition.
// Grounded directly on tools/imageconvert's single-purpose "read inputs,
// write a fixed binary layout" shape, generalized from one image to four
// concatenated blobs at fixed, page-aligned offsets; golang.org/x/sys/unix
// backs the raw file-size/truncate syscalls the teacher's imageconvert
// left to the standard library's os.File, since a disk image's size must
// be fixed up front rather than grown by appends.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

const (
	sectorSize   = 512
	imageSectors = 65536 // 32MiB image, comfortably larger than the pieces below

	loaderOffset = 1 * 1024 * 1024
	kernelOffset = 4 * 1024 * 1024
	memmapOffset = 28 * 1024 * 1024
	symtabOffset = 30 * 1024 * 1024
)

func main() {
	var (
		loaderPath = flag.String("loader", "", "path to the UEFI loader stub binary")
		kernelPath = flag.String("kernel", "", "path to the cmd/kestrel ELF binary")
		memmapPath = flag.String("memmap", "", "path to a mkmemmap-produced memory map")
		symtabPath = flag.String("symtab", "", "path to the kernel's extracted ELF symtab+strtab blob")
		outPath    = flag.String("out", "kestrel.img", "output disk image path")
	)
	flag.Parse()

	if *loaderPath == "" || *kernelPath == "" {
		fmt.Fprintln(os.Stderr, "mkimage: -loader and -kernel are required")
		os.Exit(1)
	}

	out, err := os.Create(*outPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mkimage: %v\n", err)
		os.Exit(1)
	}
	defer out.Close()

	if err := unix.Ftruncate(int(out.Fd()), int64(imageSectors*sectorSize)); err != nil {
		fmt.Fprintf(os.Stderr, "mkimage: ftruncate: %v\n", err)
		os.Exit(1)
	}

	placements := []struct {
		label  string
		path   string
		offset int64
	}{
		{"loader", *loaderPath, loaderOffset},
		{"kernel", *kernelPath, kernelOffset},
		{"memmap", *memmapPath, memmapOffset},
		{"symtab", *symtabPath, symtabOffset},
	}

	var header [16]byte
	copy(header[:8], "KESTIMG0")
	binary.LittleEndian.PutUint32(header[8:12], uint32(kernelOffset))
	binary.LittleEndian.PutUint32(header[12:16], uint32(memmapOffset))
	if _, err := out.WriteAt(header[:], 0); err != nil {
		fmt.Fprintf(os.Stderr, "mkimage: writing header: %v\n", err)
		os.Exit(1)
	}

	for _, p := range placements {
		if p.path == "" {
			continue
		}
		n, err := copyFileAt(out, p.path, p.offset)
		if err != nil {
			fmt.Fprintf(os.Stderr, "mkimage: placing %s: %v\n", p.label, err)
			os.Exit(1)
		}
		fmt.Printf("mkimage: placed %s (%d bytes) at offset 0x%x\n", p.label, n, p.offset)
	}

	fmt.Printf("mkimage: wrote %s (%d bytes)\n", *outPath, imageSectors*sectorSize)
}

func copyFileAt(out *os.File, path string, offset int64) (int64, error) {
	in, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	return io.Copy(io.NewOffsetWriter(out, offset), in)
}
