// Command kestrel is the freestanding kernel binary: boot.s (external,
// shipped by the loader build) jumps to KernelMain with RBP=0, a fresh
// 8MiB stack, and interrupts disabled, and never returns — the same
// "boot.s calls KernelMain directly, main() exists only so the compiler
// doesn't discard it" shape as the teacher's kernel.go.
package main

import (
	"unsafe"

	"github.com/kestrel-os/kestrel/internal/asm/amd64"
	"github.com/kestrel-os/kestrel/internal/bootcfg"
	"github.com/kestrel-os/kestrel/internal/console"
	"github.com/kestrel-os/kestrel/internal/cpu/apic"
	"github.com/kestrel-os/kestrel/internal/cpu/gdt"
	"github.com/kestrel-os/kestrel/internal/cpu/idt"
	"github.com/kestrel-os/kestrel/internal/cpu/paging"
	"github.com/kestrel-os/kestrel/internal/gfx"
	"github.com/kestrel-os/kestrel/internal/hid"
	"github.com/kestrel-os/kestrel/internal/kerr"
	"github.com/kestrel-os/kestrel/internal/klog"
	"github.com/kestrel-os/kestrel/internal/kpanic"
	"github.com/kestrel-os/kestrel/internal/mm/frame"
	"github.com/kestrel-os/kestrel/internal/mm/heap"
	"github.com/kestrel-os/kestrel/internal/pci"
	"github.com/kestrel-os/kestrel/internal/task"
	"github.com/kestrel-os/kestrel/internal/xhci"
)

// Window IDs in the compositor's Z-stack, lowest first: the console sits
// behind the cursor so the cursor is always the topmost sprite.
const (
	consoleWindowID gfx.WindowID = 1
	cursorWindowID  gfx.WindowID = 2
)

var consoleFG = [3]uint8{0xC0, 0xC0, 0xC0}
var consoleBG = [3]uint8{0x00, 0x00, 0x00}

// xhciClassCode is the PCI class/subclass/prog-if triple for a USB3/xHCI
// host controller (class 0Ch, subclass 03h, prog-if 30h).
const xhciClassCode = 0x0C0330

// heapBase/heapSize fix the kernel heap's backing region at 16 MiB, the
// same "well above the stack, good enough for bring-up" call the teacher's
// KernelMain makes for its own heap before a real frame allocator existed.
// The frame bitmap frame.Seed builds does not mark this range allocated.
const (
	heapBase = 0x01000000
	heapSize = 16 * 1024 * 1024
)

var log = klog.New(klog.LevelDebug)

// KernelMain is the entry point boot.s calls; it never returns.
//
//go:nosplit
//go:noinline
func KernelMain(bootCfgPtr unsafe.Pointer) {
	log.Info("kestrel: boot")

	cfg, err := bootcfg.Decode(bootCfgPtr)
	if err != nil {
		fail("bootcfg.Decode", err)
	}

	kpanic.Init(uint64(cfg.KernelBase), cfg.SymtabPtr, int(cfg.SymtabCount), cfg.StrtabPtr)

	gdt.Install()
	paging.SetupIdentityMap()
	log.Info("kestrel: GDT installed, identity map active")

	descriptors := make([]frame.MemoryDescriptor, len(cfg.MemoryMap))
	for i, d := range cfg.MemoryMap {
		descriptors[i] = frame.MemoryDescriptor{
			PhysStart: d.PhysStart,
			PageCount: d.PageCount,
			Available: d.Type == bootcfg.MemTypeConventional ||
				d.Type == bootcfg.MemTypeBootServicesCode ||
				d.Type == bootcfg.MemTypeBootServicesData,
		}
	}
	frames := frame.Seed(descriptors)
	log.Info("kestrel: frame allocator seeded")

	h := heap.Init(unsafe.Pointer(uintptr(heapBase)), heapSize)
	log.Info("kestrel: heap online")

	fb := &gfx.Framebuffer{
		Base:              unsafe.Pointer(uintptr(cfg.Framebuffer.BasePtr)),
		PixelsPerScanLine: cfg.Framebuffer.PixelsPerScanLine,
		Width:             cfg.Framebuffer.HorizontalRes,
		Height:            cfg.Framebuffer.VerticalRes,
		Format:            gfx.Format(cfg.Framebuffer.PixelFormat),
	}
	wm := gfx.NewWindowManager(fb)

	consoleWin := gfx.NewWindow(consoleWindowID, gfx.Rect{X: 0, Y: 0, W: int(fb.Width), H: int(fb.Height)}, false, false, "")
	wm.AddWindow(consoleWin)
	con := console.New(wm, consoleWin, consoleFG, consoleBG)
	log.SetSink(con)

	cursorWin := gfx.NewWindow(cursorWindowID, gfx.Rect{X: int(fb.Width) / 2, Y: int(fb.Height) / 2, W: 1, H: 1}, false, false, "")
	wm.AddWindow(cursorWin)

	keyboard := hid.NewKeyboardDispatcher(con)
	mouse := hid.NewMouseDispatcher(wm, cursorWindowID, int(fb.Width), int(fb.Height))

	log.Info("kestrel: compositor online")

	idt.InstallDefaults(amd64.XHCIStubAddr(), amd64.TimerStubAddr())

	apic.Init(lapicMMIOBase())
	const pmTimerPort = 0x608 // ACPI FADT PM_TMR_BLK, typical QEMU q35 value
	freq := apic.Calibrate(pmTimerPort, idt.VectorTimer)
	log.Infof("kestrel: LAPIC timer calibrated to %d Hz", freq)

	executor := task.New()
	timers := task.NewManager[struct{}](apic.Tick)
	apic.SetWaker(timers)
	amd64.TimerHandler = apic.HandleInterrupt

	devices := pci.ScanAllBus(pci.PortAccessor{})
	log.Infof("kestrel: PCI scan found %d devices", len(devices))

	if ctrl := bringUpXHCI(devices, h); ctrl != nil {
		ctrl.KeyboardHandler = keyboard.Handle
		ctrl.MouseHandler = mouse.Handle
		amd64.XHCIHandler = ctrl.PollEvents
	}

	diag := &task.DiagSweep{
		Period:   100,
		Manager:  timers,
		Executor: executor,
		Stats: func() task.HeapStats {
			return task.HeapStats{}
		},
		Log: func(allocated, free uint64, liveTasks int) {
			log.Debugf("diag: heap %d/%d bytes, %d tasks live", allocated, free, liveTasks)
		},
	}
	executor.Spawn(diag)

	_ = frames

	executor.SetHardwareIdle()
	log.Info("kestrel: entering executor run loop")
	executor.Run()
}

// bringUpXHCI locates the first xHCI host controller the PCI scan found,
// maps its MMIO BAR, and runs the bring-up sequence. A boot with no USB3
// controller (e.g. a minimal QEMU machine) logs and continues without
// one rather than failing the whole boot.
func bringUpXHCI(devices []pci.Device, h *heap.Heap) *xhci.Controller {
	acc := pci.PortAccessor{}
	for _, d := range devices {
		if d.ClassCode != xhciClassCode {
			continue
		}

		bar := pci.ReadBAR(acc, d, 0) &^ 0xF
		mmio := xhci.NewRealMMIO(uintptr(bar))
		ctrl := xhci.New(mmio, h, log)

		const ringBytes = 256 * 16
		dcbaa, err := h.AllocAligned(8*256, 64)
		if err != nil {
			log.Errorf("xhci: DCBAA allocation failed: %v", err)
			return nil
		}
		cmdRing, err := h.AllocAligned(ringBytes, 64)
		if err != nil {
			log.Errorf("xhci: command ring allocation failed: %v", err)
			return nil
		}
		evtRing, err := h.AllocAligned(ringBytes, 64)
		if err != nil {
			log.Errorf("xhci: event ring allocation failed: %v", err)
			return nil
		}

		const numRootPorts = 8
		if err := ctrl.Init(
			uint64(uintptr(dcbaa)),
			uint64(uintptr(cmdRing)),
			uint64(uintptr(evtRing)),
			ctrl,
			numRootPorts,
		); err != nil {
			log.Errorf("xhci: Init failed: %v", err)
			return nil
		}

		log.Infof("kestrel: xHCI controller online at bus %d dev %d fn %d", d.Bus, d.Device, d.Function)
		return ctrl
	}
	log.Info("kestrel: no xHCI controller found")
	return nil
}

func fail(op string, err error) {
	log.Errorf("fatal: %s: %v", op, err)
	var rbp uintptr
	kpanic.Handle(log, nil, rbp, op+": "+errString(err))
}

func errString(err error) string {
	if e, ok := err.(*kerr.Error); ok {
		return e.Error()
	}
	return err.Error()
}

// lapicMMIOBase returns the LAPIC's MMIO base, normally read from the
// IA32_APIC_BASE MSR; left as a function so it's one line to swap for a
// value read out of the ACPI MADT once that parser exists.
func lapicMMIOBase() uintptr {
	const apicBaseMSR = 0x1B
	raw := amd64.Rdmsr(apicBaseMSR)
	return uintptr(raw &^ 0xFFF)
}

func main() {
	// boot.s calls KernelMain directly with the loader's boot-configuration
	// pointer; main() exists only so the linker keeps KernelMain reachable
	// when this package is built as part of a freestanding image.
	for {
	}
}
