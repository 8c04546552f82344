package amd64

// XHCIHandler and TimerHandler are called from the raw interrupt stubs
// below, the same assembly-calls-an-exported-Go-function split the
// teacher's exceptions.go uses for its ExceptionHandler/HandleSyscall
// entry points. The kernel entry point assigns these once during boot
// wiring; nil means the vector fired before its owner was ready, which
// dispatchXHCI/dispatchTimer treat as a no-op rather than a fault.
var (
	XHCIHandler  func()
	TimerHandler func()
)

//go:nosplit
func dispatchXHCI() {
	if XHCIHandler != nil {
		XHCIHandler()
	}
}

//go:nosplit
func dispatchTimer() {
	if TimerHandler != nil {
		TimerHandler()
	}
}

// XHCIStubAddr and TimerStubAddr return the entry address of the raw
// interrupt-gate stubs in isr_amd64.s, suitable for programming directly
// into an IDT gate's offset fields.
func XHCIStubAddr() uintptr

func TimerStubAddr() uintptr
