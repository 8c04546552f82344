package task

// HeapStats is the minimal view a diagnostic sweep needs. cmd/kestrel's
// Stats func returns the zero value, since the heap package exposes no
// usage counters; tests supply fakes.
type HeapStats struct {
	Allocated uint64
	Free      uint64
}

// DiagSweep is a long-lived background task modeled on the teacher's
// gc_monitor.go: a periodic tick that logs a snapshot and reschedules
// itself, rather than a one-shot computation. Here it logs heap occupancy
// every Period ticks instead of driving a garbage collector (spec.md has
// no GC; the kernel heap never compacts), and the executor self-diagnostic
// line ("N tasks live") mirrors the teacher's schedtrace_monitor.go.
type DiagSweep struct {
	Period   uint64
	Manager  *Manager[struct{}]
	Executor *Executor
	Stats    func() HeapStats
	Log      func(allocated, free uint64, liveTasks int)

	next  uint64
	timer *Timer[struct{}]
}

// Poll implements Future; DiagSweep never completes — it is spawned once
// at boot and runs for the kernel's lifetime, so Poll always returns
// false after doing its periodic work.
func (d *DiagSweep) Poll(w *Waker) bool {
	if d.timer == nil {
		d.timer = NewTimer(d.Manager, d.next, struct{}{})
	}
	if !d.timer.Poll(w) {
		return false
	}

	if d.Log != nil {
		stats := HeapStats{}
		if d.Stats != nil {
			stats = d.Stats()
		}
		liveTasks := 0
		if d.Executor != nil {
			liveTasks = d.Executor.NumTasks()
		}
		d.Log(stats.Allocated, stats.Free, liveTasks)
	}

	d.next += d.Period
	d.timer = nil
	// Nothing else wakes this task once its timer has fired: re-poll it so
	// the next deadline gets registered with the manager.
	w.Wake()
	return false
}
