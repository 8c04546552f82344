// Package task implements the single-threaded cooperative executor spec.md
// §4.G/§5 describes. Go has no stackless coroutines, so Future here is a
// plain interface polled to completion; the waker-re-enqueues-a-task-id
// mechanic is grounded on the teacher's SimpleChannel (goroutine.go),
// generalized from one hardcoded channel into a per-task cached-waker map.
package task

import (
	"sync"

	"github.com/kestrel-os/kestrel/internal/asm/amd64"
)

// Poll is the result of polling a Future: Ready carries a value, Pending
// means the task should be polled again once its Waker fires.
type Poll[T any] struct {
	Ready bool
	Value T
}

// Future is a pinned, poll-driven computation. Implementations must not
// block; they register w for a future wake and return Pending instead.
type Future interface {
	Poll(w *Waker) (done bool)
}

// ID identifies a task within an Executor for the lifetime of that task.
type ID uint64

// Waker re-enqueues the task it was created for. Cached per task so
// repeated polls never allocate; ISRs hold onto one in a global and call
// Wake from interrupt context, never touching the executor's internal
// maps directly.
type Waker struct {
	id   ID
	exec *Executor
}

// Wake re-enqueues this waker's task. Safe to call from an interrupt
// handler: it only ever pushes onto the ready queue.
func (w *Waker) Wake() {
	if w == nil || w.exec == nil {
		return
	}
	w.exec.enqueue(w.id)
}

// Executor owns the {task id -> future} map and a queue of ready ids. It is
// not safe for concurrent Run calls — there is exactly one execution
// stream, matching spec.md §5.
type Executor struct {
	mu      sync.Mutex
	futures map[ID]Future
	wakers  map[ID]*Waker
	ready   []ID
	readyMu sync.Mutex
	nextID  ID

	// idle is invoked whenever the ready queue is empty. The kernel
	// installs the real enable-hlt-disable sequence (see SetHardwareIdle);
	// tests substitute a no-op or a queue-closing hook instead of
	// executing privileged instructions.
	idle func()
}

// New returns an empty Executor whose idle hook does nothing; the kernel
// entry point calls SetHardwareIdle once interrupts are live.
func New() *Executor {
	return &Executor{
		futures: make(map[ID]Future),
		wakers:  make(map[ID]*Waker),
		idle:    func() {},
	}
}

// SetHardwareIdle installs the real spec.md §4.G step-1 idle sequence:
// enable interrupts, halt, disable interrupts. Kept out of RunOnce's body
// directly so the executor's scheduling logic stays testable on hosted Go.
func (e *Executor) SetHardwareIdle() {
	e.idle = func() {
		amd64.Sti()
		amd64.Hlt()
		amd64.Cli()
	}
}

// SetIdleFunc installs an arbitrary idle hook, primarily for tests that
// need to observe or bound how many times the executor goes idle.
func (e *Executor) SetIdleFunc(f func()) {
	e.idle = f
}

// Spawn assigns a fresh id to future and enqueues it for its first poll.
func (e *Executor) Spawn(f Future) ID {
	e.mu.Lock()
	id := e.nextID
	e.nextID++
	e.futures[id] = f
	e.wakers[id] = &Waker{id: id, exec: e}
	e.mu.Unlock()

	e.enqueue(id)
	return id
}

func (e *Executor) enqueue(id ID) {
	e.readyMu.Lock()
	e.ready = append(e.ready, id)
	e.readyMu.Unlock()
}

func (e *Executor) pop() (ID, bool) {
	e.readyMu.Lock()
	defer e.readyMu.Unlock()
	if len(e.ready) == 0 {
		return 0, false
	}
	id := e.ready[0]
	e.ready = e.ready[1:]
	return id, true
}

// NumTasks reports how many futures are still live, for diagnostics.
func (e *Executor) NumTasks() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.futures)
}

// Run drains the ready queue forever, halting the CPU between empty polls
// as spec.md §4.G step 1 requires: enable interrupts, hlt, disable
// interrupts, try again — this prevents a wake that arrives between the
// empty check and the halt from being lost.
func (e *Executor) Run() {
	for {
		e.RunOnce()
	}
}

// RunOnce pops one ready task and polls it, or calls the idle hook once if
// the ready queue is empty; exported separately so tests can drive the
// executor without an infinite loop.
func (e *Executor) RunOnce() {
	id, ok := e.pop()
	if !ok {
		e.idle()
		return
	}

	e.mu.Lock()
	f, exists := e.futures[id]
	w := e.wakers[id]
	e.mu.Unlock()
	if !exists {
		return
	}

	if f.Poll(w) {
		e.mu.Lock()
		delete(e.futures, id)
		delete(e.wakers, id)
		e.mu.Unlock()
	}
}
