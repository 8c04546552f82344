package xhci

import "github.com/kestrel-os/kestrel/internal/klog"

// EventSink is the set of callbacks EventRing.Consume drives, one per TRB
// variant spec.md §4.I.3 names as reachable on the Event Ring. Unknown
// TRB types are logged and skipped rather than treated as an error, per
// spec.md §7's failure semantics.
type EventSink interface {
	OnPortStatusChange(e PortStatusChangeEvent)
	OnCommandCompletion(e CommandCompletionEvent)
	OnTransferEvent(e TransferEvent)
}

// EventRing is the consumer side of the Event Ring: a TRB table the
// controller writes into and this driver polls, paired with an Event
// Ring Segment Table entry the controller discovers the ring's extent
// through.
type EventRing struct {
	trbs       []TRB
	dequeue    int
	cycle      bool
	log        *klog.Logger
}

func NewEventRing(size int, log *klog.Logger) *EventRing {
	return &EventRing{
		trbs:  make([]TRB, size),
		cycle: true,
		log:   log,
	}
}

// Write is the controller-facing half: production code never calls this
// directly (hardware writes the Event Ring via DMA), but it lets tests
// drive Consume without a real controller.
func (r *EventRing) Write(index int, t TRB, cycle bool) {
	t.SetCycle(cycle)
	r.trbs[index] = t
}

// Consume dispatches every TRB from the current dequeue pointer up to
// (but not including) the first TRB whose cycle bit no longer matches
// the consumer's expected cycle — the standard xHCI "TRB not yet
// written" sentinel — advancing the pointer and toggling cycle on wrap.
// It returns the number of TRBs processed, for ERDP bookkeeping by the
// caller (which must preserve ERDP's low 4 bits, per spec.md §4.I.3).
func (r *EventRing) Consume(sink EventSink) int {
	processed := 0
	for {
		t := r.trbs[r.dequeue]
		if t.Cycle() != r.cycle {
			return processed
		}

		switch t.Type() {
		case TypePortStatusChangeEvent:
			sink.OnPortStatusChange(PortStatusChangeEvent{t})
		case TypeCommandCompletionEvent:
			sink.OnCommandCompletion(CommandCompletionEvent{t})
		case TypeTransferEvent:
			sink.OnTransferEvent(TransferEvent{t})
		default:
			if r.log != nil {
				r.log.Warnf("xhci: unknown event TRB type %d, skipping", t.Type())
			}
		}

		processed++
		r.dequeue++
		if r.dequeue == len(r.trbs) {
			r.dequeue = 0
			r.cycle = !r.cycle
		}
	}
}
