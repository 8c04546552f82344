// Package kerr defines the closed set of error kinds used throughout the
// kernel core and the machinery to chain an operation name onto them.
package kerr

import "fmt"

// Kind is one of the error kinds named by the driver's failure semantics.
// The set is closed: no caller outside this package introduces a new kind.
type Kind int

const (
	Full Kind = iota
	Empty
	NoEnoughMemory
	IndexOutOfRange
	HostControllerNotHalted
	InvalidSlotID
	PortNotConnected
	InvalidEndpointNumber
	TransferRingNotSet
	AlreadyAllocated
	NotImplemented
	InvalidDescriptor
	BufferTooSmall
	UnknownDevice
	NoCorrespondingSetupStage
	TransferFailed
	InvalidPhase
	UnknownXHCISpeedID
	NoWaiter
)

var names = map[Kind]string{
	Full:                      "full",
	Empty:                     "empty",
	NoEnoughMemory:            "no enough memory",
	IndexOutOfRange:           "index out of range",
	HostControllerNotHalted:   "host controller not halted",
	InvalidSlotID:             "invalid slot id",
	PortNotConnected:          "port not connected",
	InvalidEndpointNumber:     "invalid endpoint number",
	TransferRingNotSet:        "transfer ring not set",
	AlreadyAllocated:          "already allocated",
	NotImplemented:            "not implemented",
	InvalidDescriptor:         "invalid descriptor",
	BufferTooSmall:            "buffer too small",
	UnknownDevice:             "unknown device",
	NoCorrespondingSetupStage: "no corresponding setup stage",
	TransferFailed:            "transfer failed",
	InvalidPhase:              "invalid phase",
	UnknownXHCISpeedID:        "unknown xhci speed id",
	NoWaiter:                  "no waiter",
}

func (k Kind) String() string {
	if s, ok := names[k]; ok {
		return s
	}
	return "unknown error kind"
}

// Error wraps a Kind with the operation that produced it and, optionally,
// an underlying cause. Op should name the failing function, e.g.
// "frame.Allocate".
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error with no wrapped cause.
func New(op string, kind Kind) error {
	return &Error{Op: op, Kind: kind}
}

// Wrap builds an *Error carrying an underlying cause.
func Wrap(op string, kind Kind, err error) error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// Is reports whether err is a *Error of the given Kind, unwrapping through
// any chain of wrapped errors.
func Is(err error, kind Kind) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			if e.Kind == kind {
				return true
			}
			err = e.Err
			continue
		}
		type unwrapper interface{ Unwrap() error }
		u, ok := err.(unwrapper)
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
