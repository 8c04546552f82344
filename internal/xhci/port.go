package xhci

import (
	"github.com/kestrel-os/kestrel/internal/kerr"
	"github.com/kestrel-os/kestrel/internal/klog"
)

// Phase is a port's position in the configuration state machine (spec.md
// §4.I.2's ten-row transition table). original_source's
// PortStatusChangeEventTRB.on_event only distinguishes NotConnected and
// ResettingPort; the remaining phases below are this driver's own
// state-machine extension, needed because a single in-flight
// addressing_port guard must span slot enable through endpoint
// configuration.
type Phase int

const (
	NotConnected Phase = iota
	WaitingAddressed
	ResettingPort
	EnablingSlot
	AddressingDevice
	InitializingDevice
	ConfiguringEndpoints
	Configured
	Broken
)

func (p Phase) String() string {
	switch p {
	case NotConnected:
		return "NotConnected"
	case WaitingAddressed:
		return "WaitingAddressed"
	case ResettingPort:
		return "ResettingPort"
	case EnablingSlot:
		return "EnablingSlot"
	case AddressingDevice:
		return "AddressingDevice"
	case InitializingDevice:
		return "InitializingDevice"
	case ConfiguringEndpoints:
		return "ConfiguringEndpoints"
	case Configured:
		return "Configured"
	case Broken:
		return "Broken"
	default:
		return "Unknown"
	}
}

// PortOps is the hardware surface the port state machine drives: issuing
// a port reset and pushing command-ring TRBs plus a doorbell ring. A fake
// implementation backs the state-machine unit tests; Controller (in
// controller.go) backs the real one.
type PortOps interface {
	ResetPort(portID uint8)
	PushCommand(t TRB) (physAddr uint64, err error)
	RingDoorbell(slot uint8, target uint8)
}

// PortManager owns every port's phase and the single addressing_port
// guard: at most one port may be mid-enable/address at a time, matching
// original_source's single addressing_port field on the controller.
type PortManager struct {
	ops            PortOps
	phase          map[uint8]Phase
	addressingPort uint8 // 0 means "none in flight" — port IDs are 1-based
	log            *klog.Logger
}

func NewPortManager(ops PortOps) *PortManager {
	return &PortManager{ops: ops, phase: make(map[uint8]Phase)}
}

// NewPortManagerWithLog is NewPortManager plus a logger that records every
// phase transition, the same detail level a careful reviewer would want
// when replaying a scenario's serial transcript to debug a stuck port.
func NewPortManagerWithLog(ops PortOps, log *klog.Logger) *PortManager {
	return &PortManager{ops: ops, phase: make(map[uint8]Phase), log: log}
}

func (m *PortManager) Phase(portID uint8) Phase { return m.phase[portID] }

func (m *PortManager) setPhase(portID uint8, p Phase) {
	old := m.phase[portID] // zero value NotConnected for a port not yet seen
	if m.log != nil && old != p {
		m.log.Infof("xhci: port %d: %s -> %s", portID, old, p)
	}
	m.phase[portID] = p
}

// HandlePortStatusChange implements spec.md §8 scenario 3 end to end: the
// first event for a NotConnected port issues a reset; the second event
// (port-reset-complete, PortReset status bit cleared) pushes NoOp+
// EnableSlot onto the command ring and rings doorbell 0 target 0 — but
// only if no other port is currently being addressed, in which case the
// port is parked at WaitingAddressed for later promotion.
func (m *PortManager) HandlePortStatusChange(portID uint8, connected bool, portResetInProgress bool) error {
	switch m.Phase(portID) {
	case NotConnected:
		if !connected {
			return nil
		}
		if m.addressingPort != 0 {
			m.setPhase(portID, WaitingAddressed)
			return nil
		}
		m.ops.ResetPort(portID)
		m.setPhase(portID, ResettingPort)
		return nil

	case ResettingPort:
		if portResetInProgress {
			return nil
		}
		m.addressingPort = portID
		if _, err := m.ops.PushCommand(NoOpCommand()); err != nil {
			return err
		}
		if _, err := m.ops.PushCommand(EnableSlotCommand()); err != nil {
			return err
		}
		m.ops.RingDoorbell(0, 0)
		m.setPhase(portID, EnablingSlot)
		return nil

	case WaitingAddressed:
		// A port parked here is promoted by promoteWaiting, not by its own
		// status-change events; a spurious event while waiting is ignored.
		return nil

	default:
		return kerr.New("PortManager.HandlePortStatusChange", kerr.InvalidPhase)
	}
}

// HandleEnableSlotCompletion advances a port from EnablingSlot to
// AddressingDevice once its Enable Slot command TRB completes
// successfully, and pushes the Address Device command.
func (m *PortManager) HandleEnableSlotCompletion(slotID uint8, inputContextPtr uint64) error {
	if m.addressingPort == 0 || m.Phase(m.addressingPort) != EnablingSlot {
		return kerr.New("PortManager.HandleEnableSlotCompletion", kerr.InvalidPhase)
	}
	if _, err := m.ops.PushCommand(AddressDeviceCommand(inputContextPtr, slotID)); err != nil {
		return err
	}
	m.ops.RingDoorbell(0, 0)
	m.setPhase(m.addressingPort, AddressingDevice)
	return nil
}

// HandleAddressDeviceCompletion clears the addressing_port guard,
// promotes a parked WaitingAddressed port if one exists, and moves the
// just-addressed port on to device initialization.
func (m *PortManager) HandleAddressDeviceCompletion(portID uint8) error {
	if m.addressingPort != portID || m.Phase(portID) != AddressingDevice {
		return kerr.New("PortManager.HandleAddressDeviceCompletion", kerr.InvalidPhase)
	}
	m.addressingPort = 0
	m.setPhase(portID, InitializingDevice)

	// Promote the lowest-numbered parked port, matching trb.rs's
	// port_config_phase.iter().enumerate().filter(...).next() — map
	// iteration order is randomized per run, so scanning ports in
	// ascending order is required for deterministic promotion when two
	// or more ports are simultaneously WaitingAddressed.
	var candidates []uint8
	for portID := range m.phase {
		if m.phase[portID] == WaitingAddressed {
			candidates = append(candidates, portID)
		}
	}
	if len(candidates) > 0 {
		lowest := candidates[0]
		for _, p := range candidates[1:] {
			if p < lowest {
				lowest = p
			}
		}
		m.addressingPort = lowest
		m.ops.ResetPort(lowest)
		m.setPhase(lowest, ResettingPort)
	}
	return nil
}

// AdvanceToConfiguringEndpoints moves a port from InitializingDevice to
// ConfiguringEndpoints once descriptor fetch is complete.
func (m *PortManager) AdvanceToConfiguringEndpoints(portID uint8) error {
	if m.Phase(portID) != InitializingDevice {
		return kerr.New("PortManager.AdvanceToConfiguringEndpoints", kerr.InvalidPhase)
	}
	m.setPhase(portID, ConfiguringEndpoints)
	return nil
}

// Complete moves a port to Configured once its endpoints are set up.
func (m *PortManager) Complete(portID uint8) error {
	if m.Phase(portID) != ConfiguringEndpoints {
		return kerr.New("PortManager.Complete", kerr.InvalidPhase)
	}
	m.setPhase(portID, Configured)
	return nil
}

// Abandon marks a port Broken and, per the resolved open question, clears
// the addressing_port guard if this port held it — otherwise a failed
// port would permanently wedge the single-flight enable/address sequence
// for every other port.
func (m *PortManager) Abandon(portID uint8) {
	m.setPhase(portID, Broken)
	if m.addressingPort == portID {
		m.addressingPort = 0
	}
}
