// Package fault implements the pending-event record and precedence rules
// spec.md §4.6 describes: machine checks outrank hardware interrupts, which
// outrank software interrupts, which outrank ASTs, which outrank a
// synchronous exception raised by the instruction at the current PC; a
// pending event is replaced by one of higher precedence, or by one of equal
// precedence and strictly higher IPL.
package fault

import (
	"log/slog"
	"strings"

	"github.com/axpcore/ev6/internal/mmu"
	"github.com/axpcore/ev6/util/debug"
	"github.com/axpcore/ev6/util/hex"
)

// ExceptionClass selects the PAL argument-pack shape internal/pal builds
// for this event, per palLib_EV6/PalAugmentPackClass.h.
type ExceptionClass uint8

const (
	ClassNone ExceptionClass = iota
	ClassMachineCheck
	ClassHardwareInterrupt
	ClassSoftwareInterrupt
	ClassAST
	ClassMemoryFault // ITB/DTB miss or access violation
	ClassArithmetic  // integer overflow, floating trap
	ClassUnalignedAccess
	ClassOpcodeReserved // OPCDEC
	ClassCallPAL
	ClassBreakpoint // BPT, BUGCHK
	ClassFloatDisabled
)

// MMUOperation records what kind of memory access a memory fault was
// servicing, carried in the trap frame for the PAL memory-management
// fault handler.
type MMUOperation uint8

const (
	MMUNone MMUOperation = iota
	MMURead
	MMUWrite
	MMUExecute
)

// PendingEvent is the single in-flight fault/interrupt record a CPU carries,
// matching the field set confirmed by faultLib/AlphaTrapFrame.h: enough
// state to both select a PAL vector and build that vector's argument pack,
// without needing to re-derive anything from the instruction that caused it.
type PendingEvent struct {
	PC             uint64 // faulting instruction's PC (EXC_ADDR candidate)
	NextPC         uint64
	Instruction    uint32
	Mode           uint8 // cpustate.Mode, kept untyped to avoid an import cycle
	IPL            uint8
	ASN            uint16
	FaultVA        uint64
	FaultPA        uint64
	MMUOp          MMUOperation
	AccessSize     uint8
	FaultCause     mmu.FaultCause
	ExceptionClass ExceptionClass
	TLBHit         bool
	Writable       bool
	COW            bool
	GlobalPage     bool
	TrapID         uint64
	CycleStamp     uint64
}

// IsSafeToNest reports whether an event at incomingIPL may interrupt the
// PAL handler currently servicing an event at currentIPL — spec.md §4.6's
// rule, confirmed verbatim by AlphaTrapFrame.h's isSafeToNest.
func IsSafeToNest(incomingIPL, currentIPL uint8) bool {
	return incomingIPL > currentIPL
}

// Precedence returns a total order key for event selection: lower values
// win when more than one condition is pending simultaneously. Within a
// class, ties are broken by ExceptionClass itself having no further
// substructure in this core (spec.md does not model per-class sub-priority
// beyond the ladder below).
func (e ExceptionClass) Precedence() int {
	switch e {
	case ClassMachineCheck:
		return 0
	case ClassHardwareInterrupt:
		return 1
	case ClassSoftwareInterrupt:
		return 2
	case ClassAST:
		return 3
	default:
		return 4 // every synchronous exception class shares the lowest rank
	}
}

// Dispatcher holds the single pending event for one CPU and arbitrates
// replacement according to precedence and the nesting rule.
type Dispatcher struct {
	pending *PendingEvent
}

// NewDispatcher returns a dispatcher with no pending event.
func NewDispatcher() *Dispatcher { return &Dispatcher{} }

// Pending returns the currently latched event, or nil if none.
func (d *Dispatcher) Pending() *PendingEvent { return d.pending }

// Raise offers ev as a new pending event. It replaces any existing pending
// event of lower precedence (numerically higher Precedence()), or of equal
// precedence when ev's IPL is strictly higher than the current event's IPL
// (the nesting rule). It is a no-op, returning false, when the existing
// event outranks or cannot be safely nested under by ev.
func (d *Dispatcher) Raise(ev PendingEvent) bool {
	if d.pending == nil {
		d.pending = &ev
		return true
	}
	cur := d.pending
	if ev.ExceptionClass.Precedence() < cur.ExceptionClass.Precedence() {
		d.logPreempt(ev, cur)
		d.pending = &ev
		return true
	}
	if ev.ExceptionClass.Precedence() == cur.ExceptionClass.Precedence() && IsSafeToNest(ev.IPL, cur.IPL) {
		d.logPreempt(ev, cur)
		d.pending = &ev
		return true
	}
	return false
}

func (d *Dispatcher) logPreempt(incoming PendingEvent, cur *PendingEvent) {
	if !debug.Enabled(debug.IRQ) {
		return
	}
	var b strings.Builder
	hex.FormatQuad(&b, []uint64{incoming.PC})
	slog.Debug("fault: event preempts pending",
		"class", incoming.ExceptionClass,
		"ipl", incoming.IPL,
		"pc", strings.TrimSpace(b.String()),
		"preempted_class", cur.ExceptionClass,
		"preempted_ipl", cur.IPL)
}

// Clear drops the pending event, called once PAL entry has consumed it.
func (d *Dispatcher) Clear() { d.pending = nil }
