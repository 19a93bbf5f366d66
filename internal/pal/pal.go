// Package pal implements the PAL_BASE-relative vector table and the
// per-exception-class argument pack builder, generalizing the teacher's
// fixed low-memory PSW-slot dispatch in cpu_system.go's opSVC/opLPSW to
// Alpha's PALcode entry convention.
package pal

import "github.com/axpcore/ev6/internal/fault"

// VectorOffset is a PAL_BASE-relative byte offset. Every standard OSF/Tru64
// PALcode entry point lives at a fixed offset from PAL_BASE; CALL_PAL's own
// target additionally depends on its 26-bit function code (see
// CallPALOffset).
type VectorOffset uint64

const (
	VectorReset        VectorOffset = 0x0000
	VectorMachineCheck VectorOffset = 0x0100
	VectorArithmetic   VectorOffset = 0x0200
	VectorInterrupt    VectorOffset = 0x0300
	VectorDTBMissSingle VectorOffset = 0x0400
	VectorITBMiss      VectorOffset = 0x0500
	VectorDTBMissDouble VectorOffset = 0x0600
	VectorUnaligned    VectorOffset = 0x0700
	VectorDTBFault     VectorOffset = 0x0800
	VectorOpcodeDec    VectorOffset = 0x0900
	VectorFloatDisabled VectorOffset = 0x0A00
	VectorCallPALBase  VectorOffset = 0x2000 // + (function-derived offset)
)

// VectorEntry describes one PAL entry point: its PAL_BASE-relative offset
// and a short label (ArgDesc) naming the kind of argument pack it receives,
// confirmed by palLib_EV6/PalAugmentPackClass.h alongside the five-register
// pack itself.
type VectorEntry struct {
	Offset  VectorOffset
	ArgDesc string
}

// ArgumentPack is the argument-register set CALL_PAL/exception entry
// delivers in R16-R20 (a0-a4), plus the resolved vector the PAL dispatcher
// jumped to — the original's PALAugmentPackClass additionally threads the
// resolved VectorEntry through the pack rather than leaving the callee to
// re-derive it.
type ArgumentPack struct {
	Regs   [5]uint64
	Vector VectorEntry
}

// CallPALOffset derives a CALL_PAL's target vector from its 26-bit function
// code: function codes below 0x40 are the privileged (kernel-mode-only)
// set and land in the low half of the CALL_PAL vector window; function
// codes at or above 0x40 are the unprivileged set and land in the high
// half, matching the OSF/Tru64 PALcode convention.
func CallPALOffset(function uint32) VectorOffset {
	if function < 0x40 {
		return VectorCallPALBase + VectorOffset(function)*0x40
	}
	return VectorCallPALBase + 0x1000 + VectorOffset(function-0x40)*0x40
}

// Resolve maps a PendingEvent to the VectorEntry PALcode must transfer
// control to.
func Resolve(ev fault.PendingEvent, callPALFunction uint32) VectorEntry {
	switch ev.ExceptionClass {
	case fault.ClassMachineCheck:
		return VectorEntry{Offset: VectorMachineCheck, ArgDesc: "machine-check"}
	case fault.ClassHardwareInterrupt, fault.ClassSoftwareInterrupt:
		return VectorEntry{Offset: VectorInterrupt, ArgDesc: "interrupt"}
	case fault.ClassAST:
		return VectorEntry{Offset: VectorInterrupt, ArgDesc: "ast"}
	case fault.ClassMemoryFault:
		return resolveMemoryFaultVector(ev)
	case fault.ClassArithmetic:
		return VectorEntry{Offset: VectorArithmetic, ArgDesc: "arithmetic"}
	case fault.ClassUnalignedAccess:
		return VectorEntry{Offset: VectorUnaligned, ArgDesc: "unaligned"}
	case fault.ClassOpcodeReserved:
		return VectorEntry{Offset: VectorOpcodeDec, ArgDesc: "opcdec"}
	case fault.ClassFloatDisabled:
		return VectorEntry{Offset: VectorFloatDisabled, ArgDesc: "fen"}
	case fault.ClassCallPAL:
		return VectorEntry{Offset: CallPALOffset(callPALFunction), ArgDesc: "call_pal"}
	default:
		return VectorEntry{Offset: VectorOpcodeDec, ArgDesc: "reserved"}
	}
}

func resolveMemoryFaultVector(ev fault.PendingEvent) VectorEntry {
	switch ev.MMUOp {
	case fault.MMUExecute:
		return VectorEntry{Offset: VectorITBMiss, ArgDesc: "itb-miss"}
	default:
		if ev.TLBHit {
			return VectorEntry{Offset: VectorDTBFault, ArgDesc: "dtb-fault"}
		}
		return VectorEntry{Offset: VectorDTBMissSingle, ArgDesc: "dtb-miss"}
	}
}

// BuildArgumentPack constructs the five-register argument pack for ev,
// dispatching by ExceptionClass exactly as palLib_EV6/PalAugmentPackClass.h
// does (buildMemoryFaultArgs / buildASTArgs / buildArithmeticArgs / the
// generic interrupt builder).
func BuildArgumentPack(ev fault.PendingEvent, callPALFunction uint32, excSum uint64) ArgumentPack {
	vec := Resolve(ev, callPALFunction)
	pack := ArgumentPack{Vector: vec}
	switch ev.ExceptionClass {
	case fault.ClassMemoryFault:
		pack.Regs = buildMemoryFaultArgs(ev)
	case fault.ClassAST:
		pack.Regs = buildASTArgs(ev)
	case fault.ClassArithmetic:
		pack.Regs = buildArithmeticArgs(ev, excSum)
	case fault.ClassCallPAL:
		pack.Regs[0] = uint64(callPALFunction)
	default:
		pack.Regs = buildInterruptArgs(ev)
	}
	return pack
}

// buildMemoryFaultArgs matches buildMemoryFaultArgs: a0=faultVA, a1=asn,
// a2=fault type, a3=write flag, a4=faulting PC.
func buildMemoryFaultArgs(ev fault.PendingEvent) [5]uint64 {
	var faultType uint64
	switch ev.MMUOp {
	case fault.MMURead:
		faultType = 0
	case fault.MMUWrite:
		faultType = 1
	case fault.MMUExecute:
		faultType = 2
	}
	var write uint64
	if ev.Writable {
		write = 1
	}
	return [5]uint64{ev.FaultVA, uint64(ev.ASN), faultType, write, ev.PC}
}

// buildASTArgs matches buildASTArgs: a0=astsr (mode-derived), a1=faulting
// PC, a2 unused.
func buildASTArgs(ev fault.PendingEvent) [5]uint64 {
	return [5]uint64{uint64(ev.Mode), ev.PC, 0, 0, 0}
}

// buildArithmeticArgs matches buildArithmeticArgs: a0=EXC_SUM-style summary,
// a1=faulting PC, a2 unused.
func buildArithmeticArgs(ev fault.PendingEvent, excSum uint64) [5]uint64 {
	return [5]uint64{excSum, ev.PC, 0, 0, 0}
}

// buildInterruptArgs is the generic hardware/software-interrupt pack: a0 is
// the vector number carried in TrapID, a1 the mode from the old PS, a2 unused.
func buildInterruptArgs(ev fault.PendingEvent) [5]uint64 {
	return [5]uint64{ev.TrapID, uint64(ev.Mode), 0, 0, 0}
}
