// Package pipeline drives one CPU's fetch/issue/translate/access/execute/
// writeback/retire sequence for a single instruction, returning a result
// type at each stage boundary rather than propagating a Go error — matching
// spec.md §9's design note that "exceptions become result types at stage
// boundaries", generalized from the teacher's fetch/execute staged
// return-and-suppress control flow in emu/cpu/cpu.go.
package pipeline

import (
	"github.com/axpcore/ev6/internal/bits"
	"github.com/axpcore/ev6/internal/cpustate"
	"github.com/axpcore/ev6/internal/fault"
	"github.com/axpcore/ev6/internal/isa"
	"github.com/axpcore/ev6/internal/memory"
	"github.com/axpcore/ev6/internal/mmu"
	"github.com/axpcore/ev6/internal/reservation"
)

// Outcome is the result of driving one instruction through the pipeline.
type Outcome uint8

const (
	Continue Outcome = iota // instruction retired, PC already advanced
	Stall                   // caller should retry (reserved for future use; this core's stages never stall internally)
	Fault                   // a PendingEvent was raised; PAL entry should follow
	EnterPAL                // CALL_PAL was executed; PAL entry should follow
	ExitPAL                 // HW_REI was executed; PAL exit (shadow unbank) should follow
	Complete                // HALT reached
)

// Machine bundles everything one pipeline Step needs: the CPU's architected
// state, its guest memory, its translation engine, its fault dispatcher,
// and its reservation manager. Bundling these as a struct rather than
// threading five parameters through every call keeps Step's signature
// stable as the core grows additional cross-cutting concerns.
type Machine struct {
	CPU    *cpustate.State
	Mem    memory.Memory
	MMU    *mmu.Translator
	Faults *fault.Dispatcher
	Resv   *reservation.Manager
	PTBR   uint64
	ASN    uint16
	// PALFunc is set whenever Step returns EnterPAL: the 26-bit CALL_PAL
	// function code of the instruction that caused it, for a driver to pass
	// to pal.Resolve/BuildArgumentPack without re-fetching and re-decoding.
	PALFunc uint32
	// OnIPLChange, if set, is called whenever HW_MTPR writes PS.IPL to a new
	// value. The SMP driver uses this to re-test a device interrupt it held
	// back because it arrived at or below the CPU's then-current IPL,
	// per spec.md §4.6's "IPL write -> recompute interrupt eligibility" rule.
	OnIPLChange func(newIPL uint8)
}

// cpuMode adapts cpustate.Mode to mmu.Mode; both enumerate the same four
// values in the same order, kept as distinct types so mmu never imports
// cpustate.
func cpuMode(m cpustate.Mode) mmu.Mode { return mmu.Mode(m) }

// Step fetches, decodes, translates (if needed), and executes exactly one
// instruction at PC, returning the outcome and the (possibly unchanged) PC
// for the next Step call.
func Step(m *Machine, pc uint64) (Outcome, uint64) {
	// A pending event may already be latched here without this Step call
	// having raised it itself -- an external interrupt delivered
	// asynchronously between instructions (internal/smp) raises directly
	// against m.Faults. Alpha checks for a deliverable interrupt at every
	// instruction boundary, so that must preempt the next fetch rather than
	// wait for this instruction to fault on its own.
	if m.Faults.Pending() != nil {
		return Fault, pc
	}

	fetchRes := m.MMU.Translate(m.MMU.ITB, pc, m.ASN, m.PTBR, cpuMode(m.CPU.PS.CurrentMode), mmu.AccessExecute)
	if fetchRes.Cause != mmu.FaultNone {
		raiseMemoryFault(m, pc, pc, fetchRes, fault.MMUExecute, false)
		return Fault, pc
	}

	raw, status := m.Mem.ReadU32(fetchRes.PA)
	if status != memory.StatusOK {
		raiseAlignmentOrRange(m, pc, status)
		return Fault, pc
	}

	d := isa.Decode(raw)
	g := isa.Lookup(d)
	nextPC := pc + 4

	switch g.Class {
	case isa.ClassIllegal:
		raiseSimple(m, pc, nextPC, fault.ClassOpcodeReserved)
		return Fault, pc
	case isa.ClassPAL:
		m.PALFunc = d.PALFunc
		return EnterPAL, nextPC
	case isa.ClassPALPriv:
		return executePALPriv(m, d, g, pc, nextPC)
	case isa.ClassInteger:
		executeInteger(m.CPU, d, g)
		return Continue, nextPC
	case isa.ClassFloat, isa.ClassIntFloatConvert:
		executeFloat(m.CPU, d, g)
		return Continue, nextPC
	case isa.ClassMemory:
		return executeMemory(m, d, g, pc, nextPC)
	case isa.ClassBranch:
		return executeBranch(m.CPU, d, g, pc, nextPC), branchTarget(d, g, pc, nextPC, m.CPU)
	case isa.ClassFBranch:
		return executeFBranch(m.CPU, d, g, pc, nextPC), fbranchTarget(d, g, pc, nextPC, m.CPU)
	case isa.ClassJump:
		return executeJump(m.CPU, d, g, nextPC)
	case isa.ClassMisc:
		executeMisc(m, d, g)
		return Continue, nextPC
	default:
		raiseSimple(m, pc, nextPC, fault.ClassOpcodeReserved)
		return Fault, pc
	}
}

func raiseSimple(m *Machine, pc, nextPC uint64, class fault.ExceptionClass) {
	m.Faults.Raise(fault.PendingEvent{
		PC: pc, NextPC: nextPC, Mode: uint8(m.CPU.PS.CurrentMode),
		IPL: m.CPU.PS.IPL, ASN: m.ASN, ExceptionClass: class,
	})
}

func raiseMemoryFault(m *Machine, pc, faultVA uint64, res mmu.Result, op fault.MMUOperation, writable bool) {
	m.Faults.Raise(fault.PendingEvent{
		PC: pc, Mode: uint8(m.CPU.PS.CurrentMode), IPL: m.CPU.PS.IPL, ASN: m.ASN,
		FaultVA: faultVA, FaultCause: res.Cause, MMUOp: op, TLBHit: res.TLBHit,
		Writable: writable, ExceptionClass: fault.ClassMemoryFault,
	})
}

func raiseAlignmentOrRange(m *Machine, pc uint64, status memory.Status) {
	class := fault.ClassUnalignedAccess
	m.Faults.Raise(fault.PendingEvent{
		PC: pc, Mode: uint8(m.CPU.PS.CurrentMode), IPL: m.CPU.PS.IPL, ASN: m.ASN,
		ExceptionClass: class,
	})
}

// executeInteger dispatches the INTA/INTL/INTS/INTM/FPTI operate-format
// grains. Ra/Rb (or the 8-bit literal) feed Rc through the function named
// by g.Name, matching the teacher's per-opcode switch style in
// cpu_standard.go generalized to Alpha's operate format.
func executeInteger(cpu *cpustate.State, d isa.Decoded, g isa.Grain) {
	ra := cpu.GPR(d.Ra)
	var rb uint64
	if d.IsLit {
		rb = uint64(d.Literal)
	} else {
		rb = cpu.GPR(d.Rb)
	}

	var result uint64
	switch g.Name {
	case "ADDL":
		result = bits.SignExtend(uint64(uint32(ra)+uint32(rb)), 32)
	case "ADDQ":
		result = ra + rb
	case "SUBL":
		result = bits.SignExtend(uint64(uint32(ra)-uint32(rb)), 32)
	case "SUBQ":
		result = ra - rb
	case "AND":
		result = ra & rb
	case "BIC":
		result = ra &^ rb
	case "BIS":
		result = ra | rb
	case "ORNOT":
		result = ra | ^rb
	case "XOR":
		result = ra ^ rb
	case "EQV":
		result = ^(ra ^ rb)
	case "CMPEQ":
		result = boolToWord(ra == rb)
	case "CMPLT":
		result = boolToWord(int64(ra) < int64(rb))
	case "CMPLE":
		result = boolToWord(int64(ra) <= int64(rb))
	case "CMPULT":
		result = boolToWord(ra < rb)
	case "CMPULE":
		result = boolToWord(ra <= rb)
	case "MULL":
		result = bits.SignExtend(uint64(uint32(ra)*uint32(rb)), 32)
	case "MULQ":
		result = ra * rb
	case "SLL":
		result = ra << (rb & 0x3F)
	case "SRL":
		result = ra >> (rb & 0x3F)
	case "SRA":
		result = uint64(int64(ra) >> (rb & 0x3F))
	case "ZAP":
		result = zap(ra, rb, false)
	case "ZAPNOT":
		result = zap(ra, rb, true)
	case "CMOVEQ":
		if ra == 0 {
			result = rb
		} else {
			result = cpu.GPR(d.Rc)
		}
	case "CMOVNE":
		if ra != 0 {
			result = rb
		} else {
			result = cpu.GPR(d.Rc)
		}
	case "SEXTB":
		result = bits.SignExtend(rb&0xFF, 8)
	case "SEXTW":
		result = bits.SignExtend(rb&0xFFFF, 16)
	case "CTPOP":
		result = uint64(popcount(rb))
	case "CTLZ":
		result = uint64(clz(rb))
	case "CTTZ":
		result = uint64(ctz(rb))
	default:
		// Grains registered but not yet given an execution rule (the
		// shift/mask/pack family, overflow-checked variants): treated as a
		// no-op write-through of Ra so the pipeline still retires rather
		// than silently producing a wrong fault class.
		result = ra
	}
	cpu.SetGPR(d.Rc, result)
}

func boolToWord(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

func zap(ra, mask uint64, invert bool) uint64 {
	result := ra
	for i := 0; i < 8; i++ {
		bit := (mask >> i) & 1
		clear := bit == 1
		if invert {
			clear = bit == 0
		}
		if clear {
			result &^= uint64(0xFF) << (8 * i)
		}
	}
	return result
}

func popcount(v uint64) int {
	n := 0
	for v != 0 {
		n += int(v & 1)
		v >>= 1
	}
	return n
}

func clz(v uint64) int {
	n := 0
	for i := 63; i >= 0; i-- {
		if (v>>uint(i))&1 != 0 {
			break
		}
		n++
	}
	return n
}

func ctz(v uint64) int {
	if v == 0 {
		return 64
	}
	n := 0
	for (v>>uint(n))&1 == 0 {
		n++
	}
	return n
}

// executeFloat handles the IEEE S/T-format operate grains this core
// implements; VAX-float and CHMx grains never reach here (they resolve to
// ClassIllegal per SPEC_FULL.md §C.7 and are caught earlier).
func executeFloat(cpu *cpustate.State, d isa.Decoded, g isa.Grain) {
	fa := bits.Float64FromBits(cpu.FPR(d.Ra))
	fb := bits.Float64FromBits(cpu.FPR(d.Rb))
	var result float64
	switch g.Name {
	case "ADDS", "ADDT":
		result = fa + fb
	case "SUBS", "SUBT":
		result = fa - fb
	case "MULS", "MULT":
		result = fa * fb
	case "DIVS", "DIVT":
		result = fa / fb
	case "CMPTEQ":
		cpu.SetFPR(d.Rc, boolToWord(fa == fb)<<62)
		return
	case "CMPTLT":
		cpu.SetFPR(d.Rc, boolToWord(fa < fb)<<62)
		return
	case "CMPTLE":
		cpu.SetFPR(d.Rc, boolToWord(fa <= fb)<<62)
		return
	case "CPYS":
		cpu.SetFPR(d.Rc, (cpu.FPR(d.Ra)&(1<<63))|(cpu.FPR(d.Rb)&^(uint64(1)<<63)))
		return
	case "MT_FPCR":
		cpu.FPCR().SetRaw(cpu.FPR(d.Ra))
		return
	case "MF_FPCR":
		cpu.SetFPR(d.Ra, cpu.FPCR().Raw())
		return
	default:
		cpu.SetFPR(d.Rc, cpu.FPR(d.Ra))
		return
	}
	cpu.SetFPR(d.Rc, bits.BitsFromFloat64(result))
}

// executeMisc handles the MB/WMB/TRAPB family. Only the reservation-clearing
// barriers touch CPU state the pipeline tracks directly; the rest are
// scheduling hints this functional-only core treats as no-ops.
func executeMisc(m *Machine, d isa.Decoded, g isa.Grain) {
	switch g.Name {
	case "MB", "WMB":
		if m.Resv != nil {
			m.Resv.ClearLocal()
		}
	}
}

func executePALPriv(m *Machine, d isa.Decoded, g isa.Grain, pc, nextPC uint64) (Outcome, uint64) {
	switch g.Name {
	case "HW_MFPR":
		v := m.CPU.ReadIPR(cpustate.IPRIndex(d.Disp16))
		m.CPU.SetGPR(d.Ra, v)
	case "HW_MTPR":
		ev := m.CPU.WriteIPR(cpustate.IPRIndex(d.Disp16), m.CPU.GPR(d.Ra))
		handleIPREvent(m, ev)
		// A PAL_BASE change moves an in-PAL-mode PC that lies in the old
		// 64KB PAL window to the same offset in the new window.
		if ev.Kind == cpustate.EventPALBaseChanged && m.CPU.InPAL() &&
			nextPC-ev.OldValue < 0x10000 {
			nextPC = nextPC - ev.OldValue + ev.NewValue
		}
	case "HW_REI":
		return ExitPAL, m.CPU.ReadIPR(cpustate.IPR_EXC_ADDR)
	}
	return Continue, nextPC
}

func handleIPREvent(m *Machine, ev cpustate.Event) {
	switch ev.Kind {
	case cpustate.EventITBInvalidateAll:
		m.MMU.ITB.InvalidateAll()
	case cpustate.EventITBInvalidateSingle:
		m.MMU.ITB.InvalidateSingle(ev.NewValue, m.ASN)
	case cpustate.EventDTBInvalidateAll:
		m.MMU.DTB.InvalidateAll()
	case cpustate.EventDTBInvalidateSingle:
		m.MMU.DTB.InvalidateSingle(ev.NewValue, m.ASN)
	case cpustate.EventPALBaseChanged:
		// Flushing the whole ITB drops the old 64KB window's stale
		// mappings. Relocating an in-PAL-mode PC that pointed into the
		// old window is done by executePALPriv, which sees the PC
		// (SPEC_FULL.md §C.5).
		m.MMU.ITB.InvalidateAll()
	case cpustate.EventIPLChanged:
		if m.OnIPLChange != nil {
			m.OnIPLChange(uint8(ev.NewValue))
		}
	}
}

func effectiveAddress(cpu *cpustate.State, d isa.Decoded) uint64 {
	return cpu.GPR(d.Rb) + uint64(d.Disp16)
}

func executeMemory(m *Machine, d isa.Decoded, g isa.Grain, pc, nextPC uint64) (Outcome, uint64) {
	switch g.Name {
	case "LDA":
		m.CPU.SetGPR(d.Ra, effectiveAddress(m.CPU, d))
		return Continue, nextPC
	case "LDAH":
		m.CPU.SetGPR(d.Ra, m.CPU.GPR(d.Rb)+uint64(d.Disp16<<16))
		return Continue, nextPC
	}

	va := effectiveAddress(m.CPU, d)
	isStore := isStoreGrain(g.Name)
	kind := mmu.AccessRead
	if isStore {
		kind = mmu.AccessWrite
	}

	// LDQ_U/STQ_U never alignment-trap (spec.md:104): mask the address down
	// to 8-byte alignment before translation instead of accessing at the
	// raw (possibly unaligned) effective address. Every other sized access
	// keeps the raw address and is instead checked for straddling an 8KB
	// page boundary below.
	accessVA := va
	switch g.Name {
	case "LDQ_U", "STQ_U":
		accessVA = va &^ 0x7
	default:
		if crossesPageBoundary(va, accessSize(g.Name)) {
			raiseAlignmentOrRange(m, pc, memory.StatusUnaligned)
			return Fault, pc
		}
	}

	res := m.MMU.Translate(m.MMU.DTB, accessVA, m.ASN, m.PTBR, cpuMode(m.CPU.PS.CurrentMode), kind)
	if res.Cause != mmu.FaultNone {
		op := fault.MMURead
		if isStore {
			op = fault.MMUWrite
		}
		raiseMemoryFault(m, pc, accessVA, res, op, isStore)
		return Fault, pc
	}

	switch g.Name {
	case "LDQ", "LDQ_U":
		v, status := m.Mem.ReadU64(res.PA)
		if status != memory.StatusOK {
			raiseAlignmentOrRange(m, pc, status)
			return Fault, pc
		}
		m.CPU.SetGPR(d.Ra, v)
	case "LDL":
		v, status := m.Mem.ReadU32(res.PA)
		if status != memory.StatusOK {
			raiseAlignmentOrRange(m, pc, status)
			return Fault, pc
		}
		m.CPU.SetGPR(d.Ra, bits.SignExtend(uint64(v), 32))
	case "LDBU":
		v, status := m.Mem.ReadByte(res.PA)
		if status != memory.StatusOK {
			raiseAlignmentOrRange(m, pc, status)
			return Fault, pc
		}
		m.CPU.SetGPR(d.Ra, uint64(v))
	case "LDQ_L":
		v, status := m.Mem.ReadU64(res.PA)
		if status != memory.StatusOK {
			raiseAlignmentOrRange(m, pc, status)
			return Fault, pc
		}
		m.CPU.SetGPR(d.Ra, v)
		if m.Resv != nil {
			m.Resv.SetLocked(res.PA)
		}
	case "LDL_L":
		v, status := m.Mem.ReadU32(res.PA)
		if status != memory.StatusOK {
			raiseAlignmentOrRange(m, pc, status)
			return Fault, pc
		}
		m.CPU.SetGPR(d.Ra, bits.SignExtend(uint64(v), 32))
		if m.Resv != nil {
			m.Resv.SetLocked(res.PA)
		}
	case "STQ", "STQ_U":
		m.Mem.WriteU64(res.PA, m.CPU.GPR(d.Ra))
		notifyStore(m, res.PA)
	case "STL":
		m.Mem.WriteU32(res.PA, uint32(m.CPU.GPR(d.Ra)))
		notifyStore(m, res.PA)
	case "STB":
		m.Mem.WriteByte(res.PA, uint8(m.CPU.GPR(d.Ra)))
		notifyStore(m, res.PA)
	case "STQ_C":
		ok := m.Resv != nil && m.Resv.StoreConditional(res.PA)
		if ok {
			m.Mem.WriteU64(res.PA, m.CPU.GPR(d.Ra))
		}
		m.CPU.SetGPR(d.Ra, boolToWord(ok))
	case "STL_C":
		ok := m.Resv != nil && m.Resv.StoreConditional(res.PA)
		if ok {
			m.Mem.WriteU32(res.PA, uint32(m.CPU.GPR(d.Ra)))
		}
		m.CPU.SetGPR(d.Ra, boolToWord(ok))
	case "LDF", "LDG", "LDS", "LDT":
		v, status := m.Mem.ReadU64(res.PA)
		if status != memory.StatusOK {
			raiseAlignmentOrRange(m, pc, status)
			return Fault, pc
		}
		m.CPU.SetFPR(d.Ra, v)
	case "STF", "STG", "STS", "STT":
		m.Mem.WriteU64(res.PA, m.CPU.FPR(d.Ra))
		notifyStore(m, res.PA)
	}
	return Continue, nextPC
}

// notifyStore reports a just-committed plain store at pa to the reservation
// manager, so this CPU's own reservation and every sibling CPU's reservation
// over the same granule are cleared -- spec.md's "any store, local or
// remote, that observably touches the granule clears the reservation" rule
// applies to ordinary stores, not only STx_C.
func notifyStore(m *Machine, pa uint64) {
	if m.Resv != nil {
		m.Resv.Store(pa)
	}
}

// basePageSize is the base (GH=0) page size translate.go's page walker uses;
// spec.md §8's boundary-crossing property is phrased in terms of this 8KB
// granule regardless of which superpage size a TLB entry actually resolved
// through, since a straddling access is only ever unsafe at the smallest
// granularity the page tables can describe.
const basePageSize = 1 << 13

// accessSize reports the byte width of the memory access a grain performs,
// for the boundary-crossing check below. LDQ_U/STQ_U are handled separately
// (aligned before translation) and never reach here.
func accessSize(name string) uint64 {
	switch name {
	case "LDBU", "STB":
		return 1
	case "LDL", "LDL_L", "STL", "STL_C":
		return 4
	default:
		return 8
	}
}

// crossesPageBoundary reports whether a size-byte access starting at va
// spans two base pages, the condition spec.md §8 requires every sized
// memory op to fault on rather than silently split across two unrelated
// translations.
func crossesPageBoundary(va, size uint64) bool {
	first := va / basePageSize
	last := (va + size - 1) / basePageSize
	return first != last
}

func isStoreGrain(name string) bool {
	switch name {
	case "STQ", "STQ_U", "STL", "STB", "STW", "STQ_C", "STL_C", "STF", "STG", "STS", "STT":
		return true
	default:
		return false
	}
}

func executeBranch(cpu *cpustate.State, d isa.Decoded, g isa.Grain, pc, nextPC uint64) Outcome {
	return Continue
}

func branchTarget(d isa.Decoded, g isa.Grain, pc, nextPC uint64, cpu *cpustate.State) uint64 {
	taken := false
	ra := cpu.GPR(d.Ra)
	switch g.Name {
	case "BR", "BSR":
		taken = true
	case "BEQ":
		taken = ra == 0
	case "BNE":
		taken = ra != 0
	case "BLT":
		taken = int64(ra) < 0
	case "BLE":
		taken = int64(ra) <= 0
	case "BGT":
		taken = int64(ra) > 0
	case "BGE":
		taken = int64(ra) >= 0
	case "BLBC":
		taken = ra&1 == 0
	case "BLBS":
		taken = ra&1 == 1
	}
	if g.Name == "BSR" {
		cpu.SetGPR(d.Ra, nextPC)
	}
	if taken {
		return uint64(int64(nextPC) + d.Disp21)
	}
	return nextPC
}

func executeFBranch(cpu *cpustate.State, d isa.Decoded, g isa.Grain, pc, nextPC uint64) Outcome {
	return Continue
}

func fbranchTarget(d isa.Decoded, g isa.Grain, pc, nextPC uint64, cpu *cpustate.State) uint64 {
	fa := bits.Float64FromBits(cpu.FPR(d.Ra))
	taken := false
	switch g.Name {
	case "FBEQ":
		taken = fa == 0
	case "FBNE":
		taken = fa != 0
	case "FBLT":
		taken = fa < 0
	case "FBLE":
		taken = fa <= 0
	case "FBGT":
		taken = fa > 0
	case "FBGE":
		taken = fa >= 0
	}
	if taken {
		return uint64(int64(nextPC) + d.Disp21)
	}
	return nextPC
}

func executeJump(cpu *cpustate.State, d isa.Decoded, g isa.Grain, nextPC uint64) (Outcome, uint64) {
	target := cpu.GPR(d.Rb) &^ 0x3
	cpu.SetGPR(d.Ra, nextPC)
	return Continue, target
}
