// Package mmu implements the ITB/DTB translation engine: canonical-address
// checking, per-size-class TLB lookup, the three-level page table walk from
// PTBR, and the invalidation taxonomy PALcode drives through IPR writes.
package mmu

import "github.com/axpcore/ev6/internal/bits"

// PTE bit layout (pteLib/AlphaPTE_Core.h): V at bit 0, the three fault-on
// bits next, ASM, a 2-bit granularity-hint field, then eight per-mode
// read/write enables, and a 28-bit PFN at bits 59:32 (the executable
// extract/insert helpers in the original use a 28-bit field despite a stale
// comment nearby claiming 21 bits; SPEC_FULL.md §C.1 follows the code).
const (
	PTEBitV   = 0
	PTEBitFOE = 1
	PTEBitFOW = 2
	PTEBitFOR = 3
	PTEBitASM = 4
	pteGHStart = 5
	pteGHLen   = 2
	PTEBitKRE = 8
	PTEBitERE = 9
	PTEBitSRE = 10
	PTEBitURE = 11
	PTEBitKWE = 12
	PTEBitEWE = 13
	PTEBitSWE = 14
	PTEBitUWE = 15
	ptePFNStart = 32
	ptePFNLen   = 28
)

// GH is the granularity hint field: 0 selects an 8KB page, and each
// increment multiplies the effective page size by 8 (GH=1 -> 64KB, GH=2 ->
// 512KB, GH=3 -> 4MB), matching EV6's superpage scheme.
type GH uint8

// PTE is one page table entry, in its raw 64-bit architected form plus the
// copy-on-write software bit the original PALcode lineage carries alongside
// it (not an architected PTE bit; tracked out-of-band here too).
type PTE struct {
	Raw uint64
	COW bool
}

func (p PTE) Valid() bool { return bits.Bit(p.Raw, PTEBitV) }
func (p PTE) FOE() bool   { return bits.Bit(p.Raw, PTEBitFOE) }
func (p PTE) FOW() bool   { return bits.Bit(p.Raw, PTEBitFOW) }
func (p PTE) FOR() bool   { return bits.Bit(p.Raw, PTEBitFOR) }
func (p PTE) ASM() bool   { return bits.Bit(p.Raw, PTEBitASM) }
func (p PTE) GH() GH      { return GH(bits.Extract(p.Raw, pteGHStart, pteGHLen)) }
func (p PTE) PFN() uint64 { return bits.Extract(p.Raw, ptePFNStart, ptePFNLen) }

// Mode mirrors cpustate.Mode without importing it, avoiding a dependency
// cycle: the translation engine is a leaf relative to cpustate (cpustate
// does not need to know about page tables).
type Mode uint8

const (
	ModeKernel Mode = iota
	ModeExecutive
	ModeSupervisor
	ModeUser
)

func (p PTE) readEnabled(m Mode) bool {
	switch m {
	case ModeKernel:
		return bits.Bit(p.Raw, PTEBitKRE)
	case ModeExecutive:
		return bits.Bit(p.Raw, PTEBitERE)
	case ModeSupervisor:
		return bits.Bit(p.Raw, PTEBitSRE)
	default:
		return bits.Bit(p.Raw, PTEBitURE)
	}
}

func (p PTE) writeEnabled(m Mode) bool {
	switch m {
	case ModeKernel:
		return bits.Bit(p.Raw, PTEBitKWE)
	case ModeExecutive:
		return bits.Bit(p.Raw, PTEBitEWE)
	case ModeSupervisor:
		return bits.Bit(p.Raw, PTEBitSWE)
	default:
		return bits.Bit(p.Raw, PTEBitUWE)
	}
}

// CanRead reports whether mode m may load through this PTE. FOR (fault on
// read) is checked before the per-mode enable bit, matching the original's
// canRead ordering.
func (p PTE) CanRead(m Mode) bool {
	if p.FOR() {
		return false
	}
	return p.readEnabled(m)
}

// CanWrite reports whether mode m may store through this PTE.
func (p PTE) CanWrite(m Mode) bool {
	if p.FOW() {
		return false
	}
	return p.writeEnabled(m)
}

// CanExecute reports whether mode m may fetch an instruction through this
// PTE.
func (p PTE) CanExecute(m Mode) bool {
	if p.FOE() {
		return false
	}
	return p.readEnabled(m)
}

// protection8 packs the four read/write enable pairs the original's
// protection8() exposes: bit0=KRE, bit1=KWE, bit2=URE, bit3=UWE (the
// architecturally load-bearing subset; Executive/Supervisor enables are
// available individually via readEnabled/writeEnabled for modes that use
// them).
func (p PTE) protection8() uint8 {
	var v uint8
	if bits.Bit(p.Raw, PTEBitKRE) {
		v |= 1 << 0
	}
	if bits.Bit(p.Raw, PTEBitKWE) {
		v |= 1 << 1
	}
	if bits.Bit(p.Raw, PTEBitURE) {
		v |= 1 << 2
	}
	if bits.Bit(p.Raw, PTEBitUWE) {
		v |= 1 << 3
	}
	return v
}

// MakeValid builds a valid, non-ASM PTE for pfn with the given per-mode
// read/write enables, the Kernel/User compressed form the original's
// makeValid factory exposes (Executive/Supervisor callers set the
// corresponding bits directly via Insert on .Raw).
func MakeValid(pfn uint64, kre, kwe, ure, uwe bool) PTE {
	raw := uint64(1) << PTEBitV
	raw = bits.Insert(raw, ptePFNStart, ptePFNLen, pfn)
	setBit := func(r uint64, bit uint, on bool) uint64 {
		if on {
			return r | (uint64(1) << bit)
		}
		return r
	}
	raw = setBit(raw, PTEBitKRE, kre)
	raw = setBit(raw, PTEBitKWE, kwe)
	raw = setBit(raw, PTEBitURE, ure)
	raw = setBit(raw, PTEBitUWE, uwe)
	return PTE{Raw: raw}
}
