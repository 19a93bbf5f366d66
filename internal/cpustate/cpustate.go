// Package cpustate holds the architected register file (R0-R31, F0-F31),
// the PALshadow overlay, the Processor Status word, and the internal
// processor register (IPR) bank, with the MTPR/MFPR side-effect dispatch
// spec.md §4.3 describes.
package cpustate

import "github.com/axpcore/ev6/internal/bits"

// Mode is the two-bit current/previous-mode field carried in PS.
type Mode uint8

const (
	ModeKernel Mode = iota
	ModeExecutive
	ModeSupervisor
	ModeUser
)

// PS is the Processor Status: current mode, previous mode, interrupt
// priority level, and the single-step/trace enable bits. Modeled as a
// small struct rather than a packed word — the teacher's own cpuState
// keeps PSW fields this way rather than re-deriving them from a raw value
// on every access.
type PS struct {
	CurrentMode  Mode
	PreviousMode Mode
	IPL          uint8 // 0-31, spec.md §4.6 precedence ladder
	IntEnable    bool  // SWPIPL-gated external interrupt delivery
}

// IPRIndex names one internal processor register. Values follow the
// EV6 static IPR index assignment documented in the original PALcode
// lineage's coreLib/static_IPR_constexpr.h.
type IPRIndex uint16

const (
	IPR_ITB_TAG    IPRIndex = 0
	IPR_ITB_PTE    IPRIndex = 1
	IPR_ITB_IAP    IPRIndex = 2
	IPR_ITB_IA     IPRIndex = 3
	IPR_ITB_IS     IPRIndex = 4
	IPR_EXC_ADDR   IPRIndex = 6
	IPR_IVA_FORM   IPRIndex = 7
	IPR_IER_CM     IPRIndex = 8
	IPR_IPL        IPRIndex = 9 // HW_MTPR/HW_MFPR target for PS<IPL>, per the Alpha Architecture Reference Manual's hardware IPR list
	IPR_SIRR       IPRIndex = 12
	IPR_ISUM       IPRIndex = 13
	IPR_HW_INT_CLR IPRIndex = 14
	IPR_EXC_SUM    IPRIndex = 15
	IPR_PAL_BASE   IPRIndex = 16
	IPR_I_CTL      IPRIndex = 17
	IPR_IC_FLUSH_ASM IPRIndex = 18
	IPR_IC_FLUSH   IPRIndex = 19
	IPR_PCTR_CTL   IPRIndex = 20
	IPR_I_STAT     IPRIndex = 22
	IPR_SLEEP      IPRIndex = 23
	IPR_PCTX_0     IPRIndex = 30
	IPR_DTB_TAG0   IPRIndex = 32
	IPR_DTB_PTE0   IPRIndex = 33
	IPR_DTB_IS0    IPRIndex = 36
	IPR_DTB_ASN0   IPRIndex = 37
	IPR_DTB_ALTMODE IPRIndex = 38
	IPR_M_CTL      IPRIndex = 40
	IPR_DC_CTL     IPRIndex = 41
	IPR_DC_STAT    IPRIndex = 42
	IPR_C_DATA     IPRIndex = 43
	IPR_C_SHFT     IPRIndex = 44
	IPR_PCTX_1     IPRIndex = 60
	IPR_PCTX       IPRIndex = 61
	IPR_MM_STAT    IPRIndex = 79
	IPR_DTB_TAG1   IPRIndex = 160
	IPR_DTB_PTE1   IPRIndex = 161
	IPR_DTB_IAP    IPRIndex = 162
	IPR_DTB_IA     IPRIndex = 163
	IPR_DTB_IS1    IPRIndex = 164
	IPR_DTB_ASN1   IPRIndex = 165
	IPR_CC         IPRIndex = 192
	IPR_CC_CTL     IPRIndex = 193
	IPR_VA         IPRIndex = 194
	IPR_VA_FORM    IPRIndex = 195
	IPR_VA_CTL     IPRIndex = 196
)

// EventKind reports a side effect an IPR write triggered that some other
// component (MMU, PAL dispatcher) must act on. cpustate never reaches into
// those packages directly — it reports the event and lets the caller act,
// keeping the register file a leaf package.
type EventKind uint8

const (
	EventNone EventKind = iota
	EventPALBaseChanged
	EventICFlush
	EventICFlushASM
	EventITBInvalidateAll
	EventITBInvalidateSingle
	EventDTBInvalidateAll
	EventDTBInvalidateSingle
	EventDTBInvalidateASM
	EventIPLChanged
)

// Event is returned by WriteIPR describing what, if anything, the write
// requires of the translation engine or PAL dispatcher.
type Event struct {
	Kind     EventKind
	OldValue uint64
	NewValue uint64
}

// State is one CPU's architected state: integer and float register files,
// the PALshadow overlay, Processor Status, and the IPR bank. It holds no
// reference to memory, the MMU, or any other CPU — those are supplied by
// the pipeline driver at each stage.
type State struct {
	gpr [32]uint64
	fpr [32]uint64
	fpcr *bits.FPCR

	shadow0    [4]uint64 // R8-R11 PALshadow bank (SDE<0>)
	shadow0Alt [4]uint64 // architected R8-R11, saved while the SDE<0> bank is swapped in
	shadow1    [4]uint64 // R4-R7 PALshadow bank (SDE<1>)
	shadow1Alt [4]uint64 // architected R4-R7, saved while the SDE<1> bank is swapped in

	inPAL bool

	PS PS

	ipr map[IPRIndex]uint64

	// Config controls per-CPU behavior this core leaves as an explicit
	// switch rather than guessing hardware intent (SPEC_FULL.md §C.4).
	Config Config
}

// Config holds per-CPU configuration switches resolved at init time from
// the core's configuration file.
type Config struct {
	IgnoreSDE0 bool // when true, SDE<0> shadow swap never triggers
}

// New returns a CPU state with all architected registers zeroed and PS in
// kernel mode at IPL 31 (the reset/power-up state PALcode expects to find).
func New() *State {
	return &State{
		fpcr: bits.NewFPCR(),
		ipr:  make(map[IPRIndex]uint64),
		PS:   PS{CurrentMode: ModeKernel, IPL: 31},
	}
}

// GPR reads integer register n. R31 always reads as zero.
func (s *State) GPR(n uint8) uint64 {
	if n == 31 {
		return 0
	}
	return s.gpr[n]
}

// SetGPR writes integer register n. Writes to R31 are discarded.
func (s *State) SetGPR(n uint8, v uint64) {
	if n == 31 {
		return
	}
	s.gpr[n] = v
}

// FPR reads float register n. F31 always reads as zero.
func (s *State) FPR(n uint8) uint64 {
	if n == 31 {
		return 0
	}
	return s.fpr[n]
}

// SetFPR writes float register n. Writes to F31 are discarded.
func (s *State) SetFPR(n uint8, v uint64) {
	if n == 31 {
		return
	}
	s.fpr[n] = v
}

func (s *State) FPCR() *bits.FPCR { return s.fpcr }

// EnterPAL swaps in the PALshadow register banks, gated independently per
// SDE<0>/SDE<1> as SPEC_FULL.md §C.4 supplements: a configuration that
// enables only one of the two banks still shadows the other correctly.
// Each bank is four registers: SDE<1> swaps R4-R7 and SDE<0> swaps R8-R11;
// R20-R23 and R24-R27 are not shadowed. Config.IgnoreSDE0 suppresses the
// SDE<0> swap.
func (s *State) EnterPAL(sde0, sde1 bool) {
	if s.inPAL {
		return
	}
	s.inPAL = true
	if sde1 {
		for i := 0; i < 4; i++ {
			s.shadow1Alt[i] = s.gpr[4+i]
			s.gpr[4+i] = s.shadow1[i]
		}
	}
	if sde0 && !s.Config.IgnoreSDE0 {
		for i := 0; i < 4; i++ {
			s.shadow0Alt[i] = s.gpr[8+i]
			s.gpr[8+i] = s.shadow0[i]
		}
	}
}

// ExitPAL restores the architected banks that EnterPAL saved aside.
func (s *State) ExitPAL(sde0, sde1 bool) {
	if !s.inPAL {
		return
	}
	s.inPAL = false
	if sde1 {
		for i := 0; i < 4; i++ {
			s.shadow1[i] = s.gpr[4+i]
			s.gpr[4+i] = s.shadow1Alt[i]
		}
	}
	if sde0 && !s.Config.IgnoreSDE0 {
		for i := 0; i < 4; i++ {
			s.shadow0[i] = s.gpr[8+i]
			s.gpr[8+i] = s.shadow0Alt[i]
		}
	}
}

func (s *State) InPAL() bool { return s.inPAL }

// ReadIPR returns the raw value of an internal processor register. Unknown
// indices read as zero, matching the teacher's convention for unimplemented
// control-register bits rather than panicking.
func (s *State) ReadIPR(idx IPRIndex) uint64 {
	return s.ipr[idx]
}

// WriteIPR stores v into the IPR bank and reports any side effect the
// caller (pipeline/pal/mmu wiring) must act on. The mask applied to
// PAL_BASE enforces spec.md's 16KB-alignment invariant unconditionally.
func (s *State) WriteIPR(idx IPRIndex, v uint64) Event {
	old := s.ipr[idx]
	switch idx {
	case IPR_PAL_BASE:
		masked := v &^ uint64(0x3FFF)
		s.ipr[idx] = masked
		if (old^masked)&^uint64(0x3FFF) != 0 {
			return Event{Kind: EventPALBaseChanged, OldValue: old, NewValue: masked}
		}
		return Event{}
	case IPR_IC_FLUSH:
		s.ipr[idx] = v
		return Event{Kind: EventICFlush}
	case IPR_IC_FLUSH_ASM:
		s.ipr[idx] = v
		return Event{Kind: EventICFlushASM}
	case IPR_ITB_IA:
		s.ipr[idx] = v
		return Event{Kind: EventITBInvalidateAll}
	case IPR_ITB_IAP:
		s.ipr[idx] = v
		return Event{Kind: EventITBInvalidateSingle}
	case IPR_DTB_IA:
		s.ipr[idx] = v
		return Event{Kind: EventDTBInvalidateAll}
	case IPR_DTB_IAP:
		s.ipr[idx] = v
		return Event{Kind: EventDTBInvalidateSingle}
	case IPR_IPL:
		newIPL := uint8(v & 0x1F)
		s.ipr[idx] = uint64(newIPL)
		oldIPL := s.PS.IPL
		s.PS.IPL = newIPL
		if newIPL != oldIPL {
			return Event{Kind: EventIPLChanged, OldValue: uint64(oldIPL), NewValue: uint64(newIPL)}
		}
		return Event{}
	default:
		s.ipr[idx] = v
		return Event{}
	}
}

// PALBase returns the current PAL_BASE value (already 16KB-aligned by
// WriteIPR's masking).
func (s *State) PALBase() uint64 { return s.ipr[IPR_PAL_BASE] }

// ShadowEnabled reports the I_CTL<SDE> gating bits: bit 0 selects SDE<0>
// (R8-R11), bit 1 selects SDE<1> (R4-R7).
func (s *State) ShadowEnabled() (sde0, sde1 bool) {
	ictl := s.ipr[IPR_I_CTL]
	return bits.Bit(ictl, 0), bits.Bit(ictl, 1)
}
