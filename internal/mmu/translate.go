package mmu

import (
	"github.com/axpcore/ev6/internal/bits"
	"github.com/axpcore/ev6/internal/memory"
)

// VAMode selects the canonical virtual address width PALcode has configured
// this CPU for; EV6 supports both the original 43-bit and the extended
// 48-bit superpage-capable layout.
type VAMode uint8

const (
	VA43 VAMode = iota
	VA48
)

// FaultCause reports why a translation did not produce a physical address.
type FaultCause uint8

const (
	FaultNone FaultCause = iota
	FaultNotCanonical
	FaultTNV // translation not valid: no mapping found
	FaultACV // access violation: mapping found, mode lacks the needed enable bit
	FaultFOR
	FaultFOW
	FaultFOE
	FaultAlign
)

// AccessKind distinguishes the three independent permission checks a PTE
// carries.
type AccessKind uint8

const (
	AccessRead AccessKind = iota
	AccessWrite
	AccessExecute
)

// Result is the outcome of one translation attempt.
type Result struct {
	PA     uint64
	Cause  FaultCause
	TLBHit bool
}

// pageOffsetBits returns the number of low-order VA bits a size class g
// leaves untranslated: 13 for an 8KB base page, +3 per granularity step.
func pageOffsetBits(g GH) uint {
	return 13 + 3*uint(g)
}

// IsCanonical reports whether va is a well-formed Alpha virtual address
// under mode: the untranslated high bits above the configured VA width must
// equal the sign extension of the topmost translated bit.
func IsCanonical(va uint64, mode VAMode) bool {
	width := uint(43)
	if mode == VA48 {
		width = 48
	}
	ext := bits.SignExtend(bits.Extract(va, 0, width), width)
	return ext == va
}

// TLBEntry is one cached translation, tagged by the size class it was built
// at so superpages and base pages coexist in the same table.
type TLBEntry struct {
	Valid     bool
	VPN       uint64
	ASN       uint16
	Global    bool
	SizeClass GH
	PTE       PTE
	epoch     uint64
}

// EvictionPolicy picks a victim slot among a TLB's entries and is notified
// on every hit, generalizing the teacher's direct-mapped-by-page TLB (which
// needed no eviction policy at all) to a pluggable associative one, per
// SPEC_FULL.md's domain stack note on pteLib/TemplatePolicyBase.h.
type EvictionPolicy interface {
	Touch(idx int)
	Victim(entries []TLBEntry) int
	Reset(n int)
}

// RandomPolicy evicts a pseudo-randomly chosen slot, cycling deterministically
// so tests are reproducible.
type RandomPolicy struct {
	next int
	n    int
}

func NewRandomPolicy() *RandomPolicy { return &RandomPolicy{} }
func (p *RandomPolicy) Reset(n int)  { p.n = n; p.next = 0 }
func (p *RandomPolicy) Touch(idx int) {}
func (p *RandomPolicy) Victim(entries []TLBEntry) int {
	v := p.next
	p.next = (p.next + 1) % p.n
	return v
}

// ClockPolicy implements a second-chance clock sweep using each entry's
// reference bit.
type ClockPolicy struct {
	ref  []bool
	hand int
}

func NewClockPolicy() *ClockPolicy { return &ClockPolicy{} }
func (p *ClockPolicy) Reset(n int) { p.ref = make([]bool, n); p.hand = 0 }
func (p *ClockPolicy) Touch(idx int) {
	if idx < len(p.ref) {
		p.ref[idx] = true
	}
}
func (p *ClockPolicy) Victim(entries []TLBEntry) int {
	for {
		if !entries[p.hand].Valid {
			v := p.hand
			p.hand = (p.hand + 1) % len(p.ref)
			return v
		}
		if !p.ref[p.hand] {
			v := p.hand
			p.hand = (p.hand + 1) % len(p.ref)
			return v
		}
		p.ref[p.hand] = false
		p.hand = (p.hand + 1) % len(p.ref)
	}
}

// SRRIPPolicy implements a static re-reference interval prediction policy
// with a small saturating counter per entry, a cheap approximation of EV6's
// replacement behavior under cache-like pressure.
type SRRIPPolicy struct {
	rrpv []uint8
}

const srripMax = 3

func NewSRRIPPolicy() *SRRIPPolicy { return &SRRIPPolicy{} }
func (p *SRRIPPolicy) Reset(n int) {
	p.rrpv = make([]uint8, n)
	for i := range p.rrpv {
		p.rrpv[i] = srripMax
	}
}
func (p *SRRIPPolicy) Touch(idx int) {
	if idx < len(p.rrpv) && p.rrpv[idx] > 0 {
		p.rrpv[idx]--
	}
}
func (p *SRRIPPolicy) Victim(entries []TLBEntry) int {
	for {
		for i, v := range p.rrpv {
			if !entries[i].Valid || v == srripMax {
				return i
			}
		}
		for i := range p.rrpv {
			if p.rrpv[i] < srripMax {
				p.rrpv[i]++
			}
		}
	}
}

// TLB is a fully-associative translation cache for one of ITB/DTB.
type TLB struct {
	entries []TLBEntry
	policy  EvictionPolicy
	epoch   uint64 // bumped by TBIAP: invalidates every non-global entry lazily
}

// NewTLB allocates a TLB of size entries governed by policy.
func NewTLB(size int, policy EvictionPolicy) *TLB {
	policy.Reset(size)
	return &TLB{entries: make([]TLBEntry, size), policy: policy}
}

func (t *TLB) entryLive(e TLBEntry) bool {
	if !e.Valid {
		return false
	}
	if !e.Global && e.epoch != t.epoch {
		return false
	}
	return true
}

// Lookup searches every size class an entry might have been inserted at,
// since the VPN shift depends on SizeClass.
func (t *TLB) Lookup(va uint64, asn uint16) (PTE, GH, bool) {
	for i, e := range t.entries {
		if !t.entryLive(e) {
			continue
		}
		shift := pageOffsetBits(e.SizeClass)
		if (va >> shift) != e.VPN {
			continue
		}
		if !e.Global && e.ASN != asn {
			continue
		}
		t.policy.Touch(i)
		return e.PTE, e.SizeClass, true
	}
	return PTE{}, 0, false
}

// Insert caches pte for the page containing va at size class g.
func (t *TLB) Insert(va uint64, asn uint16, g GH, pte PTE) {
	shift := pageOffsetBits(g)
	idx := t.policy.Victim(t.entries)
	t.entries[idx] = TLBEntry{
		Valid:     true,
		VPN:       va >> shift,
		ASN:       asn,
		Global:    pte.ASM(),
		SizeClass: g,
		PTE:       pte,
		epoch:     t.epoch,
	}
}

// InvalidateAll implements TBIA: every entry, global or not.
func (t *TLB) InvalidateAll() {
	for i := range t.entries {
		t.entries[i].Valid = false
	}
}

// InvalidateProcess implements TBIAP: every non-global entry, via the lazy
// epoch bump rather than a linear scan, matching spec.md's invalidation
// taxonomy requirement without walking the array on every call.
func (t *TLB) InvalidateProcess() {
	t.epoch++
}

// InvalidateSingle implements TBIS/TBISI/TBISD: the one entry (of any size
// class) that covers va for asn.
func (t *TLB) InvalidateSingle(va uint64, asn uint16) {
	for i, e := range t.entries {
		if !e.Valid {
			continue
		}
		shift := pageOffsetBits(e.SizeClass)
		if (va>>shift) == e.VPN && (e.Global || e.ASN == asn) {
			t.entries[i].Valid = false
		}
	}
}

// Translator walks the three-level page table rooted at PTBR on a TLB miss
// and caches the result.
type Translator struct {
	ITB *TLB
	DTB *TLB
	Mem memory.Memory
	VA  VAMode
}

// NewTranslator builds a translator over mem with the given ITB/DTB sizes
// and eviction policies.
func NewTranslator(mem memory.Memory, itbSize, dtbSize int, itbPolicy, dtbPolicy EvictionPolicy) *Translator {
	return &Translator{
		ITB: NewTLB(itbSize, itbPolicy),
		DTB: NewTLB(dtbSize, dtbPolicy),
		Mem: mem,
		VA:  VA43,
	}
}

const ptesPerPage = 1024 // 8KB page / 8-byte PTE

// levelShift and levelWidth give each page-table level's VA field per
// spec.md's literal "L1 = VPN[29:22], L2 = VPN[21:10], L3 = VPN[9:0]" over a
// VPN counted in 8KB pages -- i.e., relative to VA bit 13: L1 = VA[42:35]
// (8 bits), L2 = VA[34:23] (12 bits), L3 = VA[22:13] (10 bits). Only L3's
// width happens to coincide with a uniform 10/10/10 split; L1 and L2 do not.
var levelShift = [3]uint{35, 23, 13}
var levelWidth = [3]uint{8, 12, 10}

func levelIndex(va uint64, level int) uint64 {
	return bits.Extract(va, levelShift[level], levelWidth[level])
}

// walk performs the 3-level page table lookup from ptbr, returning the leaf
// PTE for the base (8KB) page containing va. Superpage PTEs (GH != 0) are
// recognized at level 1 or level 2 by their GH field, short-circuiting the
// remaining levels, matching EV6's granularity-hint scheme.
func (tr *Translator) walk(ptbr uint64, va uint64) (PTE, GH, FaultCause) {
	tableAddr := ptbr
	for level := 0; level < 3; level++ {
		idx := levelIndex(va, level)
		entryAddr := tableAddr + idx*8
		raw, status := tr.Mem.ReadU64(entryAddr)
		if status != memory.StatusOK {
			return PTE{}, 0, FaultTNV
		}
		pte := PTE{Raw: raw}
		if !pte.Valid() {
			return PTE{}, 0, FaultTNV
		}
		if level < 2 && pte.GH() == 0 {
			tableAddr = pte.PFN() << 13
			continue
		}
		return pte, pte.GH(), FaultNone
	}
	return PTE{}, 0, FaultTNV
}

// Translate resolves va to a physical address for the given access kind and
// privilege mode, consulting tlb first and falling back to a page walk on
// miss. Callers pass DTB or ITB according to whether the access is an
// instruction fetch. The pipeline sends every access through here, PALcode's
// included: addresses inside the PAL_BASE region are not exempted from
// translation.
func (tr *Translator) Translate(tlb *TLB, va uint64, asn uint16, ptbr uint64, mode Mode, kind AccessKind) Result {
	if !IsCanonical(va, tr.VA) {
		return Result{Cause: FaultNotCanonical}
	}

	if pte, _, ok := tlb.Lookup(va, asn); ok {
		return tr.finish(pte, pageOffsetBits(pte.GH()), va, mode, kind, true)
	}

	pte, g, cause := tr.walk(ptbr, va)
	if cause != FaultNone {
		return Result{Cause: cause}
	}
	tlb.Insert(va, asn, g, pte)
	return tr.finish(pte, pageOffsetBits(g), va, mode, kind, false)
}

func (tr *Translator) finish(pte PTE, offsetBits uint, va uint64, mode Mode, kind AccessKind, hit bool) Result {
	var ok bool
	var faultCause FaultCause
	switch kind {
	case AccessRead:
		ok = pte.CanRead(mode)
		faultCause = FaultFOR
	case AccessWrite:
		ok = pte.CanWrite(mode)
		faultCause = FaultFOW
	case AccessExecute:
		ok = pte.CanExecute(mode)
		faultCause = FaultFOE
	}
	if !ok {
		if pte.FOR() && kind == AccessRead || pte.FOW() && kind == AccessWrite || pte.FOE() && kind == AccessExecute {
			return Result{Cause: faultCause, TLBHit: hit}
		}
		return Result{Cause: FaultACV, TLBHit: hit}
	}
	offsetMask := (uint64(1) << offsetBits) - 1
	pa := (pte.PFN() << 13) | (va & offsetMask)
	return Result{PA: pa, Cause: FaultNone, TLBHit: hit}
}
