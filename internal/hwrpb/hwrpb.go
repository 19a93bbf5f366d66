// Package hwrpb defines the fixed-layout HWRPB (Hardware Restart Parameter
// Block) and per-CPU HWPCB structures the console and PALcode publish and
// consume. Populating these from an actual SRM ROM image is outside this
// module's scope (spec.md §6); this package owns only the layout and the
// accessors a boot-time wiring step needs to build one in guest memory.
package hwrpb

import "github.com/axpcore/ev6/internal/memory"

// Field byte offsets within the HWRPB, per the Alpha SRM console
// specification's fixed layout.
const (
	OffPhysAddr    = 0x00 // self-referential physical address
	OffChecksum    = 0x08
	OffRevision    = 0x10
	OffSize        = 0x18
	OffCPUType     = 0x20
	OffSystemType  = 0x28
	OffSystemVar   = 0x30
	OffIntrFreq    = 0x50
	OffCycleFreq   = 0x58
	OffVPTB        = 0x60 // virtual page table base
	OffTBHintOff   = 0x70
	OffPAMaxWidth  = 0x100 // physical address width, pa_size in SPEC_FULL.md §C.1
	OffPCSOffset   = 0x78
	OffPCSCount    = 0x80
	Size           = 0x200
)

// HWRPB is a thin view over a fixed region of guest physical memory. It
// holds no copy of the data; every accessor reads or writes through mem,
// matching the teacher's convention of treating firmware structures as
// memory-resident rather than host-resident.
type HWRPB struct {
	Mem  memory.Memory
	Base uint64
}

func New(mem memory.Memory, base uint64) *HWRPB {
	return &HWRPB{Mem: mem, Base: base}
}

func (h *HWRPB) PhysAddr() uint64 { v, _ := h.Mem.ReadU64(h.Base + OffPhysAddr); return v }
func (h *HWRPB) SetPhysAddr(v uint64) { h.Mem.WriteU64(h.Base+OffPhysAddr, v) }

func (h *HWRPB) CPUType() uint64 { v, _ := h.Mem.ReadU64(h.Base + OffCPUType); return v }
func (h *HWRPB) SetCPUType(v uint64) { h.Mem.WriteU64(h.Base+OffCPUType, v) }

func (h *HWRPB) PAMaxWidth() uint64 { v, _ := h.Mem.ReadU64(h.Base + OffPAMaxWidth); return v }
func (h *HWRPB) SetPAMaxWidth(v uint64) { h.Mem.WriteU64(h.Base+OffPAMaxWidth, v) }

func (h *HWRPB) CycleFreq() uint64 { v, _ := h.Mem.ReadU64(h.Base + OffCycleFreq); return v }
func (h *HWRPB) SetCycleFreq(v uint64) { h.Mem.WriteU64(h.Base+OffCycleFreq, v) }

func (h *HWRPB) PCSCount() uint64 { v, _ := h.Mem.ReadU64(h.Base + OffPCSCount); return v }
func (h *HWRPB) SetPCSCount(v uint64) { h.Mem.WriteU64(h.Base+OffPCSCount, v) }

// Init writes the fixed fields a boot-time wiring step needs: the
// self-referential physical address, this core's CPU type identifier,
// physical address width, and the per-tick cycle frequency.
func (h *HWRPB) Init(cpuType uint64, paWidth uint64, cycleFreq uint64, pcsCount uint64) {
	h.SetPhysAddr(h.Base)
	h.SetCPUType(cpuType)
	h.SetPAMaxWidth(paWidth)
	h.SetCycleFreq(cycleFreq)
	h.SetPCSCount(pcsCount)
}

// HWPCB is the per-CPU Hardware Process Control Block: the minimal state
// PALcode context-switches by saving/restoring, rather than the full
// architected register file (which lives in cpustate.State).
type HWPCB struct {
	KSP    uint64 // kernel stack pointer
	ESP    uint64
	SSP    uint64
	USP    uint64
	PTBR   uint64
	ASN    uint16
	ASTSR  uint8
	ASTEN  uint8
	FEN    bool // floating-point enable
	CC     uint64 // cycle counter offset
}
