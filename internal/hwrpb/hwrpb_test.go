package hwrpb

import (
	"testing"

	"github.com/axpcore/ev6/internal/memory"
)

func TestInitWritesFixedFields(t *testing.T) {
	mem := memory.NewFlatMemory(1 << 16)
	h := New(mem, 0x1000)
	h.Init(0x16 /* EV6 CPU type */, 44, 600_000_000, 1)

	if got := h.PhysAddr(); got != 0x1000 {
		t.Errorf("PhysAddr() = %#x, want 0x1000", got)
	}
	if got := h.CPUType(); got != 0x16 {
		t.Errorf("CPUType() = %#x, want 0x16", got)
	}
	if got := h.PAMaxWidth(); got != 44 {
		t.Errorf("PAMaxWidth() = %d, want 44", got)
	}
	if got := h.CycleFreq(); got != 600_000_000 {
		t.Errorf("CycleFreq() = %d, want 600000000", got)
	}
	if got := h.PCSCount(); got != 1 {
		t.Errorf("PCSCount() = %d, want 1", got)
	}
}

func TestFieldsAreIndependentlyAddressed(t *testing.T) {
	mem := memory.NewFlatMemory(1 << 16)
	h := New(mem, 0)
	h.SetCPUType(7)
	h.SetPAMaxWidth(40)
	if h.CycleFreq() != 0 {
		t.Errorf("CycleFreq() = %d, want 0 (untouched field)", h.CycleFreq())
	}
	if h.CPUType() != 7 || h.PAMaxWidth() != 40 {
		t.Error("CPUType/PAMaxWidth did not round-trip independently")
	}
}
