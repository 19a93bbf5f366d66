package cpustate

import "testing"

func TestR31AlwaysZero(t *testing.T) {
	s := New()
	s.SetGPR(31, 0xDEADBEEF)
	if got := s.GPR(31); got != 0 {
		t.Errorf("GPR(31) = %#x after write, want 0", got)
	}
	if got := s.GPR(5); got != 0 {
		t.Errorf("GPR(5) initial = %#x, want 0", got)
	}
	s.SetGPR(5, 42)
	if got := s.GPR(5); got != 42 {
		t.Errorf("GPR(5) = %d, want 42", got)
	}
}

func TestF31AlwaysZero(t *testing.T) {
	s := New()
	s.SetFPR(31, 1)
	if s.FPR(31) != 0 {
		t.Error("FPR(31) not pinned to zero")
	}
}

func TestPALBaseAlignmentInvariant(t *testing.T) {
	s := New()
	ev := s.WriteIPR(IPR_PAL_BASE, 0x12345)
	if s.PALBase()&0x3FFF != 0 {
		t.Errorf("PALBase() = %#x, low 14 bits not clear", s.PALBase())
	}
	if ev.Kind != EventPALBaseChanged {
		t.Errorf("first PAL_BASE write: event = %v, want EventPALBaseChanged", ev.Kind)
	}
}

func TestPALBaseNoEventOnSameRegion(t *testing.T) {
	s := New()
	s.WriteIPR(IPR_PAL_BASE, 0x10000)
	// Write again with only low bits differing: same 16KB-aligned region.
	ev := s.WriteIPR(IPR_PAL_BASE, 0x10001)
	if ev.Kind != EventNone {
		t.Errorf("same-region PAL_BASE write: event = %v, want EventNone", ev.Kind)
	}
}

func TestShadowGatingIndependent(t *testing.T) {
	s := New()
	s.SetGPR(8, 0x1111) // R8 architected value, SDE<0> bank
	s.SetGPR(4, 0x2222) // R4 architected value, SDE<1> bank

	s.EnterPAL(true, false) // only SDE<0> enabled
	if s.GPR(4) != 0x2222 {
		t.Errorf("SDE<1> disabled: R4 = %#x, want unchanged 0x2222", s.GPR(4))
	}
	if s.GPR(8) == 0x1111 {
		t.Error("SDE<0> enabled: R8 should have been swapped to the shadow bank")
	}
	s.ExitPAL(true, false)
	if s.GPR(8) != 0x1111 {
		t.Errorf("after ExitPAL: R8 = %#x, want restored 0x1111", s.GPR(8))
	}
}

func TestIgnoreSDE0Config(t *testing.T) {
	s := New()
	s.Config.IgnoreSDE0 = true
	s.SetGPR(8, 0x1111)
	s.EnterPAL(true, true)
	if s.GPR(8) != 0x1111 {
		t.Error("IgnoreSDE0 set: R8 should not have been swapped")
	}
}

func TestICFlushEvent(t *testing.T) {
	s := New()
	ev := s.WriteIPR(IPR_IC_FLUSH, 1)
	if ev.Kind != EventICFlush {
		t.Errorf("IC_FLUSH write: event = %v, want EventICFlush", ev.Kind)
	}
}

func TestIPLWriteUpdatesPS(t *testing.T) {
	s := New() // New() leaves PS.IPL at 31
	ev := s.WriteIPR(IPR_IPL, 4)
	if s.PS.IPL != 4 {
		t.Errorf("PS.IPL = %d, want 4", s.PS.IPL)
	}
	if ev.Kind != EventIPLChanged {
		t.Errorf("event = %v, want EventIPLChanged", ev.Kind)
	}
	if ev.OldValue != 31 || ev.NewValue != 4 {
		t.Errorf("event old/new = %d/%d, want 31/4", ev.OldValue, ev.NewValue)
	}
}

func TestIPLWriteMasksToFiveBits(t *testing.T) {
	s := New()
	s.WriteIPR(IPR_IPL, 0xFF)
	if s.PS.IPL != 0x1F {
		t.Errorf("PS.IPL = %#x, want 0x1F (masked to 5 bits)", s.PS.IPL)
	}
}

func TestIPLWriteSameLevelNoEvent(t *testing.T) {
	s := New()
	s.WriteIPR(IPR_IPL, 7)
	ev := s.WriteIPR(IPR_IPL, 7)
	if ev.Kind != EventNone {
		t.Errorf("same-level IPL write: event = %v, want EventNone", ev.Kind)
	}
}

func TestIPLReadReflectsLastWrite(t *testing.T) {
	s := New()
	s.WriteIPR(IPR_IPL, 9)
	if got := s.ReadIPR(IPR_IPL); got != 9 {
		t.Errorf("ReadIPR(IPR_IPL) = %d, want 9", got)
	}
}
