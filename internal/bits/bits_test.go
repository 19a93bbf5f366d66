package bits

import "testing"

func TestExtractInsert(t *testing.T) {
	tests := []struct {
		v      uint64
		start  uint
		length uint
		want   uint64
	}{
		{0xFF00, 8, 8, 0xFF},
		{0xABCD, 0, 16, 0xABCD},
		{1 << 63, 63, 1, 1},
	}
	for _, tt := range tests {
		if got := Extract(tt.v, tt.start, tt.length); got != tt.want {
			t.Errorf("Extract(%#x,%d,%d) = %#x, want %#x", tt.v, tt.start, tt.length, got, tt.want)
		}
	}

	v := Insert(uint64(0), 8, 8, 0xFF)
	if v != 0xFF00 {
		t.Errorf("Insert = %#x, want 0xFF00", v)
	}
	// Insert must not disturb bits outside the field.
	v = Insert(uint64(0xFFFFFFFF), 8, 8, 0)
	if v != 0xFFFF00FF {
		t.Errorf("Insert clear = %#x, want 0xFFFF00FF", v)
	}
}

func TestSignExtend(t *testing.T) {
	// 21-bit branch displacement, negative.
	raw := uint64(0x1FFFFF) // all ones in 21 bits
	got := SignExtend(raw, 21)
	if got != ^uint64(0) {
		t.Errorf("SignExtend(0x1FFFFF,21) = %#x, want all-ones", got)
	}

	// 16-bit displacement, positive.
	got = SignExtend(0x7FFF, 16)
	if got != 0x7FFF {
		t.Errorf("SignExtend(0x7FFF,16) = %#x, want 0x7FFF", got)
	}

	// 16-bit displacement, negative.
	got = SignExtend(0x8000, 16)
	want := uint64(0xFFFFFFFFFFFF8000)
	if got != want {
		t.Errorf("SignExtend(0x8000,16) = %#x, want %#x", got, want)
	}
}

func TestBit(t *testing.T) {
	if !Bit(0x8000000000000000, 63) {
		t.Error("Bit(1<<63, 63) = false, want true")
	}
	if Bit(0, 0) {
		t.Error("Bit(0, 0) = true, want false")
	}
}

func TestFPCRRoundMode(t *testing.T) {
	f := NewFPCR()
	f.SetRaw(uint64(RoundPlusInf) << 58)
	if f.RoundMode() != RoundPlusInf {
		t.Errorf("RoundMode() = %v, want RoundPlusInf", f.RoundMode())
	}
}

func TestFPCRSetSummary(t *testing.T) {
	f := NewFPCR()
	f.SetSummary(uint64(1) << FPCRINVBit)
	if !f.TrapEnabled(FPCRSumBit) {
		t.Error("expected summary bit set after SetSummary")
	}
	if f.Raw()&(uint64(1)<<FPCRINVBit) == 0 {
		t.Error("expected INV bit preserved in raw")
	}
}

func TestFloatRoundTrip(t *testing.T) {
	v := 3.14159
	if got := Float64FromBits(BitsFromFloat64(v)); got != v {
		t.Errorf("float64 round trip = %v, want %v", got, v)
	}
	v32 := float32(2.71828)
	if got := Float32FromBits(BitsFromFloat32(v32)); got != v32 {
		t.Errorf("float32 round trip = %v, want %v", got, v32)
	}
}
