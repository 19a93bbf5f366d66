package isa

import "testing"

func TestDecodeEncodeRoundTripOperate(t *testing.T) {
	// ADDQ R1,R2,R3 register form: opcode 0x10, function 0x20.
	raw := uint32(0x10<<26) | uint32(1<<21) | uint32(2<<16) | uint32(0x20<<5) | uint32(3)
	d := Decode(raw)
	if d.Opcode != 0x10 || d.Ra != 1 || d.Rb != 2 || d.Function != 0x20 || d.Rc != 3 {
		t.Fatalf("decode mismatch: %+v", d)
	}
	got := Encode(d, FormatOperate)
	if got != raw {
		t.Errorf("Encode(Decode(%#x)) = %#x, want %#x", raw, got, raw)
	}
}

func TestDecodeEncodeRoundTripMemory(t *testing.T) {
	raw := uint32(0x28<<26) | uint32(4<<21) | uint32(5<<16) | uint32(0xFFF8&0xFFFF)
	d := Decode(raw)
	got := Encode(d, FormatMemory)
	if got != raw {
		t.Errorf("Encode(Decode(%#x)) = %#x, want %#x", raw, got, raw)
	}
}

func TestDecodeEncodeRoundTripBranch(t *testing.T) {
	// Negative displacement exercises the sign-extend/shift path.
	raw := uint32(0x39<<26) | uint32(1<<21) | (uint32(0x1FFFFF) & 0x1FFFFF)
	d := Decode(raw)
	got := Encode(d, FormatBranch)
	if got != raw {
		t.Errorf("Encode(Decode(%#x)) = %#x, want %#x", raw, got, raw)
	}
}

func TestLookupTotal(t *testing.T) {
	// Every possible opcode byte must resolve to some grain, never panic.
	for op := 0; op < 64; op++ {
		for fn := 0; fn < 8; fn++ {
			raw := uint32(op<<26) | uint32(fn<<5)
			d := Decode(raw)
			g := Lookup(d)
			if g.Name == "" {
				t.Fatalf("opcode %#x function %#x: empty grain name", op, fn)
			}
		}
	}
}

func TestLookupKnownGrains(t *testing.T) {
	cases := []struct {
		raw  uint32
		name string
	}{
		{uint32(0x10<<26) | uint32(0x00<<5), "ADDL"},
		{uint32(0x11<<26) | uint32(0x20<<5), "BIS"},
		{uint32(0x08 << 26), "LDA"},
		{uint32(0x30 << 26), "BR"},
		{uint32(0x1A<<26) | uint32(1<<14), "JSR"},
		{uint32(0x16<<26) | uint32(0x0A5<<5), "CMPTEQ"},
	}
	for _, c := range cases {
		g := Lookup(Decode(c.raw))
		if g.Name != c.name {
			t.Errorf("raw %#x: got %q, want %q", c.raw, g.Name, c.name)
		}
	}
}

func TestReservedGrainsRaiseIllegal(t *testing.T) {
	// FLTV opcode 0x15 function 0x000 is a VAX-float grain: decodable, but
	// its Class must be ClassIllegal so the pipeline raises OPCDEC.
	g := Lookup(Decode(uint32(0x15 << 26)))
	if g.Class != ClassIllegal {
		t.Errorf("vax-float grain Class = %v, want ClassIllegal", g.Class)
	}
}

func TestCallPalGenericDispatch(t *testing.T) {
	raw := uint32(0x00<<26) | uint32(0xAA) // an arbitrary OSF PALcode function
	g := Lookup(Decode(raw))
	if g.Name != "CALL_PAL" {
		t.Errorf("CALL_PAL dispatch = %q, want CALL_PAL", g.Name)
	}
}

func TestChmxReservedUnderPal(t *testing.T) {
	raw := uint32(0x00<<26) | uint32(0x83)
	// 0x83 collides with both a generic OSF function and the VMS CHMK slot;
	// the registry must prefer the explicit reserved entry.
	g := Lookup(Decode(raw))
	if g.Name != "CHMK" {
		t.Errorf("got %q, want CHMK (reserved)", g.Name)
	}
	if g.Class != ClassIllegal {
		t.Errorf("CHMK Class = %v, want ClassIllegal", g.Class)
	}
}
