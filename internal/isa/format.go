// Package isa holds the instruction decoder and the grain (micro-op handler)
// registry: the two-level opcode/function lookup that turns a raw 32-bit
// Alpha instruction word into a dispatchable grain descriptor.
package isa

import "github.com/axpcore/ev6/internal/bits"

// Format identifies which of the six Alpha instruction encodings a raw word
// uses. Every opcode value maps to exactly one Format; the mapping is fixed
// by the architecture, not by the function code.
type Format uint8

const (
	FormatMemory Format = iota
	FormatBranch
	FormatOperate
	FormatFloatOperate
	FormatJump
	FormatPAL
	FormatMisc
)

// Decoded is the immutable field extraction of a raw instruction word. It
// never fails: every 32-bit pattern decodes to some Decoded value, with
// unused fields left zero for formats that do not carry them. Validity of
// the resulting opcode/function pair is a grain-registry concern, not a
// decode concern.
type Decoded struct {
	Raw      uint32
	Opcode   uint8 // bits 31:26, every format
	Ra       uint8 // bits 25:21, memory/branch/operate/jump/float
	Rb       uint8 // bits 20:16, memory/operate/jump/float
	Function uint8 // operate: bits 11:5 (7 bit); float operate uses FloatFn (bits 15:5, 11 bit)
	FloatFn  uint16
	Rc       uint8 // bits 4:0, operate/float
	Literal  uint8 // operate literal form, bits 20:13
	IsLit    bool  // operate literal-operand bit 12
	Disp16   int64 // memory format, sign-extended bits 15:0
	Disp21   int64 // branch format, sign-extended bits 20:0, word-aligned target delta
	Hint     uint16
	PALFunc  uint32 // PAL format, bits 25:0
}

// Decode extracts every field a grain might need from raw. It is a pure
// function of the bit pattern: the instruction's Format (and therefore which
// fields are meaningful) is determined afterward by the grain registry
// lookup on Opcode.
func Decode(raw uint32) Decoded {
	d := Decoded{Raw: raw}
	d.Opcode = uint8(bits.Extract32(raw, 26, 6))
	d.Ra = uint8(bits.Extract32(raw, 21, 5))
	d.Rb = uint8(bits.Extract32(raw, 16, 5))
	d.Rc = uint8(bits.Extract32(raw, 0, 5))
	d.Function = uint8(bits.Extract32(raw, 5, 7))
	d.FloatFn = uint16(bits.Extract32(raw, 5, 11))
	d.Literal = uint8(bits.Extract32(raw, 13, 8))
	d.IsLit = bits.Bit32(raw, 12)
	d.Disp16 = int64(bits.SignExtend32(uint32(bits.Extract32(raw, 0, 16)), 16))
	d.Disp21 = int64(bits.SignExtend32(uint32(bits.Extract32(raw, 0, 21)), 21)) << 2
	d.Hint = uint16(bits.Extract32(raw, 0, 14))
	d.PALFunc = bits.Extract32(raw, 0, 26)
	return d
}

// Encode reassembles a raw instruction word from a Decoded value and the
// Format that was used to populate it, the inverse used by the
// encode(decode(raw))==raw testable property. Only the fields meaningful to
// the given format are consulted.
func Encode(d Decoded, f Format) uint32 {
	raw := uint32(d.Opcode) << 26
	switch f {
	case FormatMemory:
		raw |= uint32(d.Ra) << 21
		raw |= uint32(d.Rb) << 16
		raw |= uint32(d.Disp16) & 0xFFFF
	case FormatBranch:
		raw |= uint32(d.Ra) << 21
		raw |= (uint32(d.Disp21>>2) & 0x1FFFFF)
	case FormatOperate:
		raw |= uint32(d.Ra) << 21
		if d.IsLit {
			raw |= uint32(d.Literal) << 13
			raw |= 1 << 12
		} else {
			raw |= uint32(d.Rb) << 16
		}
		raw |= uint32(d.Function) << 5
		raw |= uint32(d.Rc)
	case FormatFloatOperate:
		raw |= uint32(d.Ra) << 21
		raw |= uint32(d.Rb) << 16
		raw |= uint32(d.FloatFn) << 5
		raw |= uint32(d.Rc)
	case FormatJump:
		raw |= uint32(d.Ra) << 21
		raw |= uint32(d.Rb) << 16
		raw |= uint32(d.Disp16) & 0xFFFF
	case FormatPAL:
		raw |= d.PALFunc & 0x3FFFFFF
	case FormatMisc:
		raw |= uint32(d.Ra) << 21
		raw |= uint32(d.Rb) << 16
		raw |= uint32(d.Disp16) & 0xFFFF
	}
	return raw
}
