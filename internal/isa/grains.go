package isa

import "github.com/axpcore/ev6/internal/bits"

// Class groups grains by the kind of pipeline handling they need. The
// pipeline driver switches on Class to pick the execute stage's shape
// (integer ALU, float ALU, memory access, control transfer, PAL entry).
type Class uint8

const (
	ClassIllegal Class = iota
	ClassInteger
	ClassFloat
	ClassIntFloatConvert
	ClassMemory
	ClassBranch
	ClassFBranch
	ClassJump
	ClassPAL
	ClassMisc
	ClassPALPriv // HW_MFPR/HW_MTPR/HW_LD/HW_ST/HW_REI
)

// Grain is an immutable descriptor for one decoded Alpha instruction. The
// registry never returns nil: an opcode/function pair with no matching
// entry resolves to the shared illegalGrain, whose Class is ClassIllegal and
// whose Name is "(reserved)" — the pipeline driver raises OPCDEC for it. The
// exception is CALL_PAL, whose unlisted function codes resolve to the
// generic CALL_PAL grain.
type Grain struct {
	Name     string
	Opcode   uint8
	Function uint32
	Format   Format
	Class    Class
}

var illegalGrain = Grain{Name: "(reserved)", Class: ClassIllegal}

type grainKey struct {
	opcode   uint8
	function uint32
}

var registry = make(map[grainKey]Grain)

// opcodeFormat maps each of the 64 possible 6-bit opcodes to the format used
// to extract its function-discriminator field (if any). Opcodes with no
// entry default to FormatMisc, matching "unassigned" major opcodes which
// carry no further structure and always miss the registry.
var opcodeFormat = map[uint8]Format{
	0x00: FormatPAL,
	0x08: FormatMemory, 0x09: FormatMemory, 0x0A: FormatMemory, 0x0B: FormatMemory,
	0x0C: FormatMemory, 0x0D: FormatMemory, 0x0E: FormatMemory, 0x0F: FormatMemory,
	0x10: FormatOperate, 0x11: FormatOperate, 0x12: FormatOperate, 0x13: FormatOperate,
	0x14: FormatFloatOperate, 0x15: FormatFloatOperate, 0x16: FormatFloatOperate, 0x17: FormatFloatOperate,
	0x18: FormatMisc,
	0x19: FormatMemory, // HW_MFPR (PALcode-internal, memory-like encoding)
	0x1A: FormatJump,
	0x1B: FormatMemory, // HW_LD
	0x1C: FormatOperate,
	0x1D: FormatMemory, // HW_MTPR
	0x1E: FormatMemory, // HW_REI
	0x1F: FormatMemory, // HW_ST
	0x20: FormatMemory, 0x21: FormatMemory, 0x22: FormatMemory, 0x23: FormatMemory,
	0x24: FormatMemory, 0x25: FormatMemory, 0x26: FormatMemory, 0x27: FormatMemory,
	0x28: FormatMemory, 0x29: FormatMemory, 0x2A: FormatMemory, 0x2B: FormatMemory,
	0x2C: FormatMemory, 0x2D: FormatMemory, 0x2E: FormatMemory, 0x2F: FormatMemory,
	0x30: FormatBranch, 0x31: FormatBranch, 0x32: FormatBranch, 0x33: FormatBranch,
	0x34: FormatBranch, 0x35: FormatBranch, 0x36: FormatBranch, 0x37: FormatBranch,
	0x38: FormatBranch, 0x39: FormatBranch, 0x3A: FormatBranch, 0x3B: FormatBranch,
	0x3C: FormatBranch, 0x3D: FormatBranch, 0x3E: FormatBranch, 0x3F: FormatBranch,
}

// FormatOf returns the format used to interpret opcode, defaulting to
// FormatMisc for the unassigned major opcodes.
func FormatOf(opcode uint8) Format {
	if f, ok := opcodeFormat[opcode]; ok {
		return f
	}
	return FormatMisc
}

// FunctionKey computes the secondary lookup key for a decoded instruction,
// given the format its opcode resolved to. Memory and branch formats carry
// no function field distinct from the opcode, so their key is always 0.
func FunctionKey(d Decoded, f Format) uint32 {
	switch f {
	case FormatOperate:
		return uint32(d.Function)
	case FormatFloatOperate:
		return uint32(d.FloatFn)
	case FormatJump:
		return uint32(bits.Extract32(d.Raw, 14, 2))
	case FormatPAL:
		return d.PALFunc
	case FormatMisc:
		return uint32(bits.Extract32(d.Raw, 0, 16))
	default:
		return 0
	}
}

// Lookup resolves a decoded instruction to its Grain. It is total: an
// unregistered opcode/function pair returns illegalGrain rather than an
// error, matching spec.md §4.2's requirement that the registry resolve any
// combination.
func Lookup(d Decoded) Grain {
	f := FormatOf(d.Opcode)
	fn := FunctionKey(d, f)
	key := grainKey{opcode: d.Opcode, function: fn}
	if g, ok := registry[key]; ok {
		return g
	}
	// CALL_PAL's 26-bit function selects a PAL_BASE-relative vector, not a
	// distinct grain; any function code not claimed by the VMS CHMx reserved
	// slots dispatches through the single generic PAL grain.
	if f == FormatPAL {
		return registry[grainKey{opcode: 0x00, function: 0}]
	}
	return illegalGrain
}

func register(name string, opcode uint8, function uint32, format Format, class Class) {
	registry[grainKey{opcode: opcode, function: function}] = Grain{
		Name: name, Opcode: opcode, Function: function, Format: format, Class: class,
	}
}

// registerReserved marks every opcode/function slot in a VAX-float or
// privileged call-change-mode family as decodable but non-executing: the
// grain exists (keeping the opcode/function space total) but its Class is
// ClassIllegal, so the pipeline raises OPCDEC exactly as for a true reserved
// opcode. See SPEC_FULL.md §C.7 for why this core does not execute them.
func registerReserved(name string, opcode uint8, function uint32, format Format) {
	registry[grainKey{opcode: opcode, function: function}] = Grain{
		Name: name, Opcode: opcode, Function: function, Format: format, Class: ClassIllegal,
	}
}

func init() {
	registerMemoryGrains()
	registerIntegerGrains()
	registerFloatGrains()
	registerBranchGrains()
	registerJumpGrains()
	registerMiscGrains()
	registerPALGrains()
	registerReservedFamilies()
}

func registerMemoryGrains() {
	register("LDA", 0x08, 0, FormatMemory, ClassMemory)
	register("LDAH", 0x09, 0, FormatMemory, ClassMemory)
	register("LDBU", 0x0A, 0, FormatMemory, ClassMemory)
	register("LDQ_U", 0x0B, 0, FormatMemory, ClassMemory)
	register("LDWU", 0x0C, 0, FormatMemory, ClassMemory)
	register("STW", 0x0D, 0, FormatMemory, ClassMemory)
	register("STB", 0x0E, 0, FormatMemory, ClassMemory)
	register("STQ_U", 0x0F, 0, FormatMemory, ClassMemory)
	register("LDF", 0x20, 0, FormatMemory, ClassMemory)
	register("LDG", 0x21, 0, FormatMemory, ClassMemory)
	register("LDS", 0x22, 0, FormatMemory, ClassMemory)
	register("LDT", 0x23, 0, FormatMemory, ClassMemory)
	register("STF", 0x24, 0, FormatMemory, ClassMemory)
	register("STG", 0x25, 0, FormatMemory, ClassMemory)
	register("STS", 0x26, 0, FormatMemory, ClassMemory)
	register("STT", 0x27, 0, FormatMemory, ClassMemory)
	register("LDL", 0x28, 0, FormatMemory, ClassMemory)
	register("LDQ", 0x29, 0, FormatMemory, ClassMemory)
	register("LDL_L", 0x2A, 0, FormatMemory, ClassMemory)
	register("LDQ_L", 0x2B, 0, FormatMemory, ClassMemory)
	register("STL", 0x2C, 0, FormatMemory, ClassMemory)
	register("STQ", 0x2D, 0, FormatMemory, ClassMemory)
	register("STL_C", 0x2E, 0, FormatMemory, ClassMemory)
	register("STQ_C", 0x2F, 0, FormatMemory, ClassMemory)

	register("HW_MFPR", 0x19, 0, FormatMemory, ClassPALPriv)
	register("HW_LD", 0x1B, 0, FormatMemory, ClassPALPriv)
	register("HW_MTPR", 0x1D, 0, FormatMemory, ClassPALPriv)
	register("HW_REI", 0x1E, 0, FormatMemory, ClassPALPriv)
	register("HW_ST", 0x1F, 0, FormatMemory, ClassPALPriv)
}

func registerIntegerGrains() {
	// INTA (0x10): add/sub/compare, overflow-checked variants included.
	ia := map[uint32]string{
		0x00: "ADDL", 0x02: "S4ADDL", 0x09: "SUBL", 0x0B: "S4SUBL", 0x0F: "CMPBGE",
		0x12: "S8ADDL", 0x1B: "S8SUBL", 0x1D: "CMPULT",
		0x20: "ADDQ", 0x22: "S4ADDQ", 0x29: "SUBQ", 0x2B: "S4SUBQ", 0x2D: "CMPEQ",
		0x32: "S8ADDQ", 0x3B: "S8SUBQ", 0x3D: "CMPULE",
		0x40: "ADDL_V", 0x49: "SUBL_V", 0x4D: "CMPLT",
		0x60: "ADDQ_V", 0x69: "SUBQ_V", 0x6D: "CMPLE",
	}
	for fn, name := range ia {
		register(name, 0x10, fn, FormatOperate, ClassInteger)
	}

	// INTL (0x11): logical and conditional move.
	il := map[uint32]string{
		0x00: "AND", 0x08: "BIC", 0x14: "CMOVLBS", 0x16: "CMOVLBC",
		0x20: "BIS", 0x24: "CMOVEQ", 0x26: "CMOVNE", 0x28: "ORNOT",
		0x40: "XOR", 0x44: "CMOVLT", 0x46: "CMOVGE", 0x48: "EQV",
		0x61: "AMASK", 0x64: "CMOVLE", 0x66: "CMOVGT", 0x6C: "IMPLVER",
	}
	for fn, name := range il {
		register(name, 0x11, fn, FormatOperate, ClassInteger)
	}

	// INTS (0x12): byte/word masks, shifts.
	is := map[uint32]string{
		0x02: "MSKBL", 0x06: "EXTBL", 0x0B: "INSBL",
		0x12: "MSKWL", 0x16: "EXTWL", 0x1B: "INSWL",
		0x22: "MSKLL", 0x26: "EXTLL", 0x2B: "INSLL",
		0x30: "ZAP", 0x31: "ZAPNOT", 0x32: "MSKQL", 0x34: "SRL",
		0x36: "EXTQL", 0x39: "SLL", 0x3B: "INSQL", 0x3C: "SRA",
		0x52: "MSKWH", 0x57: "INSWH", 0x5A: "EXTWH",
		0x62: "MSKLH", 0x67: "INSLH", 0x6A: "EXTLH",
		0x72: "MSKQH", 0x77: "INSQH", 0x7A: "EXTQH",
	}
	for fn, name := range is {
		register(name, 0x12, fn, FormatOperate, ClassInteger)
	}

	// INTM (0x13): multiply.
	im := map[uint32]string{
		0x00: "MULL", 0x20: "MULQ", 0x30: "UMULH", 0x40: "MULL_V", 0x60: "MULQ_V",
	}
	for fn, name := range im {
		register(name, 0x13, fn, FormatOperate, ClassInteger)
	}

	// FPTI (0x1C): byte/word manipulation and population count, operate-format
	// but acting on integer regs; also VAX/IEEE round-to-integer converts.
	fpti := map[uint32]string{
		0x00: "SEXTB", 0x01: "SEXTW", 0x30: "CTPOP", 0x31: "PERR",
		0x32: "CTLZ", 0x33: "CTTZ", 0x34: "UNPKBW", 0x35: "UNPKBL",
		0x36: "PKWB", 0x37: "PKLB", 0x38: "MINSB8", 0x39: "MINSW4",
		0x3A: "MINUB8", 0x3B: "MINUW4", 0x3C: "MAXUB8", 0x3D: "MAXUW4",
		0x3E: "MAXSB8", 0x3F: "MAXSW4",
	}
	for fn, name := range fpti {
		register(name, 0x1C, fn, FormatOperate, ClassInteger)
	}
	register("FTOIT", 0x1C, 0x70, FormatOperate, ClassIntFloatConvert)
	register("FTOIS", 0x1C, 0x78, FormatOperate, ClassIntFloatConvert)
}

func registerFloatGrains() {
	// FLTI (0x16): IEEE S/T format arithmetic and compare.
	fi := map[uint32]string{
		0x080: "ADDS", 0x081: "SUBS", 0x082: "MULS", 0x083: "DIVS",
		0x0A0: "ADDT", 0x0A1: "SUBT", 0x0A2: "MULT", 0x0A3: "DIVT",
		0x0A4: "CMPTUN", 0x0A5: "CMPTEQ", 0x0A6: "CMPTLT", 0x0A7: "CMPTLE",
		0x0AC: "CVTTS", 0x0AF: "CVTTQ", 0x0BC: "CVTQS", 0x0BE: "CVTQT",
	}
	for fn, name := range fi {
		register(name, 0x16, fn, FormatFloatOperate, ClassFloat)
	}

	// FLTL (0x17): register-move, copy-sign, conditional move, int<->float.
	fl := map[uint32]string{
		0x010: "CVTLQ", 0x020: "CPYS", 0x021: "CPYSN", 0x022: "CPYSE",
		0x024: "MT_FPCR", 0x025: "MF_FPCR",
		0x02A: "FCMOVEQ", 0x02B: "FCMOVNE", 0x02C: "FCMOVLT",
		0x02D: "FCMOVGE", 0x02E: "FCMOVLE", 0x02F: "FCMOVGT",
		0x130: "CVTQL",
	}
	for fn, name := range fl {
		register(name, 0x17, fn, FormatFloatOperate, ClassFloat)
	}
}

func registerBranchGrains() {
	br := map[uint8]string{
		0x30: "BR", 0x34: "BSR",
		0x38: "BLBC", 0x39: "BEQ", 0x3A: "BLT", 0x3B: "BLE",
		0x3C: "BLBS", 0x3D: "BNE", 0x3E: "BGE", 0x3F: "BGT",
	}
	for op, name := range br {
		register(name, op, 0, FormatBranch, ClassBranch)
	}
	fbr := map[uint8]string{
		0x31: "FBEQ", 0x32: "FBLT", 0x33: "FBLE",
		0x35: "FBNE", 0x36: "FBGE", 0x37: "FBGT",
	}
	for op, name := range fbr {
		register(name, op, 0, FormatBranch, ClassFBranch)
	}
}

func registerJumpGrains() {
	jmp := map[uint32]string{0: "JMP", 1: "JSR", 2: "RET", 3: "JSR_COROUTINE"}
	for fn, name := range jmp {
		register(name, 0x1A, fn, FormatJump, ClassJump)
	}
}

func registerMiscGrains() {
	misc := map[uint32]string{
		0x0000: "TRAPB", 0x0400: "EXCB", 0x4000: "MB", 0x4400: "WMB",
		0x8000: "FETCH", 0xA000: "FETCH_M", 0xC000: "RPCC",
		0xE000: "RC", 0xE800: "ECB", 0xF000: "RS",
		0xF800: "WH64", 0xFC00: "WH64EN",
	}
	for fn, name := range misc {
		register(name, 0x18, fn, FormatMisc, ClassMisc)
	}
}

func registerPALGrains() {
	// CALL_PAL dispatches entirely through the low 26 function bits, which
	// select a PAL_BASE-relative vector rather than naming a grain; one
	// generic entry covers every legal function code. Vector resolution and
	// the standard/privileged-function split live in internal/pal.
	register("CALL_PAL", 0x00, 0, FormatPAL, ClassPAL)
}

// registerReservedFamilies fills in the VAX floating-point opcodes (FLTV,
// ITFP) and the VMS call-change-mode family with decodable-but-illegal
// grains, per SPEC_FULL.md §C.7.
func registerReservedFamilies() {
	vaxFn := []uint32{
		0x000, 0x001, 0x020, 0x021, 0x022, 0x02A, 0x040, 0x045, 0x060, 0x065,
		0x0A5, 0x0A6, 0x0A7, 0x1AC, 0x1AD,
	}
	for _, fn := range vaxFn {
		registerReserved("(vax-float)", 0x15, fn, FormatFloatOperate)
	}
	registerReserved("(itfp)", 0x14, 0, FormatFloatOperate)

	// CHMK/CHMS/CHMU/CHME are encoded as CALL_PAL-like privileged calls in
	// the VMS PALcode variant; this core only implements the OSF/Tru64-style
	// PALcode base, so their function slots resolve to illegal rather than
	// a second PAL dispatch table.
	chm := map[uint32]string{0x83: "CHMK", 0x84: "CHME", 0x85: "CHMS", 0x86: "CHMU"}
	for fn, name := range chm {
		registerReserved(name, 0x00, fn, FormatPAL)
	}
}
