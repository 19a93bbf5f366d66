/*
   Bit/arch primitives for the EV6 core.

   Copyright (c) 2024, Richard Cornwell

   Permission is hereby granted, free of charge, to any person obtaining a
   copy of this software and associated documentation files (the "Software"),
   to deal in the Software without restriction, including without limitation
   the rights to use, copy, modify, merge, publish, distribute, sublicense,
   and/or sell copies of the Software, and to permit persons to whom the
   Software is furnished to do so, subject to the following conditions:

   The above copyright notice and this permission notice shall be included in
   all copies or substantial portions of the Software.

   THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
   IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
   FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.  IN NO EVENT SHALL
   RICHARD CORNWELL BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
   IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
   CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.

*/

// Package bits holds the fixed-width integer helpers shared by every layer
// of the core: sign extension, bit-field extract/insert, and the IEEE-754
// adapters used by the floating point grains.
package bits

import "math"

// Extract returns the Len-bit field of v starting at bit Start.
func Extract(v uint64, start, length uint) uint64 {
	if length >= 64 {
		return v >> start
	}
	mask := (uint64(1) << length) - 1
	return (v >> start) & mask
}

// Extract32 is Extract for a 32-bit word.
func Extract32(v uint32, start, length uint) uint32 {
	if length >= 32 {
		return v >> start
	}
	mask := (uint32(1) << length) - 1
	return (v >> start) & mask
}

// Insert returns v with the Len-bit field at Start replaced by value.
func Insert(v uint64, start, length uint, value uint64) uint64 {
	var mask uint64
	if length >= 64 {
		mask = ^uint64(0)
	} else {
		mask = ((uint64(1) << length) - 1) << start
	}
	return (v &^ mask) | ((value << start) & mask)
}

// Insert32 is Insert for a 32-bit word.
func Insert32(v uint32, start, length uint, value uint32) uint32 {
	var mask uint32
	if length >= 32 {
		mask = ^uint32(0)
	} else {
		mask = ((uint32(1) << length) - 1) << start
	}
	return (v &^ mask) | ((value << start) & mask)
}

// SignExtend sign-extends the low Bits bits of v to a full 64-bit value.
func SignExtend(v uint64, bitWidth uint) uint64 {
	shift := 64 - bitWidth
	return uint64(int64(v<<shift) >> shift)
}

// SignExtend32 sign-extends the low Bits bits of v to a 32-bit value.
func SignExtend32(v uint32, bitWidth uint) uint32 {
	shift := 32 - bitWidth
	return uint32(int32(v<<shift) >> shift)
}

// Bit reports whether bit n of v is set.
func Bit(v uint64, n uint) bool {
	return (v>>n)&1 != 0
}

// Bit32 reports whether bit n of v is set.
func Bit32(v uint32, n uint) bool {
	return (v>>n)&1 != 0
}

// FPCR holds the Floating-Point Control Register state. Only the summary
// and trap-enable bits the core's ARITH dispatch needs are modeled; the
// dynamic rounding-mode field is kept for CVT grains.
type FPCR struct {
	raw uint64
}

// FPCR bit positions (Alpha Architecture Reference Manual, Chapter 4).
const (
	FPCRSumBit  = 63 // Summary bit
	FPCRIOVBit  = 62 // Integer overflow
	FPCRINEBit  = 61 // Inexact
	FPCRUNFBit  = 60 // Underflow
	FPCROVFBit  = 59 // Overflow
	FPCRDZEBit  = 58 // Division by zero
	FPCRINVBit  = 57 // Invalid operation
	FPCROVFEBit = 56 // Overflow trap enable
	FPCRUNFEBit = 55 // Underflow trap enable
	FPCRDZEEBit = 53 // Division-by-zero trap enable
	FPCRINVEBit = 52 // Invalid-operation trap enable
	FPCRDNZBit  = 50 // Denormal-to-zero
	FPCRDYNStart = 58 // historical alias unused; see RoundMode below
)

// RoundMode extracted from FPCR<59:58>.
type RoundMode uint8

const (
	RoundChopped RoundMode = iota
	RoundMinusInf
	RoundNormal
	RoundPlusInf
)

func NewFPCR() *FPCR { return &FPCR{} }

func (f *FPCR) Raw() uint64     { return f.raw }
func (f *FPCR) SetRaw(v uint64) { f.raw = v & 0xFFFFFFFFFFFF0000 }

func (f *FPCR) RoundMode() RoundMode {
	return RoundMode(Extract(f.raw, 58, 2))
}

func (f *FPCR) TrapEnabled(bit uint) bool {
	return Bit(f.raw, bit)
}

// SetSummary ORs the given exception-summary bits into FPCR and sets SUM.
func (f *FPCR) SetSummary(bits uint64) {
	f.raw |= bits
	f.raw |= uint64(1) << FPCRSumBit
}

// Float64FromBits / Float32FromBits adapt the IEEE-754 bit patterns Alpha's
// T/S format loads and stores carry into Go's native float types, and back.
func Float64FromBits(v uint64) float64 { return math.Float64frombits(v) }
func BitsFromFloat64(v float64) uint64 { return math.Float64bits(v) }
func Float32FromBits(v uint32) float32 { return math.Float32frombits(v) }
func BitsFromFloat32(v float32) uint32 { return math.Float32bits(v) }
