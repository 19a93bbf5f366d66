/*
   Guest physical memory boundary.

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

// Package memory defines the guest physical memory boundary contract the
// translation engine and pipeline driver call through. Concrete backing
// stores (MMIO-aware, device-mapped, persisted) live outside this module's
// scope; FlatMemory is the minimal reference implementation this package
// ships so the core's own tests have something to drive against, adapted
// from the teacher's fixed flat-array memory model. Alpha has no
// storage-protection-key mechanism, so the teacher's per-page key byte array
// has no analogue here: access control is entirely the PTE permission bits
// internal/mmu already models.
package memory

import "fmt"

// Status reports the outcome of a guest physical access.
type Status uint8

const (
	StatusOK Status = iota
	StatusOutOfRange
	StatusUnaligned
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusOutOfRange:
		return "out of range"
	case StatusUnaligned:
		return "unaligned"
	default:
		return fmt.Sprintf("Status(%d)", s)
	}
}

// Memory is the boundary contract spec.md §6 places outside the core's
// implementation scope: something that can be read and written in byte,
// 32-bit and 64-bit naturally-aligned units at a guest physical address.
// Nothing in this module decides how those bytes are backed.
type Memory interface {
	Size() uint64
	ReadByte(pa uint64) (uint8, Status)
	WriteByte(pa uint64, v uint8) Status
	ReadU32(pa uint64) (uint32, Status)
	WriteU32(pa uint64, v uint32) Status
	ReadU64(pa uint64) (uint64, Status)
	WriteU64(pa uint64, v uint64) Status
}

// FlatMemory is a byte-addressed flat array, the simplest backing store
// that satisfies Memory.
type FlatMemory struct {
	buf []byte
}

// NewFlatMemory allocates size bytes of guest physical memory, zeroed.
func NewFlatMemory(size uint64) *FlatMemory {
	return &FlatMemory{buf: make([]byte, size)}
}

func (m *FlatMemory) Size() uint64 { return uint64(len(m.buf)) }

func (m *FlatMemory) bounds(pa, width uint64) bool {
	return pa+width <= uint64(len(m.buf)) && pa+width >= pa
}

func (m *FlatMemory) ReadByte(pa uint64) (uint8, Status) {
	if !m.bounds(pa, 1) {
		return 0, StatusOutOfRange
	}
	return m.buf[pa], StatusOK
}

func (m *FlatMemory) WriteByte(pa uint64, v uint8) Status {
	if !m.bounds(pa, 1) {
		return StatusOutOfRange
	}
	m.buf[pa] = v
	return StatusOK
}

func (m *FlatMemory) ReadU32(pa uint64) (uint32, Status) {
	if pa&0x3 != 0 {
		return 0, StatusUnaligned
	}
	if !m.bounds(pa, 4) {
		return 0, StatusOutOfRange
	}
	v := uint32(m.buf[pa]) | uint32(m.buf[pa+1])<<8 | uint32(m.buf[pa+2])<<16 | uint32(m.buf[pa+3])<<24
	return v, StatusOK
}

func (m *FlatMemory) WriteU32(pa uint64, v uint32) Status {
	if pa&0x3 != 0 {
		return StatusUnaligned
	}
	if !m.bounds(pa, 4) {
		return StatusOutOfRange
	}
	m.buf[pa] = byte(v)
	m.buf[pa+1] = byte(v >> 8)
	m.buf[pa+2] = byte(v >> 16)
	m.buf[pa+3] = byte(v >> 24)
	return StatusOK
}

func (m *FlatMemory) ReadU64(pa uint64) (uint64, Status) {
	if pa&0x7 != 0 {
		return 0, StatusUnaligned
	}
	if !m.bounds(pa, 8) {
		return 0, StatusOutOfRange
	}
	lo, _ := m.ReadU32(pa)
	hi, _ := m.ReadU32(pa + 4)
	return uint64(lo) | uint64(hi)<<32, StatusOK
}

func (m *FlatMemory) WriteU64(pa uint64, v uint64) Status {
	if pa&0x7 != 0 {
		return StatusUnaligned
	}
	if !m.bounds(pa, 8) {
		return StatusOutOfRange
	}
	m.WriteU32(pa, uint32(v))
	m.WriteU32(pa+4, uint32(v>>32))
	return StatusOK
}
