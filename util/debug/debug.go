/*
 * EV6 - Debug trace category flags
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

// Package debug tracks which trace categories are enabled, adapted from the
// teacher's bitmask-of-named-flags debug log (util/debug/debug.go). The
// teacher keyed its mask by device/channel name; this core keys it by
// microarchitectural component instead, since there are no devices here.
package debug

import (
	"strings"
	"sync/atomic"
)

// Category is one independently toggleable trace flag.
type Category uint32

const (
	DAT  Category = 1 << iota // MMU / TLB translation
	PAL                       // PALcode entry/exit, vector dispatch
	IRQ                       // interrupt/exception arbitration
	TLB                       // TLB insert/evict/shootdown
	RESV                      // load-locked/store-conditional reservations
)

var names = map[string]Category{
	"DAT":  DAT,
	"PAL":  PAL,
	"IRQ":  IRQ,
	"TLB":  TLB,
	"RESV": RESV,
}

var enabled atomic.Uint32

// Enable turns on the named category. The match is case-insensitive,
// matching the teacher's ToUpper convention for debug option names.
func Enable(name string) error {
	cat, ok := names[strings.ToUpper(name)]
	if !ok {
		return &UnknownCategoryError{Name: name}
	}
	for {
		old := enabled.Load()
		if enabled.CompareAndSwap(old, old|uint32(cat)) {
			return nil
		}
	}
}

// Disable turns off the named category.
func Disable(name string) error {
	cat, ok := names[strings.ToUpper(name)]
	if !ok {
		return &UnknownCategoryError{Name: name}
	}
	for {
		old := enabled.Load()
		if enabled.CompareAndSwap(old, old&^uint32(cat)) {
			return nil
		}
	}
}

// Enabled reports whether cat is currently active.
func Enabled(cat Category) bool {
	return enabled.Load()&uint32(cat) != 0
}

// UnknownCategoryError reports an unrecognized trace category name.
type UnknownCategoryError struct {
	Name string
}

func (e *UnknownCategoryError) Error() string {
	return "debug: unknown trace category: " + e.Name
}
