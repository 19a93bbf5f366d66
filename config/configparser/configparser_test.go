/*
 * EV6 - Configuration file parser test set.
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

package configparser

import "testing"

var lastOption Option
var lastErr error

func resetTest() {
	lastOption = Option{}
	lastErr = nil
	keywords = map[string]handlerFunc{}
}

func recordingHandler(o Option) error {
	lastOption = o
	return nil
}

func TestRegisterAndDispatch(t *testing.T) {
	resetTest()
	RegisterKeyword("cpu", recordingHandler)

	line := optionLine{line: "cpu 4"}
	if err := line.parseLine(); err != nil {
		t.Fatalf("parseLine() = %v, want nil", err)
	}
	if lastOption.Keyword != "cpu" || lastOption.Value != "4" {
		t.Errorf("got %+v, want keyword=cpu value=4", lastOption)
	}
}

func TestUnknownKeywordErrors(t *testing.T) {
	resetTest()
	line := optionLine{line: "bogus 1"}
	if err := line.parseLine(); err == nil {
		t.Error("expected an error for an unregistered keyword")
	}
}

func TestCommentOnlyLineIsNoOp(t *testing.T) {
	resetTest()
	RegisterKeyword("cpu", recordingHandler)
	line := optionLine{line: "# just a comment"}
	if err := line.parseLine(); err != nil {
		t.Fatalf("parseLine() = %v, want nil", err)
	}
	if lastOption.Keyword != "" {
		t.Errorf("handler invoked for a comment-only line: %+v", lastOption)
	}
}

func TestTrailingCommentIgnored(t *testing.T) {
	resetTest()
	RegisterKeyword("palbase", recordingHandler)
	line := optionLine{line: "palbase 0x20000000 # PALcode load address"}
	if err := line.parseLine(); err != nil {
		t.Fatalf("parseLine() = %v, want nil", err)
	}
	if lastOption.Value != "0x20000000" {
		t.Errorf("value = %q, want 0x20000000", lastOption.Value)
	}
}

func TestCommaSeparatedExtraValues(t *testing.T) {
	resetTest()
	RegisterKeyword("trace", recordingHandler)
	line := optionLine{line: "trace dat, tlb, pal"}
	if err := line.parseLine(); err != nil {
		t.Fatalf("parseLine() = %v, want nil", err)
	}
	if lastOption.Value != "dat" {
		t.Errorf("value = %q, want dat", lastOption.Value)
	}
	want := []string{"tlb", "pal"}
	if len(lastOption.Extra) != len(want) {
		t.Fatalf("extra = %v, want %v", lastOption.Extra, want)
	}
	for i, w := range want {
		if lastOption.Extra[i] != w {
			t.Errorf("extra[%d] = %q, want %q", i, lastOption.Extra[i], w)
		}
	}
}

func TestMissingValueErrors(t *testing.T) {
	resetTest()
	RegisterKeyword("cpu", recordingHandler)
	line := optionLine{line: "cpu"}
	if err := line.parseLine(); err == nil {
		t.Error("expected an error for a keyword with no value")
	}
}

func TestParseUintDecimalAndHex(t *testing.T) {
	v, err := ParseUint("0x20000000")
	if err != nil || v != 0x20000000 {
		t.Errorf("ParseUint(0x20000000) = %d, %v", v, err)
	}
	v, err = ParseUint("128")
	if err != nil || v != 128 {
		t.Errorf("ParseUint(128) = %d, %v", v, err)
	}
}

func TestParseSizeSuffixes(t *testing.T) {
	cases := map[string]uint64{
		"128M": 128 * 1024 * 1024,
		"4K":   4 * 1024,
		"1G":   1024 * 1024 * 1024,
		"512":  512,
	}
	for in, want := range cases {
		got, err := ParseSize(in)
		if err != nil {
			t.Fatalf("ParseSize(%q) error: %v", in, err)
		}
		if got != want {
			t.Errorf("ParseSize(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestKeywordLookupIsCaseInsensitive(t *testing.T) {
	resetTest()
	RegisterKeyword("CPU", recordingHandler)
	line := optionLine{line: "Cpu 2"}
	if err := line.parseLine(); err != nil {
		t.Fatalf("parseLine() = %v, want nil", err)
	}
	if lastOption.Keyword != "cpu" {
		t.Errorf("keyword = %q, want cpu", lastOption.Keyword)
	}
}
