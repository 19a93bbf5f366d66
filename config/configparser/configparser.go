/*
 * EV6 - Configuration file parser
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

// Package configparser reads the core's init parameters from a small
// line-oriented configuration file: CPU count, memory size, PALcode and SRM
// image load addresses, TLB eviction policy, and trace categories. The
// grammar and parsing style is adapted from the teacher's device-config
// parser, with the device-model grammar replaced by this core's flat
// keyword/value lines -- there is no device tree to describe here, only the
// init parameters spec.md §6 lists.
package configparser

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode"
)

// Option is one parsed configuration line: a keyword, its primary value, and
// any comma-separated extra values (used by keywords like trace that accept a
// category list).
type Option struct {
	Keyword string
	Value   string
	Extra   []string
}

// optionLine is the current line being parsed, mirroring the teacher's
// cursor-based line scanner.
type optionLine struct {
	line string
	pos  int
}

/* Configuration file format:
 *
 * '#' indicates comment, rest of line is ignored.
 * <line> := <keyword> <whitespace> <value> *(',' <value>)
 * <keyword> ::= <letter> *(<letter> | <number>)
 * <value> ::= *(<letter> | <number> | '.' | '_' | '/')
 */

// handlerFunc is called once per parsed line for its keyword.
type handlerFunc func(Option) error

var keywords = map[string]handlerFunc{}

var lineNumber int

// RegisterKeyword should be called from an init function to claim a
// configuration keyword. Re-registering a keyword replaces its handler.
func RegisterKeyword(keyword string, fn handlerFunc) {
	keywords[strings.ToLower(keyword)] = fn
}

// LoadConfigFile reads name line by line, dispatching each recognized
// keyword to its registered handler. The first error from a handler or a
// malformed line aborts the load.
func LoadConfigFile(name string) error {
	file, err := os.Open(name)
	if err != nil {
		return err
	}
	defer file.Close()

	lineNumber = 0
	reader := bufio.NewReader(file)
	for {
		line := optionLine{}
		line.line, err = reader.ReadString('\n')
		lineNumber++
		if len(line.line) == 0 && err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}
		if err := line.parseLine(); err != nil {
			return err
		}
	}
	return nil
}

func (line *optionLine) parseLine() error {
	keyword := line.parseKeyword()
	if keyword == "" {
		return nil
	}
	line.skipSpace()
	value, extra, err := line.parseValue()
	if err != nil {
		return err
	}
	handler, ok := keywords[keyword]
	if !ok {
		return fmt.Errorf("configparser: unknown keyword %q, line %d", keyword, lineNumber)
	}
	return handler(Option{Keyword: keyword, Value: value, Extra: extra})
}

func (line *optionLine) skipSpace() {
	for line.pos < len(line.line) && unicode.IsSpace(rune(line.line[line.pos])) {
		line.pos++
	}
}

func (line *optionLine) isEOL() bool {
	if line.pos >= len(line.line) {
		return true
	}
	return line.line[line.pos] == '#' || line.line[line.pos] == '\n' || line.line[line.pos] == '\r'
}

// parseKeyword reads the leading identifier on the line, lower-cased so
// registration and lookup are case-insensitive.
func (line *optionLine) parseKeyword() string {
	line.skipSpace()
	if line.isEOL() {
		return ""
	}
	start := line.pos
	for !line.isEOL() && (unicode.IsLetter(rune(line.line[line.pos])) || unicode.IsNumber(rune(line.line[line.pos]))) {
		line.pos++
	}
	return strings.ToLower(line.line[start:line.pos])
}

func isValueRune(b byte) bool {
	return unicode.IsLetter(rune(b)) || unicode.IsNumber(rune(b)) || b == '.' || b == '_' || b == '/' || b == 'x'
}

// parseToken reads one comma-delimited value token.
func (line *optionLine) parseToken() string {
	line.skipSpace()
	start := line.pos
	for !line.isEOL() && isValueRune(line.line[line.pos]) {
		line.pos++
	}
	return line.line[start:line.pos]
}

// parseValue reads the primary value token followed by any comma-separated
// extra tokens.
func (line *optionLine) parseValue() (string, []string, error) {
	value := line.parseToken()
	if value == "" {
		return "", nil, fmt.Errorf("configparser: missing value, line %d", lineNumber)
	}
	var extra []string
	for {
		line.skipSpace()
		if line.isEOL() || line.line[line.pos] != ',' {
			break
		}
		line.pos++ // skip comma
		tok := line.parseToken()
		if tok == "" {
			return "", nil, fmt.Errorf("configparser: empty item after comma, line %d", lineNumber)
		}
		extra = append(extra, tok)
	}
	return value, extra, nil
}

// ParseUint parses a value as either a decimal or 0x-prefixed hex integer,
// the form the cpu count and the palbase/srmbase addresses are given in.
func ParseUint(value string) (uint64, error) {
	value = strings.TrimSpace(value)
	base := 10
	if strings.HasPrefix(value, "0x") || strings.HasPrefix(value, "0X") {
		value = value[2:]
		base = 16
	}
	return strconv.ParseUint(value, base, 64)
}

// ParseSize parses a value like "128M" or "512K" or a bare byte count into a
// byte size, matching the address-with-suffix grammar the teacher's parser
// supported for device memory sizes.
func ParseSize(value string) (uint64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, errors.New("configparser: empty size")
	}
	mult := uint64(1)
	suffix := value[len(value)-1]
	switch suffix {
	case 'k', 'K':
		mult = 1024
		value = value[:len(value)-1]
	case 'm', 'M':
		mult = 1024 * 1024
		value = value[:len(value)-1]
	case 'g', 'G':
		mult = 1024 * 1024 * 1024
		value = value[:len(value)-1]
	}
	n, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, err
	}
	return n * mult, nil
}
