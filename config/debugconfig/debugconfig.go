/*
 * EV6 - Wire the "trace" configuration keyword to util/debug
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

// Package debugconfig registers the "trace" configuration keyword, turning a
// config-file line like "trace dat, tlb, pal" into calls against
// util/debug.Enable. The teacher wired DEBUG config lines straight to its
// per-device Debug() methods (config/debugconfig/debugconfig.go); there are
// no devices in this core, so the only target is the trace category set.
package debugconfig

import (
	config "github.com/axpcore/ev6/config/configparser"
	"github.com/axpcore/ev6/util/debug"
)

func init() {
	config.RegisterKeyword("trace", setTrace)
}

func setTrace(opt config.Option) error {
	if err := debug.Enable(opt.Value); err != nil {
		return err
	}
	for _, cat := range opt.Extra {
		if err := debug.Enable(cat); err != nil {
			return err
		}
	}
	return nil
}
