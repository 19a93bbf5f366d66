/*
 * EV6 - Wire the machine-sizing configuration keywords to system.Config
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

// Package systemconfig registers the "cpu", "memory", "palbase", "srmbase",
// and "tlbpolicy" configuration keywords, accumulating their values on top of
// system.DefaultConfig() so a loaded config file only needs to mention the
// parameters it wants to override. The teacher wired its config keywords
// straight to per-device model constructors; this core has one target
// instead of many, so every keyword here just mutates a shared Config.
package systemconfig

import (
	"fmt"

	config "github.com/axpcore/ev6/config/configparser"
	"github.com/axpcore/ev6/system"
)

var current = system.DefaultConfig()

func init() {
	config.RegisterKeyword("cpu", setCPUCount)
	config.RegisterKeyword("memory", setMemorySize)
	config.RegisterKeyword("palbase", setPALBase)
	config.RegisterKeyword("srmbase", setSRMBase)
	config.RegisterKeyword("tlbpolicy", setTLBPolicy)
}

// Config returns the accumulated configuration, reflecting every keyword
// processed by config.LoadConfigFile so far.
func Config() system.Config { return current }

func setCPUCount(opt config.Option) error {
	n, err := config.ParseUint(opt.Value)
	if err != nil {
		return fmt.Errorf("configparser: cpu: %w", err)
	}
	current.CPUCount = int(n)
	return nil
}

func setMemorySize(opt config.Option) error {
	n, err := config.ParseSize(opt.Value)
	if err != nil {
		return fmt.Errorf("configparser: memory: %w", err)
	}
	current.MemorySize = n
	return nil
}

func setPALBase(opt config.Option) error {
	n, err := config.ParseUint(opt.Value)
	if err != nil {
		return fmt.Errorf("configparser: palbase: %w", err)
	}
	current.PALBase = n
	return nil
}

func setSRMBase(opt config.Option) error {
	n, err := config.ParseUint(opt.Value)
	if err != nil {
		return fmt.Errorf("configparser: srmbase: %w", err)
	}
	current.SRMBase = n
	return nil
}

func setTLBPolicy(opt config.Option) error {
	switch system.TLBPolicy(opt.Value) {
	case system.TLBPolicyRandom, system.TLBPolicyClock, system.TLBPolicySRRIP:
		current.TLBPolicy = system.TLBPolicy(opt.Value)
		return nil
	default:
		return fmt.Errorf("configparser: tlbpolicy: unknown policy %q", opt.Value)
	}
}
