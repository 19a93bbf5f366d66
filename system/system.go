/*
   Top-level wiring for the EV6 core.

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

// Package system wires the core's packages together into a running machine:
// guest memory, the HWRPB, one Translator/State/Dispatcher/reservation
// Manager per CPU, and the SMP coordinator that drives them. This is the
// generalized counterpart of the teacher's emu/core.core, which wired a
// single S/370 CPU plus its channel subsystem to a master packet loop; this
// core has no channel subsystem, and may have more than one CPU, so the
// wiring step is a fan-out over system.CPUCore rather than a single struct.
package system

import (
	"context"
	"fmt"

	"github.com/axpcore/ev6/internal/cpustate"
	"github.com/axpcore/ev6/internal/fault"
	"github.com/axpcore/ev6/internal/hwrpb"
	"github.com/axpcore/ev6/internal/memory"
	"github.com/axpcore/ev6/internal/mmu"
	"github.com/axpcore/ev6/internal/pal"
	"github.com/axpcore/ev6/internal/pipeline"
	"github.com/axpcore/ev6/internal/reservation"
	"github.com/axpcore/ev6/internal/smp"
)

// TLBPolicy names one of internal/mmu's eviction policies, the configuration
// keyword `tlbpolicy` selects from.
type TLBPolicy string

const (
	TLBPolicyRandom TLBPolicy = "random"
	TLBPolicyClock  TLBPolicy = "clock"
	TLBPolicySRRIP  TLBPolicy = "srrip"
)

func newPolicy(p TLBPolicy) mmu.EvictionPolicy {
	switch p {
	case TLBPolicyClock:
		return mmu.NewClockPolicy()
	case TLBPolicySRRIP:
		return mmu.NewSRRIPPolicy()
	default:
		return mmu.NewRandomPolicy()
	}
}

// Config is the set of init parameters config/configparser's `cpu`,
// `memory`, `palbase`, `srmbase`, and `tlbpolicy` keywords populate, per
// spec.md §6.
type Config struct {
	CPUCount   int
	MemorySize uint64
	PALBase    uint64
	SRMBase    uint64
	TLBPolicy  TLBPolicy
	ITBEntries int
	DTBEntries int
}

// DefaultConfig returns the parameter set a bare `New` call without a
// configuration file should use.
func DefaultConfig() Config {
	return Config{
		CPUCount:   1,
		MemorySize: 128 << 20,
		PALBase:    0x20000000,
		TLBPolicy:  TLBPolicyRandom,
		ITBEntries: 32,
		DTBEntries: 32,
	}
}

// System is one running EV6 machine: shared guest memory, the HWRPB, and the
// per-CPU cores the SMP coordinator drives.
type System struct {
	Mem   memory.Memory
	HWRPB *hwrpb.HWRPB
	CPUs  []*CPUCore

	coord *smp.Coordinator
	bus   *reservation.Bus
}

// New builds a System from cfg: allocates guest memory, initializes the
// HWRPB, and constructs one CPUCore per cfg.CPUCount, each with its own
// ITB/DTB translator and reservation manager sharing a common coherence bus.
func New(cfg Config) (*System, error) {
	if cfg.CPUCount < 1 {
		return nil, fmt.Errorf("system: CPUCount must be at least 1, got %d", cfg.CPUCount)
	}
	mem := memory.NewFlatMemory(cfg.MemorySize)
	hw := hwrpb.New(mem, 0)
	hw.Init(0x16, 44, 600_000_000, uint64(cfg.CPUCount))

	bus := reservation.NewBus()
	sys := &System{Mem: mem, HWRPB: hw, bus: bus}

	cpus := make([]smp.CPU, 0, cfg.CPUCount)
	for i := 0; i < cfg.CPUCount; i++ {
		core := newCPUCore(i, cfg, mem, bus)
		bus.Register(core.Resv)
		sys.CPUs = append(sys.CPUs, core)
		cpus = append(cpus, core)
	}
	sys.coord = smp.NewCoordinator(cpus)
	return sys, nil
}

// Run drives every CPU until ctx is canceled, a fatal per-CPU error occurs,
// or all CPUs halt.
func (s *System) Run(ctx context.Context) error {
	return s.coord.Run(ctx)
}

// Halt requests every CPU stop at its next instruction boundary.
func (s *System) Halt() { s.coord.Halt() }

// CPUCore bundles one CPU's architected state with the pipeline Machine that
// drives it and the PAL entry/exit bookkeeping pipeline.Step's Fault/
// EnterPAL/ExitPAL outcomes require of a caller. It implements smp.CPU.
type CPUCore struct {
	id      int
	pc      uint64
	machine *pipeline.Machine
	CPU     *cpustate.State
	Resv    *reservation.Manager

	// pendingExternal/pendingExternalIPL/pendingExternalVec hold an external
	// interrupt that arrived while masked at or below this CPU's then-current
	// IPL; onIPLChange re-tests it against every subsequent IPL write.
	pendingExternal    bool
	pendingExternalIPL uint8
	pendingExternalVec uint64
}

func newCPUCore(id int, cfg Config, mem memory.Memory, bus *reservation.Bus) *CPUCore {
	cpu := cpustate.New()
	cpu.WriteIPR(cpustate.IPR_PAL_BASE, cfg.PALBase)
	translator := mmu.NewTranslator(mem, cfg.ITBEntries, cfg.DTBEntries, newPolicy(cfg.TLBPolicy), newPolicy(cfg.TLBPolicy))
	resv := reservation.NewManager(id, bus)
	core := &CPUCore{
		id:   id,
		pc:   cfg.PALBase,
		CPU:  cpu,
		Resv: resv,
		machine: &pipeline.Machine{
			CPU:    cpu,
			Mem:    mem,
			MMU:    translator,
			Faults: fault.NewDispatcher(),
			Resv:   resv,
		},
	}
	core.machine.OnIPLChange = core.onIPLChange
	return core
}

// ID identifies this CPU to the SMP coordinator and to reservation.Bus.
func (c *CPUCore) ID() int { return c.id }

// Step drives exactly one pipeline.Step and performs whatever PAL entry/exit
// bookkeeping its outcome requires, then reports whether this CPU should
// keep running. A fatal condition (a pipeline outcome this driver cannot
// make sense of) is reported as an error so smp.Coordinator can halt every
// other CPU too.
func (c *CPUCore) Step(ctx context.Context) (bool, error) {
	select {
	case <-ctx.Done():
		return false, nil
	default:
	}

	outcome, nextPC := pipeline.Step(c.machine, c.pc)
	switch outcome {
	case pipeline.Continue:
		c.pc = nextPC
		return true, nil

	case pipeline.EnterPAL:
		vec := pal.Resolve(fault.PendingEvent{ExceptionClass: fault.ClassCallPAL}, c.machine.PALFunc)
		pack := pal.BuildArgumentPack(fault.PendingEvent{ExceptionClass: fault.ClassCallPAL, PC: c.pc, NextPC: nextPC}, c.machine.PALFunc, 0)
		c.enterPAL(pack)
		c.pc = c.CPU.PALBase() + uint64(vec.Offset)
		return true, nil

	case pipeline.Fault:
		ev := c.machine.Faults.Pending()
		if ev == nil {
			return false, fmt.Errorf("cpu %d: pipeline reported Fault with no pending event", c.id)
		}
		pack := pal.BuildArgumentPack(*ev, 0, 0)
		c.enterPAL(pack)
		c.pc = c.CPU.PALBase() + uint64(pack.Vector.Offset)
		c.machine.Faults.Clear()
		return true, nil

	case pipeline.ExitPAL:
		sde0, sde1 := c.CPU.ShadowEnabled()
		c.CPU.ExitPAL(sde0, sde1)
		c.pc = nextPC
		return true, nil

	case pipeline.Complete:
		return false, nil

	default:
		return false, fmt.Errorf("cpu %d: unhandled pipeline outcome %v", c.id, outcome)
	}
}

// enterPAL drops this CPU's reservation, banks the PALshadow registers (if
// I_CTL's SDE bits enable them) and loads the argument pack into R16-R20,
// matching the OSF/Tru64 PALcode entry convention BuildArgumentPack's
// register layout assumes.
func (c *CPUCore) enterPAL(pack pal.ArgumentPack) {
	c.Resv.ClearOnException()
	sde0, sde1 := c.CPU.ShadowEnabled()
	c.CPU.EnterPAL(sde0, sde1)
	for i, v := range pack.Regs {
		c.CPU.SetGPR(uint8(16+i), v)
	}
}

// PC reports this CPU's current program counter, primarily for tests and
// diagnostics.
func (c *CPUCore) PC() uint64 { return c.pc }

// RaiseExternalInterrupt implements smp.CPU: it masks ipl against this CPU's
// current PS.IPL exactly as real hardware gates a device interrupt request
// line, holding it pending rather than dropping it if currently masked.
func (c *CPUCore) RaiseExternalInterrupt(ipl uint8, vector uint64) {
	if ipl <= c.CPU.PS.IPL {
		c.pendingExternal = true
		c.pendingExternalIPL = ipl
		c.pendingExternalVec = vector
		return
	}
	c.deliverExternalInterrupt(ipl, vector)
}

func (c *CPUCore) deliverExternalInterrupt(ipl uint8, vector uint64) {
	c.machine.Faults.Raise(fault.PendingEvent{
		PC: c.pc, NextPC: c.pc, Mode: uint8(c.CPU.PS.CurrentMode),
		IPL: ipl, TrapID: vector, ExceptionClass: fault.ClassHardwareInterrupt,
	})
}

// onIPLChange is pipeline.Machine's OnIPLChange hook: spec.md §4.6 requires
// an IPL write to recompute interrupt eligibility, which here means
// re-testing any interrupt this CPU held pending because it arrived masked.
func (c *CPUCore) onIPLChange(newIPL uint8) {
	if c.pendingExternal && newIPL < c.pendingExternalIPL {
		ipl, vector := c.pendingExternalIPL, c.pendingExternalVec
		c.pendingExternal = false
		c.deliverExternalInterrupt(ipl, vector)
	}
}
