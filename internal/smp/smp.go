// Package smp coordinates multiple emulated CPUs: inter-processor
// interrupts (each CPU masks an external interrupt against its own IPL), and
// TLB shootdown acknowledgment with a timeout, generalizing the teacher's single-CPU
// emu/core.core (one goroutine, a done channel, a master mailbox) to a
// multi-CPU lifecycle built on golang.org/x/sync/errgroup so a fatal halt
// on any one CPU propagates to every other CPU and to the coordinator's
// caller.
package smp

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// CPU is the per-CPU driving loop the coordinator calls back into once per
// scheduling quantum. It mirrors the teacher's cpu.CycleCPU() shape: advance
// some work, report whether this CPU should keep running.
type CPU interface {
	Step(ctx context.Context) (keepRunning bool, err error)
	ID() int
	// RaiseExternalInterrupt delivers an IPIExternal to this CPU at the given
	// IPL with the given vector/trap-ID argument. The CPU is responsible for
	// masking it against its own current PS.IPL, per spec.md §4.6.
	RaiseExternalInterrupt(ipl uint8, vector uint64)
}

// IPIKind distinguishes the interrupt classes the coordinator can deliver
// between CPUs.
type IPIKind uint8

const (
	IPIExternal IPIKind = iota
	IPITLBShootdown
	IPIHalt
)

// IPI is one inter-processor interrupt message.
type IPI struct {
	Kind IPIKind
	Arg  uint64 // VA for a shootdown, vector/trap-ID for an external interrupt
	IPL  uint8  // interrupt priority level; only meaningful for IPIExternal
}

// ShootdownTimeout bounds how long the coordinator waits for every CPU to
// acknowledge a TLB shootdown before raising a machine check, matching
// spec.md's SMP_BARRIER_TIMEOUT. A var, not a const, so tests can shorten it.
var ShootdownTimeout = 2 * time.Second

// Coordinator owns one goroutine per CPU and the IPI mailboxes between them.
type Coordinator struct {
	cpus   []CPU
	inbox  []chan IPI
	acks   []chan struct{}
	mu     sync.Mutex
	halted bool
}

// NewCoordinator builds a coordinator for the given CPUs, each with its own
// buffered IPI mailbox.
func NewCoordinator(cpus []CPU) *Coordinator {
	c := &Coordinator{
		cpus:  cpus,
		inbox: make([]chan IPI, len(cpus)),
		acks:  make([]chan struct{}, len(cpus)),
	}
	for i := range cpus {
		c.inbox[i] = make(chan IPI, 16)
		c.acks[i] = make(chan struct{}, 1)
	}
	return c
}

// Run drives every CPU concurrently until ctx is canceled or one CPU's Step
// returns a fatal error, in which case every other CPU is canceled too and
// the error is returned once all goroutines have exited. This is the one
// behavior x/sync/errgroup buys over the teacher's bare sync.WaitGroup: a
// CPU thread's fatal-halt cause reaches the caller instead of only a
// completion signal.
func (c *Coordinator) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, cpu := range c.cpus {
		cpu := cpu
		g.Go(func() error {
			return c.runOne(gctx, cpu)
		})
	}
	err := g.Wait()
	if err != nil {
		slog.Error("SMP coordinator halted with error", "error", err)
	}
	return err
}

func (c *Coordinator) runOne(ctx context.Context, cpu CPU) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ipi := <-c.inbox[cpu.ID()]:
			switch ipi.Kind {
			case IPIHalt:
				return nil
			case IPITLBShootdown:
				c.acks[cpu.ID()] <- struct{}{}
			case IPIExternal:
				cpu.RaiseExternalInterrupt(ipi.IPL, ipi.Arg)
			}
		default:
		}
		keepRunning, err := cpu.Step(ctx)
		if err != nil {
			return fmt.Errorf("cpu %d: %w", cpu.ID(), err)
		}
		if !keepRunning {
			return nil
		}
	}
}

// SendIPI delivers an interrupt to CPU target's mailbox.
func (c *Coordinator) SendIPI(target int, ipi IPI) {
	select {
	case c.inbox[target] <- ipi:
	default:
		slog.Warn("IPI mailbox full, dropping", "target", target, "kind", ipi.Kind)
	}
}

// Shootdown broadcasts a TLB shootdown for va to every CPU other than
// initiator and waits for every target's acknowledgment, raising a machine
// check (returned as an error) if ShootdownTimeout elapses first. A target
// only acknowledges the IPI in runOne; no TLB entry on the target is
// invalidated, since CPU exposes no TLB operation.
func (c *Coordinator) Shootdown(initiator int, va uint64) error {
	var targets []int
	for _, cpu := range c.cpus {
		if cpu.ID() != initiator {
			targets = append(targets, cpu.ID())
		}
	}
	for _, t := range targets {
		c.SendIPI(t, IPI{Kind: IPITLBShootdown, Arg: va})
	}
	deadline := time.After(ShootdownTimeout)
	for _, t := range targets {
		select {
		case <-c.acks[t]:
		case <-deadline:
			return fmt.Errorf("smp: shootdown ack timeout from cpu %d (SMP_BARRIER_TIMEOUT)", t)
		}
	}
	return nil
}

// Halt requests every CPU stop at its next scheduling quantum.
func (c *Coordinator) Halt() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.halted {
		return
	}
	c.halted = true
	for _, cpu := range c.cpus {
		c.SendIPI(cpu.ID(), IPI{Kind: IPIHalt})
	}
}
