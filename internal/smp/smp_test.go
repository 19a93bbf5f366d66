package smp

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeCPU struct {
	id      int
	steps   int
	failAt  int
	failErr error

	gotExternal bool
	externalIPL uint8
	externalVec uint64
}

func (f *fakeCPU) ID() int { return f.id }

func (f *fakeCPU) RaiseExternalInterrupt(ipl uint8, vector uint64) {
	f.gotExternal = true
	f.externalIPL = ipl
	f.externalVec = vector
}

func (f *fakeCPU) Step(ctx context.Context) (bool, error) {
	f.steps++
	if f.failAt != 0 && f.steps >= f.failAt {
		return false, f.failErr
	}
	return f.steps < 5, nil
}

func TestCoordinatorRunsUntilAllComplete(t *testing.T) {
	cpus := []CPU{&fakeCPU{id: 0}, &fakeCPU{id: 1}}
	c := NewCoordinator(cpus)
	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run() = %v, want nil", err)
	}
}

func TestCoordinatorPropagatesFatalError(t *testing.T) {
	wantErr := errors.New("machine check: double bus error")
	cpus := []CPU{
		&fakeCPU{id: 0, failAt: 2, failErr: wantErr},
		&fakeCPU{id: 1},
	}
	c := NewCoordinator(cpus)
	err := c.Run(context.Background())
	if err == nil {
		t.Fatal("expected Run to propagate the failing CPU's error")
	}
	if !errors.Is(err, wantErr) {
		t.Errorf("error = %v, want wrapping %v", err, wantErr)
	}
}

func TestShootdownTimesOutWithoutAck(t *testing.T) {
	cpus := []CPU{&fakeCPU{id: 0}, &fakeCPU{id: 1}}
	c := NewCoordinator(cpus)
	// No goroutine is running to drain CPU 1's mailbox and ack, so the
	// shootdown must time out rather than block forever.
	origTimeout := ShootdownTimeout
	ShootdownTimeout = 10 * time.Millisecond
	defer func() { ShootdownTimeout = origTimeout }()

	err := c.Shootdown(0, 0x1000)
	if err == nil {
		t.Fatal("expected a timeout error")
	}
}

func TestRunOneDeliversExternalInterrupt(t *testing.T) {
	cpu := &fakeCPU{id: 0}
	c := NewCoordinator([]CPU{cpu})
	// Queued before Run starts: runOne's select must see it ready on the
	// very first iteration and call RaiseExternalInterrupt rather than
	// silently falling through to cpu.Step, as it used to for IPIExternal.
	c.SendIPI(0, IPI{Kind: IPIExternal, Arg: 0x300, IPL: 20})

	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run() = %v, want nil", err)
	}
	if !cpu.gotExternal {
		t.Fatal("expected RaiseExternalInterrupt to have been called")
	}
	if cpu.externalIPL != 20 || cpu.externalVec != 0x300 {
		t.Errorf("got ipl=%d vector=%#x, want ipl=20 vector=0x300", cpu.externalIPL, cpu.externalVec)
	}
}
