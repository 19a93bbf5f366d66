package fault

import "testing"

func TestRaiseFirstEventAlwaysAccepted(t *testing.T) {
	d := NewDispatcher()
	ok := d.Raise(PendingEvent{ExceptionClass: ClassMemoryFault, IPL: 20})
	if !ok {
		t.Fatal("first Raise should always be accepted")
	}
	if d.Pending() == nil {
		t.Fatal("Pending should be non-nil after Raise")
	}
}

func TestHigherPrecedencePreempts(t *testing.T) {
	d := NewDispatcher()
	d.Raise(PendingEvent{ExceptionClass: ClassSoftwareInterrupt, IPL: 4})
	ok := d.Raise(PendingEvent{ExceptionClass: ClassMachineCheck, IPL: 31})
	if !ok {
		t.Fatal("machine check should preempt a pending software interrupt")
	}
	if d.Pending().ExceptionClass != ClassMachineCheck {
		t.Errorf("pending class = %v, want ClassMachineCheck", d.Pending().ExceptionClass)
	}
}

func TestLowerPrecedenceRejected(t *testing.T) {
	d := NewDispatcher()
	d.Raise(PendingEvent{ExceptionClass: ClassMachineCheck, IPL: 31})
	ok := d.Raise(PendingEvent{ExceptionClass: ClassSoftwareInterrupt, IPL: 4})
	if ok {
		t.Error("software interrupt should not preempt a pending machine check")
	}
	if d.Pending().ExceptionClass != ClassMachineCheck {
		t.Error("pending event should remain the machine check")
	}
}

func TestSamePrecedenceNestingRule(t *testing.T) {
	d := NewDispatcher()
	d.Raise(PendingEvent{ExceptionClass: ClassMemoryFault, IPL: 7})
	// Same (lowest) precedence class, but higher IPL: safe to nest.
	ok := d.Raise(PendingEvent{ExceptionClass: ClassArithmetic, IPL: 20})
	if !ok {
		t.Error("higher-IPL event of equal precedence should nest")
	}
	// Now try one at a lower IPL than the current pending event.
	ok = d.Raise(PendingEvent{ExceptionClass: ClassOpcodeReserved, IPL: 3})
	if ok {
		t.Error("lower-IPL event of equal precedence should not nest")
	}
}

func TestIsSafeToNest(t *testing.T) {
	if !IsSafeToNest(10, 5) {
		t.Error("strictly higher incoming IPL should be safe to nest")
	}
	if IsSafeToNest(5, 5) {
		t.Error("equal IPL should not be safe to nest")
	}
	if IsSafeToNest(3, 5) {
		t.Error("lower incoming IPL should not be safe to nest")
	}
}

func TestClearDropsPendingEvent(t *testing.T) {
	d := NewDispatcher()
	d.Raise(PendingEvent{ExceptionClass: ClassAST, IPL: 2})
	d.Clear()
	if d.Pending() != nil {
		t.Error("Clear should drop the pending event")
	}
}
