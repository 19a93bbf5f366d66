package pal

import (
	"testing"

	"github.com/axpcore/ev6/internal/fault"
)

func TestCallPALOffsetPrivilegedVsUnprivileged(t *testing.T) {
	priv := CallPALOffset(0x00) // HALT, privileged
	unpriv := CallPALOffset(0x83) // a typical unprivileged OSF call
	if priv < VectorCallPALBase || priv >= VectorCallPALBase+0x1000 {
		t.Errorf("privileged offset %#x out of expected low window", priv)
	}
	if unpriv < VectorCallPALBase+0x1000 {
		t.Errorf("unprivileged offset %#x should land in the high window", unpriv)
	}
}

func TestResolveMemoryFaultITBMiss(t *testing.T) {
	ev := fault.PendingEvent{ExceptionClass: fault.ClassMemoryFault, MMUOp: fault.MMUExecute}
	v := Resolve(ev, 0)
	if v.Offset != VectorITBMiss {
		t.Errorf("offset = %#x, want VectorITBMiss", v.Offset)
	}
}

func TestResolveMemoryFaultDTBMissVsFault(t *testing.T) {
	miss := Resolve(fault.PendingEvent{ExceptionClass: fault.ClassMemoryFault, MMUOp: fault.MMURead, TLBHit: false}, 0)
	if miss.Offset != VectorDTBMissSingle {
		t.Errorf("DTB miss offset = %#x, want VectorDTBMissSingle", miss.Offset)
	}
	acv := Resolve(fault.PendingEvent{ExceptionClass: fault.ClassMemoryFault, MMUOp: fault.MMUWrite, TLBHit: true}, 0)
	if acv.Offset != VectorDTBFault {
		t.Errorf("DTB fault offset = %#x, want VectorDTBFault", acv.Offset)
	}
}

func TestBuildMemoryFaultArgumentPack(t *testing.T) {
	ev := fault.PendingEvent{
		ExceptionClass: fault.ClassMemoryFault,
		MMUOp:          fault.MMUWrite,
		FaultVA:        0xDEAD0000,
		ASN:            7,
		Writable:       true,
		PC:             0x10000,
	}
	pack := BuildArgumentPack(ev, 0, 0)
	if pack.Regs[0] != 0xDEAD0000 {
		t.Errorf("a0 = %#x, want faultVA", pack.Regs[0])
	}
	if pack.Regs[1] != 7 {
		t.Errorf("a1 = %d, want asn 7", pack.Regs[1])
	}
	if pack.Regs[2] != 1 {
		t.Errorf("a2 = %d, want fault type 1 (write)", pack.Regs[2])
	}
	if pack.Regs[3] != 1 {
		t.Errorf("a3 = %d, want write flag 1", pack.Regs[3])
	}
	if pack.Regs[4] != 0x10000 {
		t.Errorf("a4 = %#x, want faulting PC", pack.Regs[4])
	}
}

func TestBuildCallPALArgs(t *testing.T) {
	ev := fault.PendingEvent{ExceptionClass: fault.ClassCallPAL}
	pack := BuildArgumentPack(ev, 0x83, 0)
	if pack.Regs[0] != 0x83 {
		t.Errorf("a0 = %#x, want the call_pal function code", pack.Regs[0])
	}
	if pack.Vector.Offset != CallPALOffset(0x83) {
		t.Error("resolved vector should match CallPALOffset(function)")
	}
}
