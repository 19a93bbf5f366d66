package reservation

import "testing"

func TestLoadLockedStoreConditional(t *testing.T) {
	m := NewManager(0, nil)
	m.SetLocked(0x1000)
	if !m.Held() {
		t.Fatal("expected reservation held after SetLocked")
	}
	if !m.StoreConditional(0x1000) {
		t.Error("StoreConditional should succeed with a matching live reservation")
	}
	if m.Held() {
		t.Error("reservation should be cleared after a successful STx_C")
	}
}

func TestStoreConditionalFailsWithoutReservation(t *testing.T) {
	m := NewManager(0, nil)
	if m.StoreConditional(0x1000) {
		t.Error("StoreConditional should fail with no outstanding reservation")
	}
}

func TestGranuleGranularity(t *testing.T) {
	m := NewManager(0, nil)
	m.SetLocked(0x1004)
	// A different address in the same 64-byte granule should still satisfy
	// the reservation.
	if !m.StoreConditional(0x1030) {
		t.Error("STx_C to a different address in the same granule should succeed")
	}
}

func TestRemoteStoreClearsReservation(t *testing.T) {
	bus := NewBus()
	a := NewManager(0, bus)
	b := NewManager(1, bus)
	bus.Register(a)
	bus.Register(b)

	a.SetLocked(0x2000)
	b.StoreConditional(0x2000) // fails (b holds none), but exercises the path harmlessly
	b.SetLocked(0x2000)
	if !b.StoreConditional(0x2000) {
		t.Fatal("b's own STx_C should succeed")
	}
	// b's successful store should have cleared a's reservation over the
	// same granule via the coherence bus.
	if a.Held() {
		t.Error("remote store should have cleared a's reservation")
	}
}

func TestRemotePlainStoreClearsReservation(t *testing.T) {
	bus := NewBus()
	a := NewManager(0, bus)
	b := NewManager(1, bus)
	bus.Register(a)
	bus.Register(b)

	a.SetLocked(0x2000)
	// b issues an ordinary STQ (not STx_C) into the same granule a has
	// locked; this must clear a's reservation too, per spec.md's "any
	// store, local or remote, that observably touches the granule clears
	// the reservation" rule -- not just a conflicting STx_C.
	b.Store(0x2000)
	if a.Held() {
		t.Error("remote plain store should have cleared a's reservation")
	}
}

func TestOwnPlainStoreClearsOwnReservation(t *testing.T) {
	m := NewManager(0, nil)
	m.SetLocked(0x4000)
	m.Store(0x4000)
	if m.Held() {
		t.Error("a plain store to the locked granule should clear the reservation, even from the owning CPU")
	}
}

func TestPlainStoreOutsideGranuleLeavesReservation(t *testing.T) {
	m := NewManager(0, nil)
	m.SetLocked(0x4000)
	m.Store(0x5000)
	if !m.Held() {
		t.Error("a store to an unrelated granule should not clear the reservation")
	}
}

func TestMemoryBarrierClearsOnlyLocal(t *testing.T) {
	m := NewManager(0, nil)
	m.SetLocked(0x3000)
	m.ClearLocal()
	if m.Held() {
		t.Error("ClearLocal should drop the reservation")
	}
}
