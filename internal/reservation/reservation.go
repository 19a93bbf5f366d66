// Package reservation implements the load-locked/store-conditional protocol:
// one reservation per CPU over a 64-byte granule, cleared by MB/WMB, by a
// conflicting remote store, or by entering an exception.
package reservation

import "sync"

// GranuleSize is the reservation granule: a store anywhere inside this
// many bytes of a locked address clears the lock, not just a store to the
// exact address.
const GranuleSize = 64

func granule(pa uint64) uint64 { return pa &^ (GranuleSize - 1) }

// Coherence is the multi-CPU callback this core's reservation manager
// drives on every successful store: a remote store into another CPU's
// locked granule must clear that CPU's reservation. The teacher's S/370
// core has no analogue (CS/CDS use compare-and-swap, not a lock flag), so
// this interface is new relative to the teacher, grounded on the original
// PALcode lineage's barrier_hooks.h coherence-callback shape instead.
type Coherence interface {
	// NotifyStore is called after a store to pa commits, so every other
	// CPU's Manager can clear a reservation whose granule the store hit.
	NotifyStore(fromCPU int, pa uint64)
}

// Manager holds one CPU's single reservation.
type Manager struct {
	mu       sync.Mutex
	cpu      int
	held     bool
	granule  uint64
	coherence Coherence
}

// NewManager returns a reservation manager for the given CPU index,
// reporting its own stores to coherence so sibling managers can invalidate.
func NewManager(cpuIndex int, coherence Coherence) *Manager {
	return &Manager{cpu: cpuIndex, coherence: coherence}
}

// SetLocked establishes a reservation over the granule containing pa,
// executed by LDx_L.
func (m *Manager) SetLocked(pa uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.held = true
	m.granule = granule(pa)
}

// StoreConditional attempts STx_C: if a reservation over pa's granule is
// still held, it succeeds (clearing the reservation and notifying
// coherence); otherwise it fails without touching memory.
func (m *Manager) StoreConditional(pa uint64) bool {
	m.mu.Lock()
	held := m.held && m.granule == granule(pa)
	m.held = false
	m.mu.Unlock()
	if held && m.coherence != nil {
		m.coherence.NotifyStore(m.cpu, pa)
	}
	return held
}

// Store records a plain (non-conditional) store to pa: it clears this CPU's
// own reservation if pa falls in the locked granule, then notifies coherence
// so every other CPU's Manager does the same. spec.md's rule is that any
// store, local or remote, that observably touches a locked granule clears
// the reservation over it -- not just a matching STx_C -- so every ordinary
// STx/STF/STx_U path must call this, not only StoreConditional.
func (m *Manager) Store(pa uint64) {
	m.mu.Lock()
	if m.held && m.granule == granule(pa) {
		m.held = false
	}
	m.mu.Unlock()
	if m.coherence != nil {
		m.coherence.NotifyStore(m.cpu, pa)
	}
}

// NotifyStore implements Coherence for this CPU's own manager: a remote
// store into this CPU's locked granule clears the lock.
func (m *Manager) NotifyStore(fromCPU int, pa uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if fromCPU == m.cpu {
		return
	}
	if m.held && m.granule == granule(pa) {
		m.held = false
	}
}

// ClearLocal drops this CPU's own reservation unconditionally, the action
// MB and WMB take per SPEC_FULL.md §C.6 (memory barriers clear only the
// local reservation; remote invalidation is delivered through Coherence).
func (m *Manager) ClearLocal() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.held = false
}

// ClearOnException drops the reservation on entry to PALcode, matching
// spec.md's rule that any exception entry implicitly clears a pending
// lock-step.
func (m *Manager) ClearOnException() {
	m.ClearLocal()
}

// Held reports whether a reservation is currently outstanding, for test and
// trace use.
func (m *Manager) Held() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.held
}

// Bus fans a store out to every registered CPU's Manager, acting as the
// Coherence implementation the SMP coordinator wires managers together
// through.
type Bus struct {
	mu       sync.Mutex
	managers []*Manager
}

// NewBus returns an empty coherence bus.
func NewBus() *Bus { return &Bus{} }

// Register adds m to the bus so it receives NotifyStore calls from every
// other registered manager.
func (b *Bus) Register(m *Manager) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.managers = append(b.managers, m)
}

// NotifyStore implements Coherence, broadcasting to every registered
// manager except the originator (each Manager.NotifyStore already ignores
// its own CPU index, but skipping here avoids the lock round-trip).
func (b *Bus) NotifyStore(fromCPU int, pa uint64) {
	b.mu.Lock()
	managers := make([]*Manager, len(b.managers))
	copy(managers, b.managers)
	b.mu.Unlock()
	for _, m := range managers {
		if m.cpu == fromCPU {
			continue
		}
		m.NotifyStore(fromCPU, pa)
	}
}
