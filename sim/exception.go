package sim

import (
	"fmt"
	"runtime"

	"k8s.io/klog/v2"

	"omibyte.io/m4boot/chip/cortexm"
	"omibyte.io/m4boot/mmio"
	"omibyte.io/m4boot/trap"
	"omibyte.io/m4boot/vector"
)

// priority returns the raw priority of vector n. Lower is more urgent.
// Caller holds mu.
func (m *Machine) priority(n int) int {
	switch {
	case n == nmi:
		return -2
	case n == hardFault:
		return -1
	case n < cortexm.ExternalBase:
		b := uint32(n - 4)
		return int(m.cells[cortexm.SHPR1.Add(b&^3)] >> (b & 3 * 8) & 0xFF)
	}
	irq := uint32(n - cortexm.ExternalBase)
	return int(m.cells[cortexm.NVIC_IPR.Add(irq&^3)] >> (irq & 3 * 8) & 0xFF)
}

// runningPriority is the priority of the innermost active exception.
// Caller holds mu.
func (m *Machine) runningPriority() int {
	p := threadPriority
	for _, n := range m.active {
		if q := m.priority(n); q < p {
			p = q
		}
	}
	return p
}

func (m *Machine) isActive(n int) bool {
	for _, a := range m.active {
		if a == n {
			return true
		}
	}
	return false
}

// next picks the pending exception that may preempt what is running and
// clears its pending state. Caller holds mu.
func (m *Machine) next() (int, bool) {
	limit := m.runningPriority()
	if m.primask && limit > -1 {
		limit = -1
	}
	best, bestPri := -1, limit
	consider := func(n int) {
		if p := m.priority(n); p < bestPri {
			best, bestPri = n, p
		}
	}
	for n := nmi; n < cortexm.ExternalBase; n++ {
		if m.sysPending&(1<<n) != 0 {
			consider(n)
		}
	}
	for bank := range m.pending {
		ready := m.pending[bank] & m.enabled[bank]
		for bit := 0; ready != 0; bit++ {
			if ready&(1<<bit) != 0 {
				consider(cortexm.ExternalBase + bank*32 + bit)
				ready &^= 1 << bit
			}
		}
	}
	if best < 0 {
		return 0, false
	}
	if best < cortexm.ExternalBase {
		m.sysPending &^= 1 << best
	} else {
		irq := best - cortexm.ExternalBase
		m.pending[irq/32] &^= 1 << (irq % 32)
	}
	return best, true
}

// service takes every pending exception allowed to run. It is called by the
// core after each bus access and when PRIMASK is cleared.
func (m *Machine) service() {
	for {
		if m.stop.Load() {
			runtime.Goexit()
		}
		m.mu.Lock()
		if m.resetReq {
			m.mu.Unlock()
			runtime.Goexit()
		}
		n, ok := m.next()
		m.mu.Unlock()
		if !ok {
			return
		}
		m.exec(n)
	}
}

// exec runs the handler of vector n to completion on the core.
func (m *Machine) exec(n int) {
	h, err := m.fetch(n)
	if err != nil {
		klog.ErrorS(err, "exception entry failed", "vector", vector.Name(n))
		m.mu.Lock()
		lock := n == hardFault || m.isActive(hardFault)
		m.cells[cortexm.HFSR] |= cortexm.HFSR_VECTTBL.Mask()
		if !lock {
			m.enter(hardFault)
		}
		m.mu.Unlock()
		if lock {
			m.lockup(n, err)
		}
		m.run(hardFault, nil)
		return
	}
	m.mu.Lock()
	m.enter(n)
	m.mu.Unlock()
	m.run(n, h)
}

// run executes an entered exception and leaves it. A nil handler is
// fetched again, which is how a forced hard fault picks up its entry.
func (m *Machine) run(n int, h vector.Handler) {
	if h == nil {
		var err error
		if h, err = m.fetch(n); err != nil {
			m.lockup(n, err)
		}
	}
	klog.V(3).InfoS("exception entry", "vector", vector.Name(n))
	h()
	m.mu.Lock()
	m.leave(n)
	m.mu.Unlock()
	klog.V(3).InfoS("exception return", "vector", vector.Name(n))
}

// fetch reads the entry for vector n from the table VTOR points at.
func (m *Machine) fetch(n int) (vector.Handler, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	slot := mmio.Addr(m.cells[cortexm.VTOR] & cortexm.VTORMask).Add(uint32(n) * 4)
	a, r, ok := m.resolve(slot)
	if !ok || r.Prot&ProtRead == 0 {
		return nil, fmt.Errorf("%w: %s at unmapped %#08x", ErrVectorFetch, vector.Name(n), uint32(slot))
	}
	word := m.cells[a]
	if word&1 == 0 {
		return nil, fmt.Errorf("%w: %s entry %#08x is not Thumb code", ErrVectorFetch, vector.Name(n), word)
	}
	h, ok := m.code[mmio.Addr(word&^1)]
	if !ok {
		m.cells[cortexm.CFSR] |= cfsrIBUSERR
		return nil, fmt.Errorf("%w: %s: no code at %#08x", ErrVectorFetch, vector.Name(n), word&^1)
	}
	return h, nil
}

// enter and leave track the active set. Caller holds mu.
func (m *Machine) enter(n int) {
	m.active = append(m.active, n)
	if n >= cortexm.ExternalBase {
		irq := n - cortexm.ExternalBase
		m.activeIRQ[irq/32] |= 1 << (irq % 32)
	}
}

func (m *Machine) leave(n int) {
	for i := len(m.active) - 1; i >= 0; i-- {
		if m.active[i] == n {
			m.active = append(m.active[:i], m.active[i+1:]...)
			break
		}
	}
	if n >= cortexm.ExternalBase {
		irq := n - cortexm.ExternalBase
		m.activeIRQ[irq/32] &^= 1 << (irq % 32)
	}
}

// raiseFault takes a synchronous fault. A configurable fault that is
// disabled or cannot preempt escalates to HardFault; a fault inside the
// HardFault handler locks the core up.
func (m *Machine) raiseFault(f fault) {
	m.mu.Lock()
	m.cells[cortexm.CFSR] |= f.cfsr
	switch f.vector {
	case busFault:
		m.cells[cortexm.BFAR] = uint32(f.addr)
	case memManage:
		m.cells[cortexm.MMFAR] = uint32(f.addr)
	}
	n := f.vector
	enable := uint32(1) << (16 + n - memManage)
	if m.cells[cortexm.SHCSR]&enable == 0 || m.primask || m.priority(n) >= m.runningPriority() {
		m.cells[cortexm.HFSR] |= cortexm.HFSR_FORCED.Mask()
		n = hardFault
	}
	lock := n == hardFault && m.isActive(hardFault)
	m.mu.Unlock()

	klog.V(1).InfoS("fault", "vector", vector.Name(n), "addr", fmt.Sprintf("%#08x", uint32(f.addr)))
	if lock {
		m.lockup(n, fmt.Sprintf("fault at %#08x in HardFault", uint32(f.addr)))
	}
	m.exec(n)
}

// boot does what the core does out of reset: load SP from the first word
// of the vector table, branch to the second. Returning from the reset
// handler has nowhere to go.
func (m *Machine) boot() {
	m.mu.Lock()
	m.running = true
	sp := m.cells[m.flash.Origin]
	pc := m.cells[m.flash.Origin+4]
	_, r, spOK := m.resolve(mmio.Addr(sp - 4))
	h, pcOK := m.code[mmio.Addr(pc&^1)]
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.running = false
		m.mu.Unlock()
	}()

	switch {
	case !spOK || r.Prot&ProtWrite == 0 || sp&3 != 0:
		m.lockup(vector.StackSlot, fmt.Sprintf("initial SP %#08x", sp))
	case pc&1 == 0 || !pcOK:
		m.lockup(vector.ResetSlot, fmt.Sprintf("reset vector %#08x", pc))
	}
	klog.V(1).InfoS("core out of reset", "sp", fmt.Sprintf("%#08x", sp), "pc", fmt.Sprintf("%#08x", pc))
	h()
	m.Halt(trap.Event{Kind: trap.EntryReturned, Vector: vector.ResetSlot})
}

// resetState puts the core and every peripheral back to reset values.
// Memory keeps its contents.
func (m *Machine) resetState() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for a := range m.cells {
		if a >= peripheralStart {
			delete(m.cells, a)
		}
	}
	for a, v := range resetValues {
		m.cells[a] = v
	}
	m.enabled = [nvicBanks]uint32{}
	m.pending = [nvicBanks]uint32{}
	m.activeIRQ = [nvicBanks]uint32{}
	m.sysPending = 0
	m.active = nil
	m.primask = false
	m.resetReq = false
}
