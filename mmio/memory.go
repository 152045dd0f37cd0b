package mmio

import (
	"sync"

	"golang.org/x/exp/slices"
)

// LoadHook lets a Memory cell behave like a hardware register whose value
// changes on its own. It receives the number of loads already made from the
// cell and the stored value, and returns the value observed by this load.
// It runs without the Memory lock held, so it may Peek or Poke other cells.
type LoadHook func(loads int, stored uint32) uint32

// Memory is a sparse word store that stands in for the address space on the
// host. Unwritten cells read as zero. It counts every access so tests can
// assert which cells an operation touched.
type Memory struct {
	mu     sync.Mutex
	cells  map[Addr]uint32
	loads  map[Addr]int
	stores map[Addr]int
	hooks  map[Addr]LoadHook
	spins  int
}

func NewMemory() *Memory {
	return &Memory{
		cells:  map[Addr]uint32{},
		loads:  map[Addr]int{},
		stores: map[Addr]int{},
		hooks:  map[Addr]LoadHook{},
	}
}

func (m *Memory) Load32(addr Addr) uint32 {
	assertAligned(addr)
	m.mu.Lock()
	value := m.cells[addr]
	loads := m.loads[addr]
	m.loads[addr]++
	hook := m.hooks[addr]
	m.mu.Unlock()
	if hook == nil {
		return value
	}

	value = hook(loads, value)
	m.mu.Lock()
	m.cells[addr] = value
	m.mu.Unlock()
	return value
}

func (m *Memory) Store32(addr Addr, value uint32) {
	assertAligned(addr)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cells[addr] = value
	m.stores[addr]++
}

func (m *Memory) SpinWait() {
	m.mu.Lock()
	m.spins++
	m.mu.Unlock()
}

// Hook installs fn for loads of addr. A nil fn removes the hook.
func (m *Memory) Hook(addr Addr, fn LoadHook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if fn == nil {
		delete(m.hooks, addr)
		return
	}
	m.hooks[addr] = fn
}

// Peek reads a cell without counting the access or running hooks.
func (m *Memory) Peek(addr Addr) uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cells[addr]
}

// Poke writes a cell without counting the access.
func (m *Memory) Poke(addr Addr, value uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cells[addr] = value
}

// Fill pokes consecutive words starting at addr.
func (m *Memory) Fill(addr Addr, words ...uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, w := range words {
		m.cells[addr.Add(uint32(i)*4)] = w
	}
}

// Words returns n consecutive words starting at addr without counting them.
func (m *Memory) Words(addr Addr, n int) []uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]uint32, n)
	for i := range out {
		out[i] = m.cells[addr.Add(uint32(i)*4)]
	}
	return out
}

// Loads returns how many times addr was read through the Bus interface.
func (m *Memory) Loads(addr Addr) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loads[addr]
}

// Stores returns how many times addr was written through the Bus interface.
func (m *Memory) Stores(addr Addr) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stores[addr]
}

// Spins returns how many CPU hints pollers have issued.
func (m *Memory) Spins() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.spins
}

// Written returns every address stored to, in ascending order.
func (m *Memory) Written() []Addr {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Addr, 0, len(m.stores))
	for addr := range m.stores {
		out = append(out, addr)
	}
	slices.Sort(out)
	return out
}

// ResetCounters clears the access accounting but keeps the contents.
func (m *Memory) ResetCounters() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads = map[Addr]int{}
	m.stores = map[Addr]int{}
	m.spins = 0
}
