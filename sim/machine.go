// Package sim is a simulated STM32F429. Its core boots the way silicon
// does, reading the initial stack pointer and reset handler out of the
// vector table in flash, and services interrupts between bus accesses.
// Handlers are Go functions; a linked program maps each vector table entry
// to one of them through a synthetic code address.
//
// Load32 and Store32 belong to the simulated core. Other goroutines observe
// and stimulate the machine through Peek, Poke, Raise, Press and At.
package sim

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"k8s.io/klog/v2"

	"omibyte.io/m4boot/chip/cortexm"
	"omibyte.io/m4boot/chip/stm32f429"
	"omibyte.io/m4boot/mmio"
	"omibyte.io/m4boot/targets"
	"omibyte.io/m4boot/trap"
	"omibyte.io/m4boot/vector"
)

const (
	nmi        = int(cortexm.NMI)
	hardFault  = int(cortexm.HardFault)
	memManage  = int(cortexm.MemManage)
	busFault   = int(cortexm.BusFault)
	usageFault = int(cortexm.UsageFault)
	pendSV     = int(cortexm.PendSV)
	sysTick    = int(cortexm.SysTick)

	// threadPriority is the priority of code running outside any handler.
	threadPriority = 256
	nvicBanks      = (stm32f429.NumIRQ + 31) / 32
)

// Fault status bits the machine records.
const (
	cfsrIBUSERR   = 1 << 8
	cfsrPRECISERR = 1 << 9
	cfsrBFARVALID = 1 << 15
	cfsrUNALIGNED = 1 << 24
)

type Config struct {
	Target targets.TargetInfo
	// TickStep is how far SysTick counts down per bus access. Zero means 1.
	TickStep uint32
}

type Machine struct {
	mu      sync.Mutex
	cfg     Config
	regions []Region
	flash   targets.Memory
	cells   map[mmio.Addr]uint32
	devices map[mmio.Addr]device
	code    map[mmio.Addr]vector.Handler
	loaded  bool

	enabled    [nvicBanks]uint32
	pending    [nvicBanks]uint32
	activeIRQ  [nvicBanks]uint32
	sysPending uint32
	active     []int
	primask    bool

	accesses uint64
	actions  []action

	running  bool
	stop     atomic.Bool
	resetReq bool
	resets   int
	halted   *trap.Event
}

type action struct {
	at uint64
	fn func(m *Machine)
}

type fault struct {
	vector int
	cfsr   uint32
	addr   mmio.Addr
}

func New(cfg Config) (*Machine, error) {
	regions, flash, err := memoryMap(cfg.Target)
	if err != nil {
		return nil, err
	}
	if cfg.TickStep == 0 {
		cfg.TickStep = 1
	}
	m := &Machine{
		cfg:     cfg,
		regions: regions,
		flash:   flash,
		cells:   map[mmio.Addr]uint32{},
		code:    map[mmio.Addr]vector.Handler{},
	}
	m.devices = m.installDevices()
	m.resetState()
	return m, nil
}

func (m *Machine) Regions() []Region {
	return append([]Region(nil), m.regions...)
}

// Load writes a linked program into flash.
func (m *Machine) Load(b *Binary) error {
	if uint32(len(b.Flash))*4 > uint32(m.flash.Length) {
		return fmt.Errorf("%w: %d bytes, flash has %d", ErrImageTooLarge, len(b.Flash)*4, uint32(m.flash.Length))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, w := range b.Flash {
		m.cells[m.flash.Origin.Add(uint32(i)*4)] = w
	}
	for a, h := range b.Code {
		m.code[a] = h
	}
	m.loaded = true
	klog.V(1).InfoS("program loaded", "words", len(b.Flash), "handlers", len(b.Code))
	return nil
}

// resolve maps addr to the cell backing it. Flash is aliased at address 0.
func (m *Machine) resolve(addr mmio.Addr) (mmio.Addr, Region, bool) {
	if addr < mmio.Addr(m.flash.Length) {
		addr += m.flash.Origin
	}
	for _, r := range m.regions {
		if r.Contains(addr) {
			return addr, r, true
		}
	}
	return addr, Region{}, false
}

func (m *Machine) Load32(addr mmio.Addr) uint32 {
	m.mu.Lock()
	due := m.count()
	var v uint32
	f := m.check(addr, ProtRead)
	if f == nil {
		a, _, _ := m.resolve(addr)
		if d, ok := m.devices[a]; ok && d.load != nil {
			v = d.load(a)
		} else {
			v = m.cells[a]
		}
	}
	m.mu.Unlock()
	m.after(due, f)
	return v
}

func (m *Machine) Store32(addr mmio.Addr, value uint32) {
	m.mu.Lock()
	due := m.count()
	f := m.check(addr, ProtWrite)
	if f == nil {
		a, _, _ := m.resolve(addr)
		if d, ok := m.devices[a]; ok && d.store != nil {
			d.store(a, value)
		} else {
			m.cells[a] = value
		}
	}
	m.mu.Unlock()
	m.after(due, f)
}

// SpinWait lets other goroutines run while the core polls.
func (m *Machine) SpinWait() {
	runtime.Gosched()
}

// check validates a core access and describes the fault it raises.
func (m *Machine) check(addr mmio.Addr, need Prot) *fault {
	if !addr.Aligned() {
		return &fault{vector: usageFault, cfsr: cfsrUNALIGNED, addr: addr}
	}
	_, r, ok := m.resolve(addr)
	if !ok || r.Prot&need == 0 {
		return &fault{vector: busFault, cfsr: cfsrPRECISERR | cfsrBFARVALID, addr: addr}
	}
	return nil
}

// count advances time by one bus access and returns the actions that came
// due.
func (m *Machine) count() []action {
	m.accesses++
	m.tickSysTick()
	var due []action
	for len(m.actions) > 0 && m.actions[0].at <= m.accesses {
		due = append(due, m.actions[0])
		m.actions = m.actions[1:]
	}
	return due
}

func (m *Machine) after(due []action, f *fault) {
	for _, a := range due {
		a.fn(m)
	}
	if !m.isRunning() {
		return
	}
	if f != nil {
		m.raiseFault(*f)
	}
	m.service()
}

func (m *Machine) isRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Peek reads memory without counting the access or triggering devices.
func (m *Machine) Peek(addr mmio.Addr) uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, _, _ := m.resolve(addr)
	return m.cells[a]
}

// Poke writes memory without counting the access or triggering devices.
func (m *Machine) Poke(addr mmio.Addr, value uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, _, _ := m.resolve(addr)
	m.cells[a] = value
}

// Words returns n consecutive words starting at addr.
func (m *Machine) Words(addr mmio.Addr, n int) []uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]uint32, n)
	for i := range out {
		a, _, _ := m.resolve(addr.Add(uint32(i) * 4))
		out[i] = m.cells[a]
	}
	return out
}

// Accesses returns the number of core bus accesses since the machine was
// created.
func (m *Machine) Accesses() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accesses
}

// At schedules fn to run on the core right after bus access number n.
// Actions scheduled for the past run after the next access.
func (m *Machine) At(n uint64, fn func(m *Machine)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := len(m.actions)
	for i > 0 && m.actions[i-1].at > n {
		i--
	}
	m.actions = append(m.actions, action{})
	copy(m.actions[i+1:], m.actions[i:])
	m.actions[i] = action{at: n, fn: fn}
}

// Raise pends an external interrupt line as its peripheral would.
func (m *Machine) Raise(irq stm32f429.IRQ) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pendIRQ(int(irq))
}

// NMI pends the non-maskable interrupt.
func (m *Machine) NMI() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sysPending |= 1 << nmi
}

func (m *Machine) pendIRQ(irq int) {
	if irq >= 0 && irq < stm32f429.NumIRQ {
		m.pending[irq/32] |= 1 << (irq % 32)
	}
}

// Mask returns the global interrupt mask as a Critical. Only the core may
// enter it.
func (m *Machine) Mask() mmio.Critical {
	return primask{m}
}

type primask struct {
	m *Machine
}

func (p primask) Enter() uint32 {
	p.m.mu.Lock()
	defer p.m.mu.Unlock()
	var prev uint32
	if p.m.primask {
		prev = 1
	}
	p.m.primask = true
	return prev
}

func (p primask) Exit(state uint32) {
	p.m.mu.Lock()
	p.m.primask = state != 0
	p.m.mu.Unlock()
	if state == 0 && p.m.isRunning() {
		p.m.service()
	}
}

// Masked reports whether PRIMASK is set.
func (m *Machine) Masked() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.primask
}

// Halt stops the core for good. It implements trap.Halter for programs
// running on the machine and must be called on the core.
func (m *Machine) Halt(ev trap.Event) {
	m.mu.Lock()
	if m.halted == nil {
		m.halted = &ev
	}
	m.mu.Unlock()
	klog.InfoS("core halted", "event", ev.String(), "accesses", m.Accesses())
	runtime.Goexit()
}

// Halted returns the event that stopped the core, if any.
func (m *Machine) Halted() (trap.Event, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.halted == nil {
		return trap.Event{}, false
	}
	return *m.halted, true
}

func (m *Machine) lockup(n int, why any) {
	m.Halt(trap.Event{Kind: trap.HardFault, Vector: n, Value: fmt.Sprintf("lockup: %v", why)})
}
