// Package trap stops the machine when something unrecoverable happens: a
// fault exception, an interrupt nobody handles, a software panic or an entry
// point that returns. A trapped machine never resumes.
package trap

import (
	"fmt"
	"sync"

	"omibyte.io/m4boot/chip/cortexm"
)

type Kind uint8

const (
	HardFault Kind = iota
	NMI
	MemManage
	BusFault
	UsageFault
	Unhandled
	Panic
	EntryReturned
)

var kindNames = [...]string{
	HardFault:     "hard fault",
	NMI:           "NMI",
	MemManage:     "memory management fault",
	BusFault:      "bus fault",
	UsageFault:    "usage fault",
	Unhandled:     "unhandled interrupt",
	Panic:         "panic",
	EntryReturned: "entry returned",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// KindOf classifies an exception arriving at a default handler.
func KindOf(e cortexm.Exception) Kind {
	switch e {
	case cortexm.NMI:
		return NMI
	case cortexm.HardFault:
		return HardFault
	case cortexm.MemManage:
		return MemManage
	case cortexm.BusFault:
		return BusFault
	case cortexm.UsageFault:
		return UsageFault
	}
	return Unhandled
}

// Event describes why the machine stopped. Vector is the vector table index
// being serviced, or -1 outside of exception context. Value carries the
// recovered panic value or fault status when there is one.
type Event struct {
	Kind   Kind
	Vector int
	Value  any
}

func (e Event) String() string {
	s := e.Kind.String()
	if e.Vector >= 0 {
		s += fmt.Sprintf(" (vector %d)", e.Vector)
	}
	if e.Value != nil {
		s += fmt.Sprintf(": %v", e.Value)
	}
	return s
}

// Halter parks the machine. Halt must not return.
type Halter interface {
	Halt(ev Event)
}

type HalterFunc func(ev Event)

func (f HalterFunc) Halt(ev Event) {
	f(ev)
}

var (
	observersMu sync.Mutex
	observers   = map[int]func(Event){}
	nextID      int
)

// Observe registers fn to be told about every trap before the machine
// halts. The returned function removes it again.
func Observe(fn func(Event)) (remove func()) {
	observersMu.Lock()
	defer observersMu.Unlock()
	id := nextID
	nextID++
	observers[id] = fn
	return func() {
		observersMu.Lock()
		delete(observers, id)
		observersMu.Unlock()
	}
}

func notify(ev Event) {
	observersMu.Lock()
	fns := make([]func(Event), 0, len(observers))
	for _, fn := range observers {
		fns = append(fns, fn)
	}
	observersMu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

// Halt reports ev to the observers and stops through h. If h returns anyway
// the calling context is parked, so Halt never returns.
func Halt(h Halter, ev Event) {
	notify(ev)
	if h != nil {
		h.Halt(ev)
	}
	park()
}

func park() {
	select {}
}

// Recover converts a software panic into a Panic trap. It must be deferred
// directly:
//
//	defer trap.Recover(h)
func Recover(h Halter) {
	if r := recover(); r != nil {
		Halt(h, Event{Kind: Panic, Vector: -1, Value: r})
	}
}

// Handler returns an exception handler that traps with the kind matching
// the vector.
func Handler(h Halter, vector int) func() {
	kind := Unhandled
	if vector < cortexm.ExternalBase {
		kind = KindOf(cortexm.Exception(vector))
	}
	return func() {
		Halt(h, Event{Kind: kind, Vector: vector})
	}
}
