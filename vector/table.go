// Package vector builds the exception vector table: the initial stack
// pointer followed by one handler per core exception and external
// interrupt. A table is assembled once from a list of entries and never
// changes afterwards.
package vector

import (
	"errors"
	"fmt"

	"omibyte.io/m4boot/chip/cortexm"
	"omibyte.io/m4boot/chip/stm32f429"
	"omibyte.io/m4boot/trap"
)

const (
	// Len is the number of words in the table.
	Len = cortexm.ExternalBase + stm32f429.NumIRQ
	// StackSlot holds the initial main stack pointer.
	StackSlot = 0
	// ResetSlot holds the reset handler.
	ResetSlot = int(cortexm.Reset)
)

// Handler services one exception or interrupt.
type Handler func()

// Entry assigns a handler to a slot. Build it with Exception or IRQ.
type Entry struct {
	Index   int
	Handler Handler
}

func Exception(e cortexm.Exception, h Handler) Entry {
	return Entry{Index: int(e), Handler: h}
}

func IRQ(irq stm32f429.IRQ, h Handler) Entry {
	return Entry{Index: irq.Vector(), Handler: h}
}

type Table struct {
	handlers [Len]Handler
	defaults [Len]Handler
	halter   trap.Halter
}

// Build validates entries and assembles the table. Every slot without an
// entry gets a default handler that traps through h. All problems are
// reported together.
func Build(h trap.Halter, entries ...Entry) (*Table, error) {
	t := &Table{halter: h}
	var errs []error
	for _, e := range entries {
		switch {
		case e.Index == StackSlot:
			errs = append(errs, ErrStackSlot)
		case e.Index < 0 || e.Index >= Len:
			errs = append(errs, fmt.Errorf("%w: %d", ErrOutOfRange, e.Index))
		case Reserved(e.Index):
			errs = append(errs, fmt.Errorf("%w: %d", ErrReserved, e.Index))
		case e.Handler == nil:
			errs = append(errs, fmt.Errorf("%w: %s", ErrNilHandler, Name(e.Index)))
		case t.handlers[e.Index] != nil:
			errs = append(errs, fmt.Errorf("%w: %s", ErrDuplicate, Name(e.Index)))
		default:
			t.handlers[e.Index] = e.Handler
		}
	}
	if t.handlers[ResetSlot] == nil {
		errs = append(errs, ErrNoReset)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	for n := 1; n < Len; n++ {
		if !Reserved(n) {
			t.defaults[n] = trap.Handler(h, n)
		}
	}
	return t, nil
}

// Reserved reports whether slot n is reserved by the architecture.
func Reserved(n int) bool {
	return n > StackSlot && n < cortexm.ExternalBase && cortexm.Exception(n).Reserved()
}

// Handler returns what runs when vector n is taken. Unassigned slots
// return the default trap handler, as do the stack slot, reserved slots and
// out-of-range indices, since taking any of those is itself a fault.
func (t *Table) Handler(n int) Handler {
	if n > StackSlot && n < Len {
		if h := t.handlers[n]; h != nil {
			return h
		}
		if h := t.defaults[n]; h != nil {
			return h
		}
	}
	return func() {
		trap.Halt(t.halter, trap.Event{Kind: trap.Unhandled, Vector: n})
	}
}

// Dispatch runs the handler for vector n.
func (t *Table) Dispatch(n int) {
	t.Handler(n)()
}

// Populated reports whether slot n has a handler of its own.
func (t *Table) Populated(n int) bool {
	return n > StackSlot && n < Len && t.handlers[n] != nil
}

func (t *Table) Len() int {
	return Len
}

// Assigned returns the indices of all populated slots in ascending order.
func (t *Table) Assigned() []int {
	var out []int
	for n := range t.handlers {
		if t.handlers[n] != nil {
			out = append(out, n)
		}
	}
	return out
}

// Name returns the conventional name of slot n.
func Name(n int) string {
	switch {
	case n == StackSlot:
		return "InitialSP"
	case n < 0 || n >= Len:
		return fmt.Sprintf("Vector(%d)", n)
	case Reserved(n):
		return "Reserved"
	case n < cortexm.ExternalBase:
		return cortexm.Exception(n).String()
	}
	irq, _ := stm32f429.FromVector(n)
	return irq.String()
}
