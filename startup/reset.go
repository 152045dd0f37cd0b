// Package startup brings memory into the state compiled code expects and
// hands control to the application: copy .data from its load image, zero
// .bss, then jump to the entry point, which never returns.
package startup

import (
	"fmt"

	"omibyte.io/m4boot/mmio"
	"omibyte.io/m4boot/trap"
)

type Phase uint8

const (
	PhaseCopy Phase = iota
	PhaseZero
	PhaseTransfer
)

func (p Phase) String() string {
	switch p {
	case PhaseCopy:
		return "copy .data"
	case PhaseZero:
		return "zero .bss"
	case PhaseTransfer:
		return "transfer"
	}
	return fmt.Sprintf("Phase(%d)", uint8(p))
}

// CopyData copies .data from its load image one word at a time while the
// destination is below _edata.
func CopyData(bus mmio.Bus, l Layout) {
	src := l.DataLoad
	for dst := l.DataStart; dst < l.DataEnd; dst += 4 {
		bus.Store32(dst, bus.Load32(src))
		src += 4
	}
}

// ZeroBss clears .bss one word at a time while below _ebss.
func ZeroBss(bus mmio.Bus, l Layout) {
	for p := l.BssStart; p < l.BssEnd; p += 4 {
		bus.Store32(p, 0)
	}
}

// Sequence is the reset handler. Run performs the phases in order and
// never returns.
type Sequence struct {
	Bus    mmio.Bus
	Layout Layout
	Arena  *Arena
	Entry  func()
	Halter trap.Halter
	// OnPhase, if set, is told about each phase as it starts.
	OnPhase func(Phase)
}

func (s Sequence) phase(p Phase) {
	if s.OnPhase != nil {
		s.OnPhase(p)
	}
}

func (s Sequence) Run() {
	defer trap.Recover(s.Halter)

	s.phase(PhaseCopy)
	CopyData(s.Bus, s.Layout)
	s.phase(PhaseZero)
	ZeroBss(s.Bus, s.Layout)
	if s.Arena != nil {
		s.Arena.ready = true
	}

	s.phase(PhaseTransfer)
	s.Entry()
	trap.Halt(s.Halter, trap.Event{Kind: trap.EntryReturned, Vector: -1})
}

// Reset runs the reset sequence without a phase observer.
func Reset(bus mmio.Bus, l Layout, arena *Arena, entry func(), h trap.Halter) {
	Sequence{Bus: bus, Layout: l, Arena: arena, Entry: entry, Halter: h}.Run()
}
