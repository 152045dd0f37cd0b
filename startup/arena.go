package startup

import "omibyte.io/m4boot/mmio"

// Arena is the one handle to the statically allocated globals in .data and
// .bss. Globals handed out by it check that the reset sequence has already
// initialised them, so nothing reads a global before its initial value is in
// place.
type Arena struct {
	bus    mmio.Bus
	layout Layout
	ready  bool
}

func NewArena(bus mmio.Bus, l Layout) *Arena {
	return &Arena{bus: bus, layout: l}
}

// Ready reports whether the reset sequence has initialised the arena.
func (a *Arena) Ready() bool {
	return a.ready
}

// Global returns the word at offset off from _sdata. The word must lie in
// .data or .bss.
func (a *Arena) Global(off uint32) mmio.Register {
	addr := a.layout.DataStart.Add(off)
	if !a.ready {
		panic(&mmio.UsageError{Err: ErrUninitialized, Addr: addr})
	}
	// Offsets past _ebss can wrap the address space back into .data.
	if a.layout.BssEnd <= a.layout.DataStart || off >= uint32(a.layout.BssEnd-a.layout.DataStart) {
		panic(&mmio.UsageError{Err: ErrOutsideArena, Addr: addr})
	}
	if !a.layout.Data().Contains(addr) && !a.layout.Bss().Contains(addr) {
		panic(&mmio.UsageError{Err: ErrOutsideArena, Addr: addr})
	}
	return mmio.Reg(a.bus, addr)
}

func (a *Arena) Layout() Layout {
	return a.layout
}
