// Package mmio provides volatile, bounds-checked access to 32-bit
// memory-mapped registers.
//
// Every helper in this package is a plain read followed by a plain write.
// None of them is atomic with respect to an interrupt handler touching the
// same register; see Exclusive for the discipline callers must follow.
package mmio

import "runtime"

// Addr is the location of a 32-bit register.
type Addr uint32

// Aligned reports whether the address is on a 4-byte boundary.
func (a Addr) Aligned() bool {
	return a&0x3 == 0
}

// Add returns the address offset by n bytes.
func (a Addr) Add(n uint32) Addr {
	return a + Addr(n)
}

// Bus performs the actual volatile loads and stores. Implementations must
// not cache, merge or drop accesses: two identical stores are two bus
// transactions.
type Bus interface {
	Load32(addr Addr) uint32
	Store32(addr Addr, value uint32)
}

// Spinner is implemented by buses that want to be told when a caller is
// busy-waiting on them.
type Spinner interface {
	SpinWait()
}

func spin(bus Bus) {
	if s, ok := bus.(Spinner); ok {
		s.SpinWait()
		return
	}
	runtime.Gosched()
}
