package mmio

import (
	"sync/atomic"
	"unsafe"
)

// Direct accesses the physical address space of the running CPU. It is only
// meaningful on the target; on a hosted OS any access faults.
//
// Loads and stores go through sync/atomic, which the Go compiler never
// elides, merges or reorders. On ARMv7-M a 32-bit atomic load or store is a
// single LDR/STR wrapped in barriers.
type Direct struct{}

func (Direct) Load32(addr Addr) uint32 {
	return atomic.LoadUint32(word(addr))
}

func (Direct) Store32(addr Addr, value uint32) {
	atomic.StoreUint32(word(addr), value)
}

//go:nocheckptr
func word(addr Addr) *uint32 {
	return (*uint32)(unsafe.Pointer(uintptr(addr)))
}
