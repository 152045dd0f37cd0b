package vector

// thumb marks a handler address as Thumb code. Cortex-M faults when it
// branches to an address with bit 0 clear.
const thumb = 1

// Image renders the table as the words the core reads from the vector
// table base: the initial stack pointer, then one handler address per slot.
// addrOf returns the code address of whatever runs at slot n, populated or
// default; reserved slots are left zero.
func (t *Table) Image(stackTop uint32, addrOf func(n int) uint32) []uint32 {
	words := make([]uint32, Len)
	words[StackSlot] = stackTop
	for n := 1; n < Len; n++ {
		if Reserved(n) {
			continue
		}
		words[n] = addrOf(n) | thumb
	}
	return words
}
