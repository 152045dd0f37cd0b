package mmio

import "math/bits"

// Forever is the poll budget that never times out.
const Forever uint32 = 0

// Register is a handle on one 32-bit register reachable through a bus.
type Register struct {
	bus  Bus
	addr Addr
}

// Reg returns the register at addr on bus. The address must be aligned.
func Reg(bus Bus, addr Addr) Register {
	assertAligned(addr)
	return Register{bus: bus, addr: addr}
}

func (r Register) Addr() Addr {
	return r.addr
}

func (r Register) Bus() Bus {
	return r.bus
}

// Offset returns the register n bytes further along the same bus.
func (r Register) Offset(n uint32) Register {
	return Reg(r.bus, r.addr.Add(n))
}

// Get reads the whole register.
func (r Register) Get() uint32 {
	assertAligned(r.addr)
	return r.bus.Load32(r.addr)
}

// Set writes the whole register.
func (r Register) Set(value uint32) {
	assertAligned(r.addr)
	r.bus.Store32(r.addr, value)
}

// Modify reads the register, passes the value through fn and writes the
// result back. Not atomic.
func (r Register) Modify(fn func(uint32) uint32) {
	r.Set(fn(r.Get()))
}

// SetField replaces width bits at pos with value, leaving every other bit
// untouched. value must fit in width bits.
func (r Register) SetField(value, pos, width uint32) {
	assertField(r.addr, pos, width)
	assertFits(r.addr, value, width)
	mask := MaskN(width) << pos
	current := r.Get()
	r.Set(current&^mask | value<<pos&mask)
}

// WriteField is SetField for a descriptor.
func (r Register) WriteField(f Field, value uint32) {
	r.SetField(value, f.Pos, f.Width)
}

// Field reads width bits at pos, right aligned.
func (r Register) Field(pos, width uint32) uint32 {
	assertField(r.addr, pos, width)
	return r.Get() >> pos & MaskN(width)
}

// ReadField is Field for a descriptor.
func (r Register) ReadField(f Field) uint32 {
	return r.Field(f.Pos, f.Width)
}

// WriteBit drives bit pos to on.
func (r Register) WriteBit(pos uint32, on bool) {
	assertBit(r.addr, pos)
	current := r.Get()
	if on {
		current |= 1 << pos
	} else {
		current &^= 1 << pos
	}
	r.Set(current)
}

func (r Register) SetBit(pos uint32) {
	r.WriteBit(pos, true)
}

func (r Register) ClearBit(pos uint32) {
	r.WriteBit(pos, false)
}

// ToggleBit flips bit pos.
func (r Register) ToggleBit(pos uint32) {
	assertBit(r.addr, pos)
	r.Set(r.Get() ^ 1<<pos)
}

// Bit reports whether bit pos is set.
func (r Register) Bit(pos uint32) bool {
	assertBit(r.addr, pos)
	return r.Get()&(1<<pos) != 0
}

// WriteMasked replaces the bits selected by mask<<pos with value<<pos. The
// mask does not have to be contiguous.
func (r Register) WriteMasked(value, mask, pos uint32) {
	assertMaskFits(r.addr, mask, pos)
	assertInMask(r.addr, value, mask)
	shifted := mask << pos
	current := r.Get()
	r.Set(current&^shifted | (value&mask)<<pos)
}

// ReadMasked returns (register >> pos) & mask.
func (r Register) ReadMasked(mask, pos uint32) uint32 {
	assertMaskFits(r.addr, mask, pos)
	return r.Get() >> pos & mask
}

// ClearMasked clears the bits selected by mask<<pos.
func (r Register) ClearMasked(mask, pos uint32) {
	assertMaskFits(r.addr, mask, pos)
	r.Set(r.Get() &^ (mask << pos))
}

// ToggleMasked flips the bits selected by mask<<pos.
func (r Register) ToggleMasked(mask, pos uint32) {
	assertMaskFits(r.addr, mask, pos)
	r.Set(r.Get() ^ mask<<pos)
}

// TestAndSet sets bit pos and returns its previous state.
//
// This is a load followed by a store. An interrupt that changes the register
// between the two is silently overwritten, so two contexts must never use it
// on the same register without holding Exclusive access.
func (r Register) TestAndSet(pos uint32) bool {
	assertBit(r.addr, pos)
	current := r.Get()
	r.Set(current | 1<<pos)
	return current&(1<<pos) != 0
}

// TestAndClear clears bit pos and returns its previous state. Not atomic,
// see TestAndSet.
func (r Register) TestAndClear(pos uint32) bool {
	assertBit(r.addr, pos)
	current := r.Get()
	r.Set(current &^ (1 << pos))
	return current&(1<<pos) != 0
}

// OnesCount returns the number of set bits in one snapshot of the register.
func (r Register) OnesCount() int {
	return bits.OnesCount32(r.Get())
}

// FirstSet returns the position of the least significant set bit. ok is
// false when the register reads zero.
func (r Register) FirstSet() (pos uint32, ok bool) {
	v := r.Get()
	if v == 0 {
		return 0, false
	}
	return uint32(bits.TrailingZeros32(v)), true
}
