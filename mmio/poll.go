package mmio

// WaitBit polls until bit pos reads as want. It gives up after budget reads
// unless budget is Forever. Between reads it issues a CPU hint through the
// bus.
func (r Register) WaitBit(pos uint32, want bool, budget uint32) bool {
	assertBit(r.addr, pos)
	return r.poll(budget, func() bool {
		return r.Bit(pos) == want
	})
}

// WaitField polls until field f equals want.
func (r Register) WaitField(f Field, want, budget uint32) bool {
	assertField(r.addr, f.Pos, f.Width)
	return r.poll(budget, func() bool {
		return r.ReadField(f) == want
	})
}

// WaitMasked polls until (register >> pos) & mask equals want.
func (r Register) WaitMasked(want, mask, pos, budget uint32) bool {
	assertMaskFits(r.addr, mask, pos)
	return r.poll(budget, func() bool {
		return r.ReadMasked(mask, pos) == want
	})
}

func (r Register) poll(budget uint32, done func() bool) bool {
	var attempts uint32
	for {
		if done() {
			return true
		}
		if budget != Forever {
			attempts++
			if attempts >= budget {
				return false
			}
		}
		spin(r.bus)
	}
}
