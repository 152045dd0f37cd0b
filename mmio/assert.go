package mmio

import "math/bits"

func fail(err error, addr Addr, args ...uint32) {
	panic(&UsageError{Err: err, Addr: addr, Args: args})
}

func assertAligned(addr Addr) {
	if Checked && !addr.Aligned() {
		fail(ErrUnaligned, addr)
	}
}

func assertBit(addr Addr, pos uint32) {
	if Checked && pos >= 32 {
		fail(ErrBitPosition, addr, pos)
	}
}

func assertField(addr Addr, pos, width uint32) {
	if !Checked {
		return
	}
	if width == 0 || width > 32 {
		fail(ErrFieldWidth, addr, pos, width)
	}
	assertBit(addr, pos)
	if pos+width > 32 {
		fail(ErrFieldRange, addr, pos, width)
	}
}

func assertFits(addr Addr, value, width uint32) {
	if Checked && value&^MaskN(width) != 0 {
		fail(ErrValueTooWide, addr, value, width)
	}
}

// assertMaskFits only checks that the highest set bit of mask still lands
// inside the register after shifting. Sparse masks are accepted as is.
func assertMaskFits(addr Addr, mask, pos uint32) {
	if !Checked {
		return
	}
	assertBit(addr, pos)
	if mask == 0 {
		return
	}
	highest := uint32(31 - bits.LeadingZeros32(mask))
	if pos+highest >= 32 {
		fail(ErrMaskPlacement, addr, mask, pos)
	}
}

func assertInMask(addr Addr, value, mask uint32) {
	if Checked && value&^mask != 0 {
		fail(ErrValueOffMask, addr, value, mask)
	}
}
