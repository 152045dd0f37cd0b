package mmio

// MaskN returns n consecutive one bits starting at bit 0. n >= 32 yields
// all ones.
func MaskN(n uint32) uint32 {
	if n >= 32 {
		return 0xFFFFFFFF
	}
	return 1<<n - 1
}

// SingleBit returns a mask with only bit pos set, or zero when pos >= 32.
func SingleBit(pos uint32) uint32 {
	if pos >= 32 {
		return 0
	}
	return 1 << pos
}

const (
	Nibble0 uint32 = 0x0000000F
	Nibble1 uint32 = 0x000000F0
	Nibble2 uint32 = 0x00000F00
	Nibble3 uint32 = 0x0000F000
	Nibble4 uint32 = 0x000F0000
	Nibble5 uint32 = 0x00F00000
	Nibble6 uint32 = 0x0F000000
	Nibble7 uint32 = 0xF0000000

	Byte0 uint32 = 0x000000FF
	Byte1 uint32 = 0x0000FF00
	Byte2 uint32 = 0x00FF0000
	Byte3 uint32 = 0xFF000000

	HalfWord0 uint32 = 0x0000FFFF
	HalfWord1 uint32 = 0xFFFF0000
)
