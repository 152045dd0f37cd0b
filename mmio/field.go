package mmio

// Field describes a contiguous run of bits inside a 32-bit register.
type Field struct {
	Pos   uint32
	Width uint32
}

// MakeField returns the field at pos spanning width bits. It panics with a
// UsageError if the field does not fit in a register.
func MakeField(pos, width uint32) Field {
	assertField(0, pos, width)
	return Field{Pos: pos, Width: width}
}

// Bit returns the one-bit field at pos.
func Bit(pos uint32) Field {
	return MakeField(pos, 1)
}

// Mask returns the field bits in register position.
func (f Field) Mask() uint32 {
	return MaskN(f.Width) << f.Pos
}

// Max returns the largest value the field can hold.
func (f Field) Max() uint32 {
	return MaskN(f.Width)
}

// Insert returns word with the field replaced by value. The value must fit.
func (f Field) Insert(word, value uint32) uint32 {
	assertField(0, f.Pos, f.Width)
	assertFits(0, value, f.Width)
	return word&^f.Mask() | value<<f.Pos&f.Mask()
}

// Extract returns the field of word, right aligned.
func (f Field) Extract(word uint32) uint32 {
	assertField(0, f.Pos, f.Width)
	return word >> f.Pos & MaskN(f.Width)
}
