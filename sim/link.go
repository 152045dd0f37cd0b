package sim

import (
	"fmt"

	"omibyte.io/m4boot/mmio"
	"omibyte.io/m4boot/targets"
	"omibyte.io/m4boot/vector"
)

// Binary is a linked program.
type Binary struct {
	Placement targets.Placement
	// Flash holds the words from the flash origin to the end of the .data
	// load image.
	Flash []uint32
	// Code maps the code address of every vector slot to its handler.
	Code map[mmio.Addr]vector.Handler
}

// nop fills .text: two Thumb NOPs per word.
const nop = 0xBF00_BF00

// Link lays a vector table and the .data load image out in flash. Each
// slot's handler gets its own code address in .text, which is what the
// table entry points at.
func Link(p targets.Placement, tbl *vector.Table, data []uint32) (*Binary, error) {
	if got := p.Vectors.Size() / 4; got != vector.Len {
		return nil, fmt.Errorf("%w: target has %d slots, table has %d", ErrVectorCount, got, vector.Len)
	}
	if p.Text.Size() < vector.Len*4 {
		return nil, fmt.Errorf("%w: %d bytes", ErrTextTooSmall, p.Text.Size())
	}
	if got, want := uint32(len(data))*4, p.Layout.Data().Size(); got != want {
		return nil, fmt.Errorf("%w: %d bytes for a %d byte .data", ErrDataImage, got, want)
	}

	addrOf := func(n int) uint32 {
		return uint32(p.Text.Start) + uint32(n)*4
	}
	b := &Binary{Placement: p, Code: map[mmio.Addr]vector.Handler{}}
	b.Flash = append(b.Flash, tbl.Image(uint32(p.StackTop), addrOf)...)
	for a := p.Text.Start; a < p.Text.End; a += 4 {
		b.Flash = append(b.Flash, nop)
	}
	b.Flash = append(b.Flash, data...)
	for n := vector.ResetSlot; n < vector.Len; n++ {
		if !vector.Reserved(n) {
			b.Code[mmio.Addr(addrOf(n))] = tbl.Handler(n)
		}
	}
	return b, nil
}

// CodeAddr returns the code address the vector table entry for slot n
// points at, without the Thumb bit.
func (b *Binary) CodeAddr(n int) mmio.Addr {
	return b.Placement.Text.Start.Add(uint32(n) * 4)
}
