package mmio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// readyAfter returns a hook that sets bit pos once the cell has been read n
// times, like a status flag raised by hardware after some latency.
func readyAfter(n int, pos uint32) LoadHook {
	return func(loads int, stored uint32) uint32 {
		if loads >= n {
			return stored | 1<<pos
		}
		return stored
	}
}

func TestWaitAlreadySatisfied(t *testing.T) {
	mem := NewMemory()
	mem.Poke(cell, 1<<16)
	r := Reg(mem, cell)

	require.True(t, r.WaitBit(16, true, 100_000))
	assert.Equal(t, 1, mem.Loads(cell))
	assert.Zero(t, mem.Spins())
}

func TestWaitTimesOut(t *testing.T) {
	for _, budget := range []uint32{1, 2, 17, 1000} {
		mem := NewMemory()
		r := Reg(mem, cell)

		require.False(t, r.WaitBit(3, true, budget))
		assert.Equal(t, int(budget), mem.Loads(cell), "budget %d", budget)
		assert.Equal(t, int(budget)-1, mem.Spins(), "one hint per retry")
	}
}

func TestWaitBecomesReady(t *testing.T) {
	mem := NewMemory()
	mem.Hook(cell, readyAfter(5, 25))
	r := Reg(mem, cell)

	require.True(t, r.WaitBit(25, true, 10))
	assert.Equal(t, 6, mem.Loads(cell))
	assert.Equal(t, 5, mem.Spins())
}

func TestWaitForever(t *testing.T) {
	mem := NewMemory()
	mem.Hook(cell, readyAfter(50_000, 0))
	r := Reg(mem, cell)

	require.True(t, r.WaitBit(0, true, Forever))
	assert.Equal(t, 50_001, mem.Loads(cell))
}

func TestWaitForClear(t *testing.T) {
	mem := NewMemory()
	mem.Poke(cell, 0xFFFF_FFFF)
	mem.Hook(cell, func(loads int, stored uint32) uint32 {
		if loads == 3 {
			return stored &^ (1 << 9)
		}
		return stored
	})
	r := Reg(mem, cell)

	require.True(t, r.WaitBit(9, false, 4))
	assert.Equal(t, 4, mem.Loads(cell))
}

func TestWaitFieldAndMasked(t *testing.T) {
	mem := NewMemory()
	// SWS follows SW after two reads.
	mem.Hook(cell, func(loads int, stored uint32) uint32 {
		if loads >= 2 {
			sw := stored & 0b11
			return stored&^(0b11<<2) | sw<<2
		}
		return stored
	})
	mem.Poke(cell, 0b10)
	r := Reg(mem, cell)

	require.True(t, r.WaitField(MakeField(2, 2), 0b10, 5))
	require.True(t, r.WaitMasked(0b1010, 0b1111, 0, 5))
	require.False(t, r.WaitMasked(0b11, 0b11, 2, 3))
}

func TestWaitContract(t *testing.T) {
	r := Reg(NewMemory(), cell)
	requireUsage(t, ErrBitPosition, func() { r.WaitBit(32, true, 1) })
	requireUsage(t, ErrFieldRange, func() { r.WaitField(Field{Pos: 31, Width: 2}, 0, 1) })
	requireUsage(t, ErrMaskPlacement, func() { r.WaitMasked(0, 0xFF, 25, 1) })
}

func TestHookReadsOtherCells(t *testing.T) {
	mem := NewMemory()
	// PLLRDY mirrors PLLON held in a neighbouring cell.
	mem.Hook(cell, func(loads int, stored uint32) uint32 {
		if mem.Peek(cell+4)&1 != 0 {
			mem.Poke(cell+8, uint32(loads))
			return stored | 1<<25
		}
		return stored
	})
	r := Reg(mem, cell)

	require.False(t, r.WaitBit(25, true, 2))
	mem.Poke(cell+4, 1)
	require.True(t, r.WaitBit(25, true, 2))
	assert.Equal(t, uint32(2), mem.Peek(cell+8))
	assert.Equal(t, 3, mem.Loads(cell))
}
