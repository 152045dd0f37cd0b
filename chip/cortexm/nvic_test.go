package cortexm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"omibyte.io/m4boot/mmio"
)

func TestNVICBanks(t *testing.T) {
	tests := []struct {
		name string
		irq  Interrupt
		word mmio.Addr
		bit  uint32
	}{
		{name: "first line", irq: 0, word: 0, bit: 1},
		{name: "last of bank 0", irq: 31, word: 0, bit: 1 << 31},
		{name: "first of bank 1", irq: 32, word: 4, bit: 1},
		{name: "DMA2D", irq: 90, word: 8, bit: 1 << 26},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			mem := mmio.NewMemory()
			n := NewNVIC(mem)

			n.Enable(tc.irq)
			n.SetPending(tc.irq)
			n.Disable(tc.irq)
			n.ClearPending(tc.irq)

			for _, base := range []mmio.Addr{NVIC_ISER, NVIC_ISPR, NVIC_ICER, NVIC_ICPR} {
				addr := base + tc.word
				assert.Equal(t, tc.bit, mem.Peek(addr), "bank %#x", uint32(base))
				assert.Equal(t, 1, mem.Stores(addr))
				assert.Zero(t, mem.Loads(addr), "set/clear banks are written blind")
			}
			assert.Equal(t, tc.irq.Vector(), ExternalBase+int(tc.irq))
		})
	}
}

func TestNVICPriority(t *testing.T) {
	mem := mmio.NewMemory()
	n := NewNVIC(mem)

	n.SetPriority(6, Priority(2))
	n.SetPriority(5, Priority(15))
	n.SetPriority(7, 0xA0)

	assert.Equal(t, uint32(0xA0_20_F0_00), mem.Peek(NVIC_IPR+4))
	assert.Equal(t, uint8(0x20), n.GetPriority(6))
	assert.Equal(t, uint8(0xF0), n.GetPriority(5))
	assert.Zero(t, n.GetPriority(4))
}

func TestSourceMask(t *testing.T) {
	mem := mmio.NewMemory()
	n := NewNVIC(mem)
	m := SourceMask{NVIC: n, Line: 6}

	// Memory keeps whatever was written, so model the ISER read-back by
	// hand: enabled lines read as set.
	mem.Poke(NVIC_ISER, 1<<6)
	state := m.Enter()
	require.Equal(t, uint32(1), state)
	assert.Equal(t, uint32(1<<6), mem.Peek(NVIC_ICER))

	mem.Poke(NVIC_ICER, 0)
	mem.Poke(NVIC_ISER, 0)
	m.Exit(state)
	assert.Equal(t, uint32(1<<6), mem.Peek(NVIC_ISER))

	mem.Poke(NVIC_ISER, 0)
	mmio.With(m, func(x *mmio.Exclusive) {
		assert.True(t, x.Held())
	})
	assert.Zero(t, mem.Peek(NVIC_ISER), "a disabled line stays disabled")
}

func TestExceptions(t *testing.T) {
	assert.Equal(t, "HardFault", HardFault.String())
	assert.Equal(t, "Exception(8)", Exception(8).String())
	assert.Equal(t, "Exception(40)", Exception(40).String())

	var valid []Exception
	for e := Exception(0); e < ExternalBase; e++ {
		if e.Valid() {
			valid = append(valid, e)
		}
	}
	assert.Equal(t, []Exception{Reset, NMI, HardFault, MemManage, BusFault, UsageFault,
		SVCall, DebugMonitor, PendSV, SysTick}, valid)
	assert.True(t, BusFault.Fault())
	assert.False(t, NMI.Fault())
	assert.False(t, HardFault.Configurable())
	assert.True(t, SysTick.Configurable())
}
