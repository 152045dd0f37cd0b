package stm32f429

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"omibyte.io/m4boot/mmio"
)

func TestIRQNumbering(t *testing.T) {
	tests := []struct {
		irq    IRQ
		name   string
		vector int
	}{
		{IRQ_WWDG, "WWDG", 16},
		{IRQ_EXTI0, "EXTI0", 22},
		{IRQ_TIM2, "TIM2", 44},
		{IRQ_FPU, "FPU", 97},
		{IRQ_DMA2D, "DMA2D", 106},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.name, tc.irq.String())
			assert.Equal(t, tc.vector, tc.irq.Vector())

			got, ok := LookupIRQ(tc.name)
			assert.True(t, ok)
			assert.Equal(t, tc.irq, got)

			back, ok := FromVector(tc.vector)
			assert.True(t, ok)
			assert.Equal(t, tc.irq, back)
		})
	}

	_, ok := LookupIRQ("USB")
	assert.False(t, ok)
	_, ok = FromVector(15)
	assert.False(t, ok)
	_, ok = FromVector(107)
	assert.False(t, ok)
	assert.Equal(t, "IRQ(91)", IRQ(91).String())
	assert.False(t, IRQ(91).Valid())
}

func TestIRQNamesUnique(t *testing.T) {
	seen := map[string]IRQ{}
	for i := IRQ(0); i < NumIRQ; i++ {
		name := i.String()
		assert.NotEmpty(t, name)
		prev, dup := seen[name]
		assert.False(t, dup, "%s used by %d and %d", name, prev, i)
		seen[name] = i
	}
}

func TestPorts(t *testing.T) {
	for p, want := range map[byte]mmio.Addr{'A': GPIOA, 'D': GPIOD, 'G': GPIOG, 'K': GPIOK} {
		got, ok := Port(p)
		assert.True(t, ok)
		assert.Equal(t, want, got, "port %c", p)
	}
	_, ok := Port('L')
	assert.False(t, ok)
}
