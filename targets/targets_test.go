package targets

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"omibyte.io/m4boot/mmio"
	"omibyte.io/m4boot/startup"
)

func TestFind(t *testing.T) {
	target, err := All().FindByChip("STM32F429ZI")
	require.NoError(t, err)
	assert.Equal(t, "cortex-m4", target.Cpu)
	assert.Equal(t, 107, target.Vectors)
	assert.Equal(t, Size(4096), target.StackSize)

	flash, err := target.Region("flash")
	require.NoError(t, err)
	assert.Equal(t, mmio.Addr(0x0800_0000), flash.Origin)
	assert.Equal(t, Size(2<<20), flash.Length)

	top, err := target.StackTop()
	require.NoError(t, err)
	assert.Equal(t, mmio.Addr(0x2003_0000), top)

	small, err := All().FindByChip("stm32f429zg")
	require.NoError(t, err)
	flash, err = small.Region("FLASH")
	require.NoError(t, err)
	assert.Equal(t, "1M", flash.Length.String())

	_, err = All().FindByChip("stm32f103c8")
	assert.ErrorIs(t, err, ErrChipNotFound)
	_, err = All().FindBySeries("STM32F4")
	assert.NoError(t, err)
	_, err = All().FindBySeries("sam")
	assert.ErrorIs(t, err, ErrSeriesNotFound)
	_, err = target.Region("SDRAM")
	assert.ErrorIs(t, err, ErrNoMemory)
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		text string
		want Size
		err  bool
	}{
		{text: "4K", want: 4096},
		{text: "192K", want: 192 << 10},
		{text: "2M", want: 2 << 20},
		{text: "0x400", want: 1024},
		{text: "100", want: 100},
		{text: "4G", err: true},
		{text: "8192M", err: true},
		{text: "", err: true},
	}
	for _, tc := range tests {
		t.Run(tc.text, func(t *testing.T) {
			got, err := ParseSize(tc.text)
			if tc.err {
				assert.ErrorIs(t, err, ErrBadSize)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
	assert.Equal(t, "100", Size(100).String())
	assert.Equal(t, "192K", Size(192<<10).String())
}

func TestParseRejectsBadYAML(t *testing.T) {
	_, err := parse([]byte("targets:\n  - series: x\n    stackSize: lots\n"))
	assert.ErrorIs(t, err, ErrBadSize)
	_, err = parse([]byte("targets:\n  - stackSize: [1, 2]\n"))
	assert.ErrorIs(t, err, ErrBadSize)
}

func TestPlace(t *testing.T) {
	target, err := All().FindByChip("stm32f429zi")
	require.NoError(t, err)

	p, err := target.Place(Image{Text: 0x1001, Data: 6, Bss: 10})
	require.NoError(t, err)

	assert.Equal(t, startup.Region{Name: ".isr_vector", Start: 0x0800_0000, End: 0x0800_01AC}, p.Vectors)
	assert.Equal(t, mmio.Addr(0x0800_01AC+0x1004), p.Text.End)
	assert.Equal(t, startup.Layout{
		DataLoad:  p.Text.End,
		DataStart: 0x2000_0000,
		DataEnd:   0x2000_0008,
		BssStart:  0x2000_0008,
		BssEnd:    0x2000_0014,
	}, p.Layout)
	assert.Equal(t, mmio.Addr(0x2003_0000), p.StackTop)
	assert.Equal(t, mmio.Addr(0x2002_F000), p.Stack.Start)

	_, err = target.Place(Image{Text: 3 << 20})
	assert.ErrorIs(t, err, ErrNoRoom)
	_, err = target.Place(Image{Bss: 192<<10 - 2048})
	assert.ErrorIs(t, err, ErrNoRoom)
}

func TestLinkerScript(t *testing.T) {
	target, err := All().FindByChip("stm32f429zi")
	require.NoError(t, err)

	var b strings.Builder
	require.NoError(t, target.LinkerScript(&b))
	script := b.String()

	for _, want := range []string{
		"FLASH (rx) : ORIGIN = 0x08000000, LENGTH = 2M",
		"RAM (xrw) : ORIGIN = 0x20000000, LENGTH = 192K",
		"CCMRAM (rw) : ORIGIN = 0x10000000, LENGTH = 64K",
		"_stack_size = 4K;",
		"KEEP(*(.isr_vector))",
		"_sidata = LOADADDR(.data);",
		"_sdata = .;", "_edata = .;", "_sbss = .;", "_ebss = .;",
		"_estack = ORIGIN(RAM) + LENGTH(RAM);",
	} {
		assert.Contains(t, script, want)
	}
	assert.Less(t, strings.Index(script, ".isr_vector"), strings.Index(script, ".text :"))
}
