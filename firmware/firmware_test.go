package firmware

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"omibyte.io/m4boot/board"
	"omibyte.io/m4boot/chip/cortexm"
	"omibyte.io/m4boot/chip/stm32f429"
	"omibyte.io/m4boot/mmio"
	"omibyte.io/m4boot/startup"
	"omibyte.io/m4boot/targets"
	"omibyte.io/m4boot/trap"
	"omibyte.io/m4boot/vector"
)

type exitHalter chan trap.Event

func (h exitHalter) Halt(ev trap.Event) {
	h <- ev
	runtime.Goexit()
}

func placement(t *testing.T) targets.Placement {
	t.Helper()
	info, err := targets.All().FindByChip("stm32f429zi")
	require.NoError(t, err)
	p, err := info.Place(Sections)
	require.NoError(t, err)
	return p
}

// clockHardware makes every ready flag follow its enable bit.
func clockHardware(mem *mmio.Memory) {
	mem.Hook(stm32f429.RCC+stm32f429.RCC_CR, func(_ int, v uint32) uint32 {
		v = stm32f429.RCC_CR_HSERDY.Insert(v, stm32f429.RCC_CR_HSEON.Extract(v))
		return stm32f429.RCC_CR_PLLRDY.Insert(v, stm32f429.RCC_CR_PLLON.Extract(v))
	})
	mem.Hook(stm32f429.RCC+stm32f429.RCC_CFGR, func(_ int, v uint32) uint32 {
		return stm32f429.RCC_CFGR_SWS.Insert(v, stm32f429.RCC_CFGR_SW.Extract(v))
	})
	mem.Hook(stm32f429.PWR+stm32f429.PWR_CSR, func(int, uint32) uint32 {
		return stm32f429.PWR_CSR_ODRDY.Mask() | stm32f429.PWR_CSR_ODSWRDY.Mask()
	})
}

// newBoard returns a memory holding the application's flash image and RAM
// full of garbage.
func newBoard(t *testing.T) (*mmio.Memory, startup.Layout) {
	p := placement(t)
	mem := mmio.NewMemory()
	mem.Fill(p.Layout.DataLoad, DataImage()...)
	for a := p.Layout.DataStart; a < p.Layout.BssEnd; a += 4 {
		mem.Poke(a, 0xDEAD_BEEF)
	}
	return mem, p.Layout
}

// boot runs the reset sequence with entry and returns how it ended.
func boot(app *App, mem *mmio.Memory, l startup.Layout, entry func()) trap.Event {
	h := make(exitHalter, 1)
	go startup.Sequence{Bus: mem, Layout: l, Arena: app.Arena(), Entry: entry, Halter: h}.Run()
	return <-h
}

func TestTable(t *testing.T) {
	app := New(Config{Bus: mmio.NewMemory(), Layout: placement(t).Layout, Halter: trap.Park{}})
	tbl, err := app.Table()
	require.NoError(t, err)
	assert.Equal(t, []int{vector.ResetSlot, int(cortexm.SysTick), stm32f429.IRQ_EXTI0.Vector()}, tbl.Assigned())
}

func TestOrder(t *testing.T) {
	app := New(Config{Bus: mmio.NewMemory(), ClockOut: true})
	assert.Equal(t, []string{"vectors", "faults", "fpu", "clock", "systick", "led", "button", "mco"}, app.Order())
}

func TestBoot(t *testing.T) {
	mem, l := newBoard(t)
	clockHardware(mem)
	app := New(Config{Bus: mem, Layout: l})

	ev := boot(app, mem, l, func() {
		if err := app.Init(); err != nil {
			panic(err)
		}
		for i := 0; i < 3; i++ {
			app.Step()
		}
	})
	assert.Equal(t, trap.EntryReturned, ev.Kind)

	assert.Equal(t, uint32(InitialCounter+3), app.Counter())
	assert.Zero(t, app.Ticks())
	assert.Zero(t, app.Presses())
	assert.Equal(t, uint32(180_000_000), app.HCLK())

	assert.Equal(t, uint32(stm32f429.FlashBase), mem.Peek(cortexm.VTOR))
	assert.Equal(t, uint32(179_999), mem.Peek(cortexm.SYST_RVR))
	assert.Equal(t, uint32(0b111), mem.Peek(cortexm.SYST_CSR))
	assert.Equal(t, uint32(0xF0)<<24, mem.Peek(cortexm.SHPR3))
	assert.Equal(t, uint32(1<<6), mem.Peek(cortexm.NVIC_ISER))
	assert.Equal(t, uint32(0x20)<<16, mem.Peek(cortexm.NVIC_IPR+4))
	assert.Equal(t, uint32(0b01<<26), mem.Peek(stm32f429.GPIOG+stm32f429.GPIO_MODER))
}

func TestInitFailureTraps(t *testing.T) {
	mem, l := newBoard(t)
	h := make(exitHalter, 1)
	app := New(Config{Bus: mem, Layout: l, Halter: h})

	go app.Reset()
	ev := <-h

	require.Equal(t, trap.Panic, ev.Kind)
	err, ok := ev.Value.(error)
	require.True(t, ok)
	assert.ErrorIs(t, err, board.ErrTimeout)
	assert.Contains(t, err.Error(), "init clock")
	assert.Equal(t, uint32(InitialCounter), app.Counter(), "memory was initialised before the entry ran")
}

func TestHandlers(t *testing.T) {
	mem, l := newBoard(t)
	clockHardware(mem)
	app := New(Config{Bus: mem, Layout: l})
	boot(app, mem, l, func() {
		if err := app.Init(); err != nil {
			panic(err)
		}
	})

	for i := 0; i < BlinkTicks; i++ {
		app.onTick()
	}
	assert.Equal(t, uint32(BlinkTicks), app.Ticks())
	assert.True(t, app.LED().Lit())

	app.onButton()
	assert.Zero(t, app.Presses(), "no edge latched")

	mem.Poke(stm32f429.EXTI+stm32f429.EXTI_PR, 1)
	app.onButton()
	assert.Equal(t, uint32(1), app.Presses())
	assert.Equal(t, uint32(InitialCounter+PressBonus), app.Counter())
	assert.Equal(t, uint32(1<<6), mem.Peek(cortexm.NVIC_ISER), "line unmasked again")
}
