package sim

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"omibyte.io/m4boot/chip/cortexm"
	"omibyte.io/m4boot/chip/stm32f429"
	"omibyte.io/m4boot/firmware"
	"omibyte.io/m4boot/mmio"
	"omibyte.io/m4boot/targets"
	"omibyte.io/m4boot/trap"
	"omibyte.io/m4boot/vector"
)

const cell = stm32f429.SRAMBase

func stm32f429zi(t *testing.T) targets.TargetInfo {
	t.Helper()
	info, err := targets.All().FindByChip("stm32f429zi")
	require.NoError(t, err)
	return info
}

// load builds a machine running main as its reset handler plus the given
// entries.
func load(t *testing.T, main func(m *Machine), entries ...func(m *Machine) vector.Entry) *Machine {
	t.Helper()
	info := stm32f429zi(t)
	m, err := New(Config{Target: info})
	require.NoError(t, err)
	p, err := info.Place(targets.Image{Text: 0x800})
	require.NoError(t, err)

	all := []vector.Entry{vector.Exception(cortexm.Reset, func() { main(m) })}
	for _, e := range entries {
		all = append(all, e(m))
	}
	tbl, err := vector.Build(m, all...)
	require.NoError(t, err)
	bin, err := Link(p, tbl, nil)
	require.NoError(t, err)
	require.NoError(t, m.Load(bin))
	return m
}

func run(t *testing.T, m *Machine) Result {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	res, err := m.Run(ctx)
	require.NoError(t, err)
	require.True(t, res.Halted)
	return res
}

func irq(n stm32f429.IRQ, h func(m *Machine)) func(m *Machine) vector.Entry {
	return func(m *Machine) vector.Entry {
		return vector.IRQ(n, func() { h(m) })
	}
}

func TestEntryReturns(t *testing.T) {
	m := load(t, func(m *Machine) {
		mmio.Reg(m, cell).Set(7)
	})
	res := run(t, m)
	assert.Equal(t, trap.Event{Kind: trap.EntryReturned, Vector: vector.ResetSlot}, res.Event)
	assert.Equal(t, uint32(7), m.Peek(cell))
	assert.Equal(t, uint64(1), res.Accesses)
}

func TestLostUpdate(t *testing.T) {
	bump := irq(stm32f429.IRQ_EXTI0, func(m *Machine) {
		r := mmio.Reg(m, cell)
		r.Set(r.Get() + 100)
	})

	t.Run("unguarded", func(t *testing.T) {
		m := load(t, func(m *Machine) {
			cortexm.NewNVIC(m).Enable(stm32f429.IRQ_EXTI0.Interrupt())
			r := mmio.Reg(m, cell)
			v := r.Get()
			r.Set(v + 1)
		}, bump)
		// Access 1 enables the line, access 2 is the read.
		m.At(2, func(m *Machine) { m.Raise(stm32f429.IRQ_EXTI0) })
		run(t, m)
		assert.Equal(t, uint32(1), m.Peek(cell), "the handler's update is overwritten")
	})

	t.Run("exclusive", func(t *testing.T) {
		m := load(t, func(m *Machine) {
			cortexm.NewNVIC(m).Enable(stm32f429.IRQ_EXTI0.Interrupt())
			s := mmio.Share(mmio.Reg(m, cell))
			mmio.With(m.Mask(), func(x *mmio.Exclusive) {
				v := s.Get()
				s.Set(x, v+1)
			})
			assert.False(t, m.Masked())
		}, bump)
		m.At(2, func(m *Machine) { m.Raise(stm32f429.IRQ_EXTI0) })
		run(t, m)
		assert.Equal(t, uint32(101), m.Peek(cell))
	})
}

func TestPreemption(t *testing.T) {
	var log []string
	low, high := stm32f429.IRQ_TIM2, stm32f429.IRQ_TIM3
	m := load(t, func(m *Machine) {
		nvic := cortexm.NewNVIC(m)
		nvic.SetPriority(low.Interrupt(), cortexm.Priority(8))
		nvic.SetPriority(high.Interrupt(), cortexm.Priority(1))
		nvic.Enable(low.Interrupt())
		nvic.Enable(high.Interrupt())
		nvic.Trigger(low.Interrupt())
		log = append(log, "thread")
	},
		irq(low, func(m *Machine) {
			log = append(log, "low")
			m.Raise(high)
			mmio.Reg(m, cell).Set(1)
			log = append(log, "low done")
		}),
		irq(high, func(m *Machine) {
			log = append(log, "high")
			assert.Equal(t, high.Vector(), cortexm.NewSCB(m).ActiveVector())
		}),
	)
	run(t, m)
	assert.Equal(t, []string{"low", "high", "low done", "thread"}, log)
}

func TestSamePriorityWaits(t *testing.T) {
	var log []string
	a, b := stm32f429.IRQ_TIM2, stm32f429.IRQ_TIM3
	m := load(t, func(m *Machine) {
		nvic := cortexm.NewNVIC(m)
		nvic.Enable(a.Interrupt())
		nvic.Enable(b.Interrupt())
		nvic.SetPending(a.Interrupt())
	},
		irq(a, func(m *Machine) {
			log = append(log, "a")
			cortexm.NewNVIC(m).SetPending(b.Interrupt())
			log = append(log, "a done")
		}),
		irq(b, func(m *Machine) { log = append(log, "b") }),
	)
	run(t, m)
	assert.Equal(t, []string{"a", "a done", "b"}, log)
}

func TestFaults(t *testing.T) {
	for _, tc := range []struct {
		name   string
		main   func(m *Machine)
		kind   trap.Kind
		vector int
	}{
		{
			name:   "unmapped read escalates",
			main:   func(m *Machine) { mmio.Reg(m, 0x3000_0000).Get() },
			kind:   trap.HardFault,
			vector: int(cortexm.HardFault),
		},
		{
			name: "unmapped read with faults enabled",
			main: func(m *Machine) {
				cortexm.NewSCB(m).EnableFaults()
				mmio.Reg(m, 0x3000_0000).Get()
			},
			kind:   trap.BusFault,
			vector: int(cortexm.BusFault),
		},
		{
			name: "flash store",
			main: func(m *Machine) {
				cortexm.NewSCB(m).EnableFaults()
				mmio.Reg(m, stm32f429.FlashBase).Set(0)
			},
			kind:   trap.BusFault,
			vector: int(cortexm.BusFault),
		},
		{
			name: "unhandled interrupt",
			main: func(m *Machine) {
				nvic := cortexm.NewNVIC(m)
				nvic.Enable(stm32f429.IRQ_EXTI15_10.Interrupt())
				nvic.Trigger(stm32f429.IRQ_EXTI15_10.Interrupt())
			},
			kind:   trap.Unhandled,
			vector: stm32f429.IRQ_EXTI15_10.Vector(),
		},
		{
			name:   "NMI",
			main:   func(m *Machine) { m.NMI(); mmio.Reg(m, cell).Get() },
			kind:   trap.NMI,
			vector: int(cortexm.NMI),
		},
		{
			name: "SysTick without a handler",
			main: func(m *Machine) {
				cortexm.NewSCB(m).PendSysTick()
			},
			kind:   trap.Unhandled,
			vector: int(cortexm.SysTick),
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			m := load(t, tc.main)
			res := run(t, m)
			assert.Equal(t, tc.kind, res.Event.Kind)
			assert.Equal(t, tc.vector, res.Event.Vector)
		})
	}
}

func TestFaultStatus(t *testing.T) {
	m := load(t, func(m *Machine) { mmio.Reg(m, 0x3000_0000).Get() })
	run(t, m)
	assert.Equal(t, uint32(0x3000_0000), m.Peek(cortexm.BFAR))
	assert.Equal(t, uint32(cfsrPRECISERR|cfsrBFARVALID), m.Peek(cortexm.CFSR))
	assert.Equal(t, cortexm.HFSR_FORCED.Mask(), m.Peek(cortexm.HFSR))
}

func TestBadVectorEntry(t *testing.T) {
	m := load(t, func(m *Machine) {
		nvic := cortexm.NewNVIC(m)
		nvic.Enable(stm32f429.IRQ_TIM2.Interrupt())
		nvic.Trigger(stm32f429.IRQ_TIM2.Interrupt())
	})
	slot := stm32f429.FlashBase.Add(uint32(stm32f429.IRQ_TIM2.Vector()) * 4)
	m.Poke(slot, m.Peek(slot)&^1)

	res := run(t, m)
	assert.Equal(t, trap.HardFault, res.Event.Kind)
	assert.Equal(t, int(cortexm.HardFault), res.Event.Vector)
	assert.Equal(t, cortexm.HFSR_VECTTBL.Mask(), m.Peek(cortexm.HFSR))
}

func TestResetLockup(t *testing.T) {
	for _, tc := range []struct {
		name string
		slot int
		word uint32
	}{
		{name: "stack outside RAM", slot: vector.StackSlot, word: 0x3000_0000},
		{name: "reset vector without Thumb bit", slot: vector.ResetSlot, word: 0x0800_01B0},
		{name: "reset vector to nowhere", slot: vector.ResetSlot, word: 0x0800_7001},
	} {
		t.Run(tc.name, func(t *testing.T) {
			m := load(t, func(*Machine) { t.Error("reset handler ran") })
			m.Poke(stm32f429.FlashBase.Add(uint32(tc.slot)*4), tc.word)
			res := run(t, m)
			assert.Equal(t, trap.HardFault, res.Event.Kind)
			assert.Equal(t, tc.slot, res.Event.Vector)
		})
	}
}

func TestSystemReset(t *testing.T) {
	m := load(t, func(m *Machine) {
		r := mmio.Reg(m, cell)
		boots := r.Get() + 1
		r.Set(boots)
		if boots < 3 {
			cortexm.NewSCB(m).SystemReset()
			t.Error("SystemReset returned")
		}
	})
	res := run(t, m)
	assert.Equal(t, 2, res.Resets)
	assert.Equal(t, uint32(3), m.Peek(cell), "RAM survives a system reset")
	assert.Equal(t, trap.EntryReturned, res.Event.Kind)
}

func TestSysTick(t *testing.T) {
	m, err := New(Config{Target: stm32f429zi(t), TickStep: 10})
	require.NoError(t, err)
	p, err := stm32f429zi(t).Place(targets.Image{Text: 0x800})
	require.NoError(t, err)

	tbl, err := vector.Build(m,
		vector.Exception(cortexm.Reset, func() {
			cortexm.NewSysTick(m).Start(99, cortexm.ClockCore, true)
			r := mmio.Reg(m, cell)
			for r.Get() < 5 {
			}
		}),
		vector.Exception(cortexm.SysTick, func() {
			r := mmio.Reg(m, cell)
			r.Set(r.Get() + 1)
		}),
	)
	require.NoError(t, err)
	bin, err := Link(p, tbl, nil)
	require.NoError(t, err)
	require.NoError(t, m.Load(bin))

	res := run(t, m)
	assert.Equal(t, trap.EntryReturned, res.Event.Kind)
	// A tick can land on the read that ends the loop.
	assert.GreaterOrEqual(t, m.Peek(cell), uint32(5))
	assert.LessOrEqual(t, m.Peek(cell), uint32(6))
}

func TestSourcesAndCancel(t *testing.T) {
	m := load(t, func(m *Machine) {
		cortexm.NewNVIC(m).Enable(stm32f429.IRQ_TIM2.Interrupt())
		r := mmio.Reg(m, cell)
		for r.Get() < 3 {
			m.SpinWait()
		}
		for {
			r.Get()
		}
	}, irq(stm32f429.IRQ_TIM2, func(m *Machine) {
		r := mmio.Reg(m, cell)
		r.Set(r.Get() + 1)
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		for m.Peek(cell) < 3 {
			time.Sleep(time.Millisecond)
		}
		cancel()
	}()
	res, err := m.Run(ctx, Every(time.Millisecond, stm32f429.IRQ_TIM2))
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, res.Halted)
	assert.GreaterOrEqual(t, m.Peek(cell), uint32(3))
}

func TestRunErrors(t *testing.T) {
	m, err := New(Config{Target: stm32f429zi(t)})
	require.NoError(t, err)
	_, err = m.Run(context.Background())
	assert.ErrorIs(t, err, ErrNotLoaded)

	_, err = New(Config{Target: targets.TargetInfo{Series: "empty"}})
	assert.ErrorIs(t, err, ErrNoFlash)
}

func TestLinkErrors(t *testing.T) {
	info := stm32f429zi(t)
	tbl, err := vector.Build(trap.Park{}, vector.Exception(cortexm.Reset, func() {}))
	require.NoError(t, err)

	p, err := info.Place(targets.Image{Text: 0x100, Data: 8})
	require.NoError(t, err)
	_, err = Link(p, tbl, []uint32{1, 2})
	assert.ErrorIs(t, err, ErrTextTooSmall)

	p, err = info.Place(targets.Image{Text: 0x800, Data: 8})
	require.NoError(t, err)
	_, err = Link(p, tbl, []uint32{1})
	assert.ErrorIs(t, err, ErrDataImage)

	bin, err := Link(p, tbl, []uint32{1, 2})
	require.NoError(t, err)
	top, err := info.StackTop()
	require.NoError(t, err)
	assert.Equal(t, uint32(top), bin.Flash[0])
	assert.Equal(t, uint32(bin.CodeAddr(vector.ResetSlot))|1, bin.Flash[vector.ResetSlot])
	assert.Equal(t, []uint32{1, 2}, bin.Flash[len(bin.Flash)-2:])
	assert.Len(t, bin.Flash, vector.Len+0x800/4+2)
}

func TestPressRoutesThroughEXTI(t *testing.T) {
	info := stm32f429zi(t)
	m, err := New(Config{Target: info})
	require.NoError(t, err)

	m.Press('A', 0)
	assert.Equal(t, uint32(1), m.Peek(stm32f429.GPIOA+stm32f429.GPIO_IDR))
	assert.Zero(t, m.Peek(stm32f429.EXTI+stm32f429.EXTI_PR), "line masked")
	m.Release('A', 0)

	m.Poke(stm32f429.EXTI+stm32f429.EXTI_IMR, 1)
	m.Poke(stm32f429.EXTI+stm32f429.EXTI_RTSR, 1)
	m.Press('B', 0)
	assert.Zero(t, m.Peek(stm32f429.EXTI+stm32f429.EXTI_PR), "line routed to port A")
	m.Press('A', 0)
	assert.Equal(t, uint32(1), m.Peek(stm32f429.EXTI+stm32f429.EXTI_PR))
}

func TestFirmware(t *testing.T) {
	info := stm32f429zi(t)
	m, err := New(Config{Target: info, TickStep: 1000})
	require.NoError(t, err)
	p, err := info.Place(firmware.Sections)
	require.NoError(t, err)

	app := firmware.New(firmware.Config{Bus: m, Layout: p.Layout, Halter: m, Mask: m.Mask()})
	tbl, err := app.Table()
	require.NoError(t, err)
	bin, err := Link(p, tbl, firmware.DataImage())
	require.NoError(t, err)
	require.NoError(t, m.Load(bin))
	for a := p.Layout.DataStart; a < p.Layout.BssEnd; a += 4 {
		m.Poke(a, 0xDEAD_BEEF)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	m.At(100_000, func(m *Machine) { m.Press('A', 0) })
	m.At(200_000, func(*Machine) { cancel() })
	res, err := m.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.False(t, res.Halted, "halted: %v", res.Event)

	base := p.Layout.DataStart
	assert.Greater(t, m.Peek(base), uint32(firmware.InitialCounter+firmware.PressBonus))
	assert.NotZero(t, m.Peek(base+4), "SysTick ran")
	assert.Equal(t, uint32(1), m.Peek(base+8), "one press")
	assert.Equal(t, uint32(stm32f429.FlashBase), m.Peek(cortexm.VTOR))
	assert.Equal(t, uint32(179_999), m.Peek(cortexm.SYST_RVR))
	assert.True(t, m.Peek(stm32f429.RCC+stm32f429.RCC_CR)&(1<<25) != 0, "PLL locked")
}
