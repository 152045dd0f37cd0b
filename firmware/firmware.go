// Package firmware is the demonstration application. It raises the core
// clock to 180 MHz, blinks the green LED from SysTick, counts presses of the
// user button and spins a counter in the main loop. The counter lives in
// .data and starts at 42.
package firmware

import (
	"fmt"

	"omibyte.io/m4boot/board"
	"omibyte.io/m4boot/chip/cortexm"
	"omibyte.io/m4boot/chip/stm32f429"
	"omibyte.io/m4boot/initseq"
	"omibyte.io/m4boot/mmio"
	"omibyte.io/m4boot/startup"
	"omibyte.io/m4boot/targets"
	"omibyte.io/m4boot/trap"
	"omibyte.io/m4boot/vector"
)

// Offsets of the globals from _sdata.
const (
	counterOff = 0 // .data
	ticksOff   = 4 // .bss
	pressesOff = 8 // .bss
)

const (
	// InitialCounter is the value the data image gives the counter.
	InitialCounter = 42
	// BlinkTicks is the number of SysTick interrupts between LED toggles.
	BlinkTicks = 500
	// PressBonus is what a button press adds to the counter.
	PressBonus = 1000
	// TickRate is the SysTick interrupt frequency.
	TickRate = 1000
)

// Sections is the size of each output section of the application.
var Sections = targets.Image{Text: 0x800, Data: 4, Bss: 8}

// DataImage returns the load image of .data.
func DataImage() []uint32 {
	return []uint32{InitialCounter}
}

type Config struct {
	Bus    mmio.Bus
	Layout startup.Layout
	Halter trap.Halter
	// Mask guards the counter against the button handler. Without one only
	// the button line is masked.
	Mask mmio.Critical
	// OnPhase is handed to the reset sequence.
	OnPhase func(startup.Phase)
	// ClockOut routes PLL/4 to PA8.
	ClockOut bool
}

type App struct {
	cfg    Config
	arena  *startup.Arena
	steps  *initseq.Sequence
	clocks board.Clocks
	scb    cortexm.SCB
	nvic   cortexm.NVIC
	tick   cortexm.SysTickTimer
	led    board.LED
	button board.Button
	mask   mmio.Critical
	hclk   uint32
}

func New(cfg Config) *App {
	a := &App{
		cfg:    cfg,
		arena:  startup.NewArena(cfg.Bus, cfg.Layout),
		clocks: board.NewClocks(cfg.Bus),
		scb:    cortexm.NewSCB(cfg.Bus),
		nvic:   cortexm.NewNVIC(cfg.Bus),
		tick:   cortexm.NewSysTick(cfg.Bus),
		led:    board.GreenLED(cfg.Bus),
		button: board.UserButton(cfg.Bus),
		mask:   cfg.Mask,
	}
	if a.mask == nil {
		a.mask = cortexm.SourceMask{NVIC: a.nvic, Line: a.button.IRQ().Interrupt()}
	}
	a.steps = a.initSteps()
	return a
}

func (a *App) initSteps() *initseq.Sequence {
	s := initseq.New()
	add := func(name string, run func() error, after ...string) {
		if err := s.Add(name, run, after...); err != nil {
			panic(err)
		}
	}
	add("vectors", a.relocateVectors)
	add("faults", a.enableFaults, "vectors")
	add("fpu", a.enableFPU)
	add("clock", a.raiseClock)
	add("systick", a.startTick, "clock", "vectors")
	add("led", a.initLED, "clock")
	add("button", a.initButton, "vectors")
	if a.cfg.ClockOut {
		add("mco", func() error { return a.clocks.ClockOutPA8(a.cfg.Bus) }, "clock")
	}
	return s
}

func (a *App) relocateVectors() error {
	a.scb.SetVectorTable(stm32f429.FlashBase)
	return nil
}

func (a *App) enableFaults() error {
	a.scb.EnableFaults()
	return nil
}

func (a *App) enableFPU() error {
	a.scb.EnableFPU()
	return nil
}

func (a *App) raiseClock() error {
	hz, err := a.clocks.SystemClock180()
	if err != nil {
		return err
	}
	a.hclk = hz
	return nil
}

func (a *App) startTick() error {
	reload, err := cortexm.ReloadFor(a.hclk, TickRate)
	if err != nil {
		return err
	}
	a.scb.SetSystemPriority(cortexm.SysTick, cortexm.Priority(15))
	a.tick.Start(reload, cortexm.ClockCore, true)
	return nil
}

func (a *App) initLED() error {
	return a.led.Init(a.clocks.RCC)
}

func (a *App) initButton() error {
	a.nvic.SetPriority(a.button.IRQ().Interrupt(), cortexm.Priority(2))
	return a.button.Init(a.clocks.RCC, a.nvic)
}

// Table builds the vector table: reset, SysTick and the button line. Every
// other slot traps.
func (a *App) Table() (*vector.Table, error) {
	return vector.Build(a.cfg.Halter,
		vector.Exception(cortexm.Reset, a.Reset),
		vector.Exception(cortexm.SysTick, a.onTick),
		vector.IRQ(a.button.IRQ(), a.onButton),
	)
}

// Reset is the reset handler.
func (a *App) Reset() {
	startup.Sequence{
		Bus:     a.cfg.Bus,
		Layout:  a.cfg.Layout,
		Arena:   a.arena,
		Entry:   a.Main,
		Halter:  a.cfg.Halter,
		OnPhase: a.cfg.OnPhase,
	}.Run()
}

// Main initialises the board and then counts forever. An init failure
// panics, which the reset sequence turns into a trap.
func (a *App) Main() {
	if err := a.Init(); err != nil {
		panic(err)
	}
	for {
		a.Step()
	}
}

// Init runs the initialisation steps that have not completed yet.
func (a *App) Init() error {
	return a.steps.Run()
}

// Step is one iteration of the main loop.
func (a *App) Step() {
	counter := mmio.Share(a.arena.Global(counterOff))
	mmio.With(a.mask, func(x *mmio.Exclusive) {
		counter.Set(x, counter.Get()+1)
	})
}

func (a *App) onTick() {
	ticks := a.arena.Global(ticksOff)
	n := ticks.Get() + 1
	ticks.Set(n)
	if n%BlinkTicks == 0 {
		a.led.Toggle()
	}
}

func (a *App) onButton() {
	if !a.button.Pending() {
		return
	}
	a.button.Clear()
	presses := a.arena.Global(pressesOff)
	presses.Set(presses.Get() + 1)

	counter := mmio.Share(a.arena.Global(counterOff))
	mmio.With(a.mask, func(x *mmio.Exclusive) {
		counter.Set(x, counter.Get()+PressBonus)
	})
}

// Counter, Ticks and Presses read the globals. They panic before reset has
// initialised memory.
func (a *App) Counter() uint32 { return a.arena.Global(counterOff).Get() }
func (a *App) Ticks() uint32   { return a.arena.Global(ticksOff).Get() }
func (a *App) Presses() uint32 { return a.arena.Global(pressesOff).Get() }

// HCLK returns the core clock once the clock step has run.
func (a *App) HCLK() uint32 {
	return a.hclk
}

func (a *App) Arena() *startup.Arena {
	return a.arena
}

func (a *App) LED() board.LED {
	return a.led
}

// Order returns the init steps in execution order.
func (a *App) Order() []string {
	order, err := a.steps.Order()
	if err != nil {
		panic(fmt.Errorf("init order: %w", err))
	}
	return order
}
