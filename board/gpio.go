package board

import (
	"fmt"

	"omibyte.io/m4boot/chip/stm32f429"
	"omibyte.io/m4boot/mmio"
)

type Mode uint32

const (
	ModeInput Mode = iota
	ModeOutput
	ModeAlternate
	ModeAnalog
)

type OutputType uint32

const (
	PushPull OutputType = iota
	OpenDrain
)

type Speed uint32

const (
	SpeedLow Speed = iota
	SpeedMedium
	SpeedHigh
	SpeedVeryHigh
)

type PinState uint8

const (
	Low PinState = iota
	High
	Toggle
)

// Port is one GPIO block. Pins are numbered 0 to 15.
type Port struct {
	Name    byte
	MODER   mmio.Register
	OTYPER  mmio.Register
	OSPEEDR mmio.Register
	PUPDR   mmio.Register
	IDR     mmio.Register
	ODR     mmio.Register
	BSRR    mmio.Register
	AFRL    mmio.Register
	AFRH    mmio.Register
}

func NewPort(bus mmio.Bus, name byte) (Port, error) {
	addr, ok := stm32f429.Port(name)
	if !ok {
		return Port{}, fmt.Errorf("%w: %q", ErrUnknownPort, name)
	}
	base := mmio.Reg(bus, addr)
	return Port{
		Name:    name,
		MODER:   base.Offset(stm32f429.GPIO_MODER),
		OTYPER:  base.Offset(stm32f429.GPIO_OTYPER),
		OSPEEDR: base.Offset(stm32f429.GPIO_OSPEEDR),
		PUPDR:   base.Offset(stm32f429.GPIO_PUPDR),
		IDR:     base.Offset(stm32f429.GPIO_IDR),
		ODR:     base.Offset(stm32f429.GPIO_ODR),
		BSRR:    base.Offset(stm32f429.GPIO_BSRR),
		AFRL:    base.Offset(stm32f429.GPIO_AFRL),
		AFRH:    base.Offset(stm32f429.GPIO_AFRH),
	}, nil
}

func (p Port) check(pin uint32) {
	if pin > 15 {
		panic(&mmio.UsageError{Err: ErrBadPin, Addr: p.MODER.Addr(), Args: []uint32{pin}})
	}
}

func (p Port) SetMode(pin uint32, m Mode) {
	p.check(pin)
	p.MODER.SetField(uint32(m), pin*2, 2)
}

func (p Port) Mode(pin uint32) Mode {
	p.check(pin)
	return Mode(p.MODER.Field(pin*2, 2))
}

func (p Port) SetType(pin uint32, t OutputType) {
	p.check(pin)
	p.OTYPER.WriteBit(pin, t == OpenDrain)
}

func (p Port) SetSpeed(pin uint32, s Speed) {
	p.check(pin)
	p.OSPEEDR.SetField(uint32(s), pin*2, 2)
}

// SetAF selects alternate function af (0 to 15) for pin.
func (p Port) SetAF(pin, af uint32) {
	p.check(pin)
	if pin < 8 {
		p.AFRL.SetField(af, pin*4, 4)
		return
	}
	p.AFRH.SetField(af, (pin-8)*4, 4)
}

// Set drives an output pin. High and Low go through BSRR, which sets or
// resets a single pin in one store. Toggle is a read-modify-write of ODR.
func (p Port) Set(pin uint32, s PinState) {
	p.check(pin)
	switch s {
	case High:
		p.BSRR.Set(1 << pin)
	case Low:
		p.BSRR.Set(1 << (pin + 16))
	case Toggle:
		p.ODR.ToggleBit(pin)
	}
}

// Get reads the input level of pin.
func (p Port) Get(pin uint32) bool {
	p.check(pin)
	return p.IDR.Bit(pin)
}

// Output reports the level pin is driven to.
func (p Port) Output(pin uint32) bool {
	p.check(pin)
	return p.ODR.Bit(pin)
}
