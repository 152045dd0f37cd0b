package board

import (
	"omibyte.io/m4boot/chip/cortexm"
	"omibyte.io/m4boot/chip/stm32f429"
	"omibyte.io/m4boot/mmio"
)

// Button is a push button on an EXTI line, interrupting on the rising edge.
type Button struct {
	Port   Port
	Pin    uint32
	IMR    mmio.Register
	RTSR   mmio.Register
	PR     mmio.Register
	EXTICR mmio.Register
}

// UserButton is B1 on the STM32F429I-DISC1, on PA0.
func UserButton(bus mmio.Bus) Button {
	port, err := NewPort(bus, 'A')
	if err != nil {
		panic(err)
	}
	return NewButton(bus, port, 0)
}

func NewButton(bus mmio.Bus, port Port, pin uint32) Button {
	port.check(pin)
	exti := mmio.Reg(bus, stm32f429.EXTI)
	return Button{
		Port:   port,
		Pin:    pin,
		IMR:    exti.Offset(stm32f429.EXTI_IMR),
		RTSR:   exti.Offset(stm32f429.EXTI_RTSR),
		PR:     exti.Offset(stm32f429.EXTI_PR),
		EXTICR: mmio.Reg(bus, stm32f429.SYSCFG.Add(stm32f429.SYSCFG_EXTICR1+pin/4*4)),
	}
}

// IRQ returns the interrupt line the pin's EXTI line is routed to.
func (b Button) IRQ() stm32f429.IRQ {
	switch {
	case b.Pin <= 4:
		return stm32f429.IRQ_EXTI0 + stm32f429.IRQ(b.Pin)
	case b.Pin <= 9:
		return stm32f429.IRQ_EXTI9_5
	}
	return stm32f429.IRQ_EXTI15_10
}

// Init makes the pin an input, routes its port to the EXTI line, unmasks
// the rising edge and enables the interrupt in the NVIC.
func (b Button) Init(rcc RCC, nvic cortexm.NVIC) error {
	if err := rcc.EnableGPIO(b.Port.Name); err != nil {
		return err
	}
	rcc.APB2ENR.SetBit(stm32f429.RCC_APB2ENR_SYSCFGEN.Pos)
	b.Port.SetMode(b.Pin, ModeInput)
	b.EXTICR.SetField(uint32(b.Port.Name-'A'), b.Pin%4*4, 4)
	b.RTSR.SetBit(b.Pin)
	b.IMR.SetBit(b.Pin)
	nvic.Enable(b.IRQ().Interrupt())
	return nil
}

func (b Button) Pressed() bool {
	return b.Port.Get(b.Pin)
}

// Pending reports whether the EXTI line has latched an edge.
func (b Button) Pending() bool {
	return b.PR.Bit(b.Pin)
}

// Clear acknowledges the edge. PR bits are cleared by writing one, so this
// is a plain store and not a read-modify-write.
func (b Button) Clear() {
	b.PR.Set(1 << b.Pin)
}
