package board

import "omibyte.io/m4boot/mmio"

// LED is a user LED wired to a GPIO pin, lit when the pin is high.
type LED struct {
	Port Port
	Pin  uint32
}

// GreenLED is LD3 on the STM32F429I-DISC1, on PG13.
func GreenLED(bus mmio.Bus) LED {
	port, err := NewPort(bus, 'G')
	if err != nil {
		panic(err)
	}
	return LED{Port: port, Pin: 13}
}

// Init clocks the port and makes the pin a push-pull output.
func (l LED) Init(rcc RCC) error {
	if err := rcc.EnableGPIO(l.Port.Name); err != nil {
		return err
	}
	l.Port.SetMode(l.Pin, ModeOutput)
	l.Port.SetType(l.Pin, PushPull)
	return nil
}

func (l LED) On() {
	l.Port.Set(l.Pin, High)
}

func (l LED) Off() {
	l.Port.Set(l.Pin, Low)
}

func (l LED) Toggle() {
	l.Port.Set(l.Pin, Toggle)
}

func (l LED) Lit() bool {
	return l.Port.Output(l.Pin)
}
