package board

import "omibyte.io/m4boot/mmio"

// HSE is the crystal on the STM32F429I-DISC1.
const HSE = 8_000_000

// Clocks bundles what SystemClock180 touches.
type Clocks struct {
	RCC   RCC
	PWR   PWR
	Flash Flash
}

func NewClocks(bus mmio.Bus) Clocks {
	return Clocks{RCC: NewRCC(bus), PWR: NewPWR(bus), Flash: NewFlash(bus)}
}

// SystemClock180 raises the core to 180 MHz in the order the reference
// manual requires: flash latency first, then the regulator, then the PLL.
func (c Clocks) SystemClock180() (uint32, error) {
	c.Flash.SetWaitStates(5)
	c.RCC.EnablePower()
	c.PWR.SetVoltageScale(0b11)
	if err := c.PWR.EnableOverdrive(); err != nil {
		return 0, err
	}
	if err := c.RCC.ConfigurePLL(PLL180MHz); err != nil {
		return 0, err
	}
	return PLL180MHz.SysClock(HSE), nil
}

// ClockOutPA8 routes PLL/4 to MCO1 on PA8.
func (c Clocks) ClockOutPA8(bus mmio.Bus) error {
	if err := c.RCC.EnableGPIO('A'); err != nil {
		return err
	}
	pa, err := NewPort(bus, 'A')
	if err != nil {
		return err
	}
	pa.SetMode(8, ModeAlternate)
	pa.SetSpeed(8, SpeedVeryHigh)
	pa.SetAF(8, 0)
	c.RCC.EnableMCO1(MCOPLL, 4)
	return nil
}
