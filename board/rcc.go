// Package board wraps the handful of STM32F429 peripherals the
// demonstration firmware needs: clocks, power, flash latency, GPIO, SysTick
// delays and the user LED. The wrappers are thin; every register access
// goes through mmio.
package board

import (
	"fmt"

	"omibyte.io/m4boot/chip/stm32f429"
	"omibyte.io/m4boot/mmio"
)

// ReadyBudget is how many reads a ready flag gets before the wait gives up.
const ReadyBudget = 100_000

type RCC struct {
	CR      mmio.Register
	PLLCFGR mmio.Register
	CFGR    mmio.Register
	AHB1ENR mmio.Register
	APB1ENR mmio.Register
	APB2ENR mmio.Register
}

func NewRCC(bus mmio.Bus) RCC {
	base := mmio.Reg(bus, stm32f429.RCC)
	return RCC{
		CR:      base.Offset(stm32f429.RCC_CR),
		PLLCFGR: base.Offset(stm32f429.RCC_PLLCFGR),
		CFGR:    base.Offset(stm32f429.RCC_CFGR),
		AHB1ENR: base.Offset(stm32f429.RCC_AHB1ENR),
		APB1ENR: base.Offset(stm32f429.RCC_APB1ENR),
		APB2ENR: base.Offset(stm32f429.RCC_APB2ENR),
	}
}

// EnableGPIO gates the clock of GPIO port p ('A' to 'K') on.
func (r RCC) EnableGPIO(p byte) error {
	if _, ok := stm32f429.Port(p); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPort, p)
	}
	r.AHB1ENR.SetBit(uint32(p - 'A'))
	return nil
}

func (r RCC) GPIOEnabled(p byte) bool {
	if _, ok := stm32f429.Port(p); !ok {
		return false
	}
	return r.AHB1ENR.Bit(uint32(p - 'A'))
}

func (r RCC) EnablePower() {
	r.APB1ENR.SetBit(stm32f429.RCC_APB1ENR_PWREN.Pos)
}

// System clock switch values for CFGR.SW and CFGR.SWS.
const (
	SourceHSI = 0b00
	SourceHSE = 0b01
	SourcePLL = 0b10
)

// PLLConfig is the main PLL setup: VCO = in / M * N, SYSCLK = VCO / P.
// P is the divider itself (2, 4, 6 or 8).
type PLLConfig struct {
	M, N, P, Q uint32
	// AHB, APB1 and APB2 prescaler register encodings.
	HPRE, PPRE1, PPRE2 uint32
}

// PLL180MHz runs an 8 MHz HSE up to 180 MHz with APB1 at 45 MHz and APB2
// at 90 MHz.
var PLL180MHz = PLLConfig{M: 8, N: 360, P: 2, Q: 7, HPRE: 0, PPRE1: 0b101, PPRE2: 0b100}

func (c PLLConfig) word() uint32 {
	var v uint32
	v = stm32f429.RCC_PLLCFGR_PLLM.Insert(v, c.M)
	v = stm32f429.RCC_PLLCFGR_PLLN.Insert(v, c.N)
	v = stm32f429.RCC_PLLCFGR_PLLP.Insert(v, c.P/2-1)
	v = stm32f429.RCC_PLLCFGR_PLLSRC.Insert(v, 1)
	v = stm32f429.RCC_PLLCFGR_PLLQ.Insert(v, c.Q)
	return v
}

// SysClock returns the resulting core clock for an input frequency.
func (c PLLConfig) SysClock(in uint32) uint32 {
	return in / c.M * c.N / c.P
}

// ConfigurePLL starts the HSE, programs and locks the main PLL and switches
// the system clock to it. Flash wait states and the voltage scale must be
// raised before calling this.
func (r RCC) ConfigurePLL(c PLLConfig) error {
	r.CR.SetBit(stm32f429.RCC_CR_HSEON.Pos)
	if !r.CR.WaitBit(stm32f429.RCC_CR_HSERDY.Pos, true, ReadyBudget) {
		return fmt.Errorf("HSE startup: %w", ErrTimeout)
	}

	r.PLLCFGR.Set(c.word())
	r.CFGR.Modify(func(v uint32) uint32 {
		v = stm32f429.RCC_CFGR_HPRE.Insert(v, c.HPRE)
		v = stm32f429.RCC_CFGR_PPRE1.Insert(v, c.PPRE1)
		return stm32f429.RCC_CFGR_PPRE2.Insert(v, c.PPRE2)
	})

	r.CR.SetBit(stm32f429.RCC_CR_PLLON.Pos)
	if !r.CR.WaitBit(stm32f429.RCC_CR_PLLRDY.Pos, true, ReadyBudget) {
		return fmt.Errorf("PLL lock: %w", ErrTimeout)
	}

	r.CFGR.WriteField(stm32f429.RCC_CFGR_SW, SourcePLL)
	if !r.CFGR.WaitField(stm32f429.RCC_CFGR_SWS, SourcePLL, ReadyBudget) {
		return fmt.Errorf("clock switch: %w", ErrTimeout)
	}
	return nil
}

// MCO1 clock output sources.
const (
	MCOHSI = 0b00
	MCOLSE = 0b01
	MCOHSE = 0b10
	MCOPLL = 0b11
)

// EnableMCO1 routes source to the MCO1 pin (PA8) divided by div, 1 to 5.
func (r RCC) EnableMCO1(source, div uint32) {
	pre := uint32(0)
	if div > 1 {
		pre = 0b100 | (div - 2)
	}
	r.CFGR.Modify(func(v uint32) uint32 {
		v = stm32f429.RCC_CFGR_MCO1.Insert(v, source)
		return stm32f429.RCC_CFGR_MCO1PRE.Insert(v, pre)
	})
}
