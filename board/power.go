package board

import (
	"fmt"

	"omibyte.io/m4boot/chip/stm32f429"
	"omibyte.io/m4boot/mmio"
)

type PWR struct {
	CR  mmio.Register
	CSR mmio.Register
}

func NewPWR(bus mmio.Bus) PWR {
	base := mmio.Reg(bus, stm32f429.PWR)
	return PWR{
		CR:  base.Offset(stm32f429.PWR_CR),
		CSR: base.Offset(stm32f429.PWR_CSR),
	}
}

// SetVoltageScale writes VOS. Scale 1 (0b11) allows 168 MHz, 180 MHz
// additionally needs over-drive.
func (p PWR) SetVoltageScale(scale uint32) {
	p.CR.WriteField(stm32f429.PWR_CR_VOS, scale)
}

// EnableOverdrive turns on over-drive and switches the regulator to it.
func (p PWR) EnableOverdrive() error {
	p.CR.SetBit(stm32f429.PWR_CR_ODEN.Pos)
	if !p.CSR.WaitBit(stm32f429.PWR_CSR_ODRDY.Pos, true, ReadyBudget) {
		return fmt.Errorf("over-drive ready: %w", ErrTimeout)
	}
	p.CR.SetBit(stm32f429.PWR_CR_ODSWEN.Pos)
	if !p.CSR.WaitBit(stm32f429.PWR_CSR_ODSWRDY.Pos, true, ReadyBudget) {
		return fmt.Errorf("over-drive switch: %w", ErrTimeout)
	}
	return nil
}
