package board

import (
	"omibyte.io/m4boot/chip/stm32f429"
	"omibyte.io/m4boot/mmio"
)

type Flash struct {
	ACR mmio.Register
}

func NewFlash(bus mmio.Bus) Flash {
	return Flash{ACR: mmio.Reg(bus, stm32f429.FLASH.Add(stm32f429.FLASH_ACR))}
}

// SetWaitStates sets the read latency and turns on prefetch and both
// caches. 180 MHz at 3.3 V needs 5 wait states.
func (f Flash) SetWaitStates(ws uint32) {
	f.ACR.Modify(func(v uint32) uint32 {
		v = stm32f429.FLASH_ACR_LATENCY.Insert(v, ws)
		return v | stm32f429.FLASH_ACR_PRFTEN.Mask() | stm32f429.FLASH_ACR_ICEN.Mask() | stm32f429.FLASH_ACR_DCEN.Mask()
	})
}

func (f Flash) WaitStates() uint32 {
	return f.ACR.ReadField(stm32f429.FLASH_ACR_LATENCY)
}
