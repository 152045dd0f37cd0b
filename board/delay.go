package board

import (
	"fmt"

	"omibyte.io/m4boot/chip/cortexm"
)

// Delay busy-waits on SysTick wraps, one per millisecond. The timer runs
// from AHB/8 without interrupts.
type Delay struct {
	Timer cortexm.SysTickTimer
	HCLK  uint32
}

func (d Delay) Init() error {
	reload, err := cortexm.ReloadFor(d.HCLK/8, 1000)
	if err != nil {
		return err
	}
	d.Timer.Start(reload, cortexm.ClockExternal, false)
	return nil
}

// Millis waits ms milliseconds. Each wrap gets ReadyBudget polls; a timer
// that never wraps is reported instead of hanging.
func (d Delay) Millis(ms uint32) error {
	for i := uint32(0); i < ms; i++ {
		if !d.Timer.WaitWrap(ReadyBudget) {
			return fmt.Errorf("systick tick %d of %d: %w", i+1, ms, ErrTimeout)
		}
	}
	return nil
}
