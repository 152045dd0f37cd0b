package cortexm

import (
	"fmt"

	"omibyte.io/m4boot/mmio"
)

var (
	SYST_CSR_ENABLE    = mmio.Bit(0)
	SYST_CSR_TICKINT   = mmio.Bit(1)
	SYST_CSR_CLKSOURCE = mmio.Bit(2)
	SYST_CSR_COUNTFLAG = mmio.Bit(16)
	SYST_RVR_RELOAD    = mmio.MakeField(0, 24)
	SYST_CALIB_TENMS   = mmio.MakeField(0, 24)
	SYST_CALIB_SKEW    = mmio.Bit(30)
	SYST_CALIB_NOREF   = mmio.Bit(31)
)

// SysTickTimer is the 24-bit system timer.
type SysTickTimer struct {
	CSR   mmio.Register
	RVR   mmio.Register
	CVR   mmio.Register
	CALIB mmio.Register
}

func NewSysTick(bus mmio.Bus) SysTickTimer {
	return SysTickTimer{
		CSR:   mmio.Reg(bus, SYST_CSR),
		RVR:   mmio.Reg(bus, SYST_RVR),
		CVR:   mmio.Reg(bus, SYST_CVR),
		CALIB: mmio.Reg(bus, SYST_CALIB),
	}
}

// Clock selects the SysTick source.
type Clock uint32

const (
	ClockExternal Clock = 0 // AHB/8 on STM32F4
	ClockCore     Clock = 1
)

// ReloadFor returns the reload value for a tick every period of the given
// source frequency, e.g. ReloadFor(22_500_000, 1000) for 1 ms at AHB/8.
func ReloadFor(hz, perSecond uint32) (uint32, error) {
	if perSecond == 0 || hz/perSecond == 0 || hz/perSecond-1 > SYST_RVR_RELOAD.Max() {
		return 0, fmt.Errorf("%w: %d Hz / %d", ErrReloadRange, hz, perSecond)
	}
	return hz/perSecond - 1, nil
}

// Start disables the counter, loads reload, clears the current value and
// enables it again with the requested source and interrupt setting.
func (t SysTickTimer) Start(reload uint32, clock Clock, interrupt bool) {
	t.CSR.ClearBit(SYST_CSR_ENABLE.Pos)
	t.RVR.WriteField(SYST_RVR_RELOAD, reload)
	// Any write clears CVR and COUNTFLAG.
	t.CVR.Set(0)
	t.CSR.WriteBit(SYST_CSR_CLKSOURCE.Pos, clock == ClockCore)
	t.CSR.WriteBit(SYST_CSR_TICKINT.Pos, interrupt)
	t.CSR.SetBit(SYST_CSR_ENABLE.Pos)
}

func (t SysTickTimer) Stop() {
	t.CSR.ClearBit(SYST_CSR_ENABLE.Pos)
}

func (t SysTickTimer) Enabled() bool {
	return t.CSR.Bit(SYST_CSR_ENABLE.Pos)
}

// Wrapped reports whether the counter reached zero since the last read.
// Reading CSR clears COUNTFLAG.
func (t SysTickTimer) Wrapped() bool {
	return t.CSR.Bit(SYST_CSR_COUNTFLAG.Pos)
}

// WaitWrap polls COUNTFLAG for at most budget reads.
func (t SysTickTimer) WaitWrap(budget uint32) bool {
	return t.CSR.WaitBit(SYST_CSR_COUNTFLAG.Pos, true, budget)
}

func (t SysTickTimer) Current() uint32 {
	return t.CVR.Get() & SYST_RVR_RELOAD.Mask()
}

// TenMillis returns the calibrated reload for 10 ms, or false if the
// calibration value is absent or inexact.
func (t SysTickTimer) TenMillis() (uint32, bool) {
	v := t.CALIB.Get()
	tenms := SYST_CALIB_TENMS.Extract(v)
	return tenms, tenms != 0 && SYST_CALIB_SKEW.Extract(v) == 0
}
