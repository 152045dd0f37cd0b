package cortexm

import "omibyte.io/m4boot/mmio"

// ICSR fields.
var (
	ICSR_VECTACTIVE = mmio.MakeField(0, 9)
	ICSR_PENDSTCLR  = mmio.Bit(25)
	ICSR_PENDSTSET  = mmio.Bit(26)
	ICSR_PENDSVCLR  = mmio.Bit(27)
	ICSR_PENDSVSET  = mmio.Bit(28)
	ICSR_NMIPENDSET = mmio.Bit(31)
)

// AIRCR fields. Writes are ignored unless VECTKEY holds AIRCRKey.
var (
	AIRCR_VECTRESET     = mmio.Bit(0)
	AIRCR_VECTCLRACTIVE = mmio.Bit(1)
	AIRCR_SYSRESETREQ   = mmio.Bit(2)
	AIRCR_PRIGROUP      = mmio.MakeField(8, 3)
	AIRCR_VECTKEY       = mmio.MakeField(16, 16)
)

const AIRCRKey = 0x05FA

// SHCSR enables for the configurable faults.
var (
	SHCSR_MEMFAULTENA = mmio.Bit(16)
	SHCSR_BUSFAULTENA = mmio.Bit(17)
	SHCSR_USGFAULTENA = mmio.Bit(18)
)

var (
	HFSR_VECTTBL       = mmio.Bit(1)
	HFSR_FORCED        = mmio.Bit(30)
	CCR_UNALIGN_TRP    = mmio.Bit(3)
	CCR_DIV_0_TRP      = mmio.Bit(4)
	CPACR_FPU          = mmio.MakeField(20, 4) // CP10 and CP11 full access
	DEMCR_TRCENA       = mmio.Bit(24)
	DWT_CTRL_CYCCNTENA = mmio.Bit(0)
)

// VTORMask keeps the implemented TBLOFF bits of VTOR.
const VTORMask = 0xFFFF_FF80

// SCB is the system control block.
type SCB struct {
	ICSR  mmio.Register
	VTOR  mmio.Register
	AIRCR mmio.Register
	CCR   mmio.Register
	SHCSR mmio.Register
	CFSR  mmio.Register
	HFSR  mmio.Register
	MMFAR mmio.Register
	BFAR  mmio.Register
	CPACR mmio.Register
	bus   mmio.Bus
}

func NewSCB(bus mmio.Bus) SCB {
	return SCB{
		ICSR:  mmio.Reg(bus, ICSR),
		VTOR:  mmio.Reg(bus, VTOR),
		AIRCR: mmio.Reg(bus, AIRCR),
		CCR:   mmio.Reg(bus, CCR),
		SHCSR: mmio.Reg(bus, SHCSR),
		CFSR:  mmio.Reg(bus, CFSR),
		HFSR:  mmio.Reg(bus, HFSR),
		MMFAR: mmio.Reg(bus, MMFAR),
		BFAR:  mmio.Reg(bus, BFAR),
		CPACR: mmio.Reg(bus, CPACR),
		bus:   bus,
	}
}

// SetVectorTable relocates the vector table. base must be aligned to 128
// bytes; the low bits are dropped.
func (s SCB) SetVectorTable(base mmio.Addr) {
	s.VTOR.Set(uint32(base) & VTORMask)
}

func (s SCB) VectorTable() mmio.Addr {
	return mmio.Addr(s.VTOR.Get() & VTORMask)
}

// ActiveVector returns the vector index being serviced, 0 in thread mode.
func (s SCB) ActiveVector() int {
	return int(s.ICSR.ReadField(ICSR_VECTACTIVE))
}

// PendSysTick and PendSV only write their set bit; the other ICSR bits are
// write-one-to-act or read-only so no read is needed.
func (s SCB) PendSysTick() {
	s.ICSR.Set(ICSR_PENDSTSET.Mask())
}

func (s SCB) PendSV() {
	s.ICSR.Set(ICSR_PENDSVSET.Mask())
}

// SystemReset requests a reset of the whole chip.
func (s SCB) SystemReset() {
	v := s.AIRCR.Get()
	v = AIRCR_VECTKEY.Insert(v, AIRCRKey)
	v = AIRCR_SYSRESETREQ.Insert(v, 1)
	s.AIRCR.Set(v)
}

// SetPriorityGrouping writes PRIGROUP together with the write key.
func (s SCB) SetPriorityGrouping(group uint32) {
	v := s.AIRCR.Get()
	v = AIRCR_VECTKEY.Insert(v, AIRCRKey)
	v = AIRCR_PRIGROUP.Insert(v, group)
	s.AIRCR.Set(v)
}

// SetSystemPriority sets the priority of a configurable system exception.
// Exception 4 lives in byte 0 of SHPR1 and exception 15 in byte 3 of SHPR3.
func (s SCB) SetSystemPriority(e Exception, priority uint8) {
	if !e.Configurable() {
		panic(&mmio.UsageError{Err: ErrNotConfigurable, Addr: SHPR1, Args: []uint32{uint32(e)}})
	}
	r, f := shpr(s.bus, e)
	r.WriteField(f, uint32(priority))
}

func (s SCB) SystemPriority(e Exception) uint8 {
	if !e.Configurable() {
		return 0
	}
	r, f := shpr(s.bus, e)
	return uint8(r.ReadField(f))
}

func shpr(bus mmio.Bus, e Exception) (mmio.Register, mmio.Field) {
	n := uint32(e) - uint32(MemManage)
	return mmio.Reg(bus, SHPR1.Add(n&^3)), mmio.MakeField(n&3*8, 8)
}

// EnableFaults routes MemManage, BusFault and UsageFault to their own
// handlers instead of escalating them to HardFault.
func (s SCB) EnableFaults() {
	s.SHCSR.Modify(func(v uint32) uint32 {
		return v | SHCSR_MEMFAULTENA.Mask() | SHCSR_BUSFAULTENA.Mask() | SHCSR_USGFAULTENA.Mask()
	})
}

// EnableFPU grants full access to the floating point coprocessors.
func (s SCB) EnableFPU() {
	s.CPACR.WriteField(CPACR_FPU, 0xF)
}

// FaultStatus is a snapshot of the fault status and address registers.
type FaultStatus struct {
	CFSR  uint32
	HFSR  uint32
	MMFAR uint32
	BFAR  uint32
}

// Forced reports whether a configurable fault escalated to HardFault.
func (f FaultStatus) Forced() bool {
	return HFSR_FORCED.Extract(f.HFSR) != 0
}

func (s SCB) Faults() FaultStatus {
	return FaultStatus{
		CFSR:  s.CFSR.Get(),
		HFSR:  s.HFSR.Get(),
		MMFAR: s.MMFAR.Get(),
		BFAR:  s.BFAR.Get(),
	}
}

// EnableCycleCounter turns on the DWT cycle counter and resets it.
func EnableCycleCounter(bus mmio.Bus) {
	mmio.Reg(bus, DEMCR).SetBit(DEMCR_TRCENA.Pos)
	mmio.Reg(bus, DWT_CYCCNT).Set(0)
	mmio.Reg(bus, DWT_CTRL).SetBit(DWT_CTRL_CYCCNTENA.Pos)
}

func Cycles(bus mmio.Bus) uint32 {
	return mmio.Reg(bus, DWT_CYCCNT).Get()
}
