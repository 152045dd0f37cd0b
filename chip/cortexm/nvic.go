package cortexm

import "omibyte.io/m4boot/mmio"

// Interrupt is an external interrupt line as numbered by the NVIC.
type Interrupt uint16

// MaxInterrupts is the architectural limit of external interrupt lines.
const MaxInterrupts = 240

// PriorityBits is how many priority bits the STM32F4 implements. The
// implemented bits are the most significant bits of each 8-bit field.
const PriorityBits = 4

// Priority converts a priority level (0 is most urgent) into the 8-bit value
// stored in IPR and SHPR fields.
func Priority(level uint8) uint8 {
	return level << (8 - PriorityBits)
}

// Vector returns the vector table index of the interrupt.
func (i Interrupt) Vector() int {
	return ExternalBase + int(i)
}

func (i Interrupt) word() uint32 {
	return uint32(i>>5) * 4
}

func (i Interrupt) bit() uint32 {
	return 1 << (i & 0x1F)
}

// NVIC drives the nested vectored interrupt controller. The set and clear
// banks are write-one registers, so enabling or pending a line never needs a
// read-modify-write.
type NVIC struct {
	bus mmio.Bus
}

func NewNVIC(bus mmio.Bus) NVIC {
	return NVIC{bus: bus}
}

func (n NVIC) bank(base mmio.Addr, i Interrupt) mmio.Register {
	return mmio.Reg(n.bus, base.Add(i.word()))
}

func (n NVIC) Enable(i Interrupt) {
	n.bank(NVIC_ISER, i).Set(i.bit())
}

func (n NVIC) Disable(i Interrupt) {
	n.bank(NVIC_ICER, i).Set(i.bit())
}

func (n NVIC) Enabled(i Interrupt) bool {
	return n.bank(NVIC_ISER, i).Get()&i.bit() != 0
}

func (n NVIC) SetPending(i Interrupt) {
	n.bank(NVIC_ISPR, i).Set(i.bit())
}

func (n NVIC) ClearPending(i Interrupt) {
	n.bank(NVIC_ICPR, i).Set(i.bit())
}

func (n NVIC) Pending(i Interrupt) bool {
	return n.bank(NVIC_ISPR, i).Get()&i.bit() != 0
}

func (n NVIC) Active(i Interrupt) bool {
	return n.bank(NVIC_IABR, i).Get()&i.bit() != 0
}

// Trigger pends the interrupt from software through STIR.
func (n NVIC) Trigger(i Interrupt) {
	mmio.Reg(n.bus, STIR).Set(uint32(i) & 0x1FF)
}

// SetPriority stores the raw 8-bit priority of the interrupt. The write is a
// read-modify-write of the IPR word shared with three other lines.
func (n NVIC) SetPriority(i Interrupt, priority uint8) {
	r := mmio.Reg(n.bus, NVIC_IPR.Add(uint32(i)&^3))
	r.WriteField(mmio.MakeField(uint32(i&3)*8, 8), uint32(priority))
}

func (n NVIC) GetPriority(i Interrupt) uint8 {
	r := mmio.Reg(n.bus, NVIC_IPR.Add(uint32(i)&^3))
	return uint8(r.ReadField(mmio.MakeField(uint32(i&3)*8, 8)))
}

// SourceMask is a Critical that masks a single interrupt line. It is enough
// to guard a register shared between the main flow and that line's handler.
type SourceMask struct {
	NVIC NVIC
	Line Interrupt
}

func (m SourceMask) Enter() uint32 {
	var state uint32
	if m.NVIC.Enabled(m.Line) {
		state = 1
	}
	m.NVIC.Disable(m.Line)
	return state
}

func (m SourceMask) Exit(state uint32) {
	if state != 0 {
		m.NVIC.Enable(m.Line)
	}
}
