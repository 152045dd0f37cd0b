package cortexm

import "fmt"

// Exception numbers the system exceptions of the core. The exception number
// is also the index of its slot in the vector table.
type Exception uint8

const (
	Reset        Exception = 1
	NMI          Exception = 2
	HardFault    Exception = 3
	MemManage    Exception = 4
	BusFault     Exception = 5
	UsageFault   Exception = 6
	SVCall       Exception = 11
	DebugMonitor Exception = 12
	PendSV       Exception = 14
	SysTick      Exception = 15
)

// ExternalBase is the vector index of external interrupt 0.
const ExternalBase = 16

var exceptionNames = [ExternalBase]string{
	Reset:        "Reset",
	NMI:          "NMI",
	HardFault:    "HardFault",
	MemManage:    "MemManage",
	BusFault:     "BusFault",
	UsageFault:   "UsageFault",
	SVCall:       "SVCall",
	DebugMonitor: "DebugMonitor",
	PendSV:       "PendSV",
	SysTick:      "SysTick",
}

func (e Exception) String() string {
	if int(e) < len(exceptionNames) && exceptionNames[e] != "" {
		return exceptionNames[e]
	}
	return fmt.Sprintf("Exception(%d)", uint8(e))
}

// Reserved reports whether the slot is reserved by the architecture. Slot 0
// holds the initial stack pointer and is not an exception either.
func (e Exception) Reserved() bool {
	switch {
	case e == 0:
		return true
	case e >= 7 && e <= 10:
		return true
	case e == 13:
		return true
	}
	return false
}

// Valid reports whether e names an implemented system exception.
func (e Exception) Valid() bool {
	return e < ExternalBase && !e.Reserved()
}

// Fault reports whether e is one of the fault exceptions.
func (e Exception) Fault() bool {
	return e >= HardFault && e <= UsageFault
}

// Configurable reports whether the priority of e lives in an SHPR register.
func (e Exception) Configurable() bool {
	return e >= MemManage && e.Valid()
}
