package mmio

import (
	"errors"
	"fmt"
)

var (
	ErrUnaligned     = errors.New("unaligned register address")
	ErrBitPosition   = errors.New("bit position must be less than 32")
	ErrFieldWidth    = errors.New("field width must be between 1 and 32")
	ErrFieldRange    = errors.New("bit range exceeds register size")
	ErrValueTooWide  = errors.New("value does not fit in field")
	ErrMaskPlacement = errors.New("mask << position exceeds 32-bit register width")
	ErrValueOffMask  = errors.New("value has bits outside mask")
	ErrNotExclusive  = errors.New("exclusive access not held")
)

// UsageError is the panic value raised when a caller violates a register
// access contract. It signals a programming error, never a hardware state.
type UsageError struct {
	Err  error
	Addr Addr
	Args []uint32
}

func (e *UsageError) Error() string {
	if len(e.Args) == 0 {
		return fmt.Sprintf("mmio %#08x: %v", uint32(e.Addr), e.Err)
	}
	return fmt.Sprintf("mmio %#08x: %v %v", uint32(e.Addr), e.Err, e.Args)
}

func (e *UsageError) Unwrap() error {
	return e.Err
}
