package vector

import "errors"

var (
	ErrStackSlot  = errors.New("slot 0 holds the initial stack pointer")
	ErrReserved   = errors.New("slot is reserved")
	ErrOutOfRange = errors.New("slot out of range")
	ErrDuplicate  = errors.New("slot assigned twice")
	ErrNilHandler = errors.New("nil handler")
	ErrNoReset    = errors.New("no reset handler")
)
