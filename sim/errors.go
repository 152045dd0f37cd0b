package sim

import "errors"

var (
	ErrNoFlash       = errors.New("target has no FLASH region")
	ErrNotLoaded     = errors.New("no program loaded")
	ErrRunning       = errors.New("machine is already running")
	ErrImageTooLarge = errors.New("image does not fit in flash")
	ErrVectorCount   = errors.New("vector table size mismatch")
	ErrTextTooSmall  = errors.New(".text too small for handler stubs")
	ErrDataImage     = errors.New(".data load image does not match layout")
	ErrVectorFetch   = errors.New("vector fetch failed")
)
