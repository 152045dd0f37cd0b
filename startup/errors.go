package startup

import "errors"

var (
	ErrUnaligned     = errors.New("linker symbol not word aligned")
	ErrInverted      = errors.New("region ends before it starts")
	ErrOverlap       = errors.New("regions overlap")
	ErrUninitialized = errors.New("global accessed before reset completed")
	ErrOutsideArena  = errors.New("address outside data and bss")
)
