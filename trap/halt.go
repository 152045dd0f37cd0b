package trap

import (
	"runtime"

	"omibyte.io/m4boot/mmio"
)

// Park blocks the calling goroutine forever.
type Park struct{}

func (Park) Halt(Event) {
	park()
}

// Spin masks everything it can through Mask and then busy-waits, calling
// Wait on every iteration. This is what a core does when it locks up with
// interrupts disabled.
type Spin struct {
	Mask mmio.Critical
	Wait func()
}

func (s Spin) Halt(Event) {
	if s.Mask != nil {
		s.Mask.Enter()
	}
	wait := s.Wait
	if wait == nil {
		wait = runtime.Gosched
	}
	for {
		wait()
	}
}
