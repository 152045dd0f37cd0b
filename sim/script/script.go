// Package script drives the simulator from Starlark scenario files. A
// scenario schedules stimuli against bus access counts, lets the machine
// run and then checks memory:
//
//	at(100000, press, "A", 0)
//	at(150000, raise_irq, "TIM2")
//	stop_at(200000)
//
//	def check():
//	    expect(peek(SRAM) > 42, "counter advanced")
package script

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
	"k8s.io/klog/v2"

	"omibyte.io/m4boot/chip/stm32f429"
	"omibyte.io/m4boot/mmio"
	"omibyte.io/m4boot/sim"
)

var (
	// ErrStopped is the cancellation cause when a scenario ends the run.
	ErrStopped = errors.New("stopped by scenario")
	ErrFailed  = errors.New("scenario expectations failed")
)

// Report is the outcome of a scenario.
type Report struct {
	Result   sim.Result
	Failures []string
}

func (r Report) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %d failed", ErrFailed, len(r.Failures))
}

type scenario struct {
	m      *sim.Machine
	name   string
	cancel context.CancelCauseFunc

	mu       sync.Mutex
	failures []string
}

func (s *scenario) fail(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, msg)
	klog.ErrorS(nil, "expectation failed", "scenario", s.name, "msg", msg)
}

func (s *scenario) thread(name string) *starlark.Thread {
	return &starlark.Thread{
		Name: name,
		Print: func(_ *starlark.Thread, msg string) {
			klog.InfoS(msg, "scenario", s.name)
		},
	}
}

// Run executes the scenario src against m and runs the machine until it
// halts, the scenario stops it or ctx is done. A check function defined by
// the scenario runs after the machine has stopped.
func Run(ctx context.Context, m *sim.Machine, filename string, src any) (Report, error) {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	s := &scenario{m: m, name: filename, cancel: cancel}

	globals, err := starlark.ExecFileOptions(&syntax.FileOptions{}, s.thread(filename), filename, src, s.builtins())
	if err != nil {
		return Report{}, fmt.Errorf("load %s: %w", filename, err)
	}

	res, err := m.Run(ctx)
	if err != nil && !errors.Is(context.Cause(ctx), ErrStopped) {
		return Report{Result: res}, err
	}

	if check, ok := globals["check"].(starlark.Callable); ok {
		if _, err := starlark.Call(s.thread("check"), check, nil, nil); err != nil {
			s.fail(err.Error())
		}
	}
	return Report{Result: res, Failures: s.failures}, nil
}

func (s *scenario) builtins() starlark.StringDict {
	return starlark.StringDict{
		"SRAM":      starlark.MakeUint64(uint64(stm32f429.SRAMBase)),
		"FLASH":     starlark.MakeUint64(uint64(stm32f429.FlashBase)),
		"at":        starlark.NewBuiltin("at", s.at),
		"stop_at":   starlark.NewBuiltin("stop_at", s.stopAt),
		"stop":      starlark.NewBuiltin("stop", s.stop),
		"press":     starlark.NewBuiltin("press", s.pin(true)),
		"release":   starlark.NewBuiltin("release", s.pin(false)),
		"raise_irq": starlark.NewBuiltin("raise_irq", s.raiseIRQ),
		"nmi":       starlark.NewBuiltin("nmi", s.nmi),
		"peek":      starlark.NewBuiltin("peek", s.peek),
		"poke":      starlark.NewBuiltin("poke", s.poke),
		"accesses":  starlark.NewBuiltin("accesses", s.accesses),
		"halted":    starlark.NewBuiltin("halted", s.halted),
		"expect":    starlark.NewBuiltin("expect", s.expect),
	}
}

// at(n, fn, *args) calls fn(*args) on the core after bus access n.
func (s *scenario) at(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("%s: want at least 2 arguments, got %d", b.Name(), len(args))
	}
	var n uint64
	var fn starlark.Callable
	if err := starlark.UnpackPositionalArgs(b.Name(), args[:2], kwargs, 2, &n, &fn); err != nil {
		return nil, err
	}
	rest := append(starlark.Tuple(nil), args[2:]...)
	s.m.At(n, func(*sim.Machine) {
		klog.V(2).InfoS("scenario action", "scenario", s.name, "at", n, "fn", fn.Name())
		if _, err := starlark.Call(s.thread(fn.Name()), fn, rest, nil); err != nil {
			s.fail(err.Error())
			s.cancel(ErrStopped)
		}
	})
	return starlark.None, nil
}

func (s *scenario) stopAt(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var n uint64
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &n); err != nil {
		return nil, err
	}
	s.m.At(n, func(*sim.Machine) { s.cancel(ErrStopped) })
	return starlark.None, nil
}

func (s *scenario) stop(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
		return nil, err
	}
	s.cancel(ErrStopped)
	return starlark.None, nil
}

func (s *scenario) pin(high bool) func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error) {
	return func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var port string
		var pin uint32
		if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 2, &port, &pin); err != nil {
			return nil, err
		}
		if len(port) != 1 {
			return nil, fmt.Errorf("%s: port %q", b.Name(), port)
		}
		if _, ok := stm32f429.Port(port[0]); !ok || pin > 15 {
			return nil, fmt.Errorf("%s: no pin P%s%d", b.Name(), port, pin)
		}
		if high {
			s.m.Press(port[0], pin)
		} else {
			s.m.Release(port[0], pin)
		}
		return starlark.None, nil
	}
}

func (s *scenario) raiseIRQ(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name string
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &name); err != nil {
		return nil, err
	}
	irq, ok := stm32f429.LookupIRQ(name)
	if !ok {
		return nil, fmt.Errorf("%s: unknown interrupt %q", b.Name(), name)
	}
	s.m.Raise(irq)
	return starlark.None, nil
}

func (s *scenario) nmi(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
		return nil, err
	}
	s.m.NMI()
	return starlark.None, nil
}

func (s *scenario) peek(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var addr uint32
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &addr); err != nil {
		return nil, err
	}
	return starlark.MakeUint64(uint64(s.m.Peek(mmio.Addr(addr)))), nil
}

func (s *scenario) poke(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var addr, value uint32
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 2, &addr, &value); err != nil {
		return nil, err
	}
	s.m.Poke(mmio.Addr(addr), value)
	return starlark.None, nil
}

func (s *scenario) accesses(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
		return nil, err
	}
	return starlark.MakeUint64(s.m.Accesses()), nil
}

// halted() returns the trap that stopped the core as a string, or None.
func (s *scenario) halted(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
		return nil, err
	}
	ev, ok := s.m.Halted()
	if !ok {
		return starlark.None, nil
	}
	return starlark.String(ev.String()), nil
}

func (s *scenario) expect(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var cond starlark.Value
	var msg string
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &cond, &msg); err != nil {
		return nil, err
	}
	ok := cond.Truth()
	if !ok {
		if msg == "" {
			msg = "expectation failed"
		}
		s.fail(msg)
	}
	return ok, nil
}
