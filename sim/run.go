package sim

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"

	"omibyte.io/m4boot/chip/stm32f429"
	"omibyte.io/m4boot/trap"
)

// Result summarises a run.
type Result struct {
	// Halted is set when the core trapped. Otherwise the run was stopped
	// from outside.
	Halted   bool
	Event    trap.Event
	Accesses uint64
	Resets   int
}

// Source stimulates a running machine from its own goroutine, the way a
// peripheral or the outside world would. It returns when ctx is done.
type Source func(ctx context.Context, m *Machine) error

// Every raises irq once per period.
func Every(period time.Duration, irq stm32f429.IRQ) Source {
	return func(ctx context.Context, m *Machine) error {
		t := time.NewTicker(period)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-t.C:
				m.Raise(irq)
			}
		}
	}
}

// Run resets the machine and runs the loaded program until the core halts,
// ctx is done or a source fails. A system reset requested through AIRCR
// reboots the core and the run continues.
func (m *Machine) Run(parent context.Context, sources ...Source) (Result, error) {
	m.mu.Lock()
	switch {
	case !m.loaded:
		m.mu.Unlock()
		return Result{}, ErrNotLoaded
	case m.running:
		m.mu.Unlock()
		return Result{}, ErrRunning
	}
	m.halted = nil
	m.resets = 0
	m.mu.Unlock()
	m.stop.Store(false)

	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()
		for {
			m.resetState()
			booted := make(chan struct{})
			go func() {
				defer close(booted)
				m.boot()
			}()
			<-booted
			if !m.rebootRequested() {
				return nil
			}
			klog.V(1).InfoS("system reset requested")
		}
	})
	g.Go(func() error {
		<-gctx.Done()
		m.stop.Store(true)
		return nil
	})
	for _, src := range sources {
		src := src
		g.Go(func() error {
			return src(gctx, m)
		})
	}

	err := g.Wait()
	res := m.result()
	switch {
	case err != nil && !errors.Is(err, context.Canceled):
		return res, err
	case res.Halted:
		return res, nil
	}
	return res, parent.Err()
}

func (m *Machine) rebootRequested() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.resetReq || m.halted != nil || m.stop.Load() {
		return false
	}
	m.resets++
	return true
}

func (m *Machine) result() Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := Result{Accesses: m.accesses, Resets: m.resets}
	if m.halted != nil {
		res.Halted = true
		res.Event = *m.halted
	}
	return res
}
