package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"omibyte.io/m4boot/firmware"
	"omibyte.io/m4boot/sim"
	"omibyte.io/m4boot/sim/script"
	"omibyte.io/m4boot/startup"
	"omibyte.io/m4boot/trap"
)

var ErrTrapped = errors.New("firmware trapped")

type runOptions struct {
	timeout  time.Duration
	tickStep uint32
	pressAt  uint64
	stopAt   uint64
	script   string
	clockOut bool
}

func newRunCmd() *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the firmware on the simulated STM32F429",
		Long: `Run the firmware on the simulated STM32F429 until it traps, the timeout
expires or the stop access count is reached. A Starlark scenario given with
--script can schedule stimuli and check memory once the run ends.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFirmware(cmd, opts)
		},
	}
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 5*time.Second, "wall clock limit")
	cmd.Flags().Uint32Var(&opts.tickStep, "tick-step", 1000, "SysTick counts per bus access")
	cmd.Flags().Uint64Var(&opts.pressAt, "press-at", 0, "press the user button after this many bus accesses")
	cmd.Flags().Uint64Var(&opts.stopAt, "stop-at", 0, "stop after this many bus accesses")
	cmd.Flags().StringVarP(&opts.script, "script", "s", "", "Starlark scenario file")
	cmd.Flags().BoolVar(&opts.clockOut, "clock-out", false, "drive PLL/4 on MCO1 (PA8)")
	return cmd
}

func runFirmware(cmd *cobra.Command, opts runOptions) error {
	info, err := target()
	if err != nil {
		return err
	}
	m, err := sim.New(sim.Config{Target: info, TickStep: opts.tickStep})
	if err != nil {
		return err
	}
	l, err := linkFirmware(firmware.Config{
		Bus:      m,
		Halter:   m,
		Mask:     m.Mask(),
		ClockOut: opts.clockOut,
		OnPhase: func(p startup.Phase) {
			klog.V(1).InfoS("reset", "phase", p)
		},
	})
	if err != nil {
		return err
	}
	if err := m.Load(l.bin); err != nil {
		return err
	}
	defer trap.Observe(func(ev trap.Event) {
		klog.ErrorS(nil, "trap", "kind", ev.Kind, "vector", ev.Vector, "value", ev.Value)
	})()

	ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
	defer cancel()
	if opts.pressAt > 0 {
		m.At(opts.pressAt, func(m *sim.Machine) { m.Press('A', 0) })
	}
	if opts.stopAt > 0 {
		m.At(opts.stopAt, func(*sim.Machine) { cancel() })
	}

	var res sim.Result
	var failures []string
	if opts.script != "" {
		src, err := os.ReadFile(opts.script)
		if err != nil {
			return err
		}
		rep, err := script.Run(ctx, m, opts.script, src)
		if err != nil && !stoppedByUs(err) {
			return err
		}
		res, failures = rep.Result, rep.Failures
	} else {
		res, err = m.Run(ctx)
		if err != nil && !stoppedByUs(err) {
			return err
		}
	}

	words := m.Words(l.bin.Placement.Layout.DataStart, 3)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "accesses  %d\n", res.Accesses)
	fmt.Fprintf(out, "resets    %d\n", res.Resets)
	fmt.Fprintf(out, "hclk      %d\n", l.app.HCLK())
	fmt.Fprintf(out, "counter   %d\n", words[0])
	fmt.Fprintf(out, "ticks     %d\n", words[1])
	fmt.Fprintf(out, "presses   %d\n", words[2])
	for _, f := range failures {
		fmt.Fprintf(out, "FAIL      %s\n", f)
	}

	switch {
	case res.Halted:
		return fmt.Errorf("%w: %v", ErrTrapped, res.Event)
	case len(failures) > 0:
		return fmt.Errorf("%w: %d failed", script.ErrFailed, len(failures))
	}
	return nil
}

func stoppedByUs(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
