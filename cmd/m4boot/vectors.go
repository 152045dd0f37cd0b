package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"omibyte.io/m4boot/firmware"
	"omibyte.io/m4boot/mmio"
	"omibyte.io/m4boot/sim"
	"omibyte.io/m4boot/trap"
	"omibyte.io/m4boot/vector"
)

// linkFirmware places and links the firmware. cfg.Layout is filled in from
// the placement.
type linked struct {
	app *firmware.App
	tbl *vector.Table
	bin *sim.Binary
}

func linkFirmware(cfg firmware.Config) (linked, error) {
	info, err := target()
	if err != nil {
		return linked{}, err
	}
	p, err := info.Place(firmware.Sections)
	if err != nil {
		return linked{}, err
	}
	cfg.Layout = p.Layout
	l := linked{app: firmware.New(cfg)}
	if l.tbl, err = l.app.Table(); err != nil {
		return linked{}, err
	}
	if l.bin, err = sim.Link(p, l.tbl, firmware.DataImage()); err != nil {
		return linked{}, err
	}
	return l, nil
}

func newVectorsCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "vectors",
		Short: "Print the firmware vector table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := linkFirmware(firmware.Config{Bus: mmio.NewMemory(), Halter: trap.Park{}})
			if err != nil {
				return err
			}
			assigned := map[int]bool{}
			for _, n := range l.tbl.Assigned() {
				assigned[n] = true
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 2, ' ', 0)
			fmt.Fprintln(w, "SLOT\tNAME\tWORD")
			for n := 0; n < vector.Len; n++ {
				if !all && n != vector.StackSlot && !assigned[n] {
					continue
				}
				fmt.Fprintf(w, "%d\t%s\t0x%08X\n", n, vector.Name(n), l.bin.Flash[n])
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "include slots bound to the default trap handler")
	return cmd
}

func newInitCmd() *cobra.Command {
	var clockOut bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Print the order of the firmware init steps",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := linkFirmware(firmware.Config{Bus: mmio.NewMemory(), Halter: trap.Park{}, ClockOut: clockOut})
			if err != nil {
				return err
			}
			for i, step := range l.app.Order() {
				fmt.Fprintf(cmd.OutOrStdout(), "%d. %s\n", i+1, step)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&clockOut, "clock-out", false, "include the MCO1 clock output step")
	return cmd
}
