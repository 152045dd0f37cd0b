package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"omibyte.io/m4boot/firmware"
	"omibyte.io/m4boot/startup"
)

func newLayoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "layout",
		Short: "Print where the firmware sections land in memory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := target()
			if err != nil {
				return err
			}
			p, err := info.Place(firmware.Sections)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 2, ' ', 0)
			fmt.Fprintln(w, "SECTION\tSTART\tEND\tSIZE")
			for _, r := range []startup.Region{p.Vectors, p.Text, p.Layout.DataImage(), p.Layout.Data(), p.Layout.Bss(), p.Stack} {
				fmt.Fprintf(w, "%s\t0x%08X\t0x%08X\t%d\n", r.Name, uint32(r.Start), uint32(r.End), r.Size())
			}
			fmt.Fprintf(w, "_estack\t0x%08X\t\t\n", uint32(p.StackTop))
			return w.Flush()
		},
	}
}

func newLinkerCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "linker",
		Short: "Write the GNU ld script for the target",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := target()
			if err != nil {
				return err
			}
			if output == "" || output == "-" {
				return info.LinkerScript(cmd.OutOrStdout())
			}
			f, err := os.Create(output)
			if err != nil {
				return err
			}
			if err := info.LinkerScript(f); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "-", "output file")
	return cmd
}
