// Command m4boot inspects the firmware image layout for a target and runs
// the demo firmware on the simulated STM32F429.
package main

import (
	goflag "flag"
	"os"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"omibyte.io/m4boot/targets"
)

var chip string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "m4boot",
		Short:         "Cortex-M4 boot layer tooling",
		Long:          "Inspect the image layout, linker script and vector table of the STM32F429 firmware, or run it on the simulator.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	klogFlags := goflag.NewFlagSet("klog", goflag.ContinueOnError)
	klog.InitFlags(klogFlags)
	root.PersistentFlags().AddGoFlagSet(klogFlags)
	root.PersistentFlags().StringVar(&chip, "chip", "stm32f429zi", "target chip")

	root.AddCommand(newLayoutCmd(), newLinkerCmd(), newVectorsCmd(), newInitCmd(), newRunCmd())
	return root
}

func target() (targets.TargetInfo, error) {
	return targets.All().FindByChip(chip)
}

func main() {
	defer klog.Flush()
	if err := newRootCmd().Execute(); err != nil {
		klog.ErrorS(err, "m4boot failed")
		klog.Flush()
		os.Exit(1)
	}
}
