// Command svd-gen generates the memory-map tables of a chip package from its
// CMSIS SVD description.
//
//	svd-gen -in STM32F429.svd -pkg stm32f429 -out chip/stm32f429/zz_svd.go
package main

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"k8s.io/klog/v2"

	"omibyte.io/m4boot/cmd/svd-gen/generator"
	"omibyte.io/m4boot/cmd/svd-gen/svd"
)

var (
	svdIn   string
	output  string
	pkgName string
)

func init() {
	klog.InitFlags(nil)
	flag.StringVar(&svdIn, "in", "", "input SVD file")
	flag.StringVar(&output, "out", "-", "output Go file")
	flag.StringVar(&pkgName, "pkg", "", "package name (default: lower case device name)")
}

func run() error {
	if svdIn == "" {
		return fmt.Errorf("no input file, use -in")
	}
	file, err := os.Open(svdIn)
	if err != nil {
		return err
	}
	device, err := svd.Decode(file)
	file.Close()
	if err != nil {
		return fmt.Errorf("decode %s: %w", svdIn, err)
	}

	klog.InfoS("generating tables",
		"device", device.Name,
		"cpu", device.CPU.Name,
		"revision", device.CPU.Revision,
		"fpu", device.CPU.FPUPresent,
		"peripherals", len(device.Peripherals.Elements))

	var buf bytes.Buffer
	if err := generator.New(device, pkgName, filepath.Base(svdIn)).Generate(&buf); err != nil {
		return err
	}
	if output == "-" {
		_, err = os.Stdout.Write(buf.Bytes())
		return err
	}
	if err := os.MkdirAll(filepath.Dir(output), 0750); err != nil {
		return err
	}
	return os.WriteFile(output, buf.Bytes(), 0644)
}

func main() {
	flag.Parse()
	defer klog.Flush()
	if err := run(); err != nil {
		klog.ErrorS(err, "svd-gen failed")
		klog.Flush()
		os.Exit(1)
	}
}
