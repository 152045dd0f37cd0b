// Package generator turns a decoded SVD device into the Go memory-map tables
// used by the chip packages: peripheral base addresses, interrupt lines,
// register offsets and field descriptors. The output expects the target
// package to declare the IRQ type itself.
package generator

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/exp/slices"
	"golang.org/x/tools/imports"

	"omibyte.io/m4boot/cmd/svd-gen/svd"
)

var (
	ErrNoPeripherals = errors.New("device has no peripherals")
	ErrIRQConflict   = errors.New("interrupt number used by two names")
	ErrBadField      = errors.New("field does not fit its register")
)

const mmioPath = "omibyte.io/m4boot/mmio"

type Generator struct {
	device svd.DeviceElement
	pkg    string
	source string
}

// New returns a generator writing package pkg. source names the input file
// in the generated header.
func New(device svd.DeviceElement, pkg, source string) *Generator {
	if pkg == "" {
		pkg = strings.ToLower(device.Name)
	}
	return &Generator{device: device, pkg: pkg, source: source}
}

// Generate writes the formatted tables to w.
func (g *Generator) Generate(w io.Writer) error {
	if len(g.device.Peripherals.Elements) == 0 {
		return ErrNoPeripherals
	}

	var b strings.Builder
	fmt.Fprintf(&b, "// Code generated by svd-gen from %s. DO NOT EDIT.\n\n", g.source)
	fmt.Fprintf(&b, "package %s\n\n", g.pkg)
	fmt.Fprintf(&b, "import %q\n\n", mmioPath)

	g.writeBases(&b)
	if err := g.writeInterrupts(&b); err != nil {
		return err
	}
	for _, p := range g.registerBlocks() {
		if err := g.writeRegisters(&b, p); err != nil {
			return err
		}
	}

	src, err := imports.Process(g.pkg+".go", []byte(b.String()), &imports.Options{
		Comments:   true,
		TabIndent:  true,
		TabWidth:   8,
		FormatOnly: true,
	})
	if err != nil {
		return fmt.Errorf("format %s: %w", g.pkg, err)
	}
	_, err = w.Write(src)
	return err
}

func (g *Generator) peripherals() []svd.PeripheralElement {
	ps := slices.Clone(g.device.Peripherals.Elements)
	slices.SortStableFunc(ps, func(a, b svd.PeripheralElement) int {
		return cmp.Compare(a.BaseAddress, b.BaseAddress)
	})
	return ps
}

func (g *Generator) writeBases(b *strings.Builder) {
	fmt.Fprintln(b, "// Peripheral base addresses.")
	fmt.Fprintln(b, "const (")
	for _, p := range g.peripherals() {
		fmt.Fprintf(b, "%s mmio.Addr = 0x%08X\n", ident(p.Name), uint64(p.BaseAddress))
	}
	fmt.Fprintln(b, ")")
	fmt.Fprintln(b)
}

// interrupts collects the interrupt lines of every peripheral sorted by
// number. Peripherals sharing a line list it more than once.
func (g *Generator) interrupts() ([]svd.InterruptElement, error) {
	var irqs []svd.InterruptElement
	for _, p := range g.device.Peripherals.Elements {
		irqs = append(irqs, p.Interrupts...)
	}
	slices.SortStableFunc(irqs, func(a, b svd.InterruptElement) int {
		return cmp.Compare(a.Value, b.Value)
	})

	var out []svd.InterruptElement
	for _, irq := range irqs {
		if n := len(out); n > 0 && out[n-1].Value == irq.Value {
			if out[n-1].Name != irq.Name {
				return nil, fmt.Errorf("%w: %d is %s and %s", ErrIRQConflict, irq.Value, out[n-1].Name, irq.Name)
			}
			continue
		}
		out = append(out, irq)
	}
	return out, nil
}

func (g *Generator) writeInterrupts(b *strings.Builder) error {
	irqs, err := g.interrupts()
	if err != nil || len(irqs) == 0 {
		return err
	}

	fmt.Fprintln(b, "// Interrupt lines.")
	fmt.Fprintln(b, "const (")
	for _, irq := range irqs {
		fmt.Fprintf(b, "IRQ_%s IRQ = %d", ident(irq.Name), irq.Value)
		if d := oneLine(irq.Description); d != "" {
			fmt.Fprintf(b, " // %s", d)
		}
		fmt.Fprintln(b)
	}
	fmt.Fprintln(b, ")")
	fmt.Fprintln(b)

	fmt.Fprintf(b, "const NumIRQ = %d\n\n", irqs[len(irqs)-1].Value+1)
	fmt.Fprintln(b, "var irqNames = [NumIRQ]string{")
	for _, irq := range irqs {
		fmt.Fprintf(b, "IRQ_%s: %q,\n", ident(irq.Name), irq.Name)
	}
	fmt.Fprintln(b, "}")
	fmt.Fprintln(b)
	return nil
}

type block struct {
	prefix string
	p      svd.PeripheralElement
}

// registerBlocks returns one entry per register layout. A peripheral that
// others derive from names its set by group, e.g. GPIO for GPIOA..GPIOK.
// Derived peripherals reuse the layout and get no entry of their own.
func (g *Generator) registerBlocks() []block {
	var out []block
	for _, p := range g.peripherals() {
		if p.DerivedFrom != "" || len(p.Registers.RegisterElements) == 0 {
			continue
		}
		prefix := p.Name
		if len(g.device.Peripherals.Derived(p.Name)) > 0 && p.Group != "" {
			prefix = p.Group
		}
		out = append(out, block{prefix: ident(prefix), p: p})
	}
	return out
}

func (g *Generator) writeRegisters(b *strings.Builder, blk block) error {
	regs := slices.Clone(blk.p.Registers.RegisterElements)
	slices.SortStableFunc(regs, func(a, b svd.RegisterElement) int {
		return cmp.Compare(a.AddressOffset, b.AddressOffset)
	})

	fmt.Fprintf(b, "// %s register offsets.\n", blk.prefix)
	fmt.Fprintln(b, "const (")
	for _, r := range regs {
		fmt.Fprintf(b, "%s_%s = 0x%02X\n", blk.prefix, ident(r.Name), uint64(r.AddressOffset))
	}
	fmt.Fprintln(b, ")")
	fmt.Fprintln(b)

	var fields strings.Builder
	for _, r := range regs {
		size := r.Size
		if size == 0 {
			size = g.device.RegisterSize
		}
		if size == 0 {
			size = 32
		}
		for _, f := range r.Fields.Elements {
			if f.BitWidth == 0 || f.BitOffset+f.BitWidth > size {
				return fmt.Errorf("%w: %s.%s.%s at %d width %d", ErrBadField, blk.p.Name, r.Name, f.Name, f.BitOffset, f.BitWidth)
			}
			fmt.Fprintf(&fields, "%s_%s_%s = mmio.Field{Pos: %d, Width: %d}\n",
				blk.prefix, ident(r.Name), ident(f.Name), f.BitOffset, f.BitWidth)
		}
	}
	if fields.Len() > 0 {
		fmt.Fprintf(b, "// %s fields.\n", blk.prefix)
		fmt.Fprintln(b, "var (")
		b.WriteString(fields.String())
		fmt.Fprintln(b, ")")
		fmt.Fprintln(b)
	}
	return nil
}

// ident turns an SVD name into an exported Go identifier. Array markers
// such as "[%s]" are dropped.
func ident(name string) string {
	name = strings.ReplaceAll(name, "[%s]", "")
	name = strings.ReplaceAll(name, "%s", "")
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	s := strings.ToUpper(b.String())
	if s == "" || s[0] >= '0' && s[0] <= '9' {
		s = "X" + s
	}
	return s
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
