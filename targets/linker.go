package targets

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"omibyte.io/m4boot/mmio"
	"omibyte.io/m4boot/startup"
)

var ErrNoRoom = errors.New("image does not fit")

// Image is the size of each output section of a program.
type Image struct {
	Text uint32
	Data uint32
	Bss  uint32
}

// Placement is where a program image lands on a target: the vector table at
// the flash origin, code behind it, the .data load image behind the code,
// .data and .bss at the start of RAM and the stack at the top of RAM.
type Placement struct {
	Vectors  startup.Region
	Text     startup.Region
	Stack    startup.Region
	Layout   startup.Layout
	StackTop mmio.Addr
}

// Reserved returns the regions .data and .bss must stay clear of.
func (p Placement) Reserved() []startup.Region {
	return []startup.Region{p.Vectors, p.Text, p.Stack}
}

func align4(n uint32) uint32 {
	return (n + 3) &^ 3
}

// Place lays out img on the target and validates the result.
func (t TargetInfo) Place(img Image) (Placement, error) {
	flash, err := t.Region("FLASH")
	if err != nil {
		return Placement{}, err
	}
	ram, err := t.Region("RAM")
	if err != nil {
		return Placement{}, err
	}

	var p Placement
	p.Vectors = startup.Region{Name: ".isr_vector", Start: flash.Origin, End: flash.Origin.Add(uint32(t.Vectors) * 4)}
	p.Text = startup.Region{Name: ".text", Start: p.Vectors.End, End: p.Vectors.End.Add(align4(img.Text))}
	dataSize := align4(img.Data)
	p.Layout = startup.Layout{
		DataLoad:  p.Text.End,
		DataStart: ram.Origin,
		DataEnd:   ram.Origin.Add(dataSize),
	}
	p.Layout.BssStart = p.Layout.DataEnd
	p.Layout.BssEnd = p.Layout.BssStart.Add(align4(img.Bss))
	p.StackTop = ram.End()
	p.Stack = startup.Region{Name: ".stack", Start: p.StackTop - mmio.Addr(t.StackSize), End: p.StackTop}

	if end := p.Layout.DataImage().End; end > flash.End() {
		return Placement{}, fmt.Errorf("%w: flash needs %d bytes, has %d", ErrNoRoom, uint32(end-flash.Origin), uint32(flash.Length))
	}
	if p.Layout.BssEnd > p.Stack.Start {
		return Placement{}, fmt.Errorf("%w: ram needs %d bytes, has %d", ErrNoRoom,
			uint32(p.Layout.BssEnd-ram.Origin)+uint32(t.StackSize), uint32(ram.Length))
	}
	if err := p.Layout.Validate(p.Reserved()...); err != nil {
		return Placement{}, err
	}
	return p, nil
}

// LinkerScript writes a GNU ld script that defines the symbols the reset
// sequence reads: _sidata, _sdata, _edata, _sbss, _ebss and _estack.
func (t TargetInfo) LinkerScript(w io.Writer) error {
	var b strings.Builder

	fmt.Fprintln(&b, "ENTRY(Reset_Handler)")
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, "MEMORY")
	fmt.Fprintln(&b, "{")
	for _, m := range t.Memory {
		fmt.Fprintf(&b, "\t%s (%s) : ORIGIN = 0x%08X, LENGTH = %s\n", m.Name, m.Access, uint32(m.Origin), m.Length)
	}
	fmt.Fprintln(&b, "}")
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, "_estack = ORIGIN(RAM) + LENGTH(RAM);")
	fmt.Fprintf(&b, "_stack_size = %s;\n", t.StackSize)
	fmt.Fprintln(&b)
	b.WriteString(`SECTIONS
{
	.isr_vector :
	{
		. = ALIGN(4);
		KEEP(*(.isr_vector))
		. = ALIGN(4);
	} >FLASH

	.text :
	{
		. = ALIGN(4);
		*(.text)
		*(.text*)
		*(.rodata)
		*(.rodata*)
		. = ALIGN(4);
		_etext = .;
	} >FLASH

	_sidata = LOADADDR(.data);

	.data :
	{
		. = ALIGN(4);
		_sdata = .;
		*(.data)
		*(.data*)
		. = ALIGN(4);
		_edata = .;
	} >RAM AT> FLASH

	.bss (NOLOAD) :
	{
		. = ALIGN(4);
		_sbss = .;
		*(.bss)
		*(.bss*)
		*(COMMON)
		. = ALIGN(4);
		_ebss = .;
	} >RAM

	ASSERT(_ebss + _stack_size <= _estack, "not enough RAM for the stack")
}
`)
	_, err := io.WriteString(w, b.String())
	return err
}
