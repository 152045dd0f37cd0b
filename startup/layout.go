package startup

import (
	"errors"
	"fmt"

	"omibyte.io/m4boot/mmio"
)

// Layout carries the linker symbols the reset sequence works from.
//
//	DataLoad  = _sidata  image of initialised data in flash
//	DataStart = _sdata   first word of .data in RAM
//	DataEnd   = _edata   one past the last word of .data
//	BssStart  = _sbss    first word of .bss
//	BssEnd    = _ebss    one past the last word of .bss
type Layout struct {
	DataLoad  mmio.Addr
	DataStart mmio.Addr
	DataEnd   mmio.Addr
	BssStart  mmio.Addr
	BssEnd    mmio.Addr
}

// Region is a half-open address range [Start, End).
type Region struct {
	Name  string
	Start mmio.Addr
	End   mmio.Addr
}

func (r Region) Size() uint32 {
	return uint32(r.End - r.Start)
}

func (r Region) Contains(addr mmio.Addr) bool {
	return addr >= r.Start && addr < r.End
}

// Overlaps reports whether both regions share at least one byte. Empty
// regions overlap nothing.
func (r Region) Overlaps(o Region) bool {
	if r.Start >= r.End || o.Start >= o.End {
		return false
	}
	return r.Start < o.End && o.Start < r.End
}

func (r Region) String() string {
	return fmt.Sprintf("%s [%#08x, %#08x)", r.Name, uint32(r.Start), uint32(r.End))
}

func (l Layout) Data() Region {
	return Region{Name: ".data", Start: l.DataStart, End: l.DataEnd}
}

func (l Layout) Bss() Region {
	return Region{Name: ".bss", Start: l.BssStart, End: l.BssEnd}
}

// DataImage is where the initial values of .data live before the copy.
func (l Layout) DataImage() Region {
	return Region{Name: ".data image", Start: l.DataLoad, End: l.DataLoad + (l.DataEnd - l.DataStart)}
}

// Validate checks what the reset sequence assumes without checking: word
// aligned symbols, ordered bounds, and no overlap between the data image,
// .data, .bss and any reserved region such as the vector table or the
// program image. A data image placed exactly on .data is accepted; the copy
// is then a no-op.
func (l Layout) Validate(reserved ...Region) error {
	var errs []error
	for _, sym := range []struct {
		name string
		addr mmio.Addr
	}{
		{"_sidata", l.DataLoad},
		{"_sdata", l.DataStart},
		{"_edata", l.DataEnd},
		{"_sbss", l.BssStart},
		{"_ebss", l.BssEnd},
	} {
		if !sym.addr.Aligned() {
			errs = append(errs, fmt.Errorf("%w: %s = %#x", ErrUnaligned, sym.name, uint32(sym.addr)))
		}
	}
	for _, r := range []Region{l.Data(), l.Bss()} {
		if r.End < r.Start {
			errs = append(errs, fmt.Errorf("%w: %s", ErrInverted, r))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	regions := []Region{l.Data(), l.Bss()}
	if l.DataLoad != l.DataStart {
		regions = append(regions, l.DataImage())
	}
	regions = append(regions, reserved...)
	for i := range regions {
		for j := i + 1; j < len(regions); j++ {
			if regions[i].Overlaps(regions[j]) {
				errs = append(errs, fmt.Errorf("%w: %s and %s", ErrOverlap, regions[i], regions[j]))
			}
		}
	}
	return errors.Join(errs...)
}
