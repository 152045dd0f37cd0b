package sim

import (
	"fmt"
	"strings"

	"omibyte.io/m4boot/chip/cortexm"
	"omibyte.io/m4boot/mmio"
	"omibyte.io/m4boot/targets"
)

type Prot uint8

const (
	ProtRead Prot = 1 << iota
	ProtWrite
	ProtExec

	ProtNone Prot = 0
	ProtAll       = ProtRead | ProtWrite | ProtExec
)

func (p Prot) String() string {
	var b strings.Builder
	for _, f := range []struct {
		bit Prot
		c   byte
	}{{ProtRead, 'r'}, {ProtWrite, 'w'}, {ProtExec, 'x'}} {
		if p&f.bit != 0 {
			b.WriteByte(f.c)
		} else {
			b.WriteByte('-')
		}
	}
	return b.String()
}

// ParseProt reads a linker-script style access string such as "rx" or
// "xrw". Core accesses to flash never write, whatever the string says.
func ParseProt(access string) Prot {
	var p Prot
	for _, c := range strings.ToLower(access) {
		switch c {
		case 'r':
			p |= ProtRead
		case 'w':
			p |= ProtWrite
		case 'x':
			p |= ProtExec
		}
	}
	return p
}

// Region is one contiguous mapped range of the address space.
type Region struct {
	Name       string
	Start, End mmio.Addr
	Prot       Prot
}

func (r Region) Contains(addr mmio.Addr) bool {
	return addr >= r.Start && addr < r.End
}

func (r Region) String() string {
	return fmt.Sprintf("%-12s %#08x-%#08x %s", r.Name, uint32(r.Start), uint32(r.End), r.Prot)
}

// Peripheral windows.
const (
	peripheralStart mmio.Addr = 0x4000_0000
	peripheralEnd   mmio.Addr = 0x6000_0000
	systemEnd       mmio.Addr = 0xE010_0000
)

// memoryMap returns the regions of a target: its memories followed by the
// peripheral space and the private peripheral bus.
func memoryMap(t targets.TargetInfo) ([]Region, targets.Memory, error) {
	flash, err := t.Region("FLASH")
	if err != nil {
		return nil, targets.Memory{}, fmt.Errorf("%w: %v", ErrNoFlash, err)
	}
	var regions []Region
	for _, m := range t.Memory {
		p := ParseProt(m.Access)
		if m.Origin == flash.Origin {
			p &^= ProtWrite
		}
		regions = append(regions, Region{Name: m.Name, Start: m.Origin, End: m.End(), Prot: p})
	}
	regions = append(regions,
		Region{Name: "PERIPHERALS", Start: peripheralStart, End: peripheralEnd, Prot: ProtRead | ProtWrite},
		Region{Name: "SYSTEM", Start: cortexm.PrivatePeripheralBase, End: systemEnd, Prot: ProtRead | ProtWrite},
	)
	return regions, flash, nil
}
