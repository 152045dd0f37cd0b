// Package targets describes the chips the tools know about: memory map,
// vector table length and default stack size.
package targets

import (
	_ "embed"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"

	"omibyte.io/m4boot/mmio"
)

//go:embed targets.yaml
var rawTargets []byte

var targets Targets

var (
	ErrSeriesNotFound = errors.New("series not found")
	ErrChipNotFound   = errors.New("chip not found")
	ErrNoMemory       = errors.New("memory region not found")
	ErrBadSize        = errors.New("invalid size")
)

func All() Targets {
	return targets
}

type Targets []TargetInfo

type TargetInfo struct {
	Series    string   `yaml:"series"`
	Chips     []string `yaml:"chips"`
	Cpu       string   `yaml:"cpu"`
	Fpu       string   `yaml:"fpu"`
	Vectors   int      `yaml:"vectors"`
	StackSize Size     `yaml:"stackSize"`
	Memory    []Memory `yaml:"memory"`
}

type Memory struct {
	Name   string    `yaml:"name"`
	Access string    `yaml:"access"`
	Origin mmio.Addr `yaml:"origin"`
	Length Size      `yaml:"length"`
}

func (m Memory) End() mmio.Addr {
	return m.Origin.Add(uint32(m.Length))
}

func (m Memory) Contains(addr mmio.Addr) bool {
	return addr >= m.Origin && addr < m.End()
}

// Size is a byte count written either as a plain integer or with a K or M
// suffix, the way linker scripts spell lengths.
type Size uint32

func (s *Size) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("%w: line %d: expected a scalar", ErrBadSize, value.Line)
	}
	n, err := ParseSize(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*s = n
	return nil
}

func ParseSize(text string) (Size, error) {
	text = strings.TrimSpace(text)
	mult := uint64(1)
	switch {
	case strings.HasSuffix(text, "K"):
		mult, text = 1<<10, strings.TrimSuffix(text, "K")
	case strings.HasSuffix(text, "M"):
		mult, text = 1<<20, strings.TrimSuffix(text, "M")
	}
	n, err := strconv.ParseUint(text, 0, 32)
	if err != nil || n*mult > 1<<32-1 {
		return 0, fmt.Errorf("%w: %q", ErrBadSize, text)
	}
	return Size(n * mult), nil
}

// String renders the size the way a linker script would.
func (s Size) String() string {
	switch {
	case s != 0 && s%(1<<20) == 0:
		return fmt.Sprintf("%dM", s>>20)
	case s != 0 && s%(1<<10) == 0:
		return fmt.Sprintf("%dK", s>>10)
	}
	return strconv.FormatUint(uint64(s), 10)
}

func (t Targets) FindBySeries(name string) (TargetInfo, error) {
	for _, target := range t {
		if target.Series == strings.ToLower(name) {
			return target, nil
		}
	}
	return TargetInfo{}, fmt.Errorf("%w: %s", ErrSeriesNotFound, name)
}

func (t Targets) FindByChip(name string) (TargetInfo, error) {
	for _, target := range t {
		if slices.Contains(target.Chips, strings.ToLower(name)) {
			return target, nil
		}
	}
	return TargetInfo{}, fmt.Errorf("%w: %s", ErrChipNotFound, name)
}

// Region looks up a memory by name, e.g. "FLASH".
func (t TargetInfo) Region(name string) (Memory, error) {
	i := slices.IndexFunc(t.Memory, func(m Memory) bool {
		return strings.EqualFold(m.Name, name)
	})
	if i < 0 {
		return Memory{}, fmt.Errorf("%w: %s", ErrNoMemory, name)
	}
	return t.Memory[i], nil
}

// StackTop is the initial stack pointer: the end of RAM.
func (t TargetInfo) StackTop() (mmio.Addr, error) {
	ram, err := t.Region("RAM")
	if err != nil {
		return 0, err
	}
	return ram.End(), nil
}

func parse(raw []byte) (Targets, error) {
	var t struct {
		Elements []TargetInfo `yaml:"targets"`
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return nil, err
	}
	return t.Elements, nil
}

func init() {
	var err error
	if targets, err = parse(rawTargets); err != nil {
		panic(err)
	}
}
