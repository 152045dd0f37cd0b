package generator

import (
	"bytes"
	"go/ast"
	"go/parser"
	"go/printer"
	"go/token"
	"os"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"omibyte.io/m4boot/cmd/svd-gen/svd"
)

func loadDevice(t *testing.T) svd.DeviceElement {
	t.Helper()
	f, err := os.Open("testdata/mini.svd")
	require.NoError(t, err)
	defer f.Close()
	device, err := svd.Decode(f)
	require.NoError(t, err)
	return device
}

// decls maps every top-level const and var name to its value expression.
// Array literals are left out.
func decls(t *testing.T, src []byte) map[string]string {
	t.Helper()
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "out.go", src, parser.ParseComments)
	require.NoError(t, err, string(src))
	out := map[string]string{}
	for _, d := range file.Decls {
		gd, ok := d.(*ast.GenDecl)
		if !ok {
			continue
		}
		for _, spec := range gd.Specs {
			vs, ok := spec.(*ast.ValueSpec)
			if !ok {
				continue
			}
			for i, name := range vs.Names {
				if lit, ok := vs.Values[i].(*ast.CompositeLit); ok {
					if _, ok := lit.Type.(*ast.ArrayType); ok {
						continue
					}
				}
				var b bytes.Buffer
				require.NoError(t, printer.Fprint(&b, fset, vs.Values[i]))
				out[name.Name] = b.String()
			}
		}
	}
	return out
}

func TestDecode(t *testing.T) {
	device := loadDevice(t)
	assert.Equal(t, "STM32F429", device.Name)
	assert.True(t, device.CPU.FPUPresent)
	assert.Equal(t, svd.Integer(4), device.CPU.NVICPriorityBits)
	assert.Equal(t, svd.Integer(32), device.RegisterSize)
	require.Len(t, device.Peripherals.Elements, 5)
	assert.Equal(t, "GPIOA", device.Peripherals.Elements[1].DerivedFrom)

	i, ok := device.Peripherals.Find("EXTI")
	assert.True(t, ok)
	assert.Equal(t, 3, i)
	_, ok = device.Peripherals.Find("")
	assert.False(t, ok)
}

func TestGenerate(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New(loadDevice(t), "stm32f429", "mini.svd").Generate(&buf))
	src := buf.Bytes()

	assert.True(t, strings.HasPrefix(string(src), "// Code generated by svd-gen from mini.svd. DO NOT EDIT.\n\npackage stm32f429\n"))
	assert.Contains(t, string(src), `import "omibyte.io/m4boot/mmio"`)
	assert.Contains(t, string(src), "// RCC global interrupt\n")

	want := map[string]string{
		"EXTI":  "0x40013C00",
		"TIM9":  "0x40014000",
		"GPIOA": "0x40020000",
		"GPIOB": "0x40020400",
		"RCC":   "0x40023800",

		"IRQ_RCC":           "5",
		"IRQ_EXTI0":         "6",
		"IRQ_TIM1_BRK_TIM9": "24",
		"NumIRQ":            "25",

		"GPIO_MODER":         "0x00",
		"GPIO_BSRR":          "0x18",
		"GPIO_MODER_MODER15": "mmio.Field{Pos: 30, Width: 2}",

		"RCC_CR":            "0x00",
		"RCC_PLLCFGR":       "0x04",
		"RCC_CR_HSION":      "mmio.Field{Pos: 0, Width: 1}",
		"RCC_CR_PLLRDY":     "mmio.Field{Pos: 25, Width: 1}",
		"RCC_PLLCFGR_PLLM0": "mmio.Field{Pos: 0, Width: 6}",
	}
	if diff := cmp.Diff(want, decls(t, src)); diff != "" {
		t.Errorf("declarations mismatch (-want +got):\n%s", diff)
	}

	for _, name := range []string{"RCC", "EXTI0", "TIM1_BRK_TIM9"} {
		assert.Regexp(t, `IRQ_`+name+`:\s+"`+name+`",`, string(src))
	}

	// Bases are emitted by address.
	assert.Less(t, bytes.Index(src, []byte("EXTI ")), bytes.Index(src, []byte("RCC ")))
	assert.Less(t, bytes.Index(src, []byte("RCC_CR ")), bytes.Index(src, []byte("RCC_PLLCFGR ")))
}

func TestGenerateErrors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(d *svd.DeviceElement)
		want   error
	}{
		{
			name:   "no peripherals",
			modify: func(d *svd.DeviceElement) { d.Peripherals.Elements = nil },
			want:   ErrNoPeripherals,
		},
		{
			name: "irq conflict",
			modify: func(d *svd.DeviceElement) {
				d.Peripherals.Elements[4].Interrupts[0].Name = "TIM9"
			},
			want: ErrIRQConflict,
		},
		{
			name: "field too wide",
			modify: func(d *svd.DeviceElement) {
				d.Peripherals.Elements[0].Registers.RegisterElements[0].Fields.Elements[0].BitWidth = 40
			},
			want: ErrBadField,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			device := loadDevice(t)
			tt.modify(&device)
			err := New(device, "", "mini.svd").Generate(&bytes.Buffer{})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestIdent(t *testing.T) {
	tests := []struct{ in, want string }{
		{"MODER", "MODER"},
		{"DMA2D", "DMA2D"},
		{"OTG_HS_EP1_OUT", "OTG_HS_EP1_OUT"},
		{"AFR[%s]", "AFR"},
		{"fsmc-bank", "FSMC_BANK"},
		{"1WIRE", "X1WIRE"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ident(tt.in), tt.in)
	}
}

func TestParseInteger(t *testing.T) {
	tests := []struct {
		in      string
		want    svd.Integer
		wantErr bool
	}{
		{in: "32", want: 32},
		{in: " 0x40023800 ", want: 0x40023800},
		{in: "0XFF", want: 0xFF},
		{in: "#101", want: 5},
		{in: "0xZZ", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := svd.ParseInteger(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
