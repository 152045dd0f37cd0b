package script

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"omibyte.io/m4boot/chip/cortexm"
	"omibyte.io/m4boot/chip/stm32f429"
	"omibyte.io/m4boot/mmio"
	"omibyte.io/m4boot/sim"
	"omibyte.io/m4boot/targets"
	"omibyte.io/m4boot/vector"
)

const (
	flag  = stm32f429.SRAMBase
	count = stm32f429.SRAMBase + 4
)

// spinner polls flag until it reads non-zero. EXTI0 bumps count.
func spinner(t *testing.T, forever bool) *sim.Machine {
	t.Helper()
	info, err := targets.All().FindByChip("stm32f429zi")
	require.NoError(t, err)
	m, err := sim.New(sim.Config{Target: info})
	require.NoError(t, err)
	p, err := info.Place(targets.Image{Text: 0x800})
	require.NoError(t, err)

	tbl, err := vector.Build(m,
		vector.Exception(cortexm.Reset, func() {
			cortexm.NewNVIC(m).Enable(stm32f429.IRQ_EXTI0.Interrupt())
			for forever || mmio.Reg(m, flag).Get() == 0 {
				mmio.Reg(m, flag).Get()
			}
		}),
		vector.IRQ(stm32f429.IRQ_EXTI0, func() {
			r := mmio.Reg(m, count)
			r.Set(r.Get() + 1)
		}),
	)
	require.NoError(t, err)
	bin, err := sim.Link(p, tbl, nil)
	require.NoError(t, err)
	require.NoError(t, m.Load(bin))
	return m
}

func runScript(t *testing.T, m *sim.Machine, src string) (Report, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return Run(ctx, m, "test.star", src)
}

func TestScenario(t *testing.T) {
	m := spinner(t, true)
	rep, err := runScript(t, m, `
at(10, raise_irq, "EXTI0")
at(20, raise_irq, "EXTI0")
stop_at(100)

def check():
    expect(peek(SRAM + 4) == 2, "two interrupts")
    expect(accesses() >= 100)
    expect(halted() == None, "still running")
`)
	require.NoError(t, err)
	assert.Empty(t, rep.Failures)
	assert.NoError(t, rep.Err())
	assert.False(t, rep.Result.Halted)
	assert.Equal(t, uint32(2), m.Peek(count))
}

func TestPokeEndsProgram(t *testing.T) {
	m := spinner(t, false)
	rep, err := runScript(t, m, `
at(50, poke, SRAM, 1)

def check():
    expect(halted() != None, "entry returned")
    expect(peek(SRAM) == 1)
`)
	require.NoError(t, err)
	assert.Empty(t, rep.Failures)
	assert.True(t, rep.Result.Halted)
}

func TestFailures(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []string
	}{
		{
			name: "expect",
			src: `
stop_at(10)
def check():
    expect(False, "nope")
    expect(0)
`,
			want: []string{"nope", "expectation failed"},
		},
		{
			name: "action error",
			src: `
at(5, raise_irq, "NOPE")
`,
			want: []string{`raise_irq: unknown interrupt "NOPE"`},
		},
		{
			name: "bad pin",
			src: `
at(5, press, "Z", 0)
`,
			want: []string{`press: no pin PZ0`},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rep, err := runScript(t, spinner(t, true), tt.src)
			require.NoError(t, err)
			assert.Equal(t, tt.want, rep.Failures)
			assert.ErrorIs(t, rep.Err(), ErrFailed)
		})
	}
}

func TestStopBeforeRun(t *testing.T) {
	rep, err := runScript(t, spinner(t, true), "stop()\n")
	require.NoError(t, err)
	assert.Empty(t, rep.Failures)
	assert.False(t, rep.Result.Halted)
}

func TestLoadErrors(t *testing.T) {
	for _, src := range []string{
		"at(1\n",
		"undefined_builtin()\n",
		`at(1, "not callable")` + "\n",
		"poke(SRAM)\n",
	} {
		_, err := runScript(t, spinner(t, true), src)
		assert.Error(t, err, src)
	}
}

func TestTimeout(t *testing.T) {
	m := spinner(t, true)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := Run(ctx, m, "test.star", "")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
