package initseq

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrder(t *testing.T) {
	var ran []string
	step := func(name string) func() error {
		return func() error {
			ran = append(ran, name)
			return nil
		}
	}

	s := New()
	require.NoError(t, s.Add("systick", step("systick"), "pll"))
	require.NoError(t, s.Add("pll", step("pll"), "flash", "power"))
	require.NoError(t, s.Add("power", step("power")))
	require.NoError(t, s.Add("flash", step("flash")))
	require.NoError(t, s.Add("led", step("led")))

	order, err := s.Order()
	require.NoError(t, err)
	assert.Equal(t, []string{"power", "flash", "pll", "systick", "led"}, order)

	require.NoError(t, s.Run())
	assert.Equal(t, order, ran)

	// Completed steps never run twice.
	require.NoError(t, s.Run())
	assert.Len(t, ran, 5)
	assert.True(t, s.Done("pll"))
	assert.False(t, s.Done("missing"))
}

func TestErrors(t *testing.T) {
	s := New()
	require.NoError(t, s.Add("a", nil))
	assert.ErrorIs(t, s.Add("a", nil), ErrDuplicate)

	s = New()
	err := s.Add("a", nil, "b", "a")
	assert.ErrorIs(t, err, ErrCycle)
	assert.EqualError(t, err, "steps depend on each other: a")
	assert.False(t, s.Done("a"))
	_, err = s.Order()
	assert.NoError(t, err)

	s = New()
	require.NoError(t, s.Add("a", nil, "ghost"))
	_, err = s.Order()
	assert.ErrorIs(t, err, ErrUnknown)

	s = New()
	require.NoError(t, s.Add("a", nil, "b"))
	require.NoError(t, s.Add("b", nil, "a"))
	require.NoError(t, s.Add("c", nil))
	err = s.Run()
	assert.ErrorIs(t, err, ErrCycle)
	assert.Contains(t, err.Error(), "a, b")
	assert.False(t, s.Done("c"))
}

func TestRetryAfterFailure(t *testing.T) {
	flaky := errors.New("overdrive not ready")
	fail := true
	var ran []string

	s := New()
	require.NoError(t, s.Add("power", func() error {
		ran = append(ran, "power")
		if fail {
			return flaky
		}
		return nil
	}))
	require.NoError(t, s.Add("pll", func() error {
		ran = append(ran, "pll")
		return nil
	}, "power"))

	err := s.Run()
	assert.ErrorIs(t, err, flaky)
	assert.EqualError(t, err, "init power: overdrive not ready")
	assert.False(t, s.Done("pll"))

	fail = false
	require.NoError(t, s.Run())
	assert.Equal(t, []string{"power", "power", "pll"}, ran)
}
