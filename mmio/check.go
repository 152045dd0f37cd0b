//go:build !mmio_unchecked

package mmio

// Checked reports whether contract assertions are compiled in. Building
// with the mmio_unchecked tag removes them for code size.
const Checked = true
