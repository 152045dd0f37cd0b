//go:build mmio_unchecked

package mmio

const Checked = false
