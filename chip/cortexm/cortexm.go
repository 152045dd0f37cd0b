// Package cortexm describes the ARMv7-M core peripherals of a Cortex-M4:
// system control block, NVIC, SysTick and the debug and trace blocks.
package cortexm

import "omibyte.io/m4boot/mmio"

// System control space.
const (
	ACTLR mmio.Addr = 0xE000_E008
	CPUID mmio.Addr = 0xE000_ED00
	ICSR  mmio.Addr = 0xE000_ED04
	VTOR  mmio.Addr = 0xE000_ED08
	AIRCR mmio.Addr = 0xE000_ED0C
	SCR   mmio.Addr = 0xE000_ED10
	CCR   mmio.Addr = 0xE000_ED14
	SHPR1 mmio.Addr = 0xE000_ED18
	SHPR2 mmio.Addr = 0xE000_ED1C
	SHPR3 mmio.Addr = 0xE000_ED20
	SHCSR mmio.Addr = 0xE000_ED24
	CFSR  mmio.Addr = 0xE000_ED28
	HFSR  mmio.Addr = 0xE000_ED2C
	DFSR  mmio.Addr = 0xE000_ED30
	MMFAR mmio.Addr = 0xE000_ED34
	BFAR  mmio.Addr = 0xE000_ED38
	AFSR  mmio.Addr = 0xE000_ED3C
	CPACR mmio.Addr = 0xE000_ED88
	STIR  mmio.Addr = 0xE000_EF00
)

// Feature registers.
const (
	ID_PFR0  mmio.Addr = 0xE000_ED40
	ID_PFR1  mmio.Addr = 0xE000_ED44
	ID_DFR0  mmio.Addr = 0xE000_ED48
	ID_AFR0  mmio.Addr = 0xE000_ED4C
	ID_MMFR0 mmio.Addr = 0xE000_ED50
	ID_MMFR1 mmio.Addr = 0xE000_ED54
	ID_MMFR2 mmio.Addr = 0xE000_ED58
	ID_MMFR3 mmio.Addr = 0xE000_ED5C
	ID_ISAR0 mmio.Addr = 0xE000_ED60
	ID_ISAR1 mmio.Addr = 0xE000_ED64
	ID_ISAR2 mmio.Addr = 0xE000_ED68
	ID_ISAR3 mmio.Addr = 0xE000_ED6C
	ID_ISAR4 mmio.Addr = 0xE000_ED70
)

// SysTick.
const (
	SYST_CSR   mmio.Addr = 0xE000_E010
	SYST_RVR   mmio.Addr = 0xE000_E014
	SYST_CVR   mmio.Addr = 0xE000_E018
	SYST_CALIB mmio.Addr = 0xE000_E01C
)

// NVIC register banks. Each bank is an array of words indexed by irq/32,
// except IPR which packs four 8-bit priorities per word.
const (
	NVIC_ICTR mmio.Addr = 0xE000_E004
	NVIC_ISER mmio.Addr = 0xE000_E100
	NVIC_ICER mmio.Addr = 0xE000_E180
	NVIC_ISPR mmio.Addr = 0xE000_E200
	NVIC_ICPR mmio.Addr = 0xE000_E280
	NVIC_IABR mmio.Addr = 0xE000_E300
	NVIC_IPR  mmio.Addr = 0xE000_E400
)

// Memory protection unit.
const (
	MPU_TYPE mmio.Addr = 0xE000_ED90
	MPU_CTRL mmio.Addr = 0xE000_ED94
	MPU_RNR  mmio.Addr = 0xE000_ED98
	MPU_RBAR mmio.Addr = 0xE000_ED9C
	MPU_RASR mmio.Addr = 0xE000_EDA0
)

// Floating point extension.
const (
	FPCCR  mmio.Addr = 0xE000_EF34
	FPCAR  mmio.Addr = 0xE000_EF38
	FPDSCR mmio.Addr = 0xE000_EF3C
	MVFR0  mmio.Addr = 0xE000_EF40
	MVFR1  mmio.Addr = 0xE000_EF44
)

// Debug.
const (
	DHCSR mmio.Addr = 0xE000_EDF0
	DCRSR mmio.Addr = 0xE000_EDF4
	DCRDR mmio.Addr = 0xE000_EDF8
	DEMCR mmio.Addr = 0xE000_EDFC
)

// Data watchpoint and trace.
const (
	DWT_CTRL     mmio.Addr = 0xE000_1000
	DWT_CYCCNT   mmio.Addr = 0xE000_1004
	DWT_CPICNT   mmio.Addr = 0xE000_1008
	DWT_EXCCNT   mmio.Addr = 0xE000_100C
	DWT_SLEEPCNT mmio.Addr = 0xE000_1010
	DWT_LSUCNT   mmio.Addr = 0xE000_1014
	DWT_FOLDCNT  mmio.Addr = 0xE000_1018
	DWT_PCSR     mmio.Addr = 0xE000_101C
	DWT_COMP0    mmio.Addr = 0xE000_1020
)

// Instrumentation trace macrocell and trace port interface unit.
const (
	ITM_STIM    mmio.Addr = 0xE000_0000
	ITM_TER     mmio.Addr = 0xE000_0E00
	ITM_TPR     mmio.Addr = 0xE000_0E40
	ITM_TCR     mmio.Addr = 0xE000_0E80
	TPIU_SSPSR  mmio.Addr = 0xE004_0000
	TPIU_CSPSR  mmio.Addr = 0xE004_0004
	TPIU_ACPR   mmio.Addr = 0xE004_0010
	TPIU_SPPR   mmio.Addr = 0xE004_00F0
	TPIU_FFSR   mmio.Addr = 0xE004_0300
	TPIU_FFCR   mmio.Addr = 0xE004_0304
	TPIU_ITCTRL mmio.Addr = 0xE004_0F00
)

// PrivatePeripheralBase is the start of the private peripheral bus.
const PrivatePeripheralBase mmio.Addr = 0xE000_0000
