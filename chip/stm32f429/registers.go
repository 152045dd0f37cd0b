package stm32f429

import "omibyte.io/m4boot/mmio"

// RCC register offsets.
const (
	RCC_CR         = 0x00
	RCC_PLLCFGR    = 0x04
	RCC_CFGR       = 0x08
	RCC_CIR        = 0x0C
	RCC_AHB1RSTR   = 0x10
	RCC_AHB2RSTR   = 0x14
	RCC_AHB3RSTR   = 0x18
	RCC_APB1RSTR   = 0x20
	RCC_APB2RSTR   = 0x24
	RCC_AHB1ENR    = 0x30
	RCC_AHB2ENR    = 0x34
	RCC_AHB3ENR    = 0x38
	RCC_APB1ENR    = 0x40
	RCC_APB2ENR    = 0x44
	RCC_AHB1LPENR  = 0x50
	RCC_AHB2LPENR  = 0x54
	RCC_AHB3LPENR  = 0x58
	RCC_APB1LPENR  = 0x60
	RCC_APB2LPENR  = 0x64
	RCC_BDCR       = 0x70
	RCC_CSR        = 0x74
	RCC_SSCGR      = 0x80
	RCC_PLLI2SCFGR = 0x84
)

var (
	RCC_CR_HSION  = mmio.Bit(0)
	RCC_CR_HSIRDY = mmio.Bit(1)
	RCC_CR_HSEON  = mmio.Bit(16)
	RCC_CR_HSERDY = mmio.Bit(17)
	RCC_CR_HSEBYP = mmio.Bit(18)
	RCC_CR_PLLON  = mmio.Bit(24)
	RCC_CR_PLLRDY = mmio.Bit(25)

	RCC_PLLCFGR_PLLM   = mmio.MakeField(0, 6)
	RCC_PLLCFGR_PLLN   = mmio.MakeField(6, 9)
	RCC_PLLCFGR_PLLP   = mmio.MakeField(16, 2)
	RCC_PLLCFGR_PLLSRC = mmio.Bit(22)
	RCC_PLLCFGR_PLLQ   = mmio.MakeField(24, 4)

	RCC_CFGR_SW      = mmio.MakeField(0, 2)
	RCC_CFGR_SWS     = mmio.MakeField(2, 2)
	RCC_CFGR_HPRE    = mmio.MakeField(4, 4)
	RCC_CFGR_PPRE1   = mmio.MakeField(10, 3)
	RCC_CFGR_PPRE2   = mmio.MakeField(13, 3)
	RCC_CFGR_MCO1    = mmio.MakeField(21, 2)
	RCC_CFGR_MCO1PRE = mmio.MakeField(24, 3)

	RCC_APB1ENR_PWREN    = mmio.Bit(28)
	RCC_APB2ENR_SYSCFGEN = mmio.Bit(14)
)

// PWR register offsets.
const (
	PWR_CR  = 0x00
	PWR_CSR = 0x04
)

var (
	PWR_CR_VOS      = mmio.MakeField(14, 2)
	PWR_CR_ODEN     = mmio.Bit(16)
	PWR_CR_ODSWEN   = mmio.Bit(17)
	PWR_CSR_VOSRDY  = mmio.Bit(14)
	PWR_CSR_ODRDY   = mmio.Bit(16)
	PWR_CSR_ODSWRDY = mmio.Bit(17)
)

// FLASH register offsets.
const (
	FLASH_ACR     = 0x00
	FLASH_KEYR    = 0x04
	FLASH_OPTKEYR = 0x08
	FLASH_SR      = 0x0C
	FLASH_CR      = 0x10
	FLASH_OPTCR   = 0x14
	FLASH_OPTCR1  = 0x18
)

var (
	FLASH_ACR_LATENCY = mmio.MakeField(0, 4)
	FLASH_ACR_PRFTEN  = mmio.Bit(8)
	FLASH_ACR_ICEN    = mmio.Bit(9)
	FLASH_ACR_DCEN    = mmio.Bit(10)
)

// GPIO register offsets.
const (
	GPIO_MODER   = 0x00
	GPIO_OTYPER  = 0x04
	GPIO_OSPEEDR = 0x08
	GPIO_PUPDR   = 0x0C
	GPIO_IDR     = 0x10
	GPIO_ODR     = 0x14
	GPIO_BSRR    = 0x18
	GPIO_LCKR    = 0x1C
	GPIO_AFRL    = 0x20
	GPIO_AFRH    = 0x24
)

// EXTI register offsets.
const (
	EXTI_IMR   = 0x00
	EXTI_EMR   = 0x04
	EXTI_RTSR  = 0x08
	EXTI_FTSR  = 0x0C
	EXTI_SWIER = 0x10
	EXTI_PR    = 0x14
)

// SYSCFG register offsets. EXTICR1 to EXTICR4 each select the port of four
// EXTI lines, four bits per line.
const (
	SYSCFG_MEMRMP  = 0x00
	SYSCFG_PMC     = 0x04
	SYSCFG_EXTICR1 = 0x08
)
