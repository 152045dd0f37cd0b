// Package stm32f429 holds the memory map of the STM32F429ZI: peripheral base
// addresses, the register offsets and fields used by this module, and the
// external interrupt numbers.
package stm32f429

import "omibyte.io/m4boot/mmio"

// Memories.
const (
	FlashBase mmio.Addr = 0x0800_0000
	FlashSize           = 2048 << 10
	SRAMBase  mmio.Addr = 0x2000_0000
	SRAMSize            = 192 << 10
	CCMBase   mmio.Addr = 0x1000_0000
	CCMSize             = 64 << 10
	// Flash is aliased at 0 when booting from main flash.
	BootAlias mmio.Addr = 0x0000_0000
)

// AHB1.
const (
	GPIOA   mmio.Addr = 0x4002_0000
	GPIOB   mmio.Addr = 0x4002_0400
	GPIOC   mmio.Addr = 0x4002_0800
	GPIOD   mmio.Addr = 0x4002_0C00
	GPIOE   mmio.Addr = 0x4002_1000
	GPIOF   mmio.Addr = 0x4002_1400
	GPIOG   mmio.Addr = 0x4002_1800
	GPIOH   mmio.Addr = 0x4002_1C00
	GPIOI   mmio.Addr = 0x4002_2000
	GPIOJ   mmio.Addr = 0x4002_2400
	GPIOK   mmio.Addr = 0x4002_2800
	CRC     mmio.Addr = 0x4002_3000
	RCC     mmio.Addr = 0x4002_3800
	FLASH   mmio.Addr = 0x4002_3C00
	BKPSRAM mmio.Addr = 0x4002_4000
	DMA1    mmio.Addr = 0x4002_6000
	DMA2    mmio.Addr = 0x4002_6400
	ETH     mmio.Addr = 0x4002_8000
	DMA2D   mmio.Addr = 0x4002_B000
	OTG_HS  mmio.Addr = 0x4004_0000
)

// GPIOStride is the distance between two GPIO port blocks.
const GPIOStride = 0x400

// AHB2.
const (
	OTG_FS mmio.Addr = 0x5000_0000
	DCMI   mmio.Addr = 0x5005_0000
	RNG    mmio.Addr = 0x5006_0800
)

// APB2.
const (
	TIM1    mmio.Addr = 0x4001_0000
	TIM8    mmio.Addr = 0x4001_0400
	USART1  mmio.Addr = 0x4001_1000
	USART6  mmio.Addr = 0x4001_1400
	ADC     mmio.Addr = 0x4001_2000
	SDIO    mmio.Addr = 0x4001_2C00
	SPI1    mmio.Addr = 0x4001_3000
	SPI4    mmio.Addr = 0x4001_3400
	SYSCFG  mmio.Addr = 0x4001_3800
	EXTI    mmio.Addr = 0x4001_3C00
	TIM9    mmio.Addr = 0x4001_4000
	TIM10   mmio.Addr = 0x4001_4400
	TIM11   mmio.Addr = 0x4001_4800
	SPI5    mmio.Addr = 0x4001_5000
	SPI6    mmio.Addr = 0x4001_5400
	SAI1    mmio.Addr = 0x4001_5800
	LCD_TFT mmio.Addr = 0x4001_6800
)

// APB1.
const (
	TIM2    mmio.Addr = 0x4000_0000
	TIM3    mmio.Addr = 0x4000_0400
	TIM4    mmio.Addr = 0x4000_0800
	TIM5    mmio.Addr = 0x4000_0C00
	TIM6    mmio.Addr = 0x4000_1000
	TIM7    mmio.Addr = 0x4000_1400
	TIM12   mmio.Addr = 0x4000_1800
	TIM13   mmio.Addr = 0x4000_1C00
	TIM14   mmio.Addr = 0x4000_2000
	RTC_BKP mmio.Addr = 0x4000_2800
	WWDG    mmio.Addr = 0x4000_2C00
	IWDG    mmio.Addr = 0x4000_3000
	I2S2EXT mmio.Addr = 0x4000_3400
	SPI2    mmio.Addr = 0x4000_3800
	SPI3    mmio.Addr = 0x4000_3C00
	I2S3EXT mmio.Addr = 0x4000_4000
	USART2  mmio.Addr = 0x4000_4400
	USART3  mmio.Addr = 0x4000_4800
	UART4   mmio.Addr = 0x4000_4C00
	UART5   mmio.Addr = 0x4000_5000
	I2C1    mmio.Addr = 0x4000_5400
	I2C2    mmio.Addr = 0x4000_5800
	I2C3    mmio.Addr = 0x4000_5C00
	CAN1    mmio.Addr = 0x4000_6400
	CAN2    mmio.Addr = 0x4000_6800
	PWR     mmio.Addr = 0x4000_7000
	DAC     mmio.Addr = 0x4000_7400
	UART7   mmio.Addr = 0x4000_7800
	UART8   mmio.Addr = 0x4000_7C00
)

// FMC banks.
const (
	FMC_BANK1 mmio.Addr = 0x6000_0000
	FMC_BANK2 mmio.Addr = 0x7000_0000
	FMC_BANK3 mmio.Addr = 0x8000_0000
	FMC_BANK4 mmio.Addr = 0x9000_0000
	FMC_CTRL  mmio.Addr = 0xA000_0000
	FMC_BANK5 mmio.Addr = 0xC000_0000
	FMC_BANK6 mmio.Addr = 0xD000_0000
)

// Port returns the base address of GPIO port p, where 'A' is port 0.
func Port(p byte) (mmio.Addr, bool) {
	if p < 'A' || p > 'K' {
		return 0, false
	}
	return GPIOA + mmio.Addr(p-'A')*GPIOStride, true
}
