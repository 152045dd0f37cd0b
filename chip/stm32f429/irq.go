package stm32f429

import (
	"fmt"

	"golang.org/x/exp/slices"

	"omibyte.io/m4boot/chip/cortexm"
)

// IRQ is an external interrupt line of the STM32F429. Line n occupies vector
// table slot 16+n.
type IRQ uint8

const (
	IRQ_WWDG               IRQ = 0
	IRQ_PVD                IRQ = 1
	IRQ_TAMP_STAMP         IRQ = 2
	IRQ_RTC_WKUP           IRQ = 3
	IRQ_FLASH              IRQ = 4
	IRQ_RCC                IRQ = 5
	IRQ_EXTI0              IRQ = 6
	IRQ_EXTI1              IRQ = 7
	IRQ_EXTI2              IRQ = 8
	IRQ_EXTI3              IRQ = 9
	IRQ_EXTI4              IRQ = 10
	IRQ_DMA1_Stream0       IRQ = 11
	IRQ_DMA1_Stream1       IRQ = 12
	IRQ_DMA1_Stream2       IRQ = 13
	IRQ_DMA1_Stream3       IRQ = 14
	IRQ_DMA1_Stream4       IRQ = 15
	IRQ_DMA1_Stream5       IRQ = 16
	IRQ_DMA1_Stream6       IRQ = 17
	IRQ_ADC                IRQ = 18
	IRQ_CAN1_TX            IRQ = 19
	IRQ_CAN1_RX0           IRQ = 20
	IRQ_CAN1_RX1           IRQ = 21
	IRQ_CAN1_SCE           IRQ = 22
	IRQ_EXTI9_5            IRQ = 23
	IRQ_TIM1_BRK_TIM9      IRQ = 24
	IRQ_TIM1_UP_TIM10      IRQ = 25
	IRQ_TIM1_TRG_COM_TIM11 IRQ = 26
	IRQ_TIM1_CC            IRQ = 27
	IRQ_TIM2               IRQ = 28
	IRQ_TIM3               IRQ = 29
	IRQ_TIM4               IRQ = 30
	IRQ_I2C1_EV            IRQ = 31
	IRQ_I2C1_ER            IRQ = 32
	IRQ_I2C2_EV            IRQ = 33
	IRQ_I2C2_ER            IRQ = 34
	IRQ_SPI1               IRQ = 35
	IRQ_SPI2               IRQ = 36
	IRQ_USART1             IRQ = 37
	IRQ_USART2             IRQ = 38
	IRQ_USART3             IRQ = 39
	IRQ_EXTI15_10          IRQ = 40
	IRQ_RTC_Alarm          IRQ = 41
	IRQ_OTG_FS_WKUP        IRQ = 42
	IRQ_TIM8_BRK_TIM12     IRQ = 43
	IRQ_TIM8_UP_TIM13      IRQ = 44
	IRQ_TIM8_TRG_COM_TIM14 IRQ = 45
	IRQ_TIM8_CC            IRQ = 46
	IRQ_DMA1_Stream7       IRQ = 47
	IRQ_FSMC               IRQ = 48
	IRQ_SDIO               IRQ = 49
	IRQ_TIM5               IRQ = 50
	IRQ_SPI3               IRQ = 51
	IRQ_UART4              IRQ = 52
	IRQ_UART5              IRQ = 53
	IRQ_TIM6_DAC           IRQ = 54
	IRQ_TIM7               IRQ = 55
	IRQ_DMA2_Stream0       IRQ = 56
	IRQ_DMA2_Stream1       IRQ = 57
	IRQ_DMA2_Stream2       IRQ = 58
	IRQ_DMA2_Stream3       IRQ = 59
	IRQ_DMA2_Stream4       IRQ = 60
	IRQ_ETH                IRQ = 61
	IRQ_ETH_WKUP           IRQ = 62
	IRQ_CAN2_TX            IRQ = 63
	IRQ_CAN2_RX0           IRQ = 64
	IRQ_CAN2_RX1           IRQ = 65
	IRQ_CAN2_SCE           IRQ = 66
	IRQ_OTG_FS             IRQ = 67
	IRQ_DMA2_Stream5       IRQ = 68
	IRQ_DMA2_Stream6       IRQ = 69
	IRQ_DMA2_Stream7       IRQ = 70
	IRQ_USART6             IRQ = 71
	IRQ_I2C3_EV            IRQ = 72
	IRQ_I2C3_ER            IRQ = 73
	IRQ_OTG_HS_EP1_OUT     IRQ = 74
	IRQ_OTG_HS_EP1_IN      IRQ = 75
	IRQ_OTG_HS_WKUP        IRQ = 76
	IRQ_OTG_HS             IRQ = 77
	IRQ_DCMI               IRQ = 78
	IRQ_CRYP               IRQ = 79
	IRQ_HASH_RNG           IRQ = 80
	IRQ_FPU                IRQ = 81
	IRQ_UART7              IRQ = 82
	IRQ_UART8              IRQ = 83
	IRQ_SPI4               IRQ = 84
	IRQ_SPI5               IRQ = 85
	IRQ_SPI6               IRQ = 86
	IRQ_SAI1               IRQ = 87
	IRQ_LCD_TFT            IRQ = 88
	IRQ_LCD_TFT_Error      IRQ = 89
	IRQ_DMA2D              IRQ = 90
)

// NumIRQ is the number of external interrupt lines wired on the chip.
const NumIRQ = 91

var irqNames = [NumIRQ]string{
	IRQ_WWDG:               "WWDG",
	IRQ_PVD:                "PVD",
	IRQ_TAMP_STAMP:         "TAMP_STAMP",
	IRQ_RTC_WKUP:           "RTC_WKUP",
	IRQ_FLASH:              "FLASH",
	IRQ_RCC:                "RCC",
	IRQ_EXTI0:              "EXTI0",
	IRQ_EXTI1:              "EXTI1",
	IRQ_EXTI2:              "EXTI2",
	IRQ_EXTI3:              "EXTI3",
	IRQ_EXTI4:              "EXTI4",
	IRQ_DMA1_Stream0:       "DMA1_Stream0",
	IRQ_DMA1_Stream1:       "DMA1_Stream1",
	IRQ_DMA1_Stream2:       "DMA1_Stream2",
	IRQ_DMA1_Stream3:       "DMA1_Stream3",
	IRQ_DMA1_Stream4:       "DMA1_Stream4",
	IRQ_DMA1_Stream5:       "DMA1_Stream5",
	IRQ_DMA1_Stream6:       "DMA1_Stream6",
	IRQ_ADC:                "ADC",
	IRQ_CAN1_TX:            "CAN1_TX",
	IRQ_CAN1_RX0:           "CAN1_RX0",
	IRQ_CAN1_RX1:           "CAN1_RX1",
	IRQ_CAN1_SCE:           "CAN1_SCE",
	IRQ_EXTI9_5:            "EXTI9_5",
	IRQ_TIM1_BRK_TIM9:      "TIM1_BRK_TIM9",
	IRQ_TIM1_UP_TIM10:      "TIM1_UP_TIM10",
	IRQ_TIM1_TRG_COM_TIM11: "TIM1_TRG_COM_TIM11",
	IRQ_TIM1_CC:            "TIM1_CC",
	IRQ_TIM2:               "TIM2",
	IRQ_TIM3:               "TIM3",
	IRQ_TIM4:               "TIM4",
	IRQ_I2C1_EV:            "I2C1_EV",
	IRQ_I2C1_ER:            "I2C1_ER",
	IRQ_I2C2_EV:            "I2C2_EV",
	IRQ_I2C2_ER:            "I2C2_ER",
	IRQ_SPI1:               "SPI1",
	IRQ_SPI2:               "SPI2",
	IRQ_USART1:             "USART1",
	IRQ_USART2:             "USART2",
	IRQ_USART3:             "USART3",
	IRQ_EXTI15_10:          "EXTI15_10",
	IRQ_RTC_Alarm:          "RTC_Alarm",
	IRQ_OTG_FS_WKUP:        "OTG_FS_WKUP",
	IRQ_TIM8_BRK_TIM12:     "TIM8_BRK_TIM12",
	IRQ_TIM8_UP_TIM13:      "TIM8_UP_TIM13",
	IRQ_TIM8_TRG_COM_TIM14: "TIM8_TRG_COM_TIM14",
	IRQ_TIM8_CC:            "TIM8_CC",
	IRQ_DMA1_Stream7:       "DMA1_Stream7",
	IRQ_FSMC:               "FSMC",
	IRQ_SDIO:               "SDIO",
	IRQ_TIM5:               "TIM5",
	IRQ_SPI3:               "SPI3",
	IRQ_UART4:              "UART4",
	IRQ_UART5:              "UART5",
	IRQ_TIM6_DAC:           "TIM6_DAC",
	IRQ_TIM7:               "TIM7",
	IRQ_DMA2_Stream0:       "DMA2_Stream0",
	IRQ_DMA2_Stream1:       "DMA2_Stream1",
	IRQ_DMA2_Stream2:       "DMA2_Stream2",
	IRQ_DMA2_Stream3:       "DMA2_Stream3",
	IRQ_DMA2_Stream4:       "DMA2_Stream4",
	IRQ_ETH:                "ETH",
	IRQ_ETH_WKUP:           "ETH_WKUP",
	IRQ_CAN2_TX:            "CAN2_TX",
	IRQ_CAN2_RX0:           "CAN2_RX0",
	IRQ_CAN2_RX1:           "CAN2_RX1",
	IRQ_CAN2_SCE:           "CAN2_SCE",
	IRQ_OTG_FS:             "OTG_FS",
	IRQ_DMA2_Stream5:       "DMA2_Stream5",
	IRQ_DMA2_Stream6:       "DMA2_Stream6",
	IRQ_DMA2_Stream7:       "DMA2_Stream7",
	IRQ_USART6:             "USART6",
	IRQ_I2C3_EV:            "I2C3_EV",
	IRQ_I2C3_ER:            "I2C3_ER",
	IRQ_OTG_HS_EP1_OUT:     "OTG_HS_EP1_OUT",
	IRQ_OTG_HS_EP1_IN:      "OTG_HS_EP1_IN",
	IRQ_OTG_HS_WKUP:        "OTG_HS_WKUP",
	IRQ_OTG_HS:             "OTG_HS",
	IRQ_DCMI:               "DCMI",
	IRQ_CRYP:               "CRYP",
	IRQ_HASH_RNG:           "HASH_RNG",
	IRQ_FPU:                "FPU",
	IRQ_UART7:              "UART7",
	IRQ_UART8:              "UART8",
	IRQ_SPI4:               "SPI4",
	IRQ_SPI5:               "SPI5",
	IRQ_SPI6:               "SPI6",
	IRQ_SAI1:               "SAI1",
	IRQ_LCD_TFT:            "LCD_TFT",
	IRQ_LCD_TFT_Error:      "LCD_TFT_Error",
	IRQ_DMA2D:              "DMA2D",
}

func (i IRQ) String() string {
	if i < NumIRQ {
		return irqNames[i]
	}
	return fmt.Sprintf("IRQ(%d)", uint8(i))
}

func (i IRQ) Valid() bool {
	return i < NumIRQ
}

// Vector returns the vector table index of the line.
func (i IRQ) Vector() int {
	return i.Interrupt().Vector()
}

// Interrupt returns the NVIC line number.
func (i IRQ) Interrupt() cortexm.Interrupt {
	return cortexm.Interrupt(i)
}

// LookupIRQ finds a line by its name, e.g. "EXTI0" or "DMA2D".
func LookupIRQ(name string) (IRQ, bool) {
	if n := slices.Index(irqNames[:], name); n >= 0 {
		return IRQ(n), true
	}
	return 0, false
}

// FromVector maps a vector table index back to its line.
func FromVector(index int) (IRQ, bool) {
	n := index - cortexm.ExternalBase
	if n < 0 || n >= NumIRQ {
		return 0, false
	}
	return IRQ(n), true
}
