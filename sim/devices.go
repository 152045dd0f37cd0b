package sim

import (
	"omibyte.io/m4boot/chip/cortexm"
	"omibyte.io/m4boot/chip/stm32f429"
	"omibyte.io/m4boot/mmio"
)

// device gives a register behaviour beyond plain storage. Both functions
// run with mu held and may touch any machine state.
type device struct {
	load  func(a mmio.Addr) uint32
	store func(a mmio.Addr, v uint32)
}

// hsi is the internal oscillator the core runs from out of reset.
const hsi = 16_000_000

var resetValues = map[mmio.Addr]uint32{
	cortexm.CPUID:      0x410F_C241,
	cortexm.SYST_CALIB: cortexm.SYST_CALIB_SKEW.Mask() | (hsi/8/100 - 1),

	stm32f429.RCC + stm32f429.RCC_CR:       0x0000_0083,
	stm32f429.RCC + stm32f429.RCC_PLLCFGR:  0x2400_3010,
	stm32f429.PWR + stm32f429.PWR_CR:       0x0000_C000,
	stm32f429.GPIOA + stm32f429.GPIO_MODER: 0xA800_0000,
	stm32f429.GPIOB + stm32f429.GPIO_MODER: 0x0000_0280,
}

func (m *Machine) installDevices() map[mmio.Addr]device {
	d := map[mmio.Addr]device{}

	for bank := 0; bank < nvicBanks; bank++ {
		bank := bank
		off := uint32(bank) * 4
		d[cortexm.NVIC_ISER.Add(off)] = device{
			load:  func(mmio.Addr) uint32 { return m.enabled[bank] },
			store: func(_ mmio.Addr, v uint32) { m.enabled[bank] |= v },
		}
		d[cortexm.NVIC_ICER.Add(off)] = device{
			load:  func(mmio.Addr) uint32 { return m.enabled[bank] },
			store: func(_ mmio.Addr, v uint32) { m.enabled[bank] &^= v },
		}
		d[cortexm.NVIC_ISPR.Add(off)] = device{
			load:  func(mmio.Addr) uint32 { return m.pending[bank] },
			store: func(_ mmio.Addr, v uint32) { m.pending[bank] |= v },
		}
		d[cortexm.NVIC_ICPR.Add(off)] = device{
			load:  func(mmio.Addr) uint32 { return m.pending[bank] },
			store: func(_ mmio.Addr, v uint32) { m.pending[bank] &^= v },
		}
		d[cortexm.NVIC_IABR.Add(off)] = device{
			load:  func(mmio.Addr) uint32 { return m.activeIRQ[bank] },
			store: func(mmio.Addr, uint32) {},
		}
	}
	d[cortexm.STIR] = device{store: func(_ mmio.Addr, v uint32) { m.pendIRQ(int(v & 0x1FF)) }}

	d[cortexm.ICSR] = device{load: m.loadICSR, store: m.storeICSR}
	d[cortexm.AIRCR] = device{
		load: func(a mmio.Addr) uint32 {
			return 0xFA05<<16 | m.cells[a]&0xFFFF
		},
		store: func(a mmio.Addr, v uint32) {
			if cortexm.AIRCR_VECTKEY.Extract(v) != cortexm.AIRCRKey {
				return
			}
			m.cells[a] = v & cortexm.AIRCR_PRIGROUP.Mask()
			if v&cortexm.AIRCR_SYSRESETREQ.Mask() != 0 {
				m.resetReq = true
			}
		},
	}

	csr := cortexm.SYST_CSR_COUNTFLAG.Mask()
	d[cortexm.SYST_CSR] = device{
		load: func(a mmio.Addr) uint32 {
			v := m.cells[a]
			m.cells[a] = v &^ csr
			return v
		},
		store: func(a mmio.Addr, v uint32) {
			m.cells[a] = v&^csr | m.cells[a]&csr
		},
	}
	d[cortexm.SYST_CVR] = device{store: func(a mmio.Addr, _ uint32) {
		m.cells[a] = 0
		m.cells[cortexm.SYST_CSR] &^= csr
	}}

	rccCR := stm32f429.RCC + stm32f429.RCC_CR
	d[rccCR] = device{store: func(a mmio.Addr, v uint32) {
		v = follow(v, stm32f429.RCC_CR_HSION, stm32f429.RCC_CR_HSIRDY)
		v = follow(v, stm32f429.RCC_CR_HSEON, stm32f429.RCC_CR_HSERDY)
		m.cells[a] = follow(v, stm32f429.RCC_CR_PLLON, stm32f429.RCC_CR_PLLRDY)
	}}
	d[stm32f429.RCC+stm32f429.RCC_CFGR] = device{store: func(a mmio.Addr, v uint32) {
		m.cells[a] = stm32f429.RCC_CFGR_SWS.Insert(v, stm32f429.RCC_CFGR_SW.Extract(v))
	}}
	d[stm32f429.PWR+stm32f429.PWR_CR] = device{store: func(a mmio.Addr, v uint32) {
		m.cells[a] = v
		csrAddr := stm32f429.PWR + stm32f429.PWR_CSR
		s := m.cells[csrAddr] | stm32f429.PWR_CSR_VOSRDY.Mask()
		s = stm32f429.PWR_CSR_ODRDY.Insert(s, stm32f429.PWR_CR_ODEN.Extract(v))
		m.cells[csrAddr] = stm32f429.PWR_CSR_ODSWRDY.Insert(s, stm32f429.PWR_CR_ODSWEN.Extract(v))
	}}

	for p := byte('A'); p <= 'K'; p++ {
		base, _ := stm32f429.Port(p)
		odr := base + stm32f429.GPIO_ODR
		d[base+stm32f429.GPIO_BSRR] = device{
			load: func(mmio.Addr) uint32 { return 0 },
			store: func(_ mmio.Addr, v uint32) {
				m.cells[odr] = m.cells[odr]&^(v>>16) | v&0xFFFF
			},
		}
		d[base+stm32f429.GPIO_IDR] = device{store: func(mmio.Addr, uint32) {}}
	}

	exti := stm32f429.EXTI
	d[exti+stm32f429.EXTI_PR] = device{store: func(a mmio.Addr, v uint32) {
		m.cells[a] &^= v
	}}
	d[exti+stm32f429.EXTI_SWIER] = device{store: func(a mmio.Addr, v uint32) {
		m.cells[a] |= v
		for line := uint32(0); line < 16; line++ {
			if v&(1<<line) != 0 {
				m.extiEvent(line)
			}
		}
	}}
	return d
}

// follow copies the enable bit to its ready flag.
func follow(v uint32, enable, ready mmio.Field) uint32 {
	return ready.Insert(v, enable.Extract(v))
}

func (m *Machine) loadICSR(mmio.Addr) uint32 {
	var v uint32
	if len(m.active) > 0 {
		v = cortexm.ICSR_VECTACTIVE.Insert(v, uint32(m.active[len(m.active)-1]))
	}
	if m.sysPending&(1<<sysTick) != 0 {
		v |= cortexm.ICSR_PENDSTSET.Mask()
	}
	if m.sysPending&(1<<pendSV) != 0 {
		v |= cortexm.ICSR_PENDSVSET.Mask()
	}
	if m.sysPending&(1<<nmi) != 0 {
		v |= cortexm.ICSR_NMIPENDSET.Mask()
	}
	return v
}

func (m *Machine) storeICSR(_ mmio.Addr, v uint32) {
	set := func(f mmio.Field, n int) {
		if v&f.Mask() != 0 {
			m.sysPending |= 1 << n
		}
	}
	unset := func(f mmio.Field, n int) {
		if v&f.Mask() != 0 {
			m.sysPending &^= 1 << n
		}
	}
	set(cortexm.ICSR_PENDSTSET, sysTick)
	unset(cortexm.ICSR_PENDSTCLR, sysTick)
	set(cortexm.ICSR_PENDSVSET, pendSV)
	unset(cortexm.ICSR_PENDSVCLR, pendSV)
	set(cortexm.ICSR_NMIPENDSET, nmi)
}

// tickSysTick counts the timer down by one step. Caller holds mu.
func (m *Machine) tickSysTick() {
	ctrl := m.cells[cortexm.SYST_CSR]
	if ctrl&cortexm.SYST_CSR_ENABLE.Mask() == 0 {
		return
	}
	cvr := m.cells[cortexm.SYST_CVR]
	reload := m.cells[cortexm.SYST_RVR] & cortexm.SYST_RVR_RELOAD.Mask()
	switch {
	case cvr == 0:
		m.cells[cortexm.SYST_CVR] = reload
	case cvr > m.cfg.TickStep:
		m.cells[cortexm.SYST_CVR] = cvr - m.cfg.TickStep
	default:
		m.cells[cortexm.SYST_CVR] = reload
		m.cells[cortexm.SYST_CSR] = ctrl | cortexm.SYST_CSR_COUNTFLAG.Mask()
		if ctrl&cortexm.SYST_CSR_TICKINT.Mask() != 0 {
			m.sysPending |= 1 << sysTick
		}
	}
}

// extiEvent latches an edge on EXTI line and pends its interrupt when the
// line is unmasked. Caller holds mu.
func (m *Machine) extiEvent(line uint32) {
	exti := stm32f429.EXTI
	if m.cells[exti+stm32f429.EXTI_IMR]&(1<<line) == 0 {
		return
	}
	m.cells[exti+stm32f429.EXTI_PR] |= 1 << line
	m.pendIRQ(int(extiIRQ(line)))
}

func extiIRQ(line uint32) stm32f429.IRQ {
	switch {
	case line <= 4:
		return stm32f429.IRQ_EXTI0 + stm32f429.IRQ(line)
	case line <= 9:
		return stm32f429.IRQ_EXTI9_5
	}
	return stm32f429.IRQ_EXTI15_10
}

// Press drives an input pin high. A rising edge on a pin routed to its
// EXTI line with the rising trigger enabled raises the line's interrupt.
func (m *Machine) Press(port byte, pin uint32) {
	m.setInput(port, pin, true)
}

// Release drives an input pin low.
func (m *Machine) Release(port byte, pin uint32) {
	m.setInput(port, pin, false)
}

func (m *Machine) setInput(port byte, pin uint32, high bool) {
	base, ok := stm32f429.Port(port)
	if !ok || pin > 15 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	idr := base + stm32f429.GPIO_IDR
	was := m.cells[idr]&(1<<pin) != 0
	if !high {
		m.cells[idr] &^= 1 << pin
		return
	}
	m.cells[idr] |= 1 << pin
	if was {
		return
	}
	cr := m.cells[stm32f429.SYSCFG.Add(stm32f429.SYSCFG_EXTICR1+pin/4*4)]
	if cr>>(pin%4*4)&0xF != uint32(port-'A') {
		return
	}
	if m.cells[stm32f429.EXTI+stm32f429.EXTI_RTSR]&(1<<pin) != 0 {
		m.extiEvent(pin)
	}
}
