// This file is part of labwired.
//
// labwired is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// labwired is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with labwired.  If not, see <https://www.gnu.org/licenses/>.

// Package tim implements a general-purpose timer block (TIM2..TIM5
// style): CR1, PSC, ARR, CNT, SR, DIER. CNT counts up once every PSC+1
// Ticks; on overflow past ARR it reloads, sets SR.UIF, and — if DIER.UIE is
// set — raises the timer's IRQ, assigned at construction since vector
// assignment for general-purpose timers is chip-specific (SPEC_FULL.md
// §4.6).
package tim

import "github.com/w1ne/labwired/peripheral"

const (
	Size uint32 = 0x400

	regCR1  = 0x00
	regDIER = 0x0C
	regSR   = 0x10
	regPSC  = 0x28
	regARR  = 0x2C
	regCNT  = 0x24

	cr1CEN  = 1 << 0
	srUIF   = 1 << 0
	dierUIE = 1 << 0
)

// TIM implements peripheral.Peripheral.
type TIM struct {
	peripheral.Base

	irq uint32

	cr1, dier, sr uint32
	psc, arr, cnt uint32

	prescaleCount uint32
}

// New constructs a timer whose update-interrupt, when enabled, raises
// irq.
func New(name string, irq uint32) *TIM {
	return &TIM{Base: peripheral.NewBase(name, peripheral.KindTIM, Size), irq: irq}
}

// Tick advances the prescaler and, once every PSC+1 Ticks, the counter.
// When a count step finds CNT already at ARR (overflow), CNT reloads to
// zero, SR.UIF is set, and the configured IRQ fires if DIER.UIE is set.
func (t *TIM) Tick() peripheral.TickResult {
	if t.cr1&cr1CEN == 0 {
		return peripheral.DefaultTick()
	}

	if t.prescaleCount < t.psc {
		t.prescaleCount++
		return peripheral.DefaultTick()
	}
	t.prescaleCount = 0

	if t.cnt >= t.arr {
		t.cnt = 0
		t.sr |= srUIF
		result := peripheral.DefaultTick()
		if t.dier&dierUIE != 0 {
			irq := t.irq
			result.IRQ = &irq
		}
		return result
	}

	t.cnt++
	return peripheral.DefaultTick()
}

// Read implements peripheral.Peripheral.
func (t *TIM) Read(offset uint32) (uint8, error) {
	if err := t.CheckOffset(offset); err != nil {
		return 0, err
	}
	switch regOf(offset) {
	case regCR1:
		return byteAt(t.cr1, offset-regCR1), nil
	case regDIER:
		return byteAt(t.dier, offset-regDIER), nil
	case regSR:
		return byteAt(t.sr, offset-regSR), nil
	case regPSC:
		return byteAt(t.psc, offset-regPSC), nil
	case regARR:
		return byteAt(t.arr, offset-regARR), nil
	case regCNT:
		return byteAt(t.cnt, offset-regCNT), nil
	default:
		return 0, nil
	}
}

// Write implements peripheral.Peripheral. SR is write-1-to-clear.
func (t *TIM) Write(offset uint32, v uint8) error {
	if err := t.CheckOffset(offset); err != nil {
		return err
	}
	switch regOf(offset) {
	case regCR1:
		t.cr1 = setByte(t.cr1, offset-regCR1, v)
	case regDIER:
		t.dier = setByte(t.dier, offset-regDIER, v)
	case regSR:
		t.sr &^= setByte(0, offset-regSR, v)
	case regPSC:
		t.psc = setByte(t.psc, offset-regPSC, v)
	case regARR:
		t.arr = setByte(t.arr, offset-regARR, v)
	case regCNT:
		t.cnt = setByte(t.cnt, offset-regCNT, v)
	}
	return nil
}

// Snapshot implements peripheral.Peripheral.
func (t *TIM) Snapshot() interface{} {
	return struct {
		CR1  uint32 `json:"cr1"`
		PSC  uint32 `json:"psc"`
		ARR  uint32 `json:"arr"`
		CNT  uint32 `json:"cnt"`
		SR   uint32 `json:"sr"`
		DIER uint32 `json:"dier"`
	}{t.cr1, t.psc, t.arr, t.cnt, t.sr, t.dier}
}

func regOf(offset uint32) uint32 { return offset &^ 0x3 }

func byteAt(v uint32, byteOffset uint32) uint8 { return uint8(v >> (8 * byteOffset)) }

func setByte(v uint32, byteOffset uint32, b uint8) uint32 {
	shift := 8 * byteOffset
	return (v &^ (0xff << shift)) | (uint32(b) << shift)
}
