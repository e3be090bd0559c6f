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

// Package nvic implements the Nested Vectored Interrupt Controller: the
// ISER/ICER/ISPR/ICPR bitmap registers for up to 256 external IRQs, and the
// pend/acknowledge/query entry points the Bus drives directly (spec.md
// §4.6). Core exceptions (IRQ < 16) are tracked in a separate small array
// since real silicon has no ISER/ICER bit for them — they're always
// considered enabled once pended, per spec.md §4.2 step 4.
package nvic

import (
	"github.com/w1ne/labwired/peripheral"
)

const (
	Base         = 0xE000E100
	Size  uint32 = 0x400

	numExternal = 256
	numWords    = numExternal / 32
)

const (
	regISER = 0x000 // Interrupt Set-Enable (8 words)
	regICER = 0x080 // Interrupt Clear-Enable (8 words)
	regISPR = 0x100 // Interrupt Set-Pending (8 words)
	regICPR = 0x180 // Interrupt Clear-Pending (8 words)
)

// NVIC implements peripheral.Peripheral plus the narrower controller
// interface the Bus uses directly.
type NVIC struct {
	peripheral.Base

	enabled [numWords]uint32
	pending [numWords]uint32

	corePending [16]bool
}

// New constructs an NVIC peripheral registered under the given manifest
// name.
func New(name string) *NVIC {
	return &NVIC{Base: peripheral.NewBase(name, peripheral.KindNVIC, Size)}
}

// Pend sets the pending bit for irq, core (<16) or external (>=16).
func (n *NVIC) Pend(irq uint32) {
	if irq < 16 {
		if irq > 0 {
			n.corePending[irq] = true
		}
		return
	}
	idx := irq - 16
	if int(idx) >= numExternal {
		return
	}
	n.pending[idx/32] |= 1 << (idx % 32)
}

// Acknowledge clears the pending bit for irq after the CPU has taken it.
func (n *NVIC) Acknowledge(irq uint32) {
	if irq < 16 {
		if irq > 0 {
			n.corePending[irq] = false
		}
		return
	}
	idx := irq - 16
	if int(idx) >= numExternal {
		return
	}
	n.pending[idx/32] &^= 1 << (idx % 32)
}

// HighestPending returns the highest-numbered pending-and-eligible
// exception, if any. Core exceptions bypass the enabled bitmap entirely;
// external exceptions also need their ISER bit set. primaskSet, when
// true, excludes external (configurable-priority) exceptions from
// consideration — core exceptions are still delivered, per the testable
// property in spec.md §8.
func (n *NVIC) HighestPending(primaskSet bool) (uint32, bool) {
	best := int64(-1)

	for irq := 15; irq >= 1; irq-- {
		if n.corePending[irq] {
			best = int64(irq)
			break
		}
	}

	if !primaskSet {
		for word := numWords - 1; word >= 0; word-- {
			bits := n.pending[word] & n.enabled[word]
			if bits == 0 {
				continue
			}
			for bit := 31; bit >= 0; bit-- {
				if bits&(1<<bit) == 0 {
					continue
				}
				irq := int64(16 + word*32 + bit)
				if irq > best {
					best = irq
				}
				break
			}
			break
		}
	}

	if best < 0 {
		return 0, false
	}
	return uint32(best), true
}

// Read implements peripheral.Peripheral.
func (n *NVIC) Read(offset uint32) (uint8, error) {
	if err := n.CheckOffset(offset); err != nil {
		return 0, err
	}
	switch {
	case offset >= regISER && offset < regISER+uint32(numWords*4):
		return byteOf(n.enabled[:], offset-regISER), nil
	case offset >= regICER && offset < regICER+uint32(numWords*4):
		return byteOf(n.enabled[:], offset-regICER), nil
	case offset >= regISPR && offset < regISPR+uint32(numWords*4):
		return byteOf(n.pending[:], offset-regISPR), nil
	case offset >= regICPR && offset < regICPR+uint32(numWords*4):
		return byteOf(n.pending[:], offset-regICPR), nil
	default:
		return 0, nil
	}
}

// Write implements peripheral.Peripheral. ISER sets enable bits; ICER
// clears them; ISPR sets pending bits (software-triggered interrupts);
// ICPR clears pending bits. All four register banks clear/set atomically
// at the granularity of whichever bits are written as 1 in the byte being
// stored, matching real NVIC semantics of write-1-to-set/clear.
func (n *NVIC) Write(offset uint32, v uint8) error {
	if err := n.CheckOffset(offset); err != nil {
		return err
	}
	switch {
	case offset >= regISER && offset < regISER+uint32(numWords*4):
		setByteBits(n.enabled[:], offset-regISER, v)
	case offset >= regICER && offset < regICER+uint32(numWords*4):
		clearByteBits(n.enabled[:], offset-regICER, v)
	case offset >= regISPR && offset < regISPR+uint32(numWords*4):
		setByteBits(n.pending[:], offset-regISPR, v)
	case offset >= regICPR && offset < regICPR+uint32(numWords*4):
		clearByteBits(n.pending[:], offset-regICPR, v)
	}
	return nil
}

func byteOf(words []uint32, byteOffset uint32) uint8 {
	word := words[byteOffset/4]
	shift := (byteOffset % 4) * 8
	return uint8(word >> shift)
}

func setByteBits(words []uint32, byteOffset uint32, v uint8) {
	shift := (byteOffset % 4) * 8
	words[byteOffset/4] |= uint32(v) << shift
}

func clearByteBits(words []uint32, byteOffset uint32, v uint8) {
	shift := (byteOffset % 4) * 8
	words[byteOffset/4] &^= uint32(v) << shift
}

// Snapshot implements peripheral.Peripheral.
func (n *NVIC) Snapshot() interface{} {
	return struct {
		Enabled     [numWords]uint32 `json:"enabled"`
		Pending     [numWords]uint32 `json:"pending"`
		CorePending [16]bool         `json:"core_pending"`
	}{n.enabled, n.pending, n.corePending}
}
