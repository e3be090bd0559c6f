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

// Package gpio implements one classic F1-style GPIO port: CRL/CRH
// (mode/config nibbles, tracked but not enforced against actual pin
// direction), IDR (input data, test-settable), ODR (output data), BSRR
// (atomic bit set/reset, write-only), BRR (atomic bit reset). Per
// SPEC_FULL.md §4.6, AFIO's pin-routing registers are modeled standalone
// and not wired into this port's behavior.
package gpio

import "github.com/w1ne/labwired/peripheral"

const (
	Size uint32 = 0x400

	regCRL  = 0x00
	regCRH  = 0x04
	regIDR  = 0x08
	regODR  = 0x0C
	regBSRR = 0x10
	regBRR  = 0x14
)

// GPIO implements peripheral.Peripheral.
type GPIO struct {
	peripheral.Base

	crl, crh uint32
	idr, odr uint32
}

// New constructs a GPIO port with all registers zeroed.
func New(name string) *GPIO {
	return &GPIO{Base: peripheral.NewBase(name, peripheral.KindGPIO, Size)}
}

// SetExternalLevel overrides IDR's bit for pin, for tests and host
// harnesses simulating external electrical state.
func (g *GPIO) SetExternalLevel(pin uint, high bool) {
	if high {
		g.idr |= 1 << pin
	} else {
		g.idr &^= 1 << pin
	}
}

// ODR returns the current output data register value.
func (g *GPIO) ODR() uint32 { return g.odr }

// Read implements peripheral.Peripheral.
func (g *GPIO) Read(offset uint32) (uint8, error) {
	if err := g.CheckOffset(offset); err != nil {
		return 0, err
	}
	switch regOf(offset) {
	case regCRL:
		return byteAt(g.crl, offset-regCRL), nil
	case regCRH:
		return byteAt(g.crh, offset-regCRH), nil
	case regIDR:
		return byteAt(g.idr, offset-regIDR), nil
	case regODR:
		return byteAt(g.odr, offset-regODR), nil
	default:
		return 0, nil
	}
}

// Write implements peripheral.Peripheral. BSRR's high halfword resets
// bits, its low halfword sets them. Each byte takes effect as it arrives,
// so when one word write names the same pin in both halves, the reset
// half (bytes 2-3, written after bytes 0-1) wins. BRR resets bits
// directly.
func (g *GPIO) Write(offset uint32, v uint8) error {
	if err := g.CheckOffset(offset); err != nil {
		return err
	}
	switch regOf(offset) {
	case regCRL:
		g.crl = setByte(g.crl, offset-regCRL, v)
	case regCRH:
		g.crh = setByte(g.crh, offset-regCRH, v)
	case regODR:
		g.odr = setByte(g.odr, offset-regODR, v)
	case regBSRR:
		shift := offset - regBSRR
		if shift < 2 {
			g.odr |= uint32(v) << (8 * shift)
		} else {
			g.odr &^= uint32(v) << (8 * (shift - 2))
		}
	case regBRR:
		shift := offset - regBRR
		g.odr &^= uint32(v) << (8 * shift)
	}
	return nil
}

// Snapshot implements peripheral.Peripheral.
func (g *GPIO) Snapshot() interface{} {
	return struct {
		CRL uint32 `json:"crl"`
		CRH uint32 `json:"crh"`
		IDR uint32 `json:"idr"`
		ODR uint32 `json:"odr"`
	}{g.crl, g.crh, g.idr, g.odr}
}

func regOf(offset uint32) uint32 { return offset &^ 0x3 }

func byteAt(v uint32, byteOffset uint32) uint8 { return uint8(v >> (8 * byteOffset)) }

func setByte(v uint32, byteOffset uint32, b uint8) uint32 {
	shift := 8 * byteOffset
	return (v &^ (0xff << shift)) | (uint32(b) << shift)
}
