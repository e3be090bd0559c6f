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

// Package afio implements the alternate-function I/O block: EVCR, MAPR,
// EXTICR1..4 (nibble-per-line GPIO-port selection for EXTI routing).
// Registers are stored and readable/writable but, per the same non-goal
// as RCC's clock gates, not wired to change which GPIO port's level
// actually feeds an EXTI line — firmware that reads back what it wrote
// observes correct values, which is the only contract this simulator
// makes for AFIO (SPEC_FULL.md §4.6).
package afio

import "github.com/w1ne/labwired/peripheral"

const (
	Size uint32 = 0x20

	regEVCR    = 0x00
	regMAPR    = 0x04
	regEXTICR1 = 0x08
	regEXTICR2 = 0x0C
	regEXTICR3 = 0x10
	regEXTICR4 = 0x14
)

// AFIO implements peripheral.Peripheral.
type AFIO struct {
	peripheral.Base

	evcr, mapr uint32
	exticr     [4]uint32
}

// New constructs an AFIO block with all registers zeroed.
func New(name string) *AFIO {
	return &AFIO{Base: peripheral.NewBase(name, peripheral.KindAFIO, Size)}
}

// Read implements peripheral.Peripheral.
func (a *AFIO) Read(offset uint32) (uint8, error) {
	if err := a.CheckOffset(offset); err != nil {
		return 0, err
	}
	switch regOf(offset) {
	case regEVCR:
		return byteAt(a.evcr, offset-regEVCR), nil
	case regMAPR:
		return byteAt(a.mapr, offset-regMAPR), nil
	case regEXTICR1, regEXTICR2, regEXTICR3, regEXTICR4:
		idx := (regOf(offset) - regEXTICR1) / 4
		return byteAt(a.exticr[idx], offset-(regEXTICR1+idx*4)), nil
	default:
		return 0, nil
	}
}

// Write implements peripheral.Peripheral.
func (a *AFIO) Write(offset uint32, v uint8) error {
	if err := a.CheckOffset(offset); err != nil {
		return err
	}
	switch regOf(offset) {
	case regEVCR:
		a.evcr = setByte(a.evcr, offset-regEVCR, v)
	case regMAPR:
		a.mapr = setByte(a.mapr, offset-regMAPR, v)
	case regEXTICR1, regEXTICR2, regEXTICR3, regEXTICR4:
		idx := (regOf(offset) - regEXTICR1) / 4
		a.exticr[idx] = setByte(a.exticr[idx], offset-(regEXTICR1+idx*4), v)
	}
	return nil
}

// Snapshot implements peripheral.Peripheral.
func (a *AFIO) Snapshot() interface{} {
	return struct {
		EVCR   uint32    `json:"evcr"`
		MAPR   uint32    `json:"mapr"`
		EXTICR [4]uint32 `json:"exticr"`
	}{a.evcr, a.mapr, a.exticr}
}

func regOf(offset uint32) uint32 { return offset &^ 0x3 }

func byteAt(v uint32, byteOffset uint32) uint8 { return uint8(v >> (8 * byteOffset)) }

func setByte(v uint32, byteOffset uint32, b uint8) uint32 {
	shift := 8 * byteOffset
	return (v &^ (0xff << shift)) | (uint32(b) << shift)
}
