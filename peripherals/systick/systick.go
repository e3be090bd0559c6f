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

// Package systick implements the SysTick timer: CSR/RVR/CVR/CALIB,
// decrementing CVR once per Tick and raising IRQ 15 on underflow when
// TICKINT is set, per spec.md §4.6.
package systick

import "github.com/w1ne/labwired/peripheral"

const (
	Base         = 0xE000E010
	Size  uint32 = 0x10

	regCSR   = 0x00
	regRVR   = 0x04
	regCVR   = 0x08
	regCALIB = 0x0C

	csrEnable    = 1 << 0
	csrTickint   = 1 << 1
	csrClksource = 1 << 2
	csrCountflag = 1 << 16

	// IRQ is the fixed core exception number for SysTick, per spec.md §4.6.
	IRQ uint32 = 15
)

// SysTick implements peripheral.Peripheral.
type SysTick struct {
	peripheral.Base

	csr   uint32
	rvr   uint32
	cvr   uint32
	calib uint32
}

// New constructs a SysTick peripheral with all registers zeroed.
func New(name string) *SysTick {
	return &SysTick{Base: peripheral.NewBase(name, peripheral.KindSysTick, Size)}
}

// Tick decrements CVR when ENABLE is set. On underflow it reloads CVR from
// RVR, sets COUNTFLAG, and — if TICKINT is set — returns IRQ 15.
func (s *SysTick) Tick() peripheral.TickResult {
	if s.csr&csrEnable == 0 {
		return peripheral.DefaultTick()
	}

	if s.cvr == 0 {
		s.cvr = s.rvr
	} else {
		s.cvr--
	}

	if s.cvr != 0 {
		return peripheral.DefaultTick()
	}

	s.csr |= csrCountflag
	result := peripheral.DefaultTick()
	if s.csr&csrTickint != 0 {
		irq := IRQ
		result.IRQ = &irq
	}
	return result
}

// Read implements peripheral.Peripheral.
func (s *SysTick) Read(offset uint32) (uint8, error) {
	if err := s.CheckOffset(offset); err != nil {
		return 0, err
	}
	switch regOf(offset) {
	case regCSR:
		v := byteAt(s.csr, offset-regCSR)
		// COUNTFLAG (bit 16, in CSR byte 2) is cleared by reading it,
		// matching real silicon's read-clears semantics; the byte returned
		// by this read still carries the flag.
		if offset == regCSR+2 {
			s.csr &^= csrCountflag
		}
		return v, nil
	case regRVR:
		return byteAt(s.rvr, offset-regRVR), nil
	case regCVR:
		return byteAt(s.cvr, offset-regCVR), nil
	case regCALIB:
		return byteAt(s.calib, offset-regCALIB), nil
	default:
		return 0, nil
	}
}

// Write implements peripheral.Peripheral. Writing any value to CVR clears
// it to zero, matching real SysTick semantics.
func (s *SysTick) Write(offset uint32, v uint8) error {
	if err := s.CheckOffset(offset); err != nil {
		return err
	}
	switch regOf(offset) {
	case regCSR:
		s.csr = setByte(s.csr, offset-regCSR, v)
	case regRVR:
		s.rvr = setByte(s.rvr, offset-regRVR, v)
	case regCVR:
		s.cvr = 0
	}
	return nil
}

// Snapshot implements peripheral.Peripheral.
func (s *SysTick) Snapshot() interface{} {
	return struct {
		CSR uint32 `json:"csr"`
		RVR uint32 `json:"rvr"`
		CVR uint32 `json:"cvr"`
	}{s.csr, s.rvr, s.cvr}
}

func regOf(offset uint32) uint32 { return offset &^ 0x3 }

func byteAt(v uint32, byteOffset uint32) uint8 { return uint8(v >> (8 * byteOffset)) }

func setByte(v uint32, byteOffset uint32, b uint8) uint32 {
	shift := 8 * byteOffset
	return (v &^ (0xff << shift)) | (uint32(b) << shift)
}
