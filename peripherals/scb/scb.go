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

// Package scb implements the System Control Block, whose only
// normatively-specified register for this simulator is VTOR (spec.md
// §4.6): the vector table base address the CPU reads on every exception
// entry. SCB is the single authoritative owner of that value — the CPU
// never caches its own copy, it reads through the Bus at entry time, per
// the shared-resource note in spec.md §9.
package scb

import "github.com/w1ne/labwired/peripheral"

const (
	Base         = 0xE000ED00
	Size  uint32 = 0x40

	regVTOR = 0x08
)

// SCB implements peripheral.Peripheral plus VTOR(), the narrow accessor
// the CPU uses directly rather than routing through a byte-granular MMIO
// read on every single fetch.
type SCB struct {
	peripheral.Base

	vtor uint32
}

// New constructs an SCB peripheral with VTOR reset to zero.
func New(name string) *SCB {
	return &SCB{Base: peripheral.NewBase(name, peripheral.KindSCB, Size)}
}

// VTOR returns the current vector table base address.
func (s *SCB) VTOR() uint32 { return s.vtor }

// SetVTOR overwrites the vector table base address directly, bypassing
// the byte-granular MMIO write path. Used by machine.Machine.Restore for
// snapshot round trips, where the stored value is already known-good and
// does not need re-validating through four single-byte writes.
func (s *SCB) SetVTOR(v uint32) { s.vtor = v &^ 0x7f }

// Read implements peripheral.Peripheral.
func (s *SCB) Read(offset uint32) (uint8, error) {
	if err := s.CheckOffset(offset); err != nil {
		return 0, err
	}
	if offset >= regVTOR && offset < regVTOR+4 {
		return byte(s.vtor >> (8 * (offset - regVTOR))), nil
	}
	return 0, nil
}

// Write implements peripheral.Peripheral. The low 7 bits of VTOR are
// reserved and always read back as zero, per spec.md §4.6.
func (s *SCB) Write(offset uint32, v uint8) error {
	if err := s.CheckOffset(offset); err != nil {
		return err
	}
	if offset >= regVTOR && offset < regVTOR+4 {
		shift := 8 * (offset - regVTOR)
		mask := uint32(0xff) << shift
		s.vtor = (s.vtor &^ mask) | (uint32(v) << shift)
		s.vtor &^= 0x7f
	}
	return nil
}

// Snapshot implements peripheral.Peripheral.
func (s *SCB) Snapshot() interface{} {
	return struct {
		VTOR uint32 `json:"vtor"`
	}{s.vtor}
}
