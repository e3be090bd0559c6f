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

// Package stub implements the catch-all peripheral named in spec.md §4.3:
// it returns a configurable constant byte and logs (rather than rejects)
// every write, to satisfy firmware that probes registers this manifest
// does not model.
package stub

import (
	"github.com/w1ne/labwired/logger"
	"github.com/w1ne/labwired/peripheral"
)

// Stub implements peripheral.Peripheral.
type Stub struct {
	peripheral.Base

	constant uint8
}

// New constructs a stub peripheral of the given declared size that
// returns constant on every read.
func New(name string, size uint32, constant uint8) *Stub {
	return &Stub{Base: peripheral.NewBase(name, peripheral.KindStub, size), constant: constant}
}

// Read implements peripheral.Peripheral.
func (s *Stub) Read(offset uint32) (uint8, error) {
	if err := s.CheckOffset(offset); err != nil {
		return 0, err
	}
	return s.constant, nil
}

// Write implements peripheral.Peripheral. The write is discarded; only
// its occurrence is logged.
func (s *Stub) Write(offset uint32, v uint8) error {
	if err := s.CheckOffset(offset); err != nil {
		return err
	}
	logger.Logf(logger.Allow, "stub", "%s: discarded write %#02x at offset %#04x", s.Name(), v, offset)
	return nil
}
