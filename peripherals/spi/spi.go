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

// Package spi implements an SPI peripheral: CR1 (enable), SR (TXE always
// set, RXNE set while the RX queue is non-empty), DR (same loopback/log
// semantics as i2c's DR), with the same downcast accessor pattern as i2c;
// the dma package does not call it (SPEC_FULL.md §4.6).
package spi

import "github.com/w1ne/labwired/peripheral"

const (
	Size uint32 = 0x400

	regCR1 = 0x00
	regSR  = 0x08
	regDR  = 0x0C

	srTxE  = 1 << 1
	srRxNE = 1 << 0
)

// SPI implements peripheral.Peripheral.
type SPI struct {
	peripheral.Base

	cr1     uint32
	txLog   []byte
	rxQueue []byte
}

// New constructs an SPI peripheral with empty TX/RX queues.
func New(name string) *SPI {
	return &SPI{Base: peripheral.NewBase(name, peripheral.KindSPI, Size)}
}

// InjectRX appends a byte to the RX queue.
func (s *SPI) InjectRX(b byte) { s.rxQueue = append(s.rxQueue, b) }

// TXLog returns every byte written to DR so far.
func (s *SPI) TXLog() []byte { return s.txLog }

// ReadDataRegister is the downcast accessor for reading DR directly.
func (s *SPI) ReadDataRegister() byte {
	if len(s.rxQueue) == 0 {
		return 0
	}
	b := s.rxQueue[0]
	s.rxQueue = s.rxQueue[1:]
	return b
}

// WriteDataRegister is the downcast accessor for writing DR directly.
func (s *SPI) WriteDataRegister(b byte) { s.txLog = append(s.txLog, b) }

// Read implements peripheral.Peripheral.
func (s *SPI) Read(offset uint32) (uint8, error) {
	if err := s.CheckOffset(offset); err != nil {
		return 0, err
	}
	switch regOf(offset) {
	case regCR1:
		return byteAt(s.cr1, offset-regCR1), nil
	case regDR:
		return s.ReadDataRegister(), nil
	case regSR:
		sr := uint8(srTxE)
		if len(s.rxQueue) > 0 {
			sr |= srRxNE
		}
		return sr, nil
	default:
		return 0, nil
	}
}

// Write implements peripheral.Peripheral.
func (s *SPI) Write(offset uint32, v uint8) error {
	if err := s.CheckOffset(offset); err != nil {
		return err
	}
	switch regOf(offset) {
	case regCR1:
		s.cr1 = setByte(s.cr1, offset-regCR1, v)
	case regDR:
		s.WriteDataRegister(v)
	}
	return nil
}

// Snapshot implements peripheral.Peripheral.
func (s *SPI) Snapshot() interface{} {
	return struct {
		CR1   uint32 `json:"cr1"`
		TXLog []byte `json:"tx_log"`
	}{s.cr1, s.txLog}
}

func regOf(offset uint32) uint32 { return offset &^ 0x3 }

func byteAt(v uint32, byteOffset uint32) uint8 { return uint8(v >> (8 * byteOffset)) }

func setByte(v uint32, byteOffset uint32, b uint8) uint32 {
	shift := 8 * byteOffset
	return (v &^ (0xff << shift)) | (uint32(b) << shift)
}
