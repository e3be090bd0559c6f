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

// Package i2c implements an I2C peripheral: CR1 (PE enable), CR2, DR
// (write enqueues to a TX log, read pops from an injected RX queue
// exactly like UART's RX), SR1 (TXE always set, RXNE set while the RX
// queue is non-empty), SR2 (reads as zero). DR also exposes a downcast
// accessor, ReadDataRegister/WriteDataRegister, for direct access outside
// the byte-granular Read/Write path; the dma package does not call it
// (SPEC_FULL.md §4.6).
package i2c

import "github.com/w1ne/labwired/peripheral"

const (
	Size uint32 = 0x400

	regCR1 = 0x00
	regCR2 = 0x04
	regSR1 = 0x14
	regSR2 = 0x18
	regDR  = 0x10

	sr1TxE  = 1 << 7
	sr1RxNE = 1 << 6
)

// I2C implements peripheral.Peripheral.
type I2C struct {
	peripheral.Base

	cr1, cr2 uint32
	txLog    []byte
	rxQueue  []byte
}

// New constructs an I2C peripheral with empty TX/RX queues.
func New(name string) *I2C {
	return &I2C{Base: peripheral.NewBase(name, peripheral.KindI2C, Size)}
}

// InjectRX appends a byte to the RX queue, mirroring uart.InjectRX.
func (c *I2C) InjectRX(b byte) { c.rxQueue = append(c.rxQueue, b) }

// TXLog returns every byte written to DR so far.
func (c *I2C) TXLog() []byte { return c.txLog }

// ReadDataRegister is the downcast accessor for reading DR without going
// through the byte-granular Read path.
func (c *I2C) ReadDataRegister() byte {
	if len(c.rxQueue) == 0 {
		return 0
	}
	b := c.rxQueue[0]
	c.rxQueue = c.rxQueue[1:]
	return b
}

// WriteDataRegister is the downcast accessor for writing DR without going
// through the byte-granular Write path.
func (c *I2C) WriteDataRegister(b byte) { c.txLog = append(c.txLog, b) }

// Read implements peripheral.Peripheral.
func (c *I2C) Read(offset uint32) (uint8, error) {
	if err := c.CheckOffset(offset); err != nil {
		return 0, err
	}
	switch regOf(offset) {
	case regCR1:
		return byteAt(c.cr1, offset-regCR1), nil
	case regCR2:
		return byteAt(c.cr2, offset-regCR2), nil
	case regDR:
		return c.ReadDataRegister(), nil
	case regSR1:
		sr1 := uint8(sr1TxE)
		if len(c.rxQueue) > 0 {
			sr1 |= sr1RxNE
		}
		return sr1, nil
	case regSR2:
		return 0, nil
	default:
		return 0, nil
	}
}

// Write implements peripheral.Peripheral.
func (c *I2C) Write(offset uint32, v uint8) error {
	if err := c.CheckOffset(offset); err != nil {
		return err
	}
	switch regOf(offset) {
	case regCR1:
		c.cr1 = setByte(c.cr1, offset-regCR1, v)
	case regCR2:
		c.cr2 = setByte(c.cr2, offset-regCR2, v)
	case regDR:
		c.WriteDataRegister(v)
	}
	return nil
}

// Snapshot implements peripheral.Peripheral.
func (c *I2C) Snapshot() interface{} {
	return struct {
		CR1   uint32 `json:"cr1"`
		CR2   uint32 `json:"cr2"`
		TXLog []byte `json:"tx_log"`
	}{c.cr1, c.cr2, c.txLog}
}

func regOf(offset uint32) uint32 { return offset &^ 0x3 }

func byteAt(v uint32, byteOffset uint32) uint8 { return uint8(v >> (8 * byteOffset)) }

func setByte(v uint32, byteOffset uint32, b uint8) uint32 {
	shift := 8 * byteOffset
	return (v &^ (0xff << shift)) | (uint32(b) << shift)
}
