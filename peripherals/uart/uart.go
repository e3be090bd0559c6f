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

// Package uart implements the UART peripheral (spec.md §4.6): writes to
// the data register are captured to a sink and, unless suppressed,
// mirrored to an echo writer; the status register always reports
// TX-ready; RX is sourced from an injection queue a test or host harness
// feeds ahead of time.
package uart

import (
	"io"

	"github.com/w1ne/labwired/peripheral"
)

const (
	Size uint32 = 0x08

	regDR = 0x00
	regSR = 0x04

	srTXReady = 1 << 0
	srRXReady = 1 << 1
)

// UART implements peripheral.Peripheral.
type UART struct {
	peripheral.Base

	sink     []byte
	echo     io.Writer
	suppress bool

	rxQueue []byte
}

// New constructs a UART with an empty capture sink and no echo writer.
func New(name string) *UART {
	return &UART{Base: peripheral.NewBase(name, peripheral.KindUART, Size)}
}

// SetEcho sets (or, with nil, clears) the writer TX bytes are mirrored to
// in addition to the capture sink. Tests typically leave this nil and
// inspect Captured instead; a CLI host wires os.Stdout here unless
// config.Options.SuppressUART is set.
func (u *UART) SetEcho(w io.Writer) { u.echo = w }

// SetSuppress, when true, makes data-register writes a no-op: bytes are
// neither captured nor echoed. machine.New applies this from
// config.Options.SuppressUART to every registered UART.
func (u *UART) SetSuppress(suppress bool) { u.suppress = suppress }

// Captured returns every byte written to the data register so far.
func (u *UART) Captured() []byte { return u.sink }

// InjectRX appends a byte to the RX queue, to be returned by the next
// reads of the data register.
func (u *UART) InjectRX(b byte) { u.rxQueue = append(u.rxQueue, b) }

// Read implements peripheral.Peripheral.
func (u *UART) Read(offset uint32) (uint8, error) {
	if err := u.CheckOffset(offset); err != nil {
		return 0, err
	}
	switch offset {
	case regDR:
		if len(u.rxQueue) == 0 {
			return 0, nil
		}
		b := u.rxQueue[0]
		u.rxQueue = u.rxQueue[1:]
		return b, nil
	case regSR:
		sr := uint8(srTXReady)
		if len(u.rxQueue) > 0 {
			sr |= srRXReady
		}
		return sr, nil
	default:
		return 0, nil
	}
}

// Write implements peripheral.Peripheral. Only the data register is
// writable; writes there append to the capture sink and, if an echo
// writer is set, are mirrored there too.
func (u *UART) Write(offset uint32, v uint8) error {
	if err := u.CheckOffset(offset); err != nil {
		return err
	}
	if offset != regDR {
		return nil
	}
	if u.suppress {
		return nil
	}
	u.sink = append(u.sink, v)
	if u.echo != nil {
		_, _ = u.echo.Write([]byte{v})
	}
	return nil
}

// Snapshot implements peripheral.Peripheral.
func (u *UART) Snapshot() interface{} {
	return struct {
		Captured string `json:"captured"`
	}{string(u.sink)}
}
