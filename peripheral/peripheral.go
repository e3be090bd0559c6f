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

// Package peripheral defines the contract every memory-mapped peripheral
// implements, and the closed set of peripheral kinds the Bus can route to.
// Dispatch is via this interface (dynamic dispatch over a small capability
// set) rather than a tagged-union switch in the Bus, per the design note in
// spec.md §9 — this is what lets two peripherals (e.g. a DMA controller and
// an SPI peripheral) hold typed references to each other for the downcast
// pattern without the Bus ever knowing about either concrete type.
package peripheral

import "github.com/w1ne/labwired/simerror"

// Kind enumerates the closed peripheral set named in spec.md §4.3. It is
// used for snapshot/debug labeling only; routing and access go through the
// Peripheral interface.
type Kind string

const (
	KindSysTick Kind = "systick"
	KindNVIC    Kind = "nvic"
	KindSCB     Kind = "scb"
	KindUART    Kind = "uart"
	KindGPIO    Kind = "gpio"
	KindRCC     Kind = "rcc"
	KindTIM     Kind = "tim"
	KindI2C     Kind = "i2c"
	KindSPI     Kind = "spi"
	KindDMA     Kind = "dma"
	KindEXTI    Kind = "exti"
	KindAFIO    Kind = "afio"
	KindStub    Kind = "stub"
)

// DMARequestKind distinguishes a memory-to-memory transfer from one that
// also touches a peripheral's data register.
type DMARequestKind int

const (
	DMAMemToMem DMARequestKind = iota
	DMAMemToPeripheral
	DMAPeripheralToMem
)

// DMARequest describes one bus-mastering transfer a peripheral's Tick
// wants the Bus to carry out on its behalf this step. Per DESIGN.md's
// pinned DMA read-return pattern, a request carries the source and
// destination addresses but no data value: the Bus reads SrcAddr and
// writes that value to DstAddr, and the issuing peripheral never receives
// the transferred value back.
type DMARequest struct {
	Kind    DMARequestKind
	SrcAddr uint32
	DstAddr uint32
	Width   Width
	Channel int
}

// Width is the access granularity of a single DMA beat.
type Width int

const (
	WidthByte Width = 1
	WidthHalf Width = 2
	WidthWord Width = 4
)

// TickResult is returned once per peripheral per CPU step. The zero value
// reports zero cycles; DefaultTick returns the spec-mandated default: no
// IRQ, one cycle, no DMA requests.
type TickResult struct {
	IRQ         *uint32
	Cycles      uint32
	DMARequests []DMARequest
}

// DefaultTick returns the spec's default tick result. Peripherals that
// never raise interrupts or request DMA (GPIO, RCC, AFIO, Stub) can return
// this unconditionally from Tick.
func DefaultTick() TickResult {
	return TickResult{Cycles: 1}
}

// Base carries the identity fields every peripheral has (name, kind,
// declared size) and the spec-mandated default Tick/Snapshot behavior.
// Concrete peripherals embed Base and override Tick/Snapshot/Read/Write as
// needed, rather than repeating the same three accessor methods thirteen
// times.
type Base struct {
	name string
	kind Kind
	size uint32
}

// NewBase constructs the identity fields shared by every peripheral.
func NewBase(name string, kind Kind, size uint32) Base {
	return Base{name: name, kind: kind, size: size}
}

func (b Base) Name() string { return b.name }
func (b Base) Kind() Kind   { return b.kind }
func (b Base) Size() uint32 { return b.size }

// Tick returns the spec-mandated default: no IRQ, one cycle, no DMA.
func (b Base) Tick() TickResult { return DefaultTick() }

// Snapshot returns nil (serializes as JSON null) by default.
func (b Base) Snapshot() interface{} { return nil }

// CheckOffset returns simerror.MemoryOutOfBounds if offset is beyond the
// peripheral's declared size. Concrete Read/Write implementations call
// this first.
func (b Base) CheckOffset(offset uint32) error {
	if offset >= b.size {
		return &simerror.MemoryOutOfBounds{Addr: offset}
	}
	return nil
}

// Peripheral is the uniform, byte-granular MMIO contract every peripheral
// implements. Offsets are relative to the peripheral's own base address —
// the Bus decomposes halfword/word accesses into ascending-offset byte
// calls before reaching here, so implementations never need to reassemble
// multi-byte values themselves; they only need to tolerate being addressed
// one byte at a time, including for registers that are conceptually 32-bit.
type Peripheral interface {
	// Name is the peripheral's manifest-assigned identifier, used as its
	// key in Machine snapshots and in log tags.
	Name() string

	// Read returns the byte at offset. Offsets beyond the peripheral's
	// declared size fail with simerror.MemoryOutOfBounds.
	Read(offset uint32) (uint8, error)

	// Write stores the byte at offset. Offsets beyond the peripheral's
	// declared size fail with simerror.MemoryOutOfBounds.
	Write(offset uint32, v uint8) error

	// Tick advances the peripheral's internal state by one CPU step. It
	// may not fail: an internal error is logged and treated as a no-op
	// tick, per spec.md §7.
	Tick() TickResult

	// Snapshot returns a structured, JSON-marshalable dump of the
	// peripheral's visible state. The default is nil (serializes as
	// JSON null).
	Snapshot() interface{}

	// Kind reports which of the closed peripheral variants this is, for
	// labeling in snapshots and logs.
	Kind() Kind

	// Size reports the peripheral's declared MMIO extent in bytes.
	Size() uint32
}
