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

// Package exti implements the external interrupt/event controller: IMR,
// EMR (tracked but inert), RTSR/FTSR (tracked, no electrical model to
// compare edges against), PR (pending, write-1-to-clear). Edges are only
// generated by PendLine, an in-process call a GPIO peripheral or test
// harness makes to simulate a pin transition. PendLine maps line n to IRQ
// 16+n — a deliberate simplification of real silicon's non-contiguous
// EXTI0..4/EXTI9_5/EXTI15_10 grouping, recorded in DESIGN.md.
package exti

import "github.com/w1ne/labwired/peripheral"

const (
	Size uint32 = 0x400

	regIMR  = 0x00
	regEMR  = 0x04
	regRTSR = 0x08
	regFTSR = 0x0C
	regPR   = 0x14

	numLines = 32
)

// EXTI implements peripheral.Peripheral.
type EXTI struct {
	peripheral.Base

	imr, emr, rtsr, ftsr, pr uint32

	queuedIRQs []uint32
}

// New constructs an EXTI controller with all lines masked.
func New(name string) *EXTI {
	return &EXTI{Base: peripheral.NewBase(name, peripheral.KindEXTI, Size)}
}

// PendLine simulates an edge on line n. If the line is unmasked in IMR,
// it sets the matching PR bit and queues IRQ 16+n to be reported on the
// next Tick; ok is false if the line is masked, in which case nothing is
// pended.
func (e *EXTI) PendLine(n uint32) (irq uint32, ok bool) {
	if n >= numLines || e.imr&(1<<n) == 0 {
		return 0, false
	}
	e.pr |= 1 << n
	irq = 16 + n
	e.queuedIRQs = append(e.queuedIRQs, irq)
	return irq, true
}

// Tick reports the oldest still-queued line IRQ, if any, to the Bus. Only
// one IRQ can be surfaced per TickResult; additional queued lines are
// reported on subsequent Ticks.
func (e *EXTI) Tick() peripheral.TickResult {
	result := peripheral.DefaultTick()
	if len(e.queuedIRQs) == 0 {
		return result
	}
	irq := e.queuedIRQs[0]
	e.queuedIRQs = e.queuedIRQs[1:]
	result.IRQ = &irq
	return result
}

// Read implements peripheral.Peripheral.
func (e *EXTI) Read(offset uint32) (uint8, error) {
	if err := e.CheckOffset(offset); err != nil {
		return 0, err
	}
	switch regOf(offset) {
	case regIMR:
		return byteAt(e.imr, offset-regIMR), nil
	case regEMR:
		return byteAt(e.emr, offset-regEMR), nil
	case regRTSR:
		return byteAt(e.rtsr, offset-regRTSR), nil
	case regFTSR:
		return byteAt(e.ftsr, offset-regFTSR), nil
	case regPR:
		return byteAt(e.pr, offset-regPR), nil
	default:
		return 0, nil
	}
}

// Write implements peripheral.Peripheral. PR is write-1-to-clear.
func (e *EXTI) Write(offset uint32, v uint8) error {
	if err := e.CheckOffset(offset); err != nil {
		return err
	}
	switch regOf(offset) {
	case regIMR:
		e.imr = setByte(e.imr, offset-regIMR, v)
	case regEMR:
		e.emr = setByte(e.emr, offset-regEMR, v)
	case regRTSR:
		e.rtsr = setByte(e.rtsr, offset-regRTSR, v)
	case regFTSR:
		e.ftsr = setByte(e.ftsr, offset-regFTSR, v)
	case regPR:
		e.pr &^= setByte(0, offset-regPR, v)
	}
	return nil
}

// Snapshot implements peripheral.Peripheral.
func (e *EXTI) Snapshot() interface{} {
	return struct {
		IMR  uint32 `json:"imr"`
		EMR  uint32 `json:"emr"`
		RTSR uint32 `json:"rtsr"`
		FTSR uint32 `json:"ftsr"`
		PR   uint32 `json:"pr"`
	}{e.imr, e.emr, e.rtsr, e.ftsr, e.pr}
}

func regOf(offset uint32) uint32 { return offset &^ 0x3 }

func byteAt(v uint32, byteOffset uint32) uint8 { return uint8(v >> (8 * byteOffset)) }

func setByte(v uint32, byteOffset uint32, b uint8) uint32 {
	shift := 8 * byteOffset
	return (v &^ (0xff << shift)) | (uint32(b) << shift)
}
