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

// Package dma implements the DMA controller named in spec.md §4.6: per-
// channel CCR, CNDTR, CPAR, CMAR. While a channel is enabled, each Tick
// emits one peripheral.DMARequest for one memory word (one channel per
// Tick's worth of channels, in channel order) until CNDTR reaches zero,
// at which point the channel sets its completion flag and, if TCIE is
// set, raises its IRQ. Per DESIGN.md's pinned DMA read-return pattern,
// the Bus settles each request same-tick against ordinary memory/
// peripheral routing — this peripheral never receives the transferred
// value back.
package dma

import "github.com/w1ne/labwired/peripheral"

const (
	NumChannels        = 4
	channelStride      = 0x14
	Size         uint32 = NumChannels * channelStride

	offCCR   = 0x00
	offCNDTR = 0x04
	offCPAR  = 0x08
	offCMAR  = 0x0C

	ccrEN   = 1 << 0
	ccrTCIE = 1 << 1
	ccrDIR  = 1 << 4 // 0: peripheral -> memory, 1: memory -> peripheral

	ccrTCIF = 1 << 31 // completion flag, kept in CCR's top bit for simplicity
)

type channel struct {
	ccr, cndtr, cpar, cmar uint32
	irq                    uint32
}

// DMA implements peripheral.Peripheral.
type DMA struct {
	peripheral.Base

	channels [NumChannels]channel
}

// New constructs a DMA controller with all channels disabled. irqs
// assigns the completion IRQ each channel raises when TCIE is set; a
// zero-length or short slice leaves the remaining channels' IRQ at 0.
func New(name string, irqs []uint32) *DMA {
	d := &DMA{Base: peripheral.NewBase(name, peripheral.KindDMA, Size)}
	for i := range d.channels {
		if i < len(irqs) {
			d.channels[i].irq = irqs[i]
		}
	}
	return d
}

// Tick emits one DMARequest per enabled, outstanding channel, in channel
// order.
func (d *DMA) Tick() peripheral.TickResult {
	result := peripheral.DefaultTick()

	for i := range d.channels {
		ch := &d.channels[i]
		if ch.ccr&ccrEN == 0 || ch.cndtr == 0 {
			continue
		}

		req := peripheral.DMARequest{
			Kind:    peripheral.DMAMemToMem,
			Width:   peripheral.WidthWord,
			Channel: i,
		}
		if ch.ccr&ccrDIR != 0 {
			req.Kind = peripheral.DMAMemToPeripheral
			req.SrcAddr = ch.cmar
			req.DstAddr = ch.cpar
		} else {
			req.Kind = peripheral.DMAPeripheralToMem
			req.SrcAddr = ch.cpar
			req.DstAddr = ch.cmar
		}
		result.DMARequests = append(result.DMARequests, req)

		ch.cndtr--
		if ch.cndtr == 0 {
			ch.ccr |= ccrTCIF
			if ch.ccr&ccrTCIE != 0 {
				irq := ch.irq
				result.IRQ = &irq
			}
		}
	}
	return result
}

// Read implements peripheral.Peripheral.
func (d *DMA) Read(offset uint32) (uint8, error) {
	if err := d.CheckOffset(offset); err != nil {
		return 0, err
	}
	ch, reg := d.channels[offset/channelStride], offset%channelStride
	switch regOf(reg) {
	case offCCR:
		return byteAt(ch.ccr, reg-offCCR), nil
	case offCNDTR:
		return byteAt(ch.cndtr, reg-offCNDTR), nil
	case offCPAR:
		return byteAt(ch.cpar, reg-offCPAR), nil
	case offCMAR:
		return byteAt(ch.cmar, reg-offCMAR), nil
	default:
		return 0, nil
	}
}

// Write implements peripheral.Peripheral.
func (d *DMA) Write(offset uint32, v uint8) error {
	if err := d.CheckOffset(offset); err != nil {
		return err
	}
	ch, reg := &d.channels[offset/channelStride], offset%channelStride
	switch regOf(reg) {
	case offCCR:
		ch.ccr = setByte(ch.ccr, reg-offCCR, v)
	case offCNDTR:
		ch.cndtr = setByte(ch.cndtr, reg-offCNDTR, v)
	case offCPAR:
		ch.cpar = setByte(ch.cpar, reg-offCPAR, v)
	case offCMAR:
		ch.cmar = setByte(ch.cmar, reg-offCMAR, v)
	}
	return nil
}

// Snapshot implements peripheral.Peripheral.
func (d *DMA) Snapshot() interface{} {
	type chanSnap struct {
		CCR   uint32 `json:"ccr"`
		CNDTR uint32 `json:"cndtr"`
		CPAR  uint32 `json:"cpar"`
		CMAR  uint32 `json:"cmar"`
	}
	snaps := make([]chanSnap, NumChannels)
	for i, ch := range d.channels {
		snaps[i] = chanSnap{ch.ccr, ch.cndtr, ch.cpar, ch.cmar}
	}
	return struct {
		Channels []chanSnap `json:"channels"`
	}{snaps}
}

func regOf(offset uint32) uint32 { return offset &^ 0x3 }

func byteAt(v uint32, byteOffset uint32) uint8 { return uint8(v >> (8 * byteOffset)) }

func setByte(v uint32, byteOffset uint32, b uint8) uint32 {
	shift := 8 * byteOffset
	return (v &^ (0xff << shift)) | (uint32(b) << shift)
}
