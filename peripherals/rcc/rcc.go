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

// Package rcc implements the Reset and Clock Control block: CR
// (HSION/HSEON/PLLON enable bits, with the matching ready bit self-setting
// one Tick after the enable bit is written — the one piece of "peripheral
// causality" RCC needs per SPEC_FULL.md §4.6), CFGR, and the
// APB1ENR/APB2ENR/AHBENR clock-gate registers, which are tracked but not
// enforced against peripheral MMIO access.
package rcc

import "github.com/w1ne/labwired/peripheral"

const (
	Size uint32 = 0x400

	regCR      = 0x00
	regCFGR    = 0x04
	regAPB2ENR = 0x18
	regAPB1ENR = 0x1C
	regAHBENR  = 0x14

	crHSION  = 1 << 0
	crHSIRDY = 1 << 1
	crHSEON  = 1 << 16
	crHSERDY = 1 << 17
	crPLLON  = 1 << 24
	crPLLRDY = 1 << 25
)

// RCC implements peripheral.Peripheral.
type RCC struct {
	peripheral.Base

	cr                       uint32
	cfgr                     uint32
	apb1enr, apb2enr, ahbenr uint32
	pendingReady             uint32 // enable bits written this step whose ready bit self-sets on the next Tick
}

// New constructs an RCC block with CR's HSI enable/ready bits already set,
// matching real silicon's default clock source out of reset.
func New(name string) *RCC {
	return &RCC{
		Base: peripheral.NewBase(name, peripheral.KindRCC, Size),
		cr:   crHSION | crHSIRDY,
	}
}

// Tick sets the ready bit for any oscillator whose enable bit was written
// during the previous step.
func (r *RCC) Tick() peripheral.TickResult {
	if r.pendingReady != 0 {
		r.cr |= readyBitFor(r.pendingReady)
		r.pendingReady = 0
	}
	return peripheral.DefaultTick()
}

func readyBitFor(enableBits uint32) uint32 {
	var ready uint32
	if enableBits&crHSEON != 0 {
		ready |= crHSERDY
	}
	if enableBits&crPLLON != 0 {
		ready |= crPLLRDY
	}
	return ready
}

// Read implements peripheral.Peripheral.
func (r *RCC) Read(offset uint32) (uint8, error) {
	if err := r.CheckOffset(offset); err != nil {
		return 0, err
	}
	switch regOf(offset) {
	case regCR:
		return byteAt(r.cr, offset-regCR), nil
	case regCFGR:
		return byteAt(r.cfgr, offset-regCFGR), nil
	case regAPB1ENR:
		return byteAt(r.apb1enr, offset-regAPB1ENR), nil
	case regAPB2ENR:
		return byteAt(r.apb2enr, offset-regAPB2ENR), nil
	case regAHBENR:
		return byteAt(r.ahbenr, offset-regAHBENR), nil
	default:
		return 0, nil
	}
}

// Write implements peripheral.Peripheral. Writing an oscillator's enable
// bit in CR queues the matching ready bit to self-set on the next Tick;
// it never sets immediately, so firmware that polls for the ready bit
// before assuming it is set always observes at least one Tick of
// latency.
func (r *RCC) Write(offset uint32, v uint8) error {
	if err := r.CheckOffset(offset); err != nil {
		return err
	}
	switch regOf(offset) {
	case regCR:
		before := r.cr
		r.cr = setByte(r.cr, offset-regCR, v)
		newlySet := r.cr &^ before
		r.pendingReady |= newlySet &^ (crHSIRDY | crHSERDY | crPLLRDY)
	case regCFGR:
		r.cfgr = setByte(r.cfgr, offset-regCFGR, v)
	case regAPB1ENR:
		r.apb1enr = setByte(r.apb1enr, offset-regAPB1ENR, v)
	case regAPB2ENR:
		r.apb2enr = setByte(r.apb2enr, offset-regAPB2ENR, v)
	case regAHBENR:
		r.ahbenr = setByte(r.ahbenr, offset-regAHBENR, v)
	}
	return nil
}

// Snapshot implements peripheral.Peripheral.
func (r *RCC) Snapshot() interface{} {
	return struct {
		CR      uint32 `json:"cr"`
		CFGR    uint32 `json:"cfgr"`
		APB1ENR uint32 `json:"apb1enr"`
		APB2ENR uint32 `json:"apb2enr"`
		AHBENR  uint32 `json:"ahbenr"`
	}{r.cr, r.cfgr, r.apb1enr, r.apb2enr, r.ahbenr}
}

func regOf(offset uint32) uint32 { return offset &^ 0x3 }

func byteAt(v uint32, byteOffset uint32) uint8 { return uint8(v >> (8 * byteOffset)) }

func setByte(v uint32, byteOffset uint32, b uint8) uint32 {
	shift := 8 * byteOffset
	return (v &^ (0xff << shift)) | (uint32(b) << shift)
}
