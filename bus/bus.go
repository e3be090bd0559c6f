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

// Package bus implements the memory-mapped bus: address decoding between
// flash/RAM regions and peripheral windows, the once-per-step peripheral
// tick/DMA-settlement protocol, and exception-pending delivery to the CPU.
//
// The routing table is a small, sorted slice searched linearly — grounded
// on the range-search pattern in
// _examples/JetSetIlly-Gopher2600/hardware/memory/cartridge/arm/memory_access.go,
// where a handful of named memory blocks are probed by address range. No
// interval-tree or routing library appears anywhere in the retrieved pack
// for this scale (a chip descriptor has on the order of tens of regions).
package bus

import (
	"fmt"
	"sort"

	"github.com/w1ne/labwired/logger"
	"github.com/w1ne/labwired/memory"
	"github.com/w1ne/labwired/peripheral"
	"github.com/w1ne/labwired/simerror"
)

// nvicController is the narrow interface the Bus needs from whichever
// peripheral was registered as the NVIC. It is intentionally not part of
// the general peripheral.Peripheral contract: the Bus must be able to pend
// and query exceptions without every other peripheral kind needing the
// same methods.
type nvicController interface {
	Pend(irq uint32)
	Acknowledge(irq uint32)
	HighestPending(primaskSet bool) (uint32, bool)
}

// vtorProvider is the narrow interface the Bus needs from whichever
// peripheral was registered as the SCB, so the CPU can refresh its VTOR
// copy through the Bus rather than reaching for the concrete scb.SCB type
// directly (spec.md §9 "Shared VTOR" design note).
type vtorProvider interface {
	VTOR() uint32
}

type routeKind int

const (
	routeRegion routeKind = iota
	routePeripheral
)

type route struct {
	base   uint32
	size   uint32
	kind   routeKind
	region *memory.Region
	periph peripheral.Peripheral
}

func (r *route) contains(addr uint32) bool {
	return addr >= r.base && uint64(addr) < uint64(r.base)+uint64(r.size)
}

// Bus routes CPU and DMA accesses to memory regions or peripherals, and
// drives the per-step peripheral tick protocol.
type Bus struct {
	routes      []route
	peripherals []peripheral.Peripheral // registration order, for deterministic tick order
	nvic        nvicController
	scb         vtorProvider

	pendingException *uint32
}

// New returns an empty Bus with no routes registered.
func New() *Bus {
	return &Bus{}
}

// AddRegion registers a flash or RAM region for the given address range.
// It must only be called during construction; Construction rejects
// overlapping ranges.
func (b *Bus) AddRegion(r *memory.Region) error {
	return b.addRoute(route{base: r.Base, size: r.Size(), kind: routeRegion, region: r})
}

// RegisterPeripheral registers a peripheral's MMIO window. It must only be
// called during construction. If the peripheral's Kind is KindNVIC, the Bus
// also wires it as its exception controller — it must implement
// nvicController.
func (b *Bus) RegisterPeripheral(base uint32, p peripheral.Peripheral) error {
	if err := b.addRoute(route{base: base, size: p.Size(), kind: routePeripheral, periph: p}); err != nil {
		return err
	}
	b.peripherals = append(b.peripherals, p)

	if p.Kind() == peripheral.KindNVIC {
		nvic, ok := p.(nvicController)
		if !ok {
			return &simerror.Internal{Message: "peripheral registered as NVIC does not implement nvicController"}
		}
		b.nvic = nvic
	}
	if p.Kind() == peripheral.KindSCB {
		scb, ok := p.(vtorProvider)
		if !ok {
			return &simerror.Internal{Message: "peripheral registered as SCB does not implement vtorProvider"}
		}
		b.scb = scb
	}
	return nil
}

// VTOR returns the vector table base address from the registered SCB
// peripheral, or zero if none is registered. The CPU calls this to refresh
// its own cached copy immediately before every exception-entry vector
// fetch, per spec.md §9's single-writer/read-through design.
func (b *Bus) VTOR() uint32 {
	if b.scb == nil {
		return 0
	}
	return b.scb.VTOR()
}

func (b *Bus) addRoute(r route) error {
	for _, existing := range b.routes {
		if rangesOverlap(existing.base, existing.size, r.base, r.size) {
			return &simerror.Internal{Message: fmt.Sprintf("route %#08x..%#08x overlaps existing route %#08x..%#08x",
				r.base, uint64(r.base)+uint64(r.size), existing.base, uint64(existing.base)+uint64(existing.size))}
		}
	}
	b.routes = append(b.routes, r)
	sort.Slice(b.routes, func(i, j int) bool { return b.routes[i].base < b.routes[j].base })
	return nil
}

func rangesOverlap(baseA, sizeA, baseB, sizeB uint32) bool {
	endA := uint64(baseA) + uint64(sizeA)
	endB := uint64(baseB) + uint64(sizeB)
	return uint64(baseA) < endB && uint64(baseB) < endA
}

func (b *Bus) findRoute(addr uint32) (*route, uint32, error) {
	for i := range b.routes {
		if b.routes[i].contains(addr) {
			return &b.routes[i], addr - b.routes[i].base, nil
		}
	}
	return nil, 0, &simerror.MemoryFault{Addr: addr}
}

// ReadU8 reads a single byte at addr.
func (b *Bus) ReadU8(addr uint32) (uint8, error) {
	r, off, err := b.findRoute(addr)
	if err != nil {
		return 0, err
	}
	if r.kind == routeRegion {
		return r.region.ReadU8(off)
	}
	return r.periph.Read(off)
}

// WriteU8 writes a single byte at addr. Writing to a flash region during
// execution fails with simerror.WriteToFlash.
func (b *Bus) WriteU8(addr uint32, v uint8) error {
	r, off, err := b.findRoute(addr)
	if err != nil {
		return err
	}
	if r.kind == routeRegion {
		if r.region.Kind == memory.Flash {
			return &simerror.WriteToFlash{Addr: addr}
		}
		return r.region.WriteU8(off, v)
	}
	return r.periph.Write(off, v)
}

// ReadU16 reads a little-endian halfword at addr. Peripheral accesses are
// decomposed into two ascending-offset byte reads.
func (b *Bus) ReadU16(addr uint32) (uint16, error) {
	r, off, err := b.findRoute(addr)
	if err != nil {
		return 0, err
	}
	if r.kind == routeRegion {
		return r.region.ReadU16(off)
	}
	lo, err := r.periph.Read(off)
	if err != nil {
		return 0, err
	}
	hi, err := r.periph.Read(off + 1)
	if err != nil {
		return 0, err
	}
	return uint16(lo) | uint16(hi)<<8, nil
}

// WriteU16 writes a little-endian halfword at addr, decomposed into two
// ascending-offset byte writes for peripherals.
func (b *Bus) WriteU16(addr uint32, v uint16) error {
	r, off, err := b.findRoute(addr)
	if err != nil {
		return err
	}
	if r.kind == routeRegion {
		if r.region.Kind == memory.Flash {
			return &simerror.WriteToFlash{Addr: addr}
		}
		return r.region.WriteU16(off, v)
	}
	if err := r.periph.Write(off, byte(v)); err != nil {
		return err
	}
	return r.periph.Write(off+1, byte(v>>8))
}

// ReadU32 reads a little-endian word at addr, decomposed into four
// ascending-offset byte reads for peripherals.
func (b *Bus) ReadU32(addr uint32) (uint32, error) {
	r, off, err := b.findRoute(addr)
	if err != nil {
		return 0, err
	}
	if r.kind == routeRegion {
		return r.region.ReadU32(off)
	}
	var v uint32
	for i := uint32(0); i < 4; i++ {
		byt, err := r.periph.Read(off + i)
		if err != nil {
			return 0, err
		}
		v |= uint32(byt) << (8 * i)
	}
	return v, nil
}

// WriteU32 writes a little-endian word at addr, decomposed into four
// ascending-offset byte writes for peripherals.
func (b *Bus) WriteU32(addr uint32, v uint32) error {
	r, off, err := b.findRoute(addr)
	if err != nil {
		return err
	}
	if r.kind == routeRegion {
		if r.region.Kind == memory.Flash {
			return &simerror.WriteToFlash{Addr: addr}
		}
		return r.region.WriteU32(off, v)
	}
	for i := uint32(0); i < 4; i++ {
		if err := r.periph.Write(off+i, byte(v>>(8*i))); err != nil {
			return err
		}
	}
	return nil
}

// LoadSegment copies bytes into the region containing base, bypassing
// flash write protection. This is the loader path — it must only be
// called before execution begins (or during a controlled reset/reflash).
func (b *Bus) LoadSegment(base uint32, data []byte) error {
	r, off, err := b.findRoute(base)
	if err != nil {
		return err
	}
	if r.kind != routeRegion {
		return &simerror.Internal{Message: fmt.Sprintf("load segment targets peripheral window at %#08x", base)}
	}
	return r.region.WriteRaw(off, data)
}

// TickPeripherals invokes Tick() on every registered peripheral in
// registration order, settles any DMA requests they returned, and forwards
// every IRQ number observed to the NVIC (or, if none is registered, pends
// core exceptions directly). It is called exactly once per CPU step, after
// the CPU's own execute phase.
//
// It deliberately does not resolve which exception is eligible to fire —
// that depends on the CPU's PRIMASK, which can change during the step that
// just ran. Resolution happens lazily in NextException, called at the start
// of the CPU's next step with its then-current PRIMASK state.
func (b *Bus) TickPeripherals() {
	var irqs []uint32
	var cycles uint32

	for _, p := range b.peripherals {
		result := p.Tick()
		cycles += result.Cycles
		if result.IRQ != nil {
			irqs = append(irqs, *result.IRQ)
		}
		for _, req := range result.DMARequests {
			if err := b.executeDMA(req); err != nil {
				logger.Logf(logger.Allow, "bus", "dma request failed: %v", err)
			}
		}
	}

	if b.nvic != nil {
		for _, irq := range irqs {
			b.nvic.Pend(irq)
		}
		return
	}

	// no NVIC registered: core exceptions (< 16) still need somewhere to
	// land, so pend them directly against a nil-safe fallback.
	for _, irq := range irqs {
		if irq < 16 {
			b.pendingException = irqPtr(irq)
		}
	}
}

func irqPtr(irq uint32) *uint32 { return &irq }

// executeDMA carries out a single DMA bus-mastering request: reads
// SrcAddr then writes the same value to DstAddr, at the given width, using
// the normal Bus access path (so flash protection and routing still
// apply). For memory-to-memory and memory-to-peripheral channels this is
// a plain read-then-write; peripheral-to-memory channels set SrcAddr to
// the peripheral's own data register so the read side pulls the value the
// peripheral already staged there.
func (b *Bus) executeDMA(req peripheral.DMARequest) error {
	var value uint32
	var err error

	switch req.Width {
	case peripheral.WidthByte:
		var v uint8
		v, err = b.ReadU8(req.SrcAddr)
		value = uint32(v)
	case peripheral.WidthHalf:
		var v uint16
		v, err = b.ReadU16(req.SrcAddr)
		value = uint32(v)
	default:
		value, err = b.ReadU32(req.SrcAddr)
	}
	if err != nil {
		return err
	}

	switch req.Width {
	case peripheral.WidthByte:
		return b.WriteU8(req.DstAddr, uint8(value))
	case peripheral.WidthHalf:
		return b.WriteU16(req.DstAddr, uint16(value))
	default:
		return b.WriteU32(req.DstAddr, value)
	}
}

// NextException reports the exception number the CPU should consider
// taking, evaluated fresh against the NVIC's current pending/enabled state
// and the caller's primaskSet — the CPU passes its own PRIMASK bit here at
// the start of every step, so masking takes effect immediately rather than
// lagging by one step. When no NVIC is registered, it falls back to
// whatever core exception TickPeripherals last pended directly; primaskSet
// has no effect on that fallback, since core exceptions are never
// PRIMASK-maskable.
func (b *Bus) NextException(primaskSet bool) (uint32, bool) {
	if b.nvic != nil {
		return b.nvic.HighestPending(primaskSet)
	}
	if b.pendingException == nil {
		return 0, false
	}
	return *b.pendingException, true
}

// AcknowledgeException clears the pending exception after the CPU has
// taken it, including the corresponding NVIC pending bit so the same
// interrupt does not immediately refire from stale state.
func (b *Bus) AcknowledgeException(irq uint32) {
	b.pendingException = nil
	if b.nvic != nil {
		b.nvic.Acknowledge(irq)
	}
}

// Peripherals returns every registered peripheral in registration order,
// for snapshotting.
func (b *Bus) Peripherals() []peripheral.Peripheral {
	return b.peripherals
}
