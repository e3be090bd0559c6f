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

// Package cpu implements the ARMv7-M/Thumb-2 register file, status flags,
// and the fetch/decode/execute/exception-entry step loop described in
// spec.md §4.4. The flag representation (separate N/Z/C/V booleans) and
// the condition-code table are grounded on
// _examples/JetSetIlly-Gopher2600/hardware/memory/cartridge/arm/status.go;
// the arithmetic carry/overflow primitives come from the armbits package,
// itself grounded on that teacher's thumb2_helpers.go.
package cpu

import (
	"github.com/w1ne/labwired/bus"
	"github.com/w1ne/labwired/decoder"
	"github.com/w1ne/labwired/simerror"
)

// SP, LR and PC are conventional names for R13, R14 and R15.
const (
	RegSP = 13
	RegLR = 14
	RegPC = 15
)

// excReturnPrefix is the fixed top 24 bits of every EXC_RETURN sentinel
// value; the bottom byte distinguishes stack/mode but this simulator does
// not model the process/main stack split, so any value with this prefix is
// treated as a return.
const excReturnPrefix = 0xFFFFFF00

// CPU holds the ARMv7-M register file and status the spec names in §3:
// sixteen general registers, the N/Z/C/V condition flags, IPSR, PRIMASK
// and VTOR. VTOR additionally lives in the SCB peripheral; the copy here
// is refreshed from the Bus immediately before every exception-entry
// vector fetch, never written back.
type CPU struct {
	R [16]uint32

	N, Z, C, V bool
	IPSR       uint32

	PRIMASK uint32
	VTOR    uint32

	inHandler bool

	// Halted is set by executing WFI and cleared by the next exception
	// entry, per spec.md §6's "halt" stop reason: a Machine driving this
	// CPU should stop calling Step once it observes this set, rather than
	// spin re-decoding the instruction after WFI forever.
	Halted bool
}

// New returns a CPU with all state zeroed; call Reset before stepping.
func New() *CPU {
	return &CPU{}
}

// Reset implements spec.md §4.4's reset algorithm: general registers
// zeroed, LR set to the all-ones sentinel, PRIMASK and xPSR cleared, then
// SP/PC loaded from the vector table at VTOR+0/VTOR+4. VTOR itself is
// preserved across reset.
func (c *CPU) Reset(b *bus.Bus) error {
	for i := 0; i <= 12; i++ {
		c.R[i] = 0
	}
	c.R[RegLR] = 0xFFFFFFFF
	c.PRIMASK = 0
	c.N, c.Z, c.C, c.V = false, false, false, false
	c.IPSR = 0
	c.inHandler = false
	c.Halted = false

	sp, err := b.ReadU32(c.VTOR + 0)
	if err != nil {
		return err
	}
	pc, err := b.ReadU32(c.VTOR + 4)
	if err != nil {
		return err
	}
	c.R[RegSP] = sp
	c.R[RegPC] = pc &^ 1
	return nil
}

// PrimaskSet reports whether bit 0 of PRIMASK is set, masking
// configurable-priority (external, IRQ>=16) exceptions.
func (c *CPU) PrimaskSet() bool { return c.PRIMASK&1 != 0 }

// xpsrWord packs N/Z/C/V into bits 31..28 and IPSR into bits 8..0, the
// layout original_source/crates/core/src/cpu/mod.rs uses when constructing
// a pushed or queried xPSR word. This packing only happens at the
// push-frame/snapshot boundary; internally flags stay as separate fields.
func (c *CPU) xpsrWord() uint32 {
	var w uint32
	if c.N {
		w |= 1 << 31
	}
	if c.Z {
		w |= 1 << 30
	}
	if c.C {
		w |= 1 << 29
	}
	if c.V {
		w |= 1 << 28
	}
	w |= c.IPSR & 0x1ff
	return w
}

func (c *CPU) setXpsrWord(w uint32) {
	c.N = w&(1<<31) != 0
	c.Z = w&(1<<30) != 0
	c.C = w&(1<<29) != 0
	c.V = w&(1<<28) != 0
	c.IPSR = w & 0x1ff
}

// XPSR returns the packed program status word, for snapshotting.
func (c *CPU) XPSR() uint32 { return c.xpsrWord() }

// SetXPSR unpacks a packed program status word into the flag and IPSR
// fields, the inverse of XPSR. Used by machine.Machine.Restore for
// snapshot round trips.
func (c *CPU) SetXPSR(w uint32) { c.setXpsrWord(w) }

// Step implements the per-step algorithm of spec.md §4.4:
//  1. Sample the next eligible exception and, if present, enter it instead
//     of fetching.
//  2. Fetch one halfword (and a suffix halfword for 32-bit encodings).
//  3. Advance PC before executing.
//  4. Execute, updating flags as the instruction dictates.
//  5. Detect EXC_RETURN branches and unstack instead of branching plainly.
//
// It returns the number of cycles retired -- one for a 16-bit instruction,
// two for a 32-bit one, matching peripheral.DefaultTick's granularity -- and
// any error, which the Machine propagates unchanged.
func (c *CPU) Step(b *bus.Bus) (uint32, error) {
	if irq, ok := b.NextException(c.PrimaskSet()); ok {
		c.Halted = false
		if err := c.enterException(b, irq); err != nil {
			return 0, err
		}
		b.AcknowledgeException(irq)
		return 1, nil
	}

	if c.Halted {
		return 1, nil
	}

	pc := c.R[RegPC]
	if pc&1 != 0 {
		return 0, &simerror.UnalignedFetch{PC: pc}
	}

	hi, err := b.ReadU16(pc)
	if err != nil {
		return 0, err
	}

	insn, wide := decoder.Decode(hi, 0)
	if wide {
		lo, err := b.ReadU16(pc + 2)
		if err != nil {
			return 0, err
		}
		insn, _ = decoder.Decode(hi, lo)
	}

	if insn.Op == decoder.OpUnknown {
		return 0, &simerror.UnknownInstruction{PC: pc, Opcode: uint32(hi)}
	}

	if wide {
		c.R[RegPC] = pc + 4
	} else {
		c.R[RegPC] = pc + 2
	}

	if err := c.execute(b, insn); err != nil {
		return 0, err
	}
	if wide {
		return 2, nil
	}
	return 1, nil
}

// isExcReturn reports whether v is an EXC_RETURN sentinel: the top three
// bytes all ones, per spec.md §4.4 step 5 and §4.5's return-mode encoding.
func isExcReturn(v uint32) bool {
	return v&excReturnPrefix == excReturnPrefix
}
