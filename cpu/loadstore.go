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

package cpu

import (
	"math/bits"

	"github.com/w1ne/labwired/bus"
	"github.com/w1ne/labwired/decoder"
)

// execLoadStore handles the single-register LDR/STR family (word, byte,
// halfword, and LDRD/STRD's paired word). Rn==PC is the literal-pool
// form, which reads relative to the post-increment PC value rounded down
// to a word boundary, and never writes back.
func (c *CPU) execLoadStore(b *bus.Bus, insn decoder.Instruction) error {
	offset := insn.Imm
	if insn.Rm >= 0 {
		offset = c.R[insn.Rm]
	}

	base := c.R[insn.Rn]
	if insn.Rn == RegPC {
		base = c.R[RegPC] &^ 3
	}

	addr := base
	if insn.Index {
		if insn.Add {
			addr = base + offset
		} else {
			addr = base - offset
		}
	}

	switch insn.Op {
	case decoder.OpLDR:
		v, err := b.ReadU32(addr)
		if err != nil {
			return err
		}
		c.R[insn.Rd] = v
	case decoder.OpLDRB:
		v, err := b.ReadU8(addr)
		if err != nil {
			return err
		}
		c.R[insn.Rd] = uint32(v)
	case decoder.OpLDRH:
		v, err := b.ReadU16(addr)
		if err != nil {
			return err
		}
		c.R[insn.Rd] = uint32(v)
	case decoder.OpSTR:
		if err := b.WriteU32(addr, c.R[insn.Rd]); err != nil {
			return err
		}
	case decoder.OpSTRB:
		if err := b.WriteU8(addr, uint8(c.R[insn.Rd])); err != nil {
			return err
		}
	case decoder.OpSTRH:
		if err := b.WriteU16(addr, uint16(c.R[insn.Rd])); err != nil {
			return err
		}
	case decoder.OpLDRD:
		v0, err := b.ReadU32(addr)
		if err != nil {
			return err
		}
		v1, err := b.ReadU32(addr + 4)
		if err != nil {
			return err
		}
		c.R[insn.Rd] = v0
		c.R[insn.Ra] = v1
	case decoder.OpSTRD:
		if err := b.WriteU32(addr, c.R[insn.Rd]); err != nil {
			return err
		}
		if err := b.WriteU32(addr+4, c.R[insn.Ra]); err != nil {
			return err
		}
	}

	if insn.Writeback && insn.Rn != RegPC {
		if insn.Index {
			c.R[insn.Rn] = addr
		} else if insn.Add {
			c.R[insn.Rn] = base + offset
		} else {
			c.R[insn.Rn] = base - offset
		}
	}
	return nil
}

// execMultiple handles LDM/STM with an ascending register list starting
// at Rn, per spec.md's "LDM/STM (register list)". A load that lands an
// EXC_RETURN sentinel in PC triggers exception return instead of leaving
// the sentinel in place, per spec.md §4.4 step 5.
func (c *CPU) execMultiple(b *bus.Bus, insn decoder.Instruction) error {
	addr := c.R[insn.Rn]
	excReturn := false

	for i := 0; i < 16; i++ {
		if insn.RegList&(1<<uint(i)) == 0 {
			continue
		}
		switch insn.Op {
		case decoder.OpLDM:
			v, err := b.ReadU32(addr)
			if err != nil {
				return err
			}
			c.R[i] = v
			if i == RegPC && isExcReturn(v) {
				excReturn = true
			}
		case decoder.OpSTM:
			if err := b.WriteU32(addr, c.R[i]); err != nil {
				return err
			}
		}
		addr += 4
	}

	if insn.Writeback {
		c.R[insn.Rn] = addr
	}
	if excReturn {
		return c.returnFromException(b)
	}
	return nil
}

// execPush writes the listed registers to the block just below the
// current SP, in ascending register order at ascending addresses starting
// at SP-4*count (lowest-numbered register at the lowest address), per the
// Thumb PUSH encoding's fixed {..., LR} convention.
func (c *CPU) execPush(b *bus.Bus, insn decoder.Instruction) error {
	count := uint32(bits.OnesCount16(insn.RegList))
	base := c.R[RegSP] - 4*count

	addr := base
	for i := 0; i < 16; i++ {
		if insn.RegList&(1<<uint(i)) == 0 {
			continue
		}
		if err := b.WriteU32(addr, c.R[i]); err != nil {
			return err
		}
		addr += 4
	}
	c.R[RegSP] = base
	return nil
}

// execPop reads the listed registers from memory in ascending register
// order starting at the current SP, advancing SP past what it consumed.
// A popped PC carrying an EXC_RETURN sentinel triggers exception return
// (spec.md §4.4 step 5) rather than a plain branch.
func (c *CPU) execPop(b *bus.Bus, insn decoder.Instruction) error {
	addr := c.R[RegSP]
	excReturn := false

	for i := 0; i < 16; i++ {
		if insn.RegList&(1<<uint(i)) == 0 {
			continue
		}
		v, err := b.ReadU32(addr)
		if err != nil {
			return err
		}
		c.R[i] = v
		if i == RegPC && isExcReturn(v) {
			excReturn = true
		}
		addr += 4
	}
	c.R[RegSP] = addr

	if excReturn {
		return c.returnFromException(b)
	}
	return nil
}
