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
	"fmt"
	"math/bits"

	"github.com/w1ne/labwired/armbits"
	"github.com/w1ne/labwired/bus"
	"github.com/w1ne/labwired/decoder"
	"github.com/w1ne/labwired/simerror"
)

// execute dispatches a decoded instruction, per spec.md §4.4 step 4's
// "execute, possibly issuing further bus reads/writes" and step 5's
// EXC_RETURN check. Arithmetic helpers come from armbits, shared with the
// decoder's modified-immediate expansion.
func (c *CPU) execute(b *bus.Bus, insn decoder.Instruction) error {
	switch insn.Op {
	case decoder.OpNOP, decoder.OpIT:
		return nil
	case decoder.OpWFI:
		c.Halted = true
		return nil

	case decoder.OpCPSIE:
		c.PRIMASK = 0
		return nil
	case decoder.OpCPSID:
		c.PRIMASK = 1
		return nil

	case decoder.OpMOV:
		result := c.operand2(insn)
		c.R[insn.Rd] = result
		if insn.SetFlags {
			c.setNZ(result)
		}
		return nil
	case decoder.OpMVN:
		result := ^c.operand2(insn)
		c.R[insn.Rd] = result
		if insn.SetFlags {
			c.setNZ(result)
		}
		return nil
	case decoder.OpMOVW:
		c.R[insn.Rd] = insn.Imm
		return nil
	case decoder.OpMOVT:
		c.R[insn.Rd] = (c.R[insn.Rd] &^ 0xffff0000) | (insn.Imm << 16)
		return nil

	case decoder.OpADD, decoder.OpADC, decoder.OpSUB, decoder.OpSBC, decoder.OpCMP, decoder.OpCMN, decoder.OpNEG:
		return c.execAddSub(insn)

	case decoder.OpAND, decoder.OpORR, decoder.OpEOR, decoder.OpBIC, decoder.OpORN, decoder.OpTST:
		return c.execLogic(insn)

	case decoder.OpMUL:
		result := c.R[insn.Rn] * c.operand2(insn)
		c.R[insn.Rd] = result
		if insn.SetFlags {
			c.setNZ(result)
		}
		return nil

	case decoder.OpSDIV:
		if c.operand2(insn) == 0 {
			c.R[insn.Rd] = 0
			return nil
		}
		c.R[insn.Rd] = uint32(int32(c.R[insn.Rn]) / int32(c.operand2(insn)))
		return nil
	case decoder.OpUDIV:
		if c.operand2(insn) == 0 {
			c.R[insn.Rd] = 0
			return nil
		}
		c.R[insn.Rd] = c.R[insn.Rn] / c.operand2(insn)
		return nil

	case decoder.OpLSL, decoder.OpLSR, decoder.OpASR, decoder.OpROR, decoder.OpRRX:
		return c.execShift(insn)

	case decoder.OpB:
		c.branchRelative(insn.Imm)
		return nil
	case decoder.OpBcc:
		if c.condition(insn.Cond) {
			c.branchRelative(insn.Imm)
		}
		return nil
	case decoder.OpBL:
		c.R[RegLR] = c.R[RegPC]
		c.branchRelative(insn.Imm)
		return nil
	case decoder.OpBX:
		return c.execBranchExchange(b, insn.Rm, false)
	case decoder.OpBLX:
		return c.execBranchExchange(b, insn.Rm, true)
	case decoder.OpCBZ:
		if c.R[insn.Rn] == 0 {
			c.branchRelative(insn.Imm)
		}
		return nil
	case decoder.OpCBNZ:
		if c.R[insn.Rn] != 0 {
			c.branchRelative(insn.Imm)
		}
		return nil

	case decoder.OpLDR, decoder.OpLDRB, decoder.OpLDRH, decoder.OpSTR, decoder.OpSTRB, decoder.OpSTRH,
		decoder.OpLDRD, decoder.OpSTRD:
		return c.execLoadStore(b, insn)

	case decoder.OpLDM, decoder.OpSTM:
		return c.execMultiple(b, insn)
	case decoder.OpPUSH:
		return c.execPush(b, insn)
	case decoder.OpPOP:
		return c.execPop(b, insn)

	case decoder.OpBFI:
		mask := widthMask(insn.Width) << insn.Lsb
		c.R[insn.Rd] = (c.R[insn.Rd] &^ mask) | ((c.R[insn.Rn] << insn.Lsb) & mask)
		return nil
	case decoder.OpBFC:
		mask := widthMask(insn.Width) << insn.Lsb
		c.R[insn.Rd] &^= mask
		return nil
	case decoder.OpSBFX:
		v := (c.R[insn.Rn] >> insn.Lsb) & widthMask(insn.Width)
		shift := 32 - insn.Width
		c.R[insn.Rd] = uint32(int32(v<<shift) >> shift)
		return nil
	case decoder.OpUBFX:
		c.R[insn.Rd] = (c.R[insn.Rn] >> insn.Lsb) & widthMask(insn.Width)
		return nil

	case decoder.OpUXTB:
		c.R[insn.Rd] = c.R[insn.Rm] & 0xff
		return nil
	case decoder.OpCLZ:
		c.R[insn.Rd] = uint32(bits.LeadingZeros32(c.R[insn.Rm]))
		return nil
	case decoder.OpRBIT:
		c.R[insn.Rd] = bits.Reverse32(c.R[insn.Rm])
		return nil
	case decoder.OpREV:
		c.R[insn.Rd] = bits.ReverseBytes32(c.R[insn.Rm])
		return nil
	case decoder.OpREV16:
		v := c.R[insn.Rm]
		lo := bits.ReverseBytes16(uint16(v))
		hi := bits.ReverseBytes16(uint16(v >> 16))
		c.R[insn.Rd] = uint32(hi)<<16 | uint32(lo)
		return nil
	}

	return &simerror.Internal{Message: fmt.Sprintf("unimplemented op %d", insn.Op)}
}

func widthMask(width uint32) uint32 {
	if width >= 32 {
		return 0xffffffff
	}
	return (uint32(1) << width) - 1
}

// branchRelative applies a signed branch offset to PC. PC has already
// been advanced past the current instruction by Step, per spec.md §4.4
// step 3, so the offset the decoder produced is relative to that
// pre-incremented value.
func (c *CPU) branchRelative(imm uint32) {
	c.R[RegPC] = uint32(int32(c.R[RegPC]) + int32(imm))
}

// operand2 resolves a data-processing instruction's second operand: a
// register (decoder leaves Rm >= 0) or an already-expanded immediate
// (decoder leaves Rm == -1), per the field conventions set by
// decodeShiftOrAddSubReg/decodeDataProcessingRegister/
// decodeDataProcessingModifiedImmediate.
func (c *CPU) operand2(insn decoder.Instruction) uint32 {
	if insn.Rm >= 0 {
		return c.R[insn.Rm]
	}
	return insn.Imm
}

func (c *CPU) execAddSub(insn decoder.Instruction) error {
	a := c.R[insn.Rn]
	b := c.operand2(insn)

	var carryIn uint32
	var result uint32
	var carryOut, overflow bool

	switch insn.Op {
	case decoder.OpADD, decoder.OpCMN:
		result, carryOut, overflow = armbits.AddWithCarry(a, b, 0)
	case decoder.OpADC:
		if c.C {
			carryIn = 1
		}
		result, carryOut, overflow = armbits.AddWithCarry(a, b, carryIn)
	case decoder.OpSUB, decoder.OpCMP:
		result, carryOut, overflow = armbits.AddWithCarry(a, ^b, 1)
	case decoder.OpSBC:
		if c.C {
			carryIn = 1
		}
		result, carryOut, overflow = armbits.AddWithCarry(a, ^b, carryIn)
	case decoder.OpNEG:
		result, carryOut, overflow = armbits.AddWithCarry(0, ^b, 1)
	}

	if insn.Rd >= 0 {
		c.R[insn.Rd] = result
	}
	if insn.SetFlags {
		c.setNZ(result)
		c.C = carryOut
		c.V = overflow
	}
	return nil
}

func (c *CPU) execLogic(insn decoder.Instruction) error {
	a := c.R[insn.Rn]
	b := c.operand2(insn)

	var result uint32
	switch insn.Op {
	case decoder.OpAND, decoder.OpTST:
		result = a & b
	case decoder.OpORR:
		result = a | b
	case decoder.OpEOR:
		result = a ^ b
	case decoder.OpBIC:
		result = a &^ b
	case decoder.OpORN:
		result = a | ^b
	}

	if insn.Rd >= 0 {
		c.R[insn.Rd] = result
	}
	if insn.SetFlags {
		c.setNZ(result)
	}
	return nil
}

// execShift handles LSL/LSR/ASR/ROR/RRX, which the decoder produces via
// two distinct addressing conventions: decodeShiftOrAddSubReg's
// immediate-shift form (Rn == -1, source in Rm, amount in ShiftAmount)
// and decodeDataProcessingRegister's register-shift form (Rn holds the
// value being shifted, Rm holds the register carrying the shift amount).
func (c *CPU) execShift(insn decoder.Instruction) error {
	var value, amount uint32
	if insn.Rn >= 0 {
		value = c.R[insn.Rn]
		amount = c.R[insn.Rm] & 0xff
	} else {
		value = c.R[insn.Rm]
		amount = insn.ShiftAmount
	}

	var result uint32
	var carry bool
	switch insn.Op {
	case decoder.OpLSL:
		result, carry = armbits.LSL_C(value, amount, c.C)
	case decoder.OpLSR:
		result, carry = armbits.LSR_C(value, amount, c.C)
	case decoder.OpASR:
		result, carry = armbits.ASR_C(value, amount, c.C)
	case decoder.OpROR:
		result, carry = armbits.ROR_C(value, amount)
	case decoder.OpRRX:
		result, carry = armbits.RRX_C(value, c.C)
	}

	c.R[insn.Rd] = result
	if insn.SetFlags {
		c.setNZ(result)
		c.C = carry
	}
	return nil
}

// execBranchExchange implements BX/BLX: branch to the target register,
// clearing its interworking bit 0, unless the target carries an
// EXC_RETURN sentinel, in which case it triggers exception return
// instead (spec.md §4.4 step 5).
func (c *CPU) execBranchExchange(b *bus.Bus, rm int, link bool) error {
	target := c.R[rm]
	if isExcReturn(target) {
		return c.returnFromException(b)
	}
	if link {
		c.R[RegLR] = c.R[RegPC]
	}
	c.R[RegPC] = target &^ 1
	return nil
}
