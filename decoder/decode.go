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

package decoder

import "github.com/w1ne/labwired/armbits"

func bit(v uint32, n uint) bool { return v&(1<<n) != 0 }

func bits(v uint32, hi, lo uint) uint32 {
	return (v >> lo) & ((1 << (hi - lo + 1)) - 1)
}

func signExtend(v uint32, width uint) uint32 {
	shift := 32 - width
	return uint32(int32(v<<shift) >> shift)
}

// Decode classifies prefix's top five bits to choose a 16- or 32-bit
// form. For 32-bit forms it consumes suffix; the caller is responsible
// for fetching suffix only when the prefix's top bits call for it (the
// cpu package first calls Decode with the prefix alone and fetches the
// second halfword only when the returned wide flag is set).
func Decode(prefix uint16, suffix uint16) (Instruction, bool) {
	top5 := uint32(prefix) >> 11
	if top5 == 0b11101 || top5 == 0b11110 || top5 == 0b11111 {
		insn := decode32(uint32(prefix), uint32(suffix))
		insn.Wide = true
		insn.Opcode = prefix
		return insn, true
	}
	insn := decode16(uint32(prefix))
	insn.Opcode = prefix
	return insn, false
}

func decode16(w uint32) Instruction {
	insn := Instruction{Op: OpUnknown, Cond: CondAlways, Rd: -1, Rn: -1, Rm: -1, Ra: -1}

	switch {
	case bits(w, 15, 13) == 0b000:
		// Format 1: LSL/LSR/ASR immediate, and format 2's ADD/SUB register
		// share this top-level bucket in the ARM encoding tables.
		return decodeShiftOrAddSubReg(w)

	case bits(w, 15, 11) == 0b00100:
		insn.Op, insn.SetFlags = OpMOV, true
		insn.Rd = int(bits(w, 10, 8))
		insn.Imm = bits(w, 7, 0)
		return insn

	case bits(w, 15, 11) == 0b00101:
		insn.Op, insn.SetFlags = OpCMP, true
		insn.Rn = int(bits(w, 10, 8))
		insn.Imm = bits(w, 7, 0)
		return insn

	case bits(w, 15, 11) == 0b00110:
		insn.Op, insn.SetFlags = OpADD, true
		insn.Rd, insn.Rn = int(bits(w, 10, 8)), int(bits(w, 10, 8))
		insn.Imm = bits(w, 7, 0)
		return insn

	case bits(w, 15, 11) == 0b00111:
		insn.Op, insn.SetFlags = OpSUB, true
		insn.Rd, insn.Rn = int(bits(w, 10, 8)), int(bits(w, 10, 8))
		insn.Imm = bits(w, 7, 0)
		return insn

	case bits(w, 15, 10) == 0b010000:
		return decodeDataProcessingRegister(w)

	case bits(w, 15, 10) == 0b010001:
		return decodeSpecialDataOrBranchExchange(w)

	case bits(w, 15, 11) == 0b01001:
		insn.Op = OpLDR
		insn.Rd = int(bits(w, 10, 8))
		insn.Rn = 15 // PC-relative literal pool
		insn.Imm = bits(w, 7, 0) << 2
		insn.Add, insn.Index = true, true
		return insn

	case bits(w, 15, 12) == 0b0101:
		return decodeLoadStoreRegisterOffset(w)

	case bits(w, 15, 13) == 0b011:
		return decodeLoadStoreImmOffsetByteWord(w)

	case bits(w, 15, 12) == 0b1000:
		return decodeLoadStoreHalfwordImm(w)

	case bits(w, 15, 12) == 0b1001:
		insn.Rd = int(bits(w, 10, 8))
		insn.Rn = 13
		insn.Imm = bits(w, 7, 0) << 2
		insn.Add, insn.Index = true, true
		if bit(w, 11) {
			insn.Op = OpLDR
		} else {
			insn.Op = OpSTR
		}
		return insn

	case bits(w, 15, 12) == 0b1010:
		insn.Op = OpADD
		insn.Rd = int(bits(w, 10, 8))
		if bit(w, 11) {
			insn.Rn = 13
		} else {
			insn.Rn = 15
		}
		insn.Imm = bits(w, 7, 0) << 2
		return insn

	case bits(w, 15, 8) == 0b10110000:
		insn.Op, insn.SetFlags = OpADD, false
		insn.Rd, insn.Rn = 13, 13
		insn.Imm = bits(w, 6, 0) << 2
		return insn

	case bits(w, 15, 8) == 0b10110001:
		insn.Op, insn.SetFlags = OpSUB, false
		insn.Rd, insn.Rn = 13, 13
		insn.Imm = bits(w, 6, 0) << 2
		return insn

	case bits(w, 15, 11) == 0b10110 && bits(w, 10, 8) == 0b011:
		return decodeCPS(w)

	case bits(w, 15, 12) == 0b1011 && bits(w, 11, 9) == 0b010:
		insn.Op = OpPUSH
		insn.RegList = uint16(bits(w, 7, 0))
		if bit(w, 8) {
			insn.RegList |= 1 << 14
		}
		return insn

	case bits(w, 15, 12) == 0b1011 && bits(w, 11, 9) == 0b110:
		insn.Op = OpPOP
		insn.RegList = uint16(bits(w, 7, 0))
		if bit(w, 8) {
			insn.RegList |= 1 << 15
		}
		return insn

	case bits(w, 15, 12) == 0b1011 && !bit(w, 10) && bit(w, 8):
		// CBZ (bit11=0) / CBNZ (bit11=1); bit9 carries the immediate's
		// low bit and is not part of the fixed pattern, so this must be
		// checked only after the CPS/PUSH/POP cases above have had first
		// claim on the bit patterns they need.
		return decodeCompareBranchZero(w)

	case w == 0xBF00:
		insn.Op = OpNOP
		return insn

	case w == 0xBF30:
		// WFI hint (opA=3, opB=0000): halt until the next exception,
		// per spec.md's "explicit halt sentinel" stop reason. Must be
		// checked ahead of the generic IT catch-all below, since WFI's
		// encoding otherwise aliases IT's firstcond/mask field.
		insn.Op = OpWFI
		return insn

	case bits(w, 15, 8) == 0b10111111:
		insn.Op = OpIT
		insn.Imm = bits(w, 7, 0)
		return insn

	case bits(w, 15, 12) == 0b1100:
		insn.Rn = int(bits(w, 10, 8))
		insn.RegList = uint16(bits(w, 7, 0))
		insn.Writeback = true
		if bit(w, 11) {
			insn.Op = OpLDM
		} else {
			insn.Op = OpSTM
		}
		return insn

	case bits(w, 15, 12) == 0b1101 && bits(w, 11, 8) != 0b1111:
		insn.Op = OpBcc
		insn.Cond = uint8(bits(w, 11, 8))
		insn.Imm = signExtend(bits(w, 7, 0)<<1, 9)
		return insn

	case bits(w, 15, 11) == 0b11100:
		insn.Op = OpB
		insn.Imm = signExtend(bits(w, 10, 0)<<1, 12)
		return insn
	}

	return insn
}

func decodeShiftOrAddSubReg(w uint32) Instruction {
	insn := Instruction{Cond: CondAlways, Rd: int(bits(w, 2, 0)), Rn: int(bits(w, 5, 3)), Rm: -1, Ra: -1, SetFlags: true}
	if bits(w, 12, 11) == 0b11 {
		insn.Rm = int(bits(w, 8, 6))
		if bit(w, 9) {
			insn.Op = OpSUB
		} else {
			insn.Op = OpADD
		}
		if bit(w, 10) {
			insn.Imm = bits(w, 8, 6)
			insn.Rm = -1
		}
		return insn
	}

	insn.Rm = int(bits(w, 5, 3))
	insn.Rn = -1
	insn.Rd = int(bits(w, 2, 0))
	insn.ShiftAmount = bits(w, 10, 6)
	switch bits(w, 12, 11) {
	case 0b00:
		insn.Op, insn.Shift = OpLSL, ShiftLSL
	case 0b01:
		insn.Op, insn.Shift = OpLSR, ShiftLSR
	case 0b10:
		insn.Op, insn.Shift = OpASR, ShiftASR
	}
	insn.Rm = int(bits(w, 5, 3))
	return insn
}

func decodeDataProcessingRegister(w uint32) Instruction {
	insn := Instruction{Cond: CondAlways, Rd: int(bits(w, 2, 0)), Rn: int(bits(w, 2, 0)), Rm: int(bits(w, 5, 3)), Ra: -1, SetFlags: true}
	switch bits(w, 9, 6) {
	case 0b0000:
		insn.Op = OpAND
	case 0b0001:
		insn.Op = OpEOR
	case 0b0010:
		insn.Op, insn.Shift = OpLSL, ShiftLSL
	case 0b0011:
		insn.Op, insn.Shift = OpLSR, ShiftLSR
	case 0b0100:
		insn.Op, insn.Shift = OpASR, ShiftASR
	case 0b0101:
		insn.Op = OpADC
	case 0b0110:
		insn.Op = OpSBC
	case 0b0111:
		insn.Op, insn.Shift = OpROR, ShiftROR
	case 0b1000:
		insn.Op, insn.Rd = OpTST, -1
	case 0b1001:
		insn.Op, insn.Rn = OpMUL, int(bits(w, 2, 0))
		insn.Ra = -1
	case 0b1010:
		insn.Op = OpCMP
		insn.Rd = -1
	case 0b1011:
		insn.Op = OpCMN
		insn.Rd = -1
	case 0b1100:
		insn.Op = OpORR
	case 0b1101:
		insn.Op, insn.Rn = OpMUL, int(bits(w, 2, 0))
	case 0b1110:
		insn.Op = OpBIC
	case 0b1111:
		insn.Op, insn.Rn = OpMVN, -1
	}
	return insn
}

func decodeSpecialDataOrBranchExchange(w uint32) Instruction {
	insn := Instruction{Cond: CondAlways, Rd: -1, Rn: -1, Rm: -1, Ra: -1}
	rm := int(bits(w, 6, 3))
	rdn := int(bits(w, 2, 0)) | (int(bits(w, 7, 7)) << 3)

	switch bits(w, 9, 8) {
	case 0b00:
		insn.Op, insn.Rd, insn.Rn, insn.Rm = OpADD, rdn, rdn, rm
	case 0b01:
		insn.Op, insn.Rn, insn.Rm = OpCMP, rdn, rm
	case 0b10:
		insn.Op, insn.Rd, insn.Rm = OpMOV, rdn, rm
	case 0b11:
		if bit(w, 7) {
			insn.Op, insn.Rm = OpBLX, rm
		} else {
			insn.Op, insn.Rm = OpBX, rm
		}
	}
	return insn
}

func decodeLoadStoreRegisterOffset(w uint32) Instruction {
	insn := Instruction{Cond: CondAlways, Rd: int(bits(w, 2, 0)), Rn: int(bits(w, 5, 3)), Rm: int(bits(w, 8, 6)), Ra: -1, Add: true, Index: true}
	switch bits(w, 11, 9) {
	case 0b000:
		insn.Op = OpSTR
	case 0b001:
		insn.Op = OpSTRH
	case 0b010:
		insn.Op = OpSTRB
	case 0b011:
		insn.Op = OpLDRB // LDRSB approximated as LDRB; sign-extension not separately modeled
	case 0b100:
		insn.Op = OpLDR
	case 0b101:
		insn.Op = OpLDRH
	case 0b110:
		insn.Op = OpLDRB
	case 0b111:
		insn.Op = OpLDRH // LDRSH approximated as LDRH
	}
	return insn
}

func decodeLoadStoreImmOffsetByteWord(w uint32) Instruction {
	insn := Instruction{Cond: CondAlways, Rd: int(bits(w, 2, 0)), Rn: int(bits(w, 5, 3)), Rm: -1, Ra: -1, Add: true, Index: true}
	isByte := bit(w, 12)
	isLoad := bit(w, 11)
	if isByte {
		insn.Imm = bits(w, 10, 6)
		if isLoad {
			insn.Op = OpLDRB
		} else {
			insn.Op = OpSTRB
		}
	} else {
		insn.Imm = bits(w, 10, 6) << 2
		if isLoad {
			insn.Op = OpLDR
		} else {
			insn.Op = OpSTR
		}
	}
	return insn
}

func decodeLoadStoreHalfwordImm(w uint32) Instruction {
	insn := Instruction{Cond: CondAlways, Rd: int(bits(w, 2, 0)), Rn: int(bits(w, 5, 3)), Rm: -1, Ra: -1, Add: true, Index: true}
	insn.Imm = bits(w, 10, 6) << 1
	if bit(w, 11) {
		insn.Op = OpLDRH
	} else {
		insn.Op = OpSTRH
	}
	return insn
}

func decodeCompareBranchZero(w uint32) Instruction {
	insn := Instruction{Cond: CondAlways, Rd: -1, Rn: int(bits(w, 2, 0)), Rm: -1, Ra: -1}
	imm := (bits(w, 9, 9) << 6) | (bits(w, 7, 3) << 1)
	insn.Imm = imm
	if bit(w, 11) {
		insn.Op = OpCBNZ
	} else {
		insn.Op = OpCBZ
	}
	return insn
}

func decodeCPS(w uint32) Instruction {
	insn := Instruction{Cond: CondAlways, Rd: -1, Rn: -1, Rm: -1, Ra: -1}
	if bit(w, 4) {
		insn.Op = OpCPSID
	} else {
		insn.Op = OpCPSIE
	}
	return insn
}

func decode32(hi, lo uint32) Instruction {
	insn := Instruction{Cond: CondAlways, Rd: -1, Rn: -1, Rm: -1, Ra: -1}

	op1 := bits(hi, 12, 11)
	op2 := bits(hi, 10, 4)

	switch {
	case op1 == 0b01:
		// Wide load/store multiple (LDM.W/STM.W) and load/store dual;
		// the 16-bit LDM/STM forms are handled by decode16.
		return decodeLoadStoreMultipleOrDual(hi, lo)

	case op1 == 0b10 && bit(op2, 6) && !bit(lo, 15):
		// Branches and miscellaneous control. This decoder only
		// implements the unconditional-link BL form below.
		return decodeBranchOrMisc(hi, lo)

	case op1 == 0b10 && !bit(op2, 6):
		return decodeDataProcessingModifiedImmediate(hi, lo)

	case op1 == 0b10 && bit(op2, 6) && bit(lo, 15):
		return decodeBL(hi, lo)

	case op1 == 0b11:
		return decodeLoadStoreAndMisc(hi, lo)
	}

	return insn
}

func decodeBranchOrMisc(hi, lo uint32) Instruction {
	insn := Instruction{Cond: CondAlways, Rd: -1, Rn: -1, Rm: -1, Ra: -1}
	if bit(lo, 15) && bit(lo, 14) && bit(lo, 12) {
		return decodeBL(hi, lo)
	}
	insn.Op = OpB
	s := bits(hi, 10, 10)
	imm11 := bits(lo, 10, 0)
	j1 := bits(lo, 13, 13)
	j2 := bits(lo, 11, 11)
	imm10 := bits(hi, 9, 0)
	imm := (s << 20) | (j2 << 19) | (j1 << 18) | (imm10 << 11) | imm11
	insn.Imm = signExtend(imm<<1, 21)
	return insn
}

func decodeBL(hi, lo uint32) Instruction {
	insn := Instruction{Op: OpBL, Cond: CondAlways, Rd: -1, Rn: -1, Rm: -1, Ra: -1}
	s := bits(hi, 10, 10)
	imm10 := bits(hi, 9, 0)
	imm11 := bits(lo, 10, 0)
	j1 := bits(lo, 13, 13)
	j2 := bits(lo, 11, 11)
	i1 := 1 - (j1 ^ s)
	i2 := 1 - (j2 ^ s)
	imm := (s << 23) | (i1 << 22) | (i2 << 21) | (imm10 << 11) | imm11
	insn.Imm = signExtend(imm<<1, 25)
	return insn
}

func decodeDataProcessingModifiedImmediate(hi, lo uint32) Instruction {
	insn := Instruction{Cond: CondAlways, Rd: -1, Rn: -1, Rm: -1, Ra: -1}

	// MOVW/MOVT carry a distinct opcode field and bypass
	// ThumbExpandImm_C entirely, per spec.md §4.4.
	if bits(hi, 8, 4) == 0b10010 {
		insn.Op = OpMOVW
		insn.Rd = int(bits(lo, 11, 8))
		i := bits(hi, 10, 10)
		imm4 := bits(hi, 3, 0)
		imm3 := bits(lo, 14, 12)
		imm8 := bits(lo, 7, 0)
		insn.Imm = (imm4 << 12) | (i << 11) | (imm3 << 8) | imm8
		return insn
	}
	if bits(hi, 8, 4) == 0b10110 {
		insn.Op = OpMOVT
		insn.Rd = int(bits(lo, 11, 8))
		i := bits(hi, 10, 10)
		imm4 := bits(hi, 3, 0)
		imm3 := bits(lo, 14, 12)
		imm8 := bits(lo, 7, 0)
		insn.Imm = (imm4 << 12) | (i << 11) | (imm3 << 8) | imm8
		return insn
	}

	rn := int(bits(hi, 3, 0))
	rd := int(bits(lo, 11, 8))
	s := bit(hi, 4)
	i := bits(hi, 10, 10)
	imm3 := bits(lo, 14, 12)
	imm8 := bits(lo, 7, 0)
	imm12 := (i << 11) | (imm3 << 8) | imm8
	expanded, _ := armbits.ThumbExpandImm_C(imm12, false)

	insn.Rn, insn.Rd, insn.Imm, insn.SetFlags = rn, rd, expanded, s

	switch bits(hi, 8, 5) {
	case 0b0000:
		insn.Op = OpAND
		if rd == 0xF && s {
			insn.Op, insn.Rd = OpTST, -1
		}
	case 0b0001:
		insn.Op = OpBIC
	case 0b0010:
		insn.Op = OpORR
		if rn == 0xF {
			insn.Op, insn.Rn = OpMOV, -1
		}
	case 0b0011:
		insn.Op = OpORN
	case 0b0100:
		insn.Op = OpEOR
	case 0b1000:
		insn.Op = OpADD
		if rd == 0xF && s {
			insn.Op, insn.Rd = OpCMN, -1
		}
	case 0b1010:
		insn.Op = OpADC
	case 0b1011:
		insn.Op = OpSBC
	case 0b1101:
		insn.Op = OpSUB
		if rd == 0xF && s {
			insn.Op, insn.Rd = OpCMP, -1
		}
	case 0b1110:
		insn.Op = OpMVN
	}
	return insn
}

func decodeLoadStoreAndMisc(hi, lo uint32) Instruction {
	op1 := bits(hi, 6, 5)

	switch {
	case bits(hi, 8, 4) == 0b01011 && op1 == 0b01:
		return decodeBitfieldOrLongMul(hi, lo)

	case bits(hi, 9, 4) == 0b101000 || bits(hi, 9, 4) == 0b101001:
		return decodeDivide(hi, lo)

	case bits(hi, 9, 4) == 0b101010:
		return decodeRegisterExtendOrReverse(hi, lo)

	default:
		return decodeLoadStoreWide(hi, lo)
	}
}

func decodeBitfieldOrLongMul(hi, lo uint32) Instruction {
	insn := Instruction{Cond: CondAlways, Rd: int(bits(lo, 11, 8)), Rn: int(bits(hi, 3, 0)), Rm: -1, Ra: -1}
	msb := bits(lo, 4, 0)
	lsb := (bits(lo, 14, 12) << 2) | bits(lo, 7, 6)
	insn.Lsb = lsb

	switch bits(hi, 9, 4) {
	case 0b010100: // SBFX
		insn.Op = OpSBFX
		insn.Width = msb + 1
	case 0b011100: // UBFX
		insn.Op = OpUBFX
		insn.Width = msb + 1
	case 0b010110: // BFI / BFC
		if insn.Rn == 0xF {
			insn.Op, insn.Rn = OpBFC, -1
		} else {
			insn.Op = OpBFI
		}
		if msb >= lsb {
			insn.Width = msb - lsb + 1
		}
	}
	return insn
}

func decodeDivide(hi, lo uint32) Instruction {
	insn := Instruction{Cond: CondAlways, Rd: int(bits(lo, 11, 8)), Rn: int(bits(hi, 3, 0)), Rm: int(bits(lo, 3, 0)), Ra: -1}

	// Reached only for bits(hi,9,4) == 0b101000 (SDIV) or 0b101001 (UDIV);
	// the two differ in bit4 alone.
	if bit(hi, 4) {
		insn.Op = OpUDIV
	} else {
		insn.Op = OpSDIV
	}
	return insn
}

func decodeRegisterExtendOrReverse(hi, lo uint32) Instruction {
	insn := Instruction{Cond: CondAlways, Rd: int(bits(lo, 11, 8)), Rn: -1, Rm: int(bits(lo, 3, 0)), Ra: -1}

	switch bits(lo, 7, 4) {
	case 0b1000:
		insn.Op = OpCLZ
	case 0b1001:
		insn.Op = OpRBIT
	case 0b1010:
		insn.Op = OpREV
	case 0b1011:
		insn.Op = OpREV16
	case 0b0000:
		insn.Op = OpUXTB
	}
	return insn
}

// decodeLoadStoreMultipleOrDual handles LDM.W/STM.W (register-list, wide)
// and LDRD/STRD immediate.
func decodeLoadStoreMultipleOrDual(hi, lo uint32) Instruction {
	insn := Instruction{Cond: CondAlways, Rd: -1, Rn: -1, Rm: -1, Ra: -1}

	if bits(hi, 10, 9) != 0b00 {
		return insn // table branch, exclusive access, etc. -- not implemented
	}

	if !bit(hi, 6) {
		insn.Op = OpLDM
		if !bit(hi, 4) {
			insn.Op = OpSTM
		}
		insn.Rn = int(bits(hi, 3, 0))
		insn.RegList = uint16(bits(lo, 15, 0))
		insn.Writeback = bit(hi, 5)
		return insn
	}

	insn.Imm = bits(lo, 7, 0) << 2
	insn.Add = bit(hi, 7)
	insn.Index = bit(hi, 8)
	insn.Writeback = bit(hi, 5)
	insn.Rn = int(bits(hi, 3, 0))
	insn.Rd = int(bits(lo, 15, 12))
	insn.Ra = int(bits(lo, 11, 8))
	if bit(hi, 4) {
		insn.Op = OpLDRD
	} else {
		insn.Op = OpSTRD
	}
	return insn
}

func decodeLoadStoreWide(hi, lo uint32) Instruction {
	insn := Instruction{Cond: CondAlways, Rd: int(bits(lo, 15, 12)), Rn: int(bits(hi, 3, 0)), Rm: int(bits(lo, 3, 0)), Ra: -1}

	op1 := bits(hi, 8, 7)

	insn.Imm = bits(lo, 11, 0)
	insn.Add, insn.Index = true, true
	switch op1 {
	case 0b00:
		switch bits(hi, 6, 4) {
		case 0b100:
			insn.Op = OpSTRB
		case 0b101:
			insn.Op = OpSTRH
		case 0b110:
			insn.Op = OpSTR
		}
	case 0b01:
		switch bits(hi, 6, 4) {
		case 0b001:
			insn.Op = OpLDRB
		case 0b011:
			insn.Op = OpLDRH
		case 0b101:
			insn.Op = OpLDR
		}
	}
	return insn
}
