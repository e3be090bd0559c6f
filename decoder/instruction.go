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

// Package decoder implements the pure Thumb-2 decode function named in
// spec.md §4.4: decode(u16_prefix, next_u16_if_needed) -> (Instruction,
// is_wide). It classifies 16- versus 32-bit encodings by the prefix
// halfword's top five bits and produces a single tagged Instruction
// variant carrying every field the cpu package needs to execute it,
// grounded on the bitmask classification chain in
// _examples/JetSetIlly-Gopher2600/hardware/memory/cartridge/arm/thumb.go
// and the 32-bit forms in that package's thumb2_32bit.go.
package decoder

// Op identifies which instruction variant a decoded Instruction carries.
type Op int

const (
	OpUnknown Op = iota

	// Data processing.
	OpMOV
	OpMVN
	OpADD
	OpSUB
	OpCMP
	OpCMN
	OpAND
	OpORR
	OpEOR
	OpBIC
	OpORN
	OpMUL
	OpSDIV
	OpUDIV
	OpLSL
	OpLSR
	OpASR
	OpROR
	OpRRX
	OpADC
	OpSBC
	OpTST
	OpNEG

	// Branches.
	OpB
	OpBcc
	OpBL
	OpBX
	OpBLX
	OpCBZ
	OpCBNZ

	// Loads/stores.
	OpLDR
	OpSTR
	OpLDRB
	OpSTRB
	OpLDRH
	OpSTRH
	OpLDM
	OpSTM
	OpPUSH
	OpPOP
	OpLDRD
	OpSTRD

	// Bitfield/misc.
	OpBFI
	OpBFC
	OpSBFX
	OpUBFX
	OpUXTB
	OpCLZ
	OpRBIT
	OpREV
	OpREV16

	// Wide immediates.
	OpMOVW
	OpMOVT

	// System.
	OpCPSIE
	OpCPSID
	OpNOP
	OpIT
	OpWFI
)

// ShiftType enumerates the four shift/rotate kinds a data-processing
// operand can apply, per ARMv7-M's "SRType".
type ShiftType int

const (
	ShiftNone ShiftType = iota
	ShiftLSL
	ShiftLSR
	ShiftASR
	ShiftROR
	ShiftRRX
)

// CondAlways is the condition-code encoding meaning "execute
// unconditionally"; Instruction.Cond defaults to this for instructions
// with no condition field of their own.
const CondAlways uint8 = 0xE

// Instruction is the single tagged variant every decoded encoding
// produces. Register fields are register indices 0..15, or -1 when the
// field does not apply to this Op.
type Instruction struct {
	Op   Op
	Wide bool // true if this decode consumed a suffix halfword

	Cond uint8 // condition code for Bcc; CondAlways for everything else

	SetFlags bool // "S" bit: whether flags update (N,Z,C,V)

	Rd, Rn, Rm, Ra int // destination, first operand, second operand, accumulator/extra

	Imm uint32 // immediate operand (already sign/zero-extended per encoding)

	Shift       ShiftType
	ShiftAmount uint32

	RegList uint16 // bit i set => Ri included, for LDM/STM/PUSH/POP

	Add      bool // addressing mode: add offset (vs subtract)
	Index    bool // pre-indexed (offset applied before access)
	Writeback bool // update the base register after the access

	Lsb, Width uint32 // bitfield operations: low bit position and field width

	Opcode uint16 // raw prefix halfword, retained for error reporting
}
