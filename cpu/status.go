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

// condition evaluates one of the 15 condition codes from "A7.3
// Conditional execution" of the ARMv7-M reference against the CPU's
// current N/Z/C/V flags. Condition 0b1111 (AL2/reserved) is never
// generated by the decoder's Bcc path and is treated as always-true here
// rather than panicking, since a malformed firmware image should fail at
// the decode stage, not deep inside flag evaluation.
func (c *CPU) condition(cond uint8) bool {
	switch cond {
	case 0b0000: // EQ
		return c.Z
	case 0b0001: // NE
		return !c.Z
	case 0b0010: // CS/HS
		return c.C
	case 0b0011: // CC/LO
		return !c.C
	case 0b0100: // MI
		return c.N
	case 0b0101: // PL
		return !c.N
	case 0b0110: // VS
		return c.V
	case 0b0111: // VC
		return !c.V
	case 0b1000: // HI
		return c.C && !c.Z
	case 0b1001: // LS
		return !c.C || c.Z
	case 0b1010: // GE
		return c.N == c.V
	case 0b1011: // LT
		return c.N != c.V
	case 0b1100: // GT
		return !c.Z && c.N == c.V
	case 0b1101: // LE
		return c.Z || c.N != c.V
	default: // AL and reserved
		return true
	}
}

// setNZ updates N and Z from result, the common tail of every
// flag-setting data-processing instruction.
func (c *CPU) setNZ(result uint32) {
	c.N = result&0x80000000 != 0
	c.Z = result == 0
}
