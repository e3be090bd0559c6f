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

package decoder_test

import (
	"testing"

	"github.com/w1ne/labwired/decoder"
)

func TestMovImmediate(t *testing.T) {
	// MOV R0, #0x2A (spec.md §8 scenario 2): 0x202A.
	insn, wide := decoder.Decode(0x202A, 0)
	if wide {
		t.Fatalf("MOV immediate must decode as a 16-bit instruction")
	}
	if insn.Op != decoder.OpMOV || insn.Rd != 0 || insn.Imm != 0x2A {
		t.Fatalf("got %+v, want MOV R0, #0x2A", insn)
	}
}

func TestBranchTop5BitsClassify32Bit(t *testing.T) {
	for _, prefix := range []uint16{0xE800, 0xF000, 0xF800} {
		_, wide := decoder.Decode(prefix, 0)
		if !wide {
			t.Fatalf("prefix %#04x top-5 bits should classify as 32-bit", prefix)
		}
	}
}

func TestBLEncoding(t *testing.T) {
	// BL with S=1, J1=J2=1, imm10=0, imm11=2.
	hi := uint16(0xF400)
	lo := uint16(0xF802)
	insn, wide := decoder.Decode(hi, lo)
	if !wide || insn.Op != decoder.OpBL {
		t.Fatalf("got %+v wide=%v, want wide BL", insn, wide)
	}
}

func TestMOVWEncoding(t *testing.T) {
	// MOVW R3, #0x1234: imm4=1, i=0, imm3=2, imm8=0x34, Rd=3.
	hi := uint16(0xF121)
	lo := uint16(0x2334)
	insn, wide := decoder.Decode(hi, lo)
	if !wide || insn.Op != decoder.OpMOVW || insn.Rd != 3 {
		t.Fatalf("got %+v, want wide MOVW R3, #imm", insn)
	}
	if insn.Imm != 0x1234 {
		t.Fatalf("imm = %#x, want 0x1234", insn.Imm)
	}
}

func TestNopAndIT(t *testing.T) {
	insn, _ := decoder.Decode(0xBF00, 0)
	if insn.Op != decoder.OpNOP {
		t.Fatalf("got %+v, want NOP", insn)
	}

	insn, _ = decoder.Decode(0xBF18, 0)
	if insn.Op != decoder.OpIT {
		t.Fatalf("got %+v, want IT", insn)
	}
}

func TestCPSIEAndCPSID(t *testing.T) {
	insn, _ := decoder.Decode(0xB302, 0)
	if insn.Op != decoder.OpCPSIE {
		t.Fatalf("got %+v, want CPSIE", insn)
	}
	insn, _ = decoder.Decode(0xB312, 0)
	if insn.Op != decoder.OpCPSID {
		t.Fatalf("got %+v, want CPSID", insn)
	}
}

func TestPushPop(t *testing.T) {
	// PUSH {R0, R1, LR}: 1011 0 10 1 00000011
	insn, _ := decoder.Decode(0xB503, 0)
	if insn.Op != decoder.OpPUSH || insn.RegList != (1<<0|1<<1|1<<14) {
		t.Fatalf("got %+v, want PUSH {R0,R1,LR}", insn)
	}

	// POP {R0, PC}: 1011 1 10 1 00000001
	insn, _ = decoder.Decode(0xBD01, 0)
	if insn.Op != decoder.OpPOP || insn.RegList != (1<<0|1<<15) {
		t.Fatalf("got %+v, want POP {R0,PC}", insn)
	}
}

func TestUnconditionalBranchOffset(t *testing.T) {
	// B with a small negative offset: imm11 = 0b11111111110 (-4 bytes).
	insn, _ := decoder.Decode(0xE7FE, 0)
	if insn.Op != decoder.OpB {
		t.Fatalf("got %+v, want B", insn)
	}
	if int32(insn.Imm) != -4 {
		t.Fatalf("imm = %d, want -4", int32(insn.Imm))
	}
}

func TestLDMWide(t *testing.T) {
	// LDM.W R4, {R0,R1,R7}
	insn, wide := decoder.Decode(0xE814, 0x0083)
	if !wide || insn.Op != decoder.OpLDM {
		t.Fatalf("got %+v wide=%v, want wide LDM", insn, wide)
	}
	if insn.Rn != 4 || insn.RegList != (1<<0|1<<1|1<<7) || insn.Writeback {
		t.Fatalf("got %+v, want LDM R4, {R0,R1,R7} without writeback", insn)
	}
}

func TestSTMWide(t *testing.T) {
	// STM.W R4!, {R0,R1,R7}
	insn, wide := decoder.Decode(0xE8A4, 0x0083)
	if !wide || insn.Op != decoder.OpSTM {
		t.Fatalf("got %+v wide=%v, want wide STM", insn, wide)
	}
	if insn.Rn != 4 || insn.RegList != (1<<0|1<<1|1<<7) || !insn.Writeback {
		t.Fatalf("got %+v, want STM R4!, {R0,R1,R7}", insn)
	}
}

func TestLDRDImmediate(t *testing.T) {
	// LDRD R5, R6, [R2, #0x40]
	insn, wide := decoder.Decode(0xE9D2, 0x5610)
	if !wide || insn.Op != decoder.OpLDRD {
		t.Fatalf("got %+v wide=%v, want wide LDRD", insn, wide)
	}
	if insn.Rn != 2 || insn.Rd != 5 || insn.Ra != 6 || insn.Imm != 0x40 {
		t.Fatalf("got %+v, want LDRD R5, R6, [R2, #0x40]", insn)
	}
	if !insn.Add || !insn.Index || insn.Writeback {
		t.Fatalf("got %+v, want add/index set, writeback clear", insn)
	}
}

func TestSTRDImmediate(t *testing.T) {
	// STRD R5, R6, [R2, #0x40]
	insn, wide := decoder.Decode(0xE9C2, 0x5610)
	if !wide || insn.Op != decoder.OpSTRD {
		t.Fatalf("got %+v wide=%v, want wide STRD", insn, wide)
	}
	if insn.Rn != 2 || insn.Rd != 5 || insn.Ra != 6 || insn.Imm != 0x40 {
		t.Fatalf("got %+v, want STRD R5, R6, [R2, #0x40]", insn)
	}
}

func TestRegisterExtendAndReverseFamily(t *testing.T) {
	cases := []struct {
		lo uint16
		op decoder.Op
	}{
		{0x0385, decoder.OpCLZ},
		{0x0395, decoder.OpRBIT},
		{0x03A5, decoder.OpREV},
		{0x03B5, decoder.OpREV16},
		{0x0305, decoder.OpUXTB},
	}
	for _, c := range cases {
		insn, wide := decoder.Decode(0xFAA0, c.lo)
		if !wide || insn.Op != c.op {
			t.Fatalf("lo=%#04x: got %+v wide=%v, want %v", c.lo, insn, wide, c.op)
		}
		if insn.Rd != 3 || insn.Rm != 5 {
			t.Fatalf("lo=%#04x: got %+v, want Rd=3, Rm=5", c.lo, insn)
		}
	}
}
