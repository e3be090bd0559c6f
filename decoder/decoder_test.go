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
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/w1ne/labwired/decoder"
)

var _ = Describe("Decode", func() {
	Describe("16-bit shift and add/sub-register forms", func() {
		It("decodes ADD R0, R1, R2", func() {
			insn, wide := decoder.Decode(0x1888, 0)

			Expect(wide).To(BeFalse())
			Expect(insn.Op).To(Equal(decoder.OpADD))
			Expect(insn.Rd).To(Equal(0))
			Expect(insn.Rn).To(Equal(1))
			Expect(insn.Rm).To(Equal(2))
		})
	})

	Describe("16-bit data-processing register forms", func() {
		It("decodes ANDS R2, R3", func() {
			insn, wide := decoder.Decode(0x401A, 0)

			Expect(wide).To(BeFalse())
			Expect(insn.Op).To(Equal(decoder.OpAND))
			Expect(insn.Rd).To(Equal(2))
			Expect(insn.Rn).To(Equal(2))
			Expect(insn.Rm).To(Equal(3))
		})
	})

	Describe("16-bit load/store immediate-offset forms", func() {
		It("decodes STR R1, [R2, #12]", func() {
			insn, wide := decoder.Decode(0x60D1, 0)

			Expect(wide).To(BeFalse())
			Expect(insn.Op).To(Equal(decoder.OpSTR))
			Expect(insn.Rd).To(Equal(1))
			Expect(insn.Rn).To(Equal(2))
			Expect(insn.Imm).To(Equal(uint32(12)))
		})
	})

	Describe("16-bit load/store multiple", func() {
		It("decodes LDM R3, {R0,R2}", func() {
			insn, wide := decoder.Decode(0xCB05, 0)

			Expect(wide).To(BeFalse())
			Expect(insn.Op).To(Equal(decoder.OpLDM))
			Expect(insn.Rn).To(Equal(3))
			Expect(insn.RegList).To(Equal(uint16(1<<0 | 1<<2)))
		})
	})

	Describe("16-bit conditional branch", func() {
		It("decodes Bcc with cond=1", func() {
			insn, wide := decoder.Decode(0xD102, 0)

			Expect(wide).To(BeFalse())
			Expect(insn.Op).To(Equal(decoder.OpBcc))
			Expect(insn.Cond).To(Equal(uint8(1)))
			Expect(int32(insn.Imm)).To(Equal(int32(4)))
		})
	})

	Describe("16-bit stack push/pop", func() {
		It("decodes PUSH {R0,R1,LR}", func() {
			insn, wide := decoder.Decode(0xB503, 0)

			Expect(wide).To(BeFalse())
			Expect(insn.Op).To(Equal(decoder.OpPUSH))
			Expect(insn.RegList).To(Equal(uint16(1<<0 | 1<<1 | 1<<14)))
		})

		It("decodes POP {R0,PC}", func() {
			insn, wide := decoder.Decode(0xBD01, 0)

			Expect(wide).To(BeFalse())
			Expect(insn.Op).To(Equal(decoder.OpPOP))
			Expect(insn.RegList).To(Equal(uint16(1<<0 | 1<<15)))
		})
	})

	Describe("16-bit system instructions", func() {
		It("decodes NOP", func() {
			insn, _ := decoder.Decode(0xBF00, 0)
			Expect(insn.Op).To(Equal(decoder.OpNOP))
		})

		It("decodes IT", func() {
			insn, _ := decoder.Decode(0xBF18, 0)
			Expect(insn.Op).To(Equal(decoder.OpIT))
		})

		It("decodes CPSIE", func() {
			insn, _ := decoder.Decode(0xB302, 0)
			Expect(insn.Op).To(Equal(decoder.OpCPSIE))
		})

		It("decodes CPSID", func() {
			insn, _ := decoder.Decode(0xB312, 0)
			Expect(insn.Op).To(Equal(decoder.OpCPSID))
		})
	})

	Describe("32-bit data-processing modified-immediate forms", func() {
		It("decodes ANDS R4, R5, #0", func() {
			insn, wide := decoder.Decode(0xF015, 0x0400)

			Expect(wide).To(BeTrue())
			Expect(insn.Op).To(Equal(decoder.OpAND))
			Expect(insn.Rd).To(Equal(4))
			Expect(insn.Rn).To(Equal(5))
			Expect(insn.SetFlags).To(BeTrue())
		})

		It("decodes MOVW R3, #0x1234", func() {
			insn, wide := decoder.Decode(0xF121, 0x2334)

			Expect(wide).To(BeTrue())
			Expect(insn.Op).To(Equal(decoder.OpMOVW))
			Expect(insn.Rd).To(Equal(3))
			Expect(insn.Imm).To(Equal(uint32(0x1234)))
		})
	})

	Describe("32-bit branch-with-link", func() {
		It("decodes BL", func() {
			insn, wide := decoder.Decode(0xF400, 0xF802)

			Expect(wide).To(BeTrue())
			Expect(insn.Op).To(Equal(decoder.OpBL))
		})
	})

	Describe("16-bit unconditional branch", func() {
		It("decodes B with a negative offset", func() {
			insn, wide := decoder.Decode(0xE7FE, 0)

			Expect(wide).To(BeFalse())
			Expect(insn.Op).To(Equal(decoder.OpB))
			Expect(int32(insn.Imm)).To(Equal(int32(-4)))
		})
	})

	Describe("32-bit misc data-processing", func() {
		It("decodes SDIV R7, R6, R2", func() {
			insn, wide := decoder.Decode(0xFE86, 0x0732)

			Expect(wide).To(BeTrue())
			Expect(insn.Op).To(Equal(decoder.OpSDIV))
			Expect(insn.Rd).To(Equal(7))
			Expect(insn.Rn).To(Equal(6))
		})
	})
})
