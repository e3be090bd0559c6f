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
	"github.com/w1ne/labwired/bus"
	"github.com/w1ne/labwired/simerror"
)

// framePush is the register order spec.md §4.4 "Exception entry" pushes,
// descending from the entry SP: xPSR, PC, LR, R12, R3, R2, R1, R0.
var framePush = [8]int{-1 /* xpsr */, RegPC, RegLR, 12, 3, 2, 1, 0}

// stkAlignBit is bit 9 of the pushed xPSR, set whenever enterException had
// to insert a padding word to force 8-byte stack alignment.
const stkAlignBit = 1 << 9

// enterException implements spec.md §4.4's four-step exception entry:
// push the eight-word frame, load LR with an EXC_RETURN sentinel, fetch
// the handler address from the vector table at the (freshly refreshed)
// VTOR, and set IPSR. PRIMASK is left untouched — only CPSID/CPSIE and
// Reset change it.
func (c *CPU) enterException(b *bus.Bus, irq uint32) error {
	c.VTOR = b.VTOR()

	stkAlign := c.R[RegSP]&4 != 0 // pre-entry SP word-aligned but not 8-byte aligned
	sp := c.R[RegSP] &^ 7         // 8-byte align before pushing, per spec.md §3's SP invariant
	sp -= 4
	xpsr := c.xpsrWord()
	if stkAlign {
		xpsr |= stkAlignBit // recorded so returnFromException can undo the padding
	}
	if err := b.WriteU32(sp, xpsr); err != nil {
		return err
	}
	for _, reg := range framePush[1:] {
		sp -= 4
		if err := b.WriteU32(sp, c.R[reg]); err != nil {
			return err
		}
	}
	c.R[RegSP] = sp

	c.R[RegLR] = excReturnPrefix | 0x01

	vectorAddr := c.VTOR + 4*irq
	handler, err := b.ReadU32(vectorAddr)
	if err != nil {
		return err
	}
	if handler == 0 {
		return &simerror.VectorTableMissing{IRQ: irq, Address: handler}
	}

	c.R[RegPC] = handler &^ 1
	c.IPSR = irq
	c.inHandler = true
	return nil
}

// returnFromException implements spec.md §4.4's exception return: pop the
// frame pushed by enterException in reverse order, restoring xPSR, and
// branch to the popped PC with bit 0 cleared.
func (c *CPU) returnFromException(b *bus.Bus) error {
	sp := c.R[RegSP]

	for i := len(framePush) - 1; i >= 1; i-- {
		v, err := b.ReadU32(sp)
		if err != nil {
			return err
		}
		c.R[framePush[i]] = v
		sp += 4
	}

	xpsr, err := b.ReadU32(sp)
	if err != nil {
		return err
	}
	sp += 4
	if xpsr&stkAlignBit != 0 {
		sp += 4 // undo the padding word enterException inserted
	}

	c.setXpsrWord(xpsr)
	c.R[RegSP] = sp
	c.R[RegPC] &^= 1
	c.inHandler = false
	return nil
}
