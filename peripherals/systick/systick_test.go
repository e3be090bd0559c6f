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

package systick_test

import (
	"testing"

	"github.com/w1ne/labwired/peripherals/systick"
)

func writeReg(s *systick.SysTick, reg uint32, v uint32) {
	for i := uint32(0); i < 4; i++ {
		_ = s.Write(reg+i, byte(v>>(8*i)))
	}
}

func TestUnderflowReloadsAndRaisesIRQ(t *testing.T) {
	s := systick.New("systick")
	writeReg(s, 0x04, 2)  // RVR=2
	writeReg(s, 0x00, 0x7) // CSR: enable+tickint+clksource

	// cvr starts at 0, so the first tick reloads from RVR without firing.
	r := s.Tick()
	if r.IRQ != nil {
		t.Fatalf("unexpected IRQ on initial reload")
	}

	r = s.Tick() // cvr: 2 -> 1
	if r.IRQ != nil {
		t.Fatalf("unexpected IRQ before underflow")
	}

	r = s.Tick() // cvr: 1 -> 0, underflow
	if r.IRQ == nil || *r.IRQ != systick.IRQ {
		t.Fatalf("expected IRQ %d on underflow, got %v", systick.IRQ, r.IRQ)
	}
}

func TestDisabledDoesNotCount(t *testing.T) {
	s := systick.New("systick")
	writeReg(s, 0x04, 1)
	r := s.Tick()
	if r.IRQ != nil {
		t.Fatalf("disabled SysTick must not raise IRQ")
	}
}
