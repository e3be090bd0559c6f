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

package machine

import "github.com/w1ne/labwired/peripherals/scb"

// CPUSnapshot is the "cpu" object of spec.md §6's snapshot JSON.
type CPUSnapshot struct {
	Registers [16]uint32 `json:"registers"`
	XPSR      uint32     `json:"xpsr"`
	PRIMASK   uint32     `json:"primask"`
	VTOR      uint32     `json:"vtor"`
}

// Snapshot is the JSON object spec.md §6 names: CPU state plus every
// registered peripheral's own Snapshot(), keyed by its manifest name.
// Non-serializable fields are already excluded at the source — CPU and
// every peripheral's Snapshot method only ever return plain data.
type Snapshot struct {
	CPU         CPUSnapshot            `json:"cpu"`
	Peripherals map[string]interface{} `json:"peripherals"`
}

// Snapshot captures the Machine's current, serializable state.
func (m *Machine) Snapshot() Snapshot {
	peripherals := make(map[string]interface{}, len(m.bus.Peripherals()))
	for _, p := range m.bus.Peripherals() {
		peripherals[p.Name()] = p.Snapshot()
	}
	return Snapshot{
		CPU: CPUSnapshot{
			Registers: m.cpu.R,
			XPSR:      m.cpu.XPSR(),
			PRIMASK:   m.cpu.PRIMASK,
			VTOR:      m.bus.VTOR(),
		},
		Peripherals: peripherals,
	}
}

// Restore applies a Snapshot's CPU fields back onto the Machine: registers,
// xPSR (and therefore flags/IPSR), PRIMASK, and — if an SCB peripheral is
// registered — VTOR. Peripheral register state is not restored: the
// Peripheral contract (spec.md §4.3) has no inverse of Snapshot, only the
// forward direction, so a peripheral's internal state can be dumped but
// not reloaded through this package alone (see DESIGN.md's Open Question
// decision on snapshot round-tripping).
func (m *Machine) Restore(s Snapshot) {
	m.cpu.R = s.CPU.Registers
	m.cpu.SetXPSR(s.CPU.XPSR)
	m.cpu.PRIMASK = s.CPU.PRIMASK

	for _, p := range m.bus.Peripherals() {
		if sc, ok := p.(*scb.SCB); ok {
			sc.SetVTOR(s.CPU.VTOR)
		}
	}
}
