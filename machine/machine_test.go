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

package machine_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/w1ne/labwired/bus"
	"github.com/w1ne/labwired/config"
	"github.com/w1ne/labwired/cpu"
	"github.com/w1ne/labwired/image"
	"github.com/w1ne/labwired/machine"
	"github.com/w1ne/labwired/memory"
	"github.com/w1ne/labwired/peripherals/nvic"
	"github.com/w1ne/labwired/peripherals/scb"
	"github.com/w1ne/labwired/peripherals/systick"
	"github.com/w1ne/labwired/peripherals/uart"
)

const uartBase = 0x4000C000

// newTestMachine wires a vector table at 0x0, code flash at 0x08000000,
// RAM at 0x20000000, and NVIC/SCB/SysTick/UART at their spec.md §4.6
// addresses — the fixed layout every end-to-end scenario in spec.md §8
// assumes.
func newTestMachine(t *testing.T) *machine.Machine {
	t.Helper()

	b := bus.New()
	must(t, b.AddRegion(memory.NewRegion("vectors", 0, 0x1000, memory.Flash)))
	must(t, b.AddRegion(memory.NewRegion("flash", 0x08000000, 0x10000, memory.Flash)))
	must(t, b.AddRegion(memory.NewRegion("ram", 0x20000000, 0x10000, memory.RAM)))
	must(t, b.RegisterPeripheral(nvic.Base, nvic.New("nvic")))
	must(t, b.RegisterPeripheral(scb.Base, scb.New("scb")))
	must(t, b.RegisterPeripheral(systick.Base, systick.New("systick")))
	must(t, b.RegisterPeripheral(uartBase, uart.New("uart1")))

	writeWord(t, b, 0x0, 0x20002000)
	writeWord(t, b, 0x4, 0x08000001)

	m := machine.New(b, config.Default())
	if err := m.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	return m
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
}

func writeWord(t *testing.T, b *bus.Bus, addr, v uint32) {
	t.Helper()
	if err := b.LoadSegment(addr, []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}); err != nil {
		t.Fatalf("write word at %#08x: %v", addr, err)
	}
}

func writeHalf(t *testing.T, b *bus.Bus, addr uint32, v uint16) {
	t.Helper()
	if err := b.LoadSegment(addr, []byte{byte(v), byte(v >> 8)}); err != nil {
		t.Fatalf("write half at %#08x: %v", addr, err)
	}
}

func findUART(t *testing.T, b *bus.Bus) *uart.UART {
	t.Helper()
	for _, p := range b.Peripherals() {
		if u, ok := p.(*uart.UART); ok {
			return u
		}
	}
	t.Fatal("no uart peripheral registered")
	return nil
}

func findNVIC(t *testing.T, b *bus.Bus) *nvic.NVIC {
	t.Helper()
	for _, p := range b.Peripherals() {
		if n, ok := p.(*nvic.NVIC); ok {
			return n
		}
	}
	t.Fatal("no nvic peripheral registered")
	return nil
}

// Scenario 1: boot vector.
func TestScenarioBootVector(t *testing.T) {
	m := newTestMachine(t)
	c := m.CPU()
	if c.R[cpu.RegSP] != 0x20002000 {
		t.Fatalf("SP = %#08x, want 0x20002000", c.R[cpu.RegSP])
	}
	if c.R[cpu.RegPC] != 0x08000000 {
		t.Fatalf("PC = %#08x, want 0x08000000", c.R[cpu.RegPC])
	}
}

// Scenario 2: MOV immediate.
func TestScenarioMovImmediate(t *testing.T) {
	m := newTestMachine(t)
	writeHalf(t, m.Bus(), 0x08000000, 0x202A) // MOV R0, #0x2A

	if _, err := m.Step(); err != nil {
		t.Fatalf("step: %v", err)
	}
	c := m.CPU()
	if c.R[0] != 0x2A {
		t.Fatalf("R0 = %#x, want 0x2A", c.R[0])
	}
	if c.R[cpu.RegPC] != 0x08000002 {
		t.Fatalf("PC = %#08x, want 0x08000002", c.R[cpu.RegPC])
	}
}

// Scenario 3: UART hello. MOVS R0,#'H'; STR-byte-by-byte via STRB R0,
// [R1] with R1 pre-loaded to the UART data register address.
func TestScenarioUARTHello(t *testing.T) {
	m := newTestMachine(t)
	b := m.Bus()

	// MOV R0,#'H' ; STRB R0,[R1] ; MOV R0,#'i' ; STRB R0,[R1]
	//
	// R1 is loaded with the UART data register address by a direct
	// register write rather than a MOVW/MOVT pair, since wide MOVW/MOVT
	// encodings are already covered by decoder's tests. The scenario under
	// test here is UART capture, not instruction encoding.
	c := m.CPU()
	c.R[1] = uartBase

	writeHalf(t, b, 0x08000000, 0x2048) // MOV R0, #0x48 ('H')
	writeHalf(t, b, 0x08000002, 0x7008) // STRB R0, [R1, #0]
	writeHalf(t, b, 0x08000004, 0x2069) // MOV R0, #0x69 ('i')
	writeHalf(t, b, 0x08000006, 0x7008) // STRB R0, [R1, #0]

	for i := 0; i < 4; i++ {
		if _, err := m.Step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}

	u := findUART(t, b)
	if got := string(u.Captured()); got != "Hi" {
		t.Fatalf("captured = %q, want %q", got, "Hi")
	}
}

// Scenario 4: SysTick IRQ.
func TestScenarioSysTickIRQ(t *testing.T) {
	m := newTestMachine(t)
	b := m.Bus()

	writeWord(t, b, 4*systick.IRQ, 0x08000100)
	writeHalf(t, b, 0x08000100, 0x4770) // BX LR, to return from the handler

	// RVR=2, CSR=enable|tickint|clksource.
	must(t, b.WriteU32(systick.Base+0x04, 2))
	must(t, b.WriteU32(systick.Base+0x00, 0x7))

	writeHalf(t, b, 0x08000000, 0x46C0) // NOP (MOV R8,R8), filler instruction(s) to step through

	var entered bool
	for i := 0; i < 5; i++ {
		if _, err := m.Step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if m.CPU().R[cpu.RegPC] == 0x08000100 {
			entered = true
			break
		}
	}
	if !entered {
		t.Fatalf("SysTick IRQ never entered handler within 5 steps")
	}
	if m.CPU().IPSR != systick.IRQ {
		t.Fatalf("IPSR = %d, want %d", m.CPU().IPSR, systick.IRQ)
	}
}

// Scenario 5: NVIC masking.
func TestScenarioNVICMasking(t *testing.T) {
	m := newTestMachine(t)
	b := m.Bus()

	const extIRQ = 16 + 20
	writeWord(t, b, 4*extIRQ, 0x08000200)
	writeHalf(t, b, 0x08000000, 0x202A) // MOV R0, #0x2A, filler

	nv := findNVIC(t, b)
	nv.Pend(extIRQ)

	if _, err := m.Step(); err != nil {
		t.Fatalf("step with disabled irq: %v", err)
	}
	if m.CPU().R[cpu.RegPC] == 0x08000200 {
		t.Fatalf("IRQ 36 entered with ISER bit clear")
	}

	// Enable ISER bit 20 (byte 2, bit 4) for external index 20 == IRQ 36.
	must(t, b.WriteU8(nvic.Base+2, 0x10))
	nv.Pend(extIRQ)

	if _, err := m.Step(); err != nil {
		t.Fatalf("step with enabled irq: %v", err)
	}
	if m.CPU().R[cpu.RegPC] != 0x08000200 {
		t.Fatalf("PC = %#08x, want handler at 0x08000200 after enabling ISER bit 20", m.CPU().R[cpu.RegPC])
	}
}

// Scenario 6: VTOR relocation.
func TestScenarioVTORRelocation(t *testing.T) {
	m := newTestMachine(t)
	b := m.Bus()

	const relocated = 0x20000000
	const irq = 17
	writeWord(t, b, relocated+4*irq, 0x08000300)
	writeHalf(t, b, 0x08000300, 0x4770) // BX LR

	// VTOR register is 4 bytes starting at scb.Base+0x08.
	must(t, b.WriteU32(scb.Base+0x08, relocated))

	writeHalf(t, b, 0x08000000, 0x202A) // filler

	must(t, b.WriteU8(nvic.Base, 0x02)) // enable ISER bit for irq-16=1
	findNVIC(t, b).Pend(irq)

	if _, err := m.Step(); err != nil {
		t.Fatalf("step: %v", err)
	}
	if m.CPU().R[cpu.RegPC] != 0x08000300 {
		t.Fatalf("PC = %#08x, want handler read from relocated VTOR at 0x08000300", m.CPU().R[cpu.RegPC])
	}
}

func TestRunUntilStopsOnMaxSteps(t *testing.T) {
	m := newTestMachine(t)
	b := m.Bus()
	writeHalf(t, b, 0x08000000, 0x202A) // MOV R0, #0x2A; later steps run the zeroed flash after it (LSL R0, R0, #0)

	opts := config.Default()
	opts.MaxSteps = 3
	m2 := machine.New(b, opts)
	if err := m2.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}

	reason, err := m2.RunUntil(nil)
	if err != nil {
		t.Fatalf("RunUntil: %v", err)
	}
	if reason != machine.StopMaxSteps {
		t.Fatalf("reason = %v, want StopMaxSteps", reason)
	}
}

func TestRunUntilStopsOnHalt(t *testing.T) {
	m := newTestMachine(t)
	b := m.Bus()
	writeHalf(t, b, 0x08000000, 0xBF30) // WFI

	reason, err := m.RunUntil(nil)
	if err != nil {
		t.Fatalf("RunUntil: %v", err)
	}
	if reason != machine.StopHalt {
		t.Fatalf("reason = %v, want StopHalt", reason)
	}
}

func TestRunUntilStopsOnDecodeError(t *testing.T) {
	m := newTestMachine(t)
	b := m.Bus()
	writeHalf(t, b, 0x08000000, 0xFFFF) // not a valid Thumb-2 encoding

	reason, err := m.RunUntil(nil)
	if err == nil {
		t.Fatalf("RunUntil: want error for unknown instruction")
	}
	if reason != machine.StopDecodeError {
		t.Fatalf("reason = %v, want StopDecodeError", reason)
	}
}

func TestRunUntilStopsOnPredicate(t *testing.T) {
	m := newTestMachine(t)
	b := m.Bus()
	writeHalf(t, b, 0x08000000, 0x202A)
	writeHalf(t, b, 0x08000002, 0x202B)
	writeHalf(t, b, 0x08000004, 0x202C)

	var seen int
	reason, err := m.RunUntil(func(machine.StepResult) bool {
		seen++
		return seen == 2
	})
	if err != nil {
		t.Fatalf("RunUntil: %v", err)
	}
	if reason != machine.StopPredicate {
		t.Fatalf("reason = %v, want StopPredicate", reason)
	}
	if seen != 2 {
		t.Fatalf("seen = %d, want 2", seen)
	}
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	m := newTestMachine(t)
	before := m.Snapshot()

	writeHalf(t, m.Bus(), 0x08000000, 0x202A) // MOV R0, #0x2A
	if _, err := m.Step(); err != nil {
		t.Fatalf("step: %v", err)
	}
	if m.CPU().R[0] == before.CPU.Registers[0] {
		t.Fatalf("test setup broken: state did not change after step")
	}

	m.Restore(before)
	after := m.Snapshot()

	if diff := cmp.Diff(before.CPU, after.CPU); diff != "" {
		t.Fatalf("cpu snapshot mismatch after restore (-before +after):\n%s", diff)
	}
}

type recordingObserver struct {
	resets    int
	starts    int
	stops     []machine.StopReason
	stepPosts int
}

func (r *recordingObserver) OnReset()                                    { r.resets++ }
func (r *recordingObserver) OnStepPre(pc uint32, opcode uint32)           {}
func (r *recordingObserver) OnStepPost(retired uint32, cycles uint32)     { r.stepPosts++ }
func (r *recordingObserver) OnStart()                                    { r.starts++ }
func (r *recordingObserver) OnStop(reason machine.StopReason)            { r.stops = append(r.stops, reason) }

func TestObserverFanOut(t *testing.T) {
	m := newTestMachine(t)
	rec := &recordingObserver{}
	m.AttachObserver(rec)

	if err := m.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if rec.resets != 1 {
		t.Fatalf("resets = %d, want 1", rec.resets)
	}

	writeHalf(t, m.Bus(), 0x08000000, 0xBF30) // WFI
	reason, err := m.RunUntil(nil)
	if err != nil {
		t.Fatalf("RunUntil: %v", err)
	}
	if reason != machine.StopHalt {
		t.Fatalf("reason = %v, want StopHalt", reason)
	}
	if rec.starts != 1 || len(rec.stops) != 1 || rec.stops[0] != machine.StopHalt || rec.stepPosts != 1 {
		t.Fatalf("unexpected observer counts: %+v", rec)
	}
}

func TestLoadFirmwareCopiesSegments(t *testing.T) {
	m := newTestMachine(t)
	img := image.ProgramImage{
		EntryPoint: 0x08000000,
		Segments: []image.Segment{
			{LoadAddress: 0x08000000, Data: []byte{0x2A, 0x20}}, // MOV R0, #0x2A
		},
	}
	if err := m.LoadFirmware(img); err != nil {
		t.Fatalf("load firmware: %v", err)
	}
	if _, err := m.Step(); err != nil {
		t.Fatalf("step: %v", err)
	}
	if m.CPU().R[0] != 0x2A {
		t.Fatalf("R0 = %#x, want 0x2A", m.CPU().R[0])
	}
}
