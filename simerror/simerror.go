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

// Package simerror defines the error taxonomy that bubbles out of a
// Machine's Step(): memory faults, decode failures, and the handful of
// CPU-level invariant violations that end a simulation run.
package simerror

import "fmt"

// MemoryOutOfBounds is returned for an access past the extent of a memory
// region or past a peripheral's declared size. An address that no routing
// table entry contains fails with MemoryFault instead.
type MemoryOutOfBounds struct {
	Addr uint32
}

func (e *MemoryOutOfBounds) Error() string {
	return fmt.Sprintf("memory out of bounds: %#08x", e.Addr)
}

// WriteToFlash is returned for a store targeting a flash-kind region during
// execution. Writes during the loader path bypass this check entirely.
type WriteToFlash struct {
	Addr uint32
}

func (e *WriteToFlash) Error() string {
	return fmt.Sprintf("write to flash: %#08x", e.Addr)
}

// UnknownInstruction is returned when the decoder recognises neither a
// 16-bit nor a 32-bit encoding for an opcode.
type UnknownInstruction struct {
	PC     uint32
	Opcode uint32
}

func (e *UnknownInstruction) Error() string {
	return fmt.Sprintf("unknown instruction %#04x at pc %#08x", e.Opcode, e.PC)
}

// UnalignedFetch is returned when the program counter loses halfword
// alignment, which should never happen for well-formed Thumb code.
type UnalignedFetch struct {
	PC uint32
}

func (e *UnalignedFetch) Error() string {
	return fmt.Sprintf("unaligned fetch at pc %#08x", e.PC)
}

// VectorTableMissing is returned when exception entry finds a zero or
// out-of-range handler address for the exception being taken.
type VectorTableMissing struct {
	IRQ     uint32
	Address uint32
}

func (e *VectorTableMissing) Error() string {
	return fmt.Sprintf("vector table entry for irq %d missing (read %#08x)", e.IRQ, e.Address)
}

// MemoryFault is returned by the Bus when no routing table entry contains
// the requested address at all (as distinct from MemoryOutOfBounds, which
// covers an in-range region accessed past its own extent).
type MemoryFault struct {
	Addr uint32
}

func (e *MemoryFault) Error() string {
	return fmt.Sprintf("memory fault: unrouted address %#08x", e.Addr)
}

// Internal signals an invariant violation that should not occur in a
// well-formed run. It exists so that defensive checks have somewhere to
// report to rather than panicking the host process.
type Internal struct {
	Message string
}

func (e *Internal) Error() string {
	return "internal: " + e.Message
}
