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

// Package image defines the plain data contract an ELF loader hands the
// core, per spec.md §6: a program is a list of load-address/bytes segments
// plus an entry point the core ignores (the real entry is whatever the
// vector table's reset handler points to). Nothing in this module parses
// ELF bytes — that is an external collaborator's job.
package image

// Segment is one contiguous range of bytes to be copied into memory at
// LoadAddress, via the loader path (flash-writable even for flash-kind
// regions).
type Segment struct {
	LoadAddress uint32
	Data        []byte
}

// ProgramImage is the decoded form of a firmware binary, ready to be
// copied into a Machine's address space.
type ProgramImage struct {
	// EntryPoint is carried through from the loader for diagnostics only;
	// the Machine never branches to it directly. Actual execution starts
	// from the reset vector read out of the image's own memory contents
	// (spec.md §4.4's reset algorithm).
	EntryPoint uint32
	Segments   []Segment
}
