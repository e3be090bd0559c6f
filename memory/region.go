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

// Package memory implements the flat, byte-addressable flash and RAM
// regions a chip descriptor's memory map is built from. Peripheral windows
// are not memory.Regions — they own no storage and are handled entirely by
// the bus package.
package memory

import "github.com/w1ne/labwired/simerror"

// Kind distinguishes the two storage-owning region kinds. Peripheral
// windows are represented at the bus layer, not here.
type Kind int

const (
	Flash Kind = iota
	RAM
)

func (k Kind) String() string {
	switch k {
	case Flash:
		return "flash"
	case RAM:
		return "ram"
	default:
		return "unknown"
	}
}

// Region is a contiguous, byte-addressable block of storage. Offsets
// passed to the accessor methods are relative to the region's own base —
// the caller (the Bus) is responsible for translating an absolute address
// into a region-relative offset before calling in.
type Region struct {
	Name string
	Base uint32
	Kind Kind

	bytes []byte
}

// NewRegion allocates a zeroed region of the given size.
func NewRegion(name string, base uint32, size uint32, kind Kind) *Region {
	return &Region{
		Name:  name,
		Base:  base,
		Kind:  kind,
		bytes: make([]byte, size),
	}
}

// Size returns the region's byte extent.
func (r *Region) Size() uint32 {
	return uint32(len(r.bytes))
}

func (r *Region) bounds(offset uint32, width uint32) error {
	if offset >= r.Size() || uint64(offset)+uint64(width) > uint64(r.Size()) {
		return &simerror.MemoryOutOfBounds{Addr: r.Base + offset}
	}
	return nil
}

// ReadU8 reads a single byte at offset.
func (r *Region) ReadU8(offset uint32) (uint8, error) {
	if err := r.bounds(offset, 1); err != nil {
		return 0, err
	}
	return r.bytes[offset], nil
}

// ReadU16 reads a little-endian halfword, assembled byte-by-byte so
// unaligned offsets are well-defined rather than faulting.
func (r *Region) ReadU16(offset uint32) (uint16, error) {
	if err := r.bounds(offset, 2); err != nil {
		return 0, err
	}
	return uint16(r.bytes[offset]) | uint16(r.bytes[offset+1])<<8, nil
}

// ReadU32 reads a little-endian word, assembled byte-by-byte.
func (r *Region) ReadU32(offset uint32) (uint32, error) {
	if err := r.bounds(offset, 4); err != nil {
		return 0, err
	}
	return uint32(r.bytes[offset]) |
		uint32(r.bytes[offset+1])<<8 |
		uint32(r.bytes[offset+2])<<16 |
		uint32(r.bytes[offset+3])<<24, nil
}

// WriteU8 writes a single byte at offset. Flash write protection is
// enforced by the Bus, not here — Region has no notion of "during
// execution" versus "during load".
func (r *Region) WriteU8(offset uint32, v uint8) error {
	if err := r.bounds(offset, 1); err != nil {
		return err
	}
	r.bytes[offset] = v
	return nil
}

// WriteU16 writes a little-endian halfword byte-by-byte.
func (r *Region) WriteU16(offset uint32, v uint16) error {
	if err := r.bounds(offset, 2); err != nil {
		return err
	}
	r.bytes[offset] = byte(v)
	r.bytes[offset+1] = byte(v >> 8)
	return nil
}

// WriteU32 writes a little-endian word byte-by-byte.
func (r *Region) WriteU32(offset uint32, v uint32) error {
	if err := r.bounds(offset, 4); err != nil {
		return err
	}
	r.bytes[offset] = byte(v)
	r.bytes[offset+1] = byte(v >> 8)
	r.bytes[offset+2] = byte(v >> 16)
	r.bytes[offset+3] = byte(v >> 24)
	return nil
}

// WriteRaw copies bytes into the region starting at offset, bypassing any
// flash-protection concept entirely. This is the loader path: the Bus
// calls it for LoadSegment regardless of region kind.
func (r *Region) WriteRaw(offset uint32, data []byte) error {
	if err := r.bounds(offset, uint32(len(data))); err != nil {
		return err
	}
	copy(r.bytes[offset:], data)
	return nil
}
