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

package memory_test

import (
	"testing"

	"github.com/w1ne/labwired/memory"
	"github.com/w1ne/labwired/simerror"
)

func TestReadAfterWrite(t *testing.T) {
	r := memory.NewRegion("ram", 0x20000000, 0x1000, memory.RAM)

	if err := r.WriteU32(0x10, 0xdeadbeef); err != nil {
		t.Fatalf("write: %v", err)
	}
	v, err := r.ReadU32(0x10)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if v != 0xdeadbeef {
		t.Fatalf("got %#08x, want 0xdeadbeef", v)
	}
}

func TestUnalignedHalfwordAccess(t *testing.T) {
	r := memory.NewRegion("ram", 0, 0x10, memory.RAM)
	if err := r.WriteU16(1, 0xabcd); err != nil {
		t.Fatalf("write: %v", err)
	}
	v, err := r.ReadU16(1)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if v != 0xabcd {
		t.Fatalf("got %#04x, want 0xabcd", v)
	}
}

func TestBoundaryAccess(t *testing.T) {
	r := memory.NewRegion("ram", 0, 16, memory.RAM)

	if _, err := r.ReadU8(15); err != nil {
		t.Fatalf("last byte should be in range: %v", err)
	}
	if _, err := r.ReadU8(16); err == nil {
		t.Fatalf("one past the end should be out of range")
	} else if _, ok := err.(*simerror.MemoryOutOfBounds); !ok {
		t.Fatalf("expected MemoryOutOfBounds, got %T", err)
	}

	if _, err := r.ReadU32(13); err == nil {
		t.Fatalf("word read overrunning the end should fail")
	}
}
