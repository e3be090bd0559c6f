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

package afio_test

import (
	"testing"

	"github.com/w1ne/labwired/peripherals/afio"
)

func TestMAPRReadWriteRoundTrips(t *testing.T) {
	a := afio.New("afio")
	if err := a.Write(0x04, 0xab); err != nil {
		t.Fatalf("write MAPR byte0: %v", err)
	}
	v, err := a.Read(0x04)
	if err != nil {
		t.Fatalf("read MAPR byte0: %v", err)
	}
	if v != 0xab {
		t.Fatalf("MAPR byte0 = %#x, want 0xab", v)
	}
}

func TestEXTICRRegistersAreIndependent(t *testing.T) {
	a := afio.New("afio")
	if err := a.Write(0x08, 0x01); err != nil { // EXTICR1 byte0
		t.Fatalf("write EXTICR1: %v", err)
	}
	if err := a.Write(0x0C, 0x02); err != nil { // EXTICR2 byte0
		t.Fatalf("write EXTICR2: %v", err)
	}
	if err := a.Write(0x14, 0x04); err != nil { // EXTICR4 byte0
		t.Fatalf("write EXTICR4: %v", err)
	}

	v1, err := a.Read(0x08)
	if err != nil {
		t.Fatalf("read EXTICR1: %v", err)
	}
	v2, err := a.Read(0x0C)
	if err != nil {
		t.Fatalf("read EXTICR2: %v", err)
	}
	v4, err := a.Read(0x14)
	if err != nil {
		t.Fatalf("read EXTICR4: %v", err)
	}
	if v1 != 0x01 || v2 != 0x02 || v4 != 0x04 {
		t.Fatalf("EXTICR1/2/4 = %#x/%#x/%#x, want 0x01/0x02/0x04", v1, v2, v4)
	}
}

func TestEVCRReadWriteRoundTrips(t *testing.T) {
	a := afio.New("afio")
	if err := a.Write(0x00, 0x80); err != nil {
		t.Fatalf("write EVCR: %v", err)
	}
	v, err := a.Read(0x00)
	if err != nil {
		t.Fatalf("read EVCR: %v", err)
	}
	if v != 0x80 {
		t.Fatalf("EVCR = %#x, want 0x80", v)
	}
}
