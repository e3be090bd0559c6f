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

package i2c_test

import (
	"testing"

	"github.com/w1ne/labwired/peripherals/i2c"
)

func TestStatusAlwaysReportsTXReady(t *testing.T) {
	c := i2c.New("i2c1")
	sr1, err := c.Read(0x14)
	if err != nil {
		t.Fatalf("read SR1: %v", err)
	}
	if sr1&0x80 == 0 {
		t.Fatalf("TXE should always be set")
	}
}

func TestDataRegisterDowncastAccessor(t *testing.T) {
	c := i2c.New("i2c1")
	c.InjectRX(0x42)
	if got := c.ReadDataRegister(); got != 0x42 {
		t.Fatalf("ReadDataRegister = %#x, want 0x42", got)
	}
	c.WriteDataRegister(0x99)
	if log := c.TXLog(); len(log) != 1 || log[0] != 0x99 {
		t.Fatalf("TXLog = %v, want [0x99]", log)
	}
}
