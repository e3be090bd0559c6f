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

package uart_test

import (
	"testing"

	"github.com/w1ne/labwired/peripherals/uart"
)

func TestHelloCapture(t *testing.T) {
	u := uart.New("uart1")
	for _, b := range []byte("Hi") {
		if err := u.Write(0x00, b); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if got := string(u.Captured()); got != "Hi" {
		t.Fatalf("captured = %q, want %q", got, "Hi")
	}
}

func TestStatusAlwaysReportsTXReady(t *testing.T) {
	u := uart.New("uart1")
	sr, err := u.Read(0x04)
	if err != nil {
		t.Fatalf("read SR: %v", err)
	}
	if sr&0x01 == 0 {
		t.Fatalf("TX-ready bit should always be set")
	}
}

func TestRXInjectionQueue(t *testing.T) {
	u := uart.New("uart1")
	u.InjectRX('Q')
	b, err := u.Read(0x00)
	if err != nil {
		t.Fatalf("read DR: %v", err)
	}
	if b != 'Q' {
		t.Fatalf("DR = %q, want %q", b, 'Q')
	}
}
