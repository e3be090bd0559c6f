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

// Package config carries the run-time knobs a Machine is constructed with.
// It is a plain value type, not a persisted preference tree: the core never
// owns a location on disk, so there is nothing here to load or save.
package config

import "time"

// Options configures a Machine's execution ceiling and peripheral behavior.
type Options struct {
	// ClockHz is the nominal CPU clock rate. Nothing in this module reads
	// it: it affects neither instruction semantics nor the WallClock check
	// (spec.md's non-goals exclude wall-clock pacing).
	ClockHz uint32

	// MaxSteps stops RunUntil with StopMaxSteps once reached. Zero means no
	// ceiling.
	MaxSteps uint64

	// WallClock stops RunUntil with StopWallTime once elapsed. Zero means no
	// ceiling.
	WallClock time.Duration

	// SuppressUART discards UART TX bytes instead of appending them to the
	// configured sink. Intended for CI runs that only care about exit
	// status, not captured output.
	SuppressUART bool
}

// Default returns the baseline options for a Cortex-M3 part clocked at the
// common 72MHz, with no step/time ceiling and UART output visible.
func Default() Options {
	return Options{
		ClockHz:      72_000_000,
		MaxSteps:     0,
		WallClock:    0,
		SuppressUART: false,
	}
}
