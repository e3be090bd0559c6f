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

// StopReason names why RunUntil returned, per spec.md §6. StopPredicate is
// this package's addition for the caller's own predicate returning true;
// it isn't one of the spec's five named reasons, since that's a normal,
// successful exit rather than a budget/fault condition.
type StopReason int

const (
	StopPredicate StopReason = iota
	StopMaxSteps
	StopWallTime
	StopMemoryViolation
	StopDecodeError
	StopHalt
)

func (r StopReason) String() string {
	switch r {
	case StopPredicate:
		return "predicate"
	case StopMaxSteps:
		return "max_steps"
	case StopWallTime:
		return "wall_time"
	case StopMemoryViolation:
		return "memory_violation"
	case StopDecodeError:
		return "decode_error"
	case StopHalt:
		return "halt"
	default:
		return "unknown"
	}
}
