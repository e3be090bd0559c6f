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

// Package logger is a small central logger for simulation-time events that
// don't stop the run: stub-peripheral writes (tag "stub") and DMA requests
// the Bus failed to settle (tag "bus"). It exists so peripherals can narrate what they're doing
// without every caller having to carry an io.Writer through the Bus.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Entry is a single line in the log, with consecutive repeats collapsed.
type Entry struct {
	Timestamp time.Time
	Tag       string
	Detail    string
	repeated  int
}

func (e *Entry) String() string {
	s := strings.Builder{}
	fmt.Fprintf(&s, "%s: %s", e.Tag, e.Detail)
	if e.repeated > 0 {
		fmt.Fprintf(&s, " (repeat x%d)", e.repeated+1)
	}
	s.WriteString("\n")
	return s.String()
}

// Permission implementations indicate whether the caller's environment is
// allowed to create new log entries. CI mode, for instance, may want to
// suppress UART/stub chatter entirely without the peripheral itself knowing.
type Permission interface {
	AllowLogging() bool
}

type allow struct{}

func (allow) AllowLogging() bool { return true }

// Allow is the default Permission: always log.
var Allow Permission = allow{}

const maxEntries = 512

type central struct {
	mu      sync.Mutex
	entries []Entry
	echo    io.Writer
}

var log = &central{}

// Logf adds a formatted entry to the central log, tagged by the
// originating component (e.g. "uart", "dma", "nvic").
func Logf(perm Permission, tag, format string, args ...interface{}) {
	if perm != Allow && !perm.AllowLogging() {
		return
	}
	log.add(tag, fmt.Sprintf(format, args...))
}

func (c *central) add(tag, detail string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	tag = strings.ReplaceAll(tag, "\n", " ")
	detail = strings.ReplaceAll(detail, "\n", " ")

	if n := len(c.entries); n > 0 {
		e := &c.entries[n-1]
		if e.Tag == tag && e.Detail == detail {
			e.repeated++
			e.Timestamp = time.Now()
			if c.echo != nil {
				io.WriteString(c.echo, e.String())
			}
			return
		}
	}

	e := Entry{Timestamp: time.Now(), Tag: tag, Detail: detail}
	c.entries = append(c.entries, e)
	if len(c.entries) > maxEntries {
		c.entries = c.entries[len(c.entries)-maxEntries:]
	}
	if c.echo != nil {
		io.WriteString(c.echo, e.String())
	}
}

// SetEcho causes every future log entry to also be written to w
// immediately. Pass nil to stop echoing. Defaults to no echo; tests and
// CI runs that want silence never need to call this.
func SetEcho(w io.Writer) {
	log.mu.Lock()
	defer log.mu.Unlock()
	log.echo = w
}

// Clear removes all entries from the central log.
func Clear() {
	log.mu.Lock()
	defer log.mu.Unlock()
	log.entries = nil
}

// Tail writes the last n entries to w.
func Tail(w io.Writer, n int) {
	log.mu.Lock()
	defer log.mu.Unlock()
	if n > len(log.entries) {
		n = len(log.entries)
	}
	for _, e := range log.entries[len(log.entries)-n:] {
		io.WriteString(w, e.String())
	}
}

// Write writes every entry currently in the log to w.
func Write(w io.Writer) {
	log.mu.Lock()
	defer log.mu.Unlock()
	for _, e := range log.entries {
		io.WriteString(w, e.String())
	}
}

// Stderr is a convenience Writer for SetEcho(logger.Stderr).
var Stderr io.Writer = os.Stderr
