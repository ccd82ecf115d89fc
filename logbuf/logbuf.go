// Package logbuf keeps the device's log lines for display.
package logbuf

import (
	"strings"
	"sync"
)

// DefaultCapacity is the number of lines kept before the oldest is dropped.
const DefaultCapacity = 100000

// Sink is where the buffer renders, e.g. a text pane.
type Sink interface {
	// SetContent replaces the displayed text. hasContent is false for an
	// empty buffer, which is shown unstyled.
	SetContent(text string, hasContent bool)
	ScrollToEnd()
}

// Buffer is a bounded FIFO of log lines. Pausing freezes what the sink shows
// but lines keep arriving underneath. It is safe for concurrent use.
type Buffer struct {
	mu     sync.Mutex
	lines  []string
	head   int
	count  int
	max    int
	paused bool
	sink   Sink
}

// New returns a buffer rendering into sink, which may be nil.
func New(capacity int, sink Sink) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{max: capacity, sink: sink}
}

func blank(line string) bool {
	return strings.TrimSpace(line) == ""
}

// Append adds a line, evicting the oldest one if the buffer is full. Blank
// lines are ignored.
func (b *Buffer) Append(line string) bool {
	if blank(line) {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.appendLocked(line)
	return true
}

func (b *Buffer) appendLocked(line string) {
	if b.count < b.max {
		if len(b.lines) < b.max {
			b.lines = append(b.lines, line)
		} else {
			b.lines[(b.head+b.count)%b.max] = line
		}
		b.count++
		return
	}
	b.lines[b.head] = line
	b.head = (b.head + 1) % b.max
}

// AppendFragment splits text on newlines and appends each non-blank line.
// It returns the number of lines appended.
func (b *Buffer) AppendFragment(text string) int {
	if blank(text) {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, line := range strings.Split(text, "\n") {
		if blank(line) {
			continue
		}
		b.appendLocked(line)
		n++
	}
	return n
}

// Clear drops every line and refreshes the sink. Nothing is sent to the
// device.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.lines {
		b.lines[i] = ""
	}
	b.lines = b.lines[:0]
	b.head, b.count = 0, 0
	b.renderLocked(b.sink)
}

// SetPaused freezes or unfreezes the display. Unpausing renders immediately.
func (b *Buffer) SetPaused(paused bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	was := b.paused
	b.paused = paused
	if was && !paused {
		b.renderLocked(b.sink)
	}
}

func (b *Buffer) Paused() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.paused
}

// Refresh renders into the buffer's own sink.
func (b *Buffer) Refresh() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.renderLocked(b.sink)
}

// RenderInto writes all lines to sink and scrolls it to the end. It does
// nothing while paused.
func (b *Buffer) RenderInto(sink Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.renderLocked(sink)
}

func (b *Buffer) renderLocked(sink Sink) {
	if b.paused || sink == nil {
		return
	}
	if b.count == 0 {
		sink.SetContent("", false)
	} else {
		sink.SetContent(strings.Join(b.linesLocked(), "\n"), true)
	}
	sink.ScrollToEnd()
}

func (b *Buffer) linesLocked() []string {
	out := make([]string, b.count)
	for i := range out {
		out[i] = b.lines[(b.head+i)%len(b.lines)]
	}
	return out
}

// Lines returns a copy of the buffered lines, oldest first.
func (b *Buffer) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.linesLocked()
}

func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

func (b *Buffer) Cap() int {
	return b.max
}
