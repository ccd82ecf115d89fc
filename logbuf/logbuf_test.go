package logbuf

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// textArea records what was rendered into it.
type textArea struct {
	text       string
	hasContent bool
	renders    int
	scrolled   bool
}

func (a *textArea) SetContent(text string, hasContent bool) {
	a.text, a.hasContent = text, hasContent
	a.renders++
	a.scrolled = false
}

func (a *textArea) ScrollToEnd() {
	a.scrolled = true
}

func TestOverflowEviction(t *testing.T) {
	b := New(3, nil)
	for _, l := range []string{"a", "b", "c", "d"} {
		b.Append(l)
	}
	if diff := cmp.Diff(b.Lines(), []string{"b", "c", "d"}); diff != "" {
		t.Errorf("got(-)/want(+):\n%s", diff)
	}
}

func TestCapacityBound(t *testing.T) {
	for _, capacity := range []int{1, 2, 7, 64} {
		t.Run(fmt.Sprint(capacity), func(t *testing.T) {
			b := New(capacity, nil)
			var all []string
			for i := 0; i < 3*capacity+1; i++ {
				line := fmt.Sprintf("line %d", i)
				all = append(all, line)
				b.Append(line)
				if b.Len() > capacity {
					t.Fatalf("Len() = %d after %d appends, capacity %d", b.Len(), i+1, capacity)
				}
			}
			want := all[len(all)-capacity:]
			if diff := cmp.Diff(b.Lines(), want); diff != "" {
				t.Errorf("got(-)/want(+):\n%s", diff)
			}
		})
	}
}

func TestDefaultCapacity(t *testing.T) {
	if got := New(0, nil).Cap(); got != DefaultCapacity {
		t.Errorf("Cap() = %d, want %d", got, DefaultCapacity)
	}
}

func TestBlankLinesRejected(t *testing.T) {
	b := New(10, nil)
	b.Append("x")
	for _, l := range []string{"", " ", "\t", " \r\n "} {
		if b.Append(l) {
			t.Errorf("Append(%q) = true, want false", l)
		}
	}
	if diff := cmp.Diff(b.Lines(), []string{"x"}); diff != "" {
		t.Errorf("got(-)/want(+):\n%s", diff)
	}
}

func TestAppendFragment(t *testing.T) {
	b := New(10, nil)
	n := b.AppendFragment("[10] INFO: one\n\n   \n[11] WARN: two\n")
	if n != 2 {
		t.Errorf("AppendFragment() = %d, want 2", n)
	}
	if diff := cmp.Diff(b.Lines(), []string{"[10] INFO: one", "[11] WARN: two"}); diff != "" {
		t.Errorf("got(-)/want(+):\n%s", diff)
	}
	if n := b.AppendFragment("  "); n != 0 {
		t.Errorf("AppendFragment(blank) = %d, want 0", n)
	}
}

func TestRender(t *testing.T) {
	var sink textArea
	b := New(10, &sink)
	b.Refresh()
	if sink.text != "" || sink.hasContent || sink.renders != 1 || !sink.scrolled {
		t.Errorf("empty render = %+v, want empty unstyled, scrolled", sink)
	}
	b.Append("a")
	b.Append("b")
	b.Refresh()
	if sink.text != "a\nb" || !sink.hasContent || !sink.scrolled {
		t.Errorf("render = %+v, want a\\nb with content, scrolled", sink)
	}
}

func TestPauseResume(t *testing.T) {
	var sink textArea
	b := New(10, &sink)
	b.Append("before")
	b.Refresh()

	b.SetPaused(true)
	renders := sink.renders
	b.Append("x")
	b.Refresh()
	b.Append("y")
	b.RenderInto(&sink)
	if sink.renders != renders || sink.text != "before" {
		t.Errorf("sink changed while paused: %+v", sink)
	}

	b.SetPaused(false)
	if sink.text != "before\nx\ny" || !sink.scrolled {
		t.Errorf("after resume = %+v, want all lines, scrolled", sink)
	}
}

func TestPauseResumeScenario(t *testing.T) {
	var sink textArea
	b := New(10, &sink)
	b.SetPaused(true)
	b.Append("x")
	b.Append("y")
	b.SetPaused(false)
	if sink.text != "x\ny" || !sink.scrolled {
		t.Errorf("got %+v, want x\\ny scrolled", sink)
	}
}

func TestPauseTwiceDoesNotRender(t *testing.T) {
	var sink textArea
	b := New(10, &sink)
	b.SetPaused(true)
	b.SetPaused(true)
	b.SetPaused(false)
	b.SetPaused(false)
	if sink.renders != 1 {
		t.Errorf("renders = %d, want 1", sink.renders)
	}
}

func TestClear(t *testing.T) {
	var sink textArea
	b := New(3, &sink)
	for _, l := range []string{"a", "b", "c", "d"} {
		b.Append(l)
	}
	b.Clear()
	if b.Len() != 0 || sink.text != "" || sink.hasContent {
		t.Errorf("after Clear: len %d sink %+v", b.Len(), sink)
	}
	b.Append("e")
	b.Refresh()
	if sink.text != "e" {
		t.Errorf("after Clear+Append: sink %q, want e", sink.text)
	}

	// Clearing while paused leaves the screen alone.
	b.SetPaused(true)
	b.Clear()
	if sink.text != "e" {
		t.Errorf("paused Clear changed sink to %q", sink.text)
	}
	b.SetPaused(false)
	if sink.text != "" || !sink.scrolled {
		t.Errorf("resume after Clear: sink %+v, want empty, scrolled", sink)
	}
}
