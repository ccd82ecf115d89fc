package main

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/w1xm/dish_interface/device"
	"github.com/w1xm/dish_interface/logbuf"
	"github.com/w1xm/dish_interface/skyplane"
	"github.com/w1xm/dish_interface/telemetry"
)

const (
	planeCols   = 60
	planeRows   = 30
	planeMargin = 16
	modalPage   = "modal"
)

const helpText = "[yellow]p[-] pause logs  [yellow]c[-] clear logs  [yellow]s[-] stop  [yellow]w[-] weather update  " +
	"[yellow]R[-] restart  [yellow]U[-] reset unwind  [yellow]E[-] reset EEPROM  [yellow]q[-] quit"

// pending is what the poll goroutine has produced since the last flush.
type pending struct {
	frame     *skyplane.Braille
	fields    string
	logs      *string
	scrollEnd bool
	status    string
	alerts    []string
}

// terminalUI shows the dashboard with tview. Producers never call into
// tview directly: they fill pending and a flusher hands it to the UI
// goroutine, so a stalled screen cannot stall polling.
type terminalUI struct {
	app       *tview.Application
	pages     *tview.Pages
	plane     *tview.Box
	fieldView *tview.TextView
	logView   *tview.TextView
	status    *tview.TextView

	d    *device.Dispatcher
	logs *logbuf.Buffer

	// Only touched by Plot, on the poll goroutine.
	canvas   *skyplane.Braille
	renderer *skyplane.Renderer

	// Owned by the tview goroutine.
	frame *skyplane.Braille

	mu      sync.Mutex
	values  map[string]string
	stats   telemetry.Stats
	pending pending
	dirty   chan struct{}

	// Last log text handed to the view. The buffer re-renders on every poll.
	logText       string
	hasLogs       bool
	logsUnchanged bool
}

var _ frontend = (*terminalUI)(nil)

func newTerminalUI(d *device.Dispatcher) *terminalUI {
	canvas := skyplane.NewBraille(planeCols, planeRows)
	t := &terminalUI{
		d:        d,
		canvas:   canvas,
		renderer: skyplane.NewRendererWithMargin(canvas, planeMargin),
		values:   map[string]string{},
		dirty:    make(chan struct{}, 1),
	}

	t.plane = tview.NewBox()
	t.plane.SetBorder(true).SetTitle("Skyplane").SetTitleAlign(tview.AlignLeft)
	t.plane.SetDrawFunc(func(screen tcell.Screen, x, y, width, height int) (int, int, int, int) {
		if t.frame != nil {
			t.frame.DrawScreen(screen, x+1, y+1, width-2, height-2)
		}
		return x + 1, y + 1, width - 2, height - 2
	})

	t.fieldView = tview.NewTextView().SetDynamicColors(true).SetWrap(false)
	t.fieldView.SetBorder(true).SetTitle("Device").SetTitleAlign(tview.AlignLeft)

	// Device log lines contain [INFO] and the like, which must not be read
	// as color tags.
	t.logView = tview.NewTextView().SetDynamicColors(false).SetWrap(false)
	t.logView.SetBorder(true).SetTitle("Log").SetTitleAlign(tview.AlignLeft)

	t.status = tview.NewTextView().SetDynamicColors(true).SetWrap(false)
	t.status.SetTextColor(tcell.ColorYellow)
	help := tview.NewTextView().SetDynamicColors(true).SetWrap(false).SetText(helpText)

	top := tview.NewFlex().
		AddItem(t.plane, planeCols+2, 0, false).
		AddItem(t.fieldView, 0, 1, false)
	layout := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(top, planeRows+2, 0, false).
		AddItem(t.logView, 0, 1, true).
		AddItem(t.status, 1, 0, false).
		AddItem(help, 1, 0, false)

	t.pages = tview.NewPages().AddPage("main", layout, true, true)
	t.app = tview.NewApplication().SetRoot(t.pages, true).EnableMouse(false)
	t.app.SetInputCapture(t.key)
	return t
}

func (t *terminalUI) poke() {
	select {
	case t.dirty <- struct{}{}:
	default:
	}
}

func (t *terminalUI) SetField(name, value string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.values[name] = value
}

func (t *terminalUI) Plot(f skyplane.Frame) {
	t.renderer.Draw(f)
	frame := t.canvas.Clone()
	t.mu.Lock()
	t.pending.frame = frame
	t.mu.Unlock()
	t.poke()
}

func (t *terminalUI) SetContent(text string, hasContent bool) {
	if !hasContent {
		text = ""
	}
	t.mu.Lock()
	t.logsUnchanged = text == t.logText && hasContent == t.hasLogs
	if t.logsUnchanged {
		t.mu.Unlock()
		return
	}
	t.logText, t.hasLogs = text, hasContent
	t.pending.logs = &text
	t.mu.Unlock()
	t.poke()
}

// ScrollToEnd follows SetContent, and is dropped along with it when the
// text did not change, so an operator scrolling back is left alone.
func (t *terminalUI) ScrollToEnd() {
	t.mu.Lock()
	if t.logsUnchanged {
		t.mu.Unlock()
		return
	}
	t.pending.scrollEnd = true
	t.mu.Unlock()
	t.poke()
}

func (t *terminalUI) Applied(snap *telemetry.Snapshot, stats telemetry.Stats) {
	status := t.statusText(stats)
	t.mu.Lock()
	t.stats = stats
	t.pending.fields = t.fieldsTextLocked()
	t.pending.status = status
	t.mu.Unlock()
	t.poke()
}

func (t *terminalUI) Alert(msg string) {
	t.mu.Lock()
	t.pending.alerts = append(t.pending.alerts, msg)
	t.mu.Unlock()
	t.poke()
}

func (t *terminalUI) fieldsTextLocked() string {
	var b strings.Builder
	for _, name := range fieldOrder {
		v, ok := t.values[name]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "[gray]%-26s[-] %s\n", name, tview.Escape(v))
	}
	return b.String()
}

// statusText reads the log buffer, so it must not be called with mu held:
// the buffer calls into us with its own lock held.
func (t *terminalUI) statusText(s telemetry.Stats) string {
	line := fmt.Sprintf("Polls: %s issued / %s applied / %s dropped / %s stale",
		humanize.Comma(int64(s.Issued)),
		humanize.Comma(int64(s.Applied)),
		humanize.Comma(int64(s.Dropped)),
		humanize.Comma(int64(s.Stale)))
	if t.logs != nil {
		line += fmt.Sprintf("  Log: %s lines", humanize.Comma(int64(t.logs.Len())))
		if t.logs.Paused() {
			line += " [red](paused)[-]"
		}
	}
	return line
}

// flush moves pending state onto the screen.
func (t *terminalUI) flush() {
	t.mu.Lock()
	p := t.pending
	t.pending = pending{}
	t.mu.Unlock()

	t.app.QueueUpdateDraw(func() {
		if p.frame != nil {
			t.frame = p.frame
		}
		if p.fields != "" {
			t.fieldView.SetText(p.fields)
		}
		if p.logs != nil {
			t.logView.SetText(*p.logs)
		}
		if p.scrollEnd {
			t.logView.ScrollToEnd()
		}
		if p.status != "" {
			t.status.SetText(p.status)
		}
		for _, msg := range p.alerts {
			t.showModal(msg, []string{"OK"}, nil)
		}
	})
}

func (t *terminalUI) refreshStatus() {
	t.mu.Lock()
	stats := t.stats
	t.mu.Unlock()
	status := t.statusText(stats)
	t.mu.Lock()
	t.pending.status = status
	t.mu.Unlock()
	t.poke()
}

// showModal must run on the tview goroutine. onOK runs if the last button
// is chosen.
func (t *terminalUI) showModal(text string, buttons []string, onOK func()) {
	modal := tview.NewModal().
		SetText(text).
		AddButtons(buttons).
		SetDoneFunc(func(i int, label string) {
			t.pages.RemovePage(modalPage)
			if onOK != nil && i == len(buttons)-1 {
				onOK()
			}
		})
	t.pages.AddPage(modalPage, modal, true, true)
	t.app.SetFocus(modal)
}

func (t *terminalUI) dispatch(cmd device.Command) {
	if err := t.d.Dispatch(cmd); err != nil {
		t.Alert(err.Error())
	}
}

// confirm asks before dispatching a command that has a prompt.
func (t *terminalUI) confirm(name string) {
	t.showModal(device.Prompt(name), []string{"Cancel", "OK"}, func() {
		t.dispatch(device.Command{Command: name, Confirmed: true})
	})
}

func (t *terminalUI) key(ev *tcell.EventKey) *tcell.EventKey {
	if t.pages.HasPage(modalPage) {
		return ev
	}
	switch ev.Rune() {
	case 'q':
		t.app.Stop()
		return nil
	case 'p':
		t.logs.SetPaused(!t.logs.Paused())
		t.refreshStatus()
		return nil
	case 'c':
		t.logs.Clear()
		t.refreshStatus()
		return nil
	case 's':
		t.dispatch(device.Command{Command: device.CmdStop})
		return nil
	case 'w':
		t.dispatch(device.Command{Command: device.CmdForceWeatherUpdate})
		return nil
	case 'R':
		t.confirm(device.CmdRestart)
		return nil
	case 'U':
		t.confirm(device.CmdResetNeedsUnwind)
		return nil
	case 'E':
		t.confirm(device.CmdResetEEPROM)
		return nil
	}
	return ev
}

// Run owns the terminal until the operator quits or ctx is done.
func (t *terminalUI) Run(ctx context.Context) error {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.dirty:
				t.flush()
			}
		}
	}()
	go func() {
		<-ctx.Done()
		t.app.Stop()
	}()
	if err := t.app.Run(); err != nil {
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return errQuit
}
