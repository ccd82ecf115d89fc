package main

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/websocket"

	"github.com/w1xm/dish_interface/config"
	"github.com/w1xm/dish_interface/device"
	"github.com/w1xm/dish_interface/logbuf"
	"github.com/w1xm/dish_interface/simulator"
	"github.com/w1xm/dish_interface/telemetry"
)

func newTestServer(t *testing.T) (*Server, *simulator.Simulator, string) {
	t.Helper()
	sim := simulator.New(simulator.Config{Seed: 1})
	dev := httptest.NewServer(sim.Handler())
	t.Cleanup(dev.Close)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	d := device.NewDispatcher(ctx, device.NewClient(dev.URL, dev.Client()))
	t.Cleanup(d.Wait)

	cfg := config.DefaultConfig()
	s := NewServer(d, cfg.Server, cfg.Skyplane)
	s.logs = logbuf.New(100, s)
	d.Alert = s.Alert
	return s, sim, dev.URL
}

func dial(t *testing.T, s *Server) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(s.Router())
	t.Cleanup(srv.Close)
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/ws", nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil reads updates until ok accepts one.
func readUntil(t *testing.T, conn *websocket.Conn, ok func(u *Update) bool) *Update {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var u Update
		if err := conn.ReadJSON(&u); err != nil {
			t.Fatalf("reading update: %v", err)
		}
		if ok(&u) {
			return &u
		}
	}
}

func TestHandleCommand(t *testing.T) {
	s, _, _ := newTestServer(t)
	for _, test := range []struct {
		name string
		cmd  device.Command
		want *Update
	}{
		{
			name: "restart needs confirmation",
			cmd:  device.Command{Command: device.CmdRestart},
			want: &Update{Confirm: &Confirm{
				Command: device.Command{Command: device.CmdRestart},
				Prompt:  device.RestartPrompt,
			}},
		},
		{
			name: "eeprom needs confirmation",
			cmd:  device.Command{Command: device.CmdResetEEPROM},
			want: &Update{Confirm: &Confirm{
				Command: device.Command{Command: device.CmdResetEEPROM},
				Prompt:  device.ResetEEPROMPrompt,
			}},
		},
		{
			name: "unknown",
			cmd:  device.Command{Command: "self_destruct"},
			want: &Update{Error: `"self_destruct": unknown command`},
		},
		{
			name: "stop",
			cmd:  device.Command{Command: device.CmdStop},
		},
		{
			name: "pause",
			cmd:  device.Command{Command: cmdPauseLogs},
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			got := s.handleCommand(test.cmd)
			if diff := cmp.Diff(got, test.want); diff != "" {
				t.Errorf("handleCommand(%+v): got(-)/want(+):\n%s", test.cmd, diff)
			}
		})
	}
	if !s.logs.Paused() {
		t.Error("pause_logs did not pause the buffer")
	}
}

func TestStatusSocket(t *testing.T) {
	s, _, _ := newTestServer(t)
	conn := dial(t, s)

	// The current state arrives on connect.
	readUntil(t, conn, func(u *Update) bool { return true })

	s.logs.Append("[1] [INFO]  hello")
	s.logs.Refresh()
	u := readUntil(t, conn, func(u *Update) bool { return u.Logs != nil })
	if diff := cmp.Diff(u.Logs, &LogsUpdate{Text: "[1] [INFO]  hello", HasContent: true}); diff != "" {
		t.Errorf("logs: got(-)/want(+):\n%s", diff)
	}

	if err := conn.WriteJSON(device.Command{Command: cmdPauseLogs}); err != nil {
		t.Fatal(err)
	}
	readUntil(t, conn, func(u *Update) bool { return u.LogsPaused })

	if err := conn.WriteJSON(device.Command{Command: cmdClearLogs}); err != nil {
		t.Fatal(err)
	}
	if err := conn.WriteJSON(device.Command{Command: cmdResumeLogs}); err != nil {
		t.Fatal(err)
	}
	u = readUntil(t, conn, func(u *Update) bool { return u.Logs != nil })
	if u.Logs.HasContent || u.Logs.Text != "" {
		t.Errorf("logs after clear = %+v", u.Logs)
	}

	if err := conn.WriteJSON(device.Command{Command: device.CmdResetNeedsUnwind}); err != nil {
		t.Fatal(err)
	}
	u = readUntil(t, conn, func(u *Update) bool { return u.Confirm != nil })
	if u.Confirm.Prompt != device.ResetNeedsUnwindPrompt {
		t.Errorf("prompt = %q", u.Confirm.Prompt)
	}

	s.Alert("weather is broken")
	u = readUntil(t, conn, func(u *Update) bool { return u.Alert != "" })
	if u.Alert != "weather is broken" || u.AlertID != 1 {
		t.Errorf("alert = %q id %d", u.Alert, u.AlertID)
	}
}

func TestStatusSocketSkipsOldAlerts(t *testing.T) {
	s, _, _ := newTestServer(t)
	s.Alert("before you came")
	conn := dial(t, s)
	u := readUntil(t, conn, func(u *Update) bool { return true })
	if u.Alert != "" {
		t.Errorf("new client got old alert %q", u.Alert)
	}
}

func TestDashboardAgainstSimulator(t *testing.T) {
	s, sim, url := newTestServer(t)
	sim.SetSetpoint(120, 30)

	display := telemetry.NewDisplay()
	registerFields(display, s.SetField)
	poller, err := telemetry.New(telemetry.Config{URL: url, Interval: 20 * time.Millisecond}, display, s.logs, s)
	if err != nil {
		t.Fatal(err)
	}
	poller.OnSnapshot = func(snap *telemetry.Snapshot) {
		s.Applied(snap, poller.Stats())
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go poller.Run(ctx)

	conn := dial(t, s)
	var logs *LogsUpdate
	u := readUntil(t, conn, func(u *Update) bool {
		if u.Logs != nil {
			logs = u.Logs
		}
		return u.Stats.Applied > 0 && logs != nil
	})
	if !strings.HasPrefix(u.Skyplane, "<svg") {
		t.Errorf("skyplane = %.40q", u.Skyplane)
	}
	for name, want := range map[string]string{
		"setpoint_az":          "120.00",
		"setpoint_el":          "30.00",
		"currentDebugLevel":    "3 (INFO)",
		"serialOutputDisabled": "False",
	} {
		if got := u.Fields[name]; got != want {
			t.Errorf("field %s = %q, want %q", name, got, want)
		}
	}
	if !strings.Contains(logs.Text, "New setpoint Az: 120.00 El: 30.00") {
		t.Errorf("logs = %q", logs.Text)
	}

	if err := conn.WriteJSON(device.Command{Command: device.CmdDebugLevel, Value: 5}); err != nil {
		t.Fatal(err)
	}
	readUntil(t, conn, func(u *Update) bool { return u.Fields["currentDebugLevel"] == "5 (VERBOSE)" })
}
