package telemetry

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDisplayUpdate(t *testing.T) {
	d := NewDisplay()
	got := map[string]string{}
	d.RegisterAll([]string{"correctedAngle_az", "wifissid", "ip_addr"}, func(name, value string) {
		got[name] = value
	})
	var calls []string
	d.Register("correctedAngle_az", func(v string) { calls = append(calls, "az "+v) })

	s, err := Decode([]byte(sample))
	if err != nil {
		t.Fatal(err)
	}
	got["ip_addr"] = "untouched"
	d.Update(s)

	want := map[string]string{
		"correctedAngle_az": "123.45",
		"wifissid":          "dish-net",
		"ip_addr":           "untouched",
	}
	if diff := cmp.Diff(got, want); diff != "" {
		t.Errorf("got(-)/want(+):\n%s", diff)
	}
	if diff := cmp.Diff(calls, []string{"az 123.45"}); diff != "" {
		t.Errorf("got(-)/want(+):\n%s", diff)
	}
}

func TestDebugLevelName(t *testing.T) {
	tests := []struct {
		in   int
		want string
	}{
		{0, "0 (NONE)"},
		{3, "3 (INFO)"},
		{5, "5 (VERBOSE)"},
		{9, "9"},
		{-1, "-1"},
	}
	for _, test := range tests {
		if got := DebugLevelName(test.in); got != test.want {
			t.Errorf("DebugLevelName(%d) = %q, want %q", test.in, got, test.want)
		}
	}
}

func TestSignal(t *testing.T) {
	tests := []struct {
		rssi  int
		level int
		bars  string
	}{
		{-40, 4, "▂▄▆█"},
		{-50, 4, "▂▄▆█"},
		{-55, 3, "▂▄▆·"},
		{-65, 2, "▂▄··"},
		{-80, 1, "▂···"},
		{-90, 0, "····"},
	}
	for _, test := range tests {
		level := SignalLevel(test.rssi)
		if level != test.level {
			t.Errorf("SignalLevel(%d) = %d, want %d", test.rssi, level, test.level)
		}
		if got := SignalBars(level); got != test.bars {
			t.Errorf("SignalBars(%d) = %q, want %q", level, got, test.bars)
		}
	}
}
