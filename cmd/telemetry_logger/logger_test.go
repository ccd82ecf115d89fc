package main

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFlatten(t *testing.T) {
	for _, test := range []struct {
		name string
		in   string
		want map[string]interface{}
	}{
		{
			name: "update",
			in: `{
				"skyplane": "<svg/>",
				"logs": {"text": "a\nb", "has_content": true},
				"fields": {"correctedAngle_az": "123.45", "wifissid": "home", "level": "▂▄··"},
				"logs_paused": false,
				"stats": {"Issued": 4, "Applied": 3, "Dropped": 1, "Stale": 0}
			}`,
			want: map[string]interface{}{
				"fields.correctedAngle_az": 123.45,
				"fields.wifissid":          "home",
				"fields.level":             "▂▄··",
				"logs_paused":              false,
				"stats.Issued":             4.0,
				"stats.Applied":            3.0,
				"stats.Dropped":            1.0,
				"stats.Stale":              0.0,
			},
		},
		{
			name: "confirm reply",
			in:   `{"confirm": {"command": {"command": "restart"}, "prompt": "sure?"}, "stats": {}}`,
			want: map[string]interface{}{},
		},
		{
			name: "arrays",
			in:   `{"fields": {"x": ["1", 2]}}`,
			want: map[string]interface{}{"fields.x.0": 1.0, "fields.x.1": 2.0},
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			var v interface{}
			if err := json.Unmarshal([]byte(test.in), &v); err != nil {
				t.Fatal(err)
			}
			got := make(map[string]interface{})
			flatten(got, v, "")
			if diff := cmp.Diff(got, test.want); diff != "" {
				t.Errorf("got(-)/want(+):\n%s", diff)
			}
		})
	}
}

func TestRecorderSkipsRepeats(t *testing.T) {
	var r recorder
	for _, test := range []struct {
		name  string
		in    string
		write bool
	}{
		{"before any poll", `{"logs_paused": false, "stats": {"Applied": 0}}`, false},
		{"first snapshot", `{"fields": {"az": "1"}, "stats": {"Applied": 1}}`, true},
		{"log line", `{"fields": {"az": "1"}, "logs": {"text": "x", "has_content": true}, "stats": {"Applied": 1}}`, false},
		{"alert", `{"fields": {"az": "1"}, "alert": "weather", "alert_id": 1, "stats": {"Applied": 1}}`, false},
		{"next snapshot", `{"fields": {"az": "2"}, "stats": {"Applied": 2}}`, true},
		{"no stats", `{"error": "bad command"}`, false},
	} {
		var v interface{}
		if err := json.Unmarshal([]byte(test.in), &v); err != nil {
			t.Fatal(err)
		}
		if got := r.pointFields(v) != nil; got != test.write {
			t.Errorf("%s: wrote %v, want %v", test.name, got, test.write)
		}
	}
}
