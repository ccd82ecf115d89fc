package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dish.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFileEmptyPath(t *testing.T) {
	cfg, err := LoadFile("")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(cfg, DefaultConfig()); diff != "" {
		t.Errorf("got(-)/want(+):\n%s", diff)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults invalid: %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, `
device:
  url: http://192.168.4.1/
poll:
  interval_ms: 500
  timeout_ms: 2000
rotctld:
  listen: ":4533"
serial:
  port: /dev/ttyUSB0
logging:
  file: /tmp/dish.log
  debug: true
`)
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := DefaultConfig()
	want.Device.URL = "http://192.168.4.1"
	want.Poll = PollConfig{IntervalMS: 500, TimeoutMS: 2000}
	want.Rotctld.Listen = ":4533"
	want.Serial.Port = "/dev/ttyUSB0"
	want.Logging.File = "/tmp/dish.log"
	want.Logging.Debug = true
	if diff := cmp.Diff(cfg, want); diff != "" {
		t.Errorf("got(-)/want(+):\n%s", diff)
	}
	if got := cfg.PollInterval(); got != 500*time.Millisecond {
		t.Errorf("PollInterval() = %v", got)
	}
	if got := cfg.PollTimeout(); got != 2*time.Second {
		t.Errorf("PollTimeout() = %v", got)
	}
}

func TestLoadFileZeroesBecomeDefaults(t *testing.T) {
	cfg, err := LoadFile(writeFile(t, "poll:\n  interval_ms: 0\nlog_buffer:\n  capacity: -5\n"))
	if err != nil {
		t.Fatal(err)
	}
	def := DefaultConfig()
	if cfg.Poll.IntervalMS != def.Poll.IntervalMS || cfg.LogBuf.Capacity != def.LogBuf.Capacity {
		t.Errorf("got poll %d capacity %d, want defaults", cfg.Poll.IntervalMS, cfg.LogBuf.Capacity)
	}
}

func TestLoadFileErrors(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file loaded")
	}
	if _, err := LoadFile(writeFile(t, "poll: [")); err == nil {
		t.Error("bad YAML loaded")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"bad scheme", func(c *Config) { c.Device.URL = "ftp://dish" }, "device.url"},
		{"no host", func(c *Config) { c.Device.URL = "http://" }, "device.url"},
		{"fast poll", func(c *Config) { c.Poll.IntervalMS = 1 }, "poll.interval_ms"},
		{"negative timeout", func(c *Config) { c.Poll.TimeoutMS = -1 }, "poll.timeout_ms"},
		{"huge margin", func(c *Config) { c.Skyplane.Margin = 200 }, "skyplane.margin"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := DefaultConfig()
			test.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), test.want) {
				t.Errorf("Validate() = %v, want mention of %s", err, test.want)
			}
		})
	}
}
